package cache

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRefreshReusesBalancesWithinSameBlock(t *testing.T) {
	deps, store, detector, balances, prices, _, _ := testDeps(t)

	owner := common.HexToAddress("0x1")
	token := common.HexToAddress("0x2")
	order := auction.Order{
		UID: auction.UID{1}, Owner: owner, SellToken: token, BuyToken: token,
		SellAmount: u256(10), FeeAmount: u256(0),
	}

	store.On("SolvableOrders", context.Background(), mock.Anything).
		Return(auction.LoadedOrders{Orders: []auction.Order{order}}, nil)
	detector.On("Detect", context.Background(), token).Return(true, nil)

	query := auction.QueryOf(order)
	balances.On("GetBalances", context.Background(), []auction.BalanceQuery{query}).
		Return([]auction.BalanceResult{{Balance: u256(500)}}, nil).Once()

	stream := make(chan auction.PriceEstimate, 1)
	stream <- auction.PriceEstimate{Index: 0, Price: 1.0}
	close(stream)
	prices.Stream = stream
	prices.On("EstimateNativePrices", mock.Anything, mock.Anything)

	c := New(deps)
	defer c.Close()

	c.refresh(context.Background(), 7, false)

	// Second refresh on the same block must not call GetBalances again.
	stream2 := make(chan auction.PriceEstimate, 1)
	stream2 <- auction.PriceEstimate{Index: 0, Price: 1.0}
	close(stream2)
	prices.Stream = stream2

	c.refresh(context.Background(), 7, true)

	balances.AssertNumberOfCalls(t, "GetBalances", 1)
}

// runRefreshLoop should return promptly once the Cache's Close channel
// fires, independent of whether the weak reference is still live.
func TestRunRefreshLoopStopsOnClose(t *testing.T) {
	deps, store, _, _, _, _, _ := testDeps(t)
	deps.UpdateInterval = 5 * time.Millisecond
	store.On("SolvableOrders", context.Background(), mock.Anything).
		Return(auction.LoadedOrders{}, nil)

	c := New(deps)
	done := c.loopDone
	c.Close()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

// TestRunRefreshLoopExitsWhenStrongReferenceDropped exercises P7 directly:
// once the only strong reference to a Cache is gone, the loop's weak.Pointer
// promotion fails on its next wake-up and it exits within one
// UpdateInterval, without Close ever being called.
func TestRunRefreshLoopExitsWhenStrongReferenceDropped(t *testing.T) {
	deps, store, _, _, _, _, _ := testDeps(t)
	deps.UpdateInterval = 5 * time.Millisecond
	store.On("SolvableOrders", context.Background(), mock.Anything).
		Return(auction.LoadedOrders{}, nil)

	var done chan struct{}
	func() {
		c := New(deps)
		done = c.loopDone
	}()
	// c is now unreachable from this goroutine's stack; nudge the garbage
	// collector until the weak pointer's target is actually reclaimed.

	require.Eventually(t, func() bool {
		runtime.GC()
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)
}
