package auction

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// LoadedOrders is what the order store returns for one cycle.
type LoadedOrders struct {
	Orders                []Order
	LatestSettlementBlock uint64
}

// OrderStore is the external order book. Failure is cycle-fatal.
type OrderStore interface {
	SolvableOrders(ctx context.Context, minValidTo uint32) (LoadedOrders, error)
}

// BadTokenDetector classifies a token as safe to trade or not. Called once
// per distinct token per cycle; implementations are free to cache. A call
// error is cycle-fatal.
type BadTokenDetector interface {
	Detect(ctx context.Context, token common.Address) (supported bool, err error)
}

// BalanceResult is one element of a batched balance fetch, matching its
// input query by position.
type BalanceResult struct {
	Balance *uint256.Int
	Err     error
}

// BalanceFetcher resolves the spendable balance of a set of queries in one
// batch. Results are order-preserving; a per-item error only drops that
// query's orders, it never aborts the batch.
type BalanceFetcher interface {
	GetBalances(ctx context.Context, queries []BalanceQuery) ([]BalanceResult, error)
}

// PriceEstimate is one element of the lazy stream a NativePriceEstimator
// produces. Index identifies which requested token the estimate is for;
// estimates may arrive in any order.
type PriceEstimate struct {
	Index int
	Price float64
	Err   error
}

// NativePriceEstimator fans out native-price lookups for a set of tokens and
// streams results back as they complete. The channel is closed once every
// token has produced a result; a consumer may abandon it before exhaustion.
type NativePriceEstimator interface {
	EstimateNativePrices(ctx context.Context, tokens []common.Address) <-chan PriceEstimate
}

// BlockStream exposes the latest observed block height without blocking.
type BlockStream interface {
	CurrentBlock() (height uint64, ok bool)
}

// Clock abstracts wall-clock reads so tests can control both epoch-second
// order expiry checks and monotonic deadline/update-time stamps.
type Clock interface {
	NowEpochSeconds() uint32
	Now() time.Time
}

// SystemClock is the production Clock backed by the real wall clock.
type SystemClock struct{}

func (SystemClock) NowEpochSeconds() uint32 { return uint32(time.Now().Unix()) }
func (SystemClock) Now() time.Time          { return time.Now() }
