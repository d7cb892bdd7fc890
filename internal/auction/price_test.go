package auction_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/enielson/solvable-orders-cache/internal/testutil/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCollectNativePricesNormalizesAndCollects(t *testing.T) {
	tokenA := common.HexToAddress("0x1")
	tokenB := common.HexToAddress("0x2")

	estimator := new(mocks.MockNativePriceEstimator)
	estimator.Stream = make(chan auction.PriceEstimate, 2)
	estimator.Stream <- auction.PriceEstimate{Index: 0, Price: 2.0}
	estimator.Stream <- auction.PriceEstimate{Index: 1, Price: 0.5}
	close(estimator.Stream)
	estimator.On("EstimateNativePrices", mock.Anything, []common.Address{tokenA, tokenB})

	result := auction.CollectNativePrices(context.Background(), estimator, []common.Address{tokenA, tokenB}, time.Now().Add(time.Second), logging.Noop{})
	require.Len(t, result.Prices, 2)
	require.False(t, result.Timeout)
	require.Equal(t, uint64(0), result.ErroredEstimates)
}

func TestCollectNativePricesCountsErrors(t *testing.T) {
	token := common.HexToAddress("0x1")
	estimator := new(mocks.MockNativePriceEstimator)
	estimator.Stream = make(chan auction.PriceEstimate, 1)
	estimator.Stream <- auction.PriceEstimate{Index: 0, Err: errors.New("timeout")}
	close(estimator.Stream)
	estimator.On("EstimateNativePrices", mock.Anything, []common.Address{token})

	result := auction.CollectNativePrices(context.Background(), estimator, []common.Address{token}, time.Now().Add(time.Second), logging.Noop{})
	require.Empty(t, result.Prices)
	require.Equal(t, uint64(1), result.ErroredEstimates)
}

func TestCollectNativePricesHandlesEmptyTokenList(t *testing.T) {
	estimator := new(mocks.MockNativePriceEstimator)
	result := auction.CollectNativePrices(context.Background(), estimator, nil, time.Now().Add(time.Second), logging.Noop{})
	require.Empty(t, result.Prices)
	require.False(t, result.Timeout)
}

func TestCollectNativePricesTimesOut(t *testing.T) {
	token := common.HexToAddress("0x1")
	estimator := new(mocks.MockNativePriceEstimator)
	estimator.Stream = make(chan auction.PriceEstimate) // never produces
	estimator.On("EstimateNativePrices", mock.Anything, []common.Address{token})

	result := auction.CollectNativePrices(context.Background(), estimator, []common.Address{token}, time.Now().Add(10*time.Millisecond), logging.Noop{})
	require.True(t, result.Timeout)
	require.Empty(t, result.Prices)
}

// TestCollectNativePricesRejectsUnnormalizableValues covers the four
// categories normalizeNativePrice drops (zero, infinite, negative, and
// subnormal raw prices) plus a value just above the smallest accepted unit.
func TestCollectNativePricesRejectsUnnormalizableValues(t *testing.T) {
	cases := []struct {
		name    string
		price   float64
		accepts bool
	}{
		{"zero", 0, false},
		{"positiveInfinity", math.Inf(1), false},
		{"negative", -1.0, false},
		{"subnormal", math.SmallestNonzeroFloat64, false},
		{"acceptedAboveSmallestUnit", 2e-18, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := common.HexToAddress("0x1")
			estimator := new(mocks.MockNativePriceEstimator)
			estimator.Stream = make(chan auction.PriceEstimate, 1)
			estimator.Stream <- auction.PriceEstimate{Index: 0, Price: tc.price}
			close(estimator.Stream)
			estimator.On("EstimateNativePrices", mock.Anything, []common.Address{token})

			result := auction.CollectNativePrices(context.Background(), estimator, []common.Address{token}, time.Now().Add(time.Second), logging.Noop{})
			_, got := result.Prices[token]
			require.Equal(t, tc.accepts, got)
			require.Equal(t, uint64(0), result.ErroredEstimates)
		})
	}
}

func TestTradedTokensDedupsInFirstAppearanceOrder(t *testing.T) {
	a := common.HexToAddress("0x1")
	b := common.HexToAddress("0x2")
	orders := []auction.Order{
		{SellToken: a, BuyToken: b},
		{SellToken: b, BuyToken: a},
	}
	got := auction.TradedTokens(orders)
	require.Equal(t, []common.Address{a, b}, got)
}
