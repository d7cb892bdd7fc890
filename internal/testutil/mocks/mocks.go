// Package mocks provides testify/mock implementations of the collaborator
// interfaces in internal/auction and internal/metrics, for use across test
// packages.
package mocks

import (
	"context"
	"time"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockOrderStore is a mock implementation of auction.OrderStore.
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) SolvableOrders(ctx context.Context, minValidTo uint32) (auction.LoadedOrders, error) {
	args := m.Called(ctx, minValidTo)
	return args.Get(0).(auction.LoadedOrders), args.Error(1)
}

// MockBadTokenDetector is a mock implementation of auction.BadTokenDetector.
type MockBadTokenDetector struct {
	mock.Mock
}

func (m *MockBadTokenDetector) Detect(ctx context.Context, token common.Address) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

// MockBalanceFetcher is a mock implementation of auction.BalanceFetcher.
type MockBalanceFetcher struct {
	mock.Mock
}

func (m *MockBalanceFetcher) GetBalances(ctx context.Context, queries []auction.BalanceQuery) ([]auction.BalanceResult, error) {
	args := m.Called(ctx, queries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]auction.BalanceResult), args.Error(1)
}

// MockNativePriceEstimator is a mock implementation of
// auction.NativePriceEstimator. Set Stream before invoking the method under
// test; EstimateNativePrices returns it directly, ignoring tokens, since
// test cases build the channel themselves to control timing.
type MockNativePriceEstimator struct {
	mock.Mock
	Stream chan auction.PriceEstimate
}

func (m *MockNativePriceEstimator) EstimateNativePrices(ctx context.Context, tokens []common.Address) <-chan auction.PriceEstimate {
	m.Called(ctx, tokens)
	return m.Stream
}

// MockBlockStream is a mock implementation of auction.BlockStream.
type MockBlockStream struct {
	mock.Mock
}

func (m *MockBlockStream) CurrentBlock() (uint64, bool) {
	args := m.Called()
	return args.Get(0).(uint64), args.Bool(1)
}

// MockClock is a mock implementation of auction.Clock, for tests that need
// to assert on exactly which timestamps were requested.
type MockClock struct {
	mock.Mock
}

func (m *MockClock) NowEpochSeconds() uint32 {
	args := m.Called()
	return args.Get(0).(uint32)
}

func (m *MockClock) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

// MockMetricsSink is a mock implementation of metrics.Sink.
type MockMetricsSink struct {
	mock.Mock
}

func (m *MockMetricsSink) AuctionUpdated(solvable, filtered, erroredEstimates uint64, timeout bool) {
	m.Called(solvable, filtered, erroredEstimates, timeout)
}
