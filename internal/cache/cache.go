// Package cache implements the refresh loop and public façade that turn the
// auction pipeline in internal/auction into a continuously-updated,
// concurrently-readable snapshot.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/enielson/solvable-orders-cache/internal/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// DefaultUpdateInterval is the periodic tick the refresh loop wakes up
	// on absent an explicit update request.
	DefaultUpdateInterval = 2 * time.Second
	// DefaultMaxAuctionCreationTime is the deadline allotted to native
	// price collection in one cycle.
	DefaultMaxAuctionCreationTime = 10 * time.Second
)

// Dependencies wires the six external collaborators (§6) plus the tunables
// (§6 table) a Cache needs. Clock, UpdateInterval, MaxAuctionCreationTime,
// Metrics and Logger fall back to a default at New time when left zero. The
// other collaborators are required; a zero MinOrderValidity adds no margin
// to the expiry cut-off and a nil BannedUsers bans nobody.
type Dependencies struct {
	OrderStore           auction.OrderStore
	BadTokenDetector     auction.BadTokenDetector
	BalanceFetcher       auction.BalanceFetcher
	NativePriceEstimator auction.NativePriceEstimator
	BlockStream          auction.BlockStream
	Clock                auction.Clock

	BannedUsers map[common.Address]struct{}

	MinOrderValidity       time.Duration
	UpdateInterval         time.Duration
	MaxAuctionCreationTime time.Duration

	Metrics metrics.Sink
	Logger  logging.Logger
}

func (d *Dependencies) setDefaults() {
	if d.Clock == nil {
		d.Clock = auction.SystemClock{}
	}
	if d.UpdateInterval <= 0 {
		d.UpdateInterval = DefaultUpdateInterval
	}
	if d.MaxAuctionCreationTime <= 0 {
		d.MaxAuctionCreationTime = DefaultMaxAuctionCreationTime
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Noop{}
	}
	if d.Logger == nil {
		d.Logger = logging.New("[solvable-orders-cache]")
	}
}

// published is the whole-object state the refresh loop replaces atomically.
type published struct {
	snapshot auction.AuctionSnapshot
	balances auction.Balances
}

// Cache is the public façade (C6): a single cell holding the latest
// AuctionSnapshot and the balances that produced it, kept fresh by a
// background refresh loop (C5). The zero value is not usable; construct
// with New.
type Cache struct {
	deps Dependencies

	state  atomic.Pointer[published]
	notify *wakeSignal

	// closeOnce/closed give callers an explicit, deterministic shutdown
	// path alongside the weak-reference exit the spec calls for: letting
	// the garbage collector decide when the last strong reference is gone
	// is correct in production but awkward to assert on in tests.
	closeOnce sync.Once
	closed    chan struct{}

	// loopDone is closed by runRefreshLoop right before it returns, by
	// either exit path (closed or weak-reference promotion failure). It
	// is handed to the loop separately from the Cache itself so a test can
	// still observe it closing after the Cache has become unreachable.
	loopDone chan struct{}
}

// New creates a Cache and starts its background refresh loop. The loop
// holds only a weak reference to the returned Cache: once every strong
// reference the caller holds is dropped, the loop notices on its next
// wake-up and exits (§4.5, §9, P7).
func New(deps Dependencies) *Cache {
	deps.setDefaults()

	c := &Cache{
		deps:     deps,
		notify:   newWakeSignal(),
		closed:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	c.state.Store(&published{
		snapshot: auction.Empty(deps.Clock.Now()),
		balances: auction.Balances{},
	})

	go runRefreshLoop(weak.Make(c), deps, c.loopDone)

	return c
}

// Close signals the refresh loop to stop at its next wake-up, independent
// of garbage collection. Safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.notify.Notify()
	})
}

// SolvableOrders is the orders-and-timestamp view of the cache (§4.6).
type SolvableOrders struct {
	Orders                []auction.Order
	UpdateTime            time.Time
	Block                 uint64
	LatestSettlementBlock uint64
}

// CachedSolvableOrders returns the orders from the last successful refresh,
// never blocking on one that's in flight.
func (c *Cache) CachedSolvableOrders() SolvableOrders {
	p := c.state.Load()
	return SolvableOrders{
		Orders:                p.snapshot.Orders,
		UpdateTime:            p.snapshot.UpdateTime,
		Block:                 p.snapshot.Block,
		LatestSettlementBlock: p.snapshot.LatestSettlementBlock,
	}
}

// CachedAuction returns the full auction snapshot and the time it was
// produced.
func (c *Cache) CachedAuction() (auction.AuctionSnapshot, time.Time) {
	p := c.state.Load()
	return p.snapshot, p.snapshot.UpdateTime
}

// CachedBalance returns the balance observed for query during the last
// refresh, if any.
func (c *Cache) CachedBalance(query auction.BalanceQuery) (*uint256.Int, bool) {
	p := c.state.Load()
	b, ok := p.balances[query]
	return b, ok
}

// RequestUpdate asks the refresh loop to run again as soon as it's next
// waiting; concurrent calls while it's already waiting coalesce into a
// single subsequent refresh (P6).
func (c *Cache) RequestUpdate() {
	c.notify.Notify()
}

// RunMaintenance is an alias of RequestUpdate for collaborators that only
// know about a generic "maintenance" capability.
func (c *Cache) RunMaintenance(_ context.Context) error {
	c.RequestUpdate()
	return nil
}
