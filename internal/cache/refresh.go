package cache

import (
	"context"
	"time"
	"weak"

	"github.com/enielson/solvable-orders-cache/internal/auction"
)

// runRefreshLoop is the background goroutine started by New. It holds only a
// weak.Pointer to the Cache it serves: every time it wakes up it attempts to
// promote ref to a strong reference, and exits as soon as that promotion
// fails, which is how a Cache with no remaining strong referents stops
// consuming upstream resources on its own (§4.5, §9, P7).
func runRefreshLoop(ref weak.Pointer[Cache], deps Dependencies, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(deps.UpdateInterval)
	defer ticker.Stop()

	var lastBlock uint64
	var haveLastBlock bool

	for {
		c := ref.Value()
		if c == nil {
			return
		}

		select {
		case <-c.closed:
			return
		default:
		}

		block, haveBlock := deps.BlockStream.CurrentBlock()
		if !haveBlock {
			deps.Logger.Errorf("refresh: %v", auction.ErrBlockUnknown)
		} else {
			sameBlock := haveLastBlock && block == lastBlock
			c.refresh(context.Background(), block, sameBlock)
			lastBlock = block
			haveLastBlock = true
		}

		notify := c.notify
		closed := c.closed
		c = nil // drop the strong reference before blocking

		select {
		case <-notify.C():
		case <-ticker.C:
		case <-closed:
			return
		}
	}
}

// refresh runs one full pipeline pass (§4: load, filter, allocate balances,
// collect prices, assemble) and, on success, atomically replaces the
// published state. A failure at any stage leaves the previously published
// snapshot untouched and is logged; the next tick or wake-up simply tries
// again.
func (c *Cache) refresh(ctx context.Context, block uint64, sameBlock bool) {
	deps := c.deps
	prior := c.state.Load()

	minValidTo := deps.Clock.NowEpochSeconds()
	if deps.MinOrderValidity > 0 {
		minValidTo += uint32(deps.MinOrderValidity.Seconds())
	}

	loaded, err := auction.Load(ctx, deps.OrderStore, minValidTo)
	if err != nil {
		deps.Logger.Errorf("refresh: %v", err)
		return
	}

	orders := auction.DropBanned(loaded.Orders, deps.BannedUsers)

	orders, err = auction.DropUnsupported(ctx, orders, deps.BadTokenDetector, deps.Logger)
	if err != nil {
		deps.Logger.Errorf("refresh: %v", err)
		return
	}

	balances, err := auction.ReuseOrFetch(ctx, deps.BalanceFetcher, prior.balances, sameBlock, orders, deps.Logger)
	if err != nil {
		deps.Logger.Errorf("refresh: %v", err)
		return
	}

	orders = auction.Allocate(orders, balances, deps.Logger)

	now := deps.Clock.Now()
	deadline := now.Add(deps.MaxAuctionCreationTime)
	tokens := auction.TradedTokens(orders)
	priced := auction.CollectNativePrices(ctx, deps.NativePriceEstimator, tokens, deadline, deps.Logger)

	snapshot := auction.Assemble(block, loaded.LatestSettlementBlock, orders, priced, now, deps.Metrics, deps.Logger)

	c.state.Store(&published{
		snapshot: snapshot,
		balances: balances,
	})
}
