package auction

import (
	"time"

	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/enielson/solvable-orders-cache/internal/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Assemble combines the balance-allocated orders with the collected native
// prices into the final AuctionSnapshot for this cycle, dropping any order
// missing a price for either of its tokens and pruning prices for tokens no
// surviving order uses. It reports the cycle's outcome to sink exactly once,
// satisfying §4.7's "exactly once per successful Publishing transition".
func Assemble(block, latestSettlementBlock uint64, orders []Order, priced PriceCollectionResult, updateTime time.Time, sink metrics.Sink, logger logging.Logger) AuctionSnapshot {
	usedPrices := make(map[common.Address]*uint256.Int)
	solvable := make([]Order, 0, len(orders))

	for _, o := range orders {
		sellPrice, haveSell := priced.Prices[o.SellToken]
		buyPrice, haveBuy := priced.Prices[o.BuyToken]
		if !haveSell || !haveBuy {
			logger.Debugf("filtering order %s: missing native price", o.UID)
			continue
		}
		usedPrices[o.SellToken] = sellPrice
		usedPrices[o.BuyToken] = buyPrice
		solvable = append(solvable, o)
	}

	filtered := uint64(len(orders) - len(solvable))
	sink.AuctionUpdated(uint64(len(solvable)), filtered, priced.ErroredEstimates, priced.Timeout)

	return AuctionSnapshot{
		Block:                 block,
		LatestSettlementBlock: latestSettlementBlock,
		Orders:                solvable,
		Prices:                usedPrices,
		UpdateTime:            updateTime,
	}
}
