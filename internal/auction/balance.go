package auction

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/holiman/uint256"
)

// ReuseOrFetch determines which balance queries are already known from the
// previous cycle and fetches the rest in one batch. previous is reused
// verbatim only when sameBlock is true: the spec's contract is that an
// on-chain balance cannot have changed within the same block, so re-querying
// it is wasted work (see §4.2, §4.5 block gating, and P5).
func ReuseOrFetch(ctx context.Context, fetcher BalanceFetcher, previous Balances, sameBlock bool, orders []Order, logger logging.Logger) (Balances, error) {
	known := Balances{}
	if sameBlock {
		known = previous.Clone()
	}

	var missing []BalanceQuery
	seen := map[BalanceQuery]struct{}{}
	for _, o := range orders {
		q := QueryOf(o)
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		if _, ok := known[q]; ok {
			continue
		}
		missing = append(missing, q)
	}

	if len(missing) == 0 {
		return known, nil
	}

	results, err := fetcher.GetBalances(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching balances: %v", ErrUpstreamUnavailable, err)
	}
	if len(results) != len(missing) {
		return nil, fmt.Errorf("%w: balance fetcher returned %d results for %d queries", ErrUpstreamUnavailable, len(results), len(missing))
	}

	for i, q := range missing {
		res := results[i]
		if res.Err != nil {
			logger.Warnf("failed to get balance for owner=%s token=%s source=%d: %v", q.Owner, q.SellToken, q.Source, res.Err)
			continue
		}
		known[q] = res.Balance
	}

	return known, nil
}

// Allocate assigns scarce per-query balance to competing orders. Within a
// BalanceQuery group, orders are admitted newest-creation-date first; a tie
// in creation date breaks on ascending UID so the outcome is deterministic.
// Groups with no known balance admit nothing.
func Allocate(orders []Order, balances Balances, logger logging.Logger) []Order {
	groups := make(map[BalanceQuery][]Order)
	var order int // stable group-appearance order, for deterministic output
	groupOrder := make(map[BalanceQuery]int)
	for _, o := range orders {
		q := QueryOf(o)
		if _, ok := groupOrder[q]; !ok {
			groupOrder[q] = order
			order++
		}
		groups[q] = append(groups[q], o)
	}

	keys := make([]BalanceQuery, 0, len(groups))
	for q := range groups {
		keys = append(keys, q)
	}
	sort.Slice(keys, func(i, j int) bool { return groupOrder[keys[i]] < groupOrder[keys[j]] })

	result := make([]Order, 0, len(orders))
	for _, q := range keys {
		balance, ok := balances[q]
		if !ok {
			continue
		}
		group := groups[q]
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if !a.CreationDate.Equal(b.CreationDate) {
				return a.CreationDate.After(b.CreationDate)
			}
			return uidLess(a.UID, b.UID)
		})

		remaining := balance.Clone()
		for _, o := range group {
			needed, err := maxTransferOutAmount(o)
			if err != nil {
				logger.Errorf("computing max transfer out for order %s: %v", o.UID, err)
				continue
			}
			if needed.IsZero() {
				continue
			}
			next, underflow := new(uint256.Int).SubOverflow(remaining, needed)
			if underflow {
				continue
			}
			remaining = next
			o.AvailableBalance = balance
			result = append(result, o)
		}
	}
	return result
}

func uidLess(a, b UID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// maxTransferOutAmount computes the asset that must still be movable out of
// the owner's account to satisfy order's remaining obligation.
//
// For fill-or-kill orders this is simply sell_amount + fee_amount. For
// partially-fillable orders it's that same total minus whatever fraction has
// already been consumed, where the consumed fraction is measured against
// whichever side of the order is fixed (sell_amount for a sell order,
// buy_amount for a buy order). The consumed portion is computed with a
// 512-bit intermediate product (via mulDiv) so a large executed amount
// never overflows on the way to being divided back down.
func maxTransferOutAmount(o Order) (*uint256.Int, error) {
	total, overflow := new(uint256.Int).AddOverflow(o.SellAmount, o.FeeAmount)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	if !o.PartiallyFillable {
		return total, nil
	}

	var executed, denominator *uint256.Int
	switch o.Kind {
	case KindBuy:
		executed, denominator = o.ExecutedBuyAmount, o.BuyAmount
	default:
		executed, denominator = o.ExecutedSellAmount, o.SellAmount
	}
	if executed == nil || executed.IsZero() {
		return total, nil
	}

	consumed, ok := mulDiv(executed, total, denominator)
	if !ok {
		return nil, ErrArithmeticOverflow
	}
	needed, underflow := new(uint256.Int).SubOverflow(total, consumed)
	if underflow {
		return nil, ErrArithmeticOverflow
	}
	return needed, nil
}

// mulDiv computes floor(x*y/d) without the intermediate product ever being
// constrained to 256 bits, returning ok=false if d is zero or if the final
// result does not fit back into 256 bits.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, bool) {
	if d.IsZero() {
		return nil, false
	}
	product := new(big.Int).Mul(x.ToBig(), y.ToBig())
	product.Quo(product, d.ToBig())
	result, overflow := uint256.FromBig(product)
	if overflow {
		return nil, false
	}
	return result, true
}
