package auction

import (
	"context"
	"fmt"

	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/ethereum/go-ethereum/common"
)

// Load fetches the current set of not-yet-expired orders from the order
// store. minValidTo should be now + MIN_VALIDITY, expressed in epoch
// seconds, so orders that would expire before a solver can act on them are
// never loaded in the first place.
func Load(ctx context.Context, store OrderStore, minValidTo uint32) (LoadedOrders, error) {
	loaded, err := store.SolvableOrders(ctx, minValidTo)
	if err != nil {
		return LoadedOrders{}, fmt.Errorf("%w: loading solvable orders: %v", ErrUpstreamUnavailable, err)
	}
	return loaded, nil
}

// DropBanned removes orders whose owner is in the banned set, preserving
// the relative order of everything that survives.
func DropBanned(orders []Order, banned map[common.Address]struct{}) []Order {
	if len(banned) == 0 {
		return orders
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if _, isBanned := banned[o.Owner]; !isBanned {
			out = append(out, o)
		}
	}
	return out
}

// DropUnsupported queries the bad-token oracle once per distinct token
// touched by orders and removes every order that touches a token the oracle
// reports as unsupported. An oracle error aborts the whole cycle: we'd
// rather retry next tick than publish a snapshot that may contain orders
// for a token the oracle couldn't classify.
func DropUnsupported(ctx context.Context, orders []Order, detector BadTokenDetector, logger logging.Logger) ([]Order, error) {
	support := make(map[common.Address]bool)
	for _, o := range orders {
		for _, token := range [2]common.Address{o.SellToken, o.BuyToken} {
			if _, known := support[token]; known {
				continue
			}
			ok, err := detector.Detect(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: detecting token %s: %v", ErrUpstreamUnavailable, token, err)
			}
			support[token] = ok
		}
	}

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if support[o.SellToken] && support[o.BuyToken] {
			out = append(out, o)
		} else {
			logger.Debugf("dropping order %s: unsupported token (sell=%s buy=%s)", o.UID, o.SellToken, o.BuyToken)
		}
	}
	return out, nil
}
