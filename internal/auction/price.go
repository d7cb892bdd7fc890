package auction

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// maxUint256AsFloat is 2^256, the exclusive upper bound a normalized price
// must stay under.
var maxUint256AsFloat = math.Ldexp(1, 256)

// PriceCollectionResult is what one deadline-bounded price-collection pass
// produced.
type PriceCollectionResult struct {
	Prices           map[common.Address]*uint256.Int
	ErroredEstimates uint64
	Timeout          bool
}

// CollectNativePrices fans out to the native price estimator for every
// token in tokens and collects whatever prices arrive before deadline.
// Running out of time is not an error: it is reported in the returned
// Timeout flag and the cycle proceeds with whatever was collected so far.
func CollectNativePrices(ctx context.Context, estimator NativePriceEstimator, tokens []common.Address, deadline time.Time, logger logging.Logger) PriceCollectionResult {
	result := PriceCollectionResult{Prices: make(map[common.Address]*uint256.Int, len(tokens))}
	if len(tokens) == 0 {
		return result
	}

	deadlineCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	stream := estimator.EstimateNativePrices(deadlineCtx, tokens)
	received := 0
collect:
	for received < len(tokens) {
		select {
		case estimate, ok := <-stream:
			if !ok {
				break collect
			}
			received++
			if estimate.Index < 0 || estimate.Index >= len(tokens) {
				continue
			}
			token := tokens[estimate.Index]
			if estimate.Err != nil {
				result.ErroredEstimates++
				logger.Warnf("error estimating native price for token %s: %v", token, estimate.Err)
				continue
			}
			normalized, ok := normalizeNativePrice(estimate.Price)
			if !ok {
				logger.Debugf("dropping native price for token %s: not a retainable value (%v)", token, estimate.Price)
				continue
			}
			result.Prices[token] = normalized
		case <-deadlineCtx.Done():
			result.Timeout = true
			logger.Warnf("native price collection timed out, got %d of %d prices", len(result.Prices), len(tokens))
			break collect
		}
	}
	return result
}

// normalizeNativePrice converts a raw floating point price into the 256-bit
// fixed-point representation round(p * 10^18), dropping it when it isn't
// finite, is below one smallest unit, or would not fit in 256 bits.
func normalizeNativePrice(p float64) (*uint256.Int, bool) {
	scaled := p * 1e18
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) {
		return nil, false
	}
	if scaled < 1 || scaled >= maxUint256AsFloat {
		return nil, false
	}
	rounded, _ := big.NewFloat(math.Round(scaled)).Int(nil)
	result, overflow := uint256.FromBig(rounded)
	if overflow {
		return nil, false
	}
	return result, true
}

// TradedTokens returns the deduplicated set of tokens traded by orders, in a
// deterministic order (first sell token then buy token, in order of first
// appearance) so that callers get stable output across otherwise-equal
// inputs.
func TradedTokens(orders []Order) []common.Address {
	seen := make(map[common.Address]struct{})
	out := make([]common.Address, 0, len(orders)*2)
	add := func(token common.Address) {
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	for _, o := range orders {
		add(o.SellToken)
		add(o.BuyToken)
	}
	return out
}
