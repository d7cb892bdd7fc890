// Package priceoracle adapts an HTTP price feed to auction.NativePriceEstimator.
package priceoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/enielson/solvable-orders-cache/internal/auction"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Oracle fans out one HTTP request per token to a price feed, each request
// tagged with the token's index so the caller can match estimates back to
// the token that was asked about even though they arrive out of order.
type Oracle struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int
}

// Config tunes the Oracle.
type Config struct {
	HTTPClient *http.Client
	// Concurrency bounds in-flight HTTP requests. Zero means 8.
	Concurrency int
}

// New builds an Oracle that queries baseURL + "/price/<token>" for a native
// price. baseURL is expected to already include scheme and host.
func New(baseURL string, cfg Config) *Oracle {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Oracle{baseURL: baseURL, httpClient: client, concurrency: concurrency}
}

type priceResponse struct {
	Price float64 `json:"price"`
}

// EstimateNativePrices implements auction.NativePriceEstimator. The returned
// channel is closed once every token has produced a result or ctx is done,
// whichever happens first; the caller is expected to stop reading once it
// sees the channel close or its own deadline expires.
func (o *Oracle) EstimateNativePrices(ctx context.Context, tokens []common.Address) <-chan auction.PriceEstimate {
	out := make(chan auction.PriceEstimate, len(tokens))
	if len(tokens) == 0 {
		close(out)
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, token := range tokens {
		i, token := i, token
		g.Go(func() error {
			price, err := o.fetchOne(gctx, token)
			select {
			case out <- auction.PriceEstimate{Index: i, Price: price, Err: err}:
			case <-ctx.Done():
			}
			return nil // per-token errors travel in the estimate, not the group
		})
	}

	go func() {
		g.Wait()
		close(out)
	}()

	return out
}

func (o *Oracle) fetchOne(ctx context.Context, token common.Address) (float64, error) {
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return 0, fmt.Errorf("parsing base url: %w", err)
	}
	u.Path = fmt.Sprintf("%s/price/%s", u.Path, token.Hex())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("building price request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("requesting price for %s: %w", token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned status %d for %s", resp.StatusCode, token)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding price response for %s: %w", token, err)
	}
	return parsed.Price, nil
}
