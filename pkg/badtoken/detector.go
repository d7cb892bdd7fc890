// Package badtoken adapts an upstream token-support classifier with a
// process-local TTL cache, so a token already classified this process
// doesn't cost a round trip on every refresh cycle.
package badtoken

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/ethereum/go-ethereum/common"
)

// Classifier is the upstream source of truth for whether a token is safe to
// trade. Implementations are typically a simulation-based quality checker
// or a static denylist service.
type Classifier interface {
	IsSupported(ctx context.Context, token common.Address) (bool, error)
}

// Detector is an auction.BadTokenDetector backed by Classifier with a
// ristretto cache in front of it, keyed by token address.
type Detector struct {
	upstream Classifier
	cache    *ristretto.Cache[common.Address, bool]
	ttl      time.Duration
}

// Config tunes the cache.
type Config struct {
	// NumCounters should be roughly 10x the expected number of distinct
	// tokens tracked; see the ristretto sizing guidance.
	NumCounters int64
	MaxCost     int64
	TTL         time.Duration
}

func DefaultConfig() Config {
	return Config{
		NumCounters: 100_000,
		MaxCost:     10_000,
		TTL:         10 * time.Minute,
	}
}

// New builds a Detector. It returns an error only if the underlying cache
// fails to construct, which ristretto documents as happening solely on
// invalid Config values.
func New(upstream Classifier, cfg Config) (*Detector, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[common.Address, bool]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bad-token cache: %w", err)
	}
	return &Detector{upstream: upstream, cache: cache, ttl: cfg.TTL}, nil
}

// Detect implements auction.BadTokenDetector.
func (d *Detector) Detect(ctx context.Context, token common.Address) (bool, error) {
	if supported, ok := d.cache.Get(token); ok {
		return supported, nil
	}

	supported, err := d.upstream.IsSupported(ctx, token)
	if err != nil {
		return false, fmt.Errorf("classifying token %s: %w", token, err)
	}

	d.cache.SetWithTTL(token, supported, 1, d.ttl)
	return supported, nil
}

// Close releases the cache's background goroutines.
func (d *Detector) Close() {
	d.cache.Close()
}
