// Package metrics defines the pluggable sink the auction pipeline reports
// cycle outcomes to, independent of whatever metrics backend the surrounding
// service chooses to wire in.
package metrics

// Sink receives one observation per successful Publishing transition.
type Sink interface {
	// AuctionUpdated reports how many orders made it into the published
	// snapshot (solvable), how many were filtered out for missing a native
	// price (filtered), how many price lookups errored (erroredEstimates),
	// and whether price collection hit its deadline (timeout).
	AuctionUpdated(solvable, filtered, erroredEstimates uint64, timeout bool)
}

// Noop discards every observation. Used by tests and by callers that don't
// care to wire a real metrics backend.
type Noop struct{}

func (Noop) AuctionUpdated(uint64, uint64, uint64, bool) {}
