package auction

import "errors"

// The error taxonomy a refresh cycle can surface. PerQueryFailure and
// Timeout are deliberately absent: they never abort a cycle, they're logged
// and reported to the metrics sink at the call site instead.
var (
	// ErrUpstreamUnavailable marks a cycle-fatal failure of the order store,
	// the bad-token oracle, or a whole balance batch. The previous snapshot
	// is retained.
	ErrUpstreamUnavailable = errors.New("upstream source unavailable")

	// ErrBlockUnknown marks that the block stream had no height to offer.
	ErrBlockUnknown = errors.New("current block unknown")

	// ErrArithmeticOverflow marks an order whose remaining obligation could
	// not be computed without overflowing 256 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow computing max transfer out")
)
