package domain

import "errors"

// Sentinel errors shared across the matcher and the monitor.
// Fetch-layer errors (transient vs permanent) live in adapters/fetch.
var (
	// ErrBadPairConfig marks a malformed or unsupported pair definition.
	ErrBadPairConfig = errors.New("bad pair config")

	// ErrUnresolved means the pair has no usable token mapping.
	ErrUnresolved = errors.New("pair unresolved")

	// ErrOutcomeCountMismatch means the two venues disagree on how many
	// outcomes the market has.
	ErrOutcomeCountMismatch = errors.New("outcome count mismatch between venues")

	// ErrNoUniqueMatch means at least one outcome had no match above the
	// similarity threshold, or the best match was ambiguous.
	ErrNoUniqueMatch = errors.New("no unique outcome match")

	// ErrMissingSnapshot means an outcome token produced no order book this cycle.
	ErrMissingSnapshot = errors.New("missing order book snapshot")

	// ErrStaleSnapshot means a snapshot is older than one poll interval.
	ErrStaleSnapshot = errors.New("stale order book snapshot")

	// ErrNoAsk means a book has no ask side to price a leg against.
	ErrNoAsk = errors.New("no ask liquidity")
)
