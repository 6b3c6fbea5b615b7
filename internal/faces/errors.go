package faces

import "errors"

// Every failure the registry returns wraps one of these sentinels, so
// callers can branch with errors.Is instead of string matching.
var (
	// ErrDimensionMismatch is returned for embeddings whose length does
	// not equal the configured dims. Neither store is touched.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound is returned when a search legitimately matches
	// nothing. Distinct from any transport or index failure.
	ErrNotFound = errors.New("no match found")

	// ErrOrphanVector is returned when the index reports a vector that
	// has no metadata row. The write path tolerates this state, so it
	// surfaces at read time.
	ErrOrphanVector = errors.New("vector has no metadata record")

	// ErrCorruptResult is returned when the index hands back a
	// candidate without a usable id. Fatal to the request, not the process.
	ErrCorruptResult = errors.New("malformed result from vector index")

	// ErrNotReady is returned for any operation while the registry is
	// not in the Ready state.
	ErrNotReady = errors.New("registry is not ready")

	// ErrIndexUnreachable marks transport-level failures talking to the
	// vector index.
	ErrIndexUnreachable = errors.New("vector index unreachable")

	// ErrIndexRejected marks remote validation failures, e.g. a
	// dimension the index refuses.
	ErrIndexRejected = errors.New("vector index rejected request")

	// ErrPersistence marks metadata store I/O or constraint failures.
	ErrPersistence = errors.New("metadata store failure")
)
