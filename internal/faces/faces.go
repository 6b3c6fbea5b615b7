// Package faces coordinates the two stores behind face enrollment: a
// relational metadata store that owns ids, payloads and the canonical
// vector bytes, and an external similarity-search index that is treated
// as a volatile, rebuildable cache of those vectors.
package faces

import "context"

// MetadataStore is the durable source of truth. It allocates every
// vector id; the index only ever echoes ids back.
type MetadataStore interface {
	// InsertVector persists the embedding and returns a freshly
	// allocated unique id. Ids are monotonic and never reused.
	InsertVector(ctx context.Context, embedding []float32) (int64, error)

	// InsertMetadata persists payload tagged with vectorID and returns
	// the metadata row id. A failure here never removes the already
	// committed vector row.
	InsertMetadata(ctx context.Context, vectorID int64, payload string) (int64, error)

	// MetadataByVectorID is a point lookup. ok is false when no metadata
	// row exists for vectorID; absence is not an error.
	MetadataByVectorID(ctx context.Context, vectorID int64) (payload string, ok bool, err error)

	// ForEachVector streams every stored (id, embedding) pair in id
	// order. Each call rereads current state; used only for rehydration.
	// A non-nil error from fn aborts the scan and is returned as-is.
	ForEachVector(ctx context.Context, fn func(id int64, embedding []float32) error) error
}

// VectorIndex adapts the external similarity-search service.
type VectorIndex interface {
	// CreateIndex (re)initializes the remote index. Calling it again
	// replaces any prior index, discarding every vector held remotely.
	CreateIndex(ctx context.Context, indexType, method, dims int) error

	// InsertVector adds one vector under the given id.
	InsertVector(ctx context.Context, id int64, vector []float32) error

	// Search returns the single best match, or nil when the index holds
	// nothing to match against.
	Search(ctx context.Context, vector []float32, dims int) (*Candidate, error)

	// SearchN returns up to topN matches ranked ascending by distance.
	SearchN(ctx context.Context, vector []float32, dims, topN int) ([]Candidate, error)

	// DeleteVector removes the entry for id from the remote index.
	DeleteVector(ctx context.Context, id int64) error
}

// Candidate is one ranked match as reported by the vector index.
type Candidate struct {
	ID       int64   `json:"id"`
	Distance float32 `json:"distance"`
}

// Match is a lookup result after joining an index candidate with its
// metadata payload.
type Match struct {
	VectorID int64
	Distance float32
	Payload  string
}
