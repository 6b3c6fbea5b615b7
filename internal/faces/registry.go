package faces

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// State is the registry lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateRehydrating
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRehydrating:
		return "rehydrating"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// IndexConfig fixes the remote index parameters for the process lifetime.
// Changing Dims over existing data is caught during rehydration, which
// re-validates every stored row instead of silently overriding.
type IndexConfig struct {
	IndexType int
	Method    int
	Dims      int
}

// Registry coordinates the metadata store and the vector index. The store
// owns ids and payloads; the index is a rebuildable cache repopulated by
// Rehydrate. Enroll and Lookup are only served in the Ready state, and all
// methods are safe for concurrent use.
type Registry struct {
	store MetadataStore
	index VectorIndex
	cfg   IndexConfig
	state atomic.Int32
}

// NewRegistry builds a registry over the given stores. Call Rehydrate
// before serving traffic.
func NewRegistry(store MetadataStore, index VectorIndex, cfg IndexConfig) *Registry {
	return &Registry{store: store, index: index, cfg: cfg}
}

// State reports the current lifecycle state.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// Dims returns the fixed embedding length.
func (r *Registry) Dims() int {
	return r.cfg.Dims
}

func (r *Registry) setState(s State) {
	r.state.Store(int32(s))
}

// Rehydrate replaces the remote index and repopulates it from the metadata
// store. All-or-nothing: any failure leaves the registry Degraded, because
// a partially loaded index hides vectors behind false-negative searches.
// There is no retry loop; recovery from Degraded is another Rehydrate call.
func (r *Registry) Rehydrate(ctx context.Context) error {
	r.setState(StateRehydrating)

	if err := r.index.CreateIndex(ctx, r.cfg.IndexType, r.cfg.Method, r.cfg.Dims); err != nil {
		r.setState(StateDegraded)
		return fmt.Errorf("create index: %w", err)
	}

	loaded := 0
	err := r.store.ForEachVector(ctx, func(id int64, embedding []float32) error {
		if len(embedding) != r.cfg.Dims {
			return fmt.Errorf("%w: stored vector %d has %d dims, index expects %d",
				ErrDimensionMismatch, id, len(embedding), r.cfg.Dims)
		}
		if err := r.index.InsertVector(ctx, id, embedding); err != nil {
			return fmt.Errorf("rehydrate vector %d: %w", id, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		r.setState(StateDegraded)
		return err
	}

	r.setState(StateReady)
	slog.Info("registry rehydrated", "vectors", loaded, "dims", r.cfg.Dims)
	return nil
}

// Enroll stores the embedding durably, attaches payload, and makes the
// vector searchable. The three steps run in strict order and are never
// rolled back: a metadata failure leaves the vector row committed, and an
// index failure leaves vector+payload durable but unsearchable until the
// next Rehydrate. Both partial states are reported, never repaired here.
func (r *Registry) Enroll(ctx context.Context, embedding []float32, payload string) (int64, error) {
	if s := r.State(); s != StateReady {
		return 0, fmt.Errorf("%w: state %s", ErrNotReady, s)
	}
	if len(embedding) != r.cfg.Dims {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), r.cfg.Dims)
	}

	vectorID, err := r.store.InsertVector(ctx, embedding)
	if err != nil {
		return 0, err
	}

	if _, err := r.store.InsertMetadata(ctx, vectorID, payload); err != nil {
		// The vector row stays committed: losing a vector is worse than a
		// dangling one. Lookups for it will report ErrOrphanVector.
		return 0, fmt.Errorf("metadata for vector %d: %w", vectorID, err)
	}

	if err := r.index.InsertVector(ctx, vectorID, embedding); err != nil {
		return 0, fmt.Errorf("index vector %d, unsearchable until next rehydration: %w", vectorID, err)
	}

	return vectorID, nil
}

// Lookup returns the best match for embedding joined with its payload.
func (r *Registry) Lookup(ctx context.Context, embedding []float32) (*Match, error) {
	if s := r.State(); s != StateReady {
		return nil, fmt.Errorf("%w: state %s", ErrNotReady, s)
	}
	if len(embedding) != r.cfg.Dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), r.cfg.Dims)
	}

	cand, err := r.index.Search(ctx, embedding, r.cfg.Dims)
	if err != nil {
		return nil, err
	}
	if cand == nil {
		return nil, ErrNotFound
	}
	return r.join(ctx, *cand)
}

// LookupN returns up to topN matches ranked ascending by distance.
func (r *Registry) LookupN(ctx context.Context, embedding []float32, topN int) ([]Match, error) {
	if s := r.State(); s != StateReady {
		return nil, fmt.Errorf("%w: state %s", ErrNotReady, s)
	}
	if len(embedding) != r.cfg.Dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), r.cfg.Dims)
	}
	if topN <= 0 {
		topN = 1
	}

	cands, err := r.index.SearchN(ctx, embedding, r.cfg.Dims, topN)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, ErrNotFound
	}

	matches := make([]Match, 0, len(cands))
	for _, cand := range cands {
		m, err := r.join(ctx, cand)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, nil
}

// join resolves a candidate's payload from the metadata store.
func (r *Registry) join(ctx context.Context, cand Candidate) (*Match, error) {
	if cand.ID == 0 {
		return nil, fmt.Errorf("%w: candidate without id", ErrCorruptResult)
	}
	payload, ok, err := r.store.MetadataByVectorID(ctx, cand.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: vector %d", ErrOrphanVector, cand.ID)
	}
	return &Match{VectorID: cand.ID, Distance: cand.Distance, Payload: payload}, nil
}

// Remove deletes the index entry for vectorID. The metadata rows stay;
// retention is the caller's decision.
func (r *Registry) Remove(ctx context.Context, vectorID int64) error {
	if s := r.State(); s != StateReady {
		return fmt.Errorf("%w: state %s", ErrNotReady, s)
	}
	return r.index.DeleteVector(ctx, vectorID)
}
