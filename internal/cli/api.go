package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/facevault/facevault/internal/embed"
	"github.com/facevault/facevault/internal/events"
	"github.com/facevault/facevault/internal/faces"
)

// personRegistry is the slice of faces.Registry the handlers need.
type personRegistry interface {
	Enroll(ctx context.Context, embedding []float32, payload string) (int64, error)
	Lookup(ctx context.Context, embedding []float32) (*faces.Match, error)
	LookupN(ctx context.Context, embedding []float32, topN int) ([]faces.Match, error)
	Remove(ctx context.Context, vectorID int64) error
	State() faces.State
}

type api struct {
	registry personRegistry
	embedder embed.Embedder
	events   events.Publisher
}

func newAPI(registry personRegistry, embedder embed.Embedder, publisher events.Publisher) *api {
	return &api{registry: registry, embedder: embedder, events: publisher}
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /person", a.handleCreatePerson)
	mux.HandleFunc("POST /person/find", a.handleFindPerson)
	mux.HandleFunc("POST /vector", a.handleCreateVector)
	mux.HandleFunc("POST /vector/find", a.handleFindVector)
	mux.HandleFunc("DELETE /person/vector", a.handleDeleteVector)
	mux.HandleFunc("GET /healthz", a.handleHealth)
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

type matchResponse struct {
	VectorID int64           `json:"vector_id"`
	Distance float32         `json:"distance"`
	Data     json.RawMessage `json:"data"`
}

func toMatchResponse(m faces.Match) matchResponse {
	return matchResponse{
		VectorID: m.VectorID,
		Distance: m.Distance,
		Data:     json.RawMessage(m.Payload),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the registry's error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, faces.ErrDimensionMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, faces.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, faces.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, faces.ErrIndexUnreachable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *api) publish(ctx context.Context, ev events.Event) {
	if err := a.events.Publish(ctx, ev); err != nil {
		slog.Warn("event publish failed", "type", ev.Type, "vector_id", ev.VectorID, "error", err)
	}
}

// embedImage decodes the request's base64 image and runs it through the
// external embedder.
func (a *api) embedImage(ctx context.Context, imageBase64 string) ([]float32, int, error) {
	image, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid base64 image")
	}
	embedding, err := a.embedder.EmbedImage(ctx, image)
	if err != nil {
		return nil, http.StatusBadGateway, err
	}
	return embedding, 0, nil
}

func (a *api) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	if a.embedder == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no embedder configured"})
		return
	}

	var req struct {
		Data        json.RawMessage `json:"data"`
		ImageBase64 string          `json:"imageBase64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.Data) == 0 || req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing data or imageBase64"})
		return
	}

	embedding, status, err := a.embedImage(r.Context(), req.ImageBase64)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	vectorID, err := a.registry.Enroll(r.Context(), embedding, string(req.Data))
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish(r.Context(), events.NewEvent(events.TypeEnrolled, vectorID, 0))

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "person created successfully",
		"vector_id": vectorID,
	})
}

func (a *api) handleFindPerson(w http.ResponseWriter, r *http.Request) {
	if a.embedder == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no embedder configured"})
		return
	}

	var req struct {
		ImageBase64 string `json:"imageBase64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing imageBase64"})
		return
	}

	embedding, status, err := a.embedImage(r.Context(), req.ImageBase64)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	match, err := a.registry.Lookup(r.Context(), embedding)
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish(r.Context(), events.NewEvent(events.TypeMatched, match.VectorID, match.Distance))

	writeJSON(w, http.StatusOK, toMatchResponse(*match))
}

func (a *api) handleCreateVector(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Embedding []float32       `json:"embedding"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.Embedding) == 0 || len(req.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing embedding or data"})
		return
	}

	vectorID, err := a.registry.Enroll(r.Context(), req.Embedding, string(req.Data))
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish(r.Context(), events.NewEvent(events.TypeEnrolled, vectorID, 0))

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "vector created successfully",
		"vector_id": vectorID,
	})
}

func (a *api) handleFindVector(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Embedding []float32 `json:"embedding"`
		TopN      int       `json:"top_n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.Embedding) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing embedding"})
		return
	}

	if req.TopN > 1 {
		matches, err := a.registry.LookupN(r.Context(), req.Embedding, req.TopN)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]matchResponse, len(matches))
		for i, m := range matches {
			out[i] = toMatchResponse(m)
		}
		writeJSON(w, http.StatusOK, map[string]any{"matches": out})
		return
	}

	match, err := a.registry.Lookup(r.Context(), req.Embedding)
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish(r.Context(), events.NewEvent(events.TypeMatched, match.VectorID, match.Distance))
	writeJSON(w, http.StatusOK, toMatchResponse(*match))
}

func (a *api) handleDeleteVector(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing or invalid id"})
		return
	}

	if err := a.registry.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	a.publish(r.Context(), events.NewEvent(events.TypeRemoved, id, 0))

	writeJSON(w, http.StatusOK, map[string]any{"message": "vector deleted"})
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := a.registry.State()
	status := http.StatusOK
	if state != faces.StateReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"state": state.String()})
}
