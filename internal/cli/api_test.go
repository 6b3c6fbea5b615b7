package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/facevault/facevault/internal/events"
	"github.com/facevault/facevault/internal/faces"
)

// fakeRegistry satisfies personRegistry with canned behavior.
type fakeRegistry struct {
	state     faces.State
	dims      int
	enrollID  int64
	enrollErr error
	match     *faces.Match
	matches   []faces.Match
	lookupErr error
	removeErr error
}

func (f *fakeRegistry) Enroll(ctx context.Context, embedding []float32, payload string) (int64, error) {
	if f.enrollErr != nil {
		return 0, f.enrollErr
	}
	if len(embedding) != f.dims {
		return 0, faces.ErrDimensionMismatch
	}
	return f.enrollID, nil
}

func (f *fakeRegistry) Lookup(ctx context.Context, embedding []float32) (*faces.Match, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if len(embedding) != f.dims {
		return nil, faces.ErrDimensionMismatch
	}
	return f.match, nil
}

func (f *fakeRegistry) LookupN(ctx context.Context, embedding []float32, topN int) ([]faces.Match, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.matches, nil
}

func (f *fakeRegistry) Remove(ctx context.Context, vectorID int64) error {
	return f.removeErr
}

func (f *fakeRegistry) State() faces.State {
	return f.state
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestAPI_CreateVector(t *testing.T) {
	reg := &fakeRegistry{state: faces.StateReady, dims: 2, enrollID: 5}
	pub := &recordingPublisher{}
	handler := newAPI(reg, nil, pub).routes()

	rec := doRequest(t, handler, http.MethodPost, "/vector",
		`{"embedding":[1,0],"data":{"name":"a"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["vector_id"] != float64(5) {
		t.Fatalf("unexpected vector_id: %v", body["vector_id"])
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeEnrolled {
		t.Fatalf("expected enrolled event, got %+v", pub.events)
	}
}

func TestAPI_CreateVectorDimensionMismatch(t *testing.T) {
	reg := &fakeRegistry{state: faces.StateReady, dims: 4}
	handler := newAPI(reg, nil, events.NopPublisher{}).routes()

	rec := doRequest(t, handler, http.MethodPost, "/vector",
		`{"embedding":[1,0],"data":{"name":"a"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAPI_CreateVectorMissingFields(t *testing.T) {
	handler := newAPI(&fakeRegistry{state: faces.StateReady, dims: 2}, nil, events.NopPublisher{}).routes()

	for _, body := range []string{
		`{"embedding":[1,0]}`,
		`{"data":{"name":"a"}}`,
		`not json`,
	} {
		rec := doRequest(t, handler, http.MethodPost, "/vector", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestAPI_FindVector(t *testing.T) {
	reg := &fakeRegistry{
		state: faces.StateReady,
		dims:  2,
		match: &faces.Match{VectorID: 1, Distance: 0.1, Payload: `{"name":"a"}`},
	}
	pub := &recordingPublisher{}
	handler := newAPI(reg, nil, pub).routes()

	rec := doRequest(t, handler, http.MethodPost, "/vector/find", `{"embedding":[1,0]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["vector_id"] != float64(1) {
		t.Fatalf("unexpected vector_id: %v", body["vector_id"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok || data["name"] != "a" {
		t.Fatalf("unexpected data: %v", body["data"])
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeMatched {
		t.Fatalf("expected matched event, got %+v", pub.events)
	}
}

func TestAPI_FindVectorTopN(t *testing.T) {
	reg := &fakeRegistry{
		state: faces.StateReady,
		dims:  2,
		matches: []faces.Match{
			{VectorID: 1, Distance: 0.1, Payload: `{"name":"a"}`},
			{VectorID: 2, Distance: 0.4, Payload: `{"name":"b"}`},
		},
	}
	handler := newAPI(reg, nil, events.NopPublisher{}).routes()

	rec := doRequest(t, handler, http.MethodPost, "/vector/find", `{"embedding":[1,0],"top_n":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	matches, ok := body["matches"].([]any)
	if !ok || len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %v", body["matches"])
	}
}

func TestAPI_FindVectorErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{faces.ErrNotFound, http.StatusNotFound},
		{faces.ErrNotReady, http.StatusServiceUnavailable},
		{faces.ErrIndexUnreachable, http.StatusBadGateway},
		{faces.ErrOrphanVector, http.StatusInternalServerError},
		{faces.ErrCorruptResult, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		reg := &fakeRegistry{state: faces.StateReady, dims: 2, lookupErr: tc.err}
		handler := newAPI(reg, nil, events.NopPublisher{}).routes()
		rec := doRequest(t, handler, http.MethodPost, "/vector/find", `{"embedding":[1,0]}`)
		if rec.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestAPI_CreatePersonWithoutEmbedder(t *testing.T) {
	handler := newAPI(&fakeRegistry{state: faces.StateReady, dims: 2}, nil, events.NopPublisher{}).routes()

	rec := doRequest(t, handler, http.MethodPost, "/person",
		`{"data":{"name":"a"},"imageBase64":"aGk="}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAPI_CreatePerson(t *testing.T) {
	reg := &fakeRegistry{state: faces.StateReady, dims: 3, enrollID: 1}
	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	handler := newAPI(reg, emb, events.NopPublisher{}).routes()

	image := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	rec := doRequest(t, handler, http.MethodPost, "/person",
		`{"data":{"name":"a"},"imageBase64":"`+image+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_CreatePersonInvalidBase64(t *testing.T) {
	reg := &fakeRegistry{state: faces.StateReady, dims: 3}
	handler := newAPI(reg, &fakeEmbedder{vector: []float32{1, 0, 0}}, events.NopPublisher{}).routes()

	rec := doRequest(t, handler, http.MethodPost, "/person",
		`{"data":{"name":"a"},"imageBase64":"!!!not-base64!!!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAPI_FindPersonEmbedderFailure(t *testing.T) {
	reg := &fakeRegistry{state: faces.StateReady, dims: 3}
	handler := newAPI(reg, &fakeEmbedder{err: errors.New("no face detected")}, events.NopPublisher{}).routes()

	rec := doRequest(t, handler, http.MethodPost, "/person/find", `{"imageBase64":"aGk="}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_FindPerson(t *testing.T) {
	reg := &fakeRegistry{
		state: faces.StateReady,
		dims:  3,
		match: &faces.Match{VectorID: 2, Distance: 0.2, Payload: `{"name":"b"}`},
	}
	handler := newAPI(reg, &fakeEmbedder{vector: []float32{0, 1, 0}}, events.NopPublisher{}).routes()

	rec := doRequest(t, handler, http.MethodPost, "/person/find", `{"imageBase64":"aGk="}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["vector_id"] != float64(2) {
		t.Fatalf("unexpected vector_id: %v", body["vector_id"])
	}
}

func TestAPI_DeleteVector(t *testing.T) {
	pub := &recordingPublisher{}
	handler := newAPI(&fakeRegistry{state: faces.StateReady, dims: 2}, nil, pub).routes()

	rec := doRequest(t, handler, http.MethodDelete, "/person/vector?id=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeRemoved {
		t.Fatalf("expected removed event, got %+v", pub.events)
	}

	rec = doRequest(t, handler, http.MethodDelete, "/person/vector?id=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestAPI_Health(t *testing.T) {
	handler := newAPI(&fakeRegistry{state: faces.StateReady}, nil, events.NopPublisher{}).routes()
	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", rec.Code)
	}

	handler = newAPI(&fakeRegistry{state: faces.StateDegraded}, nil, events.NopPublisher{}).routes()
	rec = doRequest(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when degraded, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["state"] != "degraded" {
		t.Fatalf("unexpected state: %v", body["state"])
	}
}
