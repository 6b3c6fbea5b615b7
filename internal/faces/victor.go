package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// VictorClient implements VectorIndex over Victor's HTTP/JSON protocol.
// The remote index holds whatever was inserted since the last CreateIndex
// call; nothing survives a restart on either side, which is why the
// registry rebuilds it from the metadata store at startup.
type VictorClient struct {
	baseURL string
	client  *http.Client
}

// NewVictorClient creates a client for the index service at baseURL.
func NewVictorClient(baseURL string) *VictorClient {
	return &VictorClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateIndex (re)initializes the remote index with the given type, method
// and dimensionality, discarding any prior contents.
func (c *VictorClient) CreateIndex(ctx context.Context, indexType, method, dims int) error {
	_, err := c.do(ctx, http.MethodPost, "/", map[string]any{
		"index_type": indexType,
		"method":     method,
		"dims":       dims,
	})
	return err
}

// InsertVector adds one vector under id.
func (c *VictorClient) InsertVector(ctx context.Context, id int64, vector []float32) error {
	_, err := c.do(ctx, http.MethodPost, "/index/vector", map[string]any{
		"id":     id,
		"vector": vector,
	})
	return err
}

// Search returns the best match for vector, or nil when the index has
// nothing to report.
func (c *VictorClient) Search(ctx context.Context, vector []float32, dims int) (*Candidate, error) {
	raw, err := c.do(ctx, http.MethodPost, "/search", map[string]any{
		"vector": vector,
		"dims":   dims,
	})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var resp struct {
		Result *Candidate `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrIndexRejected, err)
	}
	return resp.Result, nil
}

// SearchN returns up to topN matches ranked ascending by distance. The
// order of equally distant candidates is whatever the index returned.
func (c *VictorClient) SearchN(ctx context.Context, vector []float32, dims, topN int) ([]Candidate, error) {
	raw, err := c.do(ctx, http.MethodPost, "/search_n", map[string]any{
		"vector": vector,
		"dims":   dims,
		"top_n":  topN,
	})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var resp struct {
		Result []Candidate `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode search_n response: %v", ErrIndexRejected, err)
	}
	return resp.Result, nil
}

// DeleteVector removes the entry for id from the remote index.
func (c *VictorClient) DeleteVector(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/index/vector?id="+strconv.FormatInt(id, 10), nil)
	return err
}

// DestroyIndex drops the remote index entirely.
func (c *VictorClient) DestroyIndex(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/index", nil)
	return err
}

// do sends one request and applies the protocol's error convention: a
// transport failure is ErrIndexUnreachable; a non-2xx status or a body
// carrying an "error" key is ErrIndexRejected.
func (c *VictorClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrIndexUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrIndexRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if msg := errorField(raw); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrIndexRejected, msg)
	}
	return raw, nil
}

func errorField(raw []byte) string {
	var probe struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &probe) == nil {
		return probe.Error
	}
	return ""
}
