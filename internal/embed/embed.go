// Package embed produces fixed-length face embeddings through an external
// inference service. Detection, cropping and the model itself live behind
// this boundary; the rest of the system only ever sees the vector.
package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Embedder turns a face image into an embedding vector.
type Embedder interface {
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// HTTPEmbedder calls a face-embedding sidecar over HTTP. The sidecar
// answers POST {base}/embeddings with either {"embedding": [...]} or
// {"error": "..."} (e.g. when no face is detected).
type HTTPEmbedder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEmbedder creates an embedder client for the service at baseURL.
func NewHTTPEmbedder(baseURL string) *HTTPEmbedder {
	return &HTTPEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// EmbedImage submits the raw image bytes and returns the embedding.
func (e *HTTPEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	body := map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString(image),
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute embedding request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var embResp struct {
		Embedding []float32 `json:"embedding"`
		Error     string    `json:"error"`
	}
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if embResp.Error != "" {
		return nil, fmt.Errorf("embedding service: %s", embResp.Error)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return embResp.Embedding, nil
}
