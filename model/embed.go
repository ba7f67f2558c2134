package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// EmbedderInterface turns text into a fixed-length vector. A nil result
// means the text could not be embedded; callers decide whether that skips
// the unit of work (ingestion) or fails the request (query path).
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) []float32
}

// OllamaEmbedder calls the Ollama embeddings endpoint and enforces the
// configured dimensionality. Any failure is logged and normalized to nil,
// a wrong-size vector must never reach the index.
type OllamaEmbedder struct {
	apiURL string
	model  string
	dim    int
	client *http.Client
}

type OllamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type OllamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewOllamaEmbedder(apiURL, model string, dim int) *OllamaEmbedder {
	log.Printf("[EMBEDDER] using Ollama embeddings (%s, dim=%d)", model, dim)
	return &OllamaEmbedder{
		apiURL: apiURL,
		model:  model,
		dim:    dim,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) []float32 {
	vec, err := e.embed(ctx, text)
	if err != nil {
		log.Printf("[EMBEDDER] embed failed: %v", err)
		return nil
	}
	if len(vec) != e.dim {
		log.Printf("[EMBEDDER] dimensionality mismatch: got %d, want %d", len(vec), e.dim)
		return nil
	}
	return vec
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(OllamaEmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var ollamaResp OllamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	embedding := make([]float32, len(ollamaResp.Embedding))
	for i, v := range ollamaResp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}
