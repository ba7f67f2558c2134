package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Generator drives the chat-completion model. Generate blocks until the
// full answer is available; Stream forwards fragments through emit as they
// arrive and stops on the model's done marker or the first emit error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, emit func(fragment string) error) error
}

type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type OllamaGenerator struct {
	apiURL string
	model  string
	system string
	client *http.Client
}

func NewOllamaGenerator(apiURL, model string) *OllamaGenerator {
	return &OllamaGenerator{
		apiURL: apiURL,
		model:  model,
		system: "Tu es un assistant qui répond uniquement à partir des extraits fournis. Réponds de façon claire et concise, sans rien inventer.",
		client: &http.Client{},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var b strings.Builder
	// Ollama answers non-stream requests with a single JSON object, but
	// some proxies return NDJSON anyway. The stream reader handles both.
	if err := g.do(ctx, prompt, false, func(fragment string) error {
		b.WriteString(fragment)
		return nil
	}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (g *OllamaGenerator) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	return g.do(ctx, prompt, true, emit)
}

func (g *OllamaGenerator) do(ctx context.Context, prompt string, stream bool, emit func(string) error) error {
	reqBody, err := json.Marshal(GenerateRequest{
		Model:  g.model,
		System: g.system,
		Prompt: prompt,
		Stream: stream,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	decoder := json.NewDecoder(resp.Body)
	for {
		var genResp GenerateResponse
		if err := decoder.Decode(&genResp); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		if genResp.Response != "" {
			if err := emit(genResp.Response); err != nil {
				return err
			}
		}
		if genResp.Done {
			break
		}
	}
	return nil
}
