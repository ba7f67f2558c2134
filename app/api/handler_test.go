package api

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Tristanchrt/local-llm/app/agent"
	"github.com/Tristanchrt/local-llm/types"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

type stubIndex struct {
	candidates []types.Candidate
	err        error
	lastLimit  int
}

func (s *stubIndex) EnsureCollection(ctx context.Context, dim int) error { return nil }

func (s *stubIndex) UpsertBatch(ctx context.Context, points []types.IndexPoint) error { return nil }

func (s *stubIndex) Search(ctx context.Context, vector []float32, limit int, withVectors bool) ([]types.Candidate, error) {
	s.lastLimit = limit
	return s.candidates, s.err
}

type stubEmbedder struct {
	vector []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) []float32 { return s.vector }

type stubGenerator struct {
	fragments []string
	failAfter int // fail after this many fragments; <0 disables
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return strings.Join(s.fragments, ""), nil
}

func (s *stubGenerator) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	for i, frag := range s.fragments {
		if s.failAfter >= 0 && i == s.failAfter {
			return fmt.Errorf("stream interrupted")
		}
		if err := emit(frag); err != nil {
			return err
		}
	}
	return nil
}

func newTestApp(index *stubIndex, embedder *stubEmbedder, gen *stubGenerator) *fiber.App {
	limiter := semaphore.NewWeighted(5)
	condenser := agent.NewCondenser(gen, limiter)
	handler := NewQueryHandler(index, embedder, gen, condenser, limiter, 20, 5)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/query", handler.HandleQuery)
	return app
}

func TestHandleQuery_MissingParam(t *testing.T) {
	app := newTestApp(&stubIndex{}, &stubEmbedder{}, &stubGenerator{failAfter: -1})

	resp, err := app.Test(httptest.NewRequest("GET", "/query", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Missing query parameter 'q'"}`, string(body))
}

func TestHandleQuery_EmbeddingFailureShortCircuits(t *testing.T) {
	app := newTestApp(&stubIndex{}, &stubEmbedder{vector: nil}, &stubGenerator{failAfter: -1})

	resp, err := app.Test(httptest.NewRequest("GET", "/query?q=bonjour", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(body))
}

func TestHandleQuery_SearchFailureIsGeneric500(t *testing.T) {
	index := &stubIndex{err: fmt.Errorf("connection refused to 10.0.0.3")}
	app := newTestApp(index, &stubEmbedder{vector: []float32{1, 0}}, &stubGenerator{failAfter: -1})

	resp, err := app.Test(httptest.NewRequest("GET", "/query?q=bonjour", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	// Internal detail must not leak.
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(body))
}

func TestHandleQuery_StreamsAnswerAsSSE(t *testing.T) {
	index := &stubIndex{candidates: []types.Candidate{
		{Text: "le chat dort", Source: "animaux.txt", Vector: []float32{1, 0}},
	}}
	gen := &stubGenerator{fragments: []string{"Le ", "chat ", "dort."}, failAfter: -1}
	app := newTestApp(index, &stubEmbedder{vector: []float32{1, 0}}, gen)

	resp, err := app.Test(httptest.NewRequest("GET", "/query?q=que+fait+le+chat", nil), -1)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.Equal(t, 20, index.lastLimit, "retrieval uses the over-fetch pool size")
	assert.Equal(t,
		"data: Le \n\ndata: chat \n\ndata: dort.\n\nevent: end\ndata: \n\n",
		string(body))
}

func TestHandleQuery_MidStreamFailureEmitsErrorThenEnd(t *testing.T) {
	index := &stubIndex{candidates: []types.Candidate{
		{Text: "le chat dort", Source: "animaux.txt", Vector: []float32{1, 0}},
	}}
	gen := &stubGenerator{fragments: []string{"Le ", "chat "}, failAfter: 1}
	app := newTestApp(index, &stubEmbedder{vector: []float32{1, 0}}, gen)

	resp, err := app.Test(httptest.NewRequest("GET", "/query?q=que+fait+le+chat", nil), -1)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	// Already-sent fragments stay, then an error marker, then the end marker.
	assert.Equal(t,
		"data: Le \n\nevent: error\ndata: \n\nevent: end\ndata: \n\n",
		string(body))
}

func TestHandleHealthy(t *testing.T) {
	app := fiber.New()
	app.Get("/check/healthy", NewCheckHandler().HandleHealthy)

	resp, err := app.Test(httptest.NewRequest("GET", "/check/healthy", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result":"ok"}`, string(body))
}

func TestHandleUpload_RejectsUnsupportedType(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/documents", NewFileHandler(t.TempDir()).HandleUpload)

	req := httptest.NewRequest("POST", "/api/v1/documents", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
