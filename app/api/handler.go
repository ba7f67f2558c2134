package api

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Tristanchrt/local-llm/app/agent"
	"github.com/Tristanchrt/local-llm/model"
	"github.com/Tristanchrt/local-llm/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/semaphore"
)

// QueryHandler runs the query pipeline: embed the question, search the
// index with over-fetch, rerank by exact cosine, condense the winners into
// a context block and stream the generated answer back as SSE frames.
type QueryHandler struct {
	index     store.VectorIndexer
	embedder  model.EmbedderInterface
	generator model.Generator
	condenser *agent.Condenser
	limiter   *semaphore.Weighted
	overFetch int
	topK      int
}

func NewQueryHandler(index store.VectorIndexer, embedder model.EmbedderInterface, generator model.Generator, condenser *agent.Condenser, limiter *semaphore.Weighted, overFetch, topK int) *QueryHandler {
	return &QueryHandler{
		index:     index,
		embedder:  embedder,
		generator: generator,
		condenser: condenser,
		limiter:   limiter,
		overFetch: overFetch,
		topK:      topK,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	question := strings.TrimSpace(c.Query("q"))
	if question == "" {
		return ErrMissingQuery()
	}

	reqID := uuid.New()
	ctx := c.UserContext()
	log.Printf("[QUERY] %s: %q", reqID, question)

	questionVec := h.embedder.Embed(ctx, question)
	if questionVec == nil {
		// An unembeddable question cannot be answered, short-circuit.
		return ErrInternal()
	}

	candidates, err := h.index.Search(ctx, questionVec, h.overFetch, true)
	if err != nil {
		log.Printf("[QUERY] %s: search failed: %v", reqID, err)
		return ErrInternal()
	}

	top := agent.Rerank(questionVec, candidates, h.topK)
	log.Printf("[QUERY] %s: %d candidates, %d after rerank", reqID, len(candidates), len(top))

	contextBlock, err := h.condenser.Condense(ctx, top)
	if err != nil {
		log.Printf("[QUERY] %s: condense failed: %v", reqID, err)
		return ErrInternal()
	}

	prompt := agent.BuildPrompt(contextBlock, question)
	if tokens, err := agent.CountTokens(prompt); err == nil {
		log.Printf("[QUERY] %s: prompt is %d tokens", reqID, tokens)
	}

	if err := h.limiter.Acquire(ctx, 1); err != nil {
		return ErrInternal()
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.limiter.Release(1)
		h.streamAnswer(reqID, prompt, w)
	}))
	return nil
}

// streamAnswer forwards generation fragments as they arrive. A failed
// flush means the client is gone; the returned error aborts the upstream
// read, which is all the cancellation the backend needs. A mid-stream
// generation failure is surfaced as an error event before the end marker,
// already-sent fragments are not retracted.
func (h *QueryHandler) streamAnswer(reqID uuid.UUID, prompt string, w *bufio.Writer) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamErr := h.generator.Stream(ctx, prompt, func(fragment string) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", fragment); err != nil {
			return err
		}
		return w.Flush()
	})
	if streamErr != nil {
		log.Printf("[STREAM] %s: generation stream failed: %v", reqID, streamErr)
		fmt.Fprint(w, "event: error\ndata: \n\n")
	}

	fmt.Fprint(w, "event: end\ndata: \n\n")
	if err := w.Flush(); err != nil {
		log.Printf("[STREAM] %s: client disconnected before end marker", reqID)
	}
}
