package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Tristanchrt/local-llm/model"
	"github.com/Tristanchrt/local-llm/types"

	"golang.org/x/sync/semaphore"
)

// CondenseThreshold is the passage count above which verbatim concatenation
// is replaced by one summarization call.
const CondenseThreshold = 5

// Condenser collapses retrieved passages into a single context block.
// Summarization calls share the process-wide generation limiter, so many
// concurrent condensations cannot flood the model backend.
type Condenser struct {
	generator model.Generator
	limiter   *semaphore.Weighted
	threshold int
}

func NewCondenser(generator model.Generator, limiter *semaphore.Weighted) *Condenser {
	return &Condenser{
		generator: generator,
		limiter:   limiter,
		threshold: CondenseThreshold,
	}
}

func (c *Condenser) Condense(ctx context.Context, passages []types.Candidate) (string, error) {
	if len(passages) == 0 {
		return "", nil
	}
	if len(passages) <= c.threshold {
		return concat(passages), nil
	}

	log.Printf("[CONDENSE] %d passages above threshold %d, summarizing", len(passages), c.threshold)
	if err := c.limiter.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.limiter.Release(1)

	prompt := fmt.Sprintf(`Résume les extraits suivants de façon concise, en conservant les faits importants et en citant les sources.

%s

Résumé :`, concat(passages))

	summary, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("condense summarization failed: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func concat(passages []types.Candidate) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("Source: %s\n%s", p.Source, p.Text)
	}
	return strings.Join(parts, "\n\n")
}
