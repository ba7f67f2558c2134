package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/Tristanchrt/local-llm/loader/internal"
	lstore "github.com/Tristanchrt/local-llm/loader/store"
	"github.com/Tristanchrt/local-llm/model"
	"github.com/Tristanchrt/local-llm/store"
	"github.com/Tristanchrt/local-llm/types"

	"golang.org/x/sync/errgroup"
)

// Indexer drives one ingestion run: chunk every document in the source
// dir, skip everything the ledger already knows, embed the rest with
// bounded concurrency and upsert new points in fixed-size batches.
type Indexer struct {
	logger   *slog.Logger
	cfg      *types.Config
	embedder model.EmbedderInterface
	index    store.VectorIndexer
	ledger   *lstore.FileLedger
}

type runStats struct {
	documents     int
	chunks        int
	dedupHits     int
	embedFailures int
	upserted      int
}

func New(cfg *types.Config, embedder model.EmbedderInterface, index store.VectorIndexer, ledger *lstore.FileLedger) *Indexer {
	return &Indexer{
		logger:   slog.Default(),
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		ledger:   ledger,
	}
}

// Run processes the whole source directory once. A single chunk failing to
// embed is logged and skipped; a failed batch upsert aborts the run and
// the ledger is not persisted, so a retry re-attempts the lost chunks.
func (s *Indexer) Run(ctx context.Context) error {
	docs, err := internal.LoadDocuments(s.cfg.SourceDir)
	if err != nil {
		return fmt.Errorf("failed to list source documents: %w", err)
	}
	s.logger.Info("ingestion run started", "documents", len(docs), "source_dir", s.cfg.SourceDir)

	var stats runStats
	batch := make([]types.IndexPoint, 0, s.cfg.BatchSize)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		pending, err := s.collectChunks(doc, &stats)
		if err != nil {
			return err
		}

		vectors := s.embedChunks(ctx, pending)

		for i, chunk := range pending {
			if vectors[i] == nil {
				stats.embedFailures++
				log.Printf("[INGEST] skipping chunk from %s: embedding failed", chunk.Source)
				continue
			}
			// The ledger entry must exist before the batch write so the
			// same text is never embedded twice within one run.
			s.ledger.Record(chunk.Fingerprint, chunk.Source)
			batch = append(batch, types.IndexPoint{
				ID:     chunk.Fingerprint,
				Vector: vectors[i],
				Text:   chunk.Text,
				Source: chunk.Source,
			})

			if len(batch) >= s.cfg.BatchSize {
				if err := s.flush(ctx, batch, &stats); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		stats.documents++
	}

	if err := s.flush(ctx, batch, &stats); err != nil {
		return err
	}

	if err := s.ledger.Persist(); err != nil {
		return err
	}

	log.Printf("[INGEST] done: %d documents, %d chunks, %d dedup hits, %d embed failures, %d points upserted",
		stats.documents, stats.chunks, stats.dedupHits, stats.embedFailures, stats.upserted)
	return nil
}

// collectChunks windows one document and keeps only chunks that are not
// blank, not in the ledger and not already queued this wave.
func (s *Indexer) collectChunks(doc types.Document, stats *runStats) ([]types.Chunk, error) {
	windows, err := internal.SplitWindows(doc.Text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	var pending []types.Chunk
	queued := make(map[string]struct{})
	for text := range windows {
		if strings.TrimSpace(text) == "" {
			continue
		}
		stats.chunks++

		fp := types.Fingerprint(text)
		if s.ledger.Contains(fp) {
			stats.dedupHits++
			continue
		}
		if _, ok := queued[fp]; ok {
			stats.dedupHits++
			continue
		}
		queued[fp] = struct{}{}
		pending = append(pending, types.Chunk{Source: doc.Source, Text: text, Fingerprint: fp})
	}
	return pending, nil
}

// embedChunks fans out embedding calls with a bounded number in flight.
// Results stay aligned with the input so batch order follows document
// order. A nil slot means that chunk could not be embedded.
func (s *Indexer) embedChunks(ctx context.Context, pending []types.Chunk) [][]float32 {
	vectors := make([][]float32, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)
	for i, chunk := range pending {
		g.Go(func() error {
			vectors[i] = s.embedder.Embed(gctx, chunk.Text)
			return nil
		})
	}
	_ = g.Wait()

	return vectors
}

func (s *Indexer) flush(ctx context.Context, batch []types.IndexPoint, stats *runStats) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.index.UpsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("batch upsert failed, aborting run: %w", err)
	}
	stats.upserted += len(batch)
	log.Printf("[INGEST] upserted batch of %d points", len(batch))
	return nil
}
