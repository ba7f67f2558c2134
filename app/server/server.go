package server

import (
	"context"
	"log"
	"log/slog"

	"github.com/Tristanchrt/local-llm/app/agent"
	"github.com/Tristanchrt/local-llm/app/api"
	"github.com/Tristanchrt/local-llm/model"
	"github.com/Tristanchrt/local-llm/store"
	"github.com/Tristanchrt/local-llm/types"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/semaphore"
)

type Server struct {
	cfg    *types.Config
	logger *slog.Logger
	app    *fiber.App
	pool   *store.PostgresStore
}

func NewServer(cfg *types.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Run() {
	ctx := context.Background()

	pool, err := store.NewPostgresStore(ctx, s.cfg.PostgresDSN(), s.cfg.Collection)
	if err != nil {
		log.Fatal("error to connect to Postgres database: ", err)
	}
	s.pool = pool

	if err := pool.EnsureCollection(ctx, s.cfg.EmbeddingDim); err != nil {
		log.Fatal("error to ensure collection: ", err)
	}

	var (
		embedder  = model.NewOllamaEmbedder(s.cfg.EmbeddingURL, s.cfg.EmbeddingModel, s.cfg.EmbeddingDim)
		generator = model.NewOllamaGenerator(s.cfg.LLMURL, s.cfg.LLMModel)
		// One limiter for every generation call in the process, condense
		// summaries and answer streams included.
		limiter   = semaphore.NewWeighted(int64(s.cfg.LLMConcurrency))
		condenser = agent.NewCondenser(generator, limiter)

		app          = fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
		queryHandler = api.NewQueryHandler(pool, embedder, generator, condenser, limiter, s.cfg.OverFetch, s.cfg.TopK)
		checkHandler = api.NewCheckHandler()
		fileHandler  = api.NewFileHandler(s.cfg.SourceDir)

		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)
	s.app = app

	app.Get("/query", queryHandler.HandleQuery)
	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/documents", fileHandler.HandleUpload)

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("error to shutdown server", "error", err.Error())
		}
	}
	if s.pool != nil {
		_ = s.pool.Close()
	}
	s.logger.Info("server stopped")
}
