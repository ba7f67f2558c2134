package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tristanchrt/local-llm/loader/service"
	lstore "github.com/Tristanchrt/local-llm/loader/store"
	"github.com/Tristanchrt/local-llm/model"
	"github.com/Tristanchrt/local-llm/store"
	"github.com/Tristanchrt/local-llm/types"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	cfg, err := types.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := store.NewPostgresStore(ctx, cfg.PostgresDSN(), cfg.Collection)
	if err != nil {
		log.Fatal("error to connect to Postgres database: ", err)
	}
	defer pool.Close()

	if err := pool.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
		log.Fatal("error to ensure collection: ", err)
	}

	ledger, err := lstore.OpenLedger(cfg.LedgerPath)
	if err != nil {
		log.Fatal("error to open ledger: ", err)
	}

	embedder := model.NewOllamaEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.EmbeddingDim)

	if err := service.New(cfg, embedder, pool, ledger).Run(ctx); err != nil {
		log.Fatal("ingestion failed: ", err)
	}
}

func mustLoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
}
