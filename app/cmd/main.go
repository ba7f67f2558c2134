package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tristanchrt/local-llm/app/server"
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

	s := server.NewServer(cfg)
	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}

func mustLoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
}
