// Command worker consumes document indexing tasks from Redis. Run it when
// the API server is started with EMBEDDED_WORKER=false.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"docuchat-backend/internal/app"
	"docuchat-backend/internal/config"
)

func main() {
	log.Println("Starting DocuChat Worker...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatal("FATAL: REDIS_URL must be set to run the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer a.Close()

	log.Printf("Worker running with concurrency %d", cfg.WorkerConcurrency)
	if err := a.Worker.Run(ctx); err != nil {
		log.Printf("ERROR: Worker stopped: %v", err)
		return
	}
	log.Println("Worker shutdown complete.")
}
