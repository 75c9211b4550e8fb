package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"docuchat-backend/internal/app"
	"docuchat-backend/internal/config"
)

func main() {
	log.Println("Starting DocuChat Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Wire store, services and router
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer a.Close()

	// 3. Optionally run the indexing worker in-process
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	var workerWG sync.WaitGroup
	if a.Worker != nil && cfg.EmbeddedWorker {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			log.Printf("Embedded worker starting with concurrency %d", cfg.WorkerConcurrency)
			if err := a.Worker.Run(workerCtx); err != nil {
				log.Printf("ERROR: Embedded worker stopped: %v", err)
			}
		}()
	}

	// 4. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: a.Router,
		// Uploads and LLM calls are slow; the router's own timeout is 60s.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}
	stopWorker()
	workerWG.Wait()

	log.Println("Server shutdown complete.")
}
