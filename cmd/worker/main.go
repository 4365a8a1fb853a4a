package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"github.com/openmeet-team/surveystudio/internal/backend"
	"github.com/openmeet-team/surveystudio/internal/config"
	"github.com/openmeet-team/surveystudio/internal/jobs"
)

// worker runs scheduled survey tasks (closing surveys at their end date)
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.RedisEnabled() {
		log.Fatal("REDIS_ADDR is required to run the worker")
	}

	b, err := backend.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer b.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: 4,
			Queues:      map[string]int{jobs.Queue: 1},
		},
	)

	mux := asynq.NewServeMux()
	jobs.NewHandler(b.Store).Register(mux)

	log.Printf("Worker processing queue %q", jobs.Queue)
	// Run blocks until SIGTERM or SIGINT
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}
