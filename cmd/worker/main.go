package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storyreel/config"
	"storyreel/orchestrator"
	"storyreel/queue"
	"storyreel/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	orch, err := orchestrator.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	addr := cfg.Queue.Addr
	if env := os.Getenv("REDIS_URL"); env != "" {
		addr = env
	}
	rdb := queue.NewRedisClient(addr)
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := queue.New(rdb, cfg.Queue.Name)
	err = q.Listen(ctx, func(ctx context.Context, task queue.Task) error {
		job := types.NewJob(task.InputText, task.SceneCount)
		if task.JobID != "" {
			job.ID = task.JobID
		}
		return orch.Run(ctx, job)
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("Worker stopped: %v", err)
	}
	log.Println("Worker shut down")
}
