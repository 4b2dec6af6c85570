package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"storyreel/config"
	"storyreel/orchestrator"
	"storyreel/queue"
	"storyreel/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	inputPath := flag.String("input", "", "story text file (- for stdin)")
	scenes := flag.Int("scenes", 0, "number of scenes (0 uses the configured default)")
	enqueue := flag.Bool("enqueue", false, "push the job to the worker queue instead of running it here")
	flag.Parse()

	// Load .env (local dev only)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	input, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	job := types.NewJob(input, *scenes)

	if *enqueue {
		q := queue.New(queue.NewRedisClient(redisAddr(cfg)), cfg.Queue.Name)
		if err := q.Enqueue(ctx, queue.Task{JobID: job.ID, InputText: job.InputText, SceneCount: job.SceneCount}); err != nil {
			log.Fatalf("Failed to enqueue job: %v", err)
		}
		log.Printf("✅ Job %s queued on %s", job.ID, cfg.Queue.Name)
		return
	}

	orch, err := orchestrator.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	log.Printf("🎬 Storyreel pipeline starting (job %s)", job.ID)
	if err := orch.Run(ctx, job); err != nil {
		log.Printf("❌ Pipeline failed in %s: %s", job.FailedPhase, job.Cause)
		os.Exit(1)
	}
	log.Printf("✅ Pipeline complete! Video: %s", job.Location)
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "", "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func redisAddr(cfg *config.Config) string {
	if addr := os.Getenv("REDIS_URL"); addr != "" {
		return addr
	}
	return cfg.Queue.Addr
}
