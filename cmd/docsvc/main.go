package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"paperchat/internal/app"
	"paperchat/internal/config"
	"paperchat/internal/util"
	"paperchat/pkg/queue"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var jobs *queue.RedisJobQueue
	if cfg.RedisAddr != "" {
		stream := cfg.SummarizeStream
		if stream == "" {
			stream = "summarize:jobs"
		}
		jobs, err = queue.NewRedisJobQueue(queue.RedisQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   stream,
			Group:    "docsvc",
		})
		if err != nil {
			log.Fatalf("failed to init job queue: %v", err)
		}
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:          cfg.DatabaseURL,
		MinioEndpoint:        cfg.MinioEndpoint,
		MinioAccessKey:       cfg.MinioAccessKey,
		MinioSecretKey:       cfg.MinioSecretKey,
		MinioBucket:          cfg.MinioBucket,
		MinioUseSSL:          cfg.MinioUseSSL,
		EngineURL:            cfg.EngineURL,
		IngestTimeout:        time.Duration(cfg.IngestTimeoutSeconds) * time.Second,
		ChunkSize:            cfg.ChunkSize,
		SummarizeConcurrency: cfg.SummarizeConcurrency,
		Jobs:                 jobs,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if jobs != nil {
		workers := cfg.SummarizeConcurrency
		if workers <= 0 {
			workers = 1
		}
		if err := appCore.StartWorker(ctx, workers); err != nil {
			log.Fatalf("failed to start worker: %v", err)
		}
		slog.Info("summarize worker started", "workers", workers)
	}

	slog.Info("document service ready")
	<-ctx.Done()
	logger.Info("shutting down")
}
