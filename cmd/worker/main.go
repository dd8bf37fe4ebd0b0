package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/promptpit/promptpit/internal/config"
	"github.com/promptpit/promptpit/internal/database"
	"github.com/promptpit/promptpit/internal/embedding"
	"github.com/promptpit/promptpit/internal/experiment"
	"github.com/promptpit/promptpit/internal/judge"
	"github.com/promptpit/promptpit/internal/knowledge"
	"github.com/promptpit/promptpit/internal/llm"
	"github.com/promptpit/promptpit/internal/prompt"
	"github.com/promptpit/promptpit/internal/provider"
	"github.com/promptpit/promptpit/internal/queue"
	"github.com/promptpit/promptpit/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	tasks := queue.NewClient(cfg.Redis)
	defer tasks.Close()

	gateway := llm.NewGateway(cfg.LLM)
	providerSvc := provider.NewService(db, gateway)
	promptSvc := prompt.NewService(db)
	embedder := embedding.NewService(gateway, cfg.LLM.EmbeddingModel)
	store := vectorstore.NewStore(db)
	knowledgeSvc := knowledge.NewService(db, embedder, store, providerSvc, tasks)
	runner := prompt.NewRunner(db, gateway, providerSvc, knowledgeSvc)
	judgeSvc := judge.NewService(db, gateway, providerSvc, promptSvc, cfg.Judge.DefaultScale, cfg.Judge.DefaultModel)
	experimentSvc := experiment.NewService(db, tasks)
	experimentRunner := experiment.NewRunner(db, experimentSvc, runner, judgeSvc, gateway, providerSvc)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"experiments": 3,
				"knowledge":   6,
				"default":     1,
			},
		},
	)

	mux := asynq.NewServeMux()
	queue.NewHandlers(experimentRunner, knowledgeSvc).Register(mux)

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
