package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/promptpit/promptpit/internal/config"
)

// Client enqueues background work. It satisfies the Enqueuer interfaces of
// the experiment and knowledge services.
type Client struct {
	client *asynq.Client
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnqueueExperimentRun(ctx context.Context, experimentID int64) error {
	task, err := NewExperimentRunTask(experimentID)
	if err != nil {
		return err
	}
	// Experiments burn many LLM calls, so cap retries and allow a long run.
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue("experiments"),
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue experiment run: %w", err)
	}
	slog.Info("experiment run enqueued", "experiment_id", experimentID, "task_id", info.ID)
	return nil
}

func (c *Client) EnqueueContentProcess(ctx context.Context, contentID int64) error {
	task, err := NewContentProcessTask(contentID)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue("knowledge"),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue content processing: %w", err)
	}
	slog.Info("content processing enqueued", "content_id", contentID, "task_id", info.ID)
	return nil
}
