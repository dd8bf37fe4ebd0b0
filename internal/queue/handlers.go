package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/promptpit/promptpit/internal/experiment"
	"github.com/promptpit/promptpit/internal/knowledge"
)

// Handlers routes dequeued tasks to the services that do the work.
type Handlers struct {
	experiments *experiment.Runner
	knowledge   *knowledge.Service
}

func NewHandlers(experiments *experiment.Runner, kn *knowledge.Service) *Handlers {
	return &Handlers{experiments: experiments, knowledge: kn}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeExperimentRun, h.HandleExperimentRun)
	mux.HandleFunc(TypeContentProcess, h.HandleContentProcess)
}

func (h *Handlers) HandleExperimentRun(ctx context.Context, t *asynq.Task) error {
	var p ExperimentRunPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("experiment task started", "experiment_id", p.ExperimentID)
	if err := h.experiments.RunExperiment(ctx, p.ExperimentID); err != nil {
		// The runner already marked the experiment failed; retrying would
		// restart a terminal experiment.
		return fmt.Errorf("experiment %d: %v: %w", p.ExperimentID, err, asynq.SkipRetry)
	}
	return nil
}

func (h *Handlers) HandleContentProcess(ctx context.Context, t *asynq.Task) error {
	var p ContentProcessPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("content task started", "content_id", p.ContentID)
	if err := h.knowledge.ProcessContent(ctx, p.ContentID); err != nil {
		return fmt.Errorf("process content %d: %w", p.ContentID, err)
	}
	return nil
}
