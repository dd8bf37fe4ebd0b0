package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeExperimentRun  = "experiment:run"
	TypeContentProcess = "knowledge:process"
)

type ExperimentRunPayload struct {
	ExperimentID int64 `json:"experiment_id"`
}

type ContentProcessPayload struct {
	ContentID int64 `json:"content_id"`
}

func NewExperimentRunTask(experimentID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(ExperimentRunPayload{ExperimentID: experimentID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeExperimentRun, payload), nil
}

func NewContentProcessTask(contentID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(ContentProcessPayload{ContentID: contentID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeContentProcess, payload), nil
}
