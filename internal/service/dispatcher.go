package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// AsynqDispatcher enqueues campaign tasks on the "campaigns" queue. One
// task per job; the orchestrator never auto-retries a campaign, so failed
// executions stay in terminal failed state rather than re-running scenes.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, jobID string, payload []byte) error {
	task, err := NewCampaignTask(jobID, payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue("campaigns"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// NewCampaignTask wraps a job id and payload into an asynq task
func NewCampaignTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCampaign, data), nil
}
