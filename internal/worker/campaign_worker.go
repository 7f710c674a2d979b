package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/babypodcast/api/internal/model"
	"github.com/babypodcast/api/internal/store"
	"github.com/babypodcast/api/internal/websocket"
)

// CampaignWorker drives one campaign job through its scenes in order.
// Scene failures are recorded per scene and never abort the campaign;
// only job store failures are treated as systemic.
type CampaignWorker struct {
	store  store.JobStore
	scenes *SceneProcessor
	hub    *websocket.Hub
}

// NewCampaignWorker creates a campaign worker. hub may be nil when no
// websocket fan-out is wanted (tests, inline mode without subscribers).
func NewCampaignWorker(jobStore store.JobStore, scenes *SceneProcessor, hub *websocket.Hub) *CampaignWorker {
	return &CampaignWorker{
		store:  jobStore,
		scenes: scenes,
		hub:    hub,
	}
}

// ProcessTask handles campaign task processing from the asynq queue.
func (w *CampaignWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	var payload model.CampaignJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, taskPayload.JobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal campaign payload: %w", err)
	}

	return w.Process(ctx, taskPayload.JobID, &payload)
}

// Process runs the full scene loop for one job. It is safe to call
// directly, without asynq, which is how the inline dispatcher uses it.
func (w *CampaignWorker) Process(ctx context.Context, jobID string, payload *model.CampaignJobPayload) error {
	log.Printf("Starting campaign job %s (%d scenes)", jobID, len(payload.Script))

	err := w.store.Update(ctx, jobID, func(job *model.Job) error {
		if job.Status == model.JobStatusCanceled {
			return errCanceled
		}
		now := time.Now()
		job.Status = model.JobStatusProcessing
		job.StartedAt = &now
		job.Message = "Processing scenes"
		return nil
	})
	if errors.Is(err, errCanceled) {
		log.Printf("Campaign job %s canceled before start", jobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to start job %s: %w", jobID, err)
	}

	total := len(payload.Script)
	w.broadcastProgress(jobID, model.JobStatusProcessing, 0, total, "Processing scenes")

	succeeded := 0
	for i, scene := range payload.Script {
		canceled, cerr := w.isCanceled(ctx, jobID)
		if cerr != nil {
			w.failJob(ctx, jobID, "Failed to read job state")
			return cerr
		}
		if canceled {
			log.Printf("Campaign job %s canceled at scene %d", jobID, i)
			return nil
		}

		result := w.scenes.Process(ctx, jobID, i, scene, payload.BabyProfiles)
		if result.Status == model.SceneStatusSuccess {
			succeeded++
		} else {
			log.Printf("Campaign job %s scene %d failed: %s", jobID, i, result.ErrorMessage)
		}

		err := w.store.Update(ctx, jobID, func(job *model.Job) error {
			job.Results = append(job.Results, result)
			job.ScenesCompleted = len(job.Results)
			return nil
		})
		if err != nil {
			w.failJob(ctx, jobID, "Failed to save scene result")
			return fmt.Errorf("failed to save scene %d result: %w", i, err)
		}

		w.broadcastScene(jobID, result)
		w.broadcastProgress(jobID, model.JobStatusProcessing, i+1, total, fmt.Sprintf("Processed scene %d of %d", i+1, total))
	}

	summary := fmt.Sprintf("Campaign completed: %d/%d scenes succeeded", succeeded, total)
	err = w.store.Update(ctx, jobID, func(job *model.Job) error {
		if job.Status == model.JobStatusCanceled {
			return errCanceled
		}
		now := time.Now()
		job.Status = model.JobStatusCompleted
		job.CompletedAt = &now
		job.Message = summary
		return nil
	})
	if errors.Is(err, errCanceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}

	if w.hub != nil {
		w.hub.BroadcastComplete(jobID, summary)
	}
	log.Printf("Campaign job %s completed (%d/%d scenes)", jobID, succeeded, total)
	return nil
}

var errCanceled = errors.New("job canceled")

func (w *CampaignWorker) isCanceled(ctx context.Context, jobID string) (bool, error) {
	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	return job.Status == model.JobStatusCanceled, nil
}

func (w *CampaignWorker) broadcastProgress(jobID string, status model.JobStatus, completed, total int, step string) {
	if w.hub == nil {
		return
	}
	w.hub.BroadcastProgress(jobID, status, completed, total, step)
}

func (w *CampaignWorker) broadcastScene(jobID string, result model.SceneResult) {
	if w.hub == nil {
		return
	}
	w.hub.BroadcastScene(jobID, result)
}

func (w *CampaignWorker) failJob(ctx context.Context, jobID, errMsg string) {
	err := w.store.Update(ctx, jobID, func(job *model.Job) error {
		now := time.Now()
		job.Status = model.JobStatusFailed
		job.CompletedAt = &now
		job.Error = &errMsg
		job.Message = errMsg
		return nil
	})
	if err != nil {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	if w.hub != nil {
		w.hub.BroadcastError(jobID, "CAMPAIGN_FAILED", errMsg)
	}
}
