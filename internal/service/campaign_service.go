package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/babypodcast/api/internal/model"
	"github.com/babypodcast/api/internal/store"
)

const TaskTypeCampaign = "campaign:process"

// ValidationError reports a semantically invalid campaign submission.
// Raised synchronously, before a job record exists.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Dispatcher hands a created job off to background execution. Production
// wiring enqueues through asynq; direct mode runs the worker in-process.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string, payload []byte) error
}

// CampaignService owns the submission side of the campaign lifecycle:
// validation, job creation, and dispatch. Execution happens in the
// campaign worker.
type CampaignService struct {
	store      store.JobStore
	dispatcher Dispatcher
}

func NewCampaignService(jobStore store.JobStore, dispatcher Dispatcher) *CampaignService {
	return &CampaignService{
		store:      jobStore,
		dispatcher: dispatcher,
	}
}

// Submit validates a campaign, creates its job record, and dispatches
// background processing. Validation failures surface before any job
// exists; the caller polls GetStatus for everything after.
func (s *CampaignService) Submit(ctx context.Context, req *model.CampaignRequest) (*model.CampaignResponse, error) {
	if err := validateCampaign(req); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now()

	job := &model.Job{
		ID:          jobID,
		CampaignID:  req.CampaignID,
		Status:      model.JobStatusQueued,
		ScenesTotal: len(req.Script),
		Results:     []model.SceneResult{},
		Message:     fmt.Sprintf("Campaign '%s' queued for processing with %d scenes", req.CampaignID, len(req.Script)),
		CreatedAt:   now,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	payload := &model.CampaignJobPayload{
		CampaignID:   req.CampaignID,
		Topic:        req.Topic,
		Script:       req.Script,
		BabyProfiles: req.BabyProfiles,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, jobID, payloadBytes); err != nil {
		// The job exists but nothing will run it; mark it so clients
		// polling the id see a terminal state instead of queued forever.
		_ = s.store.Update(ctx, jobID, func(j *model.Job) error {
			msg := err.Error()
			j.Status = model.JobStatusFailed
			j.Error = &msg
			j.Message = "Failed to dispatch campaign for processing"
			return nil
		})
		return nil, fmt.Errorf("failed to dispatch campaign: %w", err)
	}

	return &model.CampaignResponse{
		JobID:       jobID,
		Status:      model.JobStatusQueued,
		ScenesTotal: len(req.Script),
		Message:     job.Message,
	}, nil
}

// GetStatus returns the current job projection for a campaign execution
func (s *CampaignService) GetStatus(ctx context.Context, jobID string) (*model.Job, error) {
	return s.store.Get(ctx, jobID)
}

// Cancel requests cancellation of a queued or processing job. The worker
// observes the canceled status between scenes and stops there.
func (s *CampaignService) Cancel(ctx context.Context, jobID string) (*model.CampaignCancelResponse, error) {
	err := s.store.Update(ctx, jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return fmt.Errorf("job already completed")
		}
		now := time.Now()
		j.Status = model.JobStatusCanceled
		j.Message = "Campaign canceled by request"
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.CampaignCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// validateCampaign enforces the submission invariants: a non-empty
// script, both fixed speaker profiles, and well-formed scenes.
func validateCampaign(req *model.CampaignRequest) error {
	if len(req.Script) == 0 {
		return &ValidationError{Message: "script must contain at least one scene"}
	}

	for _, speaker := range model.RequiredSpeakers {
		if _, ok := req.BabyProfiles[speaker]; !ok {
			return &ValidationError{Message: fmt.Sprintf("missing profile for speaker %q", speaker)}
		}
	}

	for i, scene := range req.Script {
		switch scene.Type {
		case model.SceneTypeDialogue:
			if _, ok := req.BabyProfiles[scene.Speaker]; !ok {
				return &ValidationError{Message: fmt.Sprintf("scene %d: unknown speaker %q", i, scene.Speaker)}
			}
			if scene.Text == "" {
				return &ValidationError{Message: fmt.Sprintf("scene %d: dialogue text must not be empty", i)}
			}
			if len(scene.Text) > model.MaxDialogueTextLength {
				return &ValidationError{Message: fmt.Sprintf("scene %d: dialogue text exceeds %d characters", i, model.MaxDialogueTextLength)}
			}
		case model.SceneTypeMedia:
			if scene.MediaKind == "" {
				return &ValidationError{Message: fmt.Sprintf("scene %d: media_kind must not be empty", i)}
			}
		default:
			return &ValidationError{Message: fmt.Sprintf("scene %d: unknown scene type %q", i, scene.Type)}
		}
	}

	return nil
}
