package model

import "time"

// Job tracks the server-side execution state of one submitted campaign.
// It is written only by the campaign worker that owns it; everyone else
// reads through the job store.
type Job struct {
	ID              string        `json:"job_id"`
	CampaignID      string        `json:"campaign_id"`
	Status          JobStatus     `json:"status"`
	ScenesTotal     int           `json:"scenes_total"`
	ScenesCompleted int           `json:"scenes_completed"`
	Message         string        `json:"message,omitempty"`
	Results         []SceneResult `json:"results"`
	Error           *string       `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// SceneResult is the write-once outcome of processing a single scene.
type SceneResult struct {
	SceneIndex   int         `json:"scene_index"`
	SceneType    SceneType   `json:"scene_type"`
	Status       SceneStatus `json:"status"`
	OutputPath   string      `json:"output_path,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	DurationMS   int64       `json:"duration_ms,omitempty"`
}

// CampaignJobPayload contains the data for a campaign processing task
type CampaignJobPayload struct {
	CampaignID   string             `json:"campaign_id"`
	Topic        string             `json:"topic"`
	Script       []Scene            `json:"script"`
	BabyProfiles map[string]Profile `json:"baby_profiles"`
}
