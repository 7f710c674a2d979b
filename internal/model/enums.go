package model

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// IsTerminal reports whether a job in this status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCanceled
}

// Scene types
type SceneType string

const (
	SceneTypeDialogue SceneType = "dialogue"
	SceneTypeMedia    SceneType = "media"
)

// Scene result status
type SceneStatus string

const (
	SceneStatusSuccess SceneStatus = "success"
	SceneStatusFailed  SceneStatus = "failed"
)

// Fixed speaker keys. Every campaign carries exactly these two profiles.
const (
	SpeakerBaby1 = "Baby 1"
	SpeakerBaby2 = "Baby 2"
)

var RequiredSpeakers = []string{SpeakerBaby1, SpeakerBaby2}
