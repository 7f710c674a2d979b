package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeScene    = "scene"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage reports per-scene campaign progress
type WSProgressMessage struct {
	Type            string    `json:"type"`
	JobID           string    `json:"jobId"`
	Status          JobStatus `json:"status"`
	ScenesCompleted int       `json:"scenesCompleted"`
	ScenesTotal     int       `json:"scenesTotal"`
	CurrentStep     string    `json:"currentStep,omitempty"`
}

// WSSceneMessage carries a finished scene result
type WSSceneMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Result SceneResult `json:"result"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Result interface{} `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
