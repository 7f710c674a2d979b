package model

// ScriptGenerateRequest represents the request body for script generation
type ScriptGenerateRequest struct {
	Topic      string `json:"topic" validate:"required,min=3,max=300"`
	SceneCount int    `json:"scene_count" validate:"omitempty,min=2,max=20"`
}

// ScriptGenerateResponse carries a generated script ready for submission
// as a campaign.
type ScriptGenerateResponse struct {
	Topic  string  `json:"topic"`
	Script []Scene `json:"script"`
}
