package model

// MaxDialogueTextLength bounds a single dialogue line. Longer lines blow up
// TTS cost and push the rendered clip past the lip-sync duration cap.
const MaxDialogueTextLength = 2500

// Scene is one script entry. The Type tag selects the variant: dialogue
// scenes carry Speaker/Text, media scenes carry MediaKind/Description.
type Scene struct {
	Type        SceneType `json:"type"`
	Speaker     string    `json:"speaker,omitempty"`
	Text        string    `json:"text,omitempty"`
	MediaKind   string    `json:"media_kind,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Profile describes one podcast host: a free-text tone used to bias
// synthesis style, and a voice reference (literal vendor id or a symbolic
// name resolved through the BabyVoices table).
type Profile struct {
	Tone    string `json:"tone" validate:"required"`
	VoiceID string `json:"voice_id" validate:"required"`
}

// CampaignRequest represents the request body for campaign submission
type CampaignRequest struct {
	CampaignID   string             `json:"campaign_id" validate:"required,min=1,max=128"`
	Topic        string             `json:"topic" validate:"required"`
	Script       []Scene            `json:"script" validate:"required,min=1"`
	BabyProfiles map[string]Profile `json:"baby_profiles" validate:"required"`
}

// CampaignResponse represents the response for campaign submission
type CampaignResponse struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	ScenesTotal int       `json:"scenes_total"`
	Message     string    `json:"message"`
}

// CampaignCancelResponse represents the response for campaign cancellation
type CampaignCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
}
