package model

// PodcastGenerateRequest represents the request body for multi-speaker
// podcast audio. The text carries dialogue lines prefixed with
// "Speaker 1:" and "Speaker 2:" markers.
type PodcastGenerateRequest struct {
	Text string `json:"text" validate:"required,min=10,max=50000"`
}
