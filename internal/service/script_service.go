package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/babypodcast/api/internal/client"
	"github.com/babypodcast/api/internal/model"
)

const defaultSceneCount = 8

// ScriptService generates ready-to-submit podcast scripts for a topic
// using the Groq chat-completions API.
type ScriptService struct {
	groqClient *client.GroqClient
}

func NewScriptService(groqClient *client.GroqClient) *ScriptService {
	return &ScriptService{groqClient: groqClient}
}

// Generate produces an alternating two-host dialogue script for the topic
func (s *ScriptService) Generate(ctx context.Context, req *model.ScriptGenerateRequest) (*model.ScriptGenerateResponse, error) {
	sceneCount := req.SceneCount
	if sceneCount == 0 {
		sceneCount = defaultSceneCount
	}

	// Use mock response if client is not configured
	if s.groqClient == nil || !s.groqClient.IsConfigured() {
		return s.generateMock(req, sceneCount), nil
	}

	response, err := s.groqClient.Complete(ctx, &client.CompletionRequest{
		System:      scriptSystemPrompt,
		User:        buildScriptPrompt(req.Topic, sceneCount),
		Temperature: 0.8,
		MaxTokens:   2048,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("AI generation failed: %w", err)
	}

	script, err := parseScriptResponse(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return &model.ScriptGenerateResponse{
		Topic:  req.Topic,
		Script: script,
	}, nil
}

const scriptSystemPrompt = `You are a scriptwriter for a short-form "baby podcast" video series:
two baby hosts ("Baby 1" and "Baby 2") discuss a topic in a warm, playful,
conversational register. Baby 1 is warm and inviting; Baby 2 is curious and
thoughtful. Always output your response as valid JSON in the exact format
requested. Do not include any text outside the JSON structure.`

func buildScriptPrompt(topic string, sceneCount int) string {
	return fmt.Sprintf(`Write a dialogue script about: %s

Create exactly %d scenes. Most scenes are dialogue alternating between the
two hosts, starting with Baby 1. You may include at most one media scene
(a clip or visual insert) where it fits naturally. Keep each dialogue line
under two sentences.

Output as JSON: {"script": [
  {"type": "dialogue", "speaker": "Baby 1", "text": "..."},
  {"type": "dialogue", "speaker": "Baby 2", "text": "..."},
  {"type": "media", "media_kind": "music_clip", "description": "..."}
]}`, topic, sceneCount)
}

func parseScriptResponse(response string) ([]model.Scene, error) {
	response = extractJSON(response)

	var result struct {
		Script []model.Scene `json:"script"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(result.Script) == 0 {
		return nil, fmt.Errorf("no scenes in response")
	}
	return result.Script, nil
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")

	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// generateMock returns a deterministic script for development/testing
func (s *ScriptService) generateMock(req *model.ScriptGenerateRequest, sceneCount int) *model.ScriptGenerateResponse {
	lines := []string{
		"Hey there, welcome back! Today we're talking about %s.",
		"Ooh, %s? I've been wondering about that all week.",
		"Right? There's so much more to it than people think.",
		"Okay, walk me through it. Start from the beginning.",
		"It all comes down to the little details nobody notices.",
		"That actually makes a lot of sense when you put it that way.",
		"And that's why everyone's been talking about it lately.",
		"Well, I'm convinced. Tell us what you think in the comments!",
	}

	script := make([]model.Scene, 0, sceneCount)
	for i := 0; i < sceneCount; i++ {
		speaker := model.SpeakerBaby1
		if i%2 == 1 {
			speaker = model.SpeakerBaby2
		}
		line := lines[i%len(lines)]
		if strings.Contains(line, "%s") {
			line = fmt.Sprintf(line, req.Topic)
		}
		script = append(script, model.Scene{
			Type:    model.SceneTypeDialogue,
			Speaker: speaker,
			Text:    line,
		})
	}

	return &model.ScriptGenerateResponse{
		Topic:  req.Topic,
		Script: script,
	}
}
