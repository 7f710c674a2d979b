package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/babypodcast/api/internal/config"
	"github.com/babypodcast/api/internal/model"
)

// SpeechSynthesizer defines the interface for text-to-speech operations
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req *SynthesizeRequest) (string, error)
	ListVoices(ctx context.Context) ([]model.VoiceInfo, error)
	IsConfigured() bool
}

// SpeechClient implements SpeechSynthesizer for the ElevenLabs API
type SpeechClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	audioDir   string
}

// SynthesizeRequest describes one text-to-speech call
type SynthesizeRequest struct {
	Text       string
	VoiceID    string
	Tone       string
	OutputName string
}

// voiceSettings biases delivery style. Style is pushed up for expressive
// tones, everything else stays at the vendor's recommended midpoints.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// NewSpeechClient creates a new ElevenLabs API client
func NewSpeechClient(cfg *config.ElevenLabsConfig, audioDir string) *SpeechClient {
	return &SpeechClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		audioDir: audioDir,
	}
}

// Synthesize converts text to speech and writes the mp3 artifact into the
// audio output directory. Returns the artifact path.
func (c *SpeechClient) Synthesize(ctx context.Context, req *SynthesizeRequest) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("elevenlabs API key not configured")
	}

	body := ttsRequest{
		Text:          req.Text,
		ModelID:       c.model,
		VoiceSettings: settingsForTone(req.Tone),
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	log.Printf("[ElevenLabs] POST %s (%d chars)", endpoint, len(req.Text))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := os.MkdirAll(c.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio dir: %w", err)
	}

	outputPath := filepath.Join(c.audioDir, req.OutputName)
	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("synthesizer returned no audio")
	}

	log.Printf("[ElevenLabs] wrote %d bytes to %s", n, outputPath)
	return outputPath, nil
}

// ListVoices fetches the account's available voices
func (c *SpeechClient) ListVoices(ctx context.Context) ([]model.VoiceInfo, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("elevenlabs API key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	voices := make([]model.VoiceInfo, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		voices = append(voices, model.VoiceInfo{VoiceID: v.VoiceID, Name: v.Name})
	}
	return voices, nil
}

// Ping checks API connectivity without side effects
func (c *SpeechClient) Ping(ctx context.Context) bool {
	if !c.IsConfigured() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user", nil)
	if err != nil {
		return false
	}
	req.Header.Set("xi-api-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// IsConfigured returns true if the client has valid configuration
func (c *SpeechClient) IsConfigured() bool {
	return c.apiKey != ""
}

func settingsForTone(tone string) voiceSettings {
	s := voiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		UseSpeakerBoost: true,
	}
	lower := strings.ToLower(tone)
	switch {
	case strings.Contains(lower, "excited"), strings.Contains(lower, "energetic"):
		s.Style = 0.6
		s.Stability = 0.35
	case strings.Contains(lower, "warm"), strings.Contains(lower, "inviting"):
		s.Style = 0.3
	case strings.Contains(lower, "curious"), strings.Contains(lower, "thoughtful"):
		s.Style = 0.2
		s.Stability = 0.6
	}
	return s
}
