package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/babypodcast/api/internal/config"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

// GroqClient talks to the Groq chat-completions API. Callers describe a
// generation with a CompletionRequest; the model comes from configuration.
type GroqClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// CompletionRequest is one scripted generation: a fixed system framing,
// the user prompt, and tuning knobs. Zero-valued knobs fall back to the
// client defaults. JSONOnly constrains the model to emit a JSON object,
// which script parsing relies on.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSONOnly    bool
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewGroqClient creates a new Groq API client
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	return &GroqClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// newChatRequest fills in the wire request, applying client defaults
// for unset knobs.
func newChatRequest(model string, req *CompletionRequest) chatRequest {
	out := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if out.Temperature == 0 {
		out.Temperature = defaultTemperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = defaultMaxTokens
	}
	if req.JSONOnly {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out
}

// Complete runs one chat completion and returns the model's text.
func (c *GroqClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("groq API key not configured")
	}

	bodyBytes, err := json.Marshal(newChatRequest(c.model, req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	choice := parsed.Choices[0]
	log.Printf("[Groq] completion finished (%s, %d tokens)", choice.FinishReason, parsed.Usage.TotalTokens)
	return choice.Message.Content, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *GroqClient) IsConfigured() bool {
	return c.apiKey != ""
}
