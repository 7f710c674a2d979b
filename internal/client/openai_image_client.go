package client

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/babypodcast/api/internal/config"
	"github.com/babypodcast/api/internal/model"
)

// ImageSynthesizer defines the interface for host portrait generation
type ImageSynthesizer interface {
	GeneratePortrait(ctx context.Context, speaker string, profile model.Profile) (string, error)
	IsConfigured() bool
}

// ImageClient implements ImageSynthesizer for the OpenAI image API.
//
// Portraits are content-addressable: identical {speaker, tone} pairs hash
// to the same artifact, so repeat campaigns with the same profiles never
// hit the vendor twice. The go-cache layer keeps hot paths in memory; the
// on-disk artifact is the durable copy.
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	imagesDir  string
	portraits  *cache.Cache
}

// NewImageClient creates a new OpenAI image API client
func NewImageClient(cfg *config.OpenAIConfig, imagesDir string) *ImageClient {
	return &ImageClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		imagesDir: imagesDir,
		portraits: cache.New(30*time.Minute, 1*time.Hour),
	}
}

// PortraitKey returns the stable cache key for a speaker profile.
func PortraitKey(speaker string, profile model.Profile) string {
	sum := md5.Sum([]byte(speaker + "|" + profile.Tone))
	return fmt.Sprintf("%x", sum)
}

// GeneratePortrait produces (or reuses) the host portrait for a speaker
// profile and returns the png artifact path.
func (c *ImageClient) GeneratePortrait(ctx context.Context, speaker string, profile model.Profile) (string, error) {
	key := PortraitKey(speaker, profile)
	outputPath := filepath.Join(c.imagesDir, key+".png")

	if cached, found := c.portraits.Get(key); found {
		if path, ok := cached.(string); ok {
			if _, err := os.Stat(path); err == nil {
				log.Printf("[OpenAI] portrait cache hit for %s (%s)", speaker, key)
				return path, nil
			}
		}
	}
	// Memory cache cold but artifact may survive from a previous run.
	if _, err := os.Stat(outputPath); err == nil {
		c.portraits.SetDefault(key, outputPath)
		return outputPath, nil
	}

	if !c.IsConfigured() {
		return "", fmt.Errorf("openai API key not configured")
	}

	reqBody := map[string]interface{}{
		"model":  c.model,
		"prompt": portraitPrompt(speaker, profile),
		"n":      1,
		"size":   "1024x1024",
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[OpenAI] POST /v1/images/generations (%s)", speaker)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return "", fmt.Errorf("no image in response")
	}

	imageBytes, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if err := os.MkdirAll(c.imagesDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create images dir: %w", err)
	}
	if err := os.WriteFile(outputPath, imageBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	c.portraits.SetDefault(key, outputPath)
	log.Printf("[OpenAI] portrait saved: %s", outputPath)
	return outputPath, nil
}

// Ping checks API connectivity without side effects
func (c *ImageClient) Ping(ctx context.Context) bool {
	if !c.IsConfigured() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// IsConfigured returns true if the client has valid configuration
func (c *ImageClient) IsConfigured() bool {
	return c.apiKey != ""
}

func portraitPrompt(speaker string, profile model.Profile) string {
	base := "A hyper-realistic baby podcast host seated in front of a studio microphone, " +
		"soft professional lighting, podcast setup in the background, head and shoulders framing, photographic style."
	if profile.Tone != "" {
		return fmt.Sprintf("%s The host (%s) has a %s expression.", base, speaker, profile.Tone)
	}
	return base
}
