package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/babypodcast/api/internal/config"
	"github.com/babypodcast/api/internal/poller"
)

// VideoRenderer defines the interface for lip-sync video generation
type VideoRenderer interface {
	CreateLipSyncVideo(ctx context.Context, req *LipSyncRequest) (string, error)
	IsConfigured() bool
}

// LipSyncRequest describes one scene render: the synthesized audio, the
// host portrait, and identifiers used for asset naming and output files.
// JobID keys the artifacts so resubmissions of the same campaign never
// overwrite each other.
type LipSyncRequest struct {
	AudioPath  string
	ImagePath  string
	SceneIndex int
	Speaker    string
	JobID      string
}

// GenerationResponse is returned when a remote render job is created
type GenerationResponse struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
}

// VideoClient implements VideoRenderer for the Hedra API. The remote
// protocol has three phases: create+upload asset containers, create a
// generation referencing them, then poll the generation until terminal
// and download the resulting asset.
type VideoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelID    string
	videosDir  string
	poll       *poller.Poller
}

// NewVideoClient creates a new Hedra API client
func NewVideoClient(cfg *config.HedraConfig, videosDir string) *VideoClient {
	initial, max, budget, factor := cfg.PollerTimings()
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &VideoClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		modelID:    cfg.ModelID,
		videosDir:  videosDir,
		poll: poller.New(poller.Config{
			InitialInterval: initial,
			MaxInterval:     max,
			BackoffFactor:   factor,
			MaxPollTime:     budget,
		}),
	}
}

// CreateLipSyncVideo runs the full render protocol for one scene and
// returns the local path of the downloaded video.
func (c *VideoClient) CreateLipSyncVideo(ctx context.Context, req *LipSyncRequest) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("hedra API key not configured")
	}

	prefix := fmt.Sprintf("%s_scene_%d", req.JobID, req.SceneIndex)
	log.Printf("[Hedra] starting render for %s (%s)", prefix, req.Speaker)

	// Phase 1: asset containers + uploads. The two assets are independent,
	// so upload them concurrently.
	var audioAssetID, imageAssetID string
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		id, err := c.createAsset(egCtx, "audio", prefix+"_audio")
		if err != nil {
			return err
		}
		audioAssetID = id
		return c.uploadAsset(egCtx, id, req.AudioPath, "audio/mpeg")
	})
	eg.Go(func() error {
		id, err := c.createAsset(egCtx, "image", prefix+"_image")
		if err != nil {
			return err
		}
		imageAssetID = id
		return c.uploadAsset(egCtx, id, req.ImagePath, "image/png")
	})
	if err := eg.Wait(); err != nil {
		return "", fmt.Errorf("asset upload failed: %w", err)
	}
	log.Printf("[Hedra] assets uploaded: audio=%s image=%s", audioAssetID, imageAssetID)

	// Phase 2: create the generation job.
	gen, err := c.createGeneration(ctx, audioAssetID, imageAssetID, req.Speaker)
	if err != nil {
		return "", err
	}
	log.Printf("[Hedra] generation started: id=%s asset=%s", gen.ID, gen.AssetID)

	// Phase 3: poll until terminal, then fetch the download URL.
	if _, err := c.poll.Wait(ctx, gen.ID, func(ctx context.Context) (*poller.GenerationStatus, error) {
		return c.GetGenerationStatus(ctx, gen.ID)
	}); err != nil {
		return "", err
	}

	videoURL, err := c.getAssetURL(ctx, gen.AssetID)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s.mp4", prefix, strings.ReplaceAll(strings.ToLower(req.Speaker), " ", "_"))
	return c.download(ctx, videoURL, filename)
}

// createAsset creates an empty asset container and returns its id
func (c *VideoClient) createAsset(ctx context.Context, assetType, name string) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	payload := map[string]string{"name": name, "type": assetType}
	if err := c.post(ctx, "/assets", payload, &result); err != nil {
		return "", fmt.Errorf("failed to create %s asset: %w", assetType, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("no asset id returned for %s asset", assetType)
	}
	return result.ID, nil
}

// uploadAsset streams local file content into an asset container
func (c *VideoClient) uploadAsset(ctx context.Context, assetID, filePath, contentType string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(filePath)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assets/"+assetID+"/upload", &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("hedra API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// createGeneration submits the render job referencing both assets
func (c *VideoClient) createGeneration(ctx context.Context, audioAssetID, imageAssetID, speaker string) (*GenerationResponse, error) {
	payload := map[string]interface{}{
		"type":              "video",
		"ai_model_id":       c.modelID,
		"start_keyframe_id": imageAssetID,
		"audio_id":          audioAssetID,
		"generated_video_inputs": map[string]interface{}{
			"text_prompt":  videoPrompt(speaker),
			"resolution":   "720p",
			"aspect_ratio": "9:16",
			"duration_ms":  5000,
		},
	}

	var result GenerationResponse
	if err := c.post(ctx, "/generations", payload, &result); err != nil {
		return nil, fmt.Errorf("failed to create video generation: %w", err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("no generation id returned")
	}
	if result.AssetID == "" {
		return nil, fmt.Errorf("no asset id returned")
	}
	return &result, nil
}

// GetGenerationStatus issues one status request for a render job
func (c *VideoClient) GetGenerationStatus(ctx context.Context, generationID string) (*poller.GenerationStatus, error) {
	var result poller.GenerationStatus
	if err := c.get(ctx, "/generations/"+generationID+"/status", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getAssetURL fetches the download URL of a completed video asset
func (c *VideoClient) getAssetURL(ctx context.Context, assetID string) (string, error) {
	endpoint := "/assets?" + url.Values{"type": {"video"}, "ids": {assetID}}.Encode()

	var assets []struct {
		ID    string `json:"id"`
		Asset struct {
			URL string `json:"url"`
		} `json:"asset"`
	}
	if err := c.get(ctx, endpoint, &assets); err != nil {
		return "", fmt.Errorf("failed to get video asset: %w", err)
	}
	if len(assets) == 0 {
		return "", fmt.Errorf("no video assets found for id %s", assetID)
	}
	if assets[0].Asset.URL == "" {
		return "", fmt.Errorf("asset %s has no download URL yet", assetID)
	}
	return assets[0].Asset.URL, nil
}

// download retrieves the rendered video into the videos directory
func (c *VideoClient) download(ctx context.Context, videoURL, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to download video (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := os.MkdirAll(c.videosDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create videos dir: %w", err)
	}

	outputPath := filepath.Join(c.videosDir, filename)
	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create video file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write video file: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("downloaded video file is empty")
	}

	log.Printf("[Hedra] video downloaded: %s (%d bytes)", outputPath, n)
	return outputPath, nil
}

// post sends a POST request with JSON body
func (c *VideoClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *VideoClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *VideoClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hedra API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// Ping checks API connectivity without side effects
func (c *VideoClient) Ping(ctx context.Context) bool {
	if !c.IsConfigured() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// IsConfigured returns true if the client has valid configuration
func (c *VideoClient) IsConfigured() bool {
	return c.apiKey != ""
}

// videoPrompt builds the render prompt. Baby 1 reads warm, Baby 2 reads
// curious, matching the profile tones the campaigns ship with.
func videoPrompt(speaker string) string {
	base := "A baby podcast host seated in front of a microphone, speaking with calm intensity and natural focus. " +
		"Subtle facial expressions, minimal head movement, steady eye contact with the camera. " +
		"Studio lighting with a professional podcast setup in the background."
	if strings.Contains(speaker, "1") {
		return base + " Warm, welcoming expression with gentle smile and kind eyes."
	}
	return base + " Curious, thoughtful expression showing interest and attentiveness."
}
