package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/babypodcast/api/internal/client"
	"github.com/babypodcast/api/internal/config"
	"github.com/babypodcast/api/internal/handler"
	"github.com/babypodcast/api/internal/middleware"
	"github.com/babypodcast/api/internal/model"
	"github.com/babypodcast/api/internal/service"
	"github.com/babypodcast/api/internal/store"
	"github.com/babypodcast/api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	jobStore store.JobStore
}

// setupApp creates a Fiber app wired like main.go but with unconfigured
// external clients and no Redis: the memory store and inline dispatcher
// take over, and every dialogue scene renders through the mock path.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	validate := validator.New()

	// No API keys: script generation takes the mock path, podcast
	// requests must bring their own key.
	groqClient := client.NewGroqClient(&config.GroqConfig{})
	geminiClient := client.NewGeminiClient(&config.GeminiConfig{})

	jobStore := store.NewMemoryStore()
	sceneProcessor := worker.NewSceneProcessor(nil, nil, nil, nil)
	campaignWorker := worker.NewCampaignWorker(jobStore, sceneProcessor, nil)
	dispatcher := worker.NewInlineDispatcher(campaignWorker)

	campaignService := service.NewCampaignService(jobStore, dispatcher)
	scriptService := service.NewScriptService(groqClient)

	campaignHandler := handler.NewCampaignHandler(campaignService, validate)
	scriptHandler := handler.NewScriptHandler(scriptService, validate)
	podcastHandler := handler.NewPodcastHandler(geminiClient, validate)
	voicesHandler := handler.NewVoicesHandler(nil)

	// nil Redis client disables rate limiting
	rateLimiter := middleware.NewRateLimiter(nil)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"groq":       false,
				"gemini":     false,
				"elevenlabs": false,
				"openai":     false,
				"hedra":      false,
				"r2":         false,
				"redis":      false,
			},
		})
	})

	api := app.Group("/api")

	campaigns := api.Group("/campaigns")
	campaigns.Post("/generate", rateLimiter.CampaignLimit(10000), campaignHandler.Generate)
	campaigns.Get("/status/:jobId", campaignHandler.Status)
	campaigns.Post("/cancel/:jobId", campaignHandler.Cancel)

	scripts := api.Group("/scripts", rateLimiter.ScriptLimit(10000))
	scripts.Post("/generate", scriptHandler.Generate)

	podcasts := api.Group("/podcasts")
	podcasts.Post("/generate", podcastHandler.Generate)

	api.Get("/voices", voicesHandler.List)

	return &testApp{app: app, jobStore: jobStore}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// waitForTerminal polls the job store until the job reaches a terminal
// status or the deadline passes. Inline jobs run on a goroutine, so
// tests cannot assume completion right after submission.
func waitForTerminal(t *testing.T, ta *testApp, jobID string, timeout time.Duration) *model.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := ta.jobStore.Get(context.Background(), jobID)
		if err == nil && job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal status within %s", jobID, timeout)
	return nil
}
