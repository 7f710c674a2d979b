package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/babypodcast/api/internal/client"
	"github.com/babypodcast/api/internal/model"
	"github.com/babypodcast/api/pkg/response"
)

type PodcastHandler struct {
	gemini    *client.GeminiClient
	validator *validator.Validate
}

func NewPodcastHandler(gemini *client.GeminiClient, v *validator.Validate) *PodcastHandler {
	return &PodcastHandler{
		gemini:    gemini,
		validator: v,
	}
}

// Generate handles POST /api/podcasts/generate
// @Summary      Generate multi-speaker podcast audio
// @Description  Synthesize a two-host dialogue into WAV audio via Gemini TTS. Provide your own key in X-API-Key or rely on the server's.
// @Tags         Podcasts
// @Accept       json
// @Produce      audio/wav
// @Param        X-API-Key header string false "Google/Gemini API key"
// @Param        request body model.PodcastGenerateRequest true "Podcast dialogue"
// @Success      200 {file} binary
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/podcasts/generate [post]
func (h *PodcastHandler) Generate(c *fiber.Ctx) error {
	var req model.PodcastGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	if !strings.Contains(req.Text, "Speaker 1:") || !strings.Contains(req.Text, "Speaker 2:") {
		return response.ValidationError(c, "Text must contain 'Speaker 1:' and 'Speaker 2:' dialogue format", nil)
	}

	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey == "" {
		apiKey = h.gemini.DefaultAPIKey()
	}
	if apiKey == "" {
		return response.Unauthorized(c, "API key required. Provide a Google/Gemini API key in the X-API-Key header.")
	}

	audio, err := h.gemini.GeneratePodcastAudio(c.Context(), apiKey, req.Text)
	if err != nil {
		if errors.Is(err, client.ErrInvalidAPIKey) {
			return response.Unauthorized(c, "Invalid API key. Check your Google/Gemini API key.")
		}
		return response.AIError(c, err.Error())
	}

	c.Set(fiber.HeaderContentType, "audio/wav")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=podcast.wav")
	c.Set(fiber.HeaderContentLength, fmt.Sprintf("%d", len(audio)))
	return c.Send(audio)
}
