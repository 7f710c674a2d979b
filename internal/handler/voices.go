package handler

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/babypodcast/api/internal/client"
	"github.com/babypodcast/api/internal/model"
	"github.com/babypodcast/api/pkg/response"
)

type VoicesHandler struct {
	speech client.SpeechSynthesizer
}

func NewVoicesHandler(speech client.SpeechSynthesizer) *VoicesHandler {
	return &VoicesHandler{speech: speech}
}

// List handles GET /api/voices
// @Summary      List available voices
// @Description  List the voices a campaign profile may reference. Falls back to the built-in baby voices when no speech vendor is configured.
// @Tags         Voices
// @Produce      json
// @Success      200 {array} model.VoiceInfo
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/voices [get]
func (h *VoicesHandler) List(c *fiber.Ctx) error {
	if h.speech != nil && h.speech.IsConfigured() {
		voices, err := h.speech.ListVoices(c.Context())
		if err != nil {
			return response.AIError(c, err.Error())
		}
		return response.OK(c, voices)
	}

	voices := make([]model.VoiceInfo, 0, len(model.BabyVoices))
	for name, id := range model.BabyVoices {
		voices = append(voices, model.VoiceInfo{VoiceID: id, Name: name})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })

	return response.OK(c, voices)
}
