package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/babypodcast/api/internal/model"
	"github.com/babypodcast/api/internal/service"
	"github.com/babypodcast/api/pkg/response"
)

type ScriptHandler struct {
	service   *service.ScriptService
	validator *validator.Validate
}

func NewScriptHandler(svc *service.ScriptService, v *validator.Validate) *ScriptHandler {
	return &ScriptHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/scripts/generate
// @Summary      Generate podcast script
// @Description  Generate an alternating two-host dialogue script for a topic
// @Tags         Scripts
// @Accept       json
// @Produce      json
// @Param        request body model.ScriptGenerateRequest true "Script generation request"
// @Success      200 {object} model.ScriptGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/scripts/generate [post]
func (h *ScriptHandler) Generate(c *fiber.Ctx) error {
	var req model.ScriptGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Generate(c.Context(), &req)
	if err != nil {
		return response.AIError(c, err.Error())
	}

	return response.OK(c, result)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
