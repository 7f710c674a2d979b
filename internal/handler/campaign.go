package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/babypodcast/api/internal/model"
	"github.com/babypodcast/api/internal/service"
	"github.com/babypodcast/api/internal/store"
	"github.com/babypodcast/api/pkg/response"
)

type CampaignHandler struct {
	service   *service.CampaignService
	validator *validator.Validate
}

func NewCampaignHandler(svc *service.CampaignService, v *validator.Validate) *CampaignHandler {
	return &CampaignHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/campaigns/generate
// @Summary      Start campaign generation
// @Description  Queue an asynchronous campaign job that renders every scene in the script
// @Tags         Campaigns
// @Accept       json
// @Produce      json
// @Param        request body model.CampaignRequest true "Campaign request"
// @Success      202 {object} model.CampaignResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/campaigns/generate [post]
func (h *CampaignHandler) Generate(c *fiber.Ctx) error {
	var req model.CampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return response.ValidationError(c, verr.Message, nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/campaigns/status/:jobId
// @Summary      Get campaign job status
// @Description  Get the current status, scene counts and per-scene results of a campaign job
// @Tags         Campaigns
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.Job
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/campaigns/status/{jobId} [get]
func (h *CampaignHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, job)
}

// Cancel handles POST /api/campaigns/cancel/:jobId
// @Summary      Cancel campaign job
// @Description  Cancel a queued or running campaign job
// @Tags         Campaigns
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.CampaignCancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/campaigns/cancel/{jobId} [post]
func (h *CampaignHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job already completed" {
			return response.ValidationError(c, "Job already completed", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
