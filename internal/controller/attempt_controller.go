package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/service"
	"github.com/lshigami/Margay/internal/util"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AttemptController struct {
	attemptService service.AttemptService
}

func NewAttemptController(attemptService service.AttemptService) *AttemptController {
	return &AttemptController{attemptService: attemptService}
}

// CreateAttempt godoc
// @Summary Start a test attempt
// @Tags Attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param attempt body dto.AttemptCreateRequest true "Test to attempt"
// @Success 201 {object} dto.AttemptDetailDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /test-attempts/ [post]
func (c *AttemptController) CreateAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req dto.AttemptCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	attempt, err := c.attemptService.CreateAttempt(claims.UserID, req.Test)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, attempt)
}

// GetAttempt godoc
// @Summary Get an attempt with its graded answers
// @Tags Attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /test-attempts/{id}/ [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.attemptService.GetAttemptDetails(claims.UserID, id)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, service.ErrAttemptForbidden) {
			status = http.StatusForbidden
		}
		ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// SubmitAttempt godoc
// @Summary Submit answers for an attempt
// @Description Grades every submitted answer, stores the results and returns the completed attempt. An attempt can only be submitted once.
// @Tags Attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Attempt ID"
// @Param answers body dto.AttemptSubmitRequest true "Answers keyed by question ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Attempt already submitted"
// @Router /test-attempts/{id}/submit/ [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.AttemptSubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	attempt, err := c.attemptService.SubmitAttempt(ctx.Request.Context(), claims.UserID, id, req)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", id).Msg("SubmitAttempt: submission failed")
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrAttemptForbidden):
			status = http.StatusForbidden
		case errors.Is(err, service.ErrAttemptCompleted):
			status = http.StatusConflict
		case errors.Is(err, gorm.ErrRecordNotFound):
			status = http.StatusNotFound
		}
		ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}
