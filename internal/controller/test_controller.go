package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/service"
	"github.com/rs/zerolog/log"
)

type TestController struct {
	testService service.TestService
}

func NewTestController(testService service.TestService) *TestController {
	return &TestController{testService: testService}
}

// GetTest godoc
// @Summary Get a test with its questions
// @Description Questions are returned in their authored order, including the correct answers.
// @Tags Tests
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /tests/{id}/ [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	test, err := c.testService.GetTestDetails(id)
	if err != nil {
		log.Warn().Err(err).Uint("testID", id).Msg("GetTest: lookup failed")
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Test not found"})
		return
	}
	ctx.JSON(http.StatusOK, test)
}
