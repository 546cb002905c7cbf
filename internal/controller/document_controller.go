package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/service"
	"github.com/lshigami/Margay/internal/util"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type DocumentController struct {
	documentService   service.DocumentService
	generationService service.TestGenerationService
}

func NewDocumentController(documentService service.DocumentService, generationService service.TestGenerationService) *DocumentController {
	return &DocumentController{documentService: documentService, generationService: generationService}
}

// ListDocuments godoc
// @Summary List the current user's documents
// @Tags Documents
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} dto.DocumentResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /documents/ [get]
func (c *DocumentController) ListDocuments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	docs, err := c.documentService.List(claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("ListDocuments: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to retrieve documents"})
		return
	}
	ctx.JSON(http.StatusOK, docs)
}

// UploadDocument godoc
// @Summary Upload a study document
// @Description Accepts one multipart file plus an optional title (defaults to the filename). Text is extracted immediately.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "Study document (PDF, DOCX or TXT)"
// @Param title formData string false "Document title"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} dto.ErrorResponse "No file or extraction failure"
// @Router /documents/ [post]
func (c *DocumentController) UploadDocument(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "No file provided"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Failed to read uploaded file"})
		return
	}

	title := ctx.PostForm("title")

	doc, err := c.documentService.Upload(ctx.Request.Context(), claims.UserID, fileHeader.Filename, title, data)
	if err != nil {
		log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("UploadDocument: service error")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, doc)
}

// GetDocument godoc
// @Summary Get one document
// @Tags Documents
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /documents/{id}/ [get]
func (c *DocumentController) GetDocument(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	doc, err := c.documentService.Get(claims.UserID, id)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, service.ErrDocumentForbidden) {
			status = http.StatusForbidden
		}
		ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags Documents
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Document ID"
// @Success 204 "Deleted"
// @Failure 404 {object} dto.ErrorResponse
// @Router /documents/{id}/ [delete]
func (c *DocumentController) DeleteDocument(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.documentService.Delete(ctx.Request.Context(), claims.UserID, id); err != nil {
		status := http.StatusNotFound
		if errors.Is(err, service.ErrDocumentForbidden) {
			status = http.StatusForbidden
		}
		ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GenerateTest godoc
// @Summary Generate a test from a document
// @Description Request an AI-generated test over the document's extracted text. May return fewer questions than requested.
// @Tags Documents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Document ID"
// @Param config body dto.GenerateTestRequest true "Exam type, question count, difficulty and time limit"
// @Success 201 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid generation parameters"
// @Failure 404 {object} dto.ErrorResponse "Document not found"
// @Router /documents/{id}/generate_test/ [post]
func (c *DocumentController) GenerateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.GenerateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	test, err := c.generationService.GenerateTest(ctx.Request.Context(), claims.UserID, id, req)
	if err != nil {
		log.Error().Err(err).Uint("documentID", id).Msg("GenerateTest: service error")
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrDocumentForbidden):
			status = http.StatusForbidden
		case errors.Is(err, gorm.ErrRecordNotFound):
			status = http.StatusNotFound
		}
		ctx.JSON(status, dto.ErrorResponse{Message: "Failed to generate test", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, test)
}

// parseIDParam parses a numeric path parameter, writing the 400 itself when
// the value is not a positive integer.
func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	val, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid ID format"})
		return 0, false
	}
	return uint(val), true
}
