package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/services"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/gin-gonic/gin"
)

// Uploads past this size are rejected before parsing.
const maxUploadBytes = 10 << 20

type TermSetHandler struct {
	BaseHandler
	termSetService services.TermSetService
}

func NewTermSetHandler(termSetService services.TermSetService, logger utils.Logger) *TermSetHandler {
	return &TermSetHandler{
		BaseHandler:    NewBaseHandler(logger),
		termSetService: termSetService,
	}
}

// ImportTermSet ingests an uploaded word-list document
// @Summary Import term set
// @Description Parses an uploaded spreadsheet or PDF into a new term set
// @Tags term-sets
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Word list document (.xlsx, .xls, .csv, .pdf)"
// @Success 201 {object} models.TermSet
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /term-sets/import [post]
func (h *TermSetHandler) ImportTermSet(c *gin.Context) {
	h.LogRequest(c, "Importing term set")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: "expected multipart form field \"file\"",
		})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File too large",
			Details: "uploads are limited to 10MB",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to read upload", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	set, err := h.termSetService.ImportFromFile(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, set)
}

// ListTermSets lists term sets with optional filters
// @Summary List term sets
// @Tags term-sets
// @Produce json
// @Success 200 {object} ListResponse
// @Router /term-sets [get]
func (h *TermSetHandler) ListTermSets(c *gin.Context) {
	limit, offset := ParsePagination(c)
	filters := repositories.TermSetFilters{
		Name:      c.Query("name"),
		Source:    c.Query("source"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	sets, total, err := h.termSetService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: sets, Total: total, Limit: limit, Offset: offset})
}

// GetTermSet retrieves a term set by ID, including its word list
// @Summary Get term set
// @Tags term-sets
// @Produce json
// @Param id path string true "Term set ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /term-sets/{id} [get]
func (h *TermSetHandler) GetTermSet(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	set, err := h.termSetService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	words, err := set.WordList()
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to decode word list", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"term_set": set,
		"words":    words,
	})
}

// DeleteTermSet deletes a term set that no assessment record references
// @Summary Delete term set
// @Tags term-sets
// @Param id path string true "Term set ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /term-sets/{id} [delete]
func (h *TermSetHandler) DeleteTermSet(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting term set", "term_set_id", id)

	if err := h.termSetService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Term set deleted"})
}

func (h *TermSetHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationError,
		})
		return
	}

	var ingestError *services.IngestError
	if errors.As(err, &ingestError) {
		h.LogWarn(c, "Ingestion rejected", "reason", ingestError.Message)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Could not build a word list from this file",
			Details: ingestError,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUnsupportedFileType):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported file type",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrTermSetNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Term set not found",
		})
	case errors.Is(err, services.ErrTermSetInUse):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Term set is referenced by assessment records",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "A term set with this name already exists",
		})
	default:
		h.LogError(c, err, "Term set operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
