package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/services"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	exportService     services.ExportService
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	exportService services.ExportService,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		exportService:     exportService,
	}
}

// CreateAssessment starts a new phonics check record
// @Summary Create assessment record
// @Tags assessments
// @Accept json
// @Produce json
// @Param assessment body services.CreateAssessmentRequest true "Assessment data"
// @Success 201 {object} models.AssessmentRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments [post]
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	h.LogRequest(c, "Creating assessment record")

	var req services.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.assessmentService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetAssessment retrieves an assessment record by ID
// @Summary Get assessment record
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.AssessmentRecord
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	record, err := h.assessmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	outcomes, err := record.OutcomeList()
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to decode outcomes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":   record,
		"outcomes": outcomes,
	})
}

// ListAssessments lists assessment records with optional filters
// @Summary List assessment records
// @Tags assessments
// @Produce json
// @Success 200 {object} ListResponse
// @Router /assessments [get]
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	limit, offset := ParsePagination(c)

	filters := repositories.AssessmentFilters{
		TermSetID:   c.Query("term_set_id"),
		StudentName: c.Query("student_name"),
		Limit:       limit,
		Offset:      offset,
		SortBy:      c.DefaultQuery("sort_by", "date"),
		SortOrder:   c.DefaultQuery("sort_order", "desc"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.CheckStatus(raw)
		filters.Status = &status
	}

	var ok bool
	if filters.DateFrom, ok = ParseDateQuery(c, "date_from"); !ok {
		return
	}
	if filters.DateTo, ok = ParseDateQuery(c, "date_to"); !ok {
		return
	}

	records, total, err := h.assessmentService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: records, Total: total, Limit: limit, Offset: offset})
}

// DeleteAssessment removes an assessment record
// @Summary Delete assessment record
// @Tags assessments
// @Param id path string true "Assessment ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting assessment record", "assessment_id", id)

	if err := h.assessmentService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Assessment record deleted"})
}

// RecordOutcome sets the result for one word slot
// @Summary Record word outcome
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param outcome body services.RecordOutcomeRequest true "Outcome data"
// @Success 200 {object} models.AssessmentRecord
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/outcomes [put]
func (h *AssessmentHandler) RecordOutcome(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.assessmentService.RecordOutcome(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// CompleteAssessment finalizes an in-progress check
// @Summary Complete assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param completion body services.CompleteAssessmentRequest true "Completion data"
// @Success 200 {object} models.AssessmentRecord
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/complete [post]
func (h *AssessmentHandler) CompleteAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.CompleteAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.assessmentService.Complete(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// MarkNotDone records that the check could not be administered
// @Summary Mark assessment not done
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param reason body services.MarkNotDoneRequest true "Reason"
// @Success 200 {object} models.AssessmentRecord
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/not-done [post]
func (h *AssessmentHandler) MarkNotDone(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.MarkNotDoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.assessmentService.MarkNotDone(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ExportAssessment downloads the record patched into the marking-sheet
// template. Any internal failure surfaces as one generic message; the
// detail goes to the log only.
// @Summary Export marking sheet
// @Tags assessments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Assessment ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assessments/{id}/export [get]
func (h *AssessmentHandler) ExportAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Exporting assessment record", "assessment_id", id)

	record, err := h.assessmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	result, err := h.exportService.ExportAssessment(c.Request.Context(), record)
	if err != nil {
		h.LogError(c, err, "Export failed", "assessment_id", id)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Export failed. Please try again or contact support.",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, xlsxContentType, result.Content)
}

func (h *AssessmentHandler) handleServiceError(c *gin.Context, err error) {
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

	switch {
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment record not found",
		})
	case errors.Is(err, services.ErrTermSetNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Term set not found",
		})
	case errors.Is(err, services.ErrAssessmentNotEditable):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Assessment record cannot be modified in its current status",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrOutcomeIndexOutOfRange):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Word index is outside the term set",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Assessment operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
