package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-platform-api/internal/models"
	"github.com/noah-isme/edu-platform-api/internal/service"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
	"github.com/noah-isme/edu-platform-api/pkg/response"
)

// EnrollmentHandler exposes the enrollment engine endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
	metrics *service.MetricsService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, metrics: metrics}
}

// Eligible godoc
// @Summary List students eligible for enrollment in a scope
// @Tags Enrollments
// @Produce json
// @Param grade_id query string true "Grade ID"
// @Param school_id query string true "School ID"
// @Param academic_session_id query string true "Academic session ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/eligible [get]
func (h *EnrollmentHandler) Eligible(c *gin.Context) {
	scope := models.SectionScope{
		GradeID:           c.Query("grade_id"),
		SchoolID:          c.Query("school_id"),
		AcademicSessionID: c.Query("academic_session_id"),
	}
	eligible, err := h.service.ListEligible(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eligible, nil)
}

// Enroll godoc
// @Summary Enroll a batch of students into a section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollStudentsRequest true "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.service.EnrollStudents(c.Request.Context(), req, identityFromContext(c))
	if err != nil {
		h.metrics.RecordEnrollmentOperation("enroll", "error")
		response.Error(c, err)
		return
	}
	for _, result := range results {
		outcome := string(result.Reason)
		h.metrics.RecordEnrollmentOperation("enroll", outcome)
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param student_id query string false "Student ID"
// @Param section_id query string false "Section ID"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("student_id")
	filter.SectionID = c.Query("section_id")
	filter.Status = models.EnrollmentStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Transfer godoc
// @Summary Transfer an active enrollment to another section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.TransferRequest true "Transfer payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/transfer [put]
func (h *EnrollmentHandler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.service.Transfer(c.Request.Context(), c.Param("id"), req, identityFromContext(c))
	if err != nil {
		h.metrics.RecordEnrollmentOperation("transfer", "error")
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentOperation("transfer", "ok")
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Withdraw godoc
// @Summary Withdraw an active enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [put]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	enrollment, err := h.service.Withdraw(c.Request.Context(), c.Param("id"), identityFromContext(c))
	if err != nil {
		h.metrics.RecordEnrollmentOperation("withdraw", "error")
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentOperation("withdraw", "ok")
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Roster godoc
// @Summary List the active roster of a section
// @Tags Enrollments
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/roster [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	roster, err := h.service.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
