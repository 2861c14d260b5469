package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-platform-api/internal/models"
	"github.com/noah-isme/edu-platform-api/internal/service"
	"github.com/noah-isme/edu-platform-api/pkg/response"
)

// ReportHandler exposes roster export endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// ExportRoster godoc
// @Summary Export the active roster of a section
// @Tags Reports
// @Produce json
// @Param id path string true "Section ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /reports/sections/{id}/export [post]
func (h *ReportHandler) ExportRoster(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.ExportRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportEligible godoc
// @Summary Export the eligible student list of a placement scope
// @Tags Reports
// @Produce json
// @Param grade_id query string true "Grade ID"
// @Param school_id query string true "School ID"
// @Param academic_session_id query string true "Academic session ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /reports/eligible/export [post]
func (h *ReportHandler) ExportEligible(c *gin.Context) {
	scope := models.SectionScope{
		GradeID:           c.Query("grade_id"),
		SchoolID:          c.Query("school_id"),
		AcademicSessionID: c.Query("academic_session_id"),
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.ExportEligible(c.Request.Context(), scope, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a rendered roster export
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.File)
}
