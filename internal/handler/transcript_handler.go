package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-erp-api/internal/models"
	"github.com/noah-isme/univ-erp-api/internal/service"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
	"github.com/noah-isme/univ-erp-api/pkg/response"
)

// TranscriptHandler exposes asynchronous transcript generation.
type TranscriptHandler struct {
	service *service.TranscriptService
}

// NewTranscriptHandler creates a new handler.
func NewTranscriptHandler(svc *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{service: svc}
}

// Request godoc
// @Summary Request a transcript
// @Description Enqueues transcript generation in CSV or PDF format
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param payload body object{student_id=string,format=string} true "Transcript request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /transcripts [post]
func (h *TranscriptHandler) Request(c *gin.Context) {
	var payload struct {
		StudentID string `json:"student_id"`
		Format    string `json:"format" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format is required"))
		return
	}

	format := models.TranscriptFormat(strings.ToUpper(payload.Format))
	job, err := h.service.Request(c.Request.Context(), principalFromContext(c), payload.StudentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Transcript job status
// @Tags Transcripts
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transcripts/{id} [get]
func (h *TranscriptHandler) Status(c *gin.Context) {
	job, err := h.service.Status(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a generated transcript
// @Tags Transcripts
// @Produce octet-stream
// @Param id path string true "Job ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transcripts/{id}/download [get]
func (h *TranscriptHandler) Download(c *gin.Context) {
	data, filename, err := h.service.Download(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if strings.HasSuffix(filename, ".pdf") {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}
