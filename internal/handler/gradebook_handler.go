package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-erp-api/internal/service"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
	"github.com/noah-isme/univ-erp-api/pkg/response"
)

// GradebookHandler exposes grade entry and final grade endpoints.
type GradebookHandler struct {
	service *service.GradebookService
}

// NewGradebookHandler creates a new handler.
func NewGradebookHandler(svc *service.GradebookService) *GradebookHandler {
	return &GradebookHandler{service: svc}
}

type gradeComponentPayload struct {
	Component string  `json:"component" binding:"required"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score" binding:"required"`
	Weight    float64 `json:"weight" binding:"required"`
}

// EnterComponent godoc
// @Summary Record a grade component
// @Description Inserts or overwrites a scored component for an enrollment
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body gradeComponentPayload true "Component payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{id}/grades [put]
func (h *GradebookHandler) EnterComponent(c *gin.Context) {
	var payload gradeComponentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	grade, err := h.service.EnterComponent(c.Request.Context(), principalFromContext(c),
		c.Param("id"), payload.Component, payload.Score, payload.MaxScore, payload.Weight)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ComputeFinal godoc
// @Summary Compute the final grade
// @Description Folds all components into a percentage and letter grade
// @Tags Gradebook
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{id}/final-grade [post]
func (h *GradebookHandler) ComputeFinal(c *gin.Context) {
	result, err := h.service.ComputeFinalGrade(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// EnrollmentGrades godoc
// @Summary List grades of one enrollment
// @Description Component rows for the owning student, section instructor or admin
// @Tags Gradebook
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{id}/grades [get]
func (h *GradebookHandler) EnrollmentGrades(c *gin.Context) {
	grades, err := h.service.GradesForEnrollment(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// MyGrades godoc
// @Summary My grades
// @Description All component rows of the authenticated student with course context
// @Tags Gradebook
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /grades [get]
func (h *GradebookHandler) MyGrades(c *gin.Context) {
	grades, err := h.service.MyGrades(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Roster godoc
// @Summary Section roster
// @Description Enrollment rows of a section for its instructor or admin
// @Tags Gradebook
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sections/{id}/roster [get]
func (h *GradebookHandler) Roster(c *gin.Context) {
	rows, err := h.service.Roster(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
