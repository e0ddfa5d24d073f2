package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-erp-api/internal/service"
	"github.com/noah-isme/univ-erp-api/pkg/response"
)

// StatsHandler exposes section statistics.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// MySections godoc
// @Summary My sections
// @Description Sections assigned to the authenticated instructor
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /my/sections [get]
func (h *StatsHandler) MySections(c *gin.Context) {
	views, err := h.service.MySections(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// SectionStatistics godoc
// @Summary Section statistics
// @Description Status counts and final grade distribution of one section
// @Tags Statistics
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id}/statistics [get]
func (h *StatsHandler) SectionStatistics(c *gin.Context) {
	stats, err := h.service.SectionStatistics(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
