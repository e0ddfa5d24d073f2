package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-erp-api/internal/service"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
	"github.com/noah-isme/univ-erp-api/pkg/response"
)

// CatalogHandler exposes the course and section catalog.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Courses godoc
// @Summary List courses
// @Description Returns the full course catalog
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /catalog/courses [get]
func (h *CatalogHandler) Courses(c *gin.Context) {
	courses, err := h.service.Courses(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Sections godoc
// @Summary Browse sections for a term
// @Description Lists sections with seat availability for one semester and year
// @Tags Catalog
// @Produce json
// @Param semester query string true "Semester"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /catalog/sections [get]
func (h *CatalogHandler) Sections(c *gin.Context) {
	semester := c.Query("semester")
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}

	views, err := h.service.BrowseTerm(c.Request.Context(), principalFromContext(c), semester, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// CourseSections godoc
// @Summary Browse sections of a course
// @Description Lists all sections offered for a course code
// @Tags Catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{code}/sections [get]
func (h *CatalogHandler) CourseSections(c *gin.Context) {
	views, err := h.service.BrowseCourse(c.Request.Context(), principalFromContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Section godoc
// @Summary Get one section
// @Description Returns a section with its current seat availability
// @Tags Catalog
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/sections/{id} [get]
func (h *CatalogHandler) Section(c *gin.Context) {
	view, err := h.service.Section(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
