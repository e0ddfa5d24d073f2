package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-erp-api/internal/models"
	"github.com/noah-isme/univ-erp-api/internal/service"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
	"github.com/noah-isme/univ-erp-api/pkg/response"
)

// AdminHandler exposes provisioning and maintenance endpoints.
type AdminHandler struct {
	admin    *service.AdminService
	settings *service.SettingsService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(admin *service.AdminService, settings *service.SettingsService) *AdminHandler {
	return &AdminHandler{admin: admin, settings: settings}
}

// CreateStudent godoc
// @Summary Provision a student
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/students [post]
func (h *AdminHandler) CreateStudent(c *gin.Context) {
	var req models.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.admin.CreateStudent(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// CreateInstructor godoc
// @Summary Provision an instructor
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.CreateInstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/instructors [post]
func (h *AdminHandler) CreateInstructor(c *gin.Context) {
	var req models.CreateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instructor payload"))
		return
	}
	instructor, err := h.admin.CreateInstructor(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// CreateCourse godoc
// @Summary Add a course to the catalog
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/courses [post]
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.admin.CreateCourse(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// CreateSection godoc
// @Summary Schedule a section
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/sections [post]
func (h *AdminHandler) CreateSection(c *gin.Context) {
	var req models.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	section, err := h.admin.CreateSection(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// AssignInstructor godoc
// @Summary Assign an instructor to a section
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body models.AssignInstructorRequest true "Assignment payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/sections/{id}/instructor [put]
func (h *AdminHandler) AssignInstructor(c *gin.Context) {
	var req models.AssignInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "instructor_id is required"))
		return
	}
	if err := h.admin.AssignInstructor(c.Request.Context(), principalFromContext(c), c.Param("id"), req.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnlockUser godoc
// @Summary Unlock a user account
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id}/unlock [post]
func (h *AdminHandler) UnlockUser(c *gin.Context) {
	if err := h.admin.UnlockUser(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSettings godoc
// @Summary List engine settings
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *AdminHandler) ListSettings(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

type maintenancePayload struct {
	Enabled bool `json:"enabled"`
}

// SetMaintenance godoc
// @Summary Toggle maintenance mode
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body maintenancePayload true "Desired state"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /admin/maintenance [post]
func (h *AdminHandler) SetMaintenance(c *gin.Context) {
	var req maintenancePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "enabled is required"))
		return
	}
	if err := h.settings.SetMaintenanceMode(c.Request.Context(), principalFromContext(c), req.Enabled); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateSetting godoc
// @Summary Update one engine setting
// @Tags Admin
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body models.UpdateSettingRequest true "New value"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/settings/{key} [put]
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req models.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "value is required"))
		return
	}
	setting, err := h.settings.Update(c.Request.Context(), principalFromContext(c), c.Param("key"), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}
