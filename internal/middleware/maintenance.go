package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-erp-api/internal/service"
)

// MaintenanceHeader is set on every response so clients can surface a
// read-only banner without an extra round trip.
const MaintenanceHeader = "X-Maintenance-Mode"

// MaintenanceBanner annotates responses with the current maintenance flag.
// Enforcement happens in the services; this is informational only.
func MaintenanceBanner(settings *service.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if settings != nil {
			if on, err := settings.IsMaintenanceMode(c.Request.Context()); err == nil && on {
				c.Writer.Header().Set(MaintenanceHeader, "true")
			}
		}
		c.Next()
	}
}
