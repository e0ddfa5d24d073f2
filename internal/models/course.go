package models

import (
	"strings"
	"time"
)

// Course describes an offering in the catalog.
type Course struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Title         string    `db:"title" json:"title"`
	Credits       int       `db:"credits" json:"credits"`
	Prerequisites *string   `db:"prerequisites" json:"prerequisites,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PrerequisiteCodes splits the comma-separated prerequisite column into
// trimmed course codes. An empty or missing column yields no codes.
func (c *Course) PrerequisiteCodes() []string {
	if c == nil || c.Prerequisites == nil {
		return nil
	}
	parts := strings.Split(*c.Prerequisites, ",")
	codes := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			codes = append(codes, trimmed)
		}
	}
	return codes
}
