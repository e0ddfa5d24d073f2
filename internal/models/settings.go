package models

import "time"

// Setting represents a persisted process-wide configuration entry.
type Setting struct {
	Key         string    `db:"setting_key" json:"key"`
	Value       string    `db:"setting_value" json:"value"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Setting keys consumed by the engine.
const (
	SettingMaintenanceMode  = "maintenance_mode"
	SettingDropDeadlineDays = "drop_deadline_days"
)
