package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

type settingType string

const (
	settingTypeBoolean settingType = "BOOLEAN"
	settingTypeInteger settingType = "INTEGER"
)

type allowedSetting struct {
	Key         string
	Type        settingType
	Description string
	Default     string
}

var allowedSettingKeys = []string{
	models.SettingMaintenanceMode,
	models.SettingDropDeadlineDays,
}

var allowedSettings = map[string]allowedSetting{
	models.SettingMaintenanceMode: {
		Key:         models.SettingMaintenanceMode,
		Type:        settingTypeBoolean,
		Description: "Restricts all non-admin users to read-only access",
		Default:     "false",
	},
	models.SettingDropDeadlineDays: {
		Key:         models.SettingDropDeadlineDays,
		Type:        settingTypeInteger,
		Description: "Days after registration during which a section can be dropped",
		Default:     "14",
	},
}

// SettingsServiceConfig tunes fallback behaviour.
type SettingsServiceConfig struct {
	DefaultDropDeadlineDays int
}

// SettingsService exposes the process-wide settings the engine depends on.
// Reads always hit storage so a maintenance toggle is visible to the next
// access check; there is deliberately no caching here.
type SettingsService struct {
	repo   settingsRepository
	logger *zap.Logger
	config SettingsServiceConfig
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsRepository, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDropDeadlineDays <= 0 {
		cfg.DefaultDropDeadlineDays = 14
	}
	return &SettingsService{repo: repo, logger: logger, config: cfg}
}

// IsMaintenanceMode reports whether the global read-only flag is on.
// A missing row means maintenance mode is off.
func (s *SettingsService) IsMaintenanceMode(ctx context.Context) (bool, error) {
	setting, err := s.repo.Get(ctx, models.SettingMaintenanceMode)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to read maintenance mode")
	}
	return strings.EqualFold(setting.Value, "true"), nil
}

// DropDeadlineDays returns the configured drop window in days, falling back
// to the default when the row is absent or malformed.
func (s *SettingsService) DropDeadlineDays(ctx context.Context) (int, error) {
	setting, err := s.repo.Get(ctx, models.SettingDropDeadlineDays)
	if err != nil {
		if err == sql.ErrNoRows {
			return s.config.DefaultDropDeadlineDays, nil
		}
		return 0, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to read drop deadline days")
	}
	days, convErr := strconv.Atoi(strings.TrimSpace(setting.Value))
	if convErr != nil || days <= 0 {
		s.logger.Warn("malformed drop_deadline_days setting, using default",
			zap.String("value", setting.Value), zap.Int("default", s.config.DefaultDropDeadlineDays))
		return s.config.DefaultDropDeadlineDays, nil
	}
	return days, nil
}

// List returns every allowed setting with stored or default values.
func (s *SettingsService) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list settings")
	}
	existing := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}

	items := make([]models.Setting, 0, len(allowedSettingKeys))
	for _, key := range allowedSettingKeys {
		meta := allowedSettings[key]
		if row, ok := existing[key]; ok {
			items = append(items, row)
			continue
		}
		description := meta.Description
		items = append(items, models.Setting{Key: key, Value: meta.Default, Description: &description})
	}
	return items, nil
}

// Update validates and persists a setting value. Only ADMIN may write.
func (s *SettingsService) Update(ctx context.Context, principal *models.Principal, key, value string) (*models.Setting, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change settings")
	}
	meta, ok := allowedSettings[key]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported setting key")
	}
	normalized, err := validateSettingValue(meta, value)
	if err != nil {
		return nil, err
	}

	description := meta.Description
	setting := &models.Setting{Key: key, Value: normalized, Description: &description}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update setting")
	}
	s.logger.Info("setting updated", zap.String("key", key), zap.String("value", normalized), zap.String("updated_by", principal.UserID))
	return setting, nil
}

// SetMaintenanceMode toggles the global read-only flag.
func (s *SettingsService) SetMaintenanceMode(ctx context.Context, principal *models.Principal, enabled bool) error {
	_, err := s.Update(ctx, principal, models.SettingMaintenanceMode, strconv.FormatBool(enabled))
	return err
}

func validateSettingValue(meta allowedSetting, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Type {
	case settingTypeBoolean:
		switch strings.ToLower(value) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		default:
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects a boolean value", meta.Key))
		}
	case settingTypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects a positive integer", meta.Key))
		}
		return strconv.Itoa(n), nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported setting type")
	}
}
