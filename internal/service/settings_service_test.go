package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type settingsRepoStub struct {
	items map[string]models.Setting
	err   error
}

func (s *settingsRepoStub) Get(ctx context.Context, key string) (*models.Setting, error) {
	if s.err != nil {
		return nil, s.err
	}
	if item, ok := s.items[key]; ok {
		return &item, nil
	}
	return nil, sql.ErrNoRows
}

func (s *settingsRepoStub) List(ctx context.Context) ([]models.Setting, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Setting, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out, nil
}

func (s *settingsRepoStub) Upsert(ctx context.Context, setting *models.Setting) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Setting)
	}
	s.items[setting.Key] = *setting
	return nil
}

func adminPrincipal() *models.Principal {
	return &models.Principal{UserID: "admin-1", Username: "admin", Role: models.RoleAdmin}
}

func TestMaintenanceModeDefaultsToOff(t *testing.T) {
	svc := NewSettingsService(&settingsRepoStub{}, nil, SettingsServiceConfig{})
	on, err := svc.IsMaintenanceMode(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
}

func TestMaintenanceModeReadsStoredValue(t *testing.T) {
	repo := &settingsRepoStub{items: map[string]models.Setting{
		models.SettingMaintenanceMode: {Key: models.SettingMaintenanceMode, Value: "TRUE"},
	}}
	svc := NewSettingsService(repo, nil, SettingsServiceConfig{})
	on, err := svc.IsMaintenanceMode(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
}

func TestDropDeadlineDaysDefaultWhenMissing(t *testing.T) {
	svc := NewSettingsService(&settingsRepoStub{}, nil, SettingsServiceConfig{DefaultDropDeadlineDays: 14})
	days, err := svc.DropDeadlineDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 14, days)
}

func TestDropDeadlineDaysDefaultWhenMalformed(t *testing.T) {
	repo := &settingsRepoStub{items: map[string]models.Setting{
		models.SettingDropDeadlineDays: {Key: models.SettingDropDeadlineDays, Value: "soon"},
	}}
	svc := NewSettingsService(repo, nil, SettingsServiceConfig{DefaultDropDeadlineDays: 14})
	days, err := svc.DropDeadlineDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 14, days)
}

func TestDropDeadlineDaysStoredValueWins(t *testing.T) {
	repo := &settingsRepoStub{items: map[string]models.Setting{
		models.SettingDropDeadlineDays: {Key: models.SettingDropDeadlineDays, Value: "7"},
	}}
	svc := NewSettingsService(repo, nil, SettingsServiceConfig{DefaultDropDeadlineDays: 14})
	days, err := svc.DropDeadlineDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, days)
}

func TestUpdateRequiresAdmin(t *testing.T) {
	svc := NewSettingsService(&settingsRepoStub{}, nil, SettingsServiceConfig{})
	_, err := svc.Update(context.Background(), studentPrincipal(), models.SettingMaintenanceMode, "true")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateRejectsUnknownKey(t *testing.T) {
	svc := NewSettingsService(&settingsRepoStub{}, nil, SettingsServiceConfig{})
	_, err := svc.Update(context.Background(), adminPrincipal(), "theme_color", "blue")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateValidatesBoolean(t *testing.T) {
	repo := &settingsRepoStub{}
	svc := NewSettingsService(repo, nil, SettingsServiceConfig{})

	_, err := svc.Update(context.Background(), adminPrincipal(), models.SettingMaintenanceMode, "maybe")
	require.Error(t, err)

	setting, err := svc.Update(context.Background(), adminPrincipal(), models.SettingMaintenanceMode, " True ")
	require.NoError(t, err)
	assert.Equal(t, "true", setting.Value)
}

func TestUpdateValidatesPositiveInteger(t *testing.T) {
	svc := NewSettingsService(&settingsRepoStub{}, nil, SettingsServiceConfig{})

	_, err := svc.Update(context.Background(), adminPrincipal(), models.SettingDropDeadlineDays, "-3")
	require.Error(t, err)

	setting, err := svc.Update(context.Background(), adminPrincipal(), models.SettingDropDeadlineDays, "21")
	require.NoError(t, err)
	assert.Equal(t, "21", setting.Value)
}

func TestSetMaintenanceModeRoundTrip(t *testing.T) {
	repo := &settingsRepoStub{}
	svc := NewSettingsService(repo, nil, SettingsServiceConfig{})

	require.NoError(t, svc.SetMaintenanceMode(context.Background(), adminPrincipal(), true))
	on, err := svc.IsMaintenanceMode(context.Background())
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, svc.SetMaintenanceMode(context.Background(), adminPrincipal(), false))
	on, err = svc.IsMaintenanceMode(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
}

func TestListIncludesDefaultsForMissingRows(t *testing.T) {
	repo := &settingsRepoStub{items: map[string]models.Setting{
		models.SettingMaintenanceMode: {Key: models.SettingMaintenanceMode, Value: "true"},
	}}
	svc := NewSettingsService(repo, nil, SettingsServiceConfig{DefaultDropDeadlineDays: 14})

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	values := map[string]string{}
	for _, item := range items {
		values[item.Key] = item.Value
	}
	assert.Equal(t, "true", values[models.SettingMaintenanceMode])
	assert.Equal(t, "14", values[models.SettingDropDeadlineDays])
}
