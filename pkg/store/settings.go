package store

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"ghl-connector/pkg/models"
)

// ConfigStore is the relay's view of its settings and its result side channel
type ConfigStore interface {
	Settings(ctx context.Context) *models.Settings
	SaveResult(ctx context.Context, result models.SubmissionResult) error
	LastResult(ctx context.Context, kind, accountID string) (*models.SubmissionResult, error)
	LatestResult(ctx context.Context, kind string) (*models.SubmissionResult, error)
}

// SettingsStore holds the current settings, swapped wholesale on reload.
type SettingsStore struct {
	settings atomic.Pointer[models.Settings]
	results  ResultRepository
	logger   *zap.Logger
}

// NewSettingsStore creates a store serving initial until the next Replace.
func NewSettingsStore(initial *models.Settings, results ResultRepository, logger *zap.Logger) *SettingsStore {
	s := &SettingsStore{results: results, logger: logger}
	if initial == nil {
		initial = &models.Settings{}
	}
	s.settings.Store(initial)
	return s
}

func (s *SettingsStore) Settings(_ context.Context) *models.Settings {
	return s.settings.Load()
}

// Replace swaps in reloaded settings.
func (s *SettingsStore) Replace(settings *models.Settings) {
	if settings == nil {
		return
	}
	s.settings.Store(settings)
	s.logger.Info("Settings reloaded", zap.Int("accounts", len(settings.Accounts)))
}

func (s *SettingsStore) SaveResult(ctx context.Context, result models.SubmissionResult) error {
	return s.results.Save(ctx, result)
}

func (s *SettingsStore) LastResult(ctx context.Context, kind, accountID string) (*models.SubmissionResult, error) {
	return s.results.Latest(ctx, kind, accountID)
}

func (s *SettingsStore) LatestResult(ctx context.Context, kind string) (*models.SubmissionResult, error) {
	return s.results.LatestOfKind(ctx, kind)
}
