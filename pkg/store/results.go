package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ghl-connector/pkg/models"
)

// resultRecord keeps the latest result of each kind per account.
type resultRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Kind      string    `gorm:"size:20;not null;uniqueIndex:idx_result_kind_account"`
	AccountID string    `gorm:"type:text;not null;uniqueIndex:idx_result_kind_account"`
	Success   bool      `gorm:"not null"`
	Status    int       `gorm:"not null"`
	Payload   string    `gorm:"type:text"`
	Response  string    `gorm:"type:text"`
	Message   string    `gorm:"type:text"`
	EntryID   string    `gorm:"type:text"`
	FormID    string    `gorm:"type:text"`
	TokenHint string    `gorm:"size:20"`
	Timestamp time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (resultRecord) TableName() string {
	return "submission_results"
}

// ResultRepository persists the most recent SubmissionResult per kind and account
type ResultRepository interface {
	Save(ctx context.Context, result models.SubmissionResult) error
	Latest(ctx context.Context, kind, accountID string) (*models.SubmissionResult, error)
	LatestOfKind(ctx context.Context, kind string) (*models.SubmissionResult, error)
}

type resultRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewResultRepository creates a repository on an opened database
func NewResultRepository(db *gorm.DB, logger *zap.Logger) ResultRepository {
	return &resultRepository{
		db:     db,
		logger: logger,
	}
}

// Save overwrites the stored result for the result's kind and account.
func (r *resultRepository) Save(ctx context.Context, result models.SubmissionResult) error {
	payload := ""
	if len(result.Payload) > 0 {
		raw, err := json.Marshal(result.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode result payload: %w", err)
		}
		payload = string(raw)
	}

	record := &resultRecord{
		Kind:      result.Kind,
		AccountID: result.AccountID,
		Success:   result.Success,
		Status:    result.Status,
		Payload:   payload,
		Response:  result.Response,
		Message:   result.Message,
		EntryID:   result.Context.EntryID,
		FormID:    result.Context.FormID,
		TokenHint: result.Context.TokenHint,
		Timestamp: result.Timestamp.UTC(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kind"}, {Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"success", "status", "payload", "response", "message",
			"entry_id", "form_id", "token_hint", "timestamp", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		r.logger.Error("Failed to save submission result",
			zap.String("kind", result.Kind),
			zap.String("account_id", result.AccountID),
			zap.Error(err))
		return fmt.Errorf("failed to save submission result: %w", err)
	}
	return nil
}

// Latest returns the stored result for kind and account, or nil if none exists.
func (r *resultRepository) Latest(ctx context.Context, kind, accountID string) (*models.SubmissionResult, error) {
	return r.first(r.db.WithContext(ctx).Where("kind = ? AND account_id = ?", kind, accountID))
}

// LatestOfKind returns the most recent result of kind across all accounts.
func (r *resultRepository) LatestOfKind(ctx context.Context, kind string) (*models.SubmissionResult, error) {
	return r.first(r.db.WithContext(ctx).Where("kind = ?", kind).Order("timestamp DESC"))
}

func (r *resultRepository) first(query *gorm.DB) (*models.SubmissionResult, error) {
	var record resultRecord
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load submission result: %w", err)
	}
	return record.toModel()
}

func (rec resultRecord) toModel() (*models.SubmissionResult, error) {
	result := &models.SubmissionResult{
		Kind:      rec.Kind,
		AccountID: rec.AccountID,
		Timestamp: rec.Timestamp,
		Success:   rec.Success,
		Status:    rec.Status,
		Response:  rec.Response,
		Message:   rec.Message,
		Context: models.ResultContext{
			EntryID:   rec.EntryID,
			FormID:    rec.FormID,
			TokenHint: rec.TokenHint,
		},
	}
	if rec.Payload != "" {
		if err := json.Unmarshal([]byte(rec.Payload), &result.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode result payload: %w", err)
		}
	}
	return result, nil
}
