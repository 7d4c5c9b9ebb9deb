package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ghl-connector/pkg/clients/forms"
	"ghl-connector/pkg/clients/ghl"
	"ghl-connector/pkg/models"
	"ghl-connector/pkg/payload"
	"ghl-connector/pkg/provisioning"
	"ghl-connector/pkg/store"
	"ghl-connector/pkg/utils"
)

// ErrAccountNotFound is returned for account ids absent from settings
var ErrAccountNotFound = errors.New("account not configured")

const scopeHint = "Your private integration token does not have permission to read or create custom fields. " +
	"Generate a new token with the Custom Fields scope enabled."

// testAttribution is injected into connectivity test contacts.
var testAttribution = models.AttributionSnapshot{
	models.ParamGclid:       "test_gclid_123456789",
	models.ParamUTMSource:   "test_source",
	models.ParamUTMMedium:   "test_medium",
	models.ParamUTMCampaign: "test_campaign",
	models.ParamUTMTerm:     "test_term",
	models.ParamUTMContent:  "test_content",
}

// Provisioner is the cache-aware field provisioning the admin operations drive
type Provisioner interface {
	FieldMappingProvider
	ClearCache(ctx context.Context, accountID string) error
	ClearAllCaches(ctx context.Context) error
}

// ConnectionService defines the operator actions run against a configured account
type ConnectionService interface {
	TestConnection(ctx context.Context, accountID string) (*models.SubmissionResult, error)
	Provision(ctx context.Context, accountID string) (models.AttributeMapping, error)
	ClearCache(ctx context.Context, accountID string) error
	ClearAllCaches(ctx context.Context) error
	GetFormFields(ctx context.Context, formID string) ([]models.FormField, error)
}

type connectionServiceImpl struct {
	configStore store.ConfigStore
	formsClient forms.Client
	ghlClient   ghl.Client
	provisioner Provisioner
	logger      *zap.Logger
	now         func() time.Time
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	configStore store.ConfigStore,
	formsClient forms.Client,
	ghlClient ghl.Client,
	provisioner Provisioner,
	logger *zap.Logger,
) ConnectionService {
	return &connectionServiceImpl{
		configStore: configStore,
		formsClient: formsClient,
		ghlClient:   ghlClient,
		provisioner: provisioner,
		logger:      logger,
		now:         time.Now,
	}
}

// TestConnection sends a mock contact to the account and stores the outcome as
// the account's latest test record. A transport failure is returned as an error
// alongside the stored record.
func (s *connectionServiceImpl) TestConnection(ctx context.Context, accountID string) (*models.SubmissionResult, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.provisioner.ClearCache(ctx, account.AccountID); err != nil {
		s.logger.Warn("Failed to clear field mapping cache", zap.String("account_id", account.AccountID), zap.Error(err))
	}
	fieldMapping := s.provisioner.GetFieldMapping(ctx, account.AccountID, account.AuthToken, true)

	s.logger.Info("Test contact: field mapping retrieved after provisioning",
		zap.String("account_id", account.AccountID),
		zap.Int("mapping_count", len(fieldMapping)))

	contact := &models.ContactPayload{
		LocationID: account.AccountID,
		Email:      fmt.Sprintf("john.doe+ghl-test-%s@example.com", uuid.NewString()[:8]),
		Phone:      "+15555550123",
		FirstName:  "John",
		LastName:   "Doe",
		Tags:       []string{"Test", "AQM Connector"},
		CustomFields: []models.CustomFieldValue{
			{ID: "custom_test_note", Value: "Test connection from ghl-connector"},
		},
	}
	payload.MergeAttribution(contact, testAttribution, fieldMapping)
	body := payload.Wire(contact)

	result := &models.SubmissionResult{
		Kind:      models.ResultKindTest,
		AccountID: account.AccountID,
		Payload:   body,
		Context:   models.ResultContext{TokenHint: utils.MaskSecret(account.AuthToken)},
	}

	resp, err := s.ghlClient.CreateContact(ctx, body, account.AuthToken)
	if err != nil {
		s.logger.Error("Test contact: request error", zap.String("account_id", account.AccountID), zap.Error(err))
		result.Message = fmt.Sprintf("Request error: %v", err)
		s.persist(ctx, result)
		return result, err
	}

	result.Status = resp.StatusCode
	result.Response = resp.Body
	result.Success = resp.OK()
	if resp.OK() {
		result.Message = "Test contact sent successfully. " + provisioningSummary(len(fieldMapping))
	} else {
		result.Message = fmt.Sprintf("Non-2xx response (%d): %s", resp.StatusCode, utils.Truncate(resp.Body, 200))
	}
	s.persist(ctx, result)

	return result, nil
}

// Provision clears the account's cached mapping and provisions again. An empty
// mapping is an error; a second list call tells a scope problem apart from
// other API failures.
func (s *connectionServiceImpl) Provision(ctx context.Context, accountID string) (models.AttributeMapping, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.provisioner.ClearCache(ctx, account.AccountID); err != nil {
		s.logger.Warn("Failed to clear field mapping cache", zap.String("account_id", account.AccountID), zap.Error(err))
	}
	fieldMapping := s.provisioner.GetFieldMapping(ctx, account.AccountID, account.AuthToken, true)
	if len(fieldMapping) > 0 {
		s.logger.Info("Provisioned custom fields",
			zap.String("account_id", account.AccountID),
			zap.Int("field_count", len(fieldMapping)))
		return fieldMapping, nil
	}

	_, diagErr := s.ghlClient.ListCustomFields(ctx, account.AccountID, account.AuthToken)
	var apiErr *ghl.APIError
	switch {
	case errors.As(diagErr, &apiErr) && apiErr.StatusCode == 401:
		return nil, fmt.Errorf("failed to provision fields: %s", scopeHint)
	case errors.As(diagErr, &apiErr):
		return nil, fmt.Errorf("failed to provision fields: API returned status %d: %s",
			apiErr.StatusCode, utils.Truncate(apiErr.Body, 200))
	case diagErr != nil:
		return nil, fmt.Errorf("failed to provision fields: %w", diagErr)
	default:
		return nil, errors.New("failed to provision fields, check logs for details")
	}
}

func (s *connectionServiceImpl) ClearCache(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrAccountNotFound
	}
	return s.provisioner.ClearCache(ctx, accountID)
}

func (s *connectionServiceImpl) ClearAllCaches(ctx context.Context) error {
	return s.provisioner.ClearAllCaches(ctx)
}

// GetFormFields lists the data fields of a source form.
func (s *connectionServiceImpl) GetFormFields(ctx context.Context, formID string) ([]models.FormField, error) {
	return s.formsClient.GetFormFields(ctx, formID)
}

func (s *connectionServiceImpl) account(ctx context.Context, accountID string) (models.AccountConfig, error) {
	settings := s.configStore.Settings(ctx)
	if accountID == "" && settings != nil && len(settings.Accounts) == 1 {
		accountID = settings.Accounts[0].AccountID
	}
	account, ok := settings.Account(accountID)
	if !ok {
		return models.AccountConfig{}, ErrAccountNotFound
	}
	if !account.Configured() {
		return models.AccountConfig{}, &ConfigurationError{
			AccountID: account.AccountID,
			Missing:   missingFields(account.AccountID, account.AuthToken),
		}
	}
	return account, nil
}

func (s *connectionServiceImpl) persist(ctx context.Context, result *models.SubmissionResult) {
	result.Timestamp = s.now().UTC()
	if err := s.configStore.SaveResult(ctx, *result); err != nil {
		s.logger.Error("Failed to store test result", zap.Error(err))
	}
}

func provisioningSummary(count int) string {
	expected := provisioning.ExpectedCount()
	switch {
	case count >= expected:
		return fmt.Sprintf("All %d attribution custom fields were provisioned and included in the test contact.", count)
	case count > 0:
		return fmt.Sprintf("Warning: only %d of %d expected custom fields were provisioned. Some attribution values may be missing.", count, expected)
	default:
		return "Warning: custom fields were not provisioned. Attribution values were not included in the test contact."
	}
}
