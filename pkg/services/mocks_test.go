package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ghl-connector/pkg/clients/ghl"
	"ghl-connector/pkg/models"
)

// MockConfigStore is a mock implementation of store.ConfigStore
type MockConfigStore struct {
	mock.Mock
	settings *models.Settings
}

func (m *MockConfigStore) Settings(ctx context.Context) *models.Settings {
	return m.settings
}

func (m *MockConfigStore) SaveResult(ctx context.Context, result models.SubmissionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockConfigStore) LastResult(ctx context.Context, kind, accountID string) (*models.SubmissionResult, error) {
	args := m.Called(ctx, kind, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmissionResult), args.Error(1)
}

func (m *MockConfigStore) LatestResult(ctx context.Context, kind string) (*models.SubmissionResult, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmissionResult), args.Error(1)
}

// MockFormsClient is a mock implementation of forms.Client
type MockFormsClient struct {
	mock.Mock
}

func (m *MockFormsClient) GetEntry(ctx context.Context, entryID string) (*models.SubmissionEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmissionEntry), args.Error(1)
}

func (m *MockFormsClient) GetFormFields(ctx context.Context, formID string) ([]models.FormField, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FormField), args.Error(1)
}

// MockGHLClient is a mock implementation of ghl.Client
type MockGHLClient struct {
	mock.Mock
}

func (m *MockGHLClient) CreateContact(ctx context.Context, payload map[string]any, token string) (*ghl.Response, error) {
	args := m.Called(ctx, payload, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghl.Response), args.Error(1)
}

func (m *MockGHLClient) ListCustomFields(ctx context.Context, locationID, token string) ([]ghl.CustomField, error) {
	args := m.Called(ctx, locationID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghl.CustomField), args.Error(1)
}

func (m *MockGHLClient) CreateCustomField(ctx context.Context, locationID, token string, field ghl.CustomFieldSpec) (string, error) {
	args := m.Called(ctx, locationID, token, field)
	return args.String(0), args.Error(1)
}

// MockProvisioner is a mock implementation of Provisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) GetFieldMapping(ctx context.Context, accountID, token string, forceRefresh bool) models.AttributeMapping {
	args := m.Called(ctx, accountID, token, forceRefresh)
	return args.Get(0).(models.AttributeMapping)
}

func (m *MockProvisioner) ClearCache(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockProvisioner) ClearAllCaches(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testSettings() *models.Settings {
	return &models.Settings{
		EnableLogging: true,
		Accounts: []models.AccountConfig{
			{
				AccountID: "loc_1",
				AuthToken: "pit-secret-token-1234",
				Tags:      []string{"Lead"},
				Bindings: map[string]models.FormBinding{
					"3": {
						FormID:  "3",
						Mapping: models.FieldMapping{Email: "10", Phone: "11"},
					},
				},
			},
		},
	}
}
