package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ghl-connector/pkg/clients/ghl"
	"ghl-connector/pkg/models"
)

func fullMapping() models.AttributeMapping {
	mapping := models.AttributeMapping{}
	for _, key := range models.TrackedParams {
		mapping[key] = "cf_" + key
	}
	return mapping
}

func newConnectionFixture(settings *models.Settings) (*MockConfigStore, *MockFormsClient, *MockGHLClient, *MockProvisioner, ConnectionService) {
	store := &MockConfigStore{settings: settings}
	formsClient := new(MockFormsClient)
	ghlClient := new(MockGHLClient)
	provisioner := new(MockProvisioner)
	service := NewConnectionService(store, formsClient, ghlClient, provisioner, zap.NewNop())
	return store, formsClient, ghlClient, provisioner, service
}

func TestTestConnectionSendsMockContact(t *testing.T) {
	store, _, ghlClient, provisioner, service := newConnectionFixture(testSettings())
	provisioner.On("ClearCache", mock.Anything, "loc_1").Return(nil)
	provisioner.On("GetFieldMapping", mock.Anything, "loc_1", "pit-secret-token-1234", true).Return(fullMapping())

	var sent map[string]any
	ghlClient.On("CreateContact", mock.Anything, mock.Anything, "pit-secret-token-1234").Run(func(args mock.Arguments) {
		sent = args.Get(1).(map[string]any)
	}).Return(&ghl.Response{StatusCode: 201, Body: `{"contact":{"id":"c_9"}}`}, nil)
	store.On("SaveResult", mock.Anything, mock.MatchedBy(func(r models.SubmissionResult) bool {
		return r.Kind == models.ResultKindTest && r.Success
	})).Return(nil).Once()

	result, err := service.TestConnection(context.Background(), "loc_1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 201, result.Status)
	assert.Contains(t, result.Message, "All 6 attribution custom fields")
	assert.Equal(t, "********1234", result.Context.TokenHint)

	email, _ := sent["email"].(string)
	assert.True(t, strings.HasPrefix(email, "john.doe+ghl-test-"))
	assert.True(t, strings.HasSuffix(email, "@example.com"))
	assert.Equal(t, "+15555550123", sent["phone"])
	assert.Equal(t, []any{"Test", "AQM Connector"}, sent["tags"])

	fields := sent["customFields"].([]any)
	assert.Len(t, fields, 7)
	assert.Equal(t, map[string]any{"id": "cf_gclid", "value": "test_gclid_123456789"}, fields[1])
	store.AssertExpectations(t)
}

func TestTestConnectionReportsPartialProvisioning(t *testing.T) {
	store, _, ghlClient, provisioner, service := newConnectionFixture(testSettings())
	provisioner.On("ClearCache", mock.Anything, "loc_1").Return(nil)
	provisioner.On("GetFieldMapping", mock.Anything, "loc_1", mock.Anything, true).
		Return(models.AttributeMapping{"gclid": "cf_1", "utm_source": "cf_2"})
	ghlClient.On("CreateContact", mock.Anything, mock.Anything, mock.Anything).
		Return(&ghl.Response{StatusCode: 200, Body: `{}`}, nil)
	store.On("SaveResult", mock.Anything, mock.Anything).Return(nil)

	result, err := service.TestConnection(context.Background(), "")

	require.NoError(t, err)
	assert.Contains(t, result.Message, "only 2 of 6")
}

func TestTestConnectionNon2xx(t *testing.T) {
	store, _, ghlClient, provisioner, service := newConnectionFixture(testSettings())
	provisioner.On("ClearCache", mock.Anything, "loc_1").Return(nil)
	provisioner.On("GetFieldMapping", mock.Anything, "loc_1", mock.Anything, true).Return(models.AttributeMapping{})
	ghlClient.On("CreateContact", mock.Anything, mock.Anything, mock.Anything).
		Return(&ghl.Response{StatusCode: 401, Body: `{"message":"Invalid JWT"}`}, nil)
	store.On("SaveResult", mock.Anything, mock.Anything).Return(nil)

	result, err := service.TestConnection(context.Background(), "loc_1")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, `Non-2xx response (401): {"message":"Invalid JWT"}`, result.Message)
}

func TestTestConnectionTransportError(t *testing.T) {
	store, _, ghlClient, provisioner, service := newConnectionFixture(testSettings())
	provisioner.On("ClearCache", mock.Anything, "loc_1").Return(nil)
	provisioner.On("GetFieldMapping", mock.Anything, "loc_1", mock.Anything, true).Return(models.AttributeMapping{})
	ghlClient.On("CreateContact", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &ghl.TransportError{Op: "POST", Err: errors.New("timeout")})
	store.On("SaveResult", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := service.TestConnection(context.Background(), "loc_1")

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Message, "Request error")
	store.AssertExpectations(t)
}

func TestTestConnectionRequiresConfiguration(t *testing.T) {
	settings := testSettings()
	settings.Accounts[0].AuthToken = ""
	_, _, ghlClient, provisioner, service := newConnectionFixture(settings)

	_, err := service.TestConnection(context.Background(), "loc_1")

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	provisioner.AssertNotCalled(t, "ClearCache", mock.Anything, mock.Anything)
	ghlClient.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything)

	_, err = service.TestConnection(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestProvision(t *testing.T) {
	_, _, _, provisioner, service := newConnectionFixture(testSettings())
	provisioner.On("ClearCache", mock.Anything, "loc_1").Return(nil)
	provisioner.On("GetFieldMapping", mock.Anything, "loc_1", mock.Anything, true).Return(fullMapping())

	mapping, err := service.Provision(context.Background(), "loc_1")

	require.NoError(t, err)
	assert.Len(t, mapping, 6)
}

func TestProvisionDiagnosesFailure(t *testing.T) {
	tests := []struct {
		name    string
		listErr error
		want    string
	}{
		{
			name:    "scope",
			listErr: &ghl.APIError{StatusCode: 401, Body: `{"message":"The token is not authorized for this scope."}`},
			want:    "Custom Fields scope",
		},
		{
			name:    "other status",
			listErr: &ghl.APIError{StatusCode: 500, Body: "boom"},
			want:    "API returned status 500: boom",
		},
		{
			name:    "transport",
			listErr: &ghl.TransportError{Op: "GET", Err: errors.New("no route to host")},
			want:    "no route to host",
		},
		{
			name: "list succeeds",
			want: "check logs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ghlClient, provisioner, service := newConnectionFixture(testSettings())
			provisioner.On("ClearCache", mock.Anything, "loc_1").Return(nil)
			provisioner.On("GetFieldMapping", mock.Anything, "loc_1", mock.Anything, true).Return(models.AttributeMapping{})
			if tt.listErr != nil {
				ghlClient.On("ListCustomFields", mock.Anything, "loc_1", mock.Anything).Return(nil, tt.listErr)
			} else {
				ghlClient.On("ListCustomFields", mock.Anything, "loc_1", mock.Anything).Return([]ghl.CustomField{}, nil)
			}

			_, err := service.Provision(context.Background(), "loc_1")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCacheOperations(t *testing.T) {
	_, _, _, provisioner, service := newConnectionFixture(testSettings())
	provisioner.On("ClearCache", mock.Anything, "loc_1").Return(nil)
	provisioner.On("ClearAllCaches", mock.Anything).Return(nil)

	require.NoError(t, service.ClearCache(context.Background(), "loc_1"))
	require.NoError(t, service.ClearAllCaches(context.Background()))
	assert.ErrorIs(t, service.ClearCache(context.Background(), ""), ErrAccountNotFound)
	provisioner.AssertExpectations(t)
}

func TestGetFormFields(t *testing.T) {
	_, formsClient, _, _, service := newConnectionFixture(testSettings())
	formsClient.On("GetFormFields", mock.Anything, "3").Return([]models.FormField{{ID: "10", Label: "Email"}}, nil)

	fields, err := service.GetFormFields(context.Background(), "3")

	require.NoError(t, err)
	assert.Equal(t, []models.FormField{{ID: "10", Label: "Email"}}, fields)
}
