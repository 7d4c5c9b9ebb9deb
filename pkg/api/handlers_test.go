package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ghl-connector/pkg/attribution"
	"ghl-connector/pkg/models"
	"ghl-connector/pkg/services"
)

const testAdminToken = "admin-token"

// MockSubmissionService is a mock implementation of services.SubmissionService
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) OnEntryCreated(ctx context.Context, entryID, formID string, attr attribution.Store) services.Outcome {
	args := m.Called(ctx, entryID, formID, attr)
	return args.Get(0).(services.Outcome)
}

// MockConnectionService is a mock implementation of services.ConnectionService
type MockConnectionService struct {
	mock.Mock
}

func (m *MockConnectionService) TestConnection(ctx context.Context, accountID string) (*models.SubmissionResult, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmissionResult), args.Error(1)
}

func (m *MockConnectionService) Provision(ctx context.Context, accountID string) (models.AttributeMapping, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.AttributeMapping), args.Error(1)
}

func (m *MockConnectionService) ClearCache(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *MockConnectionService) ClearAllCaches(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConnectionService) GetFormFields(ctx context.Context, formID string) ([]models.FormField, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FormField), args.Error(1)
}

// MockConfigStore is a mock implementation of store.ConfigStore
type MockConfigStore struct {
	mock.Mock
}

func (m *MockConfigStore) Settings(ctx context.Context) *models.Settings {
	return &models.Settings{}
}

func (m *MockConfigStore) SaveResult(ctx context.Context, result models.SubmissionResult) error {
	return m.Called(ctx, result).Error(0)
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

type testServer struct {
	router     *gin.Engine
	submission *MockSubmissionService
	connection *MockConnectionService
	store      *MockConfigStore
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)

	s := &testServer{
		submission: new(MockSubmissionService),
		connection: new(MockConnectionService),
		store:      new(MockConfigStore),
	}

	router := gin.New()
	router.Use(attribution.Middleware(attribution.NewTracker(attribution.DefaultTTL), attribution.MiddlewareOptions{
		SkipPrefixes: []string{AdminPrefix},
	}))
	RegisterRoutes(router, NewHandlers(s.submission, s.connection, s.store, zap.NewNop()), testAdminToken)
	s.router = router
	return s
}

func (s *testServer) do(method, target string, body any, admin bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/health", nil, false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestTrackSetsAttributionCookies(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/track?gclid=abc123&utm_source=google&foo=bar", nil, false)

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookies := map[string]string{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c.Value
		assert.True(t, c.HttpOnly)
	}
	assert.Equal(t, map[string]string{
		attribution.CookiePrefix + "gclid":      "abc123",
		attribution.CookiePrefix + "utm_source": "google",
	}, cookies)
}

func TestHandleEntryCreatedUsesVisitorCookies(t *testing.T) {
	s := newTestServer()
	s.submission.On("OnEntryCreated", mock.Anything, "100", "3", mock.MatchedBy(func(attr attribution.Store) bool {
		return attr != nil && attr.Get("gclid") == "abc123"
	})).Return(services.Outcome{State: services.StateDelivered, Success: true, Status: 201})

	raw, _ := json.Marshal(models.EntryCreatedEvent{EntryID: "100", FormID: "3"})
	req := httptest.NewRequest(http.MethodPost, "/webhook/entry-created", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: attribution.CookiePrefix + "gclid", Value: "abc123"})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "delivered", body["state"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(201), body["status"])
	s.submission.AssertExpectations(t)
}

func TestHandleEntryCreatedUsesRelayedAttribution(t *testing.T) {
	s := newTestServer()
	s.submission.On("OnEntryCreated", mock.Anything, "100", "3", mock.MatchedBy(func(attr attribution.Store) bool {
		return attr.Get("utm_source") == "newsletter"
	})).Return(services.Outcome{State: services.StateAborted, Reason: services.ReasonNoContactIdentifier})

	w := s.do(http.MethodPost, "/webhook/entry-created", models.EntryCreatedEvent{
		EntryID:     "100",
		FormID:      "3",
		Attribution: map[string]string{"utm_source": "newsletter"},
	}, false)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "aborted", body["state"])
	assert.Equal(t, services.ReasonNoContactIdentifier, body["reason"])
	assert.NotContains(t, body, "status")
}

func TestHandleEntryCreatedAcceptsNumericIDs(t *testing.T) {
	s := newTestServer()
	s.submission.On("OnEntryCreated", mock.Anything, "100", "3", mock.Anything).
		Return(services.Outcome{State: services.StateSkipped, Reason: services.ReasonFormNotEnabled})

	req := httptest.NewRequest(http.MethodPost, "/webhook/entry-created", strings.NewReader(`{"entry_id":100,"form_id":3}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "skipped", decode(t, w)["state"])
	s.submission.AssertExpectations(t)
}

func TestHandleEntryCreatedRejectsIncompleteEvent(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/webhook/entry-created", map[string]string{"entry_id": "100"}, false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.submission.AssertNotCalled(t, "OnEntryCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/admin/results", nil, false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesDoNotCapture(t *testing.T) {
	s := newTestServer()
	s.connection.On("GetFormFields", mock.Anything, "3").Return(nil, nil)

	w := s.do(http.MethodGet, "/admin/forms/3/fields?gclid=abc", nil, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, []any{}, decode(t, w)["fields"])
}

func TestGetFormFields(t *testing.T) {
	s := newTestServer()
	s.connection.On("GetFormFields", mock.Anything, "3").Return([]models.FormField{{ID: "10", Label: "Email"}}, nil)
	s.connection.On("GetFormFields", mock.Anything, "4").Return(nil, errors.New("upstream down"))

	w := s.do(http.MethodGet, "/admin/forms/3/fields", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{map[string]any{"id": "10", "label": "Email"}}, decode(t, w)["fields"])

	w = s.do(http.MethodGet, "/admin/forms/4/fields", nil, true)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTestConnectionResponses(t *testing.T) {
	s := newTestServer()
	s.connection.On("TestConnection", mock.Anything, "loc_1").Return(&models.SubmissionResult{
		Kind: models.ResultKindTest, AccountID: "loc_1", Success: true, Status: 201,
		Message: "Test contact sent successfully.",
	}, nil)
	s.connection.On("TestConnection", mock.Anything, "").Return(nil, services.ErrAccountNotFound)
	s.connection.On("TestConnection", mock.Anything, "loc_2").
		Return(nil, &services.ConfigurationError{AccountID: "loc_2", Missing: []string{"auth_token"}})

	w := s.do(http.MethodPost, "/admin/test-connection", map[string]string{"account_id": "loc_1"}, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Test contact sent successfully.", decode(t, w)["message"])

	w = s.do(http.MethodPost, "/admin/test-connection", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/admin/test-connection", map[string]string{"account_id": "loc_2"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProvisionResponses(t *testing.T) {
	s := newTestServer()
	s.connection.On("Provision", mock.Anything, "loc_1").Return(models.AttributeMapping{"gclid": "cf_1", "utm_source": "cf_2"}, nil)
	s.connection.On("Provision", mock.Anything, "loc_2").Return(nil, errors.New("failed to provision fields: API returned status 500: boom"))

	w := s.do(http.MethodPost, "/admin/provision", map[string]string{"account_id": "loc_1"}, true)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Successfully provisioned 2 custom fields.", body["message"])
	assert.Equal(t, float64(2), body["field_count"])

	w = s.do(http.MethodPost, "/admin/provision", map[string]string{"account_id": "loc_2"}, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["message"], "status 500")
}

func TestCacheRoutes(t *testing.T) {
	s := newTestServer()
	s.connection.On("ClearAllCaches", mock.Anything).Return(nil)
	s.connection.On("ClearCache", mock.Anything, "loc_1").Return(nil)

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/admin/cache", nil, true).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/admin/cache/loc_1", nil, true).Code)
	s.connection.AssertExpectations(t)
}

func TestGetResultsTruncatesBodies(t *testing.T) {
	s := newTestServer()
	long := strings.Repeat("x", 5000)
	s.store.On("LatestResult", mock.Anything, models.ResultKindSubmission).Return(&models.SubmissionResult{
		Kind:      models.ResultKindSubmission,
		AccountID: "loc_1",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    500,
		Response:  long,
		Payload:   map[string]any{"email": "j@example.com"},
		Context:   models.ResultContext{TokenHint: "********1234"},
	}, nil)
	s.store.On("LatestResult", mock.Anything, models.ResultKindTest).Return(nil, nil)

	w := s.do(http.MethodGet, "/admin/results", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	submission := body["submission"].(map[string]any)
	assert.Equal(t, maxResponseDisplay+len("…"), len(submission["response"].(string)))
	assert.Equal(t, `{"email":"j@example.com"}`, submission["payload"])
	assert.Equal(t, "********1234", submission["token_hint"])
	assert.Nil(t, body["test"])
}

func TestGetResultsForAccount(t *testing.T) {
	s := newTestServer()
	s.store.On("LastResult", mock.Anything, models.ResultKindSubmission, "loc_1").Return(nil, nil)
	s.store.On("LastResult", mock.Anything, models.ResultKindTest, "loc_1").Return(nil, errors.New("db down"))

	w := s.do(http.MethodGet, "/admin/results?account_id=loc_1", nil, true)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
