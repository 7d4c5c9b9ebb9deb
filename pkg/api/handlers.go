package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ghl-connector/pkg/attribution"
	"ghl-connector/pkg/models"
	"ghl-connector/pkg/services"
	"ghl-connector/pkg/store"
	"ghl-connector/pkg/utils"
)

// Display limits for stored request and response bodies
const (
	maxPayloadDisplay  = 2000
	maxResponseDisplay = 1000
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	submissionService services.SubmissionService
	connectionService services.ConnectionService
	configStore       store.ConfigStore
	logger            *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	submissionService services.SubmissionService,
	connectionService services.ConnectionService,
	configStore store.ConfigStore,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		submissionService: submissionService,
		connectionService: connectionService,
		configStore:       configStore,
		logger:            logger,
	}
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Track is the attribution beacon. Capture already happened in middleware.
func (h *Handlers) Track(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusNoContent)
}

// HandleEntryCreated relays a completed form entry to the CRM
func (h *Handlers) HandleEntryCreated(c *gin.Context) {
	var event models.EntryCreatedEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("Invalid entry-created event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	attr := attribution.StoreFrom(c)
	if len(event.Attribution) > 0 {
		attr = attribution.MapStore(event.Attribution)
	}

	outcome := h.submissionService.OnEntryCreated(c.Request.Context(), string(event.EntryID), string(event.FormID), attr)

	response := gin.H{
		"state": outcome.State,
	}
	if outcome.Reason != "" {
		response["reason"] = outcome.Reason
	}
	if outcome.State == services.StateDelivered {
		response["success"] = outcome.Success
		response["status"] = outcome.Status
	}
	c.JSON(http.StatusOK, response)
}

// GetFormFields lists the data fields of a form for building mappings
func (h *Handlers) GetFormFields(c *gin.Context) {
	formID := c.Param("formId")

	fields, err := h.connectionService.GetFormFields(c.Request.Context(), formID)
	if err != nil {
		h.logger.Error("Failed to list form fields", zap.String("form_id", formID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Unable to load form fields"})
		return
	}

	if fields == nil {
		fields = []models.FormField{}
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

type accountRequest struct {
	AccountID string `json:"account_id"`
}

// TestConnection sends a mock contact to the account
func (h *Handlers) TestConnection(c *gin.Context) {
	var req accountRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.connectionService.TestConnection(c.Request.Context(), req.AccountID)
	if err != nil && result == nil {
		h.respondAccountError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"message": result.Message,
			"result":  newResultView(result),
		})
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"message": result.Message,
		"result":  newResultView(result),
	})
}

// Provision clears an account's field cache and provisions again
func (h *Handlers) Provision(c *gin.Context) {
	var req accountRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	mapping, err := h.connectionService.Provision(c.Request.Context(), req.AccountID)
	if err != nil {
		var cfgErr *services.ConfigurationError
		if errors.Is(err, services.ErrAccountNotFound) || errors.As(err, &cfgErr) {
			h.respondAccountError(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     fmt.Sprintf("Successfully provisioned %d custom fields.", len(mapping)),
		"field_count": len(mapping),
		"mapping":     mapping,
	})
}

// ClearAllCaches forgets every account's provisioned field mapping
func (h *Handlers) ClearAllCaches(c *gin.Context) {
	if err := h.connectionService.ClearAllCaches(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear field caches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear caches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Field mapping caches cleared."})
}

// ClearCache forgets one account's provisioned field mapping
func (h *Handlers) ClearCache(c *gin.Context) {
	accountID := c.Param("accountId")
	if err := h.connectionService.ClearCache(c.Request.Context(), accountID); err != nil {
		h.logger.Error("Failed to clear field cache", zap.String("account_id", accountID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Field mapping cache cleared."})
}

// GetResults returns the latest submission and test records
func (h *Handlers) GetResults(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := c.Query("account_id")

	response := gin.H{}
	for _, kind := range []string{models.ResultKindSubmission, models.ResultKindTest} {
		var (
			result *models.SubmissionResult
			err    error
		)
		if accountID != "" {
			result, err = h.configStore.LastResult(ctx, kind, accountID)
		} else {
			result, err = h.configStore.LatestResult(ctx, kind)
		}
		if err != nil {
			h.logger.Error("Failed to load result", zap.String("kind", kind), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load results"})
			return
		}
		response[kind] = newResultView(result)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handlers) respondAccountError(c *gin.Context, err error) {
	var cfgErr *services.ConfigurationError
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Account not configured."})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Add the account id and auth token to the settings before testing."})
	default:
		h.logger.Error("Admin request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}

// bindOptionalJSON decodes the body when one was sent.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return false
	}
	return true
}

type resultView struct {
	Timestamp time.Time `json:"timestamp"`
	AccountID string    `json:"account_id"`
	Success   bool      `json:"success"`
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Payload   string    `json:"payload,omitempty"`
	Response  string    `json:"response,omitempty"`
	EntryID   string    `json:"entry_id,omitempty"`
	FormID    string    `json:"form_id,omitempty"`
	TokenHint string    `json:"token_hint,omitempty"`
}

// newResultView renders a stored result for operators with bodies truncated.
func newResultView(result *models.SubmissionResult) *resultView {
	if result == nil {
		return nil
	}
	view := &resultView{
		Timestamp: result.Timestamp,
		AccountID: result.AccountID,
		Success:   result.Success,
		Status:    result.Status,
		Message:   result.Message,
		Response:  utils.Truncate(result.Response, maxResponseDisplay),
		EntryID:   result.Context.EntryID,
		FormID:    result.Context.FormID,
		TokenHint: result.Context.TokenHint,
	}
	if len(result.Payload) > 0 {
		if raw, err := json.Marshal(result.Payload); err == nil {
			view.Payload = utils.Truncate(string(raw), maxPayloadDisplay)
		}
	}
	return view
}
