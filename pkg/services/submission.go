package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ghl-connector/pkg/attribution"
	"ghl-connector/pkg/clients/forms"
	"ghl-connector/pkg/clients/ghl"
	"ghl-connector/pkg/logger"
	"ghl-connector/pkg/mapping"
	"ghl-connector/pkg/models"
	"ghl-connector/pkg/payload"
	"ghl-connector/pkg/store"
	"ghl-connector/pkg/utils"
)

// OutcomeState is the terminal state of one submission event
type OutcomeState string

const (
	StateSkipped   OutcomeState = "skipped"
	StateAborted   OutcomeState = "aborted"
	StateDelivered OutcomeState = "delivered"
)

// Outcome reasons for skipped and aborted submissions
const (
	ReasonFormNotEnabled       = "form not enabled"
	ReasonMissingConfiguration = "missing configuration"
	ReasonEntryNotFound        = "entry not found"
	ReasonNoContactIdentifier  = "no contact identifier"
	ReasonRequestError         = "request error"
)

// Outcome describes how a submission event ended.
type Outcome struct {
	State   OutcomeState
	Reason  string
	Success bool
	Status  int
	Body    string
	Err     error
}

// FieldMappingProvider supplies the provisioned attribution field ids of an account
type FieldMappingProvider interface {
	GetFieldMapping(ctx context.Context, accountID, token string, forceRefresh bool) models.AttributeMapping
}

// SubmissionService defines the interface for relaying form submissions to the CRM
type SubmissionService interface {
	OnEntryCreated(ctx context.Context, entryID, formID string, attr attribution.Store) Outcome
}

type submissionServiceImpl struct {
	configStore store.ConfigStore
	formsClient forms.Client
	ghlClient   ghl.Client
	provisioner FieldMappingProvider
	tracker     *attribution.Tracker
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	configStore store.ConfigStore,
	formsClient forms.Client,
	ghlClient ghl.Client,
	provisioner FieldMappingProvider,
	tracker *attribution.Tracker,
	logger *zap.Logger,
) SubmissionService {
	return &submissionServiceImpl{
		configStore: configStore,
		formsClient: formsClient,
		ghlClient:   ghlClient,
		provisioner: provisioner,
		tracker:     tracker,
		logger:      logger,
		now:         time.Now,
	}
}

// OnEntryCreated relays one completed form entry to the account bound to its form.
func (s *submissionServiceImpl) OnEntryCreated(ctx context.Context, entryID, formID string, attr attribution.Store) Outcome {
	settings := s.configStore.Settings(ctx)
	log := logger.Relay(s.logger, settings != nil && settings.EnableLogging).
		With(zap.String("entry_id", entryID), zap.String("form_id", formID))

	account, binding, ok := settings.BindingFor(formID)
	if !ok {
		log.Debug("Form not enabled, skipping")
		return Outcome{State: StateSkipped, Reason: ReasonFormNotEnabled}
	}

	result := models.SubmissionResult{
		Kind:      models.ResultKindSubmission,
		AccountID: account.AccountID,
		Context: models.ResultContext{
			EntryID:   entryID,
			FormID:    formID,
			TokenHint: utils.MaskSecret(account.AuthToken),
		},
	}

	if !account.Configured() {
		err := &ConfigurationError{AccountID: account.AccountID, Missing: missingFields(account.AccountID, account.AuthToken)}
		log.Warn("Missing configuration, aborting send", zap.Error(err))
		result.Message = "Missing configuration. Aborting send."
		s.persist(ctx, log, result)
		return Outcome{State: StateAborted, Reason: ReasonMissingConfiguration, Err: err}
	}

	entry, err := s.formsClient.GetEntry(ctx, entryID)
	if err != nil {
		log.Warn("Unable to load entry", zap.Error(err))
		result.Message = fmt.Sprintf("Unable to load entry: %v", err)
		s.persist(ctx, log, result)
		return Outcome{State: StateAborted, Reason: ReasonEntryNotFound, Err: err}
	}

	contact := payload.NewContactPayload(account.AccountID, mapping.Resolve(*entry, binding), account.Tags)
	if contact.Email == "" && contact.Phone == "" {
		err := &ValidationError{EntryID: entryID, FormID: formID}
		log.Warn("Email or phone required, both missing")
		result.Message = "Email or phone required; both missing."
		s.persist(ctx, log, result)
		return Outcome{State: StateAborted, Reason: ReasonNoContactIdentifier, Err: err}
	}

	fieldMapping := s.provisioner.GetFieldMapping(ctx, account.AccountID, account.AuthToken, false)
	var params models.AttributionSnapshot
	if attr != nil {
		params = s.tracker.GetTrackedParameters(attr)
	}
	merged := payload.MergeAttribution(contact, params, fieldMapping)

	body := payload.Wire(contact)
	result.Payload = body

	log.Info("Sending contact",
		zap.String("account_id", account.AccountID),
		zap.String("token", utils.MaskSecret(account.AuthToken)),
		zap.Int("attribution_fields", merged),
		zap.Int("provisioned_fields", len(fieldMapping)))

	resp, err := s.ghlClient.CreateContact(ctx, body, account.AuthToken)
	if err != nil {
		var transportErr *ghl.TransportError
		if errors.As(err, &transportErr) {
			log.Error("Error sending to CRM", zap.Error(transportErr.Err))
		} else {
			log.Error("Error sending to CRM", zap.Error(err))
		}
		result.Message = fmt.Sprintf("Request error: %v", err)
		s.persist(ctx, log, result)
		return Outcome{State: StateAborted, Reason: ReasonRequestError, Err: err}
	}

	result.Status = resp.StatusCode
	result.Response = resp.Body
	result.Success = resp.OK()

	if !resp.OK() {
		log.Warn("Non-2xx response from CRM",
			zap.Int("status", resp.StatusCode),
			zap.String("body", utils.Truncate(resp.Body, 500)))
		result.Message = fmt.Sprintf("Non-2xx response (%d): %s", resp.StatusCode, utils.Truncate(resp.Body, 200))
	} else {
		log.Info("Successfully sent contact to CRM", zap.Int("status", resp.StatusCode))
		result.Message = "Contact sent successfully."
	}
	s.persist(ctx, log, result)

	return Outcome{
		State:   StateDelivered,
		Success: resp.OK(),
		Status:  resp.StatusCode,
		Body:    resp.Body,
	}
}

func (s *submissionServiceImpl) persist(ctx context.Context, log *zap.Logger, result models.SubmissionResult) {
	result.Timestamp = s.now().UTC()
	if err := s.configStore.SaveResult(ctx, result); err != nil {
		log.Error("Failed to store submission result", zap.Error(err))
	}
}
