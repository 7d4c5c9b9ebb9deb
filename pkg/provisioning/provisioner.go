package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ghl-connector/pkg/cache"
	"ghl-connector/pkg/clients/ghl"
	"ghl-connector/pkg/models"
	"ghl-connector/pkg/utils"
)

const (
	// DefaultFreshness is how long a provisioned mapping is trusted without re-listing
	DefaultFreshness = 6 * time.Hour

	mappingKeyPrefix   = "aqm_ghl_field_mapping_"
	freshnessKeyPrefix = "aqm_ghl_field_mapping_transient_"

	fieldNamePrefix = "AQM - "
	fieldDataType   = "TEXT"
)

// FieldAPI is the part of the CRM client the provisioner needs
type FieldAPI interface {
	ListCustomFields(ctx context.Context, locationID, token string) ([]ghl.CustomField, error)
	CreateCustomField(ctx context.Context, locationID, token string, field ghl.CustomFieldSpec) (string, error)
}

// RequiredField is one entry of the attribution custom field catalog
type RequiredField struct {
	Key  string
	Spec ghl.CustomFieldSpec
}

// Catalog lists the custom fields every account must carry, one per attribution key.
func Catalog() []RequiredField {
	catalog := make([]RequiredField, 0, len(models.TrackedParams))
	for _, key := range models.TrackedParams {
		catalog = append(catalog, RequiredField{
			Key:  key,
			Spec: ghl.CustomFieldSpec{Name: fieldNamePrefix + key, DataType: fieldDataType},
		})
	}
	return catalog
}

// ProvisioningError wraps a failed list or create call. It is logged, never
// returned from GetFieldMapping.
type ProvisioningError struct {
	Op  string
	Key string
	Err error
}

func (e *ProvisioningError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Provisioner keeps the attribution custom fields present in each account and
// caches the key→id mapping: a durable copy with no expiry plus a freshness
// marker that expires after the configured window.
type Provisioner struct {
	api       FieldAPI
	store     cache.Store
	freshness time.Duration
	logger    *zap.Logger
}

// NewProvisioner creates a provisioner. A zero freshness uses DefaultFreshness.
func NewProvisioner(api FieldAPI, store cache.Store, freshness time.Duration, logger *zap.Logger) *Provisioner {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		api:       api,
		store:     store,
		freshness: freshness,
		logger:    logger,
	}
}

// GetFieldMapping returns the attribution key→custom field id mapping for an
// account, provisioning missing fields when the cache is stale or a refresh is
// forced. The result may hold fewer than all catalog keys; failures degrade to
// the last durable mapping rather than erroring.
func (p *Provisioner) GetFieldMapping(ctx context.Context, accountID, token string, forceRefresh bool) models.AttributeMapping {
	if accountID == "" || token == "" {
		p.logger.Warn("Custom field provisioner: missing account id or token",
			zap.String("account_id", accountID))
		return models.AttributeMapping{}
	}

	mappingKey := mappingKeyPrefix + utils.HashString(accountID)
	freshnessKey := freshnessKeyPrefix + utils.HashString(accountID)

	if !forceRefresh && p.isFresh(ctx, freshnessKey) {
		if cached := p.loadMapping(ctx, mappingKey); len(cached) > 0 {
			return cached
		}
	}

	existing, err := p.api.ListCustomFields(ctx, accountID, token)
	if err != nil {
		p.logger.Error("Custom field provisioner: failed to fetch existing fields",
			zap.String("account_id", accountID),
			zap.Error(&ProvisioningError{Op: "list custom fields", Err: err}))
		return p.loadMapping(ctx, mappingKey)
	}

	mapping := matchExisting(existing)

	for _, required := range Catalog() {
		if _, ok := mapping[required.Key]; ok {
			continue
		}

		p.logger.Info("Custom field provisioner: creating missing field",
			zap.String("account_id", accountID),
			zap.String("param_key", required.Key),
			zap.String("field_name", required.Spec.Name))

		fieldID, err := p.api.CreateCustomField(ctx, accountID, token, required.Spec)
		if err != nil || fieldID == "" {
			if err == nil {
				err = ghl.ErrNoFieldID
			}
			p.logger.Error("Custom field provisioner: failed to create field",
				zap.String("account_id", accountID),
				zap.Error(&ProvisioningError{Op: "create custom field", Key: required.Key, Err: err}))
			continue
		}

		mapping[required.Key] = fieldID
		p.logger.Info("Custom field provisioner: created field",
			zap.String("account_id", accountID),
			zap.String("param_key", required.Key),
			zap.String("field_id", fieldID))
	}

	p.saveMapping(ctx, mappingKey, freshnessKey, mapping)

	return mapping
}

// ClearCache forgets the mapping and freshness marker of one account.
func (p *Provisioner) ClearCache(ctx context.Context, accountID string) error {
	return p.store.Delete(ctx,
		mappingKeyPrefix+utils.HashString(accountID),
		freshnessKeyPrefix+utils.HashString(accountID))
}

// ClearAllCaches forgets every account's mapping and freshness marker.
func (p *Provisioner) ClearAllCaches(ctx context.Context) error {
	// freshness keys share the mapping prefix
	return p.store.DeletePrefix(ctx, mappingKeyPrefix)
}

// ExpectedCount is the number of attribution fields each account should carry.
func ExpectedCount() int {
	return len(models.TrackedParams)
}

func matchExisting(existing []ghl.CustomField) models.AttributeMapping {
	byName := make(map[string]string, len(models.TrackedParams))
	for _, required := range Catalog() {
		byName[required.Spec.Name] = required.Key
	}

	mapping := models.AttributeMapping{}
	for _, field := range existing {
		if field.Name == "" || field.ID == "" {
			continue
		}
		if key, ok := byName[field.Name]; ok {
			mapping[key] = field.ID
		}
	}
	return mapping
}

func (p *Provisioner) isFresh(ctx context.Context, key string) bool {
	_, err := p.store.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		p.logger.Warn("Custom field provisioner: freshness check failed", zap.Error(err))
	}
	return err == nil
}

func (p *Provisioner) loadMapping(ctx context.Context, key string) models.AttributeMapping {
	raw, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			p.logger.Warn("Custom field provisioner: reading cached mapping failed", zap.Error(err))
		}
		return models.AttributeMapping{}
	}

	mapping := models.AttributeMapping{}
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		p.logger.Warn("Custom field provisioner: cached mapping is corrupt", zap.Error(err))
		return models.AttributeMapping{}
	}
	return mapping
}

func (p *Provisioner) saveMapping(ctx context.Context, mappingKey, freshnessKey string, mapping models.AttributeMapping) {
	raw, err := json.Marshal(mapping)
	if err != nil {
		p.logger.Error("Custom field provisioner: encoding mapping failed", zap.Error(err))
		return
	}

	if err := p.store.Set(ctx, mappingKey, string(raw), 0); err != nil {
		p.logger.Error("Custom field provisioner: saving mapping failed", zap.Error(err))
		return
	}

	if err := p.store.Set(ctx, freshnessKey, "1", p.freshness); err != nil {
		p.logger.Error("Custom field provisioner: saving freshness marker failed", zap.Error(err))
	}
}
