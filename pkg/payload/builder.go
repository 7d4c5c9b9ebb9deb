package payload

import (
	"encoding/json"
	"strings"

	"ghl-connector/pkg/mapping"
	"ghl-connector/pkg/models"
	"ghl-connector/pkg/utils"
)

// NewContactPayload builds the base contact body: contact fields, static
// account tags and the custom fields mapped directly from the form.
func NewContactPayload(accountID string, mapped mapping.MappedContact, tags []string) *models.ContactPayload {
	p := &models.ContactPayload{
		LocationID: accountID,
		Email:      strings.TrimSpace(mapped.Email),
		Phone:      utils.NormalizePhone(mapped.Phone),
		FirstName:  strings.TrimSpace(mapped.FirstName),
		LastName:   strings.TrimSpace(mapped.LastName),
	}
	p.Tags = append(p.Tags, tags...)
	for _, cf := range mapped.CustomFields {
		if cf.ID == "" || p.HasCustomField(cf.ID) {
			continue
		}
		p.CustomFields = append(p.CustomFields, cf)
	}
	return p
}

// MergeAttribution appends attribution values as custom fields using the
// provisioned ids. A key is skipped when it has no id, no value, or when its
// id is already set by a direct form mapping. Returns the number merged.
func MergeAttribution(p *models.ContactPayload, params models.AttributionSnapshot, mapping models.AttributeMapping) int {
	merged := 0
	for _, key := range models.TrackedParams {
		id := mapping[key]
		value := params[key]
		if id == "" || value == "" || p.HasCustomField(id) {
			continue
		}
		p.CustomFields = append(p.CustomFields, models.CustomFieldValue{ID: id, Value: value})
		merged++
	}
	return merged
}

// Wire returns the cleaned request body for p.
func Wire(p *models.ContactPayload) map[string]any {
	trimmed := *p

	trimmed.Tags = nil
	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			trimmed.Tags = append(trimmed.Tags, tag)
		}
	}

	// A custom field without a value carries nothing; drop the whole entry.
	trimmed.CustomFields = nil
	for _, cf := range p.CustomFields {
		if cf.ID == "" || cf.Value == "" {
			continue
		}
		trimmed.CustomFields = append(trimmed.CustomFields, cf)
	}

	raw, err := json.Marshal(trimmed)
	if err != nil {
		return map[string]any{}
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return map[string]any{}
	}
	return Clean(body)
}
