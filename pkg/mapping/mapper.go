package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"ghl-connector/pkg/models"
)

// MappedContact is a submission entry resolved against a form binding.
// Phone is raw, not yet normalized.
type MappedContact struct {
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	CustomFields []models.CustomFieldValue
}

// Resolve looks up every configured source field in the entry. It never
// fails: references that are unset or missing resolve to empty values.
func Resolve(entry models.SubmissionEntry, binding models.FormBinding) MappedContact {
	contact := MappedContact{
		Email:     firstValue(entry, binding.Mapping.Email),
		Phone:     firstValue(entry, binding.Mapping.Phone),
		FirstName: firstValue(entry, binding.Mapping.FirstName),
		LastName:  firstValue(entry, binding.Mapping.LastName),
	}

	for _, cf := range binding.CustomFields {
		values := lookup(entry, cf.FieldID)
		if len(values) == 0 {
			continue
		}
		joined := strings.Join(values, ", ")
		if joined == "" {
			continue
		}
		contact.CustomFields = append(contact.CustomFields, models.CustomFieldValue{
			ID:    cf.AttributeID,
			Value: joined,
		})
	}

	return contact
}

// lookup returns the field's value as a list of non-empty strings.
func lookup(entry models.SubmissionEntry, fieldID string) []string {
	if fieldID == "" {
		return nil
	}
	raw, ok := entry.Metas[fieldID]
	if !ok {
		return nil
	}
	return flatten(raw)
}

func flatten(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, flatten(item)...)
		}
		return out
	case []string:
		var out []string
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := strings.TrimSpace(scalar(v)); s != "" {
			return []string{s}
		}
		return nil
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// firstValue resolves a canonical field. A list contributes its first
// element as-is, even when that element is empty.
func firstValue(entry models.SubmissionEntry, fieldID string) string {
	if fieldID == "" {
		return ""
	}
	raw := entry.Metas[fieldID]
	for {
		switch v := raw.(type) {
		case nil:
			return ""
		case []any:
			if len(v) == 0 {
				return ""
			}
			raw = v[0]
			continue
		case []string:
			if len(v) == 0 {
				return ""
			}
			return strings.TrimSpace(v[0])
		}
		return strings.TrimSpace(scalar(raw))
	}
}
