package ghl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"ghl-connector/pkg/utils"
)

// idStrategy pulls a field id out of one known create-response shape
type idStrategy func(map[string]json.RawMessage) string

// createdIDStrategies are tried in order: top-level id, then customField.id, then field.id.
var createdIDStrategies = []idStrategy{
	func(m map[string]json.RawMessage) string { return stringValue(m["id"]) },
	nestedID("customField"),
	nestedID("field"),
}

func nestedID(key string) idStrategy {
	return func(m map[string]json.RawMessage) string {
		raw, ok := m[key]
		if !ok {
			return ""
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err != nil {
			return ""
		}
		return stringValue(inner["id"])
	}
}

func decodeCreatedFieldID(body []byte) (string, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("invalid JSON response when creating field: %s", utils.Truncate(string(body), 200))
	}

	for _, strategy := range createdIDStrategies {
		if id := strategy(data); id != "" {
			return id, nil
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", fmt.Errorf("%w; response keys: [%s]", ErrNoFieldID, strings.Join(keys, ", "))
}

// decodeFieldList accepts {"customFields":[...]}, {"fields":[...]} or a bare array.
func decodeFieldList(body []byte) ([]CustomField, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var fields []CustomField
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("error parsing response: %w", err)
		}
		return fields, nil
	}

	var envelope struct {
		CustomFields []CustomField `json:"customFields"`
		Fields       []CustomField `json:"fields"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON response from GHL API: %w", err)
	}

	if envelope.CustomFields != nil {
		return envelope.CustomFields, nil
	}
	return envelope.Fields, nil
}

// stringValue reads a JSON string or number as a string.
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
