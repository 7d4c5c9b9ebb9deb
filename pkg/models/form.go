package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SubmissionEntry is one completed form instance as stored by the form system.
// Metas maps a field id to its raw value, which is either a string or a list
// (checkbox groups, multi-selects).
type SubmissionEntry struct {
	ID     string         `json:"id"`
	FormID string         `json:"form_id"`
	Metas  map[string]any `json:"metas"`
}

// FormField is the id/label pair the admin UI uses to build field mappings.
type FormField struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// EntryCreatedEvent is the post-submission hook fired by the form system.
// Attribution is set when the hook relays the visitor's captured values
// itself instead of forwarding their cookies.
type EntryCreatedEvent struct {
	EntryID     ID                `json:"entry_id" binding:"required"`
	FormID      ID                `json:"form_id" binding:"required"`
	Attribution map[string]string `json:"attribution,omitempty"`
}

// ID is an identifier the form system may send as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}
