package services

import (
	"fmt"
	"strings"
)

// ConfigurationError reports account settings too incomplete to reach the CRM.
type ConfigurationError struct {
	AccountID string
	Missing   []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("account %q missing configuration: %s", e.AccountID, strings.Join(e.Missing, ", "))
}

// ValidationError reports a submission without an email or phone.
type ValidationError struct {
	EntryID string
	FormID  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entry %s of form %s has neither email nor phone", e.EntryID, e.FormID)
}

func missingFields(accountID, token string) []string {
	var missing []string
	if accountID == "" {
		missing = append(missing, "account_id")
	}
	if token == "" {
		missing = append(missing, "auth_token")
	}
	return missing
}
