package models

// AccountConfig identifies one destination CRM account and the forms bound to it.
type AccountConfig struct {
	AccountID string
	AuthToken string
	Tags      []string
	Bindings  map[string]FormBinding
}

// FormBinding links one source form to this account's field mapping.
type FormBinding struct {
	FormID       string
	Mapping      FieldMapping
	CustomFields []CustomFieldBinding
}

// FieldMapping holds source-field references for the canonical contact
// attributes. An empty reference means unset.
type FieldMapping struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// CustomFieldBinding pairs a destination attribute id with a source field.
type CustomFieldBinding struct {
	AttributeID string
	FieldID     string
}

// Settings is the typed view of the relay's configuration store.
type Settings struct {
	Accounts      []AccountConfig
	EnableLogging bool
}

// BindingFor returns the account and binding that own formID.
func (s *Settings) BindingFor(formID string) (AccountConfig, FormBinding, bool) {
	if s == nil {
		return AccountConfig{}, FormBinding{}, false
	}
	for _, account := range s.Accounts {
		if binding, ok := account.Bindings[formID]; ok {
			return account, binding, true
		}
	}
	return AccountConfig{}, FormBinding{}, false
}

// Account returns the configured account with the given id.
func (s *Settings) Account(accountID string) (AccountConfig, bool) {
	if s == nil {
		return AccountConfig{}, false
	}
	for _, account := range s.Accounts {
		if account.AccountID == accountID {
			return account, true
		}
	}
	return AccountConfig{}, false
}

// Configured reports whether the account can authenticate against the CRM.
func (a AccountConfig) Configured() bool {
	return a.AccountID != "" && a.AuthToken != ""
}
