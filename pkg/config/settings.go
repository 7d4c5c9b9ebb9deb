package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"ghl-connector/pkg/models"
)

type settingsFile struct {
	EnableLogging bool          `mapstructure:"enable_logging"`
	Accounts      []accountFile `mapstructure:"accounts" validate:"dive"`
}

type accountFile struct {
	AccountID    string        `mapstructure:"account_id"`
	AuthToken    string        `mapstructure:"auth_token"`
	AuthTokenEnv string        `mapstructure:"auth_token_env"`
	Tags         any           `mapstructure:"tags"`
	Forms        []bindingFile `mapstructure:"forms" validate:"dive"`
}

type bindingFile struct {
	FormID       string            `mapstructure:"form_id" validate:"required"`
	Mapping      mappingFile       `mapstructure:"mapping"`
	CustomFields []customFieldFile `mapstructure:"custom_fields"`
}

type mappingFile struct {
	Email     string `mapstructure:"email"`
	Phone     string `mapstructure:"phone"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
}

type customFieldFile struct {
	AttributeID string `mapstructure:"attribute_id"`
	FieldID     string `mapstructure:"field_id"`
}

var validate = validator.New()

// SettingsLoader reads the account settings file
type SettingsLoader struct {
	v *viper.Viper
}

// NewSettingsLoader prepares a loader for the YAML settings file at path.
func NewSettingsLoader(path string) *SettingsLoader {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return &SettingsLoader{v: v}
}

// Load reads and validates the settings file.
func (l *SettingsLoader) Load() (*models.Settings, error) {
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading settings file: %w", err)
	}
	return l.decode()
}

// Watch calls onChange with freshly decoded settings whenever the file changes.
// Decode failures are reported through onError and the previous settings stay in effect.
func (l *SettingsLoader) Watch(onChange func(*models.Settings), onError func(error)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		settings, err := l.decode()
		if err != nil {
			onError(err)
			return
		}
		onChange(settings)
	})
	l.v.WatchConfig()
}

func (l *SettingsLoader) decode() (*models.Settings, error) {
	var raw settingsFile
	if err := l.v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	return buildSettings(raw)
}

func buildSettings(raw settingsFile) (*models.Settings, error) {
	if err := validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	settings := &models.Settings{EnableLogging: raw.EnableLogging}
	seenAccounts := map[string]bool{}
	seenForms := map[string]string{}

	for i, a := range raw.Accounts {
		accountID := strings.TrimSpace(a.AccountID)
		if accountID != "" {
			if seenAccounts[accountID] {
				return nil, fmt.Errorf("invalid settings: account %q configured twice", accountID)
			}
			seenAccounts[accountID] = true
		}

		token := strings.TrimSpace(a.AuthToken)
		if token == "" && a.AuthTokenEnv != "" {
			token = strings.TrimSpace(os.Getenv(a.AuthTokenEnv))
		}

		tags, err := parseTags(a.Tags)
		if err != nil {
			return nil, fmt.Errorf("invalid settings: accounts[%d]: %w", i, err)
		}

		account := models.AccountConfig{
			AccountID: accountID,
			AuthToken: token,
			Tags:      tags,
			Bindings:  make(map[string]models.FormBinding, len(a.Forms)),
		}

		for _, f := range a.Forms {
			formID := strings.TrimSpace(f.FormID)
			if owner, dup := seenForms[formID]; dup {
				return nil, fmt.Errorf("invalid settings: form %q bound to both %q and %q", formID, owner, accountID)
			}
			seenForms[formID] = accountID

			account.Bindings[formID] = models.FormBinding{
				FormID: formID,
				Mapping: models.FieldMapping{
					Email:     strings.TrimSpace(f.Mapping.Email),
					Phone:     strings.TrimSpace(f.Mapping.Phone),
					FirstName: strings.TrimSpace(f.Mapping.FirstName),
					LastName:  strings.TrimSpace(f.Mapping.LastName),
				},
				CustomFields: cleanCustomFields(f.CustomFields),
			}
		}

		settings.Accounts = append(settings.Accounts, account)
	}

	return settings, nil
}

// cleanCustomFields drops bindings missing either side of the pair.
func cleanCustomFields(in []customFieldFile) []models.CustomFieldBinding {
	var out []models.CustomFieldBinding
	for _, cf := range in {
		attr := strings.TrimSpace(cf.AttributeID)
		field := strings.TrimSpace(cf.FieldID)
		if attr == "" || field == "" {
			continue
		}
		out = append(out, models.CustomFieldBinding{AttributeID: attr, FieldID: field})
	}
	return out
}

// parseTags accepts either a YAML list or a single comma-separated string.
func parseTags(raw any) ([]string, error) {
	var parts []string
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tags must be strings, got %T", item)
			}
			parts = append(parts, s)
		}
	case []string:
		parts = t
	default:
		return nil, fmt.Errorf("tags must be a list or a comma-separated string, got %T", raw)
	}

	var tags []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags, nil
}
