package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"ghl-connector/pkg/logger"
)

// Config holds all process-level configuration values
type Config struct {
	Port    string
	GinMode string
	Log     logger.Config

	GHLBaseURL    string
	GHLAPIVersion string
	HTTPTimeout   time.Duration
	FieldCacheTTL time.Duration

	CookieTTL    time.Duration
	CookieDomain string

	SettingsFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseDriver string
	DatabaseDSN    string

	FormsAPIBaseURL string
	FormsAPIKey     string

	AdminToken string
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("ghl_api_base_url", "https://services.leadconnectorhq.com")
	v.SetDefault("ghl_api_version", "2021-07-28")
	v.SetDefault("ghl_http_timeout", 15*time.Second)
	v.SetDefault("ghl_field_cache_ttl", 6*time.Hour)
	v.SetDefault("ghl_cookie_ttl", 90*24*time.Hour)
	v.SetDefault("ghl_settings_file", "configs/settings.yaml")
	v.SetDefault("redis_db", 0)
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_dsn", "ghl-connector.db")

	return &Config{
		Port:    v.GetString("port"),
		GinMode: v.GetString("gin_mode"),
		Log: logger.Config{
			Level:       strings.ToLower(v.GetString("log_level")),
			Format:      strings.ToLower(v.GetString("log_format")),
			Development: v.GetBool("log_development"),
		},
		GHLBaseURL:      strings.TrimRight(v.GetString("ghl_api_base_url"), "/"),
		GHLAPIVersion:   v.GetString("ghl_api_version"),
		HTTPTimeout:     v.GetDuration("ghl_http_timeout"),
		FieldCacheTTL:   v.GetDuration("ghl_field_cache_ttl"),
		CookieTTL:       v.GetDuration("ghl_cookie_ttl"),
		CookieDomain:    v.GetString("ghl_cookie_domain"),
		SettingsFile:    v.GetString("ghl_settings_file"),
		RedisAddr:       v.GetString("redis_addr"),
		RedisPassword:   v.GetString("redis_password"),
		RedisDB:         v.GetInt("redis_db"),
		DatabaseDriver:  v.GetString("database_driver"),
		DatabaseDSN:     v.GetString("database_dsn"),
		FormsAPIBaseURL: strings.TrimRight(v.GetString("forms_api_base_url"), "/"),
		FormsAPIKey:     v.GetString("forms_api_key"),
		AdminToken:      v.GetString("admin_token"),
	}
}
