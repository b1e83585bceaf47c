// Package config loads and validates application configuration from flags,
// environment variables, and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every setting the application needs for one run.
type Config struct {
	// Required portal credentials.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Class selection. Empty means interactive selection.
	ClassName string `mapstructure:"class"`

	// Browser and polling behavior.
	Headless        bool `mapstructure:"headless"`
	PollingInterval int  `mapstructure:"polling_interval"`

	// Email notifications. NotificationEmail enables the feature and then
	// requires the Gmail sender credentials.
	NotificationEmail string `mapstructure:"notification_email"`
	GmailSender       string `mapstructure:"gmail_sender_email"`
	GmailAppPassword  string `mapstructure:"gmail_app_password"`

	// AI answer suggestions.
	SuggestEnabled bool   `mapstructure:"suggest"`
	SuggestModel   string `mapstructure:"suggest_model"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`

	// Where question snapshots and the debug log are written.
	SnapshotDir string `mapstructure:"snapshot_dir"`

	Debug bool `mapstructure:"debug"`
}

// ValidationError reports configuration that must stop the run before any
// page interaction happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Load reads configuration from the environment and an optional config.yaml
// in the working directory. Flag values are expected to be bound to the
// viper instance by the caller before Load runs.
func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault("headless", true)
	v.SetDefault("polling_interval", 5)
	v.SetDefault("suggest_model", "gpt-4o")
	v.SetDefault("snapshot_dir", "questions")

	v.SetEnvPrefix("ICLICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Credentials and collaborator secrets keep their unprefixed env var
	// names so an existing .env keeps working.
	for key, env := range map[string]string{
		"username":           "ICLICKER_USERNAME",
		"password":           "ICLICKER_PASSWORD",
		"gmail_sender_email": "GMAIL_SENDER_EMAIL",
		"gmail_app_password": "GMAIL_APP_PASSWORD",
		"openai_api_key":     "OPENAI_API_KEY",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration invariants that are fatal at startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return &ValidationError{Field: "username", Reason: "ICLICKER_USERNAME is required"}
	}
	if strings.TrimSpace(c.Password) == "" {
		return &ValidationError{Field: "password", Reason: "ICLICKER_PASSWORD is required"}
	}
	if c.PollingInterval < 1 || c.PollingInterval > 300 {
		return &ValidationError{
			Field:  "polling_interval",
			Reason: fmt.Sprintf("must be between 1 and 300 seconds, got %d", c.PollingInterval),
		}
	}
	if c.NotificationEmail != "" {
		if !emailPattern.MatchString(c.NotificationEmail) {
			return &ValidationError{Field: "notification_email", Reason: "not a valid email address"}
		}
		if c.GmailSender == "" {
			return &ValidationError{Field: "gmail_sender_email", Reason: "GMAIL_SENDER_EMAIL must be set when notifications are enabled"}
		}
		if c.GmailAppPassword == "" {
			return &ValidationError{Field: "gmail_app_password", Reason: "GMAIL_APP_PASSWORD must be set when notifications are enabled"}
		}
	}
	if c.SuggestEnabled && c.OpenAIAPIKey == "" {
		return &ValidationError{Field: "openai_api_key", Reason: "OPENAI_API_KEY must be set when suggestions are enabled"}
	}
	return nil
}

// NotificationsEnabled reports whether email alerts are fully configured.
func (c *Config) NotificationsEnabled() bool {
	return c.NotificationEmail != "" && c.GmailSender != "" && c.GmailAppPassword != ""
}
