package config

import (
	"errors"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Username:        "student",
		Password:        "hunter2",
		PollingInterval: 5,
		SuggestModel:    "gpt-4o",
		SnapshotDir:     "questions",
		Headless:        true,
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	for _, field := range []string{"username", "password"} {
		cfg := validConfig()
		switch field {
		case "username":
			cfg.Username = ""
		case "password":
			cfg.Password = "  "
		}
		err := cfg.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", field, err)
		}
		if verr.Field != field {
			t.Errorf("expected field %q, got %q", field, verr.Field)
		}
	}
}

func TestValidate_PollingIntervalBounds(t *testing.T) {
	cases := []struct {
		interval int
		ok       bool
	}{
		{0, false},
		{-3, false},
		{1, true},
		{300, true},
		{301, false},
	}
	for _, tc := range cases {
		cfg := validConfig()
		cfg.PollingInterval = tc.interval
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("interval %d: unexpected error %v", tc.interval, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("interval %d: expected error", tc.interval)
		}
	}
}

func TestValidate_EmailRequiresSenderCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.NotificationEmail = "alert@example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when sender credentials are missing")
	}

	cfg.GmailSender = "sender@gmail.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when app password is missing")
	}

	cfg.GmailAppPassword = "app-password"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with full email config: %v", err)
	}
	if !cfg.NotificationsEnabled() {
		t.Error("expected notifications to be enabled")
	}
}

func TestValidate_InvalidEmailAddress(t *testing.T) {
	cfg := validConfig()
	cfg.NotificationEmail = "not-an-email"
	cfg.GmailSender = "sender@gmail.com"
	cfg.GmailAppPassword = "pw"
	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "notification_email" {
		t.Errorf("expected notification_email validation error, got %v", err)
	}
}

func TestValidate_SuggestRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.SuggestEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when suggestions enabled without API key")
	}
	cfg.OpenAIAPIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
