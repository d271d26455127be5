package cmd

import (
	"context"
	"testing"

	"github.com/teemow/gitmail/internal/config"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/oauth"
)

func withGlobalFlags(t *testing.T, level, format string) {
	t.Helper()
	oldFiles, oldLevel, oldFormat := envFiles, logLevel, logFormat
	envFiles, logLevel, logFormat = nil, level, format
	t.Cleanup(func() {
		envFiles, logLevel, logFormat = oldFiles, oldLevel, oldFormat
	})
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name       string
		envLevel   string
		flagLevel  string
		flagFormat string
		wantLevel  string
		wantFormat string
	}{
		{
			name:       "environment only",
			envLevel:   "warn",
			wantLevel:  "warn",
			wantFormat: "json",
		},
		{
			name:       "flags override environment",
			envLevel:   "warn",
			flagLevel:  "debug",
			flagFormat: "text",
			wantLevel:  "debug",
			wantFormat: "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GITMAIL_LOG_LEVEL", tt.envLevel)
			t.Setenv("GITMAIL_LOG_FORMAT", "json")
			withGlobalFlags(t, tt.flagLevel, tt.flagFormat)

			cfg, err := loadConfig()
			if err != nil {
				t.Fatalf("loadConfig() error = %v", err)
			}
			if cfg.LogLevel != tt.wantLevel {
				t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, tt.wantLevel)
			}
			if cfg.LogFormat != tt.wantFormat {
				t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, tt.wantFormat)
			}
		})
	}
}

func TestNewTokenStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := newTokenStore(&config.Config{Store: config.StoreConfig{Type: config.StoreMemory}}, nil)
		if err != nil {
			t.Fatalf("newTokenStore() error = %v", err)
		}
		if _, ok := store.(*oauth.MemoryStore); !ok {
			t.Errorf("newTokenStore() = %T, want *oauth.MemoryStore", store)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		store, err := newTokenStore(&config.Config{Store: config.StoreConfig{Type: "redis"}}, nil)
		if err == nil {
			t.Fatal("newTokenStore() expected error for unsupported type")
		}
		if store != nil {
			t.Errorf("newTokenStore() = %v, want nil store", store)
		}
	})
}

func TestPersonalConnector_WithoutToken(t *testing.T) {
	cfg := &config.Config{BaseURL: github.DefaultBaseURL, GitHubHost: github.DefaultHost}

	gh, err := personalConnector(cfg, nil, nil).Connect(context.Background(), "anyone")
	if !github.IsUnauthorized(err) {
		t.Fatalf("Connect() error = %v, want unauthorized", err)
	}
	if gh != nil {
		t.Errorf("Connect() client = %v, want nil", gh)
	}
}

func TestPersonalConnector_WithToken(t *testing.T) {
	cfg := &config.Config{BaseURL: github.DefaultBaseURL, GitHubHost: github.DefaultHost, GitHubToken: "ghp_test"}

	gh, err := personalConnector(cfg, nil, nil).Connect(context.Background(), "anyone")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if gh == nil {
		t.Error("Connect() returned nil client")
	}
}
