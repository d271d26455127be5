// Package config holds the configuration object that gitmail builds once at
// start-up and hands to every component that needs it.
//
// Values come from the environment (optionally seeded from .env files) and may
// be overridden by command-line flags in cmd/.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Token store backends.
const (
	StoreMemory = "memory"
	StoreValkey = "valkey"
)

// Config is the process-wide configuration. It is read-only after Load.
type Config struct {
	// BaseURL is the GitHub web URL that links in messages start with.
	BaseURL string `env:"GITMAIL_BASE_URL" envDefault:"https://github.com"`

	// GitHubHost selects the GraphQL endpoint (github.com or a GHES hostname).
	GitHubHost string `env:"GITMAIL_GITHUB_HOST" envDefault:"github.com"`

	// GitHubToken is a personal token used by the CLI and MCP modes, where
	// there is no per-user OAuth flow.
	GitHubToken string `env:"GITHUB_TOKEN"`

	// PublicURL is the externally reachable base URL of the add-on endpoints.
	// It is also the audience of the add-on's system ID token.
	PublicURL string `env:"GITMAIL_PUBLIC_URL"`

	// HTTPAddr is the listen address of the add-on server.
	HTTPAddr string `env:"GITMAIL_HTTP_ADDR" envDefault:":8080"`

	// VerifyIDToken toggles verification of the add-on system ID token.
	// Only disable for local development.
	VerifyIDToken bool `env:"GITMAIL_VERIFY_ID_TOKEN" envDefault:"true"`

	// ActionRate is the number of card actions per second a user may run,
	// with bursts up to ActionBurst. Zero disables the limit.
	ActionRate  float64 `env:"GITMAIL_ACTION_RATE" envDefault:"1"`
	ActionBurst int     `env:"GITMAIL_ACTION_BURST" envDefault:"5"`

	LogLevel  string `env:"GITMAIL_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GITMAIL_LOG_FORMAT" envDefault:"json"`

	OAuth  OAuthConfig
	Store  StoreConfig
	Google GoogleConfig
}

// GoogleConfig holds the Google OAuth client the CLI uses to read Gmail
// messages. The add-on server does not need it.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	// AccessToken skips the cached login, e.g. a token from gcloud.
	AccessToken string `env:"GOOGLE_ACCESS_TOKEN"`
}

// OAuthConfig configures the GitHub OAuth application.
type OAuthConfig struct {
	AuthURL      string   `env:"GITHUB_OAUTH_AUTH_URL" envDefault:"https://github.com/login/oauth/authorize"`
	TokenURL     string   `env:"GITHUB_OAUTH_TOKEN_URL" envDefault:"https://github.com/login/oauth/access_token"`
	ClientID     string   `env:"GITHUB_CLIENT_ID"`
	ClientSecret string   `env:"GITHUB_CLIENT_SECRET"`
	Scopes       []string `env:"GITHUB_OAUTH_SCOPES" envDefault:"repo" envSeparator:","`

	// StateSecret signs the OAuth state parameter.
	StateSecret string `env:"GITMAIL_STATE_SECRET"`

	// EncryptionKey is a base64 encoded 32 byte key for tokens at rest.
	// Empty disables encryption.
	EncryptionKey string `env:"GITMAIL_ENCRYPTION_KEY"`
}

// StoreConfig selects where linked GitHub tokens are kept.
type StoreConfig struct {
	// Type is "memory" or "valkey".
	Type   string `env:"GITMAIL_TOKEN_STORE" envDefault:"memory"`
	Valkey ValkeyConfig
}

// ValkeyConfig holds the Valkey connection settings.
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379").
	URL        string `env:"VALKEY_URL"`
	Password   string `env:"VALKEY_PASSWORD"`
	TLSEnabled bool   `env:"VALKEY_TLS_ENABLED"`
	KeyPrefix  string `env:"VALKEY_KEY_PREFIX" envDefault:"gitmail:"`
	DB         int    `env:"VALKEY_DB"`
}

// Load reads the environment into a Config. Existing .env files among
// envFiles are loaded first; variables already set in the process win.
func Load(envFiles ...string) (*Config, error) {
	var present []string
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &cfg, nil
}

// Validate checks the settings every mode depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be an absolute URL", c.BaseURL)
	}
	if c.GitHubHost == "" {
		return errors.New("GitHub host cannot be empty")
	}
	switch c.Store.Type {
	case StoreMemory:
	case StoreValkey:
		if c.Store.Valkey.URL == "" {
			return errors.New("valkey URL is required when the token store is valkey")
		}
	default:
		return fmt.Errorf("unsupported token store %q (supported: memory, valkey)", c.Store.Type)
	}
	if _, err := c.EncryptionKeyBytes(); err != nil {
		return err
	}
	if c.ActionRate < 0 {
		return fmt.Errorf("action rate cannot be negative, got %v", c.ActionRate)
	}
	return nil
}

// ValidateServer checks the additional settings the add-on server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var missing []string
	if c.OAuth.ClientID == "" {
		missing = append(missing, "GITHUB_CLIENT_ID")
	}
	if c.OAuth.ClientSecret == "" {
		missing = append(missing, "GITHUB_CLIENT_SECRET")
	}
	if c.OAuth.StateSecret == "" {
		missing = append(missing, "GITMAIL_STATE_SECRET")
	}
	if c.PublicURL == "" {
		missing = append(missing, "GITMAIL_PUBLIC_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return validateHTTPSRequirement(c.PublicURL)
}

// EncryptionKeyBytes decodes the token encryption key. A nil slice means
// encryption is disabled.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	if c.OAuth.EncryptionKey == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(c.OAuth.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key (must be base64 encoded): %w", err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes (got %d bytes)", len(decoded))
	}
	return decoded, nil
}

// CallbackURL is where GitHub redirects after the user authorizes the app.
func (c *Config) CallbackURL() string {
	return c.PublicURL + "/oauth/callback"
}

// validateHTTPSRequirement allows plain HTTP only for loopback addresses.
func validateHTTPSRequirement(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid public URL: %w", err)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("public URL must use HTTPS (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
