package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/oauth2"
)

// ErrNoCachedToken is returned when the CLI has not logged in yet.
var ErrNoCachedToken = errors.New("no cached Google token, run 'gitmail login google' first")

// TokenCache stores the CLI's Google token on disk.
type TokenCache struct {
	dir string
}

// NewTokenCache creates a cache in dir. An empty dir uses DefaultCacheDir.
func NewTokenCache(dir string) *TokenCache {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	return &TokenCache{dir: dir}
}

// Path is the token file location.
func (c *TokenCache) Path() string {
	return filepath.Join(c.dir, "google.token")
}

// Save writes token with owner-only permissions.
func (c *TokenCache) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(c.Path(), raw, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load returns a token source for the cached token. Refreshed tokens are
// written back to the cache.
func (c *TokenCache) Load(ctx context.Context, conf *oauth2.Config) (oauth2.TokenSource, error) {
	raw, err := os.ReadFile(c.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCachedToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", c.Path(), err)
	}
	return &cachingTokenSource{
		cache: c,
		base:  conf.TokenSource(ctx, &token),
		last:  token.AccessToken,
	}, nil
}

type cachingTokenSource struct {
	cache *TokenCache
	base  oauth2.TokenSource
	last  string
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.cache.Save(token); err != nil {
			return nil, err
		}
	}
	return token, nil
}

// DefaultCacheDir is the per-user cache directory for gitmail.
func DefaultCacheDir() string {
	return filepath.Join(userCacheDir(), "gitmail")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"LOCALAPPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.TempDir()
}
