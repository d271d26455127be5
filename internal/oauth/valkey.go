package oauth

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/valkey-io/valkey-go"
	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/github"
)

// ValkeyConfig holds the connection settings of a ValkeyStore.
type ValkeyConfig struct {
	// URL is the server address, e.g. "valkey.namespace.svc:6379".
	URL        string
	Password   string
	TLSEnabled bool
	KeyPrefix  string
	DB         int
}

// ValkeyStore keeps tokens in Valkey under "<prefix>token:<user>", so
// links survive restarts and are shared between replicas.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	codec  codec
}

// NewValkeyStore connects to Valkey. enc may be nil.
func NewValkeyStore(cfg ValkeyConfig, enc *TokenEncryption) (*ValkeyStore, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{cfg.URL},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", cfg.URL, err)
	}
	return NewValkeyStoreWithClient(client, cfg.KeyPrefix, enc), nil
}

// NewValkeyStoreWithClient wraps an existing client.
func NewValkeyStoreWithClient(client valkey.Client, prefix string, enc *TokenEncryption) *ValkeyStore {
	return &ValkeyStore{client: client, prefix: prefix, codec: codec{enc: enc}}
}

func (s *ValkeyStore) key(user string) string {
	return s.prefix + "token:" + user
}

func (s *ValkeyStore) Get(ctx context.Context, user string) (*oauth2.Token, error) {
	value, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(user)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return nil, github.ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	return s.codec.decode(value)
}

func (s *ValkeyStore) Put(ctx context.Context, user string, token *oauth2.Token) error {
	value, err := s.codec.encode(token)
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Set().Key(s.key(user)).Value(value).Build()).Error(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *ValkeyStore) Delete(ctx context.Context, user string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.key(user)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Close releases the connection.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

// Ping checks the connection; the server's readiness probe uses it.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}
