package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/github"
)

// TokenStore keeps one GitHub token per Google user. Get returns an error
// wrapping github.ErrNoToken when the user has not linked an account.
type TokenStore interface {
	Get(ctx context.Context, user string) (*oauth2.Token, error)
	Put(ctx context.Context, user string, token *oauth2.Token) error
	Delete(ctx context.Context, user string) error
}

// codec turns tokens into the strings a store keeps.
type codec struct {
	enc *TokenEncryption
}

func (c codec) encode(token *oauth2.Token) (string, error) {
	raw, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token: %w", err)
	}
	return c.enc.Encrypt(raw)
}

func (c codec) decode(value string) (*oauth2.Token, error) {
	raw, err := c.enc.Decrypt(value)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// MemoryStore is a process-local TokenStore. Links are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	codec  codec
	tokens map[string]string
}

// NewMemoryStore creates a MemoryStore. enc may be nil.
func NewMemoryStore(enc *TokenEncryption) *MemoryStore {
	return &MemoryStore{
		codec:  codec{enc: enc},
		tokens: make(map[string]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, user string) (*oauth2.Token, error) {
	s.mu.RLock()
	value, ok := s.tokens[user]
	s.mu.RUnlock()
	if !ok {
		return nil, github.ErrNoToken
	}
	return s.codec.decode(value)
}

func (s *MemoryStore) Put(_ context.Context, user string, token *oauth2.Token) error {
	value, err := s.codec.encode(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tokens[user] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, user string) error {
	s.mu.Lock()
	delete(s.tokens, user)
	s.mu.Unlock()
	return nil
}
