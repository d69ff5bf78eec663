package config

import (
	"context"
	"sync"
)

// TokenStore keeps the API token in the config file.
// It implements domain.TokenProvider.
type TokenStore struct {
	mu  sync.Mutex
	cfg *Config
}

func NewTokenStore(cfg *Config) *TokenStore {
	return &TokenStore{cfg: cfg}
}

func (t *TokenStore) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Server.Token, nil
}

// SetToken stores a new token and saves the config.
func (t *TokenStore) SetToken(ctx context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.Server.Token = token
	return t.cfg.Save()
}

// ClearToken removes the token and saves the config.
func (t *TokenStore) ClearToken(ctx context.Context) error {
	return t.SetToken(ctx, "")
}
