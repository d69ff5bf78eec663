// Package session handles switching servers and logging out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/ladle/internal/domain"
)

var allowedPrefixes = []string{"http://", "https://"}

// Negotiator validates and remembers the server base URL.
type Negotiator interface {
	GetURL(ctx context.Context) (string, bool, error)
	TryBaseURL(ctx context.Context, candidate string) (domain.VersionInfo, error)
}

// DataClearer drops everything cached for the current server.
type DataClearer interface {
	ClearLocalData(ctx context.Context) error
}

// Service manages user session operations
type Service struct {
	servers Negotiator
	tokens  domain.TokenProvider
	data    DataClearer
	logger  *slog.Logger
}

// NewService creates a new session Service
func NewService(servers Negotiator, tokens domain.TokenProvider, data DataClearer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{servers: servers, tokens: tokens, data: data, logger: logger}
}

// NormalizeBaseURL turns user input into a base URL: https is assumed when
// no scheme is given, and surrounding whitespace and trailing slashes are dropped.
func NormalizeBaseURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	hasPrefix := false
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(u, p) {
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		u = "https://" + u
	}
	u = strings.TrimRight(u, "/")

	parsed, err := url.Parse(u)
	if err != nil {
		return "", domain.NewNetworkError(domain.KindMalformedURL, err)
	}
	if parsed.Host == "" {
		return "", domain.NewNetworkError(domain.KindMalformedURL, fmt.Errorf("no host in %q", raw))
	}
	return u, nil
}

// ChangeServer switches to the server at raw. Re-entering the current URL
// changes nothing. Otherwise the new URL must pass a probe; only then is
// the user logged out and the local cache cleared. The returned bool
// reports whether the server changed.
func (s *Service) ChangeServer(ctx context.Context, raw string) (bool, error) {
	baseURL, err := NormalizeBaseURL(raw)
	if err != nil {
		return false, err
	}

	current, ok, err := s.servers.GetURL(ctx)
	if err != nil {
		return false, err
	}
	if ok && current == baseURL {
		s.logger.Debug("base url unchanged", "url", baseURL)
		return false, nil
	}

	info, err := s.servers.TryBaseURL(ctx, baseURL)
	if err != nil {
		return false, err
	}
	s.logger.Info("switched server", "url", baseURL, "version", info.Version)

	// The new URL is stored now, so the old server's data goes even if logout fails
	logoutErr := s.Logout(ctx)
	var clearErr error
	if err := s.data.ClearLocalData(ctx); err != nil {
		clearErr = fmt.Errorf("failed to clear local data: %w", err)
	}
	return true, errors.Join(logoutErr, clearErr)
}

// Logout forgets the API token.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.tokens.ClearToken(ctx); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}
