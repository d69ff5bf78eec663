// Package serverinfo decides which server the client talks to and which API
// dialect it speaks. It is the only writer of the persisted server profile.
package serverinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/ladle/internal/domain"
	"github.com/mmcdole/ladle/internal/observe"
)

// NoVersion is returned by GetVersion when no base URL has been accepted.
const NoVersion = -1

// Repo implements domain.ServerURLProvider over persisted storage and a version probe.
type Repo struct {
	storage domain.ServerInfoStorage
	source  domain.VersionSource
	logger  *slog.Logger

	probes  singleflight.Group
	baseURL *observe.Value[string]
	version *observe.Value[*int]
}

// NewRepo loads the stored profile and returns a Repo publishing it.
func NewRepo(ctx context.Context, storage domain.ServerInfoStorage, source domain.VersionSource, logger *slog.Logger) (*Repo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	profile, err := storage.GetServerProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load server profile: %w", err)
	}
	return &Repo{
		storage: storage,
		source:  source,
		logger:  logger,
		baseURL: observe.NewValue(profile.BaseURL),
		version: observe.NewValue(profile.Version),
	}, nil
}

// BaseURL publishes the accepted base URL. Empty means none.
func (r *Repo) BaseURL() *observe.Value[string] { return r.baseURL }

// Version publishes the accepted major version. Nil means unknown.
func (r *Repo) Version() *observe.Value[*int] { return r.version }

func (r *Repo) GetURL(ctx context.Context) (string, bool, error) {
	profile, err := r.storage.GetServerProfile(ctx)
	if err != nil {
		return "", false, err
	}
	r.logger.Debug("read base url", "url", profile.BaseURL)
	return profile.BaseURL, profile.IsSet(), nil
}

// GetVersion returns the major version of the accepted server. When it is
// not known yet the current URL is probed once, so installs that predate
// version tracking pick it up without re-entering the URL.
func (r *Repo) GetVersion(ctx context.Context) (int, error) {
	profile, err := r.storage.GetServerProfile(ctx)
	if err != nil {
		return 0, err
	}
	if profile.Version != nil {
		return *profile.Version, nil
	}
	if !profile.IsSet() {
		return NoVersion, nil
	}

	// The shared probe outlives any one caller; each caller still stops
	// waiting when its own context is done.
	probeCtx := context.WithoutCancel(ctx)
	ch := r.probes.DoChan(profile.BaseURL, func() (any, error) {
		_, probeErr := r.TryBaseURL(probeCtx, profile.BaseURL)
		profile, err := r.storage.GetServerProfile(probeCtx)
		if err != nil {
			return nil, err
		}
		if profile.Version == nil {
			if probeErr != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrVersionUnavailable, probeErr)
			}
			return nil, domain.ErrVersionUnavailable
		}
		return *profile.Version, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		r.logger.Error("server version unavailable", "url", profile.BaseURL, "error", res.Err)
		return 0, res.Err
	}
	v, shared := res.Val, res.Shared
	r.logger.Debug("probed server version", "url", profile.BaseURL, "version", v, "shared", shared)
	return v.(int), nil
}

// APIVersion returns the dialect of the accepted server.
func (r *Repo) APIVersion(ctx context.Context) (domain.Dialect, error) {
	major, err := r.GetVersion(ctx)
	if err != nil {
		return domain.DialectUnknown, err
	}
	if major == NoVersion {
		return domain.DialectUnknown, domain.ErrNoBaseURL
	}
	return domain.DialectForMajor(major), nil
}

// TryBaseURL probes candidate and, only on success, stores it together with
// its major version. A failed probe leaves the previous profile in place.
func (r *Repo) TryBaseURL(ctx context.Context, candidate string) (domain.VersionInfo, error) {
	info, err := r.source.RequestVersion(ctx, candidate)
	if err != nil {
		r.logger.Warn("base url rejected", "url", candidate, "error", err)
		return domain.VersionInfo{}, err
	}

	profile := domain.ServerProfile{BaseURL: candidate, Version: ParseMajorVersion(info.Version)}
	if err := r.storage.StoreServerProfile(ctx, profile); err != nil {
		return domain.VersionInfo{}, err
	}

	r.logger.Info("base url accepted", "url", candidate, "version", info.Version)
	r.baseURL.Set(profile.BaseURL)
	r.version.Set(profile.Version)
	return *info, nil
}

// ParseMajorVersion extracts the leading number of a version string such as
// "v1.2.3". It returns nil when that is not an integer.
func ParseMajorVersion(version string) *int {
	major, _, _ := strings.Cut(strings.TrimPrefix(version, "v"), ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return nil
	}
	return &n
}

// IsFatal reports whether err means the stored server must be reconfigured.
func IsFatal(err error) bool {
	return errors.Is(err, domain.ErrVersionUnavailable)
}
