package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mmcdole/ladle/internal/config"
	"github.com/mmcdole/ladle/internal/logging"
	"github.com/mmcdole/ladle/internal/mealie"
	"github.com/mmcdole/ladle/internal/paging"
	"github.com/mmcdole/ladle/internal/recipes"
	"github.com/mmcdole/ladle/internal/serverinfo"
	"github.com/mmcdole/ladle/internal/session"
	"github.com/mmcdole/ladle/internal/store"
)

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	tokens  *config.TokenStore
	store   *store.Store
	servers *serverinfo.Repo
	recipes *recipes.Repository
	session *session.Service

	closers []io.Closer
}

func newApp(ctx context.Context, configDir string, debug bool) (*app, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "DEBUG"
	}

	a := &app{cfg: cfg}

	logger, logFile, err := logging.SetupLogger(cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = logging.NullLogger()
	} else {
		a.closers = append(a.closers, logFile)
	}
	slog.SetDefault(logger)
	a.logger = logger
	logger.Info("starting ladle", "version", Version)

	a.store, err = store.Open(cfg.Cache.Dir,
		store.WithMatcher(store.MatcherForMode(cfg.Search.Mode)),
		store.WithLogger(logger.With("component", "store")),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	a.closers = append(a.closers, a.store)

	a.tokens = config.NewTokenStore(cfg)

	// Probes are unauthenticated and take the URL explicitly
	prober := mealie.NewClient(nil, nil, logger.With("component", "probe"))
	a.servers, err = serverinfo.NewRepo(ctx, a.store, prober, logger.With("component", "serverinfo"))
	if err != nil {
		a.Close()
		return nil, err
	}
	client := mealie.NewClient(a.servers, a.tokens, logger.With("component", "mealie"))

	state := paging.NewState(cfg.Paging.PageSize, cfg.Paging.InitialLoadSize)
	a.recipes = recipes.NewRepository(client, a.store, state, logger.With("component", "recipes"),
		recipes.WithServerURL(a.servers.BaseURL()),
	)
	a.session = session.NewService(a.servers, a.tokens, a.recipes, logger.With("component", "session"))
	return a, nil
}

// Close releases the cache and log file. Safe to call more than once.
func (a *app) Close() error {
	if a.recipes != nil {
		a.recipes.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
