package cli

import (
	"context"

	"github.com/dveraz/carbontrack/internal/config"
	"github.com/dveraz/carbontrack/internal/logger"
	"github.com/dveraz/carbontrack/internal/model"
	"github.com/dveraz/carbontrack/internal/store"
)

// openStore resolves configuration, builds the logger and opens the
// database. Callers own the returned store and must Close it.
func openStore(opts *RootOptions) (*store.Store, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	path := cfg.Database
	if opts.Database != "" {
		path = opts.Database
	}

	st, err := store.Open(path, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// resolveActor authenticates the --user/--password pair into the acting
// user for audited mutations. Returns nil when no actor was supplied,
// which repositories treat as "do not audit".
func resolveActor(ctx context.Context, st *store.Store, opts *RootOptions) (*model.User, error) {
	if opts.User == "" {
		return nil, nil
	}

	actor, err := store.NewAuth(st).Login(ctx, opts.User, opts.Password)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "actor authentication failed", err)
	}
	return actor, nil
}
