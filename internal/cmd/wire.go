package cmd

import (
	"fmt"

	"github.com/fenwick/toolplane/internal/approval"
	"github.com/fenwick/toolplane/internal/config"
	"github.com/fenwick/toolplane/internal/event"
	"github.com/fenwick/toolplane/internal/logging"
	"github.com/fenwick/toolplane/internal/store"
)

// newStore builds the configured store backend.
func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.Store.ResolveDir())
	case "redis":
		return store.NewRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisDB, cfg.Store.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newLogger builds the configured logger. Disabled logging gets a no-op
// logger rather than nil so callers never need to check.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(config.ConfigDir(), cfg.Logging.Level)
}

// newGate builds the approval gate over the configured store. When no
// policy has been persisted yet, the config file's approval section seeds
// the initial policy.
func newGate(cfg *config.Config, st store.Store, bus *event.Bus, log *logging.Logger) (*approval.Gate, error) {
	gate := approval.New(st, bus, log)

	// First run only: persisted policy wins over the config file.
	if _, err := st.Get(approval.PolicyKey); err == store.ErrNotFound {
		if err := gate.SetGlobalMode(approval.Mode(cfg.Approval.Mode)); err != nil {
			return nil, err
		}
		if err := gate.SetEveryN(cfg.Approval.EveryNSteps); err != nil {
			return nil, err
		}
	}
	return gate, nil
}
