package approval

import (
	"encoding/json"

	"github.com/fenwick/toolplane/internal/store"
)

// PolicyKey is the store key under which the gate policy is persisted.
const PolicyKey = "approval.policy"

// defaultEveryNSteps is the every-N cadence used when nothing valid has
// been persisted.
const defaultEveryNSteps = 5

// policyConfig is the serializable gate policy. It is the only gate state
// that survives process restarts; everything else is volatile and rebuilt
// from a fresh construction.
type policyConfig struct {
	GlobalMode  Mode            `json:"global_mode"`
	Overrides   map[string]Mode `json:"overrides"`
	EveryNSteps int             `json:"every_n_steps"`
	StepCounter int             `json:"step_counter"`
}

// defaultPolicy returns the safe-default policy: autonomous, no
// overrides, N=5, counter at zero.
func defaultPolicy() policyConfig {
	return policyConfig{
		GlobalMode:  ModeAutonomous,
		Overrides:   make(map[string]Mode),
		EveryNSteps: defaultEveryNSteps,
		StepCounter: 0,
	}
}

// loadPolicy reads the persisted policy from the store, falling back to
// defaults on a missing or malformed blob. It never fails construction.
func (g *Gate) loadPolicy() policyConfig {
	data, err := g.store.Get(PolicyKey)
	if err == store.ErrNotFound {
		return defaultPolicy()
	}
	if err != nil {
		g.log.Warn("reading persisted policy failed, using defaults", "error", err)
		return defaultPolicy()
	}

	var cfg policyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		g.log.Warn("persisted policy is malformed, using defaults", "error", err)
		return defaultPolicy()
	}

	// Repair individually invalid fields instead of discarding the blob.
	if !cfg.GlobalMode.ValidGlobal() {
		g.log.Warn("persisted global mode is invalid, using default",
			"mode", string(cfg.GlobalMode))
		cfg.GlobalMode = ModeAutonomous
	}
	if cfg.Overrides == nil {
		cfg.Overrides = make(map[string]Mode)
	}
	for moduleID, mode := range cfg.Overrides {
		if !mode.Valid() {
			g.log.Warn("persisted module override is invalid, dropping",
				"module_id", moduleID, "mode", string(mode))
			delete(cfg.Overrides, moduleID)
		}
	}
	if cfg.EveryNSteps <= 0 {
		cfg.EveryNSteps = defaultEveryNSteps
	}
	if cfg.StepCounter < 0 || cfg.StepCounter >= cfg.EveryNSteps {
		cfg.StepCounter = 0
	}
	return cfg
}

// savePolicy writes the current policy to the store. Called on every
// mutating policy operation; failures are logged, not raised, so a broken
// store degrades persistence without breaking gating.
func (g *Gate) savePolicy() {
	data, err := json.Marshal(g.policy)
	if err != nil {
		g.log.Error("marshaling policy failed", "error", err)
		return
	}
	if err := g.store.Set(PolicyKey, data); err != nil {
		g.log.Error("persisting policy failed", "error", err)
	}
}
