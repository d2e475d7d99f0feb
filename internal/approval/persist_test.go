package approval

import (
	"encoding/json"
	"testing"

	"github.com/fenwick/toolplane/internal/store"
)

func TestPolicySurvivesRestart(t *testing.T) {
	st := store.NewMemoryStore()

	g := New(st, nil, nil)
	if err := g.SetGlobalMode(ModeEveryN); err != nil {
		t.Fatalf("SetGlobalMode: %v", err)
	}
	if err := g.SetEveryN(3); err != nil {
		t.Fatalf("SetEveryN: %v", err)
	}
	if err := g.SetModuleOverride("shell", ModeFull); err != nil {
		t.Fatalf("SetModuleOverride: %v", err)
	}
	g.RequiresApproval("web", "fetch") // advance the shared counter

	// A new gate over the same store picks up where the old one left off.
	g2 := New(st, nil, nil)
	state := g2.State()
	if state.GlobalMode != ModeEveryN {
		t.Errorf("GlobalMode = %s, want every_n", state.GlobalMode)
	}
	if state.EveryNSteps != 3 {
		t.Errorf("EveryNSteps = %d, want 3", state.EveryNSteps)
	}
	if state.StepCounter != 1 {
		t.Errorf("StepCounter = %d, want 1 carried across restart", state.StepCounter)
	}
	if g2.GetModuleMode("shell") != ModeFull {
		t.Errorf("shell mode = %s, want full override reloaded", g2.GetModuleMode("shell"))
	}

	// The carried counter keeps counting: two more calls reach the cadence.
	if g2.RequiresApproval("web", "fetch") {
		t.Error("call 2 of 3 should not gate")
	}
	if !g2.RequiresApproval("web", "fetch") {
		t.Error("call 3 of 3 should gate")
	}
}

func TestMissingPolicyUsesDefaults(t *testing.T) {
	g := New(store.NewMemoryStore(), nil, nil)

	state := g.State()
	if state.GlobalMode != ModeAutonomous {
		t.Errorf("GlobalMode = %s, want autonomous", state.GlobalMode)
	}
	if state.EveryNSteps != defaultEveryNSteps {
		t.Errorf("EveryNSteps = %d, want %d", state.EveryNSteps, defaultEveryNSteps)
	}
	if state.StepCounter != 0 {
		t.Errorf("StepCounter = %d, want 0", state.StepCounter)
	}
}

func TestMalformedPolicyFallsBackToDefaults(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.Set(PolicyKey, []byte("{not json")); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	g := New(st, nil, nil)

	state := g.State()
	if state.GlobalMode != ModeAutonomous || state.EveryNSteps != defaultEveryNSteps {
		t.Errorf("state = %+v, want safe defaults", state)
	}
}

func TestInvalidPersistedFieldsAreRepaired(t *testing.T) {
	st := store.NewMemoryStore()
	blob, err := json.Marshal(map[string]any{
		"global_mode": "chaotic",
		"overrides": map[string]string{
			"shell": "full",
			"web":   "sideways",
		},
		"every_n_steps": -2,
		"step_counter":  99,
	})
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := st.Set(PolicyKey, blob); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	g := New(st, nil, nil)

	state := g.State()
	if state.GlobalMode != ModeAutonomous {
		t.Errorf("GlobalMode = %s, want invalid value replaced", state.GlobalMode)
	}
	if state.EveryNSteps != defaultEveryNSteps {
		t.Errorf("EveryNSteps = %d, want %d", state.EveryNSteps, defaultEveryNSteps)
	}
	if state.StepCounter != 0 {
		t.Errorf("StepCounter = %d, want out-of-range counter reset", state.StepCounter)
	}
	if g.GetModuleMode("shell") != ModeFull {
		t.Error("valid override should survive repair")
	}
	if g.GetModuleMode("web") != ModeAutonomous {
		t.Error("invalid override should be dropped")
	}
}

func TestEveryStepPersistsCounter(t *testing.T) {
	st := store.NewMemoryStore()

	g := New(st, nil, nil)
	g.SetGlobalMode(ModeEveryN)
	g.RequiresApproval("shell", "exec")
	g.RequiresApproval("shell", "exec")

	data, err := st.Get(PolicyKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var cfg policyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal persisted policy: %v", err)
	}
	if cfg.StepCounter != 2 {
		t.Errorf("persisted StepCounter = %d, want 2", cfg.StepCounter)
	}
}
