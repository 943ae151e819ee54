package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Agents.Quantity != 3 {
		t.Fatalf("Agents.Quantity = %d, want embedded default 3", cfg.Agents.Quantity)
	}
	if cfg.DecisionMaking.Strategy != "FirstClaimGreedy" {
		t.Fatalf("DecisionMaking.Strategy = %q, want FirstClaimGreedy", cfg.DecisionMaking.Strategy)
	}
}

func TestLoadUserFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	const override = `
agents:
  quantity: 7
decision_making:
  strategy: GRAPE
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.Quantity != 7 {
		t.Fatalf("Agents.Quantity = %d, want overridden 7", cfg.Agents.Quantity)
	}
	if cfg.DecisionMaking.Strategy != "GRAPE" {
		t.Fatalf("DecisionMaking.Strategy = %q, want overridden GRAPE", cfg.DecisionMaking.Strategy)
	}
	// Untouched fields keep the embedded default.
	if cfg.Simulation.SamplingFreq != 10.0 {
		t.Fatalf("SamplingFreq = %v, want unmodified default 10.0", cfg.Simulation.SamplingFreq)
	}
}

func TestValidateRejectsInvertedRect(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Agents.Locations.XMax = cfg.Agents.Locations.XMin
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for an empty/inverted rect")
	}
}

func TestValidateRejectsNonPositiveSamplingFreq(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Simulation.SamplingFreq = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a non-positive sampling_freq")
	}
}

func TestValidateRejectsNonPositiveArrivalThreshold(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Tasks.ThresholdDoneByArrival = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a non-positive threshold_done_by_arrival")
	}
}

func TestResolveStrategyAliasesCBAAToCBBA(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	byCanonical, err := cfg.ResolveStrategy("CBBA")
	if err != nil {
		t.Fatalf("ResolveStrategy(CBBA): %v", err)
	}
	byAlias, err := cfg.ResolveStrategy("CBAA")
	if err != nil {
		t.Fatalf("ResolveStrategy(CBAA): %v", err)
	}
	if byCanonical != byAlias {
		t.Fatalf("expected CBAA to resolve to the identical CBBA params pointer")
	}
}

func TestResolveStrategyUnknownListsAvailable(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = cfg.ResolveStrategy("NotAStrategy")
	if err == nil {
		t.Fatalf("expected an error for an unrecognized strategy name")
	}
	unk, ok := err.(*ErrUnknownStrategy)
	if !ok {
		t.Fatalf("error type = %T, want *ErrUnknownStrategy", err)
	}
	if len(unk.Available) == 0 {
		t.Fatalf("expected a non-empty Available list")
	}
}
