// Package config loads and validates the typed simulation configuration,
// merging an optional user YAML file over embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// RenderingMode selects how the external renderer (out of this module's
// scope) presents a run. The core only needs to know the name so it can be
// round-tripped through Config.
type RenderingMode string

const (
	RenderingScreen   RenderingMode = "Screen"
	RenderingTerminal RenderingMode = "Terminal"
	RenderingHeadless RenderingMode = "Headless"
)

// Rect mirrors core.Rect at the config boundary, plus the non-overlap
// radius used for placement.
type Rect struct {
	XMin             float64 `yaml:"x_min"`
	XMax             float64 `yaml:"x_max"`
	YMin             float64 `yaml:"y_min"`
	YMax             float64 `yaml:"y_max"`
	NonOverlapRadius float64 `yaml:"non_overlap_radius"`
}

type SimulationConfig struct {
	SamplingFreq      float64       `yaml:"sampling_freq"`
	MaxSimulationTime float64       `yaml:"max_simulation_time"`
	SpeedUpFactor     float64       `yaml:"speed_up_factor"`
	RenderingMode     RenderingMode `yaml:"rendering_mode"`
	ScreenWidth       int           `yaml:"screen_width"`
	ScreenHeight      int           `yaml:"screen_height"`
}

type AgentsConfig struct {
	Quantity                  int     `yaml:"quantity"`
	Locations                 Rect    `yaml:"locations"`
	MaxSpeed                  float64 `yaml:"max_speed"`
	MaxAccel                  float64 `yaml:"max_accel"`
	MaxAngularSpeed           float64 `yaml:"max_angular_speed"`
	WorkRate                  float64 `yaml:"work_rate"`
	Radius                    float64 `yaml:"radius"`
	CommunicationRadius       float64 `yaml:"communication_radius"`
	SituationAwarenessRadius  float64 `yaml:"situation_awareness_radius"`
	TargetApproachingRadius   float64 `yaml:"target_approaching_radius"`
	RandomExplorationDuration float64 `yaml:"random_exploration_duration"`
	BehaviorTreeXML           string  `yaml:"behavior_tree_xml"`
}

type DynamicTaskGenerationConfig struct {
	Enabled            bool    `yaml:"enabled"`
	IntervalSeconds    float64 `yaml:"interval_seconds"`
	MaxGenerations     int     `yaml:"max_generations"`
	TasksPerGeneration int     `yaml:"tasks_per_generation"`
}

type TasksConfig struct {
	Quantity                int                         `yaml:"quantity"`
	Locations               Rect                        `yaml:"locations"`
	ThresholdDoneByArrival  float64                     `yaml:"threshold_done_by_arrival"`
	BaseRadius              float64                     `yaml:"base_radius"`
	AmountMin               float64                     `yaml:"amount_min"`
	AmountMax               float64                     `yaml:"amount_max"`
	DynamicTaskGeneration   DynamicTaskGenerationConfig  `yaml:"dynamic_task_generation"`
}

type GreedyParams struct {
	Mode                  string  `yaml:"mode"`
	WeightFactorCost      float64 `yaml:"weight_factor_cost"`
	EnforcedCollaboration bool    `yaml:"enforced_collaboration"`
}

type GRAPEParams struct {
	CostWeightFactor       float64 `yaml:"cost_weight_factor"`
	SocialInhibitionFactor float64 `yaml:"social_inhibition_factor"`
	ReinitializeByDistance bool    `yaml:"reinitialize_by_distance"`
}

type CBBAParams struct {
	MaxTasksPerAgent                  int     `yaml:"max_tasks_per_agent"`
	TaskRewardDiscountFactor          float64 `yaml:"task_reward_discount_factor"`
	ExecuteMovementsDuringConvergence bool    `yaml:"execute_movements_during_convergence"`
	WinningBidCancel                  bool    `yaml:"winning_bid_cancel"`
	AcceptableEmptyBundleDuration     float64 `yaml:"acceptable_empty_bundle_duration"`
}

// DecisionMakingConfig is the discriminated map keyed by strategy name. CBAA
// is accepted as an alias of CBBA and resolves to the same CBBA parameters
// (see DESIGN.md).
type DecisionMakingConfig struct {
	Strategy         string        `yaml:"strategy"`
	FirstClaimGreedy *GreedyParams `yaml:"FirstClaimGreedy"`
	GRAPE            *GRAPEParams  `yaml:"GRAPE"`
	CBBA             *CBBAParams   `yaml:"CBBA"`
}

type Config struct {
	Simulation     SimulationConfig     `yaml:"simulation"`
	Agents         AgentsConfig         `yaml:"agents"`
	Tasks          TasksConfig          `yaml:"tasks"`
	DecisionMaking DecisionMakingConfig `yaml:"decision_making"`
}

// Load merges an optional user file over the embedded defaults and
// validates the result. path == "" uses the defaults unmodified.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("config: parse embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports structural or range failures that must refuse startup
// rather than produce undefined behaviour mid-run.
func (c *Config) Validate() error {
	if c.Simulation.SamplingFreq <= 0 {
		return fmt.Errorf("config: simulation.sampling_freq must be positive, got %v", c.Simulation.SamplingFreq)
	}
	if c.Agents.Quantity <= 0 {
		return fmt.Errorf("config: agents.quantity must be positive, got %d", c.Agents.Quantity)
	}
	if c.Tasks.Quantity < 0 {
		return fmt.Errorf("config: tasks.quantity must not be negative, got %d", c.Tasks.Quantity)
	}
	if err := validateRect("agents.locations", c.Agents.Locations); err != nil {
		return err
	}
	if err := validateRect("tasks.locations", c.Tasks.Locations); err != nil {
		return err
	}
	if c.Agents.MaxSpeed <= 0 {
		return fmt.Errorf("config: agents.max_speed must be positive, got %v", c.Agents.MaxSpeed)
	}
	if c.Agents.Radius < 0 || c.Tasks.BaseRadius < 0 {
		return fmt.Errorf("config: radii must not be negative")
	}
	if c.Tasks.ThresholdDoneByArrival <= 0 {
		return fmt.Errorf("config: tasks.threshold_done_by_arrival must be positive, got %v", c.Tasks.ThresholdDoneByArrival)
	}
	if c.Tasks.AmountMax < c.Tasks.AmountMin {
		return fmt.Errorf("config: tasks.amount_max (%v) must be >= amount_min (%v)", c.Tasks.AmountMax, c.Tasks.AmountMin)
	}
	return nil
}

func validateRect(field string, r Rect) error {
	if r.XMax <= r.XMin || r.YMax <= r.YMin {
		return fmt.Errorf("config: %s describes an empty or inverted rectangle", field)
	}
	if r.NonOverlapRadius < 0 {
		return fmt.Errorf("config: %s.non_overlap_radius must not be negative", field)
	}
	width, height := r.XMax-r.XMin, r.YMax-r.YMin
	if 2*r.NonOverlapRadius >= width || 2*r.NonOverlapRadius >= height {
		return fmt.Errorf("config: %s.non_overlap_radius too large for the operating area", field)
	}
	return nil
}
