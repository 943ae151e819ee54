package sim

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Metrics accumulates the whole-run statistics a caller (CLI, benchmark
// tool, telemetry exporter) would want after Run returns.
type Metrics struct {
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy"`
	Seed     int64  `json:"seed"`

	Ticks            int     `json:"ticks"`
	SimTimeSeconds   float64 `json:"sim_time_seconds"`
	WallClockSeconds float64 `json:"wall_clock_seconds"`

	TasksInitial      int `json:"tasks_initial"`
	TasksGenerated    int `json:"tasks_generated"`
	TasksCompleted    int `json:"tasks_completed"`
	TasksRemaining    int `json:"tasks_remaining"`
	GenerationRounds  int `json:"generation_rounds"`

	TotalDistanceMoved float64 `json:"total_distance_moved"`
	TotalTaskAmountDone float64 `json:"total_task_amount_done"`

	MaxIsolatedAgents int `json:"max_isolated_agents"`

	MissionCompleted bool `json:"mission_completed"`
	TimedOut         bool `json:"timed_out"`

	wallStart time.Time
}

// ExportMetrics writes m as JSON to path, using json-iterator for
// compatibility with the rest of the telemetry/export stack.
func (m *Metrics) ExportMetrics(path string) error {
	data, err := jsonAPI.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("sim: marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sim: write metrics to %s: %w", path, err)
	}
	return nil
}
