package sim

import (
	"context"
	"testing"

	"github.com/elektrokombinacija/space/internal/config"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestSimulatorGreedyCompletesAllTasks(t *testing.T) {
	cfg := loadTestConfig(t)

	s, err := NewSimulator(cfg, "FirstClaimGreedy", 42)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	metrics, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.MissionCompleted {
		t.Fatalf("expected the mission to complete within max_simulation_time, metrics=%+v", metrics)
	}
	if metrics.TasksRemaining != 0 {
		t.Fatalf("TasksRemaining = %d, want 0 once the mission completes", metrics.TasksRemaining)
	}
}

func TestSimulatorGRAPECompletesAllTasks(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Agents.Quantity = 4
	cfg.Tasks.Quantity = 4

	s, err := NewSimulator(cfg, "GRAPE", 7)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	metrics, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.MissionCompleted {
		t.Fatalf("expected GRAPE to converge and complete all tasks, metrics=%+v", metrics)
	}
}

func TestSimulatorCBBANeverDoubleAssignsATask(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Tasks.Quantity = 6

	s, err := NewSimulator(cfg, "CBBA", 3)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = s.Run(ctx)
	if err != nil && err != context.Canceled {
		t.Fatalf("Run: %v", err)
	}

	world := s.World()
	seen := make(map[int]bool)
	for _, a := range world.Agents {
		if !a.Assigned.Valid {
			continue
		}
		id := int(a.Assigned.ID)
		if seen[id] {
			t.Fatalf("task %d claimed by more than one agent at mission end", id)
		}
		seen[id] = true
	}
}

func TestSimulatorTracksIsolatedAgentsWithShortCommunicationRadius(t *testing.T) {
	cfg := loadTestConfig(t)
	// Agents scattered across a wide area with a 1-unit communication radius
	// can never hear each other, so the connectivity check should see them
	// isolated. (A radius of 0 would mean "global", like sensing, and no
	// agent would ever be isolated.)
	cfg.Agents.CommunicationRadius = 1
	cfg.Agents.Quantity = 3
	cfg.Agents.Locations.XMax = 10000
	cfg.Agents.Locations.YMax = 10000
	cfg.Agents.Locations.NonOverlapRadius = 0
	cfg.Simulation.MaxSimulationTime = 1

	s, err := NewSimulator(cfg, "FirstClaimGreedy", 99)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	metrics, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if metrics.MaxIsolatedAgents == 0 {
		t.Fatalf("expected widely scattered, short-radius agents to register as isolated at some point")
	}
}

func TestSimulatorArrivalThresholdGatesWorkIndependentlyOfTaskRadius(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Agents.Quantity = 1
	cfg.Tasks.Quantity = 1
	// A near-zero base_radius would make a radius-only arrival check
	// unreachable; threshold_done_by_arrival must still let the agent work
	// the task once it's within this flat distance.
	cfg.Tasks.BaseRadius = 0.001
	cfg.Tasks.ThresholdDoneByArrival = 5
	cfg.Simulation.MaxSimulationTime = 50

	s, err := NewSimulator(cfg, "FirstClaimGreedy", 11)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	metrics, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.MissionCompleted {
		t.Fatalf("expected the configured arrival threshold to let the agent complete the task, metrics=%+v", metrics)
	}
}

func TestSimulatorTimesOutWhenAgentsDoNoWork(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Agents.WorkRate = 0
	cfg.Simulation.MaxSimulationTime = 2

	s, err := NewSimulator(cfg, "FirstClaimGreedy", 1)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	metrics, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.TimedOut {
		t.Fatalf("expected a zero work_rate run to time out, metrics=%+v", metrics)
	}
	if metrics.MissionCompleted {
		t.Fatalf("a timed-out run should not also report mission completed")
	}
}

func TestSimulatorDynamicGenerationAddsTasksOverTime(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Tasks.Quantity = 1
	cfg.Tasks.DynamicTaskGeneration.Enabled = true
	cfg.Tasks.DynamicTaskGeneration.IntervalSeconds = 1
	cfg.Tasks.DynamicTaskGeneration.MaxGenerations = 3
	cfg.Tasks.DynamicTaskGeneration.TasksPerGeneration = 2
	cfg.Simulation.MaxSimulationTime = 5

	s, err := NewSimulator(cfg, "FirstClaimGreedy", 5)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	metrics, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if metrics.TasksGenerated != 6 {
		t.Fatalf("TasksGenerated = %d, want 3 generations * 2 tasks = 6", metrics.TasksGenerated)
	}
	if metrics.GenerationRounds != 3 {
		t.Fatalf("GenerationRounds = %d, want 3", metrics.GenerationRounds)
	}
}
