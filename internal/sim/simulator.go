// Package sim implements the tick driver: per-tick ordering of the
// behaviour-tree pipeline and kinematic integration, dynamic task
// generation, and mission-completed latching.
package sim

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/space/internal/alloc"
	"github.com/elektrokombinacija/space/internal/bt"
	"github.com/elektrokombinacija/space/internal/config"
	"github.com/elektrokombinacija/space/internal/core"
	"github.com/elektrokombinacija/space/internal/topology"
)

// Simulator owns a single run's World, allocator strategy, and per-agent
// behaviour trees, and drives them tick by tick.
type Simulator struct {
	mu sync.Mutex

	runID    string
	strategy alloc.Strategy
	rng      core.Rng

	world   *core.World
	trees   []bt.Node
	treeXML []byte

	dt                  float64
	maxSimTime          float64
	explorationDuration float64
	arrivalThreshold    float64

	lastIsolated int

	// TickHook, if set, is called with each step's wall-clock duration —
	// used by cmd/space to feed the tick-duration telemetry histogram
	// without the tick driver depending on Prometheus.
	TickHook func(time.Duration)

	metrics *Metrics
}

// topologyCheckEvery throttles the communication-connectivity diagnostic to
// once every N ticks rather than every tick — it is informational, not
// part of any allocator's convergence logic.
const topologyCheckEvery = 10

// NewSimulator builds a World from cfg (sampling agent/task positions with
// the given seed) and wires the requested strategy. strategyName is one of
// "CBAA", "CBBA", "GRAPE", "FirstClaimGreedy".
func NewSimulator(cfg *config.Config, strategyName string, seed int64) (*Simulator, error) {
	params, err := cfg.ResolveStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	strategy, err := buildStrategy(strategyName, params)
	if err != nil {
		return nil, err
	}

	rng := core.NewRng(seed)

	rect := core.Rect{
		XMin: cfg.Agents.Locations.XMin, XMax: cfg.Agents.Locations.XMax,
		YMin: cfg.Agents.Locations.YMin, YMax: cfg.Agents.Locations.YMax,
	}
	agentPositions, err := core.SamplePositions(rng, cfg.Agents.Quantity, rect, cfg.Agents.Locations.NonOverlapRadius)
	if err != nil {
		return nil, fmt.Errorf("sim: placing agents: %w", err)
	}

	taskRect := core.Rect{
		XMin: cfg.Tasks.Locations.XMin, XMax: cfg.Tasks.Locations.XMax,
		YMin: cfg.Tasks.Locations.YMin, YMax: cfg.Tasks.Locations.YMax,
	}
	taskPositions, err := core.SamplePositions(rng, cfg.Tasks.Quantity, taskRect, cfg.Tasks.Locations.NonOverlapRadius)
	if err != nil {
		return nil, fmt.Errorf("sim: placing tasks: %w", err)
	}

	tasks := make([]*core.Task, 0, len(taskPositions))
	for i, pos := range taskPositions {
		amount := core.UniformRange(rng, cfg.Tasks.AmountMin, cfg.Tasks.AmountMax)
		tasks = append(tasks, core.NewTask(core.TaskID(i), pos, amount, cfg.Tasks.BaseRadius))
	}

	agents := make([]*core.Agent, 0, len(agentPositions))
	for i, pos := range agentPositions {
		a := &core.Agent{
			ID:                       core.AgentID(i),
			Position:                 pos,
			MaxSpeed:                 cfg.Agents.MaxSpeed,
			MaxAccel:                 cfg.Agents.MaxAccel,
			MaxAngularSpeed:          cfg.Agents.MaxAngularSpeed,
			WorkRate:                 cfg.Agents.WorkRate,
			Radius:                   cfg.Agents.Radius,
			CommunicationRadius:      cfg.Agents.CommunicationRadius,
			SituationAwarenessRadius: cfg.Agents.SituationAwarenessRadius,
			TargetApproachRadius:     cfg.Agents.TargetApproachingRadius,
		}
		a.AllocState = strategy.NewState()
		agents = append(agents, a)
	}

	world := &core.World{
		Rect:   taskRect,
		Tasks:  tasks,
		Agents: agents,
		TaskGen: &core.TaskGenerator{
			Enabled:            cfg.Tasks.DynamicTaskGeneration.Enabled,
			IntervalSeconds:    cfg.Tasks.DynamicTaskGeneration.IntervalSeconds,
			MaxGenerations:     cfg.Tasks.DynamicTaskGeneration.MaxGenerations,
			TasksPerGeneration: cfg.Tasks.DynamicTaskGeneration.TasksPerGeneration,
			Rect:               taskRect,
			NonOverlapRadius:   cfg.Tasks.Locations.NonOverlapRadius,
			AmountMin:          cfg.Tasks.AmountMin,
			AmountMax:          cfg.Tasks.AmountMax,
			TaskBaseRadius:     cfg.Tasks.BaseRadius,
		},
	}

	var treeXML []byte
	if cfg.Agents.BehaviorTreeXML != "" {
		treeXML, err = os.ReadFile(cfg.Agents.BehaviorTreeXML)
		if err != nil {
			return nil, fmt.Errorf("sim: reading behavior tree %s: %w", cfg.Agents.BehaviorTreeXML, err)
		}
	}

	s := &Simulator{
		runID:               uuid.New().String()[:8],
		strategy:            strategy,
		rng:                 rng,
		world:               world,
		dt:                  1.0 / cfg.Simulation.SamplingFreq,
		maxSimTime:          cfg.Simulation.MaxSimulationTime,
		explorationDuration: cfg.Agents.RandomExplorationDuration,
		arrivalThreshold:    cfg.Tasks.ThresholdDoneByArrival,
		treeXML:             treeXML,
		metrics: &Metrics{
			Strategy:     strategy.Name(),
			Seed:         seed,
			TasksInitial: len(tasks),
		},
	}
	s.metrics.RunID = s.runID
	log.Printf("[INFO] sim[%s]: built with strategy=%s seed=%d agents=%d tasks=%d", s.runID, strategy.Name(), seed, len(agents), len(tasks))

	s.trees = make([]bt.Node, len(agents))
	for i, a := range agents {
		tree, err := s.buildAgentTree(a)
		if err != nil {
			return nil, fmt.Errorf("sim: building behavior tree for agent %d: %w", a.ID, err)
		}
		s.trees[i] = tree
	}

	return s, nil
}

func buildStrategy(name string, params any) (alloc.Strategy, error) {
	switch name {
	case "FirstClaimGreedy":
		p := params.(*config.GreedyParams)
		mode := alloc.ModeMinDist
		switch p.Mode {
		case "Random":
			mode = alloc.ModeRandom
		case "MaxUtil":
			mode = alloc.ModeMaxUtil
		}
		return &alloc.Greedy{Config: alloc.GreedyConfig{
			Mode:                  mode,
			WeightFactorCost:      p.WeightFactorCost,
			EnforcedCollaboration: p.EnforcedCollaboration,
		}}, nil
	case "GRAPE":
		p := params.(*config.GRAPEParams)
		return &alloc.GRAPE{Config: alloc.GRAPEConfig{
			CostWeightFactor:       p.CostWeightFactor,
			SocialInhibitionFactor: p.SocialInhibitionFactor,
			ReinitializeByDistance: p.ReinitializeByDistance,
		}}, nil
	case "CBBA", "CBAA":
		p := params.(*config.CBBAParams)
		return &alloc.CBBA{Config: alloc.CBBAConfig{
			MaxTasksPerAgent:                  p.MaxTasksPerAgent,
			TaskRewardDiscountFactor:          p.TaskRewardDiscountFactor,
			ExecuteMovementsDuringConvergence: p.ExecuteMovementsDuringConvergence,
			WinningBidCancel:                  p.WinningBidCancel,
			AcceptableEmptyBundleDuration:     p.AcceptableEmptyBundleDuration,
		}}, nil
	default:
		return nil, &config.ErrUnknownStrategy{Name: name}
	}
}

// World exposes read-only access to the current simulation state for
// external collaborators (renderers, exporters, the telemetry feed).
func (s *Simulator) World() *core.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

// Metrics returns a snapshot of the running totals.
func (s *Simulator) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.metrics
}

// Run advances the simulation tick by tick until the mission completes,
// max_simulation_time elapses, or ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) (*Metrics, error) {
	s.metrics.wallStart = time.Now()
	for {
		select {
		case <-ctx.Done():
			s.finalizeMetrics()
			return s.metrics, ctx.Err()
		default:
		}

		s.step()

		if s.world.MissionCompleted {
			log.Printf("[INFO] sim[%s]: mission completed at t=%.2fs (tick %d)", s.runID, s.world.SimTime, s.world.TickCount)
			break
		}
		if s.maxSimTime > 0 && s.world.SimTime > s.maxSimTime {
			s.metrics.TimedOut = true
			log.Printf("[INFO] sim[%s]: timed out at t=%.2fs with %d task(s) remaining", s.runID, s.world.SimTime, s.world.IncompleteTasks())
			break
		}
	}
	s.finalizeMetrics()
	return s.metrics, nil
}

// step is one pass of the tick driver: behaviour trees, then kinematics,
// then the clock, then mission-completed detection, then dynamic
// generation. This exact ordering is load-bearing for CBBA/GRAPE
// convergence timing.
func (s *Simulator) step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if s.TickHook != nil {
		defer func() { s.TickHook(time.Since(start)) }()
	}

	for _, tree := range s.trees {
		tree.Tick()
	}
	for _, a := range s.world.Agents {
		a.Update(s.dt)
	}

	s.world.SimTime += s.dt
	s.world.TickCount++

	if s.world.TickCount%topologyCheckEvery == 0 {
		if report, err := topology.Analyze(s.world.Agents); err != nil {
			log.Printf("[WARN] sim[%s]: connectivity analysis failed: %v", s.runID, err)
		} else {
			if len(report.Isolated) > s.metrics.MaxIsolatedAgents {
				s.metrics.MaxIsolatedAgents = len(report.Isolated)
			}
			if len(report.Isolated) > 0 && len(report.Isolated) != s.lastIsolated {
				log.Printf("[WARN] sim[%s]: %d agent(s) isolated from the communication graph at t=%.2fs",
					s.runID, len(report.Isolated), s.world.SimTime)
			}
			s.lastIsolated = len(report.Isolated)
		}
	}

	if s.world.IncompleteTasks() == 0 && s.world.TaskGen.Done() {
		s.world.MissionCompleted = true
	}

	created, err := s.world.TaskGen.Maybe(s.world.SimTime, s.rng, &s.world.Tasks)
	if err != nil {
		log.Printf("[WARN] sim[%s]: dynamic task generation failed: %v", s.runID, err)
	} else if len(created) > 0 {
		s.metrics.TasksGenerated += len(created)
		s.metrics.GenerationRounds++
		log.Printf("[INFO] sim[%s]: t=%.2fs added %d new task(s), generation %d", s.runID, s.world.SimTime, len(created), s.world.TaskGen.GenerationCount)
	}
}

func (s *Simulator) finalizeMetrics() {
	s.metrics.Ticks = s.world.TickCount
	s.metrics.SimTimeSeconds = s.world.SimTime
	s.metrics.WallClockSeconds = time.Since(s.metrics.wallStart).Seconds()
	s.metrics.TasksRemaining = s.world.IncompleteTasks()
	s.metrics.TasksCompleted = len(s.world.Tasks) - s.metrics.TasksRemaining
	s.metrics.MissionCompleted = s.world.MissionCompleted

	var dist, done float64
	for _, a := range s.world.Agents {
		dist += a.DistanceMoved
		done += a.TaskAmountDone
	}
	s.metrics.TotalDistanceMoved = dist
	s.metrics.TotalTaskAmountDone = done
}
