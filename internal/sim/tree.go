package sim

import (
	_ "embed"

	"github.com/elektrokombinacija/space/internal/bt"
	"github.com/elektrokombinacija/space/internal/core"
)

//go:embed defaulttree.xml
var defaultTreeXML []byte

// buildAgentTree wires the four standard action callbacks to a behaviour
// tree for a single agent, using the agents.behavior_tree_xml contents that
// NewSimulator read into s.treeXML if set, or the embedded default otherwise.
func (s *Simulator) buildAgentTree(a *core.Agent) (bt.Node, error) {
	callbacks := map[string]bt.ActionFunc{
		"LocalSensingNode": func() bt.Status {
			core.Sense(a, s.world.Agents, s.world.Tasks)
			return bt.Success
		},
		"DecisionMakingNode": func() bt.Status {
			s.strategy.Decide(a, s.world, s.world.SimTime, s.rng)
			if a.Assigned.Valid {
				return bt.Success
			}
			return bt.Failure
		},
		"TaskExecutingNode": func() bt.Status {
			return s.taskExecuting(a)
		},
		"ExplorationNode": func() bt.Status {
			return s.explore(a)
		},
	}

	data := s.treeXML
	if len(data) == 0 {
		data = defaultTreeXML
	}
	return bt.Load(data, callbacks)
}

// taskExecuting implements 4.7: move toward the assigned task, doing work
// once in range, and reporting Success only once the task was already
// completed on a prior tick.
func (s *Simulator) taskExecuting(a *core.Agent) bt.Status {
	if !a.Assigned.Valid {
		return bt.Failure
	}
	t := s.world.TaskByID(a.Assigned.ID)
	if t == nil {
		a.Assigned = core.AssignedTask{}
		return bt.Failure
	}

	dist := core.Distance(a.Position, t.Position)
	if dist < t.Radius()+s.arrivalThreshold {
		if t.Completed {
			return bt.Success
		}
		work := a.WorkRate * s.dt
		if work > t.Amount {
			work = t.Amount
		}
		t.ReduceAmount(a.WorkRate * s.dt)
		a.TaskAmountDone += work
	}

	a.Follow(t.Position)
	return bt.Running
}

// explore implements 4.6: wander toward a random waypoint, redrawn every
// random_exploration_duration seconds.
func (s *Simulator) explore(a *core.Agent) bt.Status {
	a.ExplorationElapsed -= s.dt
	if a.ExplorationElapsed <= 0 {
		a.ExplorationTarget = core.Vec2{
			X: core.UniformRange(s.rng, s.world.Rect.XMin, s.world.Rect.XMax),
			Y: core.UniformRange(s.rng, s.world.Rect.YMin, s.world.Rect.YMax),
		}
		a.ExplorationElapsed = s.explorationDuration
	}
	a.Follow(a.ExplorationTarget)
	return bt.Running
}
