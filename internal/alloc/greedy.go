package alloc

import "github.com/elektrokombinacija/space/internal/core"

// Mode selects how FirstClaimGreedy picks among its unclaimed candidate
// tasks.
type Mode int

const (
	ModeRandom Mode = iota
	ModeMinDist
	ModeMaxUtil
)

// GreedyConfig parametrizes the First-Claim-Greedy allocator.
type GreedyConfig struct {
	Mode                  Mode
	WeightFactorCost      float64
	EnforcedCollaboration bool
}

// GreedyMsg is the payload Greedy agents broadcast: the claimed task, or
// nil when unassigned.
type GreedyMsg struct {
	AgentID        core.AgentID
	AssignedTaskID *core.TaskID
}

// greedyState is trivial — Greedy keeps no allocator history beyond the
// agent's own Assigned field, but every strategy owns an AllocState value
// for uniformity with GRAPE/CBBA.
type greedyState struct{}

// Greedy is the First-Claim-Greedy allocator.
type Greedy struct {
	Config GreedyConfig
}

func (g *Greedy) Name() string  { return "FirstClaimGreedy" }
func (g *Greedy) NewState() any { return &greedyState{} }

func (g *Greedy) Decide(a *core.Agent, world *core.World, now float64, rng core.Rng) {
	if a.Assigned.Valid {
		if t := world.TaskByID(a.Assigned.ID); t == nil || t.Completed {
			a.Assigned = core.AssignedTask{}
		}
	}

	if a.Assigned.Valid {
		id := a.Assigned.ID
		a.MessageToShare = core.Message{AgentID: a.ID, Payload: GreedyMsg{AgentID: a.ID, AssignedTaskID: &id}}
		return
	}

	if len(a.LocalTasks) == 0 {
		a.MessageToShare = core.Message{AgentID: a.ID, Payload: GreedyMsg{AgentID: a.ID}}
		return
	}

	var candidates []*core.Task
	if g.Config.EnforcedCollaboration && len(a.LocalTasks) == 1 {
		candidates = a.LocalTasks
	} else {
		claimed := claimedTaskIDs(a.MessagesReceived)
		for _, t := range a.LocalTasks {
			if _, ok := claimed[t.ID]; !ok && !t.Completed {
				candidates = append(candidates, t)
			}
		}
	}

	if len(candidates) == 0 {
		a.MessageToShare = core.Message{AgentID: a.ID, Payload: GreedyMsg{AgentID: a.ID}}
		return
	}

	chosen := g.pick(a, candidates, rng)
	id := chosen.ID
	a.Assigned = core.AssignedTask{ID: id, Valid: true}
	a.MessageToShare = core.Message{AgentID: a.ID, Payload: GreedyMsg{AgentID: a.ID, AssignedTaskID: &id}}
}

func (g *Greedy) pick(a *core.Agent, candidates []*core.Task, rng core.Rng) *core.Task {
	switch g.Config.Mode {
	case ModeRandom:
		return candidates[rng.Intn(len(candidates))]
	case ModeMaxUtil:
		best := candidates[0]
		bestUtil := best.Amount - g.Config.WeightFactorCost*core.Distance(a.Position, best.Position)
		for _, t := range candidates[1:] {
			u := t.Amount - g.Config.WeightFactorCost*core.Distance(a.Position, t.Position)
			if u > bestUtil {
				best, bestUtil = t, u
			}
		}
		return best
	default: // ModeMinDist
		best := candidates[0]
		bestDist := core.Distance(a.Position, best.Position)
		for _, t := range candidates[1:] {
			d := core.Distance(a.Position, t.Position)
			if d < bestDist {
				best, bestDist = t, d
			}
		}
		return best
	}
}
