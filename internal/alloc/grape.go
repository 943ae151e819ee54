package alloc

import (
	"math"

	"github.com/elektrokombinacija/space/internal/core"
)

// GRAPEConfig parametrizes the coalition-formation game.
type GRAPEConfig struct {
	CostWeightFactor       float64 // w
	SocialInhibitionFactor float64 // beta
	ReinitializeByDistance bool    // on task completion, reinitialize local coalition by nearest task
}

// GRAPEMsg is the payload GRAPE agents broadcast every tick: a snapshot of
// the sender's belief about the whole partition plus its evolution clock.
type GRAPEMsg struct {
	AgentID        core.AgentID
	Partition      map[core.TaskID][]core.AgentID
	EvolutionNumber int
	TimeStamp      float64
}

// grapeState is the per-agent GRAPE record: partition, evolution_number,
// time_stamp, satisfied, all as specified.
type grapeState struct {
	partition       map[core.TaskID]map[core.AgentID]bool
	evolutionNumber int
	timeStamp       float64
	satisfied       bool
}

// GRAPE is the coalition-formation game allocator.
type GRAPE struct {
	Config GRAPEConfig
}

func (g *GRAPE) Name() string { return "GRAPE" }

func (g *GRAPE) NewState() any {
	return &grapeState{partition: make(map[core.TaskID]map[core.AgentID]bool)}
}

func (g *GRAPE) coalitionOf(st *grapeState, id core.TaskID) map[core.AgentID]bool {
	c, ok := st.partition[id]
	if !ok {
		c = make(map[core.AgentID]bool)
		st.partition[id] = c
	}
	return c
}

// utility computes u(i,j) = amount_j/n_j - w*dist(i,j)*n_j^beta, where n_j
// is the coalition size at j including i.
func (g *GRAPE) utility(a *core.Agent, st *grapeState, t *core.Task) float64 {
	n := 1
	for id := range st.partition[t.ID] {
		if id != a.ID {
			n++
		}
	}
	nf := float64(n)
	dist := core.Distance(a.Position, t.Position)
	return t.Amount/nf - g.Config.CostWeightFactor*dist*math.Pow(nf, g.Config.SocialInhibitionFactor)
}

func (g *GRAPE) Decide(a *core.Agent, world *core.World, now float64, rng core.Rng) {
	st := a.AllocState.(*grapeState)

	// Completion handling: vacate the coalition, optionally reinitialize
	// by nearest local task.
	if a.Assigned.Valid {
		if t := world.TaskByID(a.Assigned.ID); t == nil || t.Completed {
			delete(g.coalitionOf(st, a.Assigned.ID), a.ID)
			a.Assigned = core.AssignedTask{}
			st.satisfied = false
			if g.Config.ReinitializeByDistance && len(a.LocalTasks) > 0 {
				nearest := a.LocalTasks[0]
				nearestDist := core.Distance(a.Position, nearest.Position)
				for _, t := range a.LocalTasks[1:] {
					if d := core.Distance(a.Position, t.Position); d < nearestDist {
						nearest, nearestDist = t, d
					}
				}
				g.coalitionOf(st, nearest.ID)[a.ID] = true
				a.Assigned = core.AssignedTask{ID: nearest.ID, Valid: true}
			}
		}
	}

	// Phase 1: self-update.
	if !st.satisfied {
		var curUtil float64 = math.Inf(-1)
		if a.Assigned.Valid {
			if t := world.TaskByID(a.Assigned.ID); t != nil {
				curUtil = g.utility(a, st, t)
			}
		}

		var bestTask *core.Task
		bestUtil := math.Inf(-1)
		for _, t := range a.LocalTasks {
			u := g.utility(a, st, t)
			if u > bestUtil {
				bestTask, bestUtil = t, u
			}
		}

		if bestTask != nil && bestUtil > curUtil {
			if a.Assigned.Valid {
				delete(g.coalitionOf(st, a.Assigned.ID), a.ID)
			}
			g.coalitionOf(st, bestTask.ID)[a.ID] = true
			a.Assigned = core.AssignedTask{ID: bestTask.ID, Valid: true}
			st.evolutionNumber++
			st.timeStamp = rng.Float64()
		}
		st.satisfied = true
	}

	a.MessageToShare = core.Message{AgentID: a.ID, Payload: GRAPEMsg{
		AgentID:         a.ID,
		Partition:       snapshotPartition(st.partition),
		EvolutionNumber: st.evolutionNumber,
		TimeStamp:       st.timeStamp,
	}}

	// Phase 2: distributed mutex convergence.
	for _, msg := range a.MessagesReceived {
		gm, ok := msg.Payload.(GRAPEMsg)
		if !ok {
			continue
		}
		fresher := gm.EvolutionNumber > st.evolutionNumber ||
			(gm.EvolutionNumber == st.evolutionNumber && gm.TimeStamp > st.timeStamp)
		if !fresher {
			continue
		}
		st.partition = restorePartition(gm.Partition)
		st.evolutionNumber = gm.EvolutionNumber
		st.timeStamp = gm.TimeStamp
		st.satisfied = false

		a.Assigned = core.AssignedTask{}
		for taskID, members := range st.partition {
			if members[a.ID] {
				a.Assigned = core.AssignedTask{ID: taskID, Valid: true}
				break
			}
		}
	}
}

func snapshotPartition(p map[core.TaskID]map[core.AgentID]bool) map[core.TaskID][]core.AgentID {
	out := make(map[core.TaskID][]core.AgentID, len(p))
	for taskID, members := range p {
		ids := make([]core.AgentID, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		out[taskID] = ids
	}
	return out
}

func restorePartition(p map[core.TaskID][]core.AgentID) map[core.TaskID]map[core.AgentID]bool {
	out := make(map[core.TaskID]map[core.AgentID]bool, len(p))
	for taskID, ids := range p {
		members := make(map[core.AgentID]bool, len(ids))
		for _, id := range ids {
			members[id] = true
		}
		out[taskID] = members
	}
	return out
}
