package alloc

import (
	"math"

	"github.com/elektrokombinacija/space/internal/core"
)

// CBBAConfig parametrizes bundle construction and consensus.
type CBBAConfig struct {
	MaxTasksPerAgent                  int
	TaskRewardDiscountFactor          float64 // lambda
	ExecuteMovementsDuringConvergence bool
	WinningBidCancel                  bool
	AcceptableEmptyBundleDuration     float64
}

// zEntry is CBBA's Option<agent_id> winning-agent table value.
type zEntry struct {
	Agent core.AgentID
	Valid bool
}

// CBBAMsg is the payload CBBA agents broadcast every tick: the winning-bid,
// winning-agent, and timestamp tables.
type CBBAMsg struct {
	AgentID core.AgentID
	Z       map[core.TaskID]zEntry
	Y       map[core.TaskID]float64
	S       map[core.AgentID]float64
}

// cbbaState is the per-agent CBBA record.
type cbbaState struct {
	z map[core.TaskID]zEntry
	y map[core.TaskID]float64
	s map[core.AgentID]float64

	bundle []core.TaskID
	path   []core.TaskID

	bundleEmptySince float64
	wasEmpty         bool
}

// CBBA is the Consensus-Based Bundle Algorithm allocator.
type CBBA struct {
	Config CBBAConfig
}

func (c *CBBA) Name() string { return "CBBA" }

func (c *CBBA) NewState() any {
	return &cbbaState{
		z: make(map[core.TaskID]zEntry),
		y: make(map[core.TaskID]float64),
		s: make(map[core.AgentID]float64),
	}
}

func (c *CBBA) Decide(a *core.Agent, world *core.World, now float64, rng core.Rng) {
	st := a.AllocState.(*cbbaState)

	// Task completion: pop the head of path, and remove the same task from
	// bundle, once the assigned task is marked done.
	if a.Assigned.Valid {
		if t := world.TaskByID(a.Assigned.ID); t != nil && t.Completed &&
			len(st.path) > 0 && st.path[0] == a.Assigned.ID {
			st.path = st.path[1:]
			if len(st.bundle) > 0 {
				st.bundle = removeTask(st.bundle, a.Assigned.ID)
			}
			a.Assigned = core.AssignedTask{}
		}
	}

	// Empty-bundle watchdog: escape a stalemate by clearing all tables.
	if c.Config.WinningBidCancel {
		if len(st.bundle) == 0 {
			if !st.wasEmpty {
				st.bundleEmptySince = now
				st.wasEmpty = true
			} else if now-st.bundleEmptySince >= c.Config.AcceptableEmptyBundleDuration {
				st.y = make(map[core.TaskID]float64)
				st.z = make(map[core.TaskID]zEntry)
				st.s = make(map[core.AgentID]float64)
			}
		} else {
			st.wasEmpty = false
		}
	}

	// Phase 1: build bundle.
	c.buildBundle(a, world, st)
	postBuildBundle := append([]core.TaskID(nil), st.bundle...)

	a.MessageToShare = core.Message{AgentID: a.ID, Payload: CBBAMsg{
		AgentID: a.ID,
		Z:       cloneZ(st.z),
		Y:       cloneY(st.y),
		S:       cloneS(st.s),
	}}

	// Timestamp vector update (equation 5): direct neighbors get the
	// current time; two-hop freshness propagates via a max-merge.
	for _, peer := range a.LocalAgents {
		st.s[peer.ID] = now
	}
	for _, msg := range a.MessagesReceived {
		cm, ok := msg.Payload.(CBBAMsg)
		if !ok {
			continue
		}
		for m, ts := range cm.S {
			if ts > st.s[m] {
				st.s[m] = ts
			}
		}
	}

	// Phase 2: consensus over the 16-rule table.
	for _, msg := range a.MessagesReceived {
		cm, ok := msg.Payload.(CBBAMsg)
		if !ok {
			continue
		}
		seen := make(map[core.TaskID]bool)
		for j := range st.z {
			seen[j] = true
		}
		for j := range cm.Z {
			seen[j] = true
		}
		for j := range seen {
			c.applyRule(a.ID, st, cm, j)
		}
	}

	// Release commitments past the first lost bid: walk bundle (commitment
	// order), find the first task no longer won by self, and truncate both
	// bundle and path to that same index.
	cutoff := len(st.bundle)
	for idx, taskID := range st.bundle {
		if e := st.z[taskID]; !e.Valid || e.Agent != a.ID {
			cutoff = idx
			break
		}
	}
	st.bundle = st.bundle[:cutoff]
	st.path = st.path[:cutoff]

	converged := equalTaskIDs(st.bundle, postBuildBundle)
	if converged {
		if len(st.path) > 0 {
			a.Assigned = core.AssignedTask{ID: st.path[0], Valid: true}
		} else {
			a.Assigned = core.AssignedTask{}
		}
		return
	}

	a.Assigned = core.AssignedTask{}
	if len(st.path) == 0 {
		return
	}
	if c.Config.ExecuteMovementsDuringConvergence {
		if t := world.TaskByID(st.path[0]); t != nil {
			a.Follow(t.Position)
		}
	} else {
		a.Halt()
	}
}

// buildBundle runs Algorithm 3: greedily insert the locally visible task
// with the best marginal score, one task per iteration, until the bundle
// is full or no task yields a winning bid.
func (c *CBBA) buildBundle(a *core.Agent, world *core.World, st *cbbaState) {
	cap := c.Config.MaxTasksPerAgent
	if cap > len(a.LocalTasks) {
		cap = len(a.LocalTasks)
	}

	for len(st.bundle) < cap {
		inPath := make(map[core.TaskID]bool, len(st.path))
		for _, id := range st.path {
			inPath[id] = true
		}

		var bestTask *core.Task
		bestBid := math.Inf(-1)
		bestIdx := 0

		for _, t := range a.LocalTasks {
			if inPath[t.ID] {
				continue
			}
			baseScore := c.scorePath(a, world, st.path)
			marginalBest := math.Inf(-1)
			marginalIdx := 0
			for k := 0; k <= len(st.path); k++ {
				candidate := insertAt(st.path, k, t.ID)
				s := c.scorePath(a, world, candidate) - baseScore
				if s > marginalBest {
					marginalBest, marginalIdx = s, k
				}
			}
			if marginalBest <= st.y[t.ID] {
				continue // does not strictly exceed the current winning bid
			}
			if marginalBest > bestBid {
				bestTask, bestBid, bestIdx = t, marginalBest, marginalIdx
			}
		}

		if bestTask == nil || math.IsInf(bestBid, -1) {
			break
		}

		st.bundle = append(st.bundle, bestTask.ID)
		st.path = insertAt(st.path, bestIdx, bestTask.ID)
		st.y[bestTask.ID] = bestBid
		st.z[bestTask.ID] = zEntry{Agent: a.ID, Valid: true}
	}
}

// scorePath is the time-discounted reward model S(p) = sum lambda^t_j *
// amount_j, with t_j the cumulative travel+work time to reach task j along
// p starting from the agent's current position.
func (c *CBBA) scorePath(a *core.Agent, world *core.World, path []core.TaskID) float64 {
	pos := a.Position
	t := 0.0
	score := 0.0
	for _, id := range path {
		task := world.TaskByID(id)
		if task == nil {
			continue
		}
		if a.MaxSpeed > 0 {
			t += core.Distance(pos, task.Position) / a.MaxSpeed
		}
		score += math.Pow(c.Config.TaskRewardDiscountFactor, t) * task.Amount
		if a.WorkRate > 0 {
			t += task.Amount / a.WorkRate
		}
		pos = task.Position
	}
	return score
}

// applyRule implements one entry of the Choi-How-How (2009) Table 1
// conflict-resolution rules for task j, given peer k's reported table cm.
func (c *CBBA) applyRule(self core.AgentID, st *cbbaState, cm CBBAMsg, j core.TaskID) {
	k := cm.AgentID
	zk := cm.Z[j]
	zi := st.z[j]
	yk := cm.Y[j]
	yi := st.y[j]

	fresher := func(m core.AgentID) bool { return cm.S[m] > st.s[m] }

	update := func() { st.y[j] = yk; st.z[j] = zk }
	reset := func() { st.y[j] = 0; st.z[j] = zEntry{} }

	switch {
	case zk.Valid && zk.Agent == k: // peer claims itself the winner
		switch {
		case !zi.Valid:
			update()
		case zi.Agent == self:
			if yk > yi {
				update()
			}
		case zi.Agent == k:
			update()
		default: // zi is a third party m
			if fresher(zi.Agent) {
				update()
			} else if yk > yi {
				update()
			}
		}

	case zk.Valid && zk.Agent == self: // peer thinks the receiver won
		switch {
		case !zi.Valid:
			// leave
		case zi.Agent == self:
			// leave
		case zi.Agent == k:
			reset()
		default:
			if fresher(zi.Agent) {
				reset()
			}
		}

	case !zk.Valid: // peer thinks no one has won
		switch {
		case !zi.Valid:
			// leave
		case zi.Agent == self:
			// leave
		case zi.Agent == k:
			update()
		default:
			if fresher(zi.Agent) {
				update()
			}
		}

	default: // peer claims a third party m won
		m := zk.Agent
		switch {
		case !zi.Valid:
			if fresher(m) {
				update()
			}
		case zi.Agent == self:
			if fresher(m) && yk > yi {
				update()
			}
		case zi.Agent == k:
			if fresher(m) {
				update()
			} else {
				reset()
			}
		case zi.Agent == m:
			if fresher(m) {
				update()
			}
		default: // zi is yet another third party n
			n := zi.Agent
			switch {
			case fresher(m) && fresher(n):
				update()
			case fresher(m) && yk > yi:
				update()
			case fresher(n) && st.s[m] > cm.S[m]:
				reset()
			}
		}
	}
}

func insertAt(path []core.TaskID, idx int, id core.TaskID) []core.TaskID {
	out := make([]core.TaskID, 0, len(path)+1)
	out = append(out, path[:idx]...)
	out = append(out, id)
	out = append(out, path[idx:]...)
	return out
}

func removeTask(bundle []core.TaskID, id core.TaskID) []core.TaskID {
	out := bundle[:0]
	for _, b := range bundle {
		if b != id {
			out = append(out, b)
		}
	}
	return out
}

func equalTaskIDs(a, b []core.TaskID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneZ(z map[core.TaskID]zEntry) map[core.TaskID]zEntry {
	out := make(map[core.TaskID]zEntry, len(z))
	for k, v := range z {
		out[k] = v
	}
	return out
}

func cloneY(y map[core.TaskID]float64) map[core.TaskID]float64 {
	out := make(map[core.TaskID]float64, len(y))
	for k, v := range y {
		out[k] = v
	}
	return out
}

func cloneS(s map[core.AgentID]float64) map[core.AgentID]float64 {
	out := make(map[core.AgentID]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
