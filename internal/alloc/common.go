// Package alloc implements the three interchangeable decentralized
// allocation strategies: First-Claim-Greedy, GRAPE, and CBBA. Each owns its
// own per-agent state (behind core.Agent.AllocState) and message payload
// type; core stays unaware of which strategy is running.
package alloc

import "github.com/elektrokombinacija/space/internal/core"

// Strategy is the uniform entry point the tick driver's DecisionMakingNode
// callback invokes for every agent, once per tick, after Sense has already
// populated LocalAgents/LocalTasks/MessagesReceived.
type Strategy interface {
	// Name identifies the strategy for logs and run metrics
	// ("CBBA", "GRAPE", "FirstClaimGreedy"; the CBAA alias reports "CBBA").
	Name() string

	// NewState allocates the per-agent allocator state this strategy
	// needs, to be stored in Agent.AllocState before the first tick.
	NewState() any

	// Decide runs one round of the strategy for a single agent: it reads
	// LocalTasks/MessagesReceived, updates AllocState and Assigned, and
	// sets MessageToShare for peers to pick up the next time they sense.
	Decide(a *core.Agent, world *core.World, now float64, rng core.Rng)
}

// claimedTaskIDs collects the set of task ids any peer message already
// claims as AssignedTaskID — used by Greedy to avoid double-claiming.
func claimedTaskIDs(messages []core.Message) map[core.TaskID]struct{} {
	claimed := make(map[core.TaskID]struct{})
	for _, m := range messages {
		gm, ok := m.Payload.(GreedyMsg)
		if !ok || gm.AssignedTaskID == nil {
			continue
		}
		claimed[*gm.AssignedTaskID] = struct{}{}
	}
	return claimed
}
