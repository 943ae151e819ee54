package alloc

import (
	"testing"

	"github.com/elektrokombinacija/space/internal/core"
)

func newGreedyAgent(id core.AgentID, pos core.Vec2, g *Greedy) *core.Agent {
	a := &core.Agent{ID: id, Position: pos}
	a.AllocState = g.NewState()
	return a
}

func TestGreedyEmptyLocalTasksPublishesNone(t *testing.T) {
	g := &Greedy{Config: GreedyConfig{Mode: ModeMinDist}}
	a := newGreedyAgent(0, core.Vec2{}, g)
	world := &core.World{}

	g.Decide(a, world, 0, core.NewRng(1))

	if a.Assigned.Valid {
		t.Fatalf("agent should be unassigned with no local tasks")
	}
	msg := a.MessageToShare.Payload.(GreedyMsg)
	if msg.AssignedTaskID != nil {
		t.Fatalf("expected nil assigned_task_id, got %v", *msg.AssignedTaskID)
	}
}

func TestGreedyMinDistPicksNearestUnclaimed(t *testing.T) {
	g := &Greedy{Config: GreedyConfig{Mode: ModeMinDist}}
	a := newGreedyAgent(0, core.Vec2{}, g)
	near := core.NewTask(0, core.Vec2{X: 1}, 10, 1)
	far := core.NewTask(1, core.Vec2{X: 100}, 10, 1)
	a.LocalTasks = []*core.Task{far, near}
	world := &core.World{Tasks: []*core.Task{near, far}}

	g.Decide(a, world, 0, core.NewRng(1))

	if !a.Assigned.Valid || a.Assigned.ID != near.ID {
		t.Fatalf("expected assignment to the nearer task, got %+v", a.Assigned)
	}
}

func TestGreedyFiltersPeerClaimedTasks(t *testing.T) {
	g := &Greedy{Config: GreedyConfig{Mode: ModeMinDist}}
	a := newGreedyAgent(0, core.Vec2{}, g)
	near := core.NewTask(0, core.Vec2{X: 1}, 10, 1)
	far := core.NewTask(1, core.Vec2{X: 100}, 10, 1)
	a.LocalTasks = []*core.Task{near, far}
	claimedID := near.ID
	a.MessagesReceived = []core.Message{{AgentID: 1, Payload: GreedyMsg{AgentID: 1, AssignedTaskID: &claimedID}}}
	world := &core.World{Tasks: []*core.Task{near, far}}

	g.Decide(a, world, 0, core.NewRng(1))

	if !a.Assigned.Valid || a.Assigned.ID != far.ID {
		t.Fatalf("expected fallback to the farther, unclaimed task, got %+v", a.Assigned)
	}
}

func TestGreedyAssignmentPersistsUntilCompleted(t *testing.T) {
	g := &Greedy{Config: GreedyConfig{Mode: ModeMinDist}}
	a := newGreedyAgent(0, core.Vec2{}, g)
	near := core.NewTask(0, core.Vec2{X: 1}, 10, 1)
	far := core.NewTask(1, core.Vec2{X: 2}, 10, 1)
	a.LocalTasks = []*core.Task{near, far}
	world := &core.World{Tasks: []*core.Task{near, far}}

	g.Decide(a, world, 0, core.NewRng(1))
	first := a.Assigned

	// A second call keeps the existing assignment instead of re-picking
	// among the candidates.
	g.Decide(a, world, 1, core.NewRng(1))
	if a.Assigned != first {
		t.Fatalf("assignment changed across ticks without completion: %+v -> %+v", first, a.Assigned)
	}

	near.ReduceAmount(100)
	g.Decide(a, world, 2, core.NewRng(1))
	if a.Assigned.Valid && a.Assigned.ID == near.ID {
		t.Fatalf("agent should have dropped the completed task")
	}
}
