package core

// Sense populates a's view of the world for this tick: local_agents_info
// (peers within CommunicationRadius), local_tasks_info (incomplete tasks
// within SituationAwarenessRadius), and drains every in-range peer's
// MessageToShare into a's MessagesReceived. A radius of zero means "global"
// — every peer or task is visible regardless of distance.
//
// MessagesReceived is reset at the start of every call and then holds each
// in-range peer's current MessageToShare, so messages never accumulate
// across calls; a peer that has not published since the last call is
// delivered the same message again.
func Sense(a *Agent, peers []*Agent, tasks []*Task) {
	a.LocalAgents = a.LocalAgents[:0]
	a.MessagesReceived = a.MessagesReceived[:0]

	for _, p := range peers {
		if p.ID == a.ID {
			continue
		}
		if !withinRadius(DistanceSq(a.Position, p.Position), a.CommunicationRadius) {
			continue
		}
		a.LocalAgents = append(a.LocalAgents, p)
		a.MessagesReceived = append(a.MessagesReceived, p.MessageToShare)
	}

	a.LocalTasks = a.LocalTasks[:0]
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if !withinRadius(DistanceSq(a.Position, t.Position), a.SituationAwarenessRadius) {
			continue
		}
		a.LocalTasks = append(a.LocalTasks, t)
	}
}

func withinRadius(distSq, radius float64) bool {
	if radius <= 0 {
		return true
	}
	return distSq <= radius*radius
}
