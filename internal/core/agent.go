package core

import "math"

// AgentID identifies an Agent within a World. Agents are created once at
// startup and the set never changes after that.
type AgentID int

// trackSize bounds the trailing position history kept per agent, matching
// the fixed ring length the source carries for its motion trail.
const trackSize = 400

// AssignedTask is an Option<TaskID>: Valid is false when the agent is
// unassigned.
type AssignedTask struct {
	ID    TaskID
	Valid bool
}

// Agent is a single mobile robot. Kinematic fields are mutated only by
// Follow/Update; allocator state lives behind AllocState so internal/alloc
// implementations never need a type in this package.
type Agent struct {
	ID AgentID

	Position     Vec2
	Velocity     Vec2
	Acceleration Vec2
	Rotation     float64

	MaxSpeed        float64
	MaxAccel        float64
	MaxAngularSpeed float64
	WorkRate        float64
	Radius          float64

	CommunicationRadius      float64
	SituationAwarenessRadius float64
	TargetApproachRadius     float64

	DistanceMoved  float64
	TaskAmountDone float64

	Assigned AssignedTask

	MessageToShare    Message
	MessagesReceived  []Message

	LocalAgents []*Agent
	LocalTasks  []*Task

	ExplorationTarget  Vec2
	ExplorationElapsed float64

	// AllocState holds the allocator-specific per-agent state (CBBA's
	// bundle/path/y/z/s, GRAPE's partition/evolution_number/time_stamp,
	// or Greedy's trivial state). Owned and type-asserted by internal/alloc.
	AllocState any

	trail    [trackSize]Vec2
	trailLen int
	trailPos int
}

// Follow computes the arrival-shaped desired velocity toward target and
// accumulates the clipped acceleration needed to reach it, per tick.
func (a *Agent) Follow(target Vec2) {
	offset := target.Sub(a.Position)
	dist := offset.Length()
	if dist == 0 {
		return
	}

	speed := a.MaxSpeed
	if a.TargetApproachRadius > 0 && dist < a.TargetApproachRadius {
		speed = a.MaxSpeed * dist / a.TargetApproachRadius
	}

	desired := offset.Scale(speed / dist)
	want := desired.Sub(a.Velocity).ClampLength(a.MaxAccel)
	a.Acceleration = a.Acceleration.Add(want)
}

// Halt zeroes velocity and acceleration for this tick, used by CBBA while
// non-converged if execute_movements_during_convergence is false.
func (a *Agent) Halt() {
	a.Velocity = Vec2{}
	a.Acceleration = Vec2{}
}

// Update integrates kinematics over dt: velocity and position, the
// trailing-position ring, and the rotation slew toward the heading of
// travel.
func (a *Agent) Update(dt float64) {
	a.Velocity = a.Velocity.Add(a.Acceleration.Scale(dt)).ClampLength(a.MaxSpeed)

	step := a.Velocity.Scale(dt)
	a.Position = a.Position.Add(step)
	a.DistanceMoved += step.Length()

	a.Acceleration = Vec2{}
	a.pushTrail(a.Position)

	if a.Velocity.LengthSq() > 1e-12 {
		heading := math.Atan2(a.Velocity.Y, a.Velocity.X)
		diff := WrapAngle(heading - a.Rotation)
		maxStep := a.MaxAngularSpeed * dt
		if diff > maxStep {
			diff = maxStep
		} else if diff < -maxStep {
			diff = -maxStep
		}
		a.Rotation = WrapAngle(a.Rotation + diff)
	}
}

func (a *Agent) pushTrail(p Vec2) {
	a.trail[a.trailPos] = p
	a.trailPos = (a.trailPos + 1) % trackSize
	if a.trailLen < trackSize {
		a.trailLen++
	}
}

// Trail returns the trailing positions in oldest-to-newest order.
func (a *Agent) Trail() []Vec2 {
	out := make([]Vec2, a.trailLen)
	start := a.trailPos - a.trailLen
	for i := 0; i < a.trailLen; i++ {
		idx := (start + i + trackSize) % trackSize
		out[i] = a.trail[idx]
	}
	return out
}
