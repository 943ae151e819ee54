package core

// Message is the generic envelope every agent publishes through
// MessageToShare and collects into MessagesReceived. Payload shape depends
// on the active allocator (CBBA sends {z,y,s}, GRAPE sends
// {partition,evolution_number,time_stamp}, Greedy sends
// {assigned_task_id}) — each allocator package defines and type-asserts its
// own payload type, so core stays agnostic to which strategy is running.
type Message struct {
	AgentID AgentID
	Payload any
}
