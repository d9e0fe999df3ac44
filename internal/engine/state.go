package engine

import "time"

// State is the Orchestrator's per-task working state: the live FSM
// position plus the counters and sub-components an iteration needs to
// decide what happens next. One State exists per in-flight Task.
type State struct {
	Task    Task
	Machine *FSM

	Window  *ContextWindow
	Memory  *MemoryStore
	Budget  *IterationBudget
	History []AgentMessage

	Step      int
	Retries   int
	StartedAt time.Time
}

// NewState wires a fresh State for task, seeded with a context window and
// memory store at their default configuration, and a budget allocated from
// complexity via mgr.
func NewState(task Task, mgr *BudgetManager, complexity float64) *State {
	return &State{
		Task:      task,
		Machine:   NewFSM(),
		Window:    NewContextWindow(),
		Memory:    NewMemoryStore(),
		Budget:    mgr.Allocate(complexity),
		StartedAt: time.Now(),
	}
}

// Phase returns the current control-automaton state, for logging/telemetry
// call sites that only need to read it.
func (s *State) Phase() RunState { return s.Machine.Current() }

// Append records one parsed AgentMessage in the iteration history.
func (s *State) Append(msg AgentMessage) { s.History = append(s.History, msg) }
