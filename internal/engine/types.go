// Package engine implements the autonomous agent control core: the
// context window, iteration budget, state machine, and orchestrator loop
// that drive one task to completion against a streaming LLM endpoint.
package engine

import "time"

// EntryKind classifies an entry in the Context Window.
type EntryKind string

const (
	EntrySystem      EntryKind = "system"
	EntryGoal        EntryKind = "goal"
	EntryAssistant   EntryKind = "assistant"
	EntryObservation EntryKind = "observation"
)

// Entry is one unit of the Context Window (spec "Context Window").
type Entry struct {
	Kind          EntryKind
	Text          string
	TokenEstimate int
}

// Task is the immutable unit of work handed to the Orchestrator. Created on
// entry and never mutated afterward.
type Task struct {
	ID        string
	GoalText  string
	CreatedAt time.Time
}

// MessageKind tags the variant of a parsed AgentMessage.
type MessageKind string

const (
	MsgToolCall MessageKind = "tool_call"
	MsgFinal    MessageKind = "final"
	MsgThought  MessageKind = "thought"
)

// AgentMessage is the tagged variant produced by parsing one complete JSON
// object extracted from the model's output stream ("Agent Message" in the
// data model).
type AgentMessage struct {
	Kind      MessageKind
	ToolName  string
	Arguments map[string]any
	Text      string // FinalAnswer text, or Thought text

	// ToolCalls holds every call of a batched invoke_parallel turn (spec
	// §5's invoke_parallel). A single-tool turn leaves this nil; ToolName
	// and Arguments above are then the sole call.
	ToolCalls []ToolCall
}

// ToolCall is one entry of a batched tool-call turn.
type ToolCall struct {
	ToolName  string
	Arguments map[string]any
}

// rawAgentMessage mirrors the wire schema:
//
//	{"tool": "<name>", "arguments": {...}}
//	{"tools": [{"tool": "<name>", "arguments": {...}}, ...]}
//	{"final": "<answer>"}
//	{"thought": "<text>"}
//
// Additional fields are ignored by design.
type rawAgentMessage struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Tools     []rawToolCall  `json:"tools"`
	Final     string         `json:"final"`
	Thought   string         `json:"thought"`
}

// rawToolCall is one entry of a batched "tools" turn.
type rawToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// MemoryRecord is a single entry in the bounded Memory Store.
type MemoryRecord struct {
	ToolName            string
	ArgDigest           string
	ObservationSummary  string
	Timestamp           time.Time
}
