package models

// Message represents a single turn in a chat-format conversation.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant" | "tool"
	Content string `json:"content"`
	Name    string `json:"name,omitempty"` // for tool messages
}

// Tool describes a callable function exposed to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is a unit of work submitted to the gateway. It is immutable after
// submission; the scheduler treats Messages and Tools as opaque payload.
type Request struct {
	ID          string    `json:"request_id"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float32   `json:"temperature"`

	// Tracing metadata, carried through to audit records.
	AgentID string `json:"agent_id,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Response is the result delivered back to the submitting caller.
type Response struct {
	RequestID string     `json:"request_id"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     *Usage     `json:"usage,omitempty"`
	LatencyMs int64      `json:"latency_ms"`
}
