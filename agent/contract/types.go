package contract

import "encoding/json"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation history. Assistant messages may
// carry tool calls; tool messages answer exactly one of them, correlated by
// ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object
}

// ToolSpec describes one catalog entry offered to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Outcome is the uniform result shape of every tool execution. It marshals
// as a flat object: the payload fields plus "success" and, on failure,
// "error".
type Outcome struct {
	Success bool
	Error   string
	Fields  map[string]any
}

func SuccessOutcome(fields map[string]any) Outcome {
	return Outcome{Success: true, Fields: fields}
}

func FailureOutcome(msg string) Outcome {
	return Outcome{Success: false, Error: msg}
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o.Fields)+2)
	for k, v := range o.Fields {
		m[k] = v
	}
	m["success"] = o.Success
	if o.Error != "" {
		m["error"] = o.Error
	}
	return json.Marshal(m)
}

// AskResult is the final answer of one orchestrated exchange.
type AskResult struct {
	Answer     string `json:"answer"`
	Iterations int    `json:"iterations"`
	Note       string `json:"note,omitempty"`
}
