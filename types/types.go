package types

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a reconstructed chat message as rendered by clients.
type Message struct {
	ID        string  `json:"id"`
	Role      Role    `json:"role"`
	Content   string  `json:"content,omitempty"`
	Author    string  `json:"author,omitempty"`
	RunID     string  `json:"runId,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

type ToolCallStatus string

const (
	ToolCallRunning   ToolCallStatus = "running"
	ToolCallDone      ToolCallStatus = "done"
	ToolCallCompleted ToolCallStatus = "completed"
)

// ToolCall is a reconstructed tool invocation. Args accumulates the
// argument-string deltas in arrival order; Result is set at most once.
type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name,omitempty"`
	Args   string         `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
	Status ToolCallStatus `json:"status"`
}

// InputMessage is one entry of the inbound run request's message list.
type InputMessage struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RunAgentInput is the body of a run request.
type RunAgentInput struct {
	AppName   string         `json:"app_name,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Messages  []InputMessage `json:"messages,omitempty"`
	ThreadID  string         `json:"threadId,omitempty"`
	RunID     string         `json:"runId,omitempty"`
}
