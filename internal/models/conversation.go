// Package models contains shared types for the codex-go agent runtime.
//
// Corresponds to: codex-rs/core/src/protocol/models.rs
package models

// ConversationItemType represents the type of a conversation item.
//
// Maps to the ResponseItem/EventMsg discriminants a rollout item can carry
// (spec.md §3): turn boundaries, messages, and function call/output pairs.
type ConversationItemType string

const (
	ItemTypeTurnStarted        ConversationItemType = "turn_started"
	ItemTypeUserMessage        ConversationItemType = "user_message"
	ItemTypeAssistantMessage   ConversationItemType = "assistant_message"
	ItemTypeToolCall           ConversationItemType = "tool_call"
	ItemTypeToolResult         ConversationItemType = "tool_result"
	ItemTypeFunctionCall       ConversationItemType = "function_call"
	ItemTypeFunctionCallOutput ConversationItemType = "function_call_output"
	ItemTypeTurnComplete       ConversationItemType = "turn_complete"
	ItemTypeTurnAborted        ConversationItemType = "turn_aborted"
	ItemTypeModelSwitch        ConversationItemType = "model_switch"
)

// Output carries the result of a function call, mirroring tools.ToolOutput
// so history items and tool outputs share one on-the-wire shape.
type Output struct {
	Content string `json:"content"`
	Success *bool  `json:"success,omitempty"`
}

// ConversationItem represents a single item in the conversation history.
//
// Maps to: codex-rs/core/src/protocol/models.rs ConversationItem. A
// ConversationItem is the in-memory analogue of a rollout.RolloutItem's
// ResponseItem/EventMsg payload (spec.md §3) — the rollout package stores
// the durable JSON-line form, history stores the replayed/materialized form.
type ConversationItem struct {
	// Seq is a monotonically increasing index assigned by the history store
	// on append; used by CLI pollers (watcher.go) to fetch only new items.
	Seq int `json:"seq"`

	Type ConversationItemType `json:"type"`

	TurnID  string `json:"turn_id,omitempty"`
	Content string `json:"content,omitempty"`

	// Function call fields (ItemTypeFunctionCall).
	CallID    string                 `json:"call_id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Arguments string                 `json:"arguments,omitempty"`
	ToolCalls []ToolCall             `json:"tool_calls,omitempty"`

	// Function call result fields (ItemTypeFunctionCallOutput / ItemTypeToolResult).
	ToolCallID string  `json:"tool_call_id,omitempty"`
	ToolOutput string  `json:"tool_output,omitempty"`
	ToolError  string  `json:"tool_error,omitempty"`
	Output     *Output `json:"output,omitempty"`

	// Model switch / reroute metadata (ItemTypeModelSwitch).
	Model string `json:"model,omitempty"`
}

// ToolCall represents a request to call a tool
//
// Maps to: codex-rs/core/src/protocol/models.rs ToolCall
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult represents the result of a tool execution
//
// Maps to: codex-rs/core/src/tools/types.rs ToolResult
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FinishReason indicates why the LLM stopped generating
type FinishReason string

const (
	FinishReasonStop         FinishReason = "stop"          // Natural completion
	FinishReasonToolCalls    FinishReason = "tool_calls"    // LLM wants to call tools
	FinishReasonLength       FinishReason = "length"        // Hit token limit
	FinishReasonContentFilter FinishReason = "content_filter" // Content filtered
)

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
