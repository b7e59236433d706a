// Package rollout implements the append-only session event log (spec.md §3,
// §4.3) and its reconstruction into in-memory conversation history.
//
// Maps to: codex-rs/core/src/codex/rollout_reconstruction.rs and the
// RolloutItem family in codex-rs/protocol.
package rollout

import (
	"time"

	"github.com/codex-go/agentcore/internal/models"
)

// ItemType discriminates the RolloutItem tagged union (spec.md §3).
type ItemType string

const (
	ItemSessionMeta  ItemType = "session_meta"
	ItemTurnContext  ItemType = "turn_context"
	ItemResponseItem ItemType = "response_item"
	ItemEventMsg     ItemType = "event_msg"
	ItemCompacted    ItemType = "compacted"
)

// SessionMeta is written once, as the first record of a rollout.
type SessionMeta struct {
	ThreadID   string    `json:"thread_id"`
	CreatedAt  time.Time `json:"created_at"`
	CLIVersion string    `json:"cli_version"`
}

// TurnContext establishes or updates the baseline used at the start of a
// turn. TurnID is nil when the context applies to the whole thread rather
// than a specific turn (e.g. the session's initial baseline).
type TurnContext struct {
	TurnID                *string `json:"turn_id,omitempty"`
	Cwd                   string  `json:"cwd"`
	Model                 string  `json:"model"`
	ApprovalPolicy        string  `json:"approval_policy"`
	SandboxPolicy         string  `json:"sandbox_policy"`
	Network               *bool   `json:"network,omitempty"`
	UserInstructions      *string `json:"user_instructions,omitempty"`
	DeveloperInstructions *string `json:"developer_instructions,omitempty"`
	TruncationPolicy      string  `json:"truncation_policy,omitempty"`
	Timezone              string  `json:"timezone,omitempty"`
	Effort                *string `json:"effort,omitempty"`
	Summary               *string `json:"summary,omitempty"`
	CollaborationMode     *string `json:"collaboration_mode,omitempty"`
}

// Compacted is a summarization checkpoint. If ReplacementHistory is
// non-nil, it is a full history snapshot that supersedes everything older
// (spec.md §3 I4); otherwise it is a legacy summary.
type Compacted struct {
	Message            string                    `json:"message"`
	ReplacementHistory []models.ConversationItem `json:"replacement_history,omitempty"`
}

// UserMessageKind distinguishes the provenance of a UserMessage event.
type UserMessageKind string

const (
	UserMessagePlain              UserMessageKind = "plain"
	UserMessageUserInstructions   UserMessageKind = "user_instructions"
	UserMessageEnvironmentContext UserMessageKind = "environment_context"
)

// EventType discriminates the EventMsg tagged union.
type EventType string

const (
	EventTurnStarted      EventType = "turn_started"
	EventUserMessage      EventType = "user_message"
	EventTurnComplete     EventType = "turn_complete"
	EventTurnAborted      EventType = "turn_aborted"
	EventThreadRolledBack EventType = "thread_rolled_back"
	EventExecCommandBegin EventType = "exec_command_begin"
	EventExecCommandEnd   EventType = "exec_command_end"
	EventApprovalRequest  EventType = "approval_request"
	EventApprovalResult   EventType = "approval_result"
	EventStreamError      EventType = "stream_error"
)

// TurnAbortedReason enumerates why a turn was aborted (spec.md §7).
type TurnAbortedReason string

const (
	AbortedInterrupted TurnAbortedReason = "interrupted"
	AbortedReplaced    TurnAbortedReason = "replaced"
	AbortedError       TurnAbortedReason = "error"
)

// EventMsg is a lifecycle event (spec.md §3). Exactly one of the pointer
// fields matching Type is populated.
type EventMsg struct {
	Type EventType `json:"type"`

	TurnStarted *struct {
		TurnID string `json:"turn_id"`
	} `json:"turn_started,omitempty"`

	UserMessage *struct {
		Kind UserMessageKind `json:"kind"`
		Body string          `json:"body"`
	} `json:"user_message,omitempty"`

	TurnComplete *struct {
		TurnID string `json:"turn_id"`
	} `json:"turn_complete,omitempty"`

	// TurnAborted.TurnID is nil when the aborted turn's id could not be
	// determined (e.g. aborted before TurnStarted was recorded).
	TurnAborted *struct {
		TurnID *string           `json:"turn_id,omitempty"`
		Reason TurnAbortedReason `json:"reason"`
	} `json:"turn_aborted,omitempty"`

	ThreadRolledBack *struct {
		NumTurns int `json:"num_turns"`
	} `json:"thread_rolled_back,omitempty"`

	ExecCommandBegin *struct {
		CallID      string   `json:"call_id"`
		Argv        []string `json:"argv"`
		ParsedArgv  []string `json:"parsed_argv,omitempty"`
	} `json:"exec_command_begin,omitempty"`

	ExecCommandEnd *struct {
		CallID           string `json:"call_id"`
		ExitCode         int    `json:"exit_code"`
		AggregatedOutput string `json:"aggregated_output,omitempty"`
		DurationMs       int64  `json:"duration_ms"`
	} `json:"exec_command_end,omitempty"`
}

// TurnStartedEvent builds an EventMsg{Type: EventTurnStarted}.
func TurnStartedEvent(turnID string) EventMsg {
	e := EventMsg{Type: EventTurnStarted}
	e.TurnStarted = &struct {
		TurnID string `json:"turn_id"`
	}{TurnID: turnID}
	return e
}

// UserMessageEvent builds an EventMsg{Type: EventUserMessage}.
func UserMessageEvent(kind UserMessageKind, body string) EventMsg {
	e := EventMsg{Type: EventUserMessage}
	e.UserMessage = &struct {
		Kind UserMessageKind `json:"kind"`
		Body string          `json:"body"`
	}{Kind: kind, Body: body}
	return e
}

// TurnCompleteEvent builds an EventMsg{Type: EventTurnComplete}.
func TurnCompleteEvent(turnID string) EventMsg {
	e := EventMsg{Type: EventTurnComplete}
	e.TurnComplete = &struct {
		TurnID string `json:"turn_id"`
	}{TurnID: turnID}
	return e
}

// TurnAbortedEvent builds an EventMsg{Type: EventTurnAborted}.
func TurnAbortedEvent(turnID *string, reason TurnAbortedReason) EventMsg {
	e := EventMsg{Type: EventTurnAborted}
	e.TurnAborted = &struct {
		TurnID *string           `json:"turn_id,omitempty"`
		Reason TurnAbortedReason `json:"reason"`
	}{TurnID: turnID, Reason: reason}
	return e
}

// ExecCommandBeginEvent builds an EventMsg{Type: EventExecCommandBegin}.
func ExecCommandBeginEvent(callID string, argv, parsedArgv []string) EventMsg {
	e := EventMsg{Type: EventExecCommandBegin}
	e.ExecCommandBegin = &struct {
		CallID     string   `json:"call_id"`
		Argv       []string `json:"argv"`
		ParsedArgv []string `json:"parsed_argv,omitempty"`
	}{CallID: callID, Argv: argv, ParsedArgv: parsedArgv}
	return e
}

// ExecCommandEndEvent builds an EventMsg{Type: EventExecCommandEnd}.
func ExecCommandEndEvent(callID string, exitCode int, aggregatedOutput string, durationMs int64) EventMsg {
	e := EventMsg{Type: EventExecCommandEnd}
	e.ExecCommandEnd = &struct {
		CallID           string `json:"call_id"`
		ExitCode         int    `json:"exit_code"`
		AggregatedOutput string `json:"aggregated_output,omitempty"`
		DurationMs       int64  `json:"duration_ms"`
	}{CallID: callID, ExitCode: exitCode, AggregatedOutput: aggregatedOutput, DurationMs: durationMs}
	return e
}

// ThreadRolledBackEvent builds an EventMsg{Type: EventThreadRolledBack}.
func ThreadRolledBackEvent(numTurns int) EventMsg {
	e := EventMsg{Type: EventThreadRolledBack}
	e.ThreadRolledBack = &struct {
		NumTurns int `json:"num_turns"`
	}{NumTurns: numTurns}
	return e
}

// RolloutItem is the append-only tagged union persisted to the rollout log
// (spec.md §3). Exactly one field matching Type is populated.
type RolloutItem struct {
	Type ItemType `json:"type"`

	SessionMeta  *SessionMeta             `json:"session_meta,omitempty"`
	TurnContext  *TurnContext             `json:"turn_context,omitempty"`
	ResponseItem *models.ConversationItem `json:"response_item,omitempty"`
	EventMsg     *EventMsg                `json:"event_msg,omitempty"`
	Compacted    *Compacted               `json:"compacted,omitempty"`
}

// NewSessionMetaItem builds a RolloutItem carrying a SessionMeta.
func NewSessionMetaItem(m SessionMeta) RolloutItem {
	return RolloutItem{Type: ItemSessionMeta, SessionMeta: &m}
}

// NewTurnContextItem builds a RolloutItem carrying a TurnContext.
func NewTurnContextItem(tc TurnContext) RolloutItem {
	return RolloutItem{Type: ItemTurnContext, TurnContext: &tc}
}

// NewResponseItem builds a RolloutItem carrying a ResponseItem.
func NewResponseItem(item models.ConversationItem) RolloutItem {
	return RolloutItem{Type: ItemResponseItem, ResponseItem: &item}
}

// NewEventItem builds a RolloutItem carrying an EventMsg.
func NewEventItem(e EventMsg) RolloutItem {
	return RolloutItem{Type: ItemEventMsg, EventMsg: &e}
}

// NewCompactedItem builds a RolloutItem carrying a Compacted checkpoint.
func NewCompactedItem(c Compacted) RolloutItem {
	return RolloutItem{Type: ItemCompacted, Compacted: &c}
}
