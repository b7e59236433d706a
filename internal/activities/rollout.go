package activities

import (
	"context"
	"fmt"
	"sync"

	"github.com/codex-go/agentcore/internal/env"
	"github.com/codex-go/agentcore/internal/history"
	"github.com/codex-go/agentcore/internal/models"
	"github.com/codex-go/agentcore/internal/rollout"
	"github.com/codex-go/agentcore/internal/session"
)

// RolloutActivities bridges the deterministic Temporal workflow to the
// append-only rollout log (spec.md §3, §4.5 C3/C5): workflow code cannot
// touch the filesystem directly, so every write to a thread's rollout file
// goes through one of these activities instead.
//
// Maps to: codex-rs/core/src/codex.rs Session's rollout writer, invoked from
// run_turn rather than held by the workflow itself.
type RolloutActivities struct {
	mu            sync.Mutex
	conversations map[string]*session.Conversation // keyed by Temporal ConversationID
}

// NewRolloutActivities creates a new RolloutActivities instance.
func NewRolloutActivities() *RolloutActivities {
	return &RolloutActivities{conversations: make(map[string]*session.Conversation)}
}

// EnsureConversationInput is the input for EnsureConversation.
type EnsureConversationInput struct {
	ConversationID string `json:"conversation_id"`
	Cwd            string `json:"cwd"`
	Model          string `json:"model"`
}

// EnsureConversationOutput is the output of EnsureConversation.
type EnsureConversationOutput struct {
	ThreadID string `json:"thread_id"`
}

// EnsureConversation opens (creating if needed) the Conversation backing a
// workflow's ConversationID, idempotently. A worker process holds exactly
// one Conversation per live ConversationID for as long as it keeps running
// this workflow's activities (spec.md §4.5 "a process holds exactly one
// Conversation per live thread").
func (a *RolloutActivities) EnsureConversation(ctx context.Context, input EnsureConversationInput) (EnsureConversationOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.conversations[input.ConversationID]; ok {
		return EnsureConversationOutput{ThreadID: c.ThreadID()}, nil
	}

	codexHome, err := env.Home()
	if err != nil {
		return EnsureConversationOutput{}, fmt.Errorf("rollout activity: resolve codex home: %w", err)
	}

	c, err := session.New(codexHome, rollout.TurnContext{
		Cwd:   input.Cwd,
		Model: input.Model,
	}, history.NewInMemoryHistory())
	if err != nil {
		return EnsureConversationOutput{}, fmt.Errorf("rollout activity: create conversation: %w", err)
	}

	a.conversations[input.ConversationID] = c
	return EnsureConversationOutput{ThreadID: c.ThreadID()}, nil
}

// AppendEventInput is the input for AppendEvent.
type AppendEventInput struct {
	ConversationID string          `json:"conversation_id"`
	Event          rollout.EventMsg `json:"event"`
}

// AppendEvent appends a lifecycle EventMsg (turn started/complete/aborted,
// exec command begin/end, ...) to the conversation's rollout log.
func (a *RolloutActivities) AppendEvent(ctx context.Context, input AppendEventInput) error {
	c, err := a.lookup(input.ConversationID)
	if err != nil {
		return err
	}
	return c.AppendEvent(input.Event)
}

// AppendResponseItemInput is the input for AppendResponseItem.
type AppendResponseItemInput struct {
	ConversationID string                    `json:"conversation_id"`
	Item           models.ConversationItem `json:"item"`
}

// AppendResponseItem appends a ResponseItem to the conversation's rollout
// log, mirroring it into the Conversation's own in-memory history (which the
// workflow does not read from — it keeps its own SessionState.History as the
// source of truth for prompts, per spec.md §4.5 and the Temporal replay
// constraint that workflow code cannot own file-backed state directly).
func (a *RolloutActivities) AppendResponseItem(ctx context.Context, input AppendResponseItemInput) error {
	c, err := a.lookup(input.ConversationID)
	if err != nil {
		return err
	}
	return c.AppendResponseItem(rollout.NewResponseItem(input.Item))
}

// CloseConversationInput is the input for CloseConversation.
type CloseConversationInput struct {
	ConversationID string `json:"conversation_id"`
}

// CloseConversation flushes and closes the rollout file, and drops the
// Conversation from the process-local registry. Called when a workflow run
// ends (shutdown or error) so the file descriptor isn't held indefinitely;
// ContinueAsNew does NOT close it, since the same ConversationID carries on
// in a new workflow run sharing the same rollout file.
func (a *RolloutActivities) CloseConversation(ctx context.Context, input CloseConversationInput) error {
	a.mu.Lock()
	c, ok := a.conversations[input.ConversationID]
	if ok {
		delete(a.conversations, input.ConversationID)
	}
	a.mu.Unlock()

	if !ok {
		return nil
	}
	return c.Close()
}

func (a *RolloutActivities) lookup(conversationID string) (*session.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("rollout activity: no open conversation for %s (EnsureConversation must run first)", conversationID)
	}
	return c, nil
}
