// Package session implements the long-lived conversation container described
// in spec.md §4.5 (C5 Session/Conversation): it wraps a rollout writer, a
// ContextManager, and the turn context baseline, and exposes the
// resume/fork/override operations that seed and mutate them.
//
// Maps to: codex-rs/core/src/codex.rs Session (the thread_id, rollout
// writer, current TurnContext, token-usage accumulator, rate-limit
// snapshot, and ContextManager fields described in spec.md §4.5).
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codex-go/agentcore/internal/history"
	"github.com/codex-go/agentcore/internal/ratelimit"
	"github.com/codex-go/agentcore/internal/rollout"
	"github.com/codex-go/agentcore/internal/version"
)

// Conversation is the owner of one thread's rollout writer, turn-context
// baseline, and in-memory history (spec.md §4.5). A process holds exactly
// one Conversation per live thread; concurrent read-only queries (token
// usage, current turn context) take the mutex, matching the teacher's
// mutex-guarded-state idiom in internal/threadregistry/state.go.
type Conversation struct {
	mu sync.Mutex

	threadID  string
	codexHome string
	writer    *rollout.Writer
	hist      history.ContextManager

	turnContext          rollout.TurnContext
	previousModel        *string
	referenceContextItem *rollout.TurnContext

	tokens      *ratelimit.TokenUsageInfo
	rateTracker *ratelimit.Tracker
}

// ThreadID returns the conversation's thread id.
func (c *Conversation) ThreadID() string { return c.threadID }

// History returns the underlying ContextManager.
func (c *Conversation) History() history.ContextManager { return c.hist }

// Tokens returns the token-usage accumulator.
func (c *Conversation) Tokens() *ratelimit.TokenUsageInfo { return c.tokens }

// RateTracker returns the rate-limit warning-threshold tracker.
func (c *Conversation) RateTracker() *ratelimit.Tracker { return c.rateTracker }

// TurnContext returns a copy of the current baseline TurnContext.
func (c *Conversation) TurnContext() rollout.TurnContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnContext
}

// PreviousModel returns the model recorded by the newest surviving user
// turn's TurnContext at hydration time, or nil if none (spec.md §4.3).
func (c *Conversation) PreviousModel() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previousModel
}

// ReferenceContextItem returns the baseline TurnContext established at
// hydration time, or nil if compaction cleared it with no subsequent
// re-establishment (spec.md §3 I4, glossary "Baseline TurnContext").
func (c *Conversation) ReferenceContextItem() *rollout.TurnContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.referenceContextItem
}

// New creates a brand-new Conversation: a fresh ThreadId, a fresh rollout
// file seeded with SessionMeta, and the given initial TurnContext written as
// the thread's first baseline (spec.md §4.5 record_initial_history(New)).
func New(codexHome string, initial rollout.TurnContext, hist history.ContextManager) (*Conversation, error) {
	threadID := uuid.NewString()
	createdAt := time.Now()
	path := rollout.Path(codexHome, threadID, createdAt)

	w, err := rollout.Create(path, rollout.SessionMeta{
		ThreadID:   threadID,
		CreatedAt:  createdAt,
		CLIVersion: version.GitCommit,
	})
	if err != nil {
		return nil, fmt.Errorf("session: create rollout for new thread %s: %w", threadID, err)
	}

	c := &Conversation{
		threadID:    threadID,
		codexHome:   codexHome,
		writer:      w,
		hist:        hist,
		turnContext: initial,
		tokens:      &ratelimit.TokenUsageInfo{},
		rateTracker: ratelimit.NewTracker(),
	}
	if err := c.writer.Append(rollout.NewTurnContextItem(initial)); err != nil {
		_ = w.Close()
		return nil, err
	}
	return c, nil
}

// Resume attaches to an existing rollout file at path, reconstructing
// history and the previous-model/reference-context-item hydration outputs
// via internal/rollout.Reconstruct (spec.md §4.5
// record_initial_history(Resumed), §4.3).
//
// The caller is responsible for locating path (it is keyed by thread id and
// the UTC date the thread was created, per spec.md §6); this package does
// not maintain a thread-id → path index.
func Resume(codexHome, threadID, path string, hist history.ContextManager) (*Conversation, error) {
	items, err := rollout.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("session: read rollout %s: %w", path, err)
	}

	w, err := rollout.OpenForAppend(path)
	if err != nil {
		return nil, fmt.Errorf("session: reopen rollout %s for append: %w", path, err)
	}

	c, err := hydrate(codexHome, threadID, w, hist, items)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return c, nil
}

// hydrate runs the shared reconstruction logic used by Resume and Fork:
// replay items into hist, and seed the Conversation's baseline TurnContext,
// previousModel, and referenceContextItem from the reconstruction.
func hydrate(codexHome, threadID string, w *rollout.Writer, hist history.ContextManager, items []rollout.RolloutItem) (*Conversation, error) {
	rec := rollout.Reconstruct(items)
	if err := hist.ReplaceAll(rec.History); err != nil {
		return nil, fmt.Errorf("session: seed history: %w", err)
	}

	c := &Conversation{
		threadID:             threadID,
		codexHome:            codexHome,
		writer:               w,
		hist:                 hist,
		previousModel:        rec.PreviousModel,
		referenceContextItem: rec.ReferenceContextItem,
		tokens:               &ratelimit.TokenUsageInfo{},
		rateTracker:          ratelimit.NewTracker(),
	}
	if rec.ReferenceContextItem != nil {
		c.turnContext = *rec.ReferenceContextItem
	}
	return c, nil
}

// Close flushes and closes the underlying rollout file.
func (c *Conversation) Close() error {
	return c.writer.Close()
}

// AppendEvent is a convenience for writing an EventMsg to the
// rollout (exec begin/end, turn started/complete/aborted, approval
// request/result, ...).
func (c *Conversation) AppendEvent(e rollout.EventMsg) error {
	return c.writer.Append(rollout.NewEventItem(e))
}

// AppendResponseItem appends a ResponseItem to the rollout and mirrors it
// into in-memory history, keeping both views consistent (spec.md §3
// ResponseItem, §4.5 ContextManager).
func (c *Conversation) AppendResponseItem(item rollout.RolloutItem) error {
	if item.Type != rollout.ItemResponseItem {
		return fmt.Errorf("session: AppendResponseItem requires ItemResponseItem, got %s", item.Type)
	}
	if err := c.writer.Append(item); err != nil {
		return err
	}
	return c.hist.AddItem(*item.ResponseItem)
}

// OverrideTurnContext applies a partial update to the next turn's baseline
// — cwd, model, approval policy, sandbox policy, effort, summary, or
// user_instructions — and writes the resulting TurnContext as a new rollout
// record (spec.md §4.5 override_turn_context). Only non-nil fields of
// partial are applied; the rest of the baseline carries forward unchanged.
func (c *Conversation) OverrideTurnContext(partial TurnContextOverride) (rollout.TurnContext, error) {
	c.mu.Lock()
	tc := c.turnContext
	partial.apply(&tc)
	c.turnContext = tc
	c.mu.Unlock()

	if err := c.writer.Append(rollout.NewTurnContextItem(tc)); err != nil {
		return rollout.TurnContext{}, fmt.Errorf("session: write overridden turn context: %w", err)
	}
	return tc, nil
}

// TurnContextOverride carries the subset of TurnContext fields a caller
// wants to change; nil fields are left at their current baseline value.
//
// Maps to: spec.md §4.5 "override_turn_context(partial)"
type TurnContextOverride struct {
	TurnID                *string
	Cwd                   *string
	Model                 *string
	ApprovalPolicy        *string
	SandboxPolicy         *string
	Network               *bool
	UserInstructions      *string
	DeveloperInstructions *string
	TruncationPolicy      *string
	Timezone              *string
	Effort                *string
	Summary               *string
	CollaborationMode     *string
}

func (o TurnContextOverride) apply(tc *rollout.TurnContext) {
	if o.TurnID != nil {
		tc.TurnID = o.TurnID
	}
	if o.Cwd != nil {
		tc.Cwd = *o.Cwd
	}
	if o.Model != nil {
		tc.Model = *o.Model
	}
	if o.ApprovalPolicy != nil {
		tc.ApprovalPolicy = *o.ApprovalPolicy
	}
	if o.SandboxPolicy != nil {
		tc.SandboxPolicy = *o.SandboxPolicy
	}
	if o.Network != nil {
		tc.Network = o.Network
	}
	if o.UserInstructions != nil {
		tc.UserInstructions = o.UserInstructions
	}
	if o.DeveloperInstructions != nil {
		tc.DeveloperInstructions = o.DeveloperInstructions
	}
	if o.TruncationPolicy != nil {
		tc.TruncationPolicy = *o.TruncationPolicy
	}
	if o.Timezone != nil {
		tc.Timezone = *o.Timezone
	}
	if o.Effort != nil {
		tc.Effort = o.Effort
	}
	if o.Summary != nil {
		tc.Summary = o.Summary
	}
	if o.CollaborationMode != nil {
		tc.CollaborationMode = o.CollaborationMode
	}
}
