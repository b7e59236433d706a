package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codex-go/agentcore/internal/history"
	"github.com/codex-go/agentcore/internal/rollout"
	"github.com/codex-go/agentcore/internal/version"
)

// Fork builds a fresh thread whose rollout prefix is entries truncated by
// dropCount user turns, with a new thread id, a new rollout file, and
// (optionally) a new baseline TurnContext. The source Conversation
// (typically c) is untouched; the returned Conversation is entirely
// independent — its own rollout file, its own in-memory history, its own
// subscribers (spec.md §4.5 "fork(entries, drop_count, new_config) →
// NewConversation").
//
// newConfig, if non-nil, overrides fields of the forked thread's initial
// TurnContext on top of the hydrated baseline (e.g. a different cwd or
// approval policy for the new branch); pass nil to inherit the baseline
// unchanged.
func Fork(codexHome string, entries []rollout.RolloutItem, dropCount int, newConfig *TurnContextOverride, hist history.ContextManager) (*Conversation, error) {
	truncated := entries
	if dropCount > 0 {
		truncated = make([]rollout.RolloutItem, len(entries), len(entries)+1)
		copy(truncated, entries)
		truncated = append(truncated, rollout.NewEventItem(rollout.ThreadRolledBackEvent(dropCount)))
	}

	newThreadID := uuid.NewString()
	createdAt := time.Now()
	path := rollout.Path(codexHome, newThreadID, createdAt)

	w, err := rollout.Create(path, rollout.SessionMeta{
		ThreadID:   newThreadID,
		CreatedAt:  createdAt,
		CLIVersion: version.GitCommit,
	})
	if err != nil {
		return nil, fmt.Errorf("session: create rollout for forked thread %s: %w", newThreadID, err)
	}

	c, err := hydrate(codexHome, newThreadID, w, hist, truncated)
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	if newConfig != nil {
		newConfig.apply(&c.turnContext)
	}
	c.turnContext.TurnID = nil
	if err := w.Append(rollout.NewTurnContextItem(c.turnContext)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("session: write forked thread's baseline turn context: %w", err)
	}

	// Re-append the surviving history as ResponseItems so the new thread's
	// rollout file is a complete, independently-replayable log rather than
	// relying on a ThreadRolledBack marker pointing at entries it never
	// itself wrote.
	forPrompt, err := hist.GetForPrompt()
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("session: read hydrated history for fork: %w", err)
	}
	for _, item := range forPrompt {
		if err := w.Append(rollout.NewResponseItem(item)); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("session: persist forked history item: %w", err)
		}
	}

	return c, nil
}
