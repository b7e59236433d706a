package rollout

import "github.com/codex-go/agentcore/internal/models"

// Reconstruction bundles the rebuilt history with the resume/fork hydration
// metadata derived from the same replay (spec.md §4.3, §8 P1/P2).
//
// Maps to: codex-rs/core/src/codex/rollout_reconstruction.rs RolloutReconstruction
type Reconstruction struct {
	History              []models.ConversationItem
	PreviousModel         *string
	ReferenceContextItem *TurnContext
}

type refContextKind int

const (
	refNeverSet refContextKind = iota
	refCleared
	refLatest
)

// refContextState is the tri-state tracked per replay segment: see spec.md
// glossary "Baseline TurnContext" and §3 I4.
type refContextState struct {
	kind refContextKind
	item *TurnContext
}

// activeReplaySegment accumulates rollout items into the newest in-progress
// turn segment during the reverse scan, until its matching TurnStarted is
// found (spec.md §9 Design Notes "Rollback accounting in reverse replay").
type activeReplaySegment struct {
	turnID           *string
	countsAsUserTurn bool
	previousModel    *string
	refContext       refContextState

	hasBaseReplacementHistory bool
	baseReplacementHistory    []models.ConversationItem
}

func turnIDsCompatible(activeTurnID, itemTurnID *string) bool {
	if activeTurnID == nil || itemTurnID == nil {
		return true
	}
	return *activeTurnID == *itemTurnID
}

// finalizeActiveSegment consumes a rollback credit if the segment is a user
// turn, else folds its metadata into the running resume/fork outputs.
//
// Maps to: codex-rs/core/src/codex/rollout_reconstruction.rs finalize_active_segment
func finalizeActiveSegment(
	seg activeReplaySegment,
	haveBase *bool,
	baseReplacementHistory *[]models.ConversationItem,
	previousModel **string,
	refContext *refContextState,
	pendingRollbackTurns *int,
) {
	if *pendingRollbackTurns > 0 {
		if seg.countsAsUserTurn {
			*pendingRollbackTurns--
		}
		return
	}

	if !*haveBase && seg.hasBaseReplacementHistory {
		*baseReplacementHistory = seg.baseReplacementHistory
		*haveBase = true
	}

	if *previousModel == nil && seg.countsAsUserTurn {
		*previousModel = seg.previousModel
	}

	if refContext.kind == refNeverSet && (seg.countsAsUserTurn || seg.refContext.kind == refCleared) {
		*refContext = seg.refContext
	}
}

// Reconstruct rebuilds conversation history and resume/fork hydration
// metadata from a rollout, honoring ThreadRolledBack and Compacted
// checkpoints (spec.md §4.3, §8 P1/P2, scenarios 1 and 2).
//
// Maps to: codex-rs/core/src/codex/rollout_reconstruction.rs
// Session::reconstruct_history_from_rollout
func Reconstruct(items []RolloutItem) Reconstruction {
	var (
		haveBase               bool
		baseReplacementHistory []models.ConversationItem
		previousModel          *string
		refContext             refContextState
		pendingRollbackTurns   int
		rolloutSuffixStart     int
		active                 *activeReplaySegment
	)

	getOrInsertActive := func() *activeReplaySegment {
		if active == nil {
			active = &activeReplaySegment{}
		}
		return active
	}

	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		switch item.Type {
		case ItemCompacted:
			seg := getOrInsertActive()
			if seg.refContext.kind == refNeverSet {
				seg.refContext = refContextState{kind: refCleared}
			}
			if !seg.hasBaseReplacementHistory && item.Compacted.ReplacementHistory != nil {
				seg.hasBaseReplacementHistory = true
				seg.baseReplacementHistory = item.Compacted.ReplacementHistory
				rolloutSuffixStart = i + 1
			}

		case ItemEventMsg:
			switch item.EventMsg.Type {
			case EventThreadRolledBack:
				pendingRollbackTurns += item.EventMsg.ThreadRolledBack.NumTurns

			case EventTurnComplete:
				seg := getOrInsertActive()
				if seg.turnID == nil {
					turnID := item.EventMsg.TurnComplete.TurnID
					seg.turnID = &turnID
				}

			case EventTurnAborted:
				ev := item.EventMsg.TurnAborted
				if active != nil {
					if active.turnID == nil && ev.TurnID != nil {
						active.turnID = ev.TurnID
					}
				} else if ev.TurnID != nil {
					active = &activeReplaySegment{turnID: ev.TurnID}
				}

			case EventUserMessage:
				// Only a Plain user message makes a segment a "user turn"
				// (spec.md glossary); UserInstructions/EnvironmentContext
				// messages are contextual, not user-authored.
				if item.EventMsg.UserMessage.Kind == UserMessagePlain {
					getOrInsertActive().countsAsUserTurn = true
				}

			case EventTurnStarted:
				turnID := item.EventMsg.TurnStarted.TurnID
				if active != nil && turnIDsCompatible(active.turnID, &turnID) {
					seg := *active
					active = nil
					finalizeActiveSegment(seg, &haveBase, &baseReplacementHistory, &previousModel, &refContext, &pendingRollbackTurns)
				}
			}

		case ItemTurnContext:
			seg := getOrInsertActive()
			if seg.turnID == nil {
				seg.turnID = item.TurnContext.TurnID
			}
			if turnIDsCompatible(seg.turnID, item.TurnContext.TurnID) {
				model := item.TurnContext.Model
				seg.previousModel = &model
				if seg.refContext.kind == refNeverSet {
					tc := *item.TurnContext
					seg.refContext = refContextState{kind: refLatest, item: &tc}
				}
			}

		case ItemResponseItem, ItemSessionMeta:
			// No reverse-scan metadata effect; consumed during forward replay.
		}

		if haveBase && previousModel != nil && refContext.kind != refNeverSet {
			break
		}
	}

	if active != nil {
		finalizeActiveSegment(*active, &haveBase, &baseReplacementHistory, &previousModel, &refContext, &pendingRollbackTurns)
	}

	history := make([]models.ConversationItem, 0, len(items))
	if haveBase {
		history = append(history, baseReplacementHistory...)
	}

	sawLegacyCompactionWithoutReplacementHistory := false
	for _, item := range items[rolloutSuffixStart:] {
		switch item.Type {
		case ItemResponseItem:
			history = append(history, *item.ResponseItem)

		case ItemCompacted:
			if item.Compacted.ReplacementHistory != nil {
				history = append([]models.ConversationItem{}, item.Compacted.ReplacementHistory...)
			} else {
				sawLegacyCompactionWithoutReplacementHistory = true
				history = buildCompactedHistory(collectUserMessages(history), item.Compacted.Message)
			}

		case ItemEventMsg:
			if item.EventMsg.Type == EventThreadRolledBack {
				history = dropLastNUserTurns(history, item.EventMsg.ThreadRolledBack.NumTurns)
			}
		}
	}

	var finalRef *TurnContext
	switch refContext.kind {
	case refLatest:
		finalRef = refContext.item
	}
	if sawLegacyCompactionWithoutReplacementHistory {
		finalRef = nil
	}

	return Reconstruction{
		History:              history,
		PreviousModel:        previousModel,
		ReferenceContextItem: finalRef,
	}
}

// collectUserMessages extracts plain user messages, preserving order.
func collectUserMessages(items []models.ConversationItem) []models.ConversationItem {
	out := make([]models.ConversationItem, 0, len(items))
	for _, item := range items {
		if item.Type == models.ItemTypeUserMessage {
			out = append(out, item)
		}
	}
	return out
}

// buildCompactedHistory rebuilds history for a legacy Compacted record that
// carries only a summary string: the collected user messages plus a
// synthesized user message containing the summary (spec.md scenario 2).
//
// Maps to: codex-rs/core/src/compact.rs build_compacted_history
func buildCompactedHistory(userMessages []models.ConversationItem, summary string) []models.ConversationItem {
	out := make([]models.ConversationItem, 0, len(userMessages)+1)
	out = append(out, userMessages...)
	out = append(out, models.ConversationItem{
		Type:    models.ItemTypeUserMessage,
		Content: summary,
	})
	return out
}

// dropLastNUserTurns drops the n most recent user turns from history
// in-memory, mirroring history.DropLastNUserTurns (spec.md §8 P2).
func dropLastNUserTurns(items []models.ConversationItem, n int) []models.ConversationItem {
	if n <= 0 {
		return items
	}
	count := 0
	cut := 0
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Type == models.ItemTypeUserMessage {
			count++
			if count == n {
				cut = i
				break
			}
		}
	}
	if count < n {
		return items[:0]
	}
	return items[:cut]
}
