// Package ratelimit tracks per-window token usage accumulators and raises
// one warning per threshold crossing of a model's rate-limit windows.
//
// Maps to: spec.md §4.11 "Rate-limit & token accounting (cross-cutting)"
package ratelimit

import "sort"

// thresholds are checked in ascending order; crossing one emits exactly one
// Warning, and once the 100% threshold is reached no further warnings are
// emitted for that window for the life of the tracker.
var thresholds = []int{75, 90, 95, 100}

// Window identifies which rate-limit window a snapshot or warning concerns.
type Window string

const (
	WindowPrimary   Window = "primary"
	WindowSecondary Window = "secondary"
)

// WindowSnapshot is the usage percentage reported by the model backend for
// one window, as of the most recent turn.
type WindowSnapshot struct {
	UsedPercent   float64
	WindowMinutes int
}

// Snapshot bundles the primary and secondary window readings attached to a
// single model response. Either window may be absent (nil) if the backend
// did not report it.
type Snapshot struct {
	Primary   *WindowSnapshot
	Secondary *WindowSnapshot
}

// Warning reports that a window crossed a new usage threshold.
type Warning struct {
	Window        Window
	Threshold     int
	UsedPercent   float64
	WindowMinutes int
}

// TokenUsageInfo accumulates total and last-turn token counts across a
// session.
//
// Maps to: spec.md §3 "TokenUsageInfo{total, last_turn, model_context_window?}"
type TokenUsageInfo struct {
	Total              int64
	LastTurn           int64
	ModelContextWindow *int64
}

// AddTurn records a completed turn's token usage.
func (u *TokenUsageInfo) AddTurn(tokens int64) {
	u.LastTurn = tokens
	u.Total += tokens
}

// Tracker holds the highest threshold already warned-about for each window,
// so that feeding the same or a lower-usage snapshot again never re-emits a
// warning that was already delivered.
type Tracker struct {
	highestWarned map[Window]int
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{highestWarned: make(map[Window]int)}
}

// Observe feeds a new snapshot and returns the warnings newly triggered by
// it, in threshold order, one per window at most.
func (t *Tracker) Observe(snap Snapshot) []Warning {
	var warnings []Warning
	if snap.Primary != nil {
		if w, ok := t.observeWindow(WindowPrimary, *snap.Primary); ok {
			warnings = append(warnings, w)
		}
	}
	if snap.Secondary != nil {
		if w, ok := t.observeWindow(WindowSecondary, *snap.Secondary); ok {
			warnings = append(warnings, w)
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Window < warnings[j].Window })
	return warnings
}

func (t *Tracker) observeWindow(w Window, snap WindowSnapshot) (Warning, bool) {
	prevHighest := t.highestWarned[w]
	if prevHighest >= 100 {
		// Already suppressed for good: the window hit 100% once and no
		// further warnings are emitted regardless of subsequent readings.
		return Warning{}, false
	}

	crossed := 0
	for _, threshold := range thresholds {
		if int(snap.UsedPercent) >= threshold && threshold > prevHighest {
			crossed = threshold
		}
	}
	if crossed == 0 {
		return Warning{}, false
	}

	t.highestWarned[w] = crossed
	return Warning{
		Window:        w,
		Threshold:     crossed,
		UsedPercent:   snap.UsedPercent,
		WindowMinutes: snap.WindowMinutes,
	}, true
}

// HighestWarned reports the highest threshold already warned-about for a
// window, or 0 if none has been crossed yet.
func (t *Tracker) HighestWarned(w Window) int {
	return t.highestWarned[w]
}
