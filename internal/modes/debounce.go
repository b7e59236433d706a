package modes

import "sync/atomic"

// DebounceGen is a generation counter used to debounce instruction-payload
// pushes: a task captures Next()'s result before doing slow work, then
// checks IsLatest before committing any side effect it produced. If a newer
// change arrived in the meantime, the task no-ops (spec.md §4.7 P5).
//
// Maps to: codex-rs/modes/src/lib.rs DebounceGen
type DebounceGen struct {
	gen atomic.Uint64
}

// Next increments and returns the next generation id.
func (d *DebounceGen) Next() uint64 {
	return d.gen.Add(1)
}

// IsLatest reports whether gen is still the most recently issued generation.
func (d *DebounceGen) IsLatest(gen uint64) bool {
	return d.gen.Load() == gen
}
