// Package threadregistry tracks, per thread, which connections are
// subscribed and which single listener goroutine currently owns event
// delivery for it, so a reconnect or a second listener attempt cancels the
// stale one cleanly instead of racing it (spec.md §4.9 C9).
//
// Maps to: codex-rs/app-server/src/thread_state.rs
package threadregistry

import (
	"sync"

	"github.com/codex-go/agentcore/internal/transport"
)

// ListenerCancelFunc stops a thread's active listener goroutine; safe to
// call multiple times.
type ListenerCancelFunc func()

// State is the per-thread mutable state: the active listener's cancellation
// handle and generation, plus the experimental raw-events flag
// (spec.md §4.9).
//
// Maps to: codex-rs/app-server/src/thread_state.rs ThreadState
type State struct {
	mu sync.Mutex

	cancel     chan struct{}
	generation uint64

	experimentalRawEvents bool
}

// SetListener installs a new listener, cancelling and replacing whatever
// listener was previously active. The returned channel is closed when this
// listener should stop (a later SetListener call superseded it, or
// ClearListener/RemoveConnection tore the thread down). The returned
// generation is this listener's own — wraps at 2^64 (spec.md §8 P6).
//
// Maps to: codex-rs/app-server/src/thread_state.rs ThreadState::set_listener
func (s *State) SetListener() (cancelCh <-chan struct{}, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		close(s.cancel)
	}
	s.generation++
	s.cancel = make(chan struct{})
	return s.cancel, s.generation
}

// ClearListener cancels the active listener, if any. The generation counter
// is left unchanged.
//
// Maps to: codex-rs/app-server/src/thread_state.rs ThreadState::clear_listener
func (s *State) ClearListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
	}
}

// Generation returns the current listener generation (0 if none has ever
// been installed).
func (s *State) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// HasListener reports whether a listener is currently installed.
func (s *State) HasListener() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// SetExperimentalRawEvents toggles whether this thread's listener forwards
// raw provider events in addition to the normal EventMsg stream.
func (s *State) SetExperimentalRawEvents(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experimentalRawEvents = enabled
}

// ExperimentalRawEvents reports the current raw-events flag.
func (s *State) ExperimentalRawEvents() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.experimentalRawEvents
}

type threadEntry struct {
	state         *State
	connectionIDs map[transport.ConnectionID]struct{}
}

func newThreadEntry() *threadEntry {
	return &threadEntry{state: &State{}, connectionIDs: make(map[transport.ConnectionID]struct{})}
}

// Registry tracks subscription membership across all threads and
// connections for one process (spec.md §4.9).
//
// Maps to: codex-rs/app-server/src/thread_state.rs ThreadStateManager
type Registry struct {
	mu sync.Mutex

	liveConnections map[transport.ConnectionID]struct{}
	threads         map[string]*threadEntry
	threadIDsByConn map[transport.ConnectionID]map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		liveConnections: make(map[transport.ConnectionID]struct{}),
		threads:         make(map[string]*threadEntry),
		threadIDsByConn: make(map[transport.ConnectionID]map[string]struct{}),
	}
}

// ConnectionInitialized marks connectionID as live, allowed to subscribe to
// threads.
func (r *Registry) ConnectionInitialized(connectionID transport.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveConnections[connectionID] = struct{}{}
}

// SubscribedConnectionIDs returns the connections currently subscribed to
// threadID, in no particular order.
func (r *Registry) SubscribedConnectionIDs(threadID string) []transport.ConnectionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.threads[threadID]
	if !ok {
		return nil
	}
	out := make([]transport.ConnectionID, 0, len(entry.connectionIDs))
	for cid := range entry.connectionIDs {
		out = append(out, cid)
	}
	return out
}

// ThreadState returns (creating if necessary) the State for threadID.
func (r *Registry) ThreadState(threadID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.threads[threadID]
	if !ok {
		entry = newThreadEntry()
		r.threads[threadID] = entry
	}
	return entry.state
}

// HasSubscribers reports whether any connection is currently subscribed to
// threadID.
func (r *Registry) HasSubscribers(threadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.threads[threadID]
	return ok && len(entry.connectionIDs) > 0
}

// SetListener subscribes connectionID to threadID (creating the thread entry
// if needed), installs a fresh listener on it, and applies
// experimentalRawEvents. Returns the thread's State and the new listener's
// cancellation channel/generation.
//
// Maps to: codex-rs/app-server/src/thread_state.rs ThreadStateManager::set_listener
func (r *Registry) SetListener(threadID string, connectionID transport.ConnectionID, experimentalRawEvents bool) (*State, <-chan struct{}, uint64) {
	r.mu.Lock()
	entry, ok := r.threads[threadID]
	if !ok {
		entry = newThreadEntry()
		r.threads[threadID] = entry
	}
	entry.connectionIDs[connectionID] = struct{}{}
	if r.threadIDsByConn[connectionID] == nil {
		r.threadIDsByConn[connectionID] = make(map[string]struct{})
	}
	r.threadIDsByConn[connectionID][threadID] = struct{}{}
	state := entry.state
	r.mu.Unlock()

	state.SetExperimentalRawEvents(experimentalRawEvents)
	cancelCh, generation := state.SetListener()
	return state, cancelCh, generation
}

// TryEnsureConnectionSubscribed subscribes connectionID to threadID if
// connectionID is live, without installing a new listener. Returns false if
// connectionID was never marked live via ConnectionInitialized.
func (r *Registry) TryEnsureConnectionSubscribed(threadID string, connectionID transport.ConnectionID, experimentalRawEvents bool) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.liveConnections[connectionID]; !live {
		return nil, false
	}

	entry, ok := r.threads[threadID]
	if !ok {
		entry = newThreadEntry()
		r.threads[threadID] = entry
	}
	entry.connectionIDs[connectionID] = struct{}{}
	if r.threadIDsByConn[connectionID] == nil {
		r.threadIDsByConn[connectionID] = make(map[string]struct{})
	}
	r.threadIDsByConn[connectionID][threadID] = struct{}{}

	if experimentalRawEvents {
		entry.state.SetExperimentalRawEvents(true)
	}
	return entry.state, true
}

// UnsubscribeConnectionFromThread removes connectionID's subscription to
// threadID without affecting the listener. Returns false if there was
// nothing to remove.
func (r *Registry) UnsubscribeConnectionFromThread(threadID string, connectionID transport.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.threads[threadID]
	if !ok {
		return false
	}
	threadIDs, ok := r.threadIDsByConn[connectionID]
	if !ok {
		return false
	}
	if _, subscribed := threadIDs[threadID]; !subscribed {
		return false
	}

	delete(threadIDs, threadID)
	if len(threadIDs) == 0 {
		delete(r.threadIDsByConn, connectionID)
	}
	delete(entry.connectionIDs, connectionID)
	return true
}

// RemoveConnection tears down every subscription connectionID held, clearing
// the listener on any thread left with no subscribers.
//
// Maps to: codex-rs/app-server/src/thread_state.rs ThreadStateManager::remove_connection
func (r *Registry) RemoveConnection(connectionID transport.ConnectionID) {
	r.mu.Lock()
	delete(r.liveConnections, connectionID)
	threadIDs := r.threadIDsByConn[connectionID]
	delete(r.threadIDsByConn, connectionID)

	var toClear []*State
	for threadID := range threadIDs {
		entry, ok := r.threads[threadID]
		if !ok {
			continue
		}
		delete(entry.connectionIDs, connectionID)
		if len(entry.connectionIDs) == 0 {
			toClear = append(toClear, entry.state)
		}
	}
	r.mu.Unlock()

	for _, state := range toClear {
		state.ClearListener()
	}
}

// RemoveThreadState drops all bookkeeping for threadID and clears its
// listener, used when a thread is permanently torn down.
//
// Maps to: codex-rs/app-server/src/thread_state.rs ThreadStateManager::remove_thread_state
func (r *Registry) RemoveThreadState(threadID string) {
	r.mu.Lock()
	entry, ok := r.threads[threadID]
	delete(r.threads, threadID)
	for connectionID, threadIDs := range r.threadIDsByConn {
		delete(threadIDs, threadID)
		if len(threadIDs) == 0 {
			delete(r.threadIDsByConn, connectionID)
		}
	}
	r.mu.Unlock()

	if ok {
		entry.state.ClearListener()
	}
}
