// Package approval correlates model-originated approval requests (exec,
// apply-patch) with client responses on top of the transport layer, and
// caches session-scoped grants so a repeated request for the same command
// prefix or patch root is not re-prompted.
//
// Maps to: spec.md §4.6 "Approval manager (C6)"
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/codex-go/agentcore/internal/transport"
)

// Scope controls how long a granted approval is remembered.
type Scope string

const (
	// ScopeOneShot approves only the request it was issued for.
	ScopeOneShot Scope = "one_shot"
	// ScopeSession approves every subsequent request with the same cache
	// key for the rest of the thread's lifetime.
	ScopeSession Scope = "session"
)

// Kind distinguishes the two approval surfaces; cache keys never collide
// across kinds even if the string key happens to match.
type Kind string

const (
	KindExec  Kind = "exec"
	KindPatch Kind = "patch"
)

// Decision is the outcome of an approval request, either freshly granted by
// the client or replayed from the session cache.
type Decision struct {
	Approved bool
	Scope    Scope
	// FromCache is true when this Decision was returned without prompting
	// the client, because an earlier Session-scoped grant already covers
	// this request.
	FromCache bool
}

// clientResponse is the JSON payload a client sends back for an approval
// request.
type clientResponse struct {
	Approved bool   `json:"approved"`
	Scope    string `json:"scope"`
}

type cacheKey struct {
	threadID string
	kind     Kind
	key      string
}

// Manager issues approval requests over a transport.Sender, tracks their
// pending state, and maintains the session-scoped approval cache.
//
// Maps to: codex-rs/core/src/codex.rs approval correlation + cache (no
// single upstream file owns this in isolation; behavior is specified
// directly by spec.md §4.6).
type Manager struct {
	sender *transport.Sender

	mu    sync.Mutex
	cache map[cacheKey]Decision
}

// NewManager constructs a Manager that issues requests through sender.
func NewManager(sender *transport.Sender) *Manager {
	return &Manager{
		sender: sender,
		cache:  make(map[cacheKey]Decision),
	}
}

// CanonicalizeCommandPrefix derives a stable cache key for an exec argv: the
// program name plus the subcommand token, if any (e.g. ["git","reset",
// "--hard"] -> "git reset"). Using only the leading tokens means a Session
// grant for "git reset" does not widen to cover an unrelated "git push".
func CanonicalizeCommandPrefix(argv []string) string {
	n := len(argv)
	if n > 2 {
		n = 2
	}
	return strings.Join(argv[:n], " ")
}

// CanonicalizePatchRoot derives a cache key for an apply-patch request from
// the patch's root directory with trailing slashes removed; an empty or
// all-slash root maps to "/". No other path cleaning is applied.
func CanonicalizePatchRoot(root string) string {
	cleaned := strings.TrimRight(root, "/")
	if cleaned == "" {
		return "/"
	}
	return cleaned
}

// Lookup returns a cached Session-scope decision for (threadID, kind, key),
// if one exists.
func (m *Manager) Lookup(threadID string, kind Kind, key string) (Decision, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.cache[cacheKey{threadID: threadID, kind: kind, key: key}]
	return d, ok
}

func (m *Manager) remember(threadID string, kind Kind, key string, d Decision) {
	if d.Scope != ScopeSession {
		return
	}
	m.mu.Lock()
	m.cache[cacheKey{threadID: threadID, kind: kind, key: key}] = d
	m.mu.Unlock()
}

// RequestApproval resolves an approval for (threadID, kind, key). If a
// Session-scoped grant already covers this key, it is returned immediately
// with FromCache=true and no request is sent to the client. Otherwise a
// fresh request is issued via the underlying transport.Sender, and its
// outcome is cached when the client grants Session scope.
//
// A cached grant never widens the sandbox envelope beyond the original: the
// caller must re-derive the same effective command/patch (and thus the same
// sandbox policy) for the cached key as it would for a freshly approved one
// (spec.md §4.6, P10).
func (m *Manager) RequestApproval(ctx context.Context, threadID string, kind Kind, key string, connectionIDs []transport.ConnectionID, method string, payload any) (Decision, error) {
	if d, ok := m.Lookup(threadID, kind, key); ok {
		d.FromCache = true
		return d, nil
	}

	_, resultCh := m.sender.SendRequest(ctx, method, payload, connectionIDs, threadID)

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case result := <-resultCh:
		if result.Err != nil {
			return Decision{}, result.Err
		}
		var resp clientResponse
		if err := json.Unmarshal(result.Result, &resp); err != nil {
			return Decision{}, fmt.Errorf("approval: malformed client response: %w", err)
		}
		scope := Scope(resp.Scope)
		if scope != ScopeSession {
			scope = ScopeOneShot
		}
		decision := Decision{Approved: resp.Approved, Scope: scope}
		m.remember(threadID, kind, key, decision)
		return decision, nil
	}
}

// CancelRequestsForThread cancels every pending approval request for
// threadID, completing each awaiter with rpcErr. The session-scoped cache is
// left untouched — a turn being interrupted does not invalidate approvals
// already granted for that thread.
func (m *Manager) CancelRequestsForThread(threadID string, rpcErr *transport.RPCError) {
	m.sender.CancelRequestsForThread(threadID, rpcErr)
}

// PendingRequestsForThread returns the requests still awaiting a client
// reply for threadID, sorted by ascending request id (spec.md P7), for
// replay to a reconnecting client.
func (m *Manager) PendingRequestsForThread(threadID string) []transport.Request {
	return m.sender.PendingRequestsForThread(threadID)
}

// ClearThread drops every session-scoped approval cached for threadID. Used
// when a thread is torn down for good (not on mere interruption).
func (m *Manager) ClearThread(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.cache {
		if k.threadID == threadID {
			delete(m.cache, k)
		}
	}
}
