package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-go/agentcore/internal/transport"
)

// autoRespondDispatcher answers every request it receives synchronously,
// from within Dispatch, with a canned client response. This keeps the tests
// single-threaded: RequestApproval's blocking wait on the result channel is
// satisfied before SendRequest even returns.
type autoRespondDispatcher struct {
	mu       sync.Mutex
	sender   *transport.Sender
	response []byte
	log      []transport.Envelope
}

func (d *autoRespondDispatcher) Dispatch(_ context.Context, env transport.Envelope) error {
	d.mu.Lock()
	d.log = append(d.log, env)
	d.mu.Unlock()

	if env.Message.Kind == transport.KindRequest {
		d.sender.NotifyClientResponse(env.Message.Request.ID, d.response)
	}
	return nil
}

func (d *autoRespondDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.log)
}

func newAutoRespondManager(response string) (*Manager, *autoRespondDispatcher) {
	d := &autoRespondDispatcher{response: []byte(response)}
	sender := transport.NewSender(d)
	d.sender = sender
	return NewManager(sender), d
}

func TestCanonicalizeCommandPrefix_UsesProgramAndSubcommandOnly(t *testing.T) {
	assert.Equal(t, "git reset", CanonicalizeCommandPrefix([]string{"git", "reset", "--hard", "HEAD~1"}))
	assert.Equal(t, "ls", CanonicalizeCommandPrefix([]string{"ls"}))
}

// Scenario 5 (spec.md §8): two shell_command calls with identical argv in
// the same turn; the first prompts and is ApprovedForSession, the second
// produces no prompt and reuses the same decision.
func TestManager_RequestApproval_SessionScopeShortCircuitsSecondRequest(t *testing.T) {
	m, d := newAutoRespondManager(`{"approved":true,"scope":"session"}`)
	key := CanonicalizeCommandPrefix([]string{"git", "push", "origin", "main"})

	first, err := m.RequestApproval(context.Background(), "thread-1", KindExec, key, nil, "execApprovalRequest", map[string]string{"argv": "git push origin main"})
	require.NoError(t, err)
	assert.True(t, first.Approved)
	assert.Equal(t, ScopeSession, first.Scope)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, d.count())

	second, err := m.RequestApproval(context.Background(), "thread-1", KindExec, key, nil, "execApprovalRequest", map[string]string{"argv": "git push origin main"})
	require.NoError(t, err)
	assert.True(t, second.Approved)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, d.count(), "no additional prompt should be sent")
}

func TestManager_RequestApproval_OneShotDoesNotCache(t *testing.T) {
	m, d := newAutoRespondManager(`{"approved":true,"scope":"one_shot"}`)

	first, err := m.RequestApproval(context.Background(), "thread-1", KindExec, "rm -rf", nil, "execApprovalRequest", nil)
	require.NoError(t, err)
	assert.Equal(t, ScopeOneShot, first.Scope)

	second, err := m.RequestApproval(context.Background(), "thread-1", KindExec, "rm -rf", nil, "execApprovalRequest", nil)
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.Equal(t, 2, d.count())
}

// The Session-scope cache is partitioned by thread and by request kind: a
// decision remembered for one (thread, kind, key) is not found under another
// kind or another thread with the same key.
func TestManager_Lookup_CacheKeyDependsOnKindAndThread(t *testing.T) {
	m, _ := newAutoRespondManager(`{"approved":true,"scope":"session"}`)

	m.remember("thread-1", KindExec, "git push", Decision{Approved: true, Scope: ScopeSession})

	_, ok := m.Lookup("thread-1", KindExec, "git push")
	assert.True(t, ok)

	_, ok = m.Lookup("thread-1", KindPatch, "git push")
	assert.False(t, ok, "cache must not bleed across kinds")

	_, ok = m.Lookup("thread-2", KindExec, "git push")
	assert.False(t, ok, "cache must not bleed across threads")
}

func TestManager_ClearThread_DropsOnlyThatThreadsCache(t *testing.T) {
	m, _ := newAutoRespondManager(`{"approved":true,"scope":"session"}`)

	m.remember("thread-1", KindExec, "git push", Decision{Approved: true, Scope: ScopeSession})
	m.remember("thread-2", KindExec, "git push", Decision{Approved: true, Scope: ScopeSession})

	m.ClearThread("thread-1")

	_, ok := m.Lookup("thread-1", KindExec, "git push")
	assert.False(t, ok)
	_, ok = m.Lookup("thread-2", KindExec, "git push")
	assert.True(t, ok)
}

// denyingDispatcher never answers, so RequestApproval blocks until the
// manager's CancelRequestsForThread completes it with an error.
type denyingDispatcher struct {
	sender *transport.Sender
}

func (d *denyingDispatcher) Dispatch(_ context.Context, _ transport.Envelope) error {
	return nil
}

func TestManager_CancelRequestsForThread_CompletesAwaitersWithError(t *testing.T) {
	d := &denyingDispatcher{}
	sender := transport.NewSender(d)
	m := NewManager(sender)

	doneCh := make(chan error, 1)
	go func() {
		_, err := m.RequestApproval(context.Background(), "thread-1", KindExec, "git push", nil, "execApprovalRequest", nil)
		doneCh <- err
	}()

	require.Eventually(t, func() bool {
		return len(m.PendingRequestsForThread("thread-1")) == 1
	}, time.Second, time.Millisecond)

	m.CancelRequestsForThread("thread-1", &transport.RPCError{Code: transport.InternalErrorCode, Message: "turn replaced"})

	select {
	case err := <-doneCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("RequestApproval did not return after cancellation")
	}
}

func TestManager_PendingRequestsForThread_SortedByID(t *testing.T) {
	d := &denyingDispatcher{}
	sender := transport.NewSender(d)
	m := NewManager(sender)

	go m.RequestApproval(context.Background(), "thread-1", KindExec, "a", nil, "m", nil)
	go m.RequestApproval(context.Background(), "thread-1", KindExec, "b", nil, "m", nil)

	var pending []transport.Request
	require.Eventually(t, func() bool {
		pending = m.PendingRequestsForThread("thread-1")
		return len(pending) == 2
	}, time.Second, time.Millisecond)
	assert.Less(t, pending[0].ID, pending[1].ID)

	m.CancelRequestsForThread("thread-1", &transport.RPCError{Code: transport.InternalErrorCode, Message: "cleanup"})
}
