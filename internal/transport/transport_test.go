package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu  sync.Mutex
	log []Envelope
}

func (f *fakeDispatcher) Dispatch(_ context.Context, env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, env)
	return nil
}

func (f *fakeDispatcher) envelopes() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, len(f.log))
	copy(out, f.log)
	return out
}

func TestSender_SendRequest_RoutesToGivenConnections(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)

	id, resultCh := s.SendRequest(context.Background(), "approveExec", map[string]string{"cmd": "ls"}, []ConnectionID{7}, "thread-1")

	envs := d.envelopes()
	require.Len(t, envs, 1)
	assert.False(t, envs[0].Broadcast)
	assert.Equal(t, ConnectionID(7), envs[0].ConnectionID)
	assert.Equal(t, KindRequest, envs[0].Message.Kind)
	assert.Equal(t, id, envs[0].Message.Request.ID)

	s.NotifyClientResponse(id, []byte(`{"approved":true}`))
	select {
	case res := <-resultCh:
		assert.Nil(t, res.Err)
		assert.JSONEq(t, `{"approved":true}`, string(res.Result))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestSender_SendRequest_BroadcastsWhenNoConnectionsGiven(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)

	_, _ = s.SendRequest(context.Background(), "ping", nil, nil, "thread-1")

	envs := d.envelopes()
	require.Len(t, envs, 1)
	assert.True(t, envs[0].Broadcast)
}

func TestSender_NotifyClientError_DeliversError(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)
	id, resultCh := s.SendRequest(context.Background(), "approveExec", nil, []ConnectionID{1}, "t")

	s.NotifyClientError(id, RPCError{Code: 1, Message: "denied"})

	res := <-resultCh
	require.NotNil(t, res.Err)
	assert.Equal(t, "denied", res.Err.Message)
}

func TestSender_PendingRequestsForThread_SortedByID(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)

	id1, _ := s.SendRequest(context.Background(), "a", nil, nil, "t")
	id2, _ := s.SendRequest(context.Background(), "b", nil, nil, "t")
	_, _ = s.SendRequest(context.Background(), "c", nil, nil, "other-thread")

	reqs := s.PendingRequestsForThread("t")
	require.Len(t, reqs, 2)
	assert.Equal(t, id1, reqs[0].ID)
	assert.Equal(t, id2, reqs[1].ID)
}

func TestSender_CancelRequestsForThread_NotifiesWithError(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)

	id, resultCh := s.SendRequest(context.Background(), "approveExec", nil, nil, "t")

	s.CancelRequestsForThread("t", &RPCError{Code: InternalErrorCode, Message: "turn changed"})

	res := <-resultCh
	require.NotNil(t, res.Err)
	assert.Equal(t, InternalErrorCode, res.Err.Code)
	assert.Empty(t, s.PendingRequestsForThread("t"))
	_ = id
}

func TestSender_ReplayRequestsToConnectionForThread_ResendsPending(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)
	_, _ = s.SendRequest(context.Background(), "approveExec", nil, []ConnectionID{1}, "t")

	s.ReplayRequestsToConnectionForThread(context.Background(), ConnectionID(2), "t")

	envs := d.envelopes()
	require.Len(t, envs, 2)
	assert.Equal(t, ConnectionID(2), envs[1].ConnectionID)
	assert.Equal(t, KindRequest, envs[1].Message.Kind)
}

func TestThreadSender_AbortPendingRequests(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)
	ts := NewThreadSender(s, []ConnectionID{1}, "t")

	_, resultCh := ts.SendRequest(context.Background(), "approveExec", nil)
	ts.AbortPendingRequests()

	res := <-resultCh
	require.NotNil(t, res.Err)
	assert.Equal(t, InternalErrorCode, res.Err.Code)
}

func TestThreadSender_SendNotification_NoopWithoutConnections(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSender(d)
	ts := NewThreadSender(s, nil, "t")

	ts.SendNotification(context.Background(), "thread/event", nil)

	assert.Empty(t, d.envelopes())
}
