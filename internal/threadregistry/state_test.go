package threadregistry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-go/agentcore/internal/transport"
)

// P6: installing a new listener cancels exactly the previous one, and the
// generation counter increments by one (wrapping at 2^64).
func TestState_SetListener_CancelsPreviousAndIncrementsGeneration(t *testing.T) {
	var s State

	cancel1, gen1 := s.SetListener()
	assert.EqualValues(t, 1, gen1)

	select {
	case <-cancel1:
		t.Fatal("first listener cancelled before a second was installed")
	default:
	}

	cancel2, gen2 := s.SetListener()
	assert.EqualValues(t, 2, gen2)

	select {
	case _, open := <-cancel1:
		assert.False(t, open, "previous listener's channel should be closed")
	default:
		t.Fatal("first listener was not cancelled when the second was installed")
	}
	select {
	case <-cancel2:
		t.Fatal("second listener cancelled immediately")
	default:
	}
}

func TestState_SetListener_GenerationWrapsAtMax(t *testing.T) {
	s := State{generation: math.MaxUint64}
	_, gen := s.SetListener()
	assert.EqualValues(t, 0, gen)
}

func TestState_ClearListener_CancelsAndIsIdempotent(t *testing.T) {
	var s State
	cancel, _ := s.SetListener()

	s.ClearListener()
	_, open := <-cancel
	assert.False(t, open)
	assert.False(t, s.HasListener())

	s.ClearListener() // must not panic on double-clear
}

func TestRegistry_SetListener_SubscribesAndTracksConnection(t *testing.T) {
	r := New()
	state, cancelCh, gen := r.SetListener("t1", transport.ConnectionID(1), false)
	require.NotNil(t, state)
	assert.EqualValues(t, 1, gen)
	assert.True(t, r.HasSubscribers("t1"))
	assert.ElementsMatch(t, []transport.ConnectionID{1}, r.SubscribedConnectionIDs("t1"))

	select {
	case <-cancelCh:
		t.Fatal("should not be cancelled yet")
	default:
	}
}

func TestRegistry_SetListener_SecondCallCancelsFirstListener(t *testing.T) {
	r := New()
	_, cancel1, _ := r.SetListener("t1", transport.ConnectionID(1), false)
	_, _, gen2 := r.SetListener("t1", transport.ConnectionID(2), false)

	assert.EqualValues(t, 2, gen2)
	_, open := <-cancel1
	assert.False(t, open)
}

func TestRegistry_RemoveConnection_ClearsListenerWhenNoSubscribersRemain(t *testing.T) {
	r := New()
	r.ConnectionInitialized(1)
	state, cancelCh, _ := r.SetListener("t1", transport.ConnectionID(1), false)

	r.RemoveConnection(1)

	_, open := <-cancelCh
	assert.False(t, open)
	assert.False(t, state.HasListener())
	assert.False(t, r.HasSubscribers("t1"))
}

func TestRegistry_RemoveConnection_KeepsListenerIfOtherSubscriberRemains(t *testing.T) {
	r := New()
	r.ConnectionInitialized(1)
	r.ConnectionInitialized(2)
	state, cancelCh, _ := r.SetListener("t1", transport.ConnectionID(1), false)
	_, ok := r.TryEnsureConnectionSubscribed("t1", transport.ConnectionID(2), false)
	require.True(t, ok)

	r.RemoveConnection(1)

	select {
	case <-cancelCh:
		t.Fatal("listener should survive while connection 2 is still subscribed")
	default:
	}
	assert.True(t, state.HasListener())
	assert.ElementsMatch(t, []transport.ConnectionID{2}, r.SubscribedConnectionIDs("t1"))
}

func TestRegistry_TryEnsureConnectionSubscribed_FailsForUnknownConnection(t *testing.T) {
	r := New()
	_, ok := r.TryEnsureConnectionSubscribed("t1", transport.ConnectionID(99), false)
	assert.False(t, ok)
}

func TestRegistry_UnsubscribeConnectionFromThread(t *testing.T) {
	r := New()
	r.ConnectionInitialized(1)
	r.SetListener("t1", transport.ConnectionID(1), false)

	ok := r.UnsubscribeConnectionFromThread("t1", transport.ConnectionID(1))
	assert.True(t, ok)
	assert.False(t, r.HasSubscribers("t1"))

	ok = r.UnsubscribeConnectionFromThread("t1", transport.ConnectionID(1))
	assert.False(t, ok)
}

func TestRegistry_RemoveThreadState_ClearsListenerAndBookkeeping(t *testing.T) {
	r := New()
	r.ConnectionInitialized(1)
	state, cancelCh, _ := r.SetListener("t1", transport.ConnectionID(1), false)

	r.RemoveThreadState("t1")

	_, open := <-cancelCh
	assert.False(t, open)
	assert.False(t, state.HasListener())
	assert.False(t, r.HasSubscribers("t1"))
}
