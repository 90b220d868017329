package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/round"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := newEventQueue()

	q.Enqueue(round.Event{Kind: round.EventStart, Player: "alice"})
	q.Enqueue(round.Event{Kind: round.EventTouch, Player: "bob"})
	q.Enqueue(round.TimerEvent("countdown"))

	ev, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, round.EventStart, ev.Kind)

	ev, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, round.PlayerID("bob"), ev.Player)

	ev, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "countdown", ev.Timer)

	_, ok = q.TryDequeue()
	assert.False(t, ok, "empty queue")
}

func TestQueueEnqueueAfterCloseRejected(t *testing.T) {
	q := newEventQueue()

	require.True(t, q.Enqueue(round.Event{Kind: round.EventReady, Player: "alice"}))
	q.Close()

	assert.False(t, q.Enqueue(round.Event{Kind: round.EventReady, Player: "bob"}))

	// Events enqueued before close remain drainable.
	ev, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, round.PlayerID("alice"), ev.Player)
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close()

	_, open := <-q.Wait()
	assert.False(t, open, "signal channel closes with the queue")
}

func TestQueueSignalCoalesces(t *testing.T) {
	q := newEventQueue()

	q.Enqueue(round.Event{Kind: round.EventTouch, Player: "a"})
	q.Enqueue(round.Event{Kind: round.EventTouch, Player: "b"})

	<-q.Wait()
	assert.Equal(t, 2, q.Len())
}
