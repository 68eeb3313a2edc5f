package sse

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHub(t *testing.T) *Hub {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewHub(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	hub := newHub(t)

	ch, unsub := hub.Subscribe(1)
	defer unsub()
	other, otherUnsub := hub.Subscribe(2)
	defer otherUnsub()

	hub.Broadcast(1, Event{Type: EventTaskCreated, Data: map[string]interface{}{"task_id": 7}})

	select {
	case ev := <-ch:
		assert.Equal(t, EventTaskCreated, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case ev := <-other:
		t.Fatalf("event leaked across projects: %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := newHub(t)

	ch, unsub := hub.Subscribe(1)
	unsub()

	_, open := <-ch
	assert.False(t, open)

	// broadcasting after the last unsubscribe must not panic
	hub.Broadcast(1, Event{Type: EventTaskUpdated})
}

func TestReplayFromReturnsHistoryTail(t *testing.T) {
	hub := newHub(t)

	for i := 0; i < 5; i++ {
		hub.Broadcast(3, Event{Type: EventTaskUpdated, Data: map[string]interface{}{"n": i}})
	}

	all, err := hub.ReplayFrom(3, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	tail, err := hub.ReplayFrom(3, 3)
	require.NoError(t, err)
	assert.Len(t, tail, 2)
	assert.EqualValues(t, 3, tail[0].ID)
}

func TestHistoryTrimmedToLimit(t *testing.T) {
	hub := newHub(t)

	for i := 0; i < historyLimit+50; i++ {
		hub.Broadcast(4, Event{Type: EventTaskUpdated})
	}

	all, err := hub.ReplayFrom(4, 0)
	require.NoError(t, err)
	assert.Len(t, all, historyLimit)
}

func TestParseLastEventID(t *testing.T) {
	assert.EqualValues(t, 0, ParseLastEventID(""))
	assert.EqualValues(t, 42, ParseLastEventID("42"))
	assert.EqualValues(t, 0, ParseLastEventID("junk"))
}
