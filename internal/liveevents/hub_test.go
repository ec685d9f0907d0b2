package liveevents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Notification {
	t.Helper()
	select {
	case n, ok := <-sub.Events():
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return Notification{}
	}
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub()
	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Subscribers())

	hub.Publish(context.Background(), Notification{Name: NameNewEvent, Data: "x"})

	assert.Equal(t, NameNewEvent, receive(t, a).Name)
	assert.Equal(t, NameNewEvent, receive(t, b).Name)
}

func TestHubHasNoBacklog(t *testing.T) {
	hub := NewHub()
	hub.Publish(context.Background(), Notification{Name: NameCleared})

	sub, err := hub.Subscribe()
	require.NoError(t, err)
	select {
	case n := <-sub.Events():
		t.Fatalf("unexpected notification %q", n.Name)
	default:
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	slow, err := hub.Subscribe()
	require.NoError(t, err)

	total := DefaultSubscriberBuffer + 5
	delivered := 0
	for i := 0; i < total; i++ {
		delivered += hub.broadcast(Notification{Name: NameNewEvent})
	}
	assert.Equal(t, DefaultSubscriberBuffer, delivered)
	assert.Len(t, slow.Events(), DefaultSubscriberBuffer)

	fast, err := hub.Subscribe()
	require.NoError(t, err)
	hub.Publish(context.Background(), Notification{Name: NameCleared})
	assert.Equal(t, NameCleared, receive(t, fast).Name)
}

func TestSubscriptionClose(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers())

	_, ok := <-sub.Events()
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), Notification{Name: NameCleared})
	})
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Close()
	_, ok := <-sub.Events()
	assert.False(t, ok)
	// closing the subscription after the hub is a no-op
	sub.Close()

	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.Equal(t, 0, hub.broadcast(Notification{Name: NameCleared}))
}

func TestNilHub(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), Notification{Name: NameCleared})
		hub.Close()
	})
	_, err := hub.Subscribe()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Subscribers())
}
