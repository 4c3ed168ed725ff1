package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHubDeliversToUserStreams(t *testing.T) {
	hub := NewHub()
	a := hub.Register(1)
	b := hub.Register(1)
	other := hub.Register(2)

	hub.Send(1, "hello")

	assert.Equal(t, "hello", <-a)
	assert.Equal(t, "hello", <-b)
	select {
	case msg := <-other:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
	assert.Equal(t, 2, hub.Subscribers(1))
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch := hub.Register(1)
	hub.Unregister(1, ch)
	hub.Unregister(1, ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers(1))
}

func TestHubDropsStalledStreams(t *testing.T) {
	hub := NewHub()
	stalled := hub.Register(1)
	live := hub.Register(1)

	for i := 0; i < cap(stalled); i++ {
		hub.Send(1, "x")
		<-live
	}

	start := time.Now()
	hub.Send(1, "overflow")
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	assert.Equal(t, 1, hub.Subscribers(1))
	assert.Equal(t, "overflow", <-live)
	for range stalled {
	}
}
