package websocket

import (
	"testing"
	"time"

	"github.com/cifan-festival/submission-service/internal/types"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func channelClosed(ch chan []byte) bool {
	select {
	case _, ok := <-ch:
		return !ok
	default:
		return false
	}
}

func TestHub_ReconnectThenStaleDisconnect(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := NewClient(nil, "user_1", hub)
	second := NewClient(nil, "user_1", hub)

	hub.RegisterClient(first)
	waitFor(t, "first client to connect", func() bool {
		return hub.IsUserConnected("user_1")
	})

	// A second connection replaces the first; the hub closes the old
	// send channel as part of the replacement.
	hub.RegisterClient(second)
	waitFor(t, "first client to be replaced", func() bool {
		return channelClosed(first.send)
	})

	// The replaced connection's teardown still unregisters itself. This
	// must not evict the live client or close its channel again.
	hub.UnregisterClient(first)

	waitFor(t, "event delivery to the live client", func() bool {
		hub.BroadcastToUser("user_1", types.NewEvent(types.EventSubmissionProgress, types.ProgressEvent{
			Stage:    types.StageUploading,
			Progress: 50,
		}))
		select {
		case data, ok := <-second.send:
			return ok && len(data) > 0
		default:
			return false
		}
	})

	if !hub.IsUserConnected("user_1") {
		t.Fatal("Expected the replacement client to stay connected")
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("Expected 1 client, got %d", hub.ClientCount())
	}

	// A real disconnect of the live client still cleans up.
	hub.UnregisterClient(second)
	waitFor(t, "live client to disconnect", func() bool {
		return !hub.IsUserConnected("user_1")
	})
	if !channelClosed(second.send) {
		t.Fatal("Expected the live client's channel closed on its own unregister")
	}
}

func TestSendEvent_BackloggedClientKeepsChannelOpen(t *testing.T) {
	client := NewClient(nil, "user_1", NewHub())

	event := types.NewEvent(types.EventSubmissionProgress, types.ProgressEvent{
		Stage:    types.StageUploading,
		Progress: 50,
	})

	// Fill the send buffer with no consumer attached.
	for i := 0; i < cap(client.send); i++ {
		if err := client.SendEvent(event); err != nil {
			t.Fatalf("Unexpected error filling buffer: %v", err)
		}
	}

	if err := client.SendEvent(event); err == nil {
		t.Fatal("Expected an error once the buffer is full")
	}

	// The channel must survive the error so the hub can close it exactly
	// once during unregistration.
	select {
	case _, ok := <-client.send:
		if !ok {
			t.Fatal("Expected the send channel to remain open")
		}
	default:
		t.Fatal("Expected buffered events to remain readable")
	}
}
