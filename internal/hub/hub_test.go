package hub

import (
	"testing"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

func testEvent(speed float64) Event {
	return Event{
		Type:      "wind_update",
		Data:      models.WindSample{Speed: speed, Direction: 90},
		Timestamp: time.Now().UTC(),
	}
}

func TestBroadcast_ReachesAllSubscribers(t *testing.T) {
	h := New()

	var channels []<-chan Event
	for i := 0; i < 3; i++ {
		_, ch := h.Subscribe()
		channels = append(channels, ch)
	}
	if h.Count() != 3 {
		t.Fatalf("Count = %d, want 3", h.Count())
	}

	h.Broadcast(testEvent(8))

	for i, ch := range channels {
		select {
		case ev := <-ch:
			if ev.Data.Speed != 8 {
				t.Errorf("subscriber %d got speed %v, want 8", i, ev.Data.Speed)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	h := New()

	id1, ch1 := h.Subscribe()
	_, ch2 := h.Subscribe()

	h.Unsubscribe(id1)
	if h.Count() != 1 {
		t.Fatalf("Count = %d after unsubscribe, want 1", h.Count())
	}

	h.Broadcast(testEvent(9))

	if _, open := <-ch1; open {
		t.Error("unsubscribed channel still open with pending event")
	}
	select {
	case ev := <-ch2:
		if ev.Data.Speed != 9 {
			t.Errorf("speed = %v, want 9", ev.Data.Speed)
		}
	default:
		t.Error("remaining subscriber received nothing")
	}
}

func TestBroadcast_SlowSubscriberNeverBlocks(t *testing.T) {
	h := New()

	_, slow := h.Subscribe()
	_, other := h.Subscribe()

	// Overfill the slow subscriber's buffer; broadcasts must keep returning.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Broadcast(testEvent(float64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}

	if len(slow) != subscriberBuffer {
		t.Errorf("slow buffer = %d, want full buffer of %d with overflow dropped", len(slow), subscriberBuffer)
	}
	if len(other) != subscriberBuffer {
		t.Errorf("other buffer = %d, want %d", len(other), subscriberBuffer)
	}
}

func TestBroadcast_NoSubscribers(t *testing.T) {
	h := New()
	h.Broadcast(testEvent(5)) // must not panic
	if h.Count() != 0 {
		t.Errorf("Count = %d, want 0", h.Count())
	}
}
