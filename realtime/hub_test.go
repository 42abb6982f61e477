package realtime

import (
	"testing"
	"time"
)

func TestHubDeliversToProjectSubscribers(t *testing.T) {
	hub := NewHub()

	ch, unsub := hub.Subscribe("p1")
	defer unsub()
	other, otherUnsub := hub.Subscribe("p2")
	defer otherUnsub()

	hub.Broadcast("p1", Event{Type: EventNewTeamMessage, Data: "hello"})

	select {
	case ev := <-ch:
		if ev.Type != EventNewTeamMessage || ev.Data != "hello" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}

	select {
	case ev := <-other:
		t.Errorf("subscriber of another project received %+v", ev)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()

	ch, unsub := hub.Subscribe("p1")
	unsub()

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}

	// Broadcasting to a topic with no subscribers must not panic.
	hub.Broadcast("p1", Event{Type: EventNewPersonalMessage})
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()

	_, unsub := hub.Subscribe("p1")
	defer unsub()

	// A subscriber that never drains must not block the sender.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast("p1", Event{Type: EventNewTeamMessage, Data: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
}

func TestHubMultipleSubscribersSameProject(t *testing.T) {
	hub := NewHub()

	a, unsubA := hub.Subscribe("p1")
	defer unsubA()
	b, unsubB := hub.Subscribe("p1")
	defer unsubB()

	hub.Broadcast("p1", Event{Type: EventNewTeamMessage, Data: "fanout"})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Data != "fanout" {
				t.Errorf("subscriber %s got %+v", name, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s missed the event", name)
		}
	}
}
