package event

import (
	"testing"
)

type pingEvent struct {
	Base
	N int
}

func newPing(n int) pingEvent {
	return pingEvent{Base: NewBase("ping"), N: n}
}

func TestPublishOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.SubscribeAll(func(Event) { got = append(got, "all") })
	bus.Subscribe("ping", func(Event) { got = append(got, "first") })
	bus.Subscribe("ping", func(Event) { got = append(got, "second") })
	bus.Subscribe("pong", func(Event) { got = append(got, "pong") })

	bus.Publish(newPing(1))

	want := []string{"first", "second", "all"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("handler %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUnsubscribeByIdentity(t *testing.T) {
	bus := NewBus()
	calls := 0
	handler := func(Event) { calls++ }

	first := bus.Subscribe("ping", handler)
	second := bus.Subscribe("ping", handler)

	if !bus.Unsubscribe(first) {
		t.Fatal("expected first subscription to be removed")
	}
	if bus.Unsubscribe(first) {
		t.Error("removing the same handle twice should report false")
	}

	bus.Publish(newPing(1))
	if calls != 1 {
		t.Errorf("expected the remaining handle to fire once, got %d", calls)
	}

	bus.Unsubscribe(second)
	bus.Publish(newPing(2))
	if calls != 1 {
		t.Errorf("expected no calls after removing both handles, got %d", calls)
	}
	if bus.Count() != 0 {
		t.Errorf("expected empty bus, got %d subscriptions", bus.Count())
	}
}

func TestUnsubscribeNil(t *testing.T) {
	bus := NewBus()
	if bus.Unsubscribe(nil) {
		t.Error("nil handle should not unsubscribe anything")
	}
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()
	delivered := false

	bus.Subscribe("ping", func(Event) { panic("boom") })
	bus.Subscribe("ping", func(e Event) {
		if p, ok := e.(pingEvent); ok && p.N == 7 {
			delivered = true
		}
	})

	bus.Publish(newPing(7))
	if !delivered {
		t.Error("second handler should still receive the event")
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	calls := 0
	var sub *Subscription
	sub = bus.Subscribe("ping", func(Event) {
		calls++
		bus.Unsubscribe(sub)
	})

	bus.Publish(newPing(1))
	bus.Publish(newPing(2))
	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
}

func TestClear(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("a", func(Event) {})
	bus.SubscribeAll(func(Event) {})
	bus.Clear()
	if bus.Count() != 0 {
		t.Errorf("expected 0 subscriptions, got %d", bus.Count())
	}
}
