package eventbus

import "testing"

func TestSubscribeThenPublishDeliversInOrder(t *testing.T) {
	b := New(8)
	sub := b.Subscribe()

	b.Publish(Event{Kind: KindMessageSent, ProjectID: 1, Payload: "a"})
	b.Publish(Event{Kind: KindMessageRead, ProjectID: 1, Payload: "b"})

	ev, missed, ok := sub.Next()
	if !ok || missed != 0 || ev.Payload != "a" {
		t.Fatalf("unexpected first event: ev=%+v missed=%d ok=%v", ev, missed, ok)
	}
	ev, missed, ok = sub.Next()
	if !ok || missed != 0 || ev.Payload != "b" {
		t.Fatalf("unexpected second event: ev=%+v missed=%d ok=%v", ev, missed, ok)
	}
	if _, _, ok = sub.Next(); ok {
		t.Fatalf("expected no more events")
	}
}

func TestSlowSubscriberReceivesMissedMarker(t *testing.T) {
	b := New(4) // rounds up to 4
	sub := b.Subscribe()

	for i := 0; i < 10; i++ {
		b.Publish(Event{Kind: KindMessageSent, Payload: i})
	}

	_, missed, ok := sub.Next()
	if !ok {
		t.Fatalf("expected an event to be available")
	}
	if missed == 0 {
		t.Fatalf("expected a nonzero missed count after overwrite, got 0")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New(8)
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
}

func TestPendingCountsUnconsumedEvents(t *testing.T) {
	b := New(8)
	sub := b.Subscribe()
	b.Publish(Event{Kind: KindMessageSent})
	b.Publish(Event{Kind: KindMessageSent})
	if got := sub.Pending(); got != 2 {
		t.Fatalf("expected 2 pending events, got %d", got)
	}
	sub.Next()
	if got := sub.Pending(); got != 1 {
		t.Fatalf("expected 1 pending event after one Next, got %d", got)
	}
}
