package admin

import "testing"

func TestBroadcasterFansOutToAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	a := b.Subscribe()
	c := b.Subscribe()
	defer b.Unsubscribe(a)
	defer b.Unsubscribe(c)

	b.OnFlush("1000", 42)

	for _, ch := range []chan Event{a, c} {
		select {
		case ev := <-ch:
			if ev.Type != "flush" || ev.RunID != "1000" || ev.Entries != 42 {
				t.Fatalf("got %+v, want flush run_id=1000 entries=42", ev)
			}
		default:
			t.Fatal("expected event on subscriber channel")
		}
	}
}

func TestBroadcasterOnMerge(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.OnMerge("1000", "2000", "3000")

	ev := <-sub
	if ev.Type != "merge" || ev.OldID != "1000" || ev.NewID != "2000" || ev.MergedID != "3000" {
		t.Fatalf("got %+v, want merge 1000+2000->3000", ev)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	// Fill the subscriber's buffer, then publish well past capacity;
	// OnFlush must never block regardless of a stalled reader.
	for i := 0; i < 100; i++ {
		b.OnFlush("x", i)
	}
}
