package logstream

import (
	"fmt"
	"testing"
	"time"
)

func TestBroadcaster_SubscriberReceivesAllInOrder(t *testing.T) {
	b := New(100, nil)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		b.Emit(LevelInfo, "entry %d", i)
	}

	for i := 0; i < 5; i++ {
		select {
		case entry := <-sub.C():
			expected := fmt.Sprintf("entry %d", i)
			if entry.Message != expected {
				t.Errorf("Expected %q, got %q", expected, entry.Message)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for entry %d", i)
		}
	}
}

func TestBroadcaster_SubscribeReplaysRing(t *testing.T) {
	b := New(100, nil)

	b.Emit(LevelInfo, "before one")
	b.Emit(LevelWarning, "before two")

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	first := <-sub.C()
	second := <-sub.C()
	if first.Message != "before one" || second.Message != "before two" {
		t.Errorf("Replay out of order: %q, %q", first.Message, second.Message)
	}

	b.Emit(LevelSuccess, "after")
	third := <-sub.C()
	if third.Message != "after" {
		t.Errorf("Expected live entry after replay, got %q", third.Message)
	}
}

func TestBroadcaster_RingDropsOldest(t *testing.T) {
	b := New(3, nil)

	for i := 0; i < 5; i++ {
		b.Emit(LevelInfo, "entry %d", i)
	}

	entries := b.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 retained entries, got %d", len(entries))
	}
	if entries[0].Message != "entry 2" || entries[2].Message != "entry 4" {
		t.Errorf("Wrong entries retained: %q .. %q", entries[0].Message, entries[2].Message)
	}
}

func TestBroadcaster_EmitWithoutSubscribers(t *testing.T) {
	b := New(10, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Emit(LevelInfo, "entry %d", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked with no subscribers")
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlockEmit(t *testing.T) {
	b := New(1, nil)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	// Never drain the subscriber; emits must still complete.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			b.Emit(LevelInfo, "entry %d", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}

	// The subscriber queue is bounded, so some entries were dropped for it.
	received := 0
	for {
		select {
		case <-sub.C():
			received++
			continue
		default:
		}
		break
	}
	if received >= 500 {
		t.Errorf("Expected drops for the slow subscriber, received %d", received)
	}
}

func TestBroadcaster_UnsubscribeIdempotent(t *testing.T) {
	b := New(10, nil)
	sub := b.Subscribe()

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)

	if b.SubscriberCount() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", b.SubscriberCount())
	}

	// The channel is closed after unsubscribe.
	if _, open := <-sub.C(); open {
		t.Error("Expected closed channel after unsubscribe")
	}

	// Emits after unsubscribe must not panic.
	b.Emit(LevelInfo, "after unsubscribe")
}

func TestBroadcaster_Clear(t *testing.T) {
	b := New(10, nil)

	b.Emit(LevelInfo, "one")
	b.Emit(LevelInfo, "two")

	if count := b.Clear(); count != 2 {
		t.Errorf("Expected 2 cleared, got %d", count)
	}
	if b.Len() != 0 {
		t.Errorf("Expected empty ring after clear, got %d", b.Len())
	}
}

func TestBroadcaster_ConcurrentEmitAndSubscribe(t *testing.T) {
	b := New(50, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Emit(LevelInfo, "entry %d", i)
		}
		close(done)
	}()

	for i := 0; i < 20; i++ {
		sub := b.Subscribe()
		b.Unsubscribe(sub)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Concurrent emit and subscribe deadlocked")
	}
}
