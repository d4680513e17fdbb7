package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	events, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := ScanEvent{RegNo: "24PA001", Name: "Asha", Status: "IN", Time: "09:01:12"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestInMemoryPublishHonoursCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := q.Publish(ctx, ScanEvent{RegNo: "a"}); err != nil {
		t.Fatal(err)
	}
	cancel()
	// The buffer is full and nobody consumes; the publish must not block.
	if err := q.Publish(ctx, ScanEvent{RegNo: "b"}); err == nil {
		t.Fatal("publish on cancelled context should fail")
	}
}
