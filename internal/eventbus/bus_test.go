package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 10)
	bus.Subscribe("job.completed", received)

	bus.Publish(Event{
		Kind:   "job.completed",
		JobID:  "job-100",
		Status: "done",
		At:     time.Now(),
		Data:   map[string]string{"repo": "https://example.com/a.git"},
	})

	select {
	case evt := <-received:
		if evt.Kind != "job.completed" {
			t.Errorf("expected job.completed, got %s", evt.Kind)
		}
		if evt.JobID != "job-100" {
			t.Errorf("expected job-100, got %s", evt.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := make(chan Event, 10)
	ch2 := make(chan Event, 10)
	bus.Subscribe("job.completed", ch1)
	bus.Subscribe("job.completed", ch2)

	bus.Publish(Event{Kind: "job.completed", JobID: "1"})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_KindFiltering(t *testing.T) {
	bus := New()
	defer bus.Close()

	completedCh := make(chan Event, 10)
	failedCh := make(chan Event, 10)
	bus.Subscribe("job.completed", completedCh)
	bus.Subscribe("job.failed", failedCh)

	bus.Publish(Event{Kind: "job.completed", JobID: "1"})

	select {
	case <-completedCh:
	case <-time.After(time.Second):
		t.Fatal("completed subscriber did not receive event")
	}

	select {
	case <-failedCh:
		t.Fatal("failed subscriber should NOT receive job.completed event")
	case <-time.After(50 * time.Millisecond):
		// good
	}
}

func TestBus_PublishBatch(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 100)
	bus.Subscribe("job.progress", received)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish(Event{Kind: "job.progress", JobID: "batch"})
		}(i)
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	if len(received) != 50 {
		t.Errorf("expected 50 events, got %d", len(received))
	}
}
