package event

import "testing"

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []any
	bus.Subscribe(TopicBufferChanged, func(_ Topic, payload any) {
		got = append(got, payload)
	})

	bus.Publish(TopicBufferChanged, 1)
	bus.Publish(TopicBufferChanged, 2)
	bus.Publish(TopicDocumentSaved, 3) // different topic

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe(TopicDocumentDirty, func(Topic, any) { calls++ })

	bus.Publish(TopicDocumentDirty, nil)
	bus.Unsubscribe(TopicDocumentDirty, id)
	bus.Publish(TopicDocumentDirty, nil)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestSubscriberOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	bus.Subscribe(TopicDocumentSaved, func(Topic, any) { order = append(order, 1) })
	bus.Subscribe(TopicDocumentSaved, func(Topic, any) { order = append(order, 2) })

	bus.Publish(TopicDocumentSaved, nil)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("got %v", order)
	}
}

func TestPanicIsolation(t *testing.T) {
	bus := NewBus()

	var panicked any
	bus.SetPanicHandler(func(_ Topic, v any, _ []byte) { panicked = v })

	reached := false
	bus.Subscribe(TopicFileChanged, func(Topic, any) { panic("boom") })
	bus.Subscribe(TopicFileChanged, func(Topic, any) { reached = true })

	bus.Publish(TopicFileChanged, nil)

	if panicked != "boom" {
		t.Errorf("panic handler got %v", panicked)
	}
	if !reached {
		t.Error("panic in one subscriber must not stop dispatch")
	}
}
