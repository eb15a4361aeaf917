// Package event provides a topic-based publish/subscribe bus used to
// fan out document lifecycle notifications: buffer changes, dirty
// state, saves, closes, and external file modifications.
package event

import (
	"runtime/debug"
	"sync"
)

// Topic names a category of events.
type Topic string

// Topics published by the core.
const (
	TopicBufferChanged  Topic = "buffer.changed"
	TopicDocumentDirty  Topic = "document.dirty"
	TopicDocumentSaving Topic = "document.saving"
	TopicDocumentSaved  Topic = "document.saved"
	TopicDocumentOpened Topic = "document.opened"
	TopicDocumentClosed Topic = "document.closed"
	TopicFileChanged    Topic = "file.changed.external"
	TopicFileRemoved    Topic = "file.removed.external"
	TopicSnapshotFailed Topic = "session.snapshot.failed"
)

// Handler receives published events for a topic.
type Handler func(topic Topic, payload any)

// PanicHandler is invoked when a subscriber panics. The bus recovers
// and keeps dispatching; a single faulty subscriber must not take down
// the session.
type PanicHandler func(topic Topic, panicValue any, stack []byte)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events synchronously on the publishing goroutine.
// Subscribe and Unsubscribe are safe for concurrent use.
type Bus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[Topic][]subscription
	onPanic PanicHandler
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// SetPanicHandler installs a handler for subscriber panics.
func (b *Bus) SetPanicHandler(fn PanicHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPanic = fn
}

// Subscribe registers a handler for a topic and returns a token for
// Unsubscribe.
func (b *Bus) Subscribe(topic Topic, fn Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[topic] = append(b.subs[topic], subscription{id: b.nextID, handler: fn})
	return b.nextID
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every subscriber of topic, in
// subscription order.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	subs := b.subs[topic]
	onPanic := b.onPanic
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(topic, payload, s.handler, onPanic)
	}
}

func (b *Bus) dispatch(topic Topic, payload any, fn Handler, onPanic PanicHandler) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(topic, r, debug.Stack())
		}
	}()
	fn(topic, payload)
}
