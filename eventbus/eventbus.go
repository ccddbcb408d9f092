// Package eventbus is a shared publish/subscribe mailbox for cross-component notifications.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

type Kind string

const (
	Logout             Kind = "logout"
	Refresh            Kind = "refresh"
	Navigate           Kind = "navigate"
	DietUploaded       Kind = "diet.uploaded"
	UserDeleted        Kind = "user.deleted"
	RoleChanged        Kind = "user.role_changed"
	InvitationCreated  Kind = "invitation.created"
	InvitationRevoked  Kind = "invitation.revoked"
	InvitationAccepted Kind = "invitation.accepted"
)

type Event struct {
	Kind    Kind
	ActorID string
	UserID  string
	Target  string
	Data    map[string]string
}

type Handler func(ctx context.Context, e Event)

type stream struct {
	ch chan Event
}

type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	streams  map[int]*stream
	dropped  atomic.Int64
}

func New() *Bus {
	return &Bus{
		handlers: make(map[int]Handler),
		streams:  make(map[int]*stream),
	}
}

// Subscribe registers a handler called synchronously on every Publish.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Stream returns a buffered channel receiving every published event. The channel is
// closed by unsubscribe. Events that don't fit in the buffer are dropped.
func (b *Bus) Stream(buffer int) (<-chan Event, func()) {
	s := &stream{ch: make(chan Event, buffer)}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.streams[id] = s
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.streams, id)
			close(s.ch)
			b.mu.Unlock()
		})
	}
}

// Publish never blocks on stream subscribers; handlers run in the caller's goroutine.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	for _, s := range b.streams {
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
}

// Dropped reports how many stream deliveries were skipped because a buffer was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
