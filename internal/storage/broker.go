package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcoot/doublesclub/internal/model"
)

// Broker fans snapshots out to subscribers. Each subscriber has its own
// delivery goroutine, so a slow callback never blocks a publisher; while a
// callback runs, newer snapshots replace older undelivered ones.
type Broker struct {
	mu     sync.Mutex
	subs   map[model.Collection]map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	fn SnapshotFunc

	mu      sync.Mutex
	pending *model.Snapshot
	signal  chan struct{}

	done     chan struct{}
	stopOnce sync.Once
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[model.Collection]map[int]*subscriber),
	}
}

// ValidateCollection returns a validation error for unknown collections
func ValidateCollection(c model.Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: unknown collection %q", model.ErrValidation, c)
	}
	return nil
}

// Subscribe registers fn for collection and queues initial as its first
// delivery. The subscription ends when the returned func is called, when ctx
// is cancelled, or when the broker is closed.
func (b *Broker) Subscribe(ctx context.Context, collection model.Collection, fn SnapshotFunc, initial model.Snapshot) func() {
	sub := &subscriber{
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	sub.offer(initial)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.stop()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[int]*subscriber)
	}
	b.subs[collection][id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if b.subs != nil {
			delete(b.subs[collection], id)
		}
		b.mu.Unlock()
		sub.stop()
	}
	go sub.run(ctx, unsubscribe)

	return unsubscribe
}

// Publish hands snap to every subscriber of its collection without blocking
func (b *Broker) Publish(snap model.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[snap.Collection] {
		sub.offer(snap.Clone())
	}
}

// HasSubscribers reports whether anyone listens on collection
func (b *Broker) HasSubscribers(collection model.Collection) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[collection]) > 0
}

// Close ends every subscription
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.stop()
		}
	}
	b.subs = nil
}

func (s *subscriber) offer(snap model.Snapshot) {
	s.mu.Lock()
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() (model.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return model.Snapshot{}, false
	}
	snap := *s.pending
	s.pending = nil
	return snap, true
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscriber) run(ctx context.Context, unsubscribe func()) {
	for {
		select {
		case <-ctx.Done():
			unsubscribe()
			return
		case <-s.done:
			return
		case <-s.signal:
			if snap, ok := s.take(); ok {
				s.fn(snap)
			}
		}
	}
}
