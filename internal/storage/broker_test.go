package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/doublesclub/internal/model"
)

type recorder struct {
	mu    sync.Mutex
	snaps []model.Snapshot
}

func (r *recorder) record(snap model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recorder) last() (model.Snapshot, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return model.Snapshot{}, 0
	}
	return r.snaps[len(r.snaps)-1], len(r.snaps)
}

func clubSnapshot(names ...string) model.Snapshot {
	snap := model.Snapshot{Collection: model.CollectionClubs, Clubs: []*model.Club{}}
	for _, n := range names {
		snap.Clubs = append(snap.Clubs, &model.Club{ID: model.ClubID(n), Name: n})
	}
	return snap
}

func TestBrokerDeliversInitialSnapshot(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	rec := &recorder{}

	unsub := b.Subscribe(context.Background(), model.CollectionClubs, rec.record, clubSnapshot("a"))
	defer unsub()

	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	snap, _ := rec.last()
	assert.Equal(t, 1, snap.Len())
}

func TestBrokerPublishesLatestSnapshot(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	rec := &recorder{}

	unsub := b.Subscribe(context.Background(), model.CollectionClubs, rec.record, clubSnapshot())
	defer unsub()

	b.Publish(clubSnapshot("a"))
	b.Publish(clubSnapshot("a", "b"))
	b.Publish(clubSnapshot("a", "b", "c"))

	require.Eventually(t, func() bool {
		snap, _ := rec.last()
		return snap.Len() == 3
	}, time.Second, 5*time.Millisecond)
}

func TestBrokerFiltersByCollection(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	assert.False(t, b.HasSubscribers(model.CollectionUsers))
	unsub := b.Subscribe(context.Background(), model.CollectionClubs, func(model.Snapshot) {}, clubSnapshot())

	assert.True(t, b.HasSubscribers(model.CollectionClubs))
	assert.False(t, b.HasSubscribers(model.CollectionUsers))

	unsub()
	assert.False(t, b.HasSubscribers(model.CollectionClubs))
}

func TestBrokerSubscribersReceiveIndependentCopies(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	first, second := &recorder{}, &recorder{}

	unsub1 := b.Subscribe(context.Background(), model.CollectionClubs, first.record, clubSnapshot())
	defer unsub1()
	unsub2 := b.Subscribe(context.Background(), model.CollectionClubs, second.record, clubSnapshot())
	defer unsub2()

	b.Publish(clubSnapshot("a"))

	require.Eventually(t, func() bool {
		s1, _ := first.last()
		s2, _ := second.last()
		return s1.Len() == 1 && s2.Len() == 1
	}, time.Second, 5*time.Millisecond)

	s1, _ := first.last()
	s2, _ := second.last()
	s1.Clubs[0].Name = "changed"
	assert.Equal(t, "a", s2.Clubs[0].Name)
}

func TestBrokerContextCancelUnsubscribes(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())

	b.Subscribe(ctx, model.CollectionClubs, func(model.Snapshot) {}, clubSnapshot())
	require.True(t, b.HasSubscribers(model.CollectionClubs))

	cancel()
	require.Eventually(t, func() bool {
		return !b.HasSubscribers(model.CollectionClubs)
	}, time.Second, 5*time.Millisecond)
}

func TestBrokerCloseStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Close()

	unsub := b.Subscribe(context.Background(), model.CollectionClubs, func(model.Snapshot) {}, clubSnapshot())
	unsub()
	assert.False(t, b.HasSubscribers(model.CollectionClubs))
}

func TestValidateCollection(t *testing.T) {
	assert.NoError(t, ValidateCollection(model.CollectionUsers))
	assert.ErrorIs(t, ValidateCollection("games"), model.ErrValidation)
}
