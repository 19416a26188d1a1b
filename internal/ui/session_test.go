package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cymbal-labs/searchdemo/internal/state"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSessions(clock *fakeClock, idle time.Duration) *Sessions {
	return NewSessions(SessionOptions{
		Searcher:    &fakeSearcher{},
		Policy:      state.LatestSubmit,
		IdleTimeout: idle,
		Clock:       clock.Now,
	})
}

func TestSessionsGetOrCreate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	sessions := newTestSessions(clock, time.Minute)

	created := sessions.Create()
	_, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	assert.Equal(t, state.LatestSubmit, created.Store.Policy())

	again := sessions.GetOrCreate(created.ID)
	assert.Same(t, created, again)

	got, ok := sessions.Get(created.ID)
	require.True(t, ok)
	assert.Same(t, created, got)

	_, ok = sessions.Get("not-a-tab")
	assert.False(t, ok)

	fresh := sessions.GetOrCreate("not-a-tab")
	assert.NotEqual(t, "not-a-tab", fresh.ID)
	assert.Equal(t, 2, sessions.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	sessions := newTestSessions(&fakeClock{now: time.Now()}, 0)
	a := sessions.Create()
	b := sessions.Create()

	a.Query.Change("refund policy")
	require.NoError(t, a.Form.SetField(FieldPageSize, "4"))

	assert.Empty(t, b.Store.Query())
	v, ok := b.Form.Value(FieldPageSize)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestSessionsSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	sessions := newTestSessions(clock, 10*time.Minute)

	idle := sessions.Create()
	watched := sessions.Create()
	active := sessions.Create()

	unsubscribe := watched.Store.Subscribe(func(state.Snapshot) {})
	defer unsubscribe()

	clock.Advance(8 * time.Minute)
	_, ok := sessions.Get(active.ID)
	require.True(t, ok)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, sessions.Sweep())

	_, ok = sessions.Get(idle.ID)
	assert.False(t, ok, "idle session should be evicted")
	_, ok = sessions.Get(watched.ID)
	assert.True(t, ok, "a session with a live observer is kept")
	_, ok = sessions.Get(active.ID)
	assert.True(t, ok)
}

func TestSessionsSweepDisabled(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	sessions := newTestSessions(clock, 0)
	sessions.Create()

	clock.Advance(24 * time.Hour)
	assert.Zero(t, sessions.Sweep())
	assert.Equal(t, 1, sessions.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// returns immediately without an idle timeout
	sessions.Run(ctx)
}
