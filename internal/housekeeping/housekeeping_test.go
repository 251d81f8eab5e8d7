package housekeeping

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/doublesclub/internal/testutil"
)

type countingCleaner struct {
	hubCalls     atomic.Int32
	sessionCalls atomic.Int32
}

func (c *countingCleaner) CleanupEmptyHubs() int {
	c.hubCalls.Add(1)
	return 1
}

func (c *countingCleaner) CleanExpiredSessions() int {
	c.sessionCalls.Add(1)
	return 0
}

func TestSchedulerRunsJobs(t *testing.T) {
	cleaner := &countingCleaner{}
	s, err := New(Config{
		HubCleanupInterval:     20 * time.Millisecond,
		SessionCleanupInterval: 20 * time.Millisecond,
	}, cleaner, cleaner, testutil.NopLogger())
	require.NoError(t, err)

	s.Start()
	defer func() { assert.NoError(t, s.Shutdown()) }()

	require.Eventually(t, func() bool {
		return cleaner.hubCalls.Load() >= 2 && cleaner.sessionCalls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerWithoutStartDoesNothing(t *testing.T) {
	cleaner := &countingCleaner{}
	s, err := New(Config{HubCleanupInterval: 10 * time.Millisecond}, cleaner, nil, testutil.NopLogger())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, cleaner.hubCalls.Load())
	_ = s.Shutdown()
}
