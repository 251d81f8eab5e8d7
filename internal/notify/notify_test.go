package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/doublesclub/internal/dependencies/mocks"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/testutil"
)

func TestInboxDrain(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	inbox := NewInbox(clk, 10)

	inbox.Notify("saved", model.LevelSuccess)
	clk.Advance(time.Second)
	inbox.Notify("failed", model.LevelError)

	got := inbox.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "saved", got[0].Message)
	assert.Equal(t, model.LevelError, got[1].Level)
	assert.Equal(t, clk.Now(), got[1].CreatedAt)

	assert.Empty(t, inbox.Drain())
	assert.NotNil(t, inbox.Drain())
}

func TestInboxDropsOldest(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	inbox := NewInbox(clk, 2)

	inbox.Notify("one", model.LevelInfo)
	inbox.Notify("two", model.LevelInfo)
	inbox.Notify("three", model.LevelInfo)

	assert.Equal(t, 2, inbox.Len())
	got := inbox.Drain()
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, "three", got[1].Message)
}

func TestMultiForwardsToEverySink(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	a := NewInbox(clk, 5)
	b := NewInbox(clk, 5)

	Multi{a, nil, b, NewLogSink(testutil.NopLogger()), Discard}.Notify("hello", model.LevelWarning)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}
