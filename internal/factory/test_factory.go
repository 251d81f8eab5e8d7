package factory

import (
	"time"

	"github.com/mcoot/doublesclub/internal/dependencies/mocks"
	"github.com/mcoot/doublesclub/internal/services/auth"
	"github.com/mcoot/doublesclub/internal/storage/memory"
	"github.com/mcoot/doublesclub/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockIDs    *mocks.MockIDGenerator
}

// NewTestApp creates an App configured for testing with mocked dependencies
// over in-memory storage
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockIDs := mocks.NewMockIDGenerator("id")

	app := newWithDependencies(store, mockClock, mockRandom, mockIDs, auth.DefaultConfig(), testutil.NopLogger())
	app.closer = store

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockIDs:    mockIDs,
	}
}
