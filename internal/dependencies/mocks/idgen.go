package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/doublesclub/internal/dependencies/idgen"
)

// MockIDGenerator returns queued ids first, then "<prefix>-<n>" sequentially
type MockIDGenerator struct {
	mu     sync.Mutex
	prefix string
	queue  []string
	next   int
}

// Ensure MockIDGenerator implements Generator
var _ idgen.Generator = (*MockIDGenerator)(nil)

// NewMockIDGenerator creates a generator producing "<prefix>-1", "<prefix>-2", ...
func NewMockIDGenerator(prefix string) *MockIDGenerator {
	return &MockIDGenerator{prefix: prefix}
}

// NewID returns the next id
func (g *MockIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) > 0 {
		id := g.queue[0]
		g.queue = g.queue[1:]
		return id
	}
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}

// QueueIDs adds ids returned before the sequential ones
func (g *MockIDGenerator) QueueIDs(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, ids...)
}
