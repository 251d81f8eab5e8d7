package notify

import (
	"log/slog"
	"sync"

	"github.com/mcoot/doublesclub/internal/dependencies/clock"
	"github.com/mcoot/doublesclub/internal/model"
)

// Sink receives fire-and-forget user notifications
type Sink interface {
	Notify(message string, level model.NotificationLevel)
}

// LogSink writes notifications to a structured logger
type LogSink struct {
	logger *slog.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a LogSink
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With(slog.String("component", "notify"))}
}

// Notify logs the message at a level matching the notification
func (s *LogSink) Notify(message string, level model.NotificationLevel) {
	attr := slog.String("level_name", string(level))
	switch level {
	case model.LevelError:
		s.logger.Error(message, attr)
	case model.LevelWarning:
		s.logger.Warn(message, attr)
	default:
		s.logger.Info(message, attr)
	}
}

// DefaultInboxSize is the number of notifications an Inbox retains
const DefaultInboxSize = 50

// Inbox is a bounded queue of notifications for one client session. When
// full the oldest notification is dropped.
type Inbox struct {
	clock clock.Clock
	size  int

	mu    sync.Mutex
	items []model.Notification
}

var _ Sink = (*Inbox)(nil)

// NewInbox creates an Inbox holding at most size notifications
func NewInbox(clock clock.Clock, size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{clock: clock, size: size}
}

// Notify queues a notification
func (i *Inbox) Notify(message string, level model.NotificationLevel) {
	n := model.Notification{Message: message, Level: level, CreatedAt: i.clock.Now()}

	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.items) >= i.size {
		i.items = i.items[len(i.items)-i.size+1:]
	}
	i.items = append(i.items, n)
}

// Drain returns queued notifications oldest first and empties the inbox
func (i *Inbox) Drain() []model.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		out = []model.Notification{}
	}
	return out
}

// Len returns the number of queued notifications
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

// Multi fans a notification out to several sinks
type Multi []Sink

var _ Sink = Multi(nil)

// Notify forwards to every sink
func (m Multi) Notify(message string, level model.NotificationLevel) {
	for _, s := range m {
		if s != nil {
			s.Notify(message, level)
		}
	}
}

// Discard drops every notification
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(string, model.NotificationLevel) {}
