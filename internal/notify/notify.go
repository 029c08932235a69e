// Package notify collects the transient toasts raised by the sequencer.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

const (
	SuccessMessage = "Transaction completed."

	SuccessDuration = 2 * time.Second
	ErrorDuration   = 6 * time.Second

	defaultLimit = 32
)

// Notifier receives user-facing outcomes.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Notification struct {
	Level    Level         `json:"level"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// Expired reports whether the toast is no longer shown at now.
func (n Notification) Expired(now time.Time) bool {
	return now.After(n.At.Add(n.Duration))
}

// Feed is a bounded in-memory Notifier. The oldest entry is dropped when the
// feed is full.
type Feed struct {
	mu     sync.Mutex
	logger *slog.Logger
	items  []Notification
	limit  int
	now    func() time.Time
}

func NewFeed(logger *slog.Logger, limit int) *Feed {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Feed{logger: logger, limit: limit, now: time.Now}
}

func (f *Feed) Success(msg string) {
	f.logger.Info("notification", "level", LevelSuccess, "message", msg)
	f.push(Notification{Level: LevelSuccess, Message: msg, Duration: SuccessDuration})
}

func (f *Feed) Error(msg string) {
	f.logger.Warn("notification", "level", LevelError, "message", msg)
	f.push(Notification{Level: LevelError, Message: msg, Duration: ErrorDuration})
}

func (f *Feed) push(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.At = f.now()
	if len(f.items) == f.limit {
		copy(f.items, f.items[1:])
		f.items = f.items[:len(f.items)-1]
	}
	f.items = append(f.items, n)
}

// Drain returns every queued notification, oldest first, and empties the
// feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Active returns the notifications still on screen without consuming them.
func (f *Feed) Active() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	out := make([]Notification, 0, len(f.items))
	for _, n := range f.items {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}
