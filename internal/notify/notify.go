// Package notify delivers transient user-facing notifications.
package notify

import (
	"sync"
	"time"

	"kiln_dashboard/internal/logger"

	"github.com/google/uuid"
)

// Level matches the alert styles of the browser shell.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Danger  Level = "danger"
)

// Notifier raises a user-visible notification.
type Notifier interface {
	Notify(level Level, message string)
}

// Notification is one toast shown by the shell until it expires.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Toasts keeps auto-dismissing notifications and logs each one.
type Toasts struct {
	mu    sync.Mutex
	ttl   time.Duration
	items []Notification
	log   *logger.Logger
	now   func() time.Time
}

const defaultTTL = 5 * time.Second

// NewToasts returns a Notifier whose entries expire after ttl.
func NewToasts(ttl time.Duration, log *logger.Logger) *Toasts {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Toasts{ttl: ttl, log: logger.OrNop(log), now: time.Now}
}

// Notify records a new toast.
func (t *Toasts) Notify(level Level, message string) {
	now := t.now()
	t.mu.Lock()
	t.items = append(prune(t.items, now), Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(t.ttl),
	})
	t.mu.Unlock()

	if level == Danger {
		t.log.Warnw("notify", "level", level, "message", message)
		return
	}
	t.log.Debugw("notify", "level", level, "message", message)
}

// Active returns the toasts that have not yet been dismissed, oldest first.
func (t *Toasts) Active() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = prune(t.items, t.now())
	out := make([]Notification, len(t.items))
	copy(out, t.items)
	return out
}

func prune(items []Notification, now time.Time) []Notification {
	kept := items[:0]
	for _, n := range items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	return kept
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(Level, string) {}

// Recorder keeps every notification in memory. Used as a test double.
type Recorder struct {
	mu      sync.Mutex
	entries []Notification
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Notification{Level: level, Message: message})
}

// Entries returns a copy of what was recorded.
func (r *Recorder) Entries() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns how many notifications of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
