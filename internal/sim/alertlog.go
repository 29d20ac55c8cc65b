package sim

import (
	"sync"

	"github.com/tunnelwatch/engine/pkg/core"
)

// DefaultAlertLogCapacity is the number of alerts the operator log retains.
const DefaultAlertLogCapacity = 5

// AlertLog is a bounded, most-recent-first buffer of emitted alerts. Older
// entries are evicted when the capacity is exceeded; entries are never
// removed individually, only bulk-cleared on reset.
type AlertLog struct {
	mu       sync.Mutex
	capacity int
	entries  []core.Alert
}

// NewAlertLog creates an alert log. A capacity <= 0 falls back to the
// default.
func NewAlertLog(capacity int) *AlertLog {
	if capacity <= 0 {
		capacity = DefaultAlertLogCapacity
	}
	return &AlertLog{
		capacity: capacity,
		entries:  make([]core.Alert, 0, capacity),
	}
}

// Append inserts an alert at the front and truncates to capacity.
func (l *AlertLog) Append(a core.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]core.Alert{a}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

// All returns the entries in most-recent-first order. The returned slice is
// a copy; callers cannot mutate the log through it.
func (l *AlertLog) All() []core.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Alert, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained alerts.
func (l *AlertLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the log.
func (l *AlertLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
