package logstream

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"anprserver/internal/logger"

	"github.com/google/uuid"
)

// Severity levels for operational log entries.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// KeepaliveInterval is how long a live stream may stay silent before the
// transport sends a synthetic keepalive.
const KeepaliveInterval = 30 * time.Second

// Entry is one immutable operational log event.
type Entry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// MarshalJSON emits both the short display time and the full timestamp.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp     string `json:"timestamp"`
		FullTimestamp string `json:"full_timestamp"`
		Level         string `json:"level"`
		Message       string `json:"message"`
	}{
		Timestamp:     e.Timestamp.Format("15:04:05"),
		FullTimestamp: e.Timestamp.Format(time.RFC3339),
		Level:         e.Level,
		Message:       e.Message,
	})
}

// StreamLine renders an entry in the wire framing used by the SSE endpoint.
func (e Entry) StreamLine() string {
	return fmt.Sprintf("%s|%s|%s", e.Timestamp.Format("15:04:05"), e.Level, e.Message)
}

// Subscription is an owned handle to a live log feed. Entries arrive on C()
// starting with a replay of the ring at subscribe time.
type Subscription struct {
	id string
	ch chan Entry
}

// C returns the channel live entries are delivered on.
func (s *Subscription) C() <-chan Entry {
	return s.ch
}

// Broadcaster keeps a bounded ring of operational events and fans them out
// live. Delivery to a subscriber is non-blocking: a full subscriber queue
// drops the entry for that subscriber only, never stalling Emit.
type Broadcaster struct {
	mu          sync.RWMutex
	entries     []Entry
	capacity    int
	subscribers map[string]*Subscription
	logger      *logger.Logger
}

// New creates a Broadcaster retaining at most capacity entries. Events are
// mirrored into the file logger so on-disk logs and the live stream agree.
func New(capacity int, log *logger.Logger) *Broadcaster {
	if capacity <= 0 {
		capacity = 500
	}
	return &Broadcaster{
		capacity:    capacity,
		subscribers: make(map[string]*Subscription),
		logger:      log,
	}
}

// Emit appends a formatted entry to the ring, dropping the oldest entry on
// overflow, and pushes a copy to every subscriber.
func (b *Broadcaster) Emit(level, format string, v ...interface{}) {
	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, v...),
	}

	b.mu.Lock()
	b.entries = append(b.entries, entry)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity:]
	}
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- entry:
		default:
			// Slow subscriber, drop for this one only.
		}
	}
	b.mu.Unlock()

	b.mirror(entry)
}

// Subscribe registers a new subscriber. Its channel is pre-filled with the
// ring's current contents, then receives new entries as they are emitted.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id: uuid.NewString(),
		ch: make(chan Entry, b.capacity+64),
	}
	for _, entry := range b.entries {
		sub.ch <- entry
	}
	b.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call more
// than once and concurrently with in-flight emits.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub.id]; !ok {
		return
	}
	delete(b.subscribers, sub.id)
	close(sub.ch)
}

// Entries returns a snapshot of the ring, oldest first.
func (b *Broadcaster) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := make([]Entry, len(b.entries))
	copy(snapshot, b.entries)
	return snapshot
}

// Len returns the number of retained entries.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Capacity returns the ring capacity.
func (b *Broadcaster) Capacity() int {
	return b.capacity
}

// Clear empties the ring and returns how many entries were removed.
// Subscribers are unaffected.
func (b *Broadcaster) Clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := len(b.entries)
	b.entries = b.entries[:0]
	return count
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) mirror(entry Entry) {
	if b.logger == nil {
		return
	}
	switch entry.Level {
	case LevelWarning:
		b.logger.Warning("%s", entry.Message)
	case LevelError:
		b.logger.Error("%s", entry.Message)
	default:
		b.logger.Info("%s", entry.Message)
	}
}
