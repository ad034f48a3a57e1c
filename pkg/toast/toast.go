package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// EventName is the realtime event name that carries a toast.
const EventName = "notification"

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 5 * time.Second

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// ParseType maps a wire level to a Type. Unknown levels become TypeInfo.
func ParseType(s string) Type {
	switch Type(s) {
	case TypeSuccess, TypeError, TypeWarning, TypeInfo:
		return Type(s)
	}
	return TypeInfo
}

// Notifier is the notification surface consumed by other components. A
// non-positive duration selects the notifier's default.
type Notifier interface {
	Show(message string, level Type, duration time.Duration)
}

// Notification is one visible toast.
type Notification struct {
	ID        string
	Message   string
	Level     Type
	CreatedAt time.Time
}

// Sink observes the list of visible notifications. Calls are serialized
// and Removed never precedes the matching Added. Sink methods must not
// call back into the Manager.
type Sink interface {
	Added(n Notification)
	Removed(id string)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for auto-removal.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithSink sets the observer of notification changes.
func WithSink(sink Sink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithDefaultDuration sets the lifetime used when Show gets a
// non-positive duration.
func WithDefaultDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.duration = d
		}
	}
}

// Manager tracks visible notifications and expires them.
type Manager struct {
	clock    clockwork.Clock
	sink     Sink
	duration time.Duration

	// sinkMu orders sink calls; mu guards the state below.
	sinkMu sync.Mutex

	mu     sync.Mutex
	active []Notification
	timers map[string]clockwork.Timer
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clock:    clockwork.NewRealClock(),
		duration: DefaultDuration,
		timers:   make(map[string]clockwork.Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Show displays a notification and schedules its removal. A non-positive
// duration uses the manager's default.
func (m *Manager) Show(message string, level Type, duration time.Duration) {
	m.Push(message, level, duration)
}

// Push is Show returning the created notification.
func (m *Manager) Push(message string, level Type, duration time.Duration) Notification {
	if duration <= 0 {
		duration = m.duration
	}
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Level:     level,
		CreatedAt: m.clock.Now(),
	}

	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()

	m.mu.Lock()
	m.active = append(m.active, n)
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.Added(n)
	}

	// The timer is armed only once the sink has the notification.
	m.mu.Lock()
	m.timers[n.ID] = m.clock.AfterFunc(duration, func() { m.Remove(n.ID) })
	m.mu.Unlock()
	return n
}

// Remove dismisses a notification. Unknown IDs are ignored.
func (m *Manager) Remove(id string) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()

	m.mu.Lock()
	idx := -1
	for i, n := range m.active {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	m.active = append(m.active[:idx], m.active[idx+1:]...)
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.Removed(id)
	}
}

// Active returns the visible notifications, oldest first.
func (m *Manager) Active() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.active))
	copy(out, m.active)
	return out
}

// Success shows a success toast.
//
//	toast.Success(n, "Changes saved!")
func Success(n Notifier, message string) {
	n.Show(message, TypeSuccess, 0)
}

// Error shows an error toast.
//
//	toast.Error(n, "Failed to delete item")
func Error(n Notifier, message string) {
	n.Show(message, TypeError, 0)
}

// Warning shows a warning toast.
func Warning(n Notifier, message string) {
	n.Show(message, TypeWarning, 0)
}

// Info shows an info toast.
func Info(n Notifier, message string) {
	n.Show(message, TypeInfo, 0)
}
