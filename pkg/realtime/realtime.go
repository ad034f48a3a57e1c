// Package realtime listens on the backend's WebSocket channel and applies
// pushed events to the page: notifications become toasts, unread counts
// update the header badge.
//
// Every frame is a JSON envelope:
//
//	{"event": "unread_count", "data": {"count": 3}}
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/toast"
)

// Event names on the channel.
const (
	EventNotification          = "notification"
	EventUnreadCount           = "unread_count"
	EventUserTyping            = "user_typing"
	EventMarkNotificationsRead = "mark_notifications_read"
)

const badgeClass = "notification-badge"

// ErrNotConnected is returned by writes while no connection is open.
var ErrNotConnected = errors.New("realtime: not connected")

// Envelope is one frame on the channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Notification is the payload of a notification event.
type Notification struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// UnreadCount is the payload of an unread_count event.
type UnreadCount struct {
	Count int `json:"count"`
}

// Typing is the payload of a user_typing event.
type Typing struct {
	UserID     string `json:"user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
}

// Option configures a Listener.
type Option func(*Listener)

// WithDialer sets the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(l *Listener) { l.dialer = d }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Listener) { l.logger = log }
}

// WithClock sets the clock used for reconnect backoff.
func WithClock(c clockwork.Clock) Option {
	return func(l *Listener) { l.clock = c }
}

// WithBackoff sets the first and the largest reconnect delay.
func WithBackoff(first, limit time.Duration) Option {
	return func(l *Listener) {
		l.minBackoff = first
		l.maxBackoff = limit
	}
}

// WithTypingHandler receives user_typing events.
func WithTypingHandler(fn func(Typing)) Option {
	return func(l *Listener) { l.onTyping = fn }
}

// Listener owns the realtime connection for one page.
type Listener struct {
	url      string
	doc      *dom.Document
	notifier toast.Notifier
	dialer   *websocket.Dialer
	logger   *slog.Logger
	clock    clockwork.Clock
	onTyping func(Typing)

	minBackoff time.Duration
	maxBackoff time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a Listener for the ws:// or wss:// url. An empty url
// disables the listener.
func New(doc *dom.Document, url string, notifier toast.Notifier, opts ...Option) *Listener {
	l := &Listener{
		url:        url,
		doc:        doc,
		notifier:   notifier,
		dialer:     websocket.DefaultDialer,
		logger:     slog.Default(),
		clock:      clockwork.NewRealClock(),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run connects and processes events until ctx is done, reconnecting with
// exponential backoff when the connection fails or drops.
func (l *Listener) Run(ctx context.Context) error {
	if l.url == "" {
		return nil
	}
	backoff := l.minBackoff
	for {
		connected, err := l.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = l.minBackoff
		}
		l.logger.WarnContext(ctx, "realtime: connection lost", "url", l.url, "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

// session runs one connection to completion.
func (l *Listener) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	l.setConn(conn)
	defer l.setConn(nil)
	l.logger.InfoContext(ctx, "realtime: connected", "url", l.url)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		l.HandleMessage(ctx, env)
	}
}

func (l *Listener) setConn(c *websocket.Conn) {
	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()
}

// Connected reports whether a connection is open.
func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// HandleMessage applies one event to the page.
func (l *Listener) HandleMessage(ctx context.Context, env Envelope) {
	switch env.Event {
	case EventNotification:
		var n Notification
		if err := json.Unmarshal(env.Data, &n); err != nil {
			l.logger.WarnContext(ctx, "realtime: bad notification", "error", err)
			return
		}
		if l.notifier != nil {
			l.notifier.Show(n.Content, toast.ParseType(n.Type), 0)
		}
	case EventUnreadCount:
		var u UnreadCount
		if err := json.Unmarshal(env.Data, &u); err != nil {
			l.logger.WarnContext(ctx, "realtime: bad unread_count", "error", err)
			return
		}
		l.setUnreadCount(u.Count)
	case EventUserTyping:
		var ty Typing
		if err := json.Unmarshal(env.Data, &ty); err != nil {
			l.logger.WarnContext(ctx, "realtime: bad user_typing", "error", err)
			return
		}
		if l.onTyping != nil {
			l.onTyping(ty)
		} else {
			l.logger.DebugContext(ctx, "realtime: user typing", "user", ty.Username, "question_id", ty.QuestionID)
		}
	default:
		l.logger.DebugContext(ctx, "realtime: ignored event", "event", env.Event)
	}
}

func (l *Listener) setUnreadCount(count int) {
	l.doc.Update(func(root *html.Node) {
		badge := dom.QueryFirst(root, dom.ByClass(badgeClass))
		if badge == nil {
			return
		}
		dom.SetText(badge, strconv.Itoa(count))
		if count > 0 {
			dom.SetStyle(badge, "display", "block")
		} else {
			dom.SetStyle(badge, "display", "none")
		}
	})
}

// MarkNotificationsRead tells the backend the user has seen their
// notifications.
func (l *Listener) MarkNotificationsRead() error {
	return l.emit(Envelope{Event: EventMarkNotificationsRead})
}

func (l *Listener) emit(env Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return ErrNotConnected
	}
	return l.conn.WriteJSON(env)
}
