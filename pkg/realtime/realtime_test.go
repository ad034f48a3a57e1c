package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/toast"
)

const page = `<html><body><header><span class="notification-badge" style="display: none">0</span></header></body></html>`

type shown struct {
	mu    sync.Mutex
	items []string
}

func (s *shown) Show(message string, level toast.Type, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, string(level)+":"+message)
}

func (s *shown) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items...)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDoc(t *testing.T) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	return doc
}

func raw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestHandleMessage(t *testing.T) {
	doc := newDoc(t)
	notes := &shown{}
	var typing []Typing
	l := New(doc, "", notes, WithLogger(quiet()), WithTypingHandler(func(ty Typing) { typing = append(typing, ty) }))
	ctx := context.Background()

	l.HandleMessage(ctx, Envelope{Event: EventNotification, Data: raw(Notification{Content: "New answer", Type: "success"})})
	l.HandleMessage(ctx, Envelope{Event: EventNotification, Data: raw(Notification{Content: "Heads up"})})
	assert.Equal(t, []string{"success:New answer", "info:Heads up"}, notes.all())

	l.HandleMessage(ctx, Envelope{Event: EventUnreadCount, Data: raw(UnreadCount{Count: 3})})
	assert.Contains(t, doc.String(), `<span class="notification-badge" style="display: block">3</span>`)

	l.HandleMessage(ctx, Envelope{Event: EventUnreadCount, Data: raw(UnreadCount{Count: 0})})
	assert.Contains(t, doc.String(), `<span class="notification-badge" style="display: none">0</span>`)

	l.HandleMessage(ctx, Envelope{Event: EventUserTyping, Data: raw(Typing{Username: "ada", QuestionID: "9"})})
	require.Len(t, typing, 1)
	assert.Equal(t, "ada", typing[0].Username)

	l.HandleMessage(ctx, Envelope{Event: EventUnreadCount, Data: json.RawMessage(`"nope"`)})
	l.HandleMessage(ctx, Envelope{Event: "mystery"})
	assert.Len(t, notes.all(), 2)
}

func TestDisabledWithoutURL(t *testing.T) {
	l := New(newDoc(t), "", nil)
	assert.NoError(t, l.Run(context.Background()))
	assert.ErrorIs(t, l.MarkNotificationsRead(), ErrNotConnected)
}

// hub is a minimal realtime server for tests.
type hub struct {
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	received chan Envelope
}

func newHub() *hub {
	return &hub{conns: make(chan *websocket.Conn, 4), received: make(chan Envelope, 4)}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.conns <- conn
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		h.received <- env
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextConn(t *testing.T, h *hub) *websocket.Conn {
	t.Helper()
	select {
	case c := <-h.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not connect")
	}
	return nil
}

func TestRunReceivesAndEmits(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	doc := newDoc(t)
	notes := &shown{}
	l := New(doc, wsURL(srv), notes, WithLogger(quiet()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	conn := nextConn(t, h)
	require.NoError(t, conn.WriteJSON(Envelope{Event: EventUnreadCount, Data: raw(UnreadCount{Count: 5})}))
	require.NoError(t, conn.WriteJSON(Envelope{Event: EventNotification, Data: raw(Notification{Content: "ping", Type: "warning"})}))

	assert.Eventually(t, func() bool { return strings.Contains(doc.String(), ">5</span>") }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(notes.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "warning:ping", notes.all()[0])

	require.Eventually(t, l.Connected, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, l.MarkNotificationsRead())
	select {
	case env := <-h.received:
		assert.Equal(t, EventMarkNotificationsRead, env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive mark_notifications_read")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReconnects(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	l := New(newDoc(t), wsURL(srv), nil, WithLogger(quiet()), WithClock(clock), WithBackoff(time.Second, 4*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	first := nextConn(t, h)
	first.Close()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Second)

	second := nextConn(t, h)
	defer second.Close()
	assert.Eventually(t, l.Connected, 2*time.Second, 5*time.Millisecond)
}
