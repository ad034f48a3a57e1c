package qaglue_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue"
	"github.com/qaplatform/qaglue/internal/config"
	"github.com/qaplatform/qaglue/internal/devserver"
	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/pref"
	"github.com/qaplatform/qaglue/pkg/theme"
	"github.com/qaplatform/qaglue/pkg/vote"
)

const csrfToken = "page-token"

const page = `<!DOCTYPE html>
<html data-theme="light"><head>
<meta name="csrf-token" content="page-token">
</head><body>
<nav>
  <button class="theme-toggle"><span class="theme-icon">🌙</span></button>
  <span class="notification-badge" style="display: none">0</span>
</nav>
<div class="search-container"><input class="search-input" name="q"></div>
<div class="card question-card">
  <div class="vote-controls">
    <button class="vote-btn" data-item-type="question" data-item-id="1" data-value="1">▲</button>
    <span class="vote-count">0</span>
    <button class="vote-btn" data-item-type="question" data-item-id="1" data-value="-1">▼</button>
  </div>
  <pre><code class="language-go">package main</code></pre>
  <a href="https://example.com/docs">docs</a>
</div>
<form>
  <input name="title">
  <textarea name="content"></textarea>
  <input name="tags">
</form>
<div class="dashboard"><span data-stat="votes.total">-</span><span data-stat="questions.total">-</span></div>
</body></html>`

type fixture struct {
	app    *qaglue.App
	doc    *dom.Document
	clock  *clockwork.FakeClock
	server *devserver.Server
	url    string
}

func newFixture(t *testing.T, mutate func(*config.Config), opts ...qaglue.Option) *fixture {
	t.Helper()
	srv := devserver.New(devserver.NewMemoryStore(),
		devserver.WithCSRFToken(csrfToken),
		devserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := config.New()
	cfg.BaseURL = ts.URL
	if mutate != nil {
		mutate(cfg)
	}

	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	opts = append([]qaglue.Option{
		qaglue.WithClock(clock),
		qaglue.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	app, err := qaglue.New(doc, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &fixture{app: app, doc: doc, clock: clock, server: srv, url: ts.URL}
}

func (f *fixture) find(m dom.Matcher) *html.Node {
	var n *html.Node
	f.doc.View(func(root *html.Node) { n = dom.QueryFirst(root, m) })
	return n
}

func (f *fixture) text(m dom.Matcher) string {
	var s string
	f.doc.View(func(root *html.Node) { s = dom.Text(dom.QueryFirst(root, m)) })
	return s
}

func (f *fixture) hasClass(m dom.Matcher, class string) bool {
	var ok bool
	f.doc.View(func(root *html.Node) { ok = dom.HasClass(dom.QueryFirst(root, m), class) })
	return ok
}

var (
	upButton   = dom.And(dom.ByClass("vote-btn"), dom.ByData("value", "1"))
	downButton = dom.And(dom.ByClass("vote-btn"), dom.ByData("value", "-1"))
	score      = dom.ByClass("vote-count")
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	cfg := config.New()
	cfg.Vote.InFlight = "whenever"

	_, err = qaglue.New(doc, cfg)
	assert.Error(t, err)
}

func TestVoteRoundTrip(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, nil, qaglue.WithRegistry(reg))
	ctx := context.Background()

	require.True(t, f.app.Dispatch(ctx, dom.Click(f.find(upButton))))
	f.app.Wait()
	assert.Equal(t, "1", f.text(score))
	assert.True(t, f.hasClass(upButton, "active"))

	require.True(t, f.app.Dispatch(ctx, dom.Click(f.find(downButton))))
	f.app.Wait()
	assert.Equal(t, "-1", f.text(score))
	assert.False(t, f.hasClass(upButton, "active"))
	assert.True(t, f.hasClass(downButton, "active"))

	require.True(t, f.app.Dispatch(ctx, dom.Click(f.find(downButton))))
	f.app.Wait()
	assert.Equal(t, "0", f.text(score))
	assert.False(t, f.hasClass(downButton, "active"))

	state, ok := f.app.Votes().State(vote.Target{ItemType: "question", ItemID: "1"})
	require.True(t, ok)
	assert.Equal(t, vote.None, state.Direction)
	assert.Equal(t, 3, testutil.CollectAndCount(reg, "qaglue_vote_clicks_total"))
}

func TestVoteFailureShowsClosableToast(t *testing.T) {
	f := newFixture(t, nil)
	f.doc.Update(func(root *html.Node) {
		dom.SetAttr(dom.QueryFirst(root, dom.ByTag("meta")), "content", "stale")
	})
	ctx := context.Background()

	f.app.Dispatch(ctx, dom.Click(f.find(upButton)))
	f.app.Wait()

	assert.Equal(t, "0", f.text(score), "score is untouched on failure")
	assert.True(t, f.hasClass(upButton, "active"), "no rollback by default")
	require.Len(t, f.app.Toasts().Active(), 1)
	assert.Contains(t, f.text(dom.ByClass("notification")), vote.FailureMessage)
	assert.True(t, f.hasClass(dom.ByClass("notification"), "error"))

	require.True(t, f.app.Dispatch(ctx, dom.Click(f.find(dom.ByClass("notification-close")))))
	assert.Empty(t, f.app.Toasts().Active())
	assert.Nil(t, f.find(dom.ByClass("notification")))
}

func TestVoteFailureRollsBackWhenConfigured(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Vote.Rollback = true })
	f.doc.Update(func(root *html.Node) {
		dom.SetAttr(dom.QueryFirst(root, dom.ByTag("meta")), "content", "stale")
	})

	f.app.Dispatch(context.Background(), dom.Click(f.find(upButton)))
	f.app.Wait()
	assert.False(t, f.hasClass(upButton, "active"))
}

// heldVotes blocks every vote until release is closed.
type heldVotes struct {
	started chan vote.Request
	release chan struct{}
}

func (h *heldVotes) Vote(ctx context.Context, req vote.Request) (vote.Response, error) {
	h.started <- req
	select {
	case <-h.release:
		return vote.Response{NewScore: 5}, nil
	case <-ctx.Done():
		return vote.Response{}, ctx.Err()
	}
}

func TestDispatchDoesNotWaitForVote(t *testing.T) {
	held := &heldVotes{started: make(chan vote.Request, 4), release: make(chan struct{})}
	f := newFixture(t, nil, qaglue.WithVoteClient(held))
	ctx := context.Background()

	returned := make(chan bool, 1)
	go func() { returned <- f.app.Dispatch(ctx, dom.Click(f.find(upButton))) }()
	select {
	case handled := <-returned:
		require.True(t, handled)
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on the vote request")
	}
	<-held.started
	assert.True(t, f.hasClass(upButton, "active"))

	// Other interactions and a second vote go through while the first is pending.
	require.True(t, f.app.Dispatch(ctx, dom.Click(f.find(dom.ByClass("theme-icon")))))
	require.True(t, f.app.Dispatch(ctx, dom.Click(f.find(downButton))))
	second := <-held.started
	assert.Equal(t, -1, second.Value)
	assert.True(t, f.hasClass(downButton, "active"))
	assert.Equal(t, "0", f.text(score))

	close(held.release)
	f.app.Wait()
	assert.Equal(t, "5", f.text(score))
}

func TestThemeToggleClick(t *testing.T) {
	f := newFixture(t, nil)

	require.True(t, f.app.Dispatch(context.Background(), dom.Click(f.find(dom.ByClass("theme-icon")))))

	theme, _ := dom.Attr(f.find(dom.ByTag("html")), "data-theme")
	assert.Equal(t, "dark", theme)
	assert.Equal(t, "☀️", f.text(dom.ByClass("theme-icon")))
}

func TestStorageEventSyncsTheme(t *testing.T) {
	store := pref.NewMemoryStore()
	f := newFixture(t, nil, qaglue.WithPrefStore(store))

	f.clock.Advance(time.Minute)
	store.Save(theme.Key, pref.Entry{Value: []byte(`"dark"`), UpdatedAt: f.clock.Now()})

	require.True(t, f.app.Dispatch(context.Background(), dom.Storage(theme.Key)))
	assert.Equal(t, theme.Dark, f.app.Theme().Current())
	assert.Equal(t, "☀️", f.text(dom.ByClass("theme-icon")))
}

func TestTagSuggestionsFromForm(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	f := newFixture(t, nil, qaglue.WithTagDisplay(func(tags []string) {
		mu.Lock()
		got = tags
		mu.Unlock()
	}))
	ctx := context.Background()

	f.app.Dispatch(ctx, dom.Input(f.find(dom.ByAttr("name", "title")), "Docker or virtual machines?"))
	f.app.Dispatch(ctx, dom.Input(f.find(dom.ByTag("textarea")), "thinking about devops"))
	require.True(t, f.app.Dispatch(ctx, dom.Input(f.find(dom.ByAttr("name", "tags")), "do")))

	f.clock.Advance(f.app.Config().TagsDelay())
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"docker", "devops"}, got)
}

func TestSearchDebounced(t *testing.T) {
	var (
		mu        sync.Mutex
		fragments []string
	)
	f := newFixture(t, nil, qaglue.WithSearchResults(func(_, fragment string) {
		mu.Lock()
		fragments = append(fragments, fragment)
		mu.Unlock()
	}))
	ctx := context.Background()
	input := f.find(dom.ByClass("search-input"))

	f.app.Dispatch(ctx, dom.Input(input, "dj"))
	f.app.Dispatch(ctx, dom.Input(input, "django"))
	value, _ := dom.Attr(input, "value")
	assert.Equal(t, "django", value)

	f.clock.Advance(f.app.Config().SearchDelay())
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fragments) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, fragments[0], "optimize database queries in Django")
}

func TestEnhanceDecoratesPage(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Enhance.Highlight = true })
	f.app.Enhance()
	f.app.Enhance()

	var buttons int
	f.doc.View(func(root *html.Node) { buttons = len(dom.QueryAll(root, dom.ByClass("copy-code-btn"))) })
	assert.Equal(t, 1, buttons)

	link := f.find(dom.ByTag("a"))
	target, _ := dom.Attr(link, "target")
	assert.Equal(t, "_blank", target)
	assert.True(t, f.hasClass(dom.ByClass("question-card"), "fade-in"))
}

func TestStatsRefresh(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.app.Dispatch(ctx, dom.Click(f.find(upButton)))
	f.app.Wait()

	values, err := f.app.Stats().Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", values["votes.total"])
	assert.Equal(t, "1", f.text(dom.ByData("stat", "votes.total")))
	assert.Equal(t, "8", f.text(dom.ByData("stat", "questions.total")))
}

func TestRunDeliversRealtimeNotifications(t *testing.T) {
	var f *fixture
	f = newFixture(t, nil)
	// Rebuild with the realtime URL now that the server address is known.
	cfg := f.app.Config()
	cfg.RealtimeURL = "ws" + strings.TrimPrefix(f.url, "http") + "/ws"
	app, err := qaglue.New(f.doc, cfg,
		qaglue.WithClock(f.clock),
		qaglue.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return app.Realtime().Connected() }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return f.server.Hub().ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	f.server.Hub().Notify("Someone answered your question", "warning")

	assert.Eventually(t, func() bool {
		return strings.Contains(f.text(dom.ByClass("notification")), "Someone answered your question")
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, f.hasClass(dom.ByClass("notification"), "warning"))
	assert.Eventually(t, func() bool {
		style, _ := dom.Attr(f.find(dom.ByClass("notification-badge")), "style")
		return f.text(dom.ByClass("notification-badge")) == "1" && strings.Contains(style, "display: block")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, app.Realtime().MarkNotificationsRead())
	assert.Eventually(t, func() bool { return f.server.Hub().Unread() == 0 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
