// Package search drives the header search box: it waits for the user to
// stop typing, then queries the backend's search endpoint.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/debounce"
	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/toast"
)

const (
	// DefaultDelay is the quiet period before a search is sent.
	DefaultDelay = 300 * time.Millisecond

	// MinQueryLength is the shortest query, in characters, that is sent.
	MinQueryLength = 2

	// FailureMessage is shown when a search request fails.
	FailureMessage = "Search failed. Please try again."

	inputClass     = "search-input"
	containerClass = "search-container"
	loadingClass   = "loading"
)

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for search requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock sets the clock driving the debounce timer.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithResults receives the HTML fragment returned by a search.
func WithResults(fn func(query, fragment string)) Option {
	return func(m *Manager) { m.results = fn }
}

// Manager owns the search box of one page.
type Manager struct {
	doc      *dom.Document
	baseURL  string
	notifier toast.Notifier
	http     *http.Client
	logger   *slog.Logger
	clock    clockwork.Clock
	delay    time.Duration
	results  func(query, fragment string)

	debouncer *debounce.Debouncer
}

// New creates a Manager querying baseURL + "/search".
func New(doc *dom.Document, baseURL string, notifier toast.Notifier, opts ...Option) *Manager {
	m := &Manager{
		doc:      doc,
		baseURL:  strings.TrimRight(baseURL, "/"),
		notifier: notifier,
		http:     http.DefaultClient,
		logger:   slog.Default(),
		clock:    clockwork.NewRealClock(),
		delay:    DefaultDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.debouncer = debounce.New(m.delay, m.clock)
	return m
}

// Handle reacts to typing in the search input and to clicks outside the
// search container. It reports whether the event was an input event on
// the search box.
func (m *Manager) Handle(ctx context.Context, ev dom.Event) bool {
	var inInput, inContainer bool
	m.doc.View(func(_ *html.Node) {
		inInput = dom.Closest(ev.Target, dom.ByClass(inputClass)) != nil
		inContainer = dom.Closest(ev.Target, dom.ByClass(containerClass)) != nil
	})

	switch ev.Type {
	case dom.EventInput:
		if !inInput {
			return false
		}
		query := strings.TrimSpace(ev.Value)
		if utf8.RuneCountInString(query) < MinQueryLength {
			m.debouncer.Stop()
			m.hideResults()
			return true
		}
		m.debouncer.Trigger(func() { _ = m.Search(ctx, query) })
		return true
	case dom.EventClick:
		if !inContainer {
			m.hideResults()
		}
	}
	return false
}

// Search queries the backend immediately.
func (m *Manager) Search(ctx context.Context, query string) error {
	m.setLoading(true)
	defer m.setLoading(false)

	fragment, err := m.fetch(ctx, query)
	if err != nil {
		m.logger.ErrorContext(ctx, "search: request failed", "query", query, "error", err)
		if m.notifier != nil {
			toast.Error(m.notifier, FailureMessage)
		}
		return err
	}
	if m.results != nil {
		m.results(query, fragment)
	}
	return nil
}

// Stop cancels a pending debounced search.
func (m *Manager) Stop() {
	m.debouncer.Stop()
}

func (m *Manager) fetch(ctx context.Context, query string) (string, error) {
	u := m.baseURL + "/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("search: server responded %d", resp.StatusCode)
	}
	return string(body), nil
}

func (m *Manager) hideResults() {
	m.setLoading(false)
}

func (m *Manager) setLoading(on bool) {
	m.doc.Update(func(root *html.Node) {
		input := dom.QueryFirst(root, dom.ByClass(inputClass))
		if input == nil {
			return
		}
		if on {
			dom.AddClass(input, loadingClass)
		} else {
			dom.RemoveClass(input, loadingClass)
		}
	})
}
