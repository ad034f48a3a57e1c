// Package tags suggests tags while a question is being written.
package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/debounce"
	"github.com/qaplatform/qaglue/pkg/dom"
)

const (
	// DefaultDelay is the quiet period before suggestions are requested.
	DefaultDelay = 500 * time.Millisecond

	// MinLength is the shortest tag input that triggers suggestions.
	MinLength = 2
)

// Option configures a Suggester.
type Option func(*Suggester)

// WithHTTPClient sets the client used for suggestion requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Suggester) { s.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Suggester) { s.logger = l }
}

// WithClock sets the clock driving the debounce timer.
func WithClock(c clockwork.Clock) Option {
	return func(s *Suggester) { s.clock = c }
}

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(s *Suggester) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithDisplay receives each list of suggested tags.
func WithDisplay(fn func(tags []string)) Option {
	return func(s *Suggester) { s.display = fn }
}

// Suggester watches the tags field of the ask form.
type Suggester struct {
	doc     *dom.Document
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	clock   clockwork.Clock
	delay   time.Duration
	display func([]string)

	debouncer *debounce.Debouncer
}

// New creates a Suggester querying baseURL + "/api/suggest_tags".
func New(doc *dom.Document, baseURL string, opts ...Option) *Suggester {
	s := &Suggester{
		doc:     doc,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  slog.Default(),
		clock:   clockwork.NewRealClock(),
		delay:   DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debouncer = debounce.New(s.delay, s.clock)
	return s
}

var tagsInput = dom.And(dom.ByTag("input"), dom.ByAttr("name", "tags"))

// Handle schedules a suggestion request for input events on the tags
// field. It reports whether the event targeted that field.
func (s *Suggester) Handle(ctx context.Context, ev dom.Event) bool {
	if ev.Type != dom.EventInput {
		return false
	}
	var hit bool
	s.doc.View(func(_ *html.Node) {
		hit = dom.Closest(ev.Target, tagsInput) != nil
	})
	if !hit {
		return false
	}

	s.debouncer.Stop()
	if len(ev.Value) >= MinLength {
		s.debouncer.Trigger(func() {
			if _, err := s.Suggest(ctx); err != nil {
				s.logger.ErrorContext(ctx, "tags: suggestion failed", "error", err)
			}
		})
	}
	return true
}

// Suggest requests suggestions for the current title and content and
// passes them to the display callback.
func (s *Suggester) Suggest(ctx context.Context) ([]string, error) {
	var title, content string
	s.doc.View(func(root *html.Node) {
		title, _ = dom.Attr(dom.QueryFirst(root, dom.And(dom.ByTag("input"), dom.ByAttr("name", "title"))), "value")
		content = dom.Text(dom.QueryFirst(root, dom.And(dom.ByTag("textarea"), dom.ByAttr("name", "content"))))
	})

	q := url.Values{}
	q.Set("title", title)
	q.Set("content", content)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/suggest_tags?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("tags: server responded %d", resp.StatusCode)
	}

	var tags []string
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("tags: decode: %w", err)
	}
	if s.display != nil {
		s.display(tags)
	} else {
		s.logger.DebugContext(ctx, "tags: suggested", "tags", tags)
	}
	return tags, nil
}

// Stop cancels a pending suggestion request.
func (s *Suggester) Stop() {
	s.debouncer.Stop()
}
