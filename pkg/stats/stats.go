// Package stats keeps dashboard counters in sync with the backend's
// statistics endpoint.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/qaplatform/qaglue/pkg/dom"
)

const (
	// DefaultInterval is the time between refreshes.
	DefaultInterval = 30 * time.Second

	// PulseDuration is how long an updated element carries the pulse class.
	PulseDuration = time.Second

	pulseClass = "pulse"
)

// Option configures a Refresher.
type Option func(*Refresher)

// WithHTTPClient sets the client used for stats requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Refresher) { r.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

// WithClock sets the clock driving the refresh ticker and pulse timers.
func WithClock(c clockwork.Clock) Option {
	return func(r *Refresher) { r.clock = c }
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// Refresher polls GET /api/stats and writes values into [data-stat]
// elements.
type Refresher struct {
	doc      *dom.Document
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	clock    clockwork.Clock
	interval time.Duration

	group singleflight.Group
}

// New creates a Refresher for baseURL.
func New(doc *dom.Document, baseURL string, opts ...Option) *Refresher {
	r := &Refresher{
		doc:      doc,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     http.DefaultClient,
		logger:   slog.Default(),
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run refreshes every interval until ctx is done. Failures are logged
// and the next tick tries again.
func (r *Refresher) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.ErrorContext(ctx, "stats: refresh failed", "error", err)
			}
		}
	}
}

// Refresh fetches the stats once and updates the page. Concurrent calls
// share one request. It returns the flattened values.
func (r *Refresher) Refresh(ctx context.Context) (map[string]string, error) {
	v, err, _ := r.group.Do("stats", func() (any, error) {
		values, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		r.apply(values)
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

func (r *Refresher) fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/stats", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("stats: server responded %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("stats: decode: %w", err)
	}
	out := make(map[string]string)
	Flatten("", body, out)
	return out, nil
}

func (r *Refresher) apply(values map[string]string) {
	var touched []*html.Node
	r.doc.Update(func(root *html.Node) {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			el := dom.QueryFirst(root, dom.ByData("stat", k))
			if el == nil {
				continue
			}
			dom.SetText(el, values[k])
			dom.AddClass(el, pulseClass)
			touched = append(touched, el)
		}
	})
	if len(touched) == 0 {
		return
	}
	r.clock.AfterFunc(PulseDuration, func() {
		r.doc.Update(func(_ *html.Node) {
			for _, el := range touched {
				dom.RemoveClass(el, pulseClass)
			}
		})
	})
}

// Flatten writes every leaf of v into out under a dotted key:
// {"users": {"total": 3}} becomes "users.total" = "3".
func Flatten(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			Flatten(key, child, out)
		}
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = t
	case json.Number:
		out[prefix] = t.String()
	default:
		out[prefix] = fmt.Sprint(t)
	}
}
