package vote

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/toast"
)

// FailureMessage is the toast shown for any failed vote.
const FailureMessage = "Vote failed. Please try again."

// InFlightPolicy decides what happens when a target is clicked while a
// request for it is still outstanding.
type InFlightPolicy int

const (
	// InFlightAllow sends every click. Responses are applied in arrival
	// order, so the last response to arrive sets the score.
	InFlightAllow InFlightPolicy = iota

	// InFlightReject drops clicks on a target with a request in flight.
	InFlightReject

	// InFlightLatest sends every click but only applies the response to
	// the most recently sent request for the target.
	InFlightLatest
)

func (p InFlightPolicy) String() string {
	switch p {
	case InFlightAllow:
		return "allow"
	case InFlightReject:
		return "reject"
	case InFlightLatest:
		return "latest"
	}
	return fmt.Sprintf("InFlightPolicy(%d)", int(p))
}

// ParseInFlightPolicy parses "allow", "reject" or "latest".
func ParseInFlightPolicy(s string) (InFlightPolicy, error) {
	switch s {
	case "", "allow":
		return InFlightAllow, nil
	case "reject":
		return InFlightReject, nil
	case "latest":
		return InFlightLatest, nil
	}
	return InFlightAllow, fmt.Errorf("vote: unknown in-flight policy %q", s)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records clicks, drops and stale responses.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithRollbackOnFailure restores the previous toggle state when a request
// fails. Off by default: a failed vote keeps its optimistic classes.
func WithRollbackOnFailure(on bool) Option {
	return func(c *Controller) { c.rollback = on }
}

// WithInFlightPolicy sets the overlapping-click behavior.
func WithInFlightPolicy(p InFlightPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// Result describes one handled click.
type Result struct {
	Target    Target
	Previous  Direction
	Direction Direction

	// Value is what was sent: -1, 0 or +1.
	Value int

	// Score is the backend's score. Applied reports whether it was
	// written to the page; stale responses under InFlightLatest are not.
	Score   int
	Applied bool
}

// Controller handles vote clicks for one page.
type Controller struct {
	doc      *dom.Document
	client   Client
	notifier toast.Notifier
	logger   *slog.Logger
	metrics  *Metrics
	rollback bool
	policy   InFlightPolicy

	wg sync.WaitGroup

	mu      sync.Mutex
	seq     uint64
	pending map[Target]int
	latest  map[Target]uint64
}

// New creates a controller for doc. notifier receives the failure toast.
func New(doc *dom.Document, client Client, notifier toast.Notifier, opts ...Option) *Controller {
	c := &Controller{
		doc:      doc,
		client:   client,
		notifier: notifier,
		logger:   slog.Default(),
		pending:  make(map[Target]int),
		latest:   make(map[Target]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle treats ev as a delegated click. It reports whether the event
// hit a vote control. The toggle classes are applied before Handle
// returns; the request and the score update run in the background, so
// ctx must outlive them. Failures are logged and surfaced as a toast.
// Wait blocks until background requests finish.
func (c *Controller) Handle(ctx context.Context, ev dom.Event) bool {
	if ev.Type != dom.EventClick {
		return false
	}

	var (
		ctl control
		ok  bool
	)
	c.doc.View(func(_ *html.Node) {
		btn := dom.Closest(ev.Target, dom.ByClass(ControlClass))
		if btn == nil {
			return
		}
		ctl, ok = parseControl(btn)
	})
	if !ok {
		return false
	}

	res, seq, err := c.begin(ctx, ctl.target, ctl.requested)
	if err != nil {
		return true
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.send(ctx, res, seq)
	}()
	return true
}

// Wait blocks until every request started by Handle has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// HandleClick applies a click on the requested control of target and
// waits for the backend.
//
// The toggle classes change before the request is sent. On success the
// page shows the returned score. On failure a toast is shown and the
// error is returned; the classes are only restored with
// WithRollbackOnFailure.
func (c *Controller) HandleClick(ctx context.Context, target Target, requested Direction) (Result, error) {
	res, seq, err := c.begin(ctx, target, requested)
	if err != nil {
		return res, err
	}
	return c.send(ctx, res, seq)
}

// begin applies the optimistic toggle and registers the request. The
// returned sequence number identifies it under InFlightLatest.
func (c *Controller) begin(ctx context.Context, target Target, requested Direction) (Result, uint64, error) {
	res := Result{Target: target}
	if requested != Up && requested != Down {
		return res, 0, fmt.Errorf("vote: requested direction must be up or down, got %s", requested)
	}

	var (
		seq   uint64
		found bool
		busy  bool
	)
	c.doc.Update(func(root *html.Node) {
		w, ok := findWidget(root, target)
		if !ok {
			return
		}
		found = true

		c.mu.Lock()
		if c.policy == InFlightReject && c.pending[target] > 0 {
			c.mu.Unlock()
			busy = true
			return
		}
		c.pending[target]++
		c.seq++
		seq = c.seq
		c.latest[target] = seq
		c.mu.Unlock()

		res.Previous = w.direction()
		res.Direction = Next(res.Previous, requested)
		w.apply(res.Direction)
	})
	if !found {
		c.logger.DebugContext(ctx, "vote: no controls for target", "item_type", target.ItemType, "item_id", target.ItemID)
		return res, 0, ErrNoWidget
	}
	if busy {
		c.metrics.drop()
		c.logger.DebugContext(ctx, "vote: click dropped, request in flight", "item_type", target.ItemType, "item_id", target.ItemID)
		return res, 0, ErrInFlight
	}

	res.Value = res.Direction.Value()
	c.metrics.click(res.Direction)
	return res, seq, nil
}

// send posts the vote registered by begin and reconciles the page.
func (c *Controller) send(ctx context.Context, res Result, seq uint64) (Result, error) {
	target := res.Target
	defer c.done(target)

	resp, err := c.client.Vote(ctx, Request{
		ItemType: target.ItemType,
		ItemID:   target.ItemID,
		Value:    res.Value,
	})
	if err != nil {
		c.fail(ctx, res, seq, err)
		return res, err
	}
	res.Score = resp.NewScore

	c.doc.Update(func(root *html.Node) {
		if c.stale(target, seq) {
			return
		}
		w, ok := findWidget(root, target)
		if !ok {
			return
		}
		w.setScore(resp.NewScore)
		res.Applied = true
	})
	if !res.Applied && c.policy == InFlightLatest {
		c.metrics.staleResponse()
	}

	c.logger.DebugContext(ctx, "vote: recorded",
		"item_type", target.ItemType,
		"item_id", target.ItemID,
		"value", res.Value,
		"new_score", resp.NewScore,
		"applied", res.Applied,
	)
	return res, nil
}

// State reads the page's current vote state for target. ok is false when
// the target has no controls or its score text is not an integer.
func (c *Controller) State(target Target) (State, bool) {
	var (
		st State
		ok bool
	)
	c.doc.View(func(root *html.Node) {
		w, found := findWidget(root, target)
		if !found {
			return
		}
		ok = true
		st.Direction = w.direction()
		if w.score == nil {
			return
		}
		score, err := strconv.Atoi(strings.TrimSpace(dom.Text(w.score)))
		if err != nil {
			ok = false
			return
		}
		st.Score = score
	})
	return st, ok
}

func (c *Controller) fail(ctx context.Context, res Result, seq uint64, err error) {
	if c.stale(res.Target, seq) {
		c.metrics.staleResponse()
		c.logger.DebugContext(ctx, "vote: superseded request failed",
			"item_type", res.Target.ItemType,
			"item_id", res.Target.ItemID,
			"value", res.Value,
			"error", err,
		)
		return
	}
	if c.rollback {
		c.doc.Update(func(root *html.Node) {
			w, ok := findWidget(root, res.Target)
			if ok && w.direction() == res.Direction {
				w.apply(res.Previous)
			}
		})
	}
	c.logger.ErrorContext(ctx, "vote: request failed",
		"item_type", res.Target.ItemType,
		"item_id", res.Target.ItemID,
		"value", res.Value,
		"error", err,
	)
	if c.notifier != nil {
		toast.Error(c.notifier, FailureMessage)
	}
}

// stale reports whether seq was superseded under InFlightLatest.
func (c *Controller) stale(t Target, seq uint64) bool {
	return c.policy == InFlightLatest && !c.isLatest(t, seq)
}

func (c *Controller) isLatest(t Target, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest[t] == seq
}

func (c *Controller) done(t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[t]--
	if c.pending[t] <= 0 {
		delete(c.pending, t)
		delete(c.latest, t)
	}
}
