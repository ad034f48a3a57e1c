package qaglue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/qaplatform/qaglue/internal/config"
	"github.com/qaplatform/qaglue/pkg/csrf"
	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/enhance"
	"github.com/qaplatform/qaglue/pkg/pref"
	"github.com/qaplatform/qaglue/pkg/realtime"
	"github.com/qaplatform/qaglue/pkg/search"
	"github.com/qaplatform/qaglue/pkg/stats"
	"github.com/qaplatform/qaglue/pkg/tags"
	"github.com/qaplatform/qaglue/pkg/theme"
	"github.com/qaplatform/qaglue/pkg/toast"
	"github.com/qaplatform/qaglue/pkg/vote"
)

// App is the page glue for one document.
type App struct {
	doc    *dom.Document
	config *config.Config
	logger *slog.Logger

	toasts   *toast.Manager
	theme    *theme.Manager
	votes    *vote.Controller
	search   *search.Manager
	tags     *tags.Suggester
	realtime *realtime.Listener
	enhancer *enhance.Enhancer
	stats    *stats.Refresher
}

// New builds every manager for doc from cfg. A nil cfg uses defaults.
func New(doc *dom.Document, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:     slog.Default(),
		clock:      clockwork.NewRealClock(),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{doc: doc, config: cfg, logger: o.logger}

	app.toasts = toast.NewManager(
		toast.WithClock(o.clock),
		toast.WithSink(toast.NewDOMSink(doc)),
		toast.WithDefaultDuration(cfg.ToastDuration()),
	)

	store := o.prefStore
	if store == nil {
		if cfg.Theme.Store != "" {
			store = pref.NewFileStore(cfg.Theme.Store)
		} else {
			store = pref.NewMemoryStore()
		}
	}
	th, err := theme.NewManager(doc, store, o.logger, theme.WithClock(o.clock))
	if err != nil {
		return nil, fmt.Errorf("qaglue: theme: %w", err)
	}
	app.theme = th

	var metrics *vote.Metrics
	if o.registry != nil {
		metrics = vote.NewMetrics(o.registry)
	}
	client := o.voteClient
	if client == nil {
		client = vote.NewHTTPClient(cfg.BaseURL, &csrf.MetaSource{Doc: doc, Name: cfg.CSRFMeta},
			vote.WithHTTPClient(o.httpClient),
			vote.WithClientMetrics(metrics),
		)
	}
	app.votes = vote.New(doc, client, app.toasts,
		vote.WithLogger(o.logger),
		vote.WithMetrics(metrics),
		vote.WithInFlightPolicy(cfg.InFlightPolicy()),
		vote.WithRollbackOnFailure(cfg.Vote.Rollback),
	)

	searchOpts := []search.Option{
		search.WithHTTPClient(o.httpClient),
		search.WithLogger(o.logger),
		search.WithClock(o.clock),
		search.WithDelay(cfg.SearchDelay()),
	}
	if o.results != nil {
		searchOpts = append(searchOpts, search.WithResults(o.results))
	}
	app.search = search.New(doc, cfg.BaseURL, app.toasts, searchOpts...)

	tagOpts := []tags.Option{
		tags.WithHTTPClient(o.httpClient),
		tags.WithLogger(o.logger),
		tags.WithClock(o.clock),
		tags.WithDelay(cfg.TagsDelay()),
	}
	if o.tagDisplay != nil {
		tagOpts = append(tagOpts, tags.WithDisplay(o.tagDisplay))
	}
	app.tags = tags.New(doc, cfg.BaseURL, tagOpts...)

	rtOpts := []realtime.Option{
		realtime.WithLogger(o.logger),
		realtime.WithClock(o.clock),
	}
	if o.dialer != nil {
		rtOpts = append(rtOpts, realtime.WithDialer(o.dialer))
	}
	if o.typing != nil {
		rtOpts = append(rtOpts, realtime.WithTypingHandler(o.typing))
	}
	app.realtime = realtime.New(doc, cfg.RealtimeURL, app.toasts, rtOpts...)

	enhanceOpts := []enhance.Option{
		enhance.WithClock(o.clock),
		enhance.WithLogger(o.logger),
		enhance.WithHighlighting(cfg.Enhance.Highlight),
	}
	if o.clipboard != nil {
		enhanceOpts = append(enhanceOpts, enhance.WithClipboard(o.clipboard))
	}
	app.enhancer = enhance.New(doc, app.toasts, enhanceOpts...)

	app.stats = stats.New(doc, cfg.BaseURL,
		stats.WithHTTPClient(o.httpClient),
		stats.WithLogger(o.logger),
		stats.WithClock(o.clock),
		stats.WithInterval(cfg.StatsInterval()),
	)

	return app, nil
}

// Enhance applies the page-load content enhancements.
func (a *App) Enhance() {
	a.enhancer.Enhance()
}

// Dispatch routes ev to every manager. Input events first store the new
// value on the target so later reads of the form see it. Storage events
// carry no target and only concern the theme. Dispatch does
// not wait for the network; ctx must outlive the debounced work and vote
// requests started by the event. It reports whether any manager acted on
// the event.
func (a *App) Dispatch(ctx context.Context, ev dom.Event) bool {
	if ev.Type == dom.EventStorage {
		return a.theme.Handle(ev)
	}
	if ev.Target == nil {
		return false
	}
	if ev.Type == dom.EventInput {
		a.doc.Update(func(_ *html.Node) { setValue(ev.Target, ev.Value) })
	}

	if ev.Type == dom.EventClick {
		var id string
		a.doc.View(func(_ *html.Node) { id = toast.CloseTarget(ev.Target) })
		if id != "" {
			a.toasts.Remove(id)
			return true
		}
	}

	handled := a.theme.Handle(ev)
	handled = a.votes.Handle(ctx, ev) || handled
	handled = a.enhancer.Handle(ctx, ev) || handled
	handled = a.tags.Handle(ctx, ev) || handled
	// Search also watches clicks elsewhere to close its results.
	handled = a.search.Handle(ctx, ev) || handled
	return handled
}

// setValue mirrors a form field's live value into the tree.
func setValue(n *html.Node, value string) {
	if n.Type != html.ElementNode {
		return
	}
	if n.Data == "textarea" {
		dom.SetText(n, value)
		return
	}
	dom.SetAttr(n, "value", value)
}

// Run runs the realtime listener and the stats refresher until ctx ends.
// A cancelled context is not an error.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.realtime.Run(ctx) })
	g.Go(func() error {
		a.stats.Run(ctx)
		return nil
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Wait blocks until vote requests started by Dispatch have finished.
func (a *App) Wait() {
	a.votes.Wait()
}

// Close stops pending debounced work and waits for vote requests.
func (a *App) Close() {
	a.search.Stop()
	a.tags.Stop()
	a.votes.Wait()
}

// Document returns the page.
func (a *App) Document() *dom.Document { return a.doc }

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config { return a.config }

// Toasts returns the shared notification manager.
func (a *App) Toasts() *toast.Manager { return a.toasts }

// Theme returns the theme manager.
func (a *App) Theme() *theme.Manager { return a.theme }

// Votes returns the vote controller.
func (a *App) Votes() *vote.Controller { return a.votes }

// Search returns the search manager.
func (a *App) Search() *search.Manager { return a.search }

// Tags returns the tag suggester.
func (a *App) Tags() *tags.Suggester { return a.tags }

// Realtime returns the realtime listener.
func (a *App) Realtime() *realtime.Listener { return a.realtime }

// Stats returns the stats refresher.
func (a *App) Stats() *stats.Refresher { return a.stats }
