package qaglue

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/qaplatform/qaglue/pkg/enhance"
	"github.com/qaplatform/qaglue/pkg/pref"
	"github.com/qaplatform/qaglue/pkg/realtime"
	"github.com/qaplatform/qaglue/pkg/vote"
)

// Option configures an App.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	clock      clockwork.Clock
	httpClient *http.Client
	dialer     *websocket.Dialer
	registry   prometheus.Registerer
	voteClient vote.Client
	prefStore  pref.Store
	clipboard  enhance.Clipboard
	results    func(query, fragment string)
	tagDisplay func(tags []string)
	typing     func(realtime.Typing)
}

// WithLogger sets the logger every manager logs to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock behind every timer.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithHTTPClient sets the client used for backend requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithDialer sets the realtime WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithRegistry registers vote metrics on reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithVoteClient replaces the HTTP vote client.
func WithVoteClient(c vote.Client) Option {
	return func(o *options) { o.voteClient = c }
}

// WithPrefStore sets where the theme preference is persisted. It
// overrides the configured theme store.
func WithPrefStore(s pref.Store) Option {
	return func(o *options) { o.prefStore = s }
}

// WithClipboard sets the clipboard used by copy buttons.
func WithClipboard(c enhance.Clipboard) Option {
	return func(o *options) { o.clipboard = c }
}

// WithSearchResults receives each search result fragment.
func WithSearchResults(fn func(query, fragment string)) Option {
	return func(o *options) { o.results = fn }
}

// WithTagDisplay receives each list of suggested tags.
func WithTagDisplay(fn func(tags []string)) Option {
	return func(o *options) { o.tagDisplay = fn }
}

// WithTypingHandler receives user_typing events from the realtime channel.
func WithTypingHandler(fn func(realtime.Typing)) Option {
	return func(o *options) { o.typing = fn }
}
