// Package theme switches a page between the light and dark themes and
// remembers the choice.
package theme

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/pref"
)

// Key is the preference key the theme is stored under.
const Key = "theme"

// Theme is a page color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == Light || t == Dark
}

// Icon is the glyph shown on the toggle: the moon offers dark mode, the
// sun offers light mode.
func (t Theme) Icon() string {
	if t == Dark {
		return "☀️"
	}
	return "🌙"
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Manager applies the theme to a page and persists it.
type Manager struct {
	doc    *dom.Document
	pref   *pref.Pref[Theme]
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock sets the clock that timestamps theme changes.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewManager loads the stored theme (light when absent or invalid) and
// applies it to doc. Changes written to the store elsewhere are merged
// last-write-wins by Sync.
func NewManager(doc *dom.Document, store pref.Store, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	p, err := pref.New(Key, Light, store,
		pref.Validate(Theme.Valid),
		pref.MergeWith[Theme](pref.LWW),
		pref.WithClock[Theme](o.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("theme: %w", err)
	}
	m := &Manager{doc: doc, pref: p, logger: logger}
	m.render(p.Get())
	return m, nil
}

// Current returns the active theme.
func (m *Manager) Current() Theme {
	return m.pref.Get()
}

// Apply switches to t and persists it.
func (m *Manager) Apply(t Theme) error {
	if err := m.pref.Set(t); err != nil {
		return fmt.Errorf("theme: %w", err)
	}
	m.render(t)
	return nil
}

// Toggle flips between light and dark.
func (m *Manager) Toggle() (Theme, error) {
	next := m.Current().Opposite()
	return next, m.Apply(next)
}

// Sync picks up a theme stored by another writer if it is newer than
// the local choice, and applies it to the page. It reports whether the
// theme changed.
func (m *Manager) Sync() (bool, error) {
	changed, err := m.pref.Sync()
	if err != nil {
		return false, fmt.Errorf("theme: %w", err)
	}
	if changed {
		m.render(m.pref.Get())
	}
	return changed, nil
}

// Handle toggles the theme for clicks inside .theme-toggle and syncs it
// on storage events for the theme key.
func (m *Manager) Handle(ev dom.Event) bool {
	if ev.Type == dom.EventStorage {
		if ev.Value != Key {
			return false
		}
		if _, err := m.Sync(); err != nil {
			m.logger.Error("theme: sync failed", "error", err)
		}
		return true
	}
	if ev.Type != dom.EventClick {
		return false
	}
	var hit bool
	m.doc.View(func(_ *html.Node) {
		hit = dom.Closest(ev.Target, dom.ByClass("theme-toggle")) != nil
	})
	if !hit {
		return false
	}
	if _, err := m.Toggle(); err != nil {
		m.logger.Error("theme: toggle failed", "error", err)
	}
	return true
}

func (m *Manager) render(t Theme) {
	m.doc.Update(func(root *html.Node) {
		if el := dom.QueryFirst(root, dom.ByTag("html")); el != nil {
			dom.SetAttr(el, "data-theme", string(t))
		}
		if icon := dom.QueryFirst(root, dom.ByClass("theme-icon")); icon != nil {
			dom.SetText(icon, t.Icon())
		}
	})
}
