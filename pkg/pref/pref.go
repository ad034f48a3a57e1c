// Package pref provides persisted user preferences.
//
// A preference is a typed value under a string key, stored as JSON in a
// Store. MemoryStore plays the role of browser local storage for tests;
// FileStore keeps preferences in a JSON file between runs.
//
// Example:
//
//	theme, err := pref.New("theme", "light", store,
//	    pref.Validate(func(v string) bool { return v == "light" || v == "dark" }))
//	current := theme.Get()
//	err = theme.Set("dark")
package pref

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MergeStrategy determines how conflicts are resolved when local and remote values differ.
type MergeStrategy int

const (
	// DBWins uses the remote value, discards local.
	DBWins MergeStrategy = iota

	// LocalWins keeps the local value.
	LocalWins

	// LWW uses last-write-wins with timestamps.
	LWW
)

// Option is a functional option for configuring preferences.
type Option[T any] func(*config[T])

type config[T any] struct {
	mergeStrategy MergeStrategy
	validate      func(T) bool
	clock         clockwork.Clock
}

// MergeWith sets the merge strategy for conflict resolution.
func MergeWith[T any](strategy MergeStrategy) Option[T] {
	return func(c *config[T]) { c.mergeStrategy = strategy }
}

// Validate rejects stored or remote values for which fn returns false.
func Validate[T any](fn func(T) bool) Option[T] {
	return func(c *config[T]) { c.validate = fn }
}

// WithClock sets the clock used for update timestamps.
func WithClock[T any](clock clockwork.Clock) Option[T] {
	return func(c *config[T]) { c.clock = clock }
}

// Pref is a persisted preference.
type Pref[T any] struct {
	key      string
	defaults T
	store    Store
	config   config[T]

	mu        sync.RWMutex
	value     T
	updatedAt time.Time
}

// New creates a preference and loads its stored value. A missing,
// undecodable or invalid stored value leaves the default in place; only
// store I/O failures are returned.
func New[T any](key string, defaultValue T, store Store, opts ...Option[T]) (*Pref[T], error) {
	cfg := config[T]{mergeStrategy: LWW, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Pref[T]{
		key:      key,
		defaults: defaultValue,
		store:    store,
		config:   cfg,
		value:    defaultValue,
	}
	if store == nil {
		return p, nil
	}

	entry, ok, err := store.Load(key)
	if err != nil {
		return p, fmt.Errorf("pref %q: load: %w", key, err)
	}
	if !ok {
		return p, nil
	}
	var v T
	if err := json.Unmarshal(entry.Value, &v); err != nil || !p.valid(v) {
		return p, nil
	}
	p.value = v
	p.updatedAt = entry.UpdatedAt
	return p, nil
}

func (p *Pref[T]) valid(v T) bool {
	return p.config.validate == nil || p.config.validate(v)
}

// Get returns the current preference value.
func (p *Pref[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set updates the value and persists it.
func (p *Pref[T]) Set(value T) error {
	if !p.valid(value) {
		return fmt.Errorf("pref %q: invalid value %v", p.key, value)
	}
	p.mu.Lock()
	p.value = value
	p.updatedAt = p.config.clock.Now()
	updatedAt := p.updatedAt
	p.mu.Unlock()

	return p.persist(value, updatedAt)
}

// Reset restores the default value.
func (p *Pref[T]) Reset() error {
	return p.Set(p.defaults)
}

// Key returns the preference key.
func (p *Pref[T]) Key() string {
	return p.key
}

// UpdatedAt returns when the preference was last updated.
func (p *Pref[T]) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// SetFromRemote merges a value written elsewhere (another tab or the
// server) using the configured merge strategy. It reports whether the
// local value changed.
func (p *Pref[T]) SetFromRemote(value T, remoteUpdatedAt time.Time) (bool, error) {
	if !p.merge(value, remoteUpdatedAt) {
		return false, nil
	}
	return true, p.persist(value, remoteUpdatedAt)
}

// Sync re-reads the stored entry and merges it like a remote value. It
// is the counterpart of a browser storage event: the store already holds
// the value, so nothing is written back.
func (p *Pref[T]) Sync() (bool, error) {
	if p.store == nil {
		return false, nil
	}
	entry, ok, err := p.store.Load(p.key)
	if err != nil {
		return false, fmt.Errorf("pref %q: load: %w", p.key, err)
	}
	if !ok {
		return false, nil
	}
	var v T
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		return false, nil
	}
	return p.merge(v, entry.UpdatedAt), nil
}

func (p *Pref[T]) merge(value T, remoteUpdatedAt time.Time) bool {
	if !p.valid(value) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	take := false
	switch p.config.mergeStrategy {
	case DBWins:
		take = true
	case LWW:
		take = remoteUpdatedAt.After(p.updatedAt)
	}
	if !take {
		return false
	}
	p.value = value
	p.updatedAt = remoteUpdatedAt
	return true
}

func (p *Pref[T]) persist(value T, updatedAt time.Time) error {
	if p.store == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("pref %q: encode: %w", p.key, err)
	}
	if err := p.store.Save(p.key, Entry{Value: raw, UpdatedAt: updatedAt}); err != nil {
		return fmt.Errorf("pref %q: save: %w", p.key, err)
	}
	return nil
}
