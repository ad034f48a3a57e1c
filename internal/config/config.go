package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qaplatform/qaglue/internal/errors"
	"github.com/qaplatform/qaglue/pkg/vote"
)

// FileNames are the configuration file names Load looks for, in order.
var FileNames = []string{"qaglue.json", "qaglue.yaml", "qaglue.yml"}

const (
	DefaultAddr      = "localhost:5000"
	DefaultBaseURL   = "http://" + DefaultAddr
	DefaultCSRFMeta  = "csrf-token"
	DefaultCSRFToken = "dev-csrf-token"
)

// Config is the complete qaglue configuration.
type Config struct {
	// BaseURL is the Q&A backend origin that /vote, /search and the
	// /api endpoints are resolved against.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`

	// RealtimeURL is the WebSocket endpoint. Empty disables the listener.
	RealtimeURL string `json:"realtimeURL,omitempty" yaml:"realtimeURL,omitempty"`

	// CSRFMeta is the name of the meta tag holding the CSRF token.
	CSRFMeta string `json:"csrfMeta,omitempty" yaml:"csrfMeta,omitempty"`

	Vote    VoteConfig    `json:"vote,omitempty" yaml:"vote,omitempty"`
	Search  DelayConfig   `json:"search,omitempty" yaml:"search,omitempty"`
	Tags    DelayConfig   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Stats   StatsConfig   `json:"stats,omitempty" yaml:"stats,omitempty"`
	Toast   ToastConfig   `json:"toast,omitempty" yaml:"toast,omitempty"`
	Enhance EnhanceConfig `json:"enhance,omitempty" yaml:"enhance,omitempty"`
	Theme   ThemeConfig   `json:"theme,omitempty" yaml:"theme,omitempty"`
	Dev     DevConfig     `json:"dev,omitempty" yaml:"dev,omitempty"`

	configPath string
}

// VoteConfig controls the vote controller.
type VoteConfig struct {
	// InFlight is one of "allow", "reject" or "latest".
	InFlight string `json:"inFlight,omitempty" yaml:"inFlight,omitempty"`

	// Rollback restores the previous direction when a vote fails.
	Rollback bool `json:"rollback,omitempty" yaml:"rollback,omitempty"`
}

// DelayConfig holds a debounce delay.
type DelayConfig struct {
	Delay string `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// StatsConfig controls the dashboard refresher.
type StatsConfig struct {
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// ToastConfig controls notifications.
type ToastConfig struct {
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// EnhanceConfig controls content enhancements.
type EnhanceConfig struct {
	Highlight bool `json:"highlight,omitempty" yaml:"highlight,omitempty"`
}

// ThemeConfig controls where the theme preference is persisted.
type ThemeConfig struct {
	// Store is a JSON file path. Empty keeps the preference in memory.
	Store string `json:"store,omitempty" yaml:"store,omitempty"`
}

// DevConfig configures the development backend.
type DevConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// DB is the SQLite database path. Empty uses an in-memory store.
	DB string `json:"db,omitempty" yaml:"db,omitempty"`

	// CSRFToken is the token the backend expects in X-CSRFToken.
	CSRFToken string `json:"csrfToken,omitempty" yaml:"csrfToken,omitempty"`

	// VoteRate is the sustained votes per second allowed per client.
	VoteRate float64 `json:"voteRate,omitempty" yaml:"voteRate,omitempty"`

	// VoteBurst is the vote burst allowed per client.
	VoteBurst int `json:"voteBurst,omitempty" yaml:"voteBurst,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the first of FileNames found in dir.
func Load(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		return nil, errors.New("Q100").
			WithDetail("No qaglue.json, qaglue.yaml or qaglue.yml found in " + dir).
			WithSuggestion("Create qaglue.json or pass --config")
	}
	return LoadFile(path)
}

// LoadOrDefault is Load, returning defaults when no file exists.
func LoadOrDefault(dir string) (*Config, error) {
	if _, ok := Find(dir); !ok {
		return New(), nil
	}
	return Load(dir)
}

// LoadFile reads configuration from path. The format follows the file
// extension: .yaml and .yml are YAML, anything else is JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("Q100").
				WithDetail("No configuration file at " + path).
				Wrap(err)
		}
		return nil, errors.New("Q101").Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("Q101").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is well formed")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find returns the path of the configuration file in dir, if any.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.CSRFMeta == "" {
		c.CSRFMeta = DefaultCSRFMeta
	}
	if c.Vote.InFlight == "" {
		c.Vote.InFlight = vote.InFlightAllow.String()
	}
	if c.Search.Delay == "" {
		c.Search.Delay = "300ms"
	}
	if c.Tags.Delay == "" {
		c.Tags.Delay = "500ms"
	}
	if c.Stats.Interval == "" {
		c.Stats.Interval = "30s"
	}
	if c.Toast.Duration == "" {
		c.Toast.Duration = "5s"
	}
	if c.Dev.Addr == "" {
		c.Dev.Addr = DefaultAddr
	}
	if c.Dev.CSRFToken == "" {
		c.Dev.CSRFToken = DefaultCSRFToken
	}
	if c.Dev.VoteRate == 0 {
		c.Dev.VoteRate = 5
	}
	if c.Dev.VoteBurst == 0 {
		c.Dev.VoteBurst = 10
	}
}

// Validate checks that every value parses.
func (c *Config) Validate() error {
	if _, err := vote.ParseInFlightPolicy(c.Vote.InFlight); err != nil {
		return errors.New("Q102").
			WithDetail("vote.inFlight: " + err.Error()).
			WithSuggestion(`Use "allow", "reject" or "latest"`)
	}
	durations := []struct{ field, value string }{
		{"search.delay", c.Search.Delay},
		{"tags.delay", c.Tags.Delay},
		{"stats.interval", c.Stats.Interval},
		{"toast.duration", c.Toast.Duration},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil || v <= 0 {
			return errors.New("Q102").
				WithDetail(d.field + ": " + strconv.Quote(d.value) + " is not a positive duration").
				WithSuggestion(`Use a Go duration such as "300ms" or "30s"`)
		}
	}
	if c.Dev.VoteRate < 0 || c.Dev.VoteBurst < 0 {
		return errors.New("Q102").WithDetail("dev.voteRate and dev.voteBurst must not be negative")
	}
	return nil
}

// InFlightPolicy returns the parsed vote.inFlight value.
func (c *Config) InFlightPolicy() vote.InFlightPolicy {
	p, err := vote.ParseInFlightPolicy(c.Vote.InFlight)
	if err != nil {
		return vote.InFlightAllow
	}
	return p
}

// SearchDelay returns the parsed search debounce delay.
func (c *Config) SearchDelay() time.Duration { return duration(c.Search.Delay) }

// TagsDelay returns the parsed tag suggestion delay.
func (c *Config) TagsDelay() time.Duration { return duration(c.Tags.Delay) }

// StatsInterval returns the parsed stats refresh interval.
func (c *Config) StatsInterval() time.Duration { return duration(c.Stats.Interval) }

// ToastDuration returns the parsed default notification lifetime.
func (c *Config) ToastDuration() time.Duration { return duration(c.Toast.Duration) }

// duration parses s; zero lets the consumer fall back to its own default.
func duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
