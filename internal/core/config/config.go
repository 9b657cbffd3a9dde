// Package config handles configuration loading and validation for lobby.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendHTTP   = "http"
)

// Config holds the application configuration.
type Config struct {
	Player   PlayerConfig   `yaml:"player"`
	Backend  BackendConfig  `yaml:"backend"`
	Search   SearchConfig   `yaml:"search"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Join     JoinConfig     `yaml:"join"`
	Server   ServerConfig   `yaml:"server"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// PlayerConfig identifies the local player.
type PlayerConfig struct {
	Name string `yaml:"name"`
}

// BackendConfig selects the session backend.
type BackendConfig struct {
	Kind    string        `yaml:"kind"`    // memory or http
	URL     string        `yaml:"url"`     // lobby server base URL for the http backend
	Latency time.Duration `yaml:"latency"` // simulated reply delay for the memory backend
	Demo    bool          `yaml:"demo"`    // seed the memory backend with demo sessions
}

// SearchConfig holds the defaults applied to every search.
type SearchConfig struct {
	MaxResults      int           `yaml:"max_results"`
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 disables auto refresh in the menu
	Map             string        `yaml:"map"`              // doublestar glob on map names
	Mode            string        `yaml:"mode"`
	HideFull        bool          `yaml:"hide_full"`
}

// TimeoutsConfig bounds each backend operation. Zero disables the timeout.
type TimeoutsConfig struct {
	Create time.Duration `yaml:"create"`
	Find   time.Duration `yaml:"find"`
	Join   time.Duration `yaml:"join"`
}

// JoinConfig holds the commands run after a successful join.
type JoinConfig struct {
	// Commands are Go templates rendered with the join's travel data.
	Commands []string `yaml:"commands"`
}

// ServerConfig configures `lobby serve`.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	AdvertiseHost string        `yaml:"advertise_host"` // host:port handed out in connect strings
	RateLimit     int           `yaml:"rate_limit"`     // requests per rate_window per IP, 0 disables
	RateWindow    time.Duration `yaml:"rate_window"`
	SessionTTL    time.Duration `yaml:"session_ttl"` // idle sessions are pruned after this, 0 disables
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Player: PlayerConfig{
			Name: "player",
		},
		Backend: BackendConfig{
			Kind:    BackendMemory,
			URL:     "http://127.0.0.1:8080",
			Latency: 300 * time.Millisecond,
			Demo:    true,
		},
		Search: SearchConfig{
			MaxResults: 20,
		},
		Timeouts: TimeoutsConfig{
			Create: 10 * time.Second,
			Find:   10 * time.Second,
			Join:   10 * time.Second,
		},
		Join: JoinConfig{
			Commands: []string{},
		},
		Server: ServerConfig{
			Addr:          ":8080",
			AdvertiseHost: "127.0.0.1:7777",
			RateLimit:     600,
			RateWindow:    time.Minute,
			SessionTTL:    2 * time.Hour,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to path atomically, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Backend.Kind == "" {
		c.Backend.Kind = defaults.Backend.Kind
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = defaults.Search.MaxResults
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.AdvertiseHost == "" {
		c.Server.AdvertiseHost = defaults.Server.AdvertiseHost
	}
	if c.Server.RateWindow == 0 {
		c.Server.RateWindow = defaults.Server.RateWindow
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	switch c.Backend.Kind {
	case BackendMemory:
	case BackendHTTP:
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required for the http backend")
		}
	default:
		return fmt.Errorf("backend.kind must be %q or %q, got %q", BackendMemory, BackendHTTP, c.Backend.Kind)
	}

	if c.Search.MaxResults < 1 {
		return fmt.Errorf("search.max_results must be at least 1")
	}

	for name, d := range map[string]time.Duration{
		"backend.latency":         c.Backend.Latency,
		"search.refresh_interval": c.Search.RefreshInterval,
		"timeouts.create":         c.Timeouts.Create,
		"timeouts.find":           c.Timeouts.Find,
		"timeouts.join":           c.Timeouts.Join,
		"server.rate_window":      c.Server.RateWindow,
		"server.session_ttl":      c.Server.SessionTTL,
	} {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit cannot be negative")
	}

	return nil
}

// SessionsFile returns the path to the hosted sessions JSON file.
func (c *Config) SessionsFile() string {
	return filepath.Join(c.DataDir, "sessions.json")
}

// LogsDir returns the directory batch runs write their logs to.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// Query returns the search query built from the search section.
func (c *Config) Query() session.Query {
	return session.Query{
		MaxResults: c.Search.MaxResults,
		MapPattern: c.Search.Map,
		GameMode:   c.Search.Mode,
		HideFull:   c.Search.HideFull,
	}
}

// ClientTimeouts converts the timeouts section for lobby.New.
func (c *Config) ClientTimeouts() lobby.Timeouts {
	return lobby.Timeouts{
		Create: c.Timeouts.Create,
		Find:   c.Timeouts.Find,
		Join:   c.Timeouts.Join,
	}
}
