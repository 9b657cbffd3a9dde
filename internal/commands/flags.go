package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hay-kot/lobby/internal/backend/httplobby"
	"github.com/hay-kot/lobby/internal/backend/memory"
	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "lobby", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "lobby")
}

// NewBackend builds the session backend selected by backend.kind. The
// returned func releases it once the caller is done.
func NewBackend(cfg *config.Config) (session.Backend, func()) {
	logger := log.With().Str("component", "backend").Str("kind", cfg.Backend.Kind).Logger()

	if cfg.Backend.Kind == config.BackendHTTP {
		b := httplobby.New(cfg.Backend.URL, logger, httplobby.Options{HostPlayer: cfg.Player.Name})
		return b, b.Close
	}

	b := memory.New(logger, memory.Options{
		Latency:  cfg.Backend.Latency,
		HostAddr: cfg.Server.AdvertiseHost,
	})
	if cfg.Backend.Demo {
		b.SeedDemo()
	}
	return b, func() {}
}

// NewClient wires a lobby client to the configured backend. The returned
// func closes both.
func (f *Flags) NewClient() (*lobby.Client, func()) {
	backend, closeBackend := NewBackend(f.Config)

	client := lobby.New(backend, log.With().Str("component", "lobby").Logger(), lobby.Options{
		Timeouts: f.Config.ClientTimeouts(),
	})

	return client, func() {
		client.Close()
		closeBackend()
	}
}
