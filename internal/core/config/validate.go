package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
	"github.com/hay-kot/lobby/internal/core/validate"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/pkg/tmpl"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this checks template syntax, URLs, addresses and file
// access. It returns criterio.FieldErrors describing every problem found.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	errs = c.validateFileAccess(errs, configPath)
	errs = c.validatePlayer(errs)
	errs = c.validateBackend(errs)
	errs = c.validateSearch(errs)
	errs = c.validateJoinCommands(errs)
	errs = c.validateServer(errs)

	if err := c.Validate(); err != nil {
		errs = errs.Append("config", err)
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues worth surfacing to the user.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if len(c.Join.Commands) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Join Commands",
			Item:     "join.commands",
			Message:  "No join commands defined; joining only prints the connect string",
		})
	}

	timeouts := []struct {
		item string
		d    time.Duration
	}{
		{"timeouts.create", c.Timeouts.Create},
		{"timeouts.find", c.Timeouts.Find},
		{"timeouts.join", c.Timeouts.Join},
	}
	for _, t := range timeouts {
		if t.d == 0 {
			warnings = append(warnings, ValidationWarning{
				Category: "Timeouts",
				Item:     t.item,
				Message:  "timeout disabled; a backend that never replies keeps the operation pending",
			})
		}
	}

	if c.Server.RateLimit == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Server",
			Item:     "server.rate_limit",
			Message:  "rate limiting disabled",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(errs criterio.FieldErrorsBuilder, configPath string) criterio.FieldErrorsBuilder {
	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.IsDir() {
				errs = errs.Append("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("config_file", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil {
			if !info.IsDir() {
				errs = errs.Append("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
		}
	}

	return errs
}

func (c *Config) validatePlayer(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	if err := validate.PlayerName(c.Player.Name); err != nil {
		errs = errs.Append("player.name", err)
	}
	return errs
}

func (c *Config) validateBackend(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	if c.Backend.Kind != BackendHTTP {
		return errs
	}

	u, err := url.Parse(c.Backend.URL)
	switch {
	case err != nil:
		errs = errs.Append("backend.url", fmt.Errorf("invalid url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = errs.Append("backend.url", fmt.Errorf("scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = errs.Append("backend.url", fmt.Errorf("missing host"))
	}

	return errs
}

func (c *Config) validateSearch(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	if c.Search.Map != "" && !doublestar.ValidatePattern(c.Search.Map) {
		errs = errs.Append("search.map", fmt.Errorf("invalid glob %q", c.Search.Map))
	}
	return errs
}

// validateJoinCommands checks template syntax for join commands.
func (c *Config) validateJoinCommands(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	for i, cmd := range c.Join.Commands {
		if err := tmpl.Check(cmd, lobby.TravelData{}); err != nil {
			errs = errs.Append(
				fmt.Sprintf("join.commands[%d]", i),
				fmt.Errorf("template error: %w (available: .ConnectString, .SessionID, .DisplayName, .MapName, .GameMode, .PlayerName)", err),
			)
		}
	}
	return errs
}

func (c *Config) validateServer(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = errs.Append("server.addr", fmt.Errorf("must be host:port: %w", err))
	}

	host, port, err := net.SplitHostPort(c.Server.AdvertiseHost)
	if err != nil {
		errs = errs.Append("server.advertise_host", fmt.Errorf("must be host:port: %w", err))
	} else if host == "" || port == "" {
		errs = errs.Append("server.advertise_host", fmt.Errorf("host and port are both required"))
	}

	return errs
}
