// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hay-kot/criterio"
	"github.com/hay-kot/lobby/internal/core/session"
)

// Limits for hosted sessions.
const (
	MaxDisplayNameLen = 48
	MaxPlayersLimit   = 64
)

// DisplayName validates a session display name is non-empty after trimming
// whitespace and fits in the browser column.
func DisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLen {
		return fmt.Errorf("name must be at most %d characters", MaxDisplayNameLen)
	}
	return nil
}

// PlayerName validates the local player's name.
func PlayerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("player name is required")
	}
	return nil
}

// MaxPlayers validates the slot count of a hosted session.
func MaxPlayers(n uint) error {
	if n < 1 || n > MaxPlayersLimit {
		return fmt.Errorf("must be between 1 and %d", MaxPlayersLimit)
	}
	return nil
}

// SessionConfig validates every field of a hosting request and returns
// criterio.FieldErrors when anything is wrong.
func SessionConfig(cfg session.Config) error {
	var errs criterio.FieldErrorsBuilder

	if err := DisplayName(cfg.DisplayName); err != nil {
		errs = errs.Append("display_name", err)
	}
	if strings.TrimSpace(cfg.MapName) == "" {
		errs = errs.Append("map_name", fmt.Errorf("map is required"))
	}
	if err := MaxPlayers(cfg.MaxPlayers); err != nil {
		errs = errs.Append("max_players", err)
	}
	if cfg.IsPasswordProtected && cfg.Password == "" {
		errs = errs.Append("password", fmt.Errorf("password is required for protected sessions"))
	}
	if !cfg.IsPasswordProtected && cfg.Password != "" {
		errs = errs.Append("password", fmt.Errorf("password set on an unprotected session"))
	}

	return errs.ToError()
}
