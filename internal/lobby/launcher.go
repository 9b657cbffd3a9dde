package lobby

import (
	"context"
	"fmt"
	"io"

	"github.com/hay-kot/lobby/pkg/executil"
	"github.com/hay-kot/lobby/pkg/tmpl"
	"github.com/rs/zerolog"
)

// TravelData is the template context for join commands.
type TravelData struct {
	ConnectString string // Address handed back by the backend
	SessionID     string
	DisplayName   string
	MapName       string
	GameMode      string
	PlayerName    string
}

// NewTravelData builds the template context for a successful join.
func NewTravelData(res JoinResult, playerName string) TravelData {
	return TravelData{
		ConnectString: res.ConnectString,
		SessionID:     res.Record.ID,
		DisplayName:   res.Record.DisplayName,
		MapName:       res.Record.MapName,
		GameMode:      res.Record.GameMode,
		PlayerName:    playerName,
	}
}

// Launcher runs the configured join commands after a successful join.
type Launcher struct {
	log      zerolog.Logger
	executor executil.Executor
	stdout   io.Writer
	stderr   io.Writer
}

// NewLauncher creates a new Launcher.
func NewLauncher(log zerolog.Logger, executor executil.Executor, stdout, stderr io.Writer) *Launcher {
	return &Launcher{
		log:      log,
		executor: executor,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// Launch renders and executes commands sequentially. It stops at the first
// failure.
func (l *Launcher) Launch(ctx context.Context, commands []string, data TravelData) error {
	for _, cmdTmpl := range commands {
		rendered, err := tmpl.Render(cmdTmpl, data)
		if err != nil {
			return fmt.Errorf("render join command %q: %w", cmdTmpl, err)
		}

		l.log.Debug().Str("command", rendered).Msg("executing join command")

		if err := l.executor.RunStream(ctx, l.stdout, l.stderr, "sh", "-c", rendered); err != nil {
			return fmt.Errorf("execute join command %q: %w", rendered, err)
		}
	}

	return nil
}
