package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/lobby/internal/tui"
)

type TuiCmd struct {
	flags    *Flags
	noLaunch bool
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{
		flags: flags,
	}
}

// Flags returns the TUI-specific flags for registration on the root command
func (cmd *TuiCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "no-launch",
			Usage:       "print the connect string after joining instead of running join commands",
			Destination: &cmd.noLaunch,
		},
	}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("the menu needs a terminal; use 'lobby find' or 'lobby join' instead")
	}

	client, closeClient := cmd.flags.NewClient()
	defer closeClient()

	opts := tui.Options{
		ConfigPath: cmd.flags.ConfigPath,
		Log:        log.With().Str("component", "tui").Logger(),
	}

	m := tui.New(cmd.flags.Config, client, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	joined := m.Joined()
	if joined == nil {
		return nil
	}

	return travel(ctx, cmd.flags.Config, *joined, cmd.noLaunch)
}
