package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/printer"
	"github.com/hay-kot/lobby/pkg/executil"
)

// travel reports a successful join and runs the configured join commands
// unless printOnly is set or none are configured.
func travel(ctx context.Context, cfg *config.Config, res lobby.JoinResult, printOnly bool) error {
	p := printer.Ctx(ctx)
	p.Success("Joined "+res.Record.DisplayName, res.ConnectString)

	if printOnly || len(cfg.Join.Commands) == 0 {
		fmt.Println(res.ConnectString)
		return nil
	}

	launcher := lobby.NewLauncher(
		log.With().Str("component", "launcher").Logger(),
		&executil.RealExecutor{},
		os.Stdout,
		os.Stderr,
	)

	if err := launcher.Launch(ctx, cfg.Join.Commands, lobby.NewTravelData(res, cfg.Player.Name)); err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	return nil
}
