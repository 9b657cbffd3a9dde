package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/hay-kot/lobby/internal/printer"
	"github.com/hay-kot/lobby/internal/store/jsonfile"
	"github.com/urfave/cli/v3"
)

type PruneCmd struct {
	flags *Flags
}

// NewPruneCmd creates a new prune command
func NewPruneCmd(flags *Flags) *PruneCmd {
	return &PruneCmd{flags: flags}
}

// Register adds the prune command to the application
func (cmd *PruneCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "prune",
		Usage:     "Remove idle sessions from the server's session file",
		UsageText: "lobby prune [--older-than 30m | --all]",
		Description: `Removes hosted sessions that have not seen a join for longer than
server.session_ttl, the same sweep a running 'lobby serve' performs.

Use --older-than to pick a different idle threshold, or --all to remove every
hosted session.

Safe to run while a server is serving the same data directory.`,
		Action: cmd.run,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "idle threshold (defaults to server.session_ttl)",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Delete all hosted sessions",
			},
		},
	})

	return app
}

func (cmd *PruneCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	all := c.Bool("all")
	ttl := cmd.flags.Config.Server.SessionTTL
	if c.IsSet("older-than") {
		ttl = c.Duration("older-than")
	}

	cutoff, err := pruneCutoff(time.Now(), ttl, all)
	if err != nil {
		return err
	}

	store := jsonfile.New(cmd.flags.Config.SessionsFile())
	count, err := store.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}

	if count == 0 {
		if all {
			p.Infof("No hosted sessions to prune")
		} else {
			p.Infof("No sessions idle for more than %s", ttl)
		}
		return nil
	}

	p.Successf("Pruned %d session(s)", count)

	return nil
}

// pruneCutoff returns the time before which sessions are removed.
func pruneCutoff(now time.Time, ttl time.Duration, all bool) (time.Time, error) {
	if all {
		// Sessions updated in the same instant are still removed.
		return now.Add(time.Nanosecond), nil
	}
	if ttl <= 0 {
		return time.Time{}, fmt.Errorf("no idle threshold: set server.session_ttl or pass --older-than")
	}
	return now.Add(-ttl), nil
}
