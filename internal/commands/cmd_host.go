package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/printer"
)

type HostCmd struct {
	flags *Flags

	mapName    string
	mode       string
	maxPlayers int
	private    bool
	password   string
}

// NewHostCmd creates a new host command
func NewHostCmd(flags *Flags) *HostCmd {
	return &HostCmd{flags: flags}
}

// Register adds the host command to the application
func (cmd *HostCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "host",
		Usage:     "Host a new session",
		UsageText: "lobby host [options] <name>",
		Description: `Creates a session on the configured backend and prints its ID.

Setting --password marks the session as password protected. Private sessions
are hidden from searches and can only be joined by ID.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "map",
				Aliases:     []string{"m"},
				Usage:       "map to play",
				Value:       "de_dust2",
				Destination: &cmd.mapName,
			},
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "game mode",
				Value:       "defuse",
				Destination: &cmd.mode,
			},
			&cli.IntFlag{
				Name:        "max-players",
				Usage:       "player slots (1-64)",
				Value:       10,
				Destination: &cmd.maxPlayers,
			},
			&cli.BoolFlag{
				Name:        "private",
				Usage:       "hide the session from searches",
				Destination: &cmd.private,
			},
			&cli.StringFlag{
				Name:        "password",
				Usage:       "require a password to join",
				Sources:     cli.EnvVars("LOBBY_HOST_PASSWORD"),
				Destination: &cmd.password,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *HostCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	cfg, err := cmd.sessionConfig(strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}

	client, closeClient := cmd.flags.NewClient()
	defer closeClient()

	id, err := hostSession(ctx, client, cfg)
	if err != nil {
		return fmt.Errorf("host %s: %w", cfg.DisplayName, err)
	}

	p.Success("Hosting "+cfg.DisplayName, "id: "+id)
	if cmd.flags.Config.Backend.Kind == config.BackendMemory {
		p.Warnf("memory backend: the session ends when this process exits")
	}
	return nil
}

func (cmd *HostCmd) sessionConfig(name string) (session.Config, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return session.Config{}, fmt.Errorf("session name is required")
	}
	if cmd.maxPlayers < 1 {
		return session.Config{}, fmt.Errorf("--max-players must be at least 1")
	}

	return session.Config{
		DisplayName:         name,
		MapName:             cmd.mapName,
		GameMode:            cmd.mode,
		MaxPlayers:          uint(cmd.maxPlayers),
		IsPublic:            !cmd.private,
		IsPasswordProtected: cmd.password != "",
		Password:            cmd.password,
	}, nil
}
