package commands

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/printer"
)

type FindCmd struct {
	flags *Flags

	mapPattern string
	mode       string
	max        int
	hideFull   bool
	filter     string
	format     string
}

// NewFindCmd creates a new find command
func NewFindCmd(flags *Flags) *FindCmd {
	return &FindCmd{flags: flags}
}

// Register adds the find command to the application
func (cmd *FindCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "find",
		Aliases:   []string{"ls"},
		Usage:     "Search for joinable sessions",
		UsageText: "lobby find [options]",
		Description: `Runs one search against the configured backend and prints the results in
backend order. Flags override the search section of the config file.

The --filter flag narrows results locally by case-insensitive substring match
on the session name, like typing / in the menu.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "map",
				Usage:       "glob pattern on map names, e.g. de_*",
				Destination: &cmd.mapPattern,
			},
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "game mode to match",
				Destination: &cmd.mode,
			},
			&cli.IntFlag{
				Name:        "max",
				Aliases:     []string{"n"},
				Usage:       "maximum results requested from the backend",
				Destination: &cmd.max,
			},
			&cli.BoolFlag{
				Name:        "hide-full",
				Usage:       "omit sessions with no free slots",
				Destination: &cmd.hideFull,
			},
			&cli.StringFlag{
				Name:        "filter",
				Aliases:     []string{"f"},
				Usage:       "only show sessions whose name contains this text",
				Destination: &cmd.filter,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *FindCmd) run(ctx context.Context, c *cli.Command) error {
	q := cmd.flags.Config.Query()
	if c.IsSet("map") {
		q.MapPattern = cmd.mapPattern
	}
	if c.IsSet("mode") {
		q.GameMode = cmd.mode
	}
	if c.IsSet("max") {
		q.MaxResults = cmd.max
	}
	if c.IsSet("hide-full") {
		q.HideFull = cmd.hideFull
	}

	client, closeClient := cmd.flags.NewClient()
	defer closeClient()

	records, err := findRecords(ctx, client, q, cmd.filter)
	if err != nil {
		return err
	}

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	printer.Ctx(ctx).Sessions(records)
	return nil
}
