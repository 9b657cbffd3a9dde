package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/styles"
)

type JoinCmd struct {
	flags *Flags

	password string
	noLaunch bool
}

// NewJoinCmd creates a new join command
func NewJoinCmd(flags *Flags) *JoinCmd {
	return &JoinCmd{flags: flags}
}

// Register adds the join command to the application
func (cmd *JoinCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "join",
		Usage:     "Join a session by ID or name",
		UsageText: "lobby join [options] <id|name>",
		Description: `Searches the backend, picks the session whose ID matches or whose name
matches ignoring case, and joins it. A name shared by several sessions is
rejected; use the ID printed by 'lobby find'.

On success the join commands from the config are rendered with the travel
data ({{ .ConnectString }}, {{ .SessionID }}, {{ .MapName }}, ...) and run in
order. Without join commands the connect string is printed to stdout.

Password protected sessions prompt for the password when --password is not
given and stdin is a terminal.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "password",
				Aliases:     []string{"p"},
				Usage:       "session password",
				Sources:     cli.EnvVars("LOBBY_JOIN_PASSWORD"),
				Destination: &cmd.password,
			},
			&cli.BoolFlag{
				Name:        "no-launch",
				Usage:       "print the connect string instead of running join commands",
				Destination: &cmd.noLaunch,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *JoinCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one session ID or name")
	}

	client, closeClient := cmd.flags.NewClient()
	defer closeClient()

	q := cmd.flags.Config.Query()
	q.HideFull = false

	records, err := findRecords(ctx, client, q, "")
	if err != nil {
		return err
	}

	rec, err := matchSession(records, c.Args().First())
	if err != nil {
		return err
	}

	password := cmd.password
	if rec.PasswordProtected && password == "" {
		password, err = promptPassword(rec)
		if err != nil {
			return err
		}
	}

	res, err := joinRecord(ctx, client, session.JoinRequest{
		Record:     rec,
		Password:   password,
		PlayerName: cmd.flags.Config.Player.Name,
	})
	if err != nil {
		return err
	}

	return travel(ctx, cmd.flags.Config, res, cmd.noLaunch)
}

func promptPassword(rec session.Record) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%s is password protected; pass --password", rec.DisplayName)
	}

	var password string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Password for " + rec.DisplayName).
			EchoMode(huh.EchoModePassword).
			Value(&password),
	)).WithTheme(styles.FormTheme()).Run()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return password, nil
}
