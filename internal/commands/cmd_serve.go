package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/server"
	"github.com/hay-kot/lobby/internal/store/jsonfile"
)

type ServeCmd struct {
	flags *Flags

	addr      string
	advertise string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run a lobby server",
		UsageText: "lobby serve [options]",
		Description: `Serves the lobby REST API used by the http backend. Hosted sessions are
kept in sessions.json under the data directory, so several server processes
can share one data directory.

Endpoints:
  GET  /api/v1/sessions            search (max_results, map, mode, hide_full)
  POST /api/v1/sessions            host a session
  POST /api/v1/sessions/{id}/join  join a session
  GET  /healthz                    liveness
  GET  /metrics                    Prometheus metrics

Sessions idle for longer than server.session_ttl are pruned in the
background.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides server.addr)",
				Sources:     cli.EnvVars("LOBBY_SERVER_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "advertise",
				Usage:       "host:port placed in connect strings (overrides server.advertise_host)",
				Destination: &cmd.advertise,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config.Server

	addr := cfg.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}
	advertise := cfg.AdvertiseHost
	if cmd.advertise != "" {
		advertise = cmd.advertise
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := jsonfile.New(cmd.flags.Config.SessionsFile())
	srv := server.New(store, log.With().Str("component", "server").Logger(), server.Options{
		AdvertiseHost: advertise,
		RateLimit:     cfg.RateLimit,
		RateWindow:    cfg.RateWindow,
		SessionTTL:    cfg.SessionTTL,
	})

	return srv.Run(ctx, addr)
}
