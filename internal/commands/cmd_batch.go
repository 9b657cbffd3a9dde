package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/core/validate"
	"github.com/hay-kot/lobby/pkg/randid"
)

const (
	// StatusCreated indicates the session was hosted successfully.
	StatusCreated = "created"
	// StatusFailed indicates hosting the session failed.
	StatusFailed = "failed"
	// StatusSkipped indicates the session was not attempted due to failure threshold.
	StatusSkipped = "skipped"

	// maxFailures is the number of failures before stopping batch processing.
	maxFailures = 3
)

// BatchInput is the JSON input schema for batch hosting.
type BatchInput struct {
	Sessions []BatchSession `json:"sessions"`
}

// Validate checks the batch input for errors using criterio.
func (b BatchInput) Validate() error {
	if len(b.Sessions) == 0 {
		return criterio.NewFieldErrors("sessions", fmt.Errorf("array is empty"))
	}

	var errs criterio.FieldErrorsBuilder
	seenNames := make(map[string]bool)

	for i, sess := range b.Sessions {
		field := fmt.Sprintf("sessions[%d]", i)

		if err := validate.DisplayName(sess.Name); err != nil {
			errs = errs.Append(field+".name", err)
			continue
		}

		key := strings.ToLower(strings.TrimSpace(sess.Name))
		if seenNames[key] {
			errs = errs.Append(field+".name", fmt.Errorf("duplicate name %q", sess.Name))
			continue
		}
		seenNames[key] = true

		var fieldErrs criterio.FieldErrors
		if err := validate.SessionConfig(sess.Config()); errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = errs.Append(field+"."+fe.Field, fe.Err)
			}
		}
	}

	return errs.ToError()
}

// BatchSession defines a single session to host.
type BatchSession struct {
	Name       string `json:"name"`
	Map        string `json:"map,omitempty"`
	Mode       string `json:"mode,omitempty"`
	MaxPlayers uint   `json:"max_players,omitempty"`
	Private    bool   `json:"private,omitempty"`
	Password   string `json:"password,omitempty"`
}

// Config converts the entry to a hosting request, filling in defaults.
func (s BatchSession) Config() session.Config {
	cfg := session.Config{
		DisplayName:         strings.TrimSpace(s.Name),
		MapName:             s.Map,
		GameMode:            s.Mode,
		MaxPlayers:          s.MaxPlayers,
		IsPublic:            !s.Private,
		IsPasswordProtected: s.Password != "",
		Password:            s.Password,
	}
	if cfg.MapName == "" {
		cfg.MapName = "de_dust2"
	}
	if cfg.GameMode == "" {
		cfg.GameMode = "defuse"
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = 10
	}
	return cfg
}

// BatchResult is the output for a single hosting attempt.
type BatchResult struct {
	Name      string `json:"name"`
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// BatchOutput is the JSON output schema.
type BatchOutput struct {
	BatchID string        `json:"batch_id"`
	LogFile string        `json:"log_file"`
	Results []BatchResult `json:"results"`
}

// BatchErrorOutput is the JSON output for fatal errors.
type BatchErrorOutput struct {
	Error string `json:"error"`
}

// hostFunc hosts one session and returns its ID.
type hostFunc func(ctx context.Context, cfg session.Config) (string, error)

type BatchCmd struct {
	flags *Flags
	file  string
}

func NewBatchCmd(flags *Flags) *BatchCmd {
	return &BatchCmd{flags: flags}
}

func (cmd *BatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "batch",
		Usage: "Host multiple sessions from JSON input",
		UsageText: `lobby batch [options]

Read from stdin:
  echo '{"sessions":[{"name":"Night Owls","map":"de_nuke"}]}' | lobby batch

Read from file:
  lobby batch -f sessions.json`,
		Description: `Hosts several sessions on the configured backend from a JSON document.

Sessions are hosted one at a time, in input order. Processing stops after 3
failures. Sessions not attempted are marked as skipped.

Input JSON schema:
  {
    "sessions": [
      {
        "name": "Night Owls",
        "map": "de_nuke",
        "mode": "defuse",
        "max_players": 10,
        "private": false,
        "password": "optional"
      }
    ]
  }

Fields:
  name        - Required. Display name, unique within the batch.
  map         - Optional. Defaults to de_dust2.
  mode        - Optional. Defaults to defuse.
  max_players - Optional. 1-64, defaults to 10.
  private     - Optional. Hide the session from searches.
  password    - Optional. Marks the session password protected.

Output is JSON with a batch ID, log file path, and results for each session.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to JSON file (reads from stdin if not provided)",
				Destination: &cmd.file,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *BatchCmd) run(ctx context.Context, _ *cli.Command) error {
	batchID := randid.Generate(6)

	logger, logFile, err := cmd.setupLogger(batchID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "batch %s: failed to setup logger: %v\n", batchID, err)
		return cmd.writeError(fmt.Errorf("setup logger: %w", err))
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close log file: %v\n", err)
		}
	}()

	logger.Info().Str("batch_id", batchID).Msg("starting batch processing")

	input, err := cmd.readInput()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read input")
		return cmd.writeError(fmt.Errorf("read input: %w", err))
	}

	if err := input.Validate(); err != nil {
		logger.Error().Err(err).Msg("input validation failed")
		return cmd.writeError(fmt.Errorf("invalid input: %w", err))
	}

	client, closeClient := cmd.flags.NewClient()
	defer closeClient()

	host := func(ctx context.Context, cfg session.Config) (string, error) {
		return hostSession(ctx, client, cfg)
	}

	output := BatchOutput{
		BatchID: batchID,
		LogFile: logFile.Name(),
		Results: hostAll(ctx, logger, input, host),
	}

	return cmd.writeOutput(output)
}

// hostAll hosts every session in order, stopping after maxFailures.
func hostAll(ctx context.Context, logger zerolog.Logger, input BatchInput, host hostFunc) []BatchResult {
	results := make([]BatchResult, 0, len(input.Sessions))

	failures := 0
	for i, sess := range input.Sessions {
		if failures >= maxFailures {
			logger.Warn().Str("name", sess.Name).Msg("skipping session due to failure threshold")
			for j := i; j < len(input.Sessions); j++ {
				results = append(results, BatchResult{
					Name:   input.Sessions[j].Name,
					Status: StatusSkipped,
				})
			}
			break
		}

		logger.Info().Str("name", sess.Name).Int("index", i).Msg("hosting session")

		id, err := host(ctx, sess.Config())
		if err != nil {
			failures++
			logger.Error().Str("name", sess.Name).Err(err).Msg("hosting failed")
			results = append(results, BatchResult{Name: sess.Name, Status: StatusFailed, Error: err.Error()})
			continue
		}

		logger.Info().Str("name", sess.Name).Str("session_id", id).Msg("session hosted")
		results = append(results, BatchResult{Name: sess.Name, SessionID: id, Status: StatusCreated})
	}

	logger.Info().
		Int("total", len(input.Sessions)).
		Int("created", countByStatus(results, StatusCreated)).
		Int("failed", countByStatus(results, StatusFailed)).
		Int("skipped", countByStatus(results, StatusSkipped)).
		Msg("batch processing complete")

	return results
}

func (cmd *BatchCmd) setupLogger(batchID string) (zerolog.Logger, *os.File, error) {
	logsDir := cmd.flags.Config.LogsDir()
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create logs dir: %w", err)
	}

	logPath := filepath.Join(logsDir, fmt.Sprintf("batch-%s.log", batchID))
	file, err := os.Create(logPath)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create log file: %w", err)
	}

	logger := zerolog.New(file).With().Timestamp().Logger()
	return logger, file, nil
}

func (cmd *BatchCmd) readInput() (BatchInput, error) {
	var reader io.Reader

	if cmd.file != "" {
		f, err := os.Open(cmd.file)
		if err != nil {
			return BatchInput{}, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	} else {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return BatchInput{}, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
		}
		reader = os.Stdin
	}

	return decodeBatchInput(reader)
}

func decodeBatchInput(r io.Reader) (BatchInput, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var input BatchInput
	if err := dec.Decode(&input); err != nil {
		return BatchInput{}, fmt.Errorf("decode JSON: %w", err)
	}

	return input, nil
}

func (cmd *BatchCmd) writeOutput(output BatchOutput) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to write JSON output: %v\n", err)
		fmt.Fprintf(os.Stderr, "batch_id: %s\n", output.BatchID)
		fmt.Fprintf(os.Stderr, "log_file: %s\n", output.LogFile)
		fmt.Fprintf(os.Stderr, "results: %d created, %d failed, %d skipped\n",
			countByStatus(output.Results, StatusCreated),
			countByStatus(output.Results, StatusFailed),
			countByStatus(output.Results, StatusSkipped))
		return err
	}
	return nil
}

func (cmd *BatchCmd) writeError(err error) error {
	output := BatchErrorOutput{Error: err.Error()}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(output); encErr != nil {
		fmt.Fprintf(os.Stderr, "error: %s (failed to write JSON: %v)\n", err, encErr)
	}
	return err
}

func countByStatus(results []BatchResult, status string) int {
	count := 0
	for _, r := range results {
		if r.Status == status {
			count++
		}
	}
	return count
}
