package commands

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hay-kot/lobby/internal/core/session"
)

func TestBatchInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   BatchInput
		wantErr string
	}{
		{
			name:    "empty sessions",
			input:   BatchInput{Sessions: []BatchSession{}},
			wantErr: "sessions",
		},
		{
			name: "missing name",
			input: BatchInput{Sessions: []BatchSession{
				{Map: "de_nuke"},
			}},
			wantErr: "name",
		},
		{
			name: "whitespace name",
			input: BatchInput{Sessions: []BatchSession{
				{Name: "   "},
			}},
			wantErr: "name",
		},
		{
			name: "duplicate names ignore case",
			input: BatchInput{Sessions: []BatchSession{
				{Name: "Night Owls"},
				{Name: "night owls"},
			}},
			wantErr: "duplicate",
		},
		{
			name: "too many players",
			input: BatchInput{Sessions: []BatchSession{
				{Name: "Crowd", MaxPlayers: 65},
			}},
			wantErr: "sessions[0].max_players",
		},
		{
			name: "valid input",
			input: BatchInput{Sessions: []BatchSession{
				{Name: "Night Owls", Map: "de_nuke"},
				{Name: "Vault", Password: "hunter2", Private: true},
			}},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("expected error containing %q, got nil", tt.wantErr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestBatchSession_Config(t *testing.T) {
	cfg := BatchSession{Name: " Vault ", Password: "hunter2", Private: true}.Config()

	if cfg.DisplayName != "Vault" {
		t.Errorf("expected trimmed name, got %q", cfg.DisplayName)
	}
	if cfg.MapName != "de_dust2" || cfg.GameMode != "defuse" || cfg.MaxPlayers != 10 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.IsPublic {
		t.Errorf("expected private session")
	}
	if !cfg.IsPasswordProtected {
		t.Errorf("expected password protected session")
	}
}

func TestDecodeBatchInput(t *testing.T) {
	jsonInput := `{
		"sessions": [
			{"name": "Night Owls", "map": "de_nuke"},
			{"name": "Vault", "max_players": 4, "password": "hunter2"}
		]
	}`

	input, err := decodeBatchInput(strings.NewReader(jsonInput))
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if len(input.Sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(input.Sessions))
	}

	if input.Sessions[0].Map != "de_nuke" {
		t.Errorf("expected map 'de_nuke', got %q", input.Sessions[0].Map)
	}

	if input.Sessions[1].MaxPlayers != 4 {
		t.Errorf("expected 4 max players, got %d", input.Sessions[1].MaxPlayers)
	}

	if _, err := decodeBatchInput(strings.NewReader(`{"sessions":[{"name":"x","prompt":"y"}]}`)); err == nil {
		t.Errorf("expected unknown field to be rejected")
	}
}

func TestHostAll(t *testing.T) {
	input := BatchInput{Sessions: []BatchSession{
		{Name: "one"}, {Name: "two"}, {Name: "three"}, {Name: "four"}, {Name: "five"}, {Name: "six"},
	}}

	t.Run("all hosted", func(t *testing.T) {
		host := func(_ context.Context, cfg session.Config) (string, error) {
			return "id-" + cfg.DisplayName, nil
		}

		results := hostAll(context.Background(), zerolog.Nop(), input, host)

		if got := countByStatus(results, StatusCreated); got != 6 {
			t.Errorf("expected 6 created, got %d", got)
		}
		if results[0].SessionID != "id-one" {
			t.Errorf("expected session id 'id-one', got %q", results[0].SessionID)
		}
	})

	t.Run("stops after max failures", func(t *testing.T) {
		var attempted []string
		host := func(_ context.Context, cfg session.Config) (string, error) {
			attempted = append(attempted, cfg.DisplayName)
			if cfg.DisplayName == "one" {
				return "id-one", nil
			}
			return "", errors.New("backend reported failure")
		}

		results := hostAll(context.Background(), zerolog.Nop(), input, host)

		if len(results) != len(input.Sessions) {
			t.Fatalf("expected a result per session, got %d", len(results))
		}
		if len(attempted) != 4 {
			t.Errorf("expected 4 attempts, got %v", attempted)
		}
		if got := countByStatus(results, StatusFailed); got != maxFailures {
			t.Errorf("expected %d failed, got %d", maxFailures, got)
		}
		if got := countByStatus(results, StatusSkipped); got != 2 {
			t.Errorf("expected 2 skipped, got %d", got)
		}
		if results[1].Error != "backend reported failure" {
			t.Errorf("expected error message, got %q", results[1].Error)
		}
	})
}

func TestBatchOutput_JSON(t *testing.T) {
	output := BatchOutput{
		BatchID: "abc123",
		LogFile: "/tmp/logs/batch-abc123.log",
		Results: []BatchResult{
			{Name: "one", SessionID: "def456", Status: StatusCreated},
			{Name: "two", Status: StatusFailed, Error: "operation timed out"},
		},
	}

	data, err := json.Marshal(output)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	for _, want := range []string{`"batch_id":"abc123"`, `"status":"created"`, `"error":"operation timed out"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in %s", want, data)
		}
	}
	if strings.Contains(string(data), `"session_id":""`) {
		t.Errorf("expected empty session_id to be omitted: %s", data)
	}
}

func TestCountByStatus(t *testing.T) {
	results := []BatchResult{
		{Status: StatusCreated},
		{Status: StatusCreated},
		{Status: StatusFailed},
		{Status: StatusSkipped},
		{Status: StatusSkipped},
		{Status: StatusSkipped},
	}

	if got := countByStatus(results, StatusCreated); got != 2 {
		t.Errorf("countByStatus(created) = %d, want 2", got)
	}
	if got := countByStatus(results, StatusFailed); got != 1 {
		t.Errorf("countByStatus(failed) = %d, want 1", got)
	}
	if got := countByStatus(results, StatusSkipped); got != 3 {
		t.Errorf("countByStatus(skipped) = %d, want 3", got)
	}
}
