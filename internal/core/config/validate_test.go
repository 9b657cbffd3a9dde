package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func fieldNames(errs criterio.FieldErrors) []string {
	out := make([]string, len(errs))
	for i, fe := range errs {
		out[i] = fe.Field
	}
	return out
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Join.Commands = []string{
		"game +connect {{ .ConnectString }}",
		"notify-send {{ .DisplayName | shq }} {{ .MapName }} {{ .GameMode }} {{ .SessionID }} {{ .PlayerName }}",
	}
	cfg.Backend.Kind = BackendHTTP
	cfg.Backend.URL = "https://lobby.example.com"
	cfg.Search.Map = "de_*"

	err := cfg.ValidateDeep("")
	assert.NoError(t, err, "expected valid config")
}

func TestValidateDeep_InvalidJoinTemplate(t *testing.T) {
	cfg := validConfig(t)
	cfg.Join.Commands = []string{"game {{ .ConnectString }", "game {{ .Invalid }}"}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
	assert.Equal(t, "join.commands[0]", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "template error")
	assert.Equal(t, "join.commands[1]", fieldErrs[1].Field)
}

func TestValidateDeep_BackendURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "bad scheme", url: "ftp://lobby.example.com"},
		{name: "no host", url: "http://"},
		{name: "unparseable", url: "://nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Backend.Kind = BackendHTTP
			cfg.Backend.URL = tt.url

			err := cfg.ValidateDeep("")

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Contains(t, fieldNames(fieldErrs), "backend.url")
		})
	}
}

func TestValidateDeep_MemoryBackendIgnoresURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Backend.URL = "ftp://ignored"

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_InvalidMapGlob(t *testing.T) {
	cfg := validConfig(t)
	cfg.Search.Map = "[de"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, []string{"search.map"}, fieldNames(fieldErrs))
}

func TestValidateDeep_PlayerName(t *testing.T) {
	cfg := validConfig(t)
	cfg.Player.Name = "   "

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, []string{"player.name"}, fieldNames(fieldErrs))
}

func TestValidateDeep_ServerAddresses(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Addr = "8080"
	cfg.Server.AdvertiseHost = ":7777"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, []string{"server.addr", "server.advertise_host"}, fieldNames(fieldErrs))
}

func TestValidateDeep_IncludesShallowErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Timeouts.Find = -1

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "config", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "timeouts.find")
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

	cfg := validConfig(t)
	cfg.DataDir = tmpFile

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldNames(fieldErrs), "data_dir")
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	err := cfg.ValidateDeep(t.TempDir())

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldNames(fieldErrs), "config_file")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	cfg.Timeouts.Join = 0
	cfg.Server.RateLimit = 0

	warnings := cfg.Warnings()

	var items []string
	for _, w := range warnings {
		items = append(items, w.Item)
	}
	assert.Contains(t, items, "join.commands")
	assert.Contains(t, items, "timeouts.join")
	assert.Contains(t, items, "server.rate_limit")
	assert.NotContains(t, items, "timeouts.find")

	for _, w := range warnings {
		if w.Item == "timeouts.join" {
			assert.True(t, strings.Contains(w.Message, "disabled"))
		}
	}
}
