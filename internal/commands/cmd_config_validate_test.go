package commands

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/stores"
)

func TestConfigValidateCmd_valid(t *testing.T) {
	a := newTestApp(t, stores.BackendFile)

	require.NoError(t, a.run("config", "validate"))
	assert.Contains(t, a.out.String(), "is valid")
}

func TestConfigValidateCmd_json(t *testing.T) {
	a := newTestApp(t, stores.BackendFile)

	require.NoError(t, a.run("config", "validate", "--format", "json"))

	var out struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(a.out.Bytes(), &out))
	assert.True(t, out.Valid)
}

func TestConfigValidateCmd_reports_load_errors(t *testing.T) {
	a := newTestApp(t, stores.BackendFile)
	require.NoError(t, os.WriteFile(a.flags.ConfigPath, []byte("settings:\n  max_visible: 99\n"), 0o644))
	a.flags.Config = nil

	err := a.run("config", "validate", "--format", "json")
	require.Error(t, err)

	var out struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(a.out.Bytes(), &out))
	assert.False(t, out.Valid)
	require.NotEmpty(t, out.Errors)
}

func TestConfigValidateCmd_storage_path_is_directory(t *testing.T) {
	a := newTestApp(t, stores.BackendFile)
	require.NoError(t, os.MkdirAll(a.flags.Config.Storage.Path, 0o755))

	err := a.run("config", "validate")
	require.Error(t, err)
	assert.Contains(t, a.out.String(), "storage.path")
	assert.Contains(t, a.out.String(), "1 error(s) found")
}
