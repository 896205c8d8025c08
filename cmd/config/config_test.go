package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/securitas/internal/conf"
)

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "securitas", "config.yaml")

	cmd := Command(&conf.Settings{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "webserver:")

	// An existing file is kept unless --force is given.
	cmd = Command(&conf.Settings{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"init", path})
	require.Error(t, cmd.Execute())

	cmd = Command(&conf.Settings{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", "--force", path})
	require.NoError(t, cmd.Execute())
}

func TestValidateCommand(t *testing.T) {
	settings := &conf.Settings{Database: conf.DatabaseSettings{Type: conf.DatabaseSQLite}}
	settings.WebServer.Enabled = true

	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Configuration valid: database=sqlite web=true mqtt=false notifications=false\n", out.String())
}
