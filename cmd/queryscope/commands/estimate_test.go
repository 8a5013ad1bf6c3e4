package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/estimate"
)

func TestReadQuery_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o600))

	query, err := readQuery(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", query)
}

func TestReadQuery_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := readQuery(filepath.Join(t.TempDir(), "missing.sql"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read query file")
}

func TestRenderResult(t *testing.T) {
	color.NoColor = true //nolint:reassign // deterministic output under test

	t.Run("within threshold", func(t *testing.T) {
		var buf bytes.Buffer

		renderResult(&buf, "q.sql", estimate.Result{ScannedBytes: 1048576}, 1 << 30)

		out := buf.String()
		assert.Contains(t, out, "q.sql")
		assert.Contains(t, out, "1048576")
		assert.Contains(t, out, "1.0 MiB")
		assert.Contains(t, out, "Within the 1.0 GiB warning threshold")
	})

	t.Run("over threshold", func(t *testing.T) {
		var buf bytes.Buffer

		renderResult(&buf, "q.sql", estimate.Result{ScannedBytes: 2048}, 1024)

		assert.Contains(t, buf.String(), "Over the 1.0 KiB warning threshold")
	})

	t.Run("rejected query", func(t *testing.T) {
		var buf bytes.Buffer

		renderResult(&buf, "q.sql", estimate.Result{
			Errors: []string{"Syntax error at [1:8]"},
		}, 1024)

		out := buf.String()
		assert.Contains(t, out, "Query rejected")
		assert.Contains(t, out, "Syntax error at [1:8]")
	})
}

func TestNewEstimateCommand_RequiresOneArg(t *testing.T) {
	t.Parallel()

	cmd := NewEstimateCommand()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "ERROR", parseLogLevel("error").String())
	assert.Equal(t, "INFO", parseLogLevel("").String())
	assert.Equal(t, "INFO", parseLogLevel("weird").String())
}
