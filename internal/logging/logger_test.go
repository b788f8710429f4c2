package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func withStateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_STATE_HOME", dir)
	xdg.Reload()
	return dir
}

func TestResolveLogPathUsesXDGStateHome(t *testing.T) {
	stateHome := withStateHome(t)
	require.Equal(t, filepath.Join(stateHome, "presto", "log.jsonl"), resolveLogPath())
}

func TestLevel(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, Level(0))
	require.Equal(t, zerolog.DebugLevel, Level(1))
	require.Equal(t, zerolog.TraceLevel, Level(2))
	require.Equal(t, zerolog.TraceLevel, Level(5))
}

func TestNewCreatesWritableJSONLogFile(t *testing.T) {
	withStateHome(t)

	runtime, err := New(0, nil)
	require.NoError(t, err)

	runtime.Logger.Info().Str("component", "logging").Msg("unit-test-log")
	runtime.Logger.Debug().Msg("hidden-at-info")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"message":"unit-test-log"`)
	require.Contains(t, string(contents), `"component":"logging"`)
	require.NotContains(t, string(contents), "hidden-at-info")

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())

	dir, err := os.Stat(filepath.Dir(runtime.Path))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), dir.Mode().Perm())
}

func TestNewMirrorsToConsole(t *testing.T) {
	withStateHome(t)

	var console bytes.Buffer
	runtime, err := New(1, &console)
	require.NoError(t, err)
	t.Cleanup(func() { _ = runtime.Close() })

	runtime.Logger.Debug().Msg("mirrored")
	require.Contains(t, console.String(), "mirrored")
}
