package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/aretw0/nkas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeADB = `#!/bin/sh
echo "$@" >> "$FAKE_ADB_LOG"
case "$FAKE_ADB_MODE" in
  unauthorized) echo "error: device unauthorized." >&2; exit 1 ;;
esac
case "$*" in
  *dumpsys*) echo "  mCurrentFocus=Window{1 u0 com.proximabeta.nikke/com.shiftup.nk.MainActivity}" ;;
esac
`

// setup writes a fake adb and a configuration using it, and returns the config path and call log.
func setup(t *testing.T, mode string) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb is a POSIX shell script")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "adb")
	require.NoError(t, os.WriteFile(exe, []byte(fakeADB), 0o755))
	logPath := filepath.Join(dir, "calls.log")
	t.Setenv("FAKE_ADB_LOG", logPath)
	t.Setenv("FAKE_ADB_MODE", mode)

	cfg := fmt.Sprintf(`lock_dir: %s
profiles:
  nkas:
    serial: emulator-5554
    adb: %s
    control_method: ADB
    retry:
      tries: 2
`, filepath.Join(dir, "locks"), exe)
	path := filepath.Join(dir, "nkas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, logPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func calls(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestTap(t *testing.T) {
	path, logPath := setup(t, "ok")

	_, err := run(t, "tap", "10", "20", "--config", path)

	require.NoError(t, err)
	assert.Equal(t, []string{"-s emulator-5554 shell input tap 10 20"}, calls(t, logPath))
}

func TestSwipeBelowMinimumSendsNothing(t *testing.T) {
	path, logPath := setup(t, "ok")

	_, err := run(t, "swipe", "10", "20", "12", "22", "--config", path)

	require.NoError(t, err)
	assert.NoFileExists(t, logPath)
}

func TestAppStatus(t *testing.T) {
	path, _ := setup(t, "ok")

	out, err := run(t, "app", "status", "--config", path)

	require.NoError(t, err)
	assert.Equal(t, "com.proximabeta.nikke: running (foreground: com.proximabeta.nikke)\n", out)
}

func TestUnauthorizedDeviceIsTakeover(t *testing.T) {
	path, logPath := setup(t, "unauthorized")

	_, err := run(t, "tap", "10", "20", "--config", path)

	require.ErrorIs(t, err, domain.ErrHumanTakeover)
	assert.Len(t, calls(t, logPath), 1, "fatal failures are not retried")
	assert.Equal(t, exitTakeover, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitError, exitCode(errors.New("bad flag")))
	assert.Equal(t, exitTakeover, exitCode(&domain.TakeoverError{Op: "tap", Last: domain.Transient, Err: errors.New("closed")}))
}
