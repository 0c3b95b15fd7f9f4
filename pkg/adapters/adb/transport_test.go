package adb_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/nkas/pkg/adapters/adb"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeADB = `#!/bin/sh
echo "$@" >> "$FAKE_ADB_LOG"
case "$FAKE_ADB_MODE" in
  ok) echo "out: $*" ;;
  offline) echo "error: device offline" >&2; exit 1 ;;
  unauthorized) echo "error: device unauthorized." >&2; exit 1 ;;
  garbled) echo "something odd happened" >&2; exit 2 ;;
  device-missing) echo "adb: device 'emulator-5554' not found" >&2; exit 1 ;;
  no-devices) echo "adb: no devices/emulators found" >&2; exit 1 ;;
  command-missing) echo "/system/bin/sh: minitouch: not found" >&2; exit 127 ;;
  slow) exec sleep 5 ;;
  connect-ok) if [ "$1" = "connect" ]; then echo "connected to $2"; fi ;;
  connect-fail) if [ "$1" = "connect" ]; then echo "failed to connect to $2"; fi ;;
esac
`

// setupFakeADB writes a shell script standing in for adb and returns its path and call log.
func setupFakeADB(t *testing.T, mode string) (string, string) {
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
	return exe, logPath
}

func readCalls(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestTransport_ShellSuccess(t *testing.T) {
	exe, logPath := setupFakeADB(t, "ok")
	tr := adb.New("emulator-5554", adb.WithExecutable(exe))

	out, err := tr.Execute(context.Background(), domain.Tap(domain.Pt(10, 20)))

	require.NoError(t, err)
	assert.Equal(t, "out: -s emulator-5554 shell input tap 10 20\n", string(out))
	assert.Equal(t, []string{"-s emulator-5554 shell input tap 10 20"}, readCalls(t, logPath))
}

func TestTransport_ExecOutAndForward(t *testing.T) {
	exe, logPath := setupFakeADB(t, "ok")
	tr := adb.New("emulator-5554", adb.WithExecutable(exe))

	_, err := tr.ExecOut(context.Background(), "screencap", "-p")
	require.NoError(t, err)
	require.NoError(t, tr.Forward(context.Background(), "tcp:1111", "localabstract:minitouch"))

	assert.Equal(t, []string{
		"-s emulator-5554 exec-out screencap -p",
		"-s emulator-5554 forward tcp:1111 localabstract:minitouch",
	}, readCalls(t, logPath))
}

func TestTransport_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		mode string
		want domain.FailureClass
	}{
		{"offline", domain.Transient},
		{"unauthorized", domain.Fatal},
		{"garbled", domain.Protocol},
		{"device-missing", domain.Transient},
		{"no-devices", domain.Transient},
		{"command-missing", domain.Protocol},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			exe, _ := setupFakeADB(t, tt.mode)
			tr := adb.New("emulator-5554", adb.WithExecutable(exe))

			_, err := tr.Shell(context.Background(), "input", "tap", "1", "1")

			require.Error(t, err)
			assert.Equal(t, tt.want, domain.Classify(err))
		})
	}
}

func TestTransport_TimeoutIsTransient(t *testing.T) {
	exe, _ := setupFakeADB(t, "slow")
	tr := adb.New("emulator-5554", adb.WithExecutable(exe), adb.WithTimeout(100*time.Millisecond))

	start := time.Now()
	_, err := tr.Shell(context.Background(), "input", "tap", "1", "1")

	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, domain.Transient, domain.Classify(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransport_MissingExecutableIsFatal(t *testing.T) {
	tr := adb.New("emulator-5554", adb.WithExecutable(filepath.Join(t.TempDir(), "missing-adb")))

	_, err := tr.Shell(context.Background(), "true")

	assert.Equal(t, domain.Fatal, domain.Classify(err))
}

func TestTransport_ReconnectNetworkSerial(t *testing.T) {
	exe, logPath := setupFakeADB(t, "connect-ok")
	tr := adb.New("127.0.0.1:5555", adb.WithExecutable(exe))

	require.NoError(t, tr.Reconnect(context.Background()))

	assert.Equal(t, int64(1), tr.Reconnects())
	assert.Equal(t, []string{"disconnect 127.0.0.1:5555", "connect 127.0.0.1:5555"}, readCalls(t, logPath))
}

func TestTransport_ReconnectFailureReportedOnStdout(t *testing.T) {
	exe, _ := setupFakeADB(t, "connect-fail")
	tr := adb.New("127.0.0.1:5555", adb.WithExecutable(exe))

	err := tr.Reconnect(context.Background())

	require.Error(t, err)
	assert.Equal(t, domain.Transient, domain.Classify(err))
	assert.Equal(t, int64(1), tr.Reconnects())
}

func TestTransport_ReconnectUSBSerial(t *testing.T) {
	exe, logPath := setupFakeADB(t, "ok")
	tr := adb.New("R58M123ABC", adb.WithExecutable(exe))

	require.NoError(t, tr.Reconnect(context.Background()))
	assert.Equal(t, []string{"-s R58M123ABC reconnect"}, readCalls(t, logPath))
}
