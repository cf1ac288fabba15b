package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything written to it. Commands under cmd/tk print with fmt.Printf
// straight to os.Stdout rather than through cobra's OutOrStdout, so this
// is the only way to observe their output in a test.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

// withTempConfig points the config singleton's transcript root and config
// directory at fresh temp dirs, seeding one transcript file.
func withTempConfig(t *testing.T) {
	t.Helper()
	transcriptRoot := t.TempDir()
	dir := filepath.Join(transcriptRoot, "projects", "-tmp-a")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1.jsonl"), []byte(testSessionBody), 0644))

	configHome := t.TempDir()
	t.Setenv("TK_TRANSCRIPT_ROOT", transcriptRoot)
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("HOME", configHome)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var runErr error
	out := captureStdout(t, func() {
		rootCmd.SetArgs(args)
		runErr = rootCmd.Execute()
	})
	return out, runErr
}

func TestSyncCommandIndexesSeededTranscript(t *testing.T) {
	withTempConfig(t)
	out, err := runCLI(t, "sync")
	require.NoError(t, err)
	require.Contains(t, out, "added 1")
}

func TestStatsCommandReportsCountsAfterSync(t *testing.T) {
	withTempConfig(t)
	_, err := runCLI(t, "sync")
	require.NoError(t, err)

	out, err := runCLI(t, "stats")
	require.NoError(t, err)
	require.Contains(t, out, "sessions: 1")
}

func TestDoctorCommandRunsRepairPassesWithoutError(t *testing.T) {
	withTempConfig(t)
	_, err := runCLI(t, "sync")
	require.NoError(t, err)

	out, err := runCLI(t, "doctor")
	require.NoError(t, err)
	require.Contains(t, out, "scratch-dirs")
	require.Contains(t, out, "cwd-fields")
	require.Contains(t, out, "missing-index")
}

func TestResumeCommandDryRunPrintsDescriptorWithoutSpawning(t *testing.T) {
	withTempConfig(t)
	_, err := runCLI(t, "sync")
	require.NoError(t, err)

	out, err := runCLI(t, "resume", "s1", "--dry-run", "--command", "echo")
	require.NoError(t, err)
	require.Contains(t, out, "echo")
	require.Contains(t, out, "--resume s1")
}

func TestDoctorMigrationsCommandListsMigrations(t *testing.T) {
	withTempConfig(t)
	out, err := runCLI(t, "doctor", "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
