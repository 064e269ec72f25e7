package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogers-f/phasebook/internal/document"
	"github.com/rogers-f/phasebook/internal/domain"
)

// testEnv writes a config pointing at a temp database and clears host
// variables that would override it.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{"API_KEY", "PHASEBOOK_CONFIG", "PHASEBOOK_PROVIDER_API_KEY", "PHASEBOOK_DB_PATH", "PHASEBOOK_EPHEMERAL"} {
		t.Setenv(k, "")
	}
	cfg := "db_path: " + filepath.Join(dir, "phasebook.db") + "\n" +
		"export_dir: " + filepath.Join(dir, "exports") + "\n" +
		"log_level: error\n"
	path := filepath.Join(dir, "phasebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestStatus_FreshWorkflow(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Software Engineering Workflow")
	assert.Contains(t, out, "> ")
	assert.Contains(t, out, "[fase1]")
	assert.Contains(t, out, "0/4 phases completed")
}

func TestWorkflowAcrossInvocations(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "begin", "fase1")
	require.NoError(t, err)
	assert.Equal(t, "fase1: in-progress\n", out)

	out, err = run(t, cfg, "record", "fase1", "--input", "a todo app", "--output", "plan", "--complete")
	require.NoError(t, err)
	assert.Equal(t, "fase1: completed (current: fase2)\n", out)

	out, err = run(t, cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "1/4 phases completed")
	lines := strings.Split(out, "\n")
	var currentLine string
	for _, l := range lines {
		if strings.HasPrefix(l, "> ") {
			currentLine = l
		}
	}
	assert.Contains(t, currentLine, "[fase2]")

	out, err = run(t, cfg, "select", "fase4")
	require.NoError(t, err)
	assert.Equal(t, "Current phase: fase4\n", out)

	out, err = run(t, cfg, "show", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "(current)")

	out, err = run(t, cfg, "show", "fase1", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "a todo app")
	assert.Contains(t, out, "plan")
}

func TestComplete_RequiresContent(t *testing.T) {
	cfg := testEnv(t)

	_, err := run(t, cfg, "complete", "fase2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCompletionGateFailed))

	_, err = run(t, cfg, "record", "fase2", "--input", "needs")
	require.NoError(t, err)

	out, err := run(t, cfg, "complete", "fase2")
	require.NoError(t, err)
	assert.Equal(t, "fase2: completed (current: fase3)\n", out)
}

func TestGenerate_WithoutAPIKey(t *testing.T) {
	cfg := testEnv(t)

	_, err := run(t, cfg, "generate", "fase1", "help", "me")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
	assert.Contains(t, err.Error(), "Please set the API_KEY environment variable.")

	_, err = run(t, cfg, "generate", "fase1")
	assert.True(t, errors.Is(err, domain.ErrEmptyInstruction))
}

func TestUnknownPhase(t *testing.T) {
	cfg := testEnv(t)

	for _, args := range [][]string{{"select", "nope"}, {"begin", "nope"}, {"show", "nope"}, {"complete", "nope"}} {
		_, err := run(t, cfg, args...)
		assert.True(t, errors.Is(err, domain.ErrPhaseNotFound), "%v: %v", args, err)
	}
}

func TestExport(t *testing.T) {
	cfg := testEnv(t)
	dir := t.TempDir()

	out, err := run(t, cfg, "export", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, document.FileName))

	data, err := os.ReadFile(filepath.Join(dir, document.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ADDITIONAL CONSIDERATIONS")
}

func TestEvents(t *testing.T) {
	cfg := testEnv(t)

	_, err := run(t, cfg, "begin", "fase1")
	require.NoError(t, err)

	out, err := run(t, cfg, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "hydrated")
	assert.Contains(t, out, "interaction_begun")
}

func TestEphemeral(t *testing.T) {
	cfg := testEnv(t)

	_, err := run(t, cfg, "--ephemeral", "record", "fase1", "--input", "x", "--complete")
	require.NoError(t, err)

	out, err := run(t, cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "0/4 phases completed", "ephemeral run leaked into the database")

	out, err = run(t, cfg, "--ephemeral", "events")
	require.NoError(t, err)
	assert.Equal(t, "(no events)\n", out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "unused.yaml", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "phasebook dev"))
}
