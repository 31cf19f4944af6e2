package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treefix50/watchtrack/internal/auth"
	"github.com/treefix50/watchtrack/internal/progress"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("MEDIA_ROOT", "")
	t.Setenv("LOG_LEVEL", "error")

	manifest := filepath.Join(dir, "videos.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
- id: intro
  title: Intro
  duration: 100
`), 0o644))
	t.Setenv("CATALOG_FILE", manifest)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportExportShow(t *testing.T) {
	dir := setupEnv(t)

	export := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(export, []byte(
		`{"intro":{"watchedIntervals":[{"start":10,"end":20},{"start":0,"end":15}],"lastPosition":18,"progress":3}}`,
	), 0o644))

	_, err := run(t, "import", export)
	require.NoError(t, err)

	out, err := run(t, "export")
	require.NoError(t, err)
	var states map[string]progress.State
	require.NoError(t, json.Unmarshal([]byte(out), &states))
	assert.Equal(t, progress.WatchedSet{{Start: 0, End: 20}}, states["intro"].WatchedIntervals)
	assert.Equal(t, 18.0, states["intro"].LastPosition)

	out, err = run(t, "show", "intro")
	require.NoError(t, err)
	var view progress.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 20, view.Progress)
	assert.Equal(t, 20, view.UniqueSeconds)

	_, err = run(t, "show", "missing")
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	dir := setupEnv(t)
	target := filepath.Join(dir, "out.json")

	_, err := run(t, "export", target)
	require.NoError(t, err)
	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestImport_RejectsMalformedExport(t *testing.T) {
	dir := setupEnv(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2]`), 0o644))

	_, err := run(t, "import", bad)
	assert.Error(t, err)
}

func TestHashKey(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "hash-key", "--key", "s3cret")
	require.NoError(t, err)

	var hash string
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "API_KEY_HASH: "); ok {
			hash = v
		}
	}
	require.NotEmpty(t, hash)
	assert.True(t, auth.VerifyKey("s3cret", hash))
}

func TestDBCommands(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("STORE_BACKEND", "sqlite")

	// creating the store runs the migrations
	_, err := run(t, "export")
	require.NoError(t, err)

	out, err := run(t, "db", "check")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	target := filepath.Join(dir, "copy.db")
	_, err = run(t, "db", "vacuum", target)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestDBCommands_RequireSQLite(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "db", "check")
	assert.Error(t, err)
}
