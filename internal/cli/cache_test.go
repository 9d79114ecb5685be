package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/store"
)

type cacheListResponse struct {
	Status string        `json:"status"`
	Data   []store.Entry `json:"data"`
}

func listCachedPaths(t *testing.T, args ...string) []string {
	t.Helper()
	out, _, err := runCLI(t, "", append([]string{"--format", "json", "cache", "list"}, args...)...)
	require.NoError(t, err, out)

	var resp cacheListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)

	paths := []string{}
	for _, e := range resp.Data {
		paths = append(paths, e.Path)
	}
	return paths
}

func TestCache_ListAndForget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	a, b := filepath.Join(src, "a.stmt"), filepath.Join(src, "b.stmt")
	db := filepath.Join(dir, "cache.db")
	writeFile(t, a, "a;b;")
	writeFile(t, b, "c;")

	_, _, err := runCLI(t, "", "fmt", "--cache", db, src)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{a, b}, listCachedPaths(t, "--cache", db))

	out, _, err := runCLI(t, "", "cache", "list", "--cache", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, a)

	out, _, err = runCLI(t, "", "cache", "forget", "--cache", db, a)
	require.NoError(t, err)
	assert.Contains(t, out, "Forgot 1 path(s)")
	assert.Equal(t, []string{b}, listCachedPaths(t, "--cache", db))
}

func TestCache_FromConfig(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")
	s, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	config := filepath.Join(dir, "config.yaml")
	writeFile(t, config, "cache: "+db+"\n")

	out, _, err := runCLI(t, "", "cache", "list", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache is empty.")
}

func TestCache_Errors(t *testing.T) {
	_, _, err := runCLI(t, "", "cache", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInvalidArgs)

	missing := filepath.Join(t.TempDir(), "missing.db")
	_, _, err = runCLI(t, "", "cache", "list", "--cache", missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.NoFileExists(t, missing)

	_, _, err = runCLI(t, "", "cache", "forget", "--cache", missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestFmt_CacheForgetsFailedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src", "a.stmt")
	db := filepath.Join(dir, "cache.db")
	writeFile(t, path, "a;b;")

	_, _, err := runCLI(t, "", "fmt", "--cache", db, path)
	require.NoError(t, err)
	require.Equal(t, []string{path}, listCachedPaths(t, "--cache", db))

	writeFile(t, path, "}")
	_, _, err = runCLI(t, "", "fmt", "--cache", db, path)
	require.Error(t, err)
	assert.Empty(t, listCachedPaths(t, "--cache", db))
}
