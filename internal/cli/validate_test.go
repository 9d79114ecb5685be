package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/compiler"
	"github.com/roach88/shapefmt/internal/language"
)

const shadowedDocument = `
language: "stmt"
rules: [
	{ name: "a", match: { kind: "x", capture: "n" }, apply: n: ["append_space"] },
	{ name: "b", match: { kind: "x", capture: "n" }, apply: n: ["prepend_space"] },
]
`

const brokenDocument = `
rules: [
	{ name: "bad", match: { kind: "statement", capture: "s" }, apply: x: ["delete"] },
]
`

type validateResponse struct {
	Status string           `json:"status"`
	Data   ValidationResult `json:"data"`
	Error  *CLIError        `json:"error"`
}

func TestValidate_BundledDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range language.Bundled() {
		data, err := language.ReadBundled(name)
		require.NoError(t, err)
		writeFile(t, filepath.Join(dir, name), string(data))
	}

	out, _, err := runCLI(t, "", "validate", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ All documents valid")
	assert.Contains(t, out, "stmt.cue (stmt, ")
}

func TestValidate_SingleFileWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadow.cue")
	writeFile(t, path, shadowedDocument)

	out, _, err := runCLI(t, "", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+path+" (stmt, 2 rule(s))")
	assert.Contains(t, out, compiler.WarnShadowed+" b:")
	assert.Contains(t, out, "✓ All documents valid (1 warning(s))")
}

func TestValidate_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_good.cue"), shadowedDocument)
	broken := filepath.Join(dir, "b_broken.cue")
	writeFile(t, broken, brokenDocument)

	out, _, err := runCLI(t, "", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+broken)
	assert.Contains(t, out, compiler.ErrUnboundCapture)
	assert.Contains(t, out, "✗ Validation failed: 1 error(s)")
}

func TestValidate_ErrorsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	writeFile(t, path, brokenDocument)

	out, _, err := runCLI(t, "", "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrUnboundCapture, resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Errors)
	require.Len(t, resp.Data.Documents, 1)
	assert.False(t, resp.Data.Documents[0].Valid)
}

func TestValidate_ValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadow.cue")
	writeFile(t, path, shadowedDocument)

	out, _, err := runCLI(t, "", "--format", "json", "validate", path)
	require.NoError(t, err)

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Warnings)
	assert.Equal(t, 2, resp.Data.Documents[0].Rules)
}

func TestValidate_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing path", filepath.Join(t.TempDir(), "missing"), ErrCodeNotFound},
		{"no cue files", t.TempDir(), ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, "", "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
		})
	}
}

func TestValidate_MissingArgs(t *testing.T) {
	_, _, err := runCLI(t, "", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.cue"), "")
	writeFile(t, filepath.Join(dir, "nested", "a.cue"), "")
	writeFile(t, filepath.Join(dir, "notes.md"), "")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "nested", "a.cue"),
		filepath.Join(dir, "z.cue"),
	}, files)
}
