package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/language"
)

func TestLanguages_Text(t *testing.T) {
	out, _, err := runCLI(t, "", "languages")
	require.NoError(t, err)

	assert.Contains(t, out, "LANGUAGE")
	assert.Contains(t, out, "languages/rust.cue")
	assert.Contains(t, out, ".sh .bash")
	assert.Contains(t, out, "bundled")
}

func TestLanguages_JSON(t *testing.T) {
	out, _, err := runCLI(t, "", "--format", "json", "languages")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []LanguageInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, len(language.All()))

	for _, info := range resp.Data {
		assert.Equal(t, "bundled", info.Origin, info.ID)
		assert.True(t, info.Grammar, "%s has no grammar", info.ID)
		assert.Empty(t, info.Error)
	}
}

func TestLanguages_DirOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "toml.cue"), "")

	out, _, err := runCLI(t, "", "--format", "json", "languages", "--language-dir", dir)
	require.NoError(t, err)

	var resp struct {
		Data []LanguageInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	for _, info := range resp.Data {
		if info.ID == "toml" {
			assert.Equal(t, "dir", info.Origin)
			assert.Equal(t, filepath.Join(dir, "toml.cue"), info.Document)
		} else {
			assert.Equal(t, "bundled", info.Origin)
		}
	}
}
