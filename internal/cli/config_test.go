package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	writeFile(t, path, `indent: "    "
max_blank_lines: 2
final_newline: false
language_dir: docs
cache: /var/cache/shapefmt.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Indent)
	assert.Equal(t, "    ", *cfg.Indent)
	require.NotNil(t, cfg.MaxBlankLines)
	assert.Equal(t, 2, *cfg.MaxBlankLines)
	require.NotNil(t, cfg.FinalNewline)
	assert.False(t, *cfg.FinalNewline)
	assert.Equal(t, filepath.Join(dir, "docs"), cfg.LanguageDir)
	assert.Equal(t, "/var/cache/shapefmt.db", cfg.Cache)
}

func TestLoadConfig_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	writeFile(t, path, "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Indent)
	assert.Nil(t, cfg.MaxBlankLines)
	assert.Nil(t, cfg.FinalNewline)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "indnet: 2\n", "field indnet not found"},
		{"negative max", "max_blank_lines: -1\n", "must not be negative"},
		{"wrong type", "max_blank_lines: many\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultConfigFile)
			writeFile(t, path, tt.content)

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestFindConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := findConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)

	writeFile(t, filepath.Join(dir, DefaultConfigFile), "max_blank_lines: 0\n")
	cfg, err = findConfig("", dir)
	require.NoError(t, err)
	require.NotNil(t, cfg.MaxBlankLines)
	assert.Equal(t, 0, *cfg.MaxBlankLines)

	other := filepath.Join(t.TempDir(), "other.yaml")
	writeFile(t, other, `indent: "\t"`+"\n")
	cfg, err = findConfig(other, dir)
	require.NoError(t, err)
	assert.Nil(t, cfg.MaxBlankLines, "an explicit config replaces the default one")
	require.NotNil(t, cfg.Indent)
	assert.Equal(t, "\t", *cfg.Indent)
}
