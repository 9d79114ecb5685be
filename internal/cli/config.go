package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when --config is
// not given.
const DefaultConfigFile = ".shapefmt.yaml"

// Config is the optional project configuration file. Flags given on the
// command line take precedence over every field.
type Config struct {
	Indent        *string `yaml:"indent,omitempty"`
	MaxBlankLines *int    `yaml:"max_blank_lines,omitempty"`
	FinalNewline  *bool   `yaml:"final_newline,omitempty"`

	// LanguageDir holds pattern documents; relative to the config file.
	LanguageDir string `yaml:"language_dir,omitempty"`

	// Cache is the format cache database; relative to the config file.
	Cache string `yaml:"cache,omitempty"`
}

// LoadConfig reads a config file, rejecting unknown fields. Relative
// paths inside it are resolved against the file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cfg.MaxBlankLines != nil && *cfg.MaxBlankLines < 0 {
		return nil, fmt.Errorf("%s: max_blank_lines must not be negative", path)
	}

	base := filepath.Dir(path)
	if cfg.LanguageDir != "" && !filepath.IsAbs(cfg.LanguageDir) {
		cfg.LanguageDir = filepath.Join(base, cfg.LanguageDir)
	}
	if cfg.Cache != "" && !filepath.IsAbs(cfg.Cache) {
		cfg.Cache = filepath.Join(base, cfg.Cache)
	}
	return &cfg, nil
}

// findConfig loads the explicit config file, or DefaultConfigFile in dir
// if it exists. It returns an empty Config when there is none.
func findConfig(explicit, dir string) (*Config, error) {
	if explicit != "" {
		return LoadConfig(explicit)
	}
	path := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return LoadConfig(path)
}
