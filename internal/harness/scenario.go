package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a set of inputs in one
// language, formatted with one pattern document, and the outcome expected
// for each.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Language is the language id every case is formatted as.
	Language string `yaml:"language"`

	// Document is an optional path to a pattern document. Relative paths
	// are resolved against the scenario file's directory. When empty the
	// language's regular document is used.
	Document string `yaml:"document,omitempty"`

	// Settings override the formatter's render settings.
	Settings *Settings `yaml:"settings,omitempty"`

	// Cases are formatted in order, each by a fresh formatter.
	Cases []Case `yaml:"cases"`
}

// Settings mirrors the formatter options a scenario may pin.
type Settings struct {
	Indent        *string `yaml:"indent,omitempty"`
	MaxBlankLines *int    `yaml:"max_blank_lines,omitempty"`
	FinalNewline  bool    `yaml:"final_newline,omitempty"`
}

// Case is one input and its expected outcome.
type Case struct {
	Name string `yaml:"name"`

	// Input is the source text to format.
	Input string `yaml:"input"`

	// Expect is the exact expected output. If nil, only assertions apply.
	Expect *string `yaml:"expect,omitempty"`

	// Error is the expected error kind (e.g. "PARSING"). Mutually
	// exclusive with Expect.
	Error string `yaml:"error,omitempty"`

	// Assertions are checked against the output of a successful format.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates a property of a case's output.
type Assertion struct {
	// Type specifies the assertion type:
	// - "idempotent": formatting the output again leaves it unchanged
	// - "preserves_text": output and input agree once whitespace is removed
	// - "max_blank_lines": no run of empty lines longer than Value
	// - "contains": output contains Value
	Type string `yaml:"type"`

	// Value is the assertion argument (used by max_blank_lines, contains).
	Value string `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertIdempotent    = "idempotent"
	AssertPreservesText = "preserves_text"
	AssertMaxBlankLines = "max_blank_lines"
	AssertContains      = "contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative document path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) {
		scenario.Document = filepath.Join(filepath.Dir(path), scenario.Document)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Document paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Language == "" {
		return fmt.Errorf("language is required")
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	if s.Settings != nil && s.Settings.MaxBlankLines != nil && *s.Settings.MaxBlankLines < 0 {
		return fmt.Errorf("settings.max_blank_lines must not be negative")
	}

	names := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		names[c.Name] = true

		if c.Expect != nil && c.Error != "" {
			return fmt.Errorf("case %q: expect and error are mutually exclusive", c.Name)
		}
		if c.Error != "" && len(c.Assertions) > 0 {
			return fmt.Errorf("case %q: assertions need a successful format, but error is set", c.Name)
		}
		for j, a := range c.Assertions {
			if err := validateAssertion(a); err != nil {
				return fmt.Errorf("case %q: assertions[%d]: %w", c.Name, j, err)
			}
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertIdempotent, AssertPreservesText:
		return nil
	case AssertMaxBlankLines:
		if _, err := parseCount(a.Value); err != nil {
			return err
		}
		return nil
	case AssertContains:
		if a.Value == "" {
			return fmt.Errorf("contains requires a value")
		}
		return nil
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
