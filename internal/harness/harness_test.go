package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/grammar"
	"github.com/roach88/shapefmt/internal/grammar/stmt"
)

func strPtr(s string) *string { return &s }

func stmtScenario(cases ...Case) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Language:    "stmt",
		Cases:       cases,
	}
}

func TestRun_ExpectedOutput(t *testing.T) {
	scenario := stmtScenario(
		Case{Name: "pass", Input: "a;b;", Expect: strPtr("a;\nb;")},
		Case{Name: "mismatch", Input: "a;b;", Expect: strPtr("a; b;")},
	)

	result, err := Run(scenario, stmt.Parser{})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Cases, 2)
	assert.True(t, result.Cases[0].Pass)
	assert.Equal(t, "a;\nb;", result.Cases[0].Output)

	assert.False(t, result.Cases[1].Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "mismatch: output mismatch")
	assert.Contains(t, result.Errors[0], "-a; b;")
	assert.Contains(t, result.Errors[0], "+a;")
}

func TestRun_ExpectedErrors(t *testing.T) {
	scenario := stmtScenario(
		Case{Name: "parse", Input: "}", Error: "PARSING"},
		Case{Name: "wrong-kind", Input: "}", Error: "QUERY"},
		Case{Name: "unexpected", Input: "a{"},
		Case{Name: "missing", Input: "a;", Error: "PARSING"},
	)

	result, err := Run(scenario, stmt.Parser{})
	require.NoError(t, err)
	require.Len(t, result.Cases, 4)

	assert.True(t, result.Cases[0].Pass)
	assert.Equal(t, "PARSING", result.Cases[0].ErrorKind)

	assert.False(t, result.Cases[1].Pass)
	assert.Contains(t, result.Cases[1].Errors[0], "expected QUERY error, got PARSING")

	assert.False(t, result.Cases[2].Pass)
	assert.Contains(t, result.Cases[2].Errors[0], "unexpected PARSING error")

	assert.False(t, result.Cases[3].Pass)
	assert.Equal(t, "a;", result.Cases[3].Output)
	assert.Contains(t, result.Cases[3].Errors[0], "formatting succeeded")

	assert.Len(t, result.Errors, 3)
}

func TestRun_Assertions(t *testing.T) {
	scenario := stmtScenario(
		Case{Name: "ok", Input: "a{b;}", Assertions: []Assertion{
			{Type: AssertIdempotent},
			{Type: AssertPreservesText},
			{Type: AssertContains, Value: "  b;"},
		}},
		Case{Name: "dropped", Input: ";a;", Assertions: []Assertion{
			{Type: AssertPreservesText},
			{Type: AssertContains, Value: "zzz"},
		}},
	)

	result, err := Run(scenario, stmt.Parser{})
	require.NoError(t, err)
	require.Len(t, result.Cases, 2)

	assert.True(t, result.Cases[0].Pass, result.Cases[0].Errors)
	require.Len(t, result.Cases[1].Errors, 2)
	assert.Contains(t, result.Cases[1].Errors[0], "Assertion failed: preserves_text")
	assert.Contains(t, result.Cases[1].Errors[1], "Assertion failed: contains")
}

func TestRun_Settings(t *testing.T) {
	indent := "\t"
	scenario := stmtScenario(Case{Name: "tabs", Input: "a{b;}", Expect: strPtr("a {\n\tb;\n}\n")})
	scenario.Settings = &Settings{Indent: &indent, FinalNewline: true}

	result, err := Run(scenario, stmt.Parser{})
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ScenarioDocument(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "words.cue")
	require.NoError(t, os.WriteFile(doc, []byte(`
version: 1
language: "stmt"
rules: [{
	match: {kind: "identifier", capture: "w"}
	apply: w: "append_hardline"
}]
`), 0644))

	scenario := stmtScenario(Case{Name: "split", Input: "a b;", Expect: strPtr("a\nb\n;")})
	scenario.Document = doc

	result, err := Run(scenario, stmt.Parser{})
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_SetupErrors(t *testing.T) {
	t.Run("unknown language", func(t *testing.T) {
		scenario := stmtScenario(Case{Name: "a", Input: "a;"})
		scenario.Language = "cobol"
		_, err := Run(scenario, stmt.Parser{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to resolve language")
	})

	t.Run("missing document", func(t *testing.T) {
		scenario := stmtScenario(Case{Name: "a", Input: "a;"})
		scenario.Document = filepath.Join(t.TempDir(), "missing.cue")
		_, err := Run(scenario, stmt.Parser{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load pattern document")
	})

	t.Run("document for another language", func(t *testing.T) {
		doc := filepath.Join(t.TempDir(), "toml.cue")
		require.NoError(t, os.WriteFile(doc, []byte("version: 1\nlanguage: \"toml\"\nrules: []\n"), 0644))
		scenario := stmtScenario(Case{Name: "a", Input: "a;"})
		scenario.Document = doc
		_, err := Run(scenario, stmt.Parser{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `is for language "toml"`)
	})
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/stmt_basics.yaml")
	require.NoError(t, err)

	first, err := Run(scenario, grammar.NewRegistry())
	require.NoError(t, err)
	second, err := Run(scenario, grammar.NewRegistry())
	require.NoError(t, err)

	assert.Equal(t, first.Snapshot(), second.Snapshot())
}

func TestSnapshot(t *testing.T) {
	r := NewResult()
	r.AddCase(CaseResult{Name: "ok", Pass: true, Output: "a;"})
	r.AddCase(CaseResult{Name: "bad", Pass: true, ErrorKind: "PARSING"})
	r.AddCase(CaseResult{Name: "empty", Pass: true})

	assert.Equal(t, "=== ok\na;\n=== bad\nerror: PARSING\n=== empty\n\n", string(r.Snapshot()))
	assert.True(t, r.Pass)
}
