package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeShadowing_NoWarnings(t *testing.T) {
	doc, err := compile(t, `
		rules: [
			{ name: "a", match: { kind: "statement", text: "x;", capture: "s" }, apply: s: ["delete"] },
			{ name: "b", match: { kind: "statement", capture: "s" }, apply: s: ["append_hardline"] },
		]
	`)
	require.NoError(t, err)

	// A constrained rule does not shadow a later rule of the same kind.
	assert.Empty(t, AnalyzeShadowing(doc))
}

func TestAnalyzeShadowing_SameKind(t *testing.T) {
	doc, err := compile(t, `
		rules: [
			{ name: "first", match: { kind: "statement", capture: "s" }, apply: s: ["append_hardline"] },
			{ name: "second", match: { kind: "statement", text: "a;", capture: "s" }, apply: s: ["delete"] },
			{ name: "other", match: { kind: "block", capture: "b" }, apply: b: ["append_space"] },
		]
	`)
	require.NoError(t, err)

	warnings := AnalyzeShadowing(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, "second", warnings[0].Rule)
	assert.Equal(t, "first", warnings[0].ShadowedBy)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, `every "statement" node`)
}

func TestAnalyzeShadowing_Wildcard(t *testing.T) {
	doc, err := compile(t, `
		rules: [
			{ name: "any", match: { kind: "_", capture: "n" }, apply: n: ["append_space"] },
			{ name: "stmt", match: { kind: "statement", capture: "s" }, apply: s: ["delete"] },
		]
	`)
	require.NoError(t, err)

	warnings := AnalyzeShadowing(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, "stmt", warnings[0].Rule)
	assert.Equal(t, "any", warnings[0].ShadowedBy)
}

func TestAnalyzeShadowing_DuplicateNames(t *testing.T) {
	doc, err := compile(t, `
		rules: [
			{ name: "dup", match: { kind: "a", capture: "n" }, apply: n: ["append_space"] },
			{ name: "dup", match: { kind: "b", capture: "n" }, apply: n: ["append_space"] },
		]
	`)
	require.NoError(t, err)

	warnings := AnalyzeShadowing(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "rules[0] and rules[1]")
}

func TestValidateDocumentBytes(t *testing.T) {
	t.Run("collects errors and warnings", func(t *testing.T) {
		doc, diags := ValidateDocumentBytes("doc.cue", []byte(`
			rules: [
				{ name: "claim-only", match: { kind: "comment" } },
				{ name: "bad", match: { kind: "statement", capture: "s" }, apply: x: ["delete"] },
			]
		`))
		assert.Nil(t, doc)
		require.Len(t, diags, 3)
		assert.Equal(t, WarnNoActions, diags[0].Code)
		assert.Equal(t, "warning", diags[0].Severity)
		assert.Equal(t, ErrUnboundCapture, diags[1].Code)
		assert.Equal(t, "error", diags[1].Severity)
		assert.Equal(t, WarnUnusedCapture, diags[2].Code)
	})

	t.Run("structural failure", func(t *testing.T) {
		doc, diags := ValidateDocumentBytes("doc.cue", []byte(`rules: [{ match: { kind: 3 } }]`))
		assert.Nil(t, doc)
		require.Len(t, diags, 1)
		assert.Equal(t, "error", diags[0].Severity)
	})

	t.Run("valid with shadow warning", func(t *testing.T) {
		doc, diags := ValidateDocumentBytes("doc.cue", []byte(`
			rules: [
				{ name: "a", match: { kind: "x", capture: "n" }, apply: n: ["append_space"] },
				{ name: "b", match: { kind: "x", capture: "n" }, apply: n: ["prepend_space"] },
			]
		`))
		require.NotNil(t, doc)
		require.Len(t, diags, 1)
		assert.Equal(t, WarnShadowed, diags[0].Code)
		assert.Equal(t, "b", diags[0].Field)
	})
}
