package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/compiler"
	"github.com/roach88/shapefmt/internal/grammar/stmt"
	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/queryir"
	"github.com/roach88/shapefmt/internal/testutil"
)

// compileDoc compiles an inline stmt pattern document.
func compileDoc(t *testing.T, src string) *queryir.Document {
	t.Helper()
	doc, err := compiler.CompileDocumentBytes("test.cue", []byte(src))
	require.NoError(t, err)
	return doc
}

// stmtRules wraps rule entries in a version 1 stmt document.
func stmtRules(rules string) string {
	return "version: 1\nlanguage: \"stmt\"\nrules: [" + rules + "]\n"
}

func parseStmt(t *testing.T, src string) *ir.Tree {
	t.Helper()
	tree, err := stmt.Parse([]byte(src))
	require.NoError(t, err)
	return tree
}

// countingParser is a stmt TreeProvider that counts calls.
type countingParser struct {
	calls atomic.Int32
}

func (p *countingParser) Parse(ctx context.Context, source []byte, language string) (*ir.Tree, error) {
	p.calls.Add(1)
	return stmt.Parser{}.Parse(ctx, source, language)
}

// staticDocs serves one document, or one error, for every language.
type staticDocs struct {
	doc *queryir.Document
	err error
}

func (s staticDocs) Document(ctx context.Context, language string) (*queryir.Document, error) {
	return s.doc, s.err
}

// inlineDocs compiles its source on every lookup.
type inlineDocs string

func (s inlineDocs) Document(ctx context.Context, language string) (*queryir.Document, error) {
	return compiler.CompileDocumentBytes(language+".cue", []byte(s))
}

func discardLogger() *slog.Logger {
	return testutil.DiscardLogger()
}

func newTestFormatter(doc *queryir.Document, opts ...Option) *Formatter {
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(&countingParser{}, staticDocs{doc: doc}, opts...)
}

// pipeline parses, matches, resolves, and renders src with default settings.
func pipeline(t *testing.T, doc *queryir.Document, src string) (string, error) {
	t.Helper()
	return Pipeline(parseStmt(t, src), doc, DefaultRenderConfig())
}

// boundaryStrings renders resolved boundaries for compact assertions.
func boundaryStrings(res *Resolved) [][]string {
	out := make([][]string, len(res.Boundaries))
	for i, ds := range res.Boundaries {
		out[i] = []string{}
		for _, d := range ds {
			out[i] = append(out[i], d.String())
		}
	}
	return out
}

func leafTexts(res *Resolved) []string {
	out := make([]string, 0, len(res.Leaves))
	for _, l := range res.Leaves {
		out = append(out, l.Text)
	}
	return out
}
