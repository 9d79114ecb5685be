package harness

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/shapefmt/internal/compiler"
	"github.com/roach88/shapefmt/internal/engine"
	"github.com/roach88/shapefmt/internal/language"
	"github.com/roach88/shapefmt/internal/queryir"
	"github.com/roach88/shapefmt/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each case is formatted by a fresh Formatter sharing one compiled
// document. Job ids are "<scenario>-<n>" so logs are reproducible.
//
// Execution flow:
// 1. Resolve the language and load the pattern document
// 2. Format each case
// 3. Compare the outcome with expect / error
// 4. Evaluate assertions against successful outputs
//
// The returned error reports setup failures only; case failures are
// recorded in the Result.
func Run(scenario *Scenario, trees engine.TreeProvider) (*Result, error) {
	return RunContext(context.Background(), scenario, trees)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, trees engine.TreeProvider) (*Result, error) {
	lang, err := language.FromName(scenario.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve language: %w", err)
	}

	doc, err := loadDocument(ctx, scenario, lang.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern document: %w", err)
	}

	opts := []engine.Option{
		engine.WithLogger(testutil.DiscardLogger()),
		engine.WithJobIDGenerator(testutil.NewSequentialJobIDGenerator(scenario.Name)),
	}
	opts = append(opts, settingsOptions(scenario.Settings)...)

	result := NewResult()
	for _, c := range scenario.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := engine.New(trees, documentOf{doc}, opts...)
		result.AddCase(runCase(ctx, f, doc, lang.ID, c))
	}
	return result, nil
}

func runCase(ctx context.Context, f *engine.Formatter, doc *queryir.Document, lang string, c Case) CaseResult {
	cr := CaseResult{Name: c.Name, Pass: true}

	out, err := f.Format(ctx, []byte(c.Input), lang)
	if err != nil {
		cr.ErrorKind = string(engine.KindOf(err))
		if cr.ErrorKind == "" {
			cr.ErrorKind = "UNKNOWN"
		}
		switch {
		case c.Error == "":
			cr.fail("unexpected %s error: %v", cr.ErrorKind, err)
		case c.Error != cr.ErrorKind:
			cr.fail("expected %s error, got %s: %v", c.Error, cr.ErrorKind, err)
		}
		return cr
	}

	cr.Output = out
	if c.Error != "" {
		cr.fail("expected %s error, formatting succeeded", c.Error)
		return cr
	}
	if c.Expect != nil && *c.Expect != out {
		cr.fail("output mismatch:\n%s", engine.FormatDiff(engine.LineDiff(*c.Expect, out)))
	}

	actx := &AssertionContext{
		Ctx:       ctx,
		Formatter: f,
		Document:  doc,
		Language:  lang,
		Input:     c.Input,
	}
	for _, msg := range EvaluateAssertions(out, c.Assertions, actx) {
		cr.fail("%s", msg)
	}
	return cr
}

// loadDocument compiles the scenario's own document, or looks up the
// language's regular one.
func loadDocument(ctx context.Context, scenario *Scenario, lang string) (*queryir.Document, error) {
	if scenario.Document == "" {
		return language.NewDocuments().Document(ctx, lang)
	}
	data, err := os.ReadFile(scenario.Document)
	if err != nil {
		return nil, err
	}
	doc, err := compiler.CompileDocumentBytes(scenario.Document, data)
	if err != nil {
		return nil, err
	}
	if doc.Language != "" && language.QueryFileBase(doc.Language) != language.QueryFileBase(lang) {
		return nil, fmt.Errorf("document %s is for language %q, scenario uses %q",
			scenario.Document, doc.Language, lang)
	}
	return doc, nil
}

func settingsOptions(s *Settings) []engine.Option {
	if s == nil {
		return nil
	}
	var opts []engine.Option
	if s.Indent != nil {
		opts = append(opts, engine.WithIndent(*s.Indent))
	}
	if s.MaxBlankLines != nil {
		opts = append(opts, engine.WithMaxBlankLines(*s.MaxBlankLines))
	}
	if s.FinalNewline {
		opts = append(opts, engine.WithFinalNewline(true))
	}
	return opts
}

// documentOf serves one compiled document for every language.
type documentOf struct {
	doc *queryir.Document
}

func (d documentOf) Document(ctx context.Context, lang string) (*queryir.Document, error) {
	return d.doc, nil
}
