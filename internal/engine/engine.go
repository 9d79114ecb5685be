package engine

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/queryir"
)

// TreeProvider parses source text into a syntax tree.
//
// Implementations return *ir.ParseError for input the grammar rejects and
// a READING FormatterError when no grammar exists for language.
type TreeProvider interface {
	Parse(ctx context.Context, source []byte, language string) (*ir.Tree, error)
}

// DocumentProvider returns the compiled pattern document for a language.
type DocumentProvider interface {
	Document(ctx context.Context, language string) (*queryir.Document, error)
}

// Formatter runs the formatting pipeline for one document at a time.
//
// A Formatter holds no per-job state; Format is safe to call from several
// goroutines provided the providers are.
type Formatter struct {
	trees  TreeProvider
	docs   DocumentProvider
	render RenderConfig
	logger *slog.Logger
	jobIDs JobIDGenerator

	// indentForced is set by WithIndent; a document's own indent setting
	// then no longer applies.
	indentForced bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithRenderConfig replaces the whole render configuration.
func WithRenderConfig(cfg RenderConfig) Option {
	return func(f *Formatter) {
		f.render = cfg
	}
}

// WithIndent sets the indentation unit, overriding any document setting.
func WithIndent(indent string) Option {
	return func(f *Formatter) {
		f.render.Indent = indent
		f.indentForced = true
	}
}

// WithMaxBlankLines sets the global blank-line ceiling.
func WithMaxBlankLines(n int) Option {
	return func(f *Formatter) {
		f.render.MaxBlankLines = n
	}
}

// WithFinalNewline makes non-empty output end with a newline.
func WithFinalNewline(on bool) Option {
	return func(f *Formatter) {
		f.render.FinalNewline = on
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Formatter) {
		f.logger = l
	}
}

// WithJobIDGenerator sets the job id source. Defaults to UUIDv7Generator.
func WithJobIDGenerator(g JobIDGenerator) Option {
	return func(f *Formatter) {
		f.jobIDs = g
	}
}

// New creates a Formatter over the given providers.
func New(trees TreeProvider, docs DocumentProvider, opts ...Option) *Formatter {
	f := &Formatter{
		trees:  trees,
		docs:   docs,
		render: DefaultRenderConfig(),
		logger: slog.Default(),
		jobIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RenderConfig returns the configuration used for doc: the formatter's
// own settings, with the document's indent applied unless WithIndent was
// given, and the blank-line ceiling lowered (never raised) by the document.
func (f *Formatter) RenderConfig(doc *queryir.Document) RenderConfig {
	cfg := f.render
	if doc == nil {
		return cfg
	}
	if doc.Settings.Indent != nil && !f.indentForced {
		cfg.Indent = *doc.Settings.Indent
	}
	if doc.Settings.MaxBlankLines != nil && *doc.Settings.MaxBlankLines < cfg.MaxBlankLines {
		cfg.MaxBlankLines = *doc.Settings.MaxBlankLines
	}
	return cfg
}

// Format formats source written in language.
//
// Stages: UTF-8 check, document lookup, pipeline, idempotence check. The
// first failing stage ends the job with a *FormatterError; no partial
// output is returned. ctx is checked between stages.
func (f *Formatter) Format(ctx context.Context, source []byte, language string) (string, error) {
	log := f.logger.With("job_id", f.jobIDs.Generate(), "language", language)
	log.Debug("format started", "bytes", len(source))

	if !utf8.Valid(source) {
		err := NewReadingError("input is not valid UTF-8", nil)
		log.Debug("format failed", "kind", err.Kind)
		return "", err
	}

	doc, err := f.docs.Document(ctx, language)
	if err != nil {
		err = classify(err, KindQuery, "cannot load pattern document")
		log.Debug("format failed", "kind", KindOf(err), "error", err)
		return "", err
	}

	out, err := f.idempotent(ctx, log, source, doc, language)
	if err != nil {
		log.Debug("format failed", "kind", KindOf(err), "error", err)
		return "", err
	}

	log.Debug("format finished", "bytes", len(out), "changed", out != string(source))
	return out, nil
}

// CheckIdempotence formats input twice with doc and fails iff the second
// pass changes the first pass's output.
func (f *Formatter) CheckIdempotence(ctx context.Context, input []byte, doc *queryir.Document, language string) error {
	log := f.logger.With("job_id", f.jobIDs.Generate(), "language", language)
	_, err := f.idempotent(ctx, log, input, doc, language)
	return err
}

func (f *Formatter) idempotent(ctx context.Context, log *slog.Logger, source []byte, doc *queryir.Document, language string) (string, error) {
	cfg := f.RenderConfig(doc)

	first, err := f.run(ctx, source, doc, language, cfg)
	if err != nil {
		return "", err
	}
	log.Debug("first pass done", "bytes", len(first))

	second, err := f.run(ctx, []byte(first), doc, language, cfg)
	if err != nil {
		if IsKind(err, KindParsing) {
			return "", &FormatterError{
				Kind:    KindIdempotence,
				Message: "formatted output does not parse",
				Err:     errors.Unwrap(err),
			}
		}
		return "", err
	}

	if first != second {
		log.Warn("formatting is not idempotent", "first_bytes", len(first), "second_bytes", len(second))
		return "", NewIdempotenceError(first, second)
	}
	return first, nil
}

// run parses source and feeds the tree through Pipeline.
func (f *Formatter) run(ctx context.Context, source []byte, doc *queryir.Document, language string, cfg RenderConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tree, err := f.trees.Parse(ctx, source, language)
	if err != nil {
		return "", classify(err, KindReading, "cannot parse input")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Pipeline(tree, doc, cfg)
}

// Pipeline formats an already-parsed tree: match, resolve, build the atom
// stream, render. Pure and deterministic.
func Pipeline(tree *ir.Tree, doc *queryir.Document, cfg RenderConfig) (string, error) {
	matches, err := MatchAll(tree, doc)
	if err != nil {
		return "", err
	}
	res, err := Resolve(tree, doc, matches)
	if err != nil {
		return "", classify(err, KindInternal, "cannot resolve directives")
	}
	atoms, err := BuildAtoms(tree.Source, res)
	if err != nil {
		return "", err
	}
	return Render(atoms, cfg)
}
