package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shapefmt/internal/engine"
	"github.com/roach88/shapefmt/internal/grammar"
	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/language"
	"github.com/roach88/shapefmt/internal/store"
)

// File statuses reported by fmt.
const (
	StatusUnchanged   = "unchanged"   // already formatted
	StatusFormatted   = "formatted"   // rewritten on disk
	StatusUnformatted = "unformatted" // --check found differences
	StatusPrinted     = "printed"     // written to stdout
	StatusCached      = "cached"      // skipped, cache says formatted
	StatusError       = "error"
)

// stdinPath is the argument that selects standard input.
const stdinPath = "-"

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Check         bool
	Stdout        bool
	Language      string
	Cache         string
	Timeout       time.Duration
	Indent        string
	MaxBlankLines int
	FinalNewline  bool
	Config        string
	LanguageDir   string
}

// FileResult is the outcome for one input.
type FileResult struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Status   string `json:"status"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`

	// Output is set for --stdout only.
	Output string `json:"output,omitempty"`

	source    string
	formatted string
}

func (r *FileResult) fail(err error) FileResult {
	r.Status = StatusError
	r.Code = ErrorCode(err)
	r.Error = err.Error()
	return *r
}

// FmtResult summarizes a fmt run.
type FmtResult struct {
	Files       []FileResult `json:"files"`
	Formatted   int          `json:"formatted"`
	Unchanged   int          `json:"unchanged"`
	Unformatted int          `json:"unformatted"`
	Cached      int          `json:"cached"`
	Errors      int          `json:"errors"`
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt [paths...]",
		Short: "Format files in place",
		Long: `Format source files using the pattern document for their language.

Directories are walked for files with a known extension; hidden
directories are skipped. With no paths the current directory is used.
A single "-" reads standard input and requires --language.

Settings come from flags, then .shapefmt.yaml (or --config), then the
pattern document, then built-in defaults.

Exit codes:
  0 - All files formatted (or already formatted)
  1 - A file failed to format, or --check found unformatted files
  2 - Command error (invalid paths, flags, config)

Examples:
  shapefmt fmt ./src
  shapefmt fmt --check .
  shapefmt fmt --stdout main.rs
  cat Cargo.toml | shapefmt fmt -l toml -
  shapefmt fmt --cache .shapefmt.db --indent "    " .`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "report files that would change, do not write")
	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "print formatted output instead of writing files")
	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "language id (skips detection; required for stdin)")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to format cache database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-file formatting timeout (0 = none)")
	cmd.Flags().StringVar(&opts.Indent, "indent", engine.DefaultIndent, "indentation unit (overrides the pattern document)")
	cmd.Flags().IntVar(&opts.MaxBlankLines, "max-blank-lines", engine.DefaultMaxBlankLines, "maximum consecutive blank lines")
	cmd.Flags().BoolVar(&opts.FinalNewline, "final-newline", true, "end non-empty output with a newline")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default ./"+DefaultConfigFile+" if present)")
	cmd.Flags().StringVar(&opts.LanguageDir, "language-dir", "", "directory of pattern documents (highest priority)")

	return cmd
}

// fmtSettings is the merged view of flags and config file.
type fmtSettings struct {
	indent        *string
	maxBlankLines *int
	finalNewline  bool
	languageDir   string
	cache         string
}

// resolveSettings merges flags over the config file. changed reports
// whether a flag was given on the command line.
func resolveSettings(opts *FmtOptions, changed func(string) bool, cfg *Config) fmtSettings {
	s := fmtSettings{
		indent:        cfg.Indent,
		maxBlankLines: cfg.MaxBlankLines,
		finalNewline:  opts.FinalNewline,
		languageDir:   cfg.LanguageDir,
		cache:         cfg.Cache,
	}
	if changed("indent") {
		indent := opts.Indent
		s.indent = &indent
	}
	if changed("max-blank-lines") {
		n := opts.MaxBlankLines
		s.maxBlankLines = &n
	}
	if !changed("final-newline") && cfg.FinalNewline != nil {
		s.finalNewline = *cfg.FinalNewline
	}
	if changed("language-dir") {
		s.languageDir = opts.LanguageDir
	}
	if changed("cache") {
		s.cache = opts.Cache
	}
	return s
}

func (s fmtSettings) engineOptions() []engine.Option {
	var opts []engine.Option
	if s.indent != nil {
		opts = append(opts, engine.WithIndent(*s.indent))
	}
	if s.maxBlankLines != nil {
		opts = append(opts, engine.WithMaxBlankLines(*s.maxBlankLines))
	}
	opts = append(opts, engine.WithFinalNewline(s.finalNewline))
	return opts
}

func runFmt(opts *FmtOptions, cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Check && opts.Stdout {
		return out.fail(ExitCommandError, ErrCodeInvalidArgs, "--check and --stdout are mutually exclusive", nil)
	}
	if opts.MaxBlankLines < 0 {
		return out.fail(ExitCommandError, ErrCodeInvalidArgs, "--max-blank-lines must not be negative", nil)
	}
	var lang language.Language
	if opts.Language != "" {
		l, err := language.FromName(opts.Language)
		if err != nil {
			return out.fail(ExitCommandError, ErrorCode(err), err.Error(), nil)
		}
		lang = l
	}

	wd, err := os.Getwd()
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	cfg, err := findConfig(opts.Config, wd)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	settings := resolveSettings(opts, cmd.Flags().Changed, cfg)

	logger := opts.Logger(cmd.ErrOrStderr())
	docs := language.NewDocuments(language.WithDir(settings.languageDir))
	fopts := append(settings.engineOptions(), engine.WithLogger(logger))
	f := engine.New(grammar.NewRegistry(), docs, fopts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j := &fmtJob{
		opts:    opts,
		lang:    lang,
		f:       f,
		docs:    docs,
		logger:  logger,
		timeout: opts.Timeout,
	}

	if len(args) == 1 && args[0] == stdinPath {
		if opts.Language == "" {
			return out.fail(ExitCommandError, ErrCodeInvalidArgs, "--language is required when reading from stdin", nil)
		}
		return j.runStdin(ctx, cmd.InOrStdin(), out)
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := collectFiles(args, lang.ID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
		}
		return out.fail(ExitCommandError, ErrCodeScanError, err.Error(), nil)
	}
	if len(files) == 0 {
		return out.fail(ExitCommandError, ErrCodeNoFiles, "no files to format", nil)
	}
	out.VerboseLog("Formatting %d file(s)", len(files))

	if settings.cache != "" && !opts.Stdout {
		st, err := store.Open(settings.cache)
		if err != nil {
			return out.fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("cannot open cache: %v", err), nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing cache", "error", closeErr)
			}
		}()
		j.cache = st
	}

	result := j.runAll(ctx, files)
	return reportFmt(out, opts, result, newPalette(cmd.OutOrStdout()))
}

// fmtJob formats a set of files with one Formatter.
type fmtJob struct {
	opts    *FmtOptions
	lang    language.Language // zero unless --language was given
	f       *engine.Formatter
	docs    *language.Documents
	cache   *store.Store
	logger  *slog.Logger
	timeout time.Duration

	keyMu sync.Mutex
	keys  map[string]string
}

// runAll formats files in parallel and returns results sorted by path.
func (j *fmtJob) runAll(ctx context.Context, files []string) FmtResult {
	results := make(chan FileResult, len(files))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup

	for _, path := range files {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- j.formatFile(ctx, p)
		}(path)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var res FmtResult
	for r := range results {
		res.Files = append(res.Files, r)
		switch r.Status {
		case StatusFormatted:
			res.Formatted++
		case StatusUnchanged:
			res.Unchanged++
		case StatusUnformatted:
			res.Unformatted++
		case StatusCached:
			res.Cached++
		case StatusError:
			res.Errors++
		}
	}
	sort.Slice(res.Files, func(a, b int) bool { return res.Files[a].Path < res.Files[b].Path })
	return res
}

func (j *fmtJob) formatFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}

	lang := j.lang
	if lang.ID == "" {
		l, err := language.Detect(path)
		if err != nil {
			return res.fail(err)
		}
		lang = l
	}
	res.Language = lang.ID

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	info, err := os.Stat(path)
	if err != nil {
		return res.fail(engine.NewReadingError("cannot read "+path, err))
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return res.fail(engine.NewReadingError("cannot read "+path, err))
	}

	var key, cachePath string
	if j.cache != nil {
		key, cachePath = j.cacheKey(ctx, lang.ID), absPath(path)
		if key != "" {
			ok, err := j.cache.IsFormatted(ctx, cachePath, ir.ContentHash(source), key)
			if err != nil {
				j.logger.Warn("cache lookup failed", "path", path, "error", err)
			} else if ok {
				res.Status = StatusCached
				return res
			}
		}
	}

	out, err := j.f.Format(ctx, source, lang.ID)
	if err != nil {
		j.forget(ctx, cachePath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("formatting %s: %w", path, ctxErr)
		}
		return res.fail(err)
	}
	res.source, res.formatted = string(source), out
	changed := out != string(source)

	switch {
	case j.opts.Stdout:
		res.Status = StatusPrinted
		res.Output = out
		return res
	case j.opts.Check:
		if changed {
			j.forget(ctx, cachePath)
			res.Status = StatusUnformatted
			return res
		}
		res.Status = StatusUnchanged
	case changed:
		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			j.forget(ctx, cachePath)
			return res.fail(engine.NewWritingError("cannot write "+path, err))
		}
		res.Status = StatusFormatted
	default:
		res.Status = StatusUnchanged
	}

	if key != "" {
		if err := j.cache.MarkFormatted(ctx, cachePath, ir.ContentHash([]byte(out)), key); err != nil {
			j.logger.Warn("cache update failed", "path", path, "error", err)
		}
	}
	return res
}

// forget drops path from the cache after it failed to format or was found
// unformatted. ctx may already be done, so its deadline is not inherited.
func (j *fmtJob) forget(ctx context.Context, cachePath string) {
	if j.cache == nil || cachePath == "" {
		return
	}
	if err := j.cache.Forget(context.WithoutCancel(ctx), cachePath); err != nil {
		j.logger.Warn("cache forget failed", "path", cachePath, "error", err)
	}
}

// cacheKey identifies the compiled document together with the effective
// render settings, so changing either invalidates cached entries. It
// returns "" when the document cannot be loaded; Format reports that.
func (j *fmtJob) cacheKey(ctx context.Context, id string) string {
	j.keyMu.Lock()
	defer j.keyMu.Unlock()
	if key, ok := j.keys[id]; ok {
		return key
	}

	doc, err := j.docs.Document(ctx, id)
	if err != nil {
		return ""
	}
	cfg := j.f.RenderConfig(doc)
	key, err := ir.DocumentHash(map[string]any{
		"document": doc.Canonical(),
		"render": map[string]any{
			"indent":          cfg.Indent,
			"max_blank_lines": cfg.MaxBlankLines,
			"final_newline":   cfg.FinalNewline,
		},
	})
	if err != nil {
		j.logger.Warn("cannot hash pattern document", "language", id, "error", err)
		return ""
	}
	if j.keys == nil {
		j.keys = make(map[string]string)
	}
	j.keys[id] = key
	return key
}

func (j *fmtJob) runStdin(ctx context.Context, r io.Reader, out *OutputFormatter) error {
	source, err := io.ReadAll(r)
	if err != nil {
		return out.fail(ExitFailure, ErrCodeGeneric, fmt.Sprintf("cannot read stdin: %v", err), nil)
	}
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	formatted, err := j.f.Format(ctx, source, j.lang.ID)
	if err != nil {
		return out.fail(ExitFailure, ErrorCode(err), err.Error(), nil)
	}

	res := FileResult{Path: stdinPath, Language: j.lang.ID, source: string(source), formatted: formatted}
	switch {
	case !j.opts.Check:
		res.Status = StatusPrinted
		res.Output = formatted
	case formatted != string(source):
		res.Status = StatusUnformatted
	default:
		res.Status = StatusUnchanged
	}

	if out.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: res}
		if res.Status == StatusUnformatted {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeUnformatted, Message: "stdin is not formatted"}
		}
		if err := out.Respond(resp); err != nil {
			return err
		}
	} else if res.Status == StatusPrinted {
		if _, err := io.WriteString(out.Writer, formatted); err != nil {
			return out.fail(ExitFailure, ErrCodeWriteFailed, err.Error(), nil)
		}
	} else if res.Status == StatusUnformatted {
		writeDiff(out.Writer, newPalette(out.Writer), "<stdin>", res.source, res.formatted)
	}

	if res.Status == StatusUnformatted {
		return NewExitError(ExitFailure, "stdin is not formatted")
	}
	return nil
}

func reportFmt(out *OutputFormatter, opts *FmtOptions, result FmtResult, pal palette) error {
	if out.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Errors > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%d file(s) had errors", result.Errors)}
		} else if result.Unformatted > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeUnformatted, Message: fmt.Sprintf("%d file(s) not formatted", result.Unformatted)}
		}
		if err := out.Respond(resp); err != nil {
			return err
		}
	} else {
		w := out.Writer
		errW := out.GetErrWriter()
		for _, r := range result.Files {
			switch r.Status {
			case StatusError:
				fmt.Fprintf(errW, "%s: %s\n", r.Path, r.Error)
			case StatusFormatted:
				fmt.Fprintf(w, "Formatted: %s\n", r.Path)
			case StatusUnformatted:
				fmt.Fprintf(w, "%s %s\n", pal.bad("✗"), r.Path)
				writeDiff(w, pal, r.Path, r.source, r.formatted)
			case StatusPrinted:
				if len(result.Files) > 1 {
					fmt.Fprintf(w, "==> %s <==\n", r.Path)
				}
				fmt.Fprint(w, r.Output)
				if len(result.Files) > 1 && !strings.HasSuffix(r.Output, "\n") {
					fmt.Fprintln(w)
				}
			case StatusCached:
				out.VerboseLog("cached: %s", r.Path)
			}
		}
		if opts.Check && result.Unformatted == 0 && result.Errors == 0 {
			fmt.Fprintf(w, "%s All %d file(s) formatted\n", pal.ok("✓"), len(result.Files))
		}
	}

	if result.Errors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) had errors", result.Errors))
	}
	if result.Unformatted > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) not formatted", result.Unformatted))
	}
	return nil
}

// collectFiles expands paths into a sorted, de-duplicated file list.
// Directories contribute files whose extension maps to a language (only
// langID when set); explicit files are always included.
func collectFiles(paths []string, langID string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			l, err := language.Detect(path)
			if err != nil {
				return nil
			}
			if langID == "" || l.ID == langID {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
