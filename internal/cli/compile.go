package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/shapefmt/internal/compiler"
	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/language"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledDocument is a compiled pattern document in canonical form.
type CompiledDocument struct {
	Path      string         `json:"path"`
	Language  string         `json:"language"`
	Rules     int            `json:"rules"`
	Hash      string         `json:"hash"`
	Canonical map[string]any `json:"canonical"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <document.cue|language>",
		Short: "Compile a pattern document to canonical JSON",
		Long: `Compile a pattern document and print its canonical JSON and hash.

The argument is a .cue file, or a language id whose document is looked
up the same way fmt looks it up. The hash changes whenever the compiled
document does; fmt --cache combines it with the render settings.

Examples:
  shapefmt compile languages/rust.cue
  shapefmt compile toml -o toml.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	path, data, err := readDocumentArg(arg)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Compiling document: %s", path)

	doc, err := compiler.CompileDocumentBytes(path, data)
	if err != nil {
		code := ErrCodeGeneric
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			code = ce.Code
		}
		return formatter.fail(ExitFailure, code, err.Error(), nil)
	}

	canonical := doc.Canonical()
	hash, err := ir.DocumentHash(canonical)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}

	result := CompiledDocument{
		Path:      path,
		Language:  doc.Language,
		Rules:     len(doc.Rules),
		Hash:      hash,
		Canonical: canonical,
	}

	if opts.Output != "" {
		if err := writeCanonicalFile(canonical, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// readDocumentArg reads a document given as a file path or language id.
func readDocumentArg(arg string) (string, []byte, error) {
	if _, err := os.Stat(arg); err == nil {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", nil, &LoadError{Code: ErrCodeScanError, Message: err.Error()}
		}
		return arg, data, nil
	}

	lang, err := language.FromName(arg)
	if err != nil {
		return "", nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no such file or language: %s", arg)}
	}
	loc, data, err := language.NewDocuments().Source(lang.ID)
	if err != nil {
		return "", nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	return loc.String(), data, nil
}

func outputCompileSuccess(formatter *OutputFormatter, result CompiledDocument, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %s: language %s, %d rule(s)\n", result.Path, result.Language, result.Rules)
	fmt.Fprintf(formatter.Writer, "  hash: %s\n", result.Hash)
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical JSON to %s\n", outputFile)
	}
	return nil
}

// writeCanonicalFile writes the canonical JSON of a document.
func writeCanonicalFile(canonical map[string]any, filename string) error {
	data, err := ir.MarshalCanonical(canonical)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
