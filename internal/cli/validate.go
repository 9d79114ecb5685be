package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Documents []DocumentReport `json:"documents"`
	Errors    int              `json:"errors"`
	Warnings  int              `json:"warnings"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.cue|dir>",
		Short: "Check pattern documents without formatting anything",
		Long: `Validate pattern documents.

Compiles each document and reports every error with its code and line,
then runs the shadowing analysis and reports rules that can never claim
a node. Warnings do not fail validation.

Exit codes:
  0 - All documents valid
  1 - A document has errors
  2 - Command error (path not found, no .cue files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := LoadDocumentFiles(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), path)

	result := ValidationResult{Valid: true, Documents: make([]DocumentReport, 0, len(files))}
	for _, f := range files {
		formatter.VerboseLog("Validating document: %s", f.Path)
		report := validateFile(f)
		errs := report.Errors()
		result.Errors += errs
		result.Warnings += len(report.Diagnostics) - errs
		if !report.Valid {
			result.Valid = false
		}
		result.Documents = append(result.Documents, report)
	}

	if formatter.Format == "json" {
		return outputValidateJSON(formatter, result)
	}
	return outputValidateText(formatter, result)
}

func outputValidateJSON(formatter *OutputFormatter, result ValidationResult) error {
	if result.Valid {
		return formatter.Success(result)
	}

	resp := CLIResponse{Status: "error", Data: result}
	for _, doc := range result.Documents {
		for _, d := range doc.Diagnostics {
			if d.Severity != "warning" {
				resp.Error = &CLIError{Code: d.Code, Message: fmt.Sprintf("%s: %s", doc.Path, d.Message)}
				break
			}
		}
		if resp.Error != nil {
			break
		}
	}
	if err := formatter.Respond(resp); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.Errors))
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) error {
	w := formatter.Writer

	for _, doc := range result.Documents {
		mark := "✓"
		if !doc.Valid {
			mark = "✗"
		}
		if doc.Valid {
			fmt.Fprintf(w, "%s %s (%s, %d rule(s))\n", mark, doc.Path, doc.Language, doc.Rules)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, doc.Path)
		}
		for _, d := range doc.Diagnostics {
			prefix := "  "
			if d.Line > 0 {
				prefix = fmt.Sprintf("  line %d: ", d.Line)
			}
			fmt.Fprintf(w, "%s%s %s: %s\n", prefix, d.Code, d.Field, d.Message)
		}
	}
	fmt.Fprintln(w)

	if !result.Valid {
		fmt.Fprintf(w, "✗ Validation failed: %d error(s), %d warning(s)\n", result.Errors, result.Warnings)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.Errors))
	}

	if result.Warnings > 0 {
		fmt.Fprintf(w, "✓ All documents valid (%d warning(s))\n", result.Warnings)
		return nil
	}
	fmt.Fprintln(w, "✓ All documents valid")
	return nil
}
