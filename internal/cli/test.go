package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/shapefmt/internal/engine"
	"github.com/roach88/shapefmt/internal/grammar"
	"github.com/roach88/shapefmt/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Cases  int      `json:"cases"`
	Golden string   `json:"golden,omitempty"` // "match", "mismatch", "updated", "missing"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run formatting scenarios from YAML files.

Each scenario names a language, optionally a pattern document, and a list
of cases with their input and expected output or error kind. When a
golden file exists at <dir>/golden/<scenario>.golden the run's snapshot
must match it as well.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  shapefmt test ./scenarios
  shapefmt test ./scenarios --filter "rust-*"
  shapefmt test ./scenarios --update
  shapefmt test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}

	files, err := harness.Discover(scenariosDir, opts.Filter)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeScanError,
			fmt.Sprintf("failed to find scenarios: %v", err), nil)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return formatter.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runner := &scenarioRunner{
		ctx:   ctx,
		opts:  opts,
		trees: grammar.NewRegistry(),
		w:     formatter.Writer,
	}
	if opts.Format == "json" {
		runner.w = io.Discard
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		formatter.VerboseLog("Running scenario file: %s", file)
		res := runner.run(file)
		result.Scenarios = append(result.Scenarios, res)
		if res.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

type scenarioRunner struct {
	ctx   context.Context
	opts  *TestOptions
	trees engine.TreeProvider
	w     io.Writer
}

// run executes one scenario file and prints its outcome.
func (r *scenarioRunner) run(file string) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return r.fail(res, fmt.Sprintf("failed to load scenario: %v", err))
	}
	res.Name = scenario.Name
	res.Cases = len(scenario.Cases)

	result, err := harness.RunContext(r.ctx, scenario, r.trees)
	if err != nil {
		return r.fail(res, fmt.Sprintf("execution failed: %v", err))
	}

	goldenPath := harness.GoldenPath(file, scenario)

	if r.opts.Update {
		if err := harness.UpdateGolden(goldenPath, result); err != nil {
			return r.fail(res, fmt.Sprintf("failed to update golden file: %v", err))
		}
		res.Golden = "updated"
		res.Errors = result.Errors
		res.Pass = result.Pass
		if !res.Pass {
			return r.report(res)
		}
		fmt.Fprintf(r.w, "✓ %s (golden updated)\n", scenario.Name)
		return res
	}

	match, err := harness.CompareGolden(goldenPath, result)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Golden = "missing"
	case err != nil:
		return r.fail(res, fmt.Sprintf("golden comparison failed: %v", err))
	case match:
		res.Golden = "match"
	default:
		res.Golden = "mismatch"
	}

	res.Errors = append(res.Errors, result.Errors...)
	if res.Golden == "mismatch" {
		res.Errors = append(res.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}
	res.Pass = result.Pass && res.Golden != "mismatch"
	return r.report(res)
}

func (r *scenarioRunner) fail(res ScenarioResult, msg string) ScenarioResult {
	res.Pass = false
	res.Errors = append(res.Errors, msg)
	return r.report(res)
}

func (r *scenarioRunner) report(res ScenarioResult) ScenarioResult {
	if res.Pass {
		fmt.Fprintf(r.w, "✓ %s (%d case(s))\n", res.Name, res.Cases)
		return res
	}
	fmt.Fprintf(r.w, "✗ %s\n", res.Name)
	for _, e := range res.Errors {
		fmt.Fprintf(r.w, "  %s\n", e)
	}
	return res
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	if result.Failed == 0 {
		return formatter.Success(result)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := formatter.Respond(CLIResponse{
		Status: "error",
		Data:   result,
		Error:  &CLIError{Code: "E_TEST_FAILED", Message: msg},
	}); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// outputTestText outputs the test summary as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
