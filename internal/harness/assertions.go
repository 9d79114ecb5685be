package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/shapefmt/internal/engine"
	"github.com/roach88/shapefmt/internal/queryir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Output   string // Formatted output for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nOutput:\n")
	for i, line := range strings.Split(e.Output, "\n") {
		fmt.Fprintf(&buf, "  %3d | %s\n", i+1, line)
	}

	return buf.String()
}

// AssertionContext provides what assertions need beyond the output.
type AssertionContext struct {
	Ctx       context.Context
	Formatter *engine.Formatter
	Document  *queryir.Document
	Language  string
	Input     string
}

// EvaluateAssertions runs all assertions and returns the failure messages.
func EvaluateAssertions(output string, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluateAssertion(output, a, actx); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluateAssertion(output string, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertIdempotent:
		return assertIdempotent(output, actx)
	case AssertPreservesText:
		return assertPreservesText(output, actx.Input)
	case AssertMaxBlankLines:
		return assertMaxBlankLines(output, a)
	case AssertContains:
		return assertContains(output, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertIdempotent formats output again and requires it unchanged.
func assertIdempotent(output string, actx *AssertionContext) error {
	err := actx.Formatter.CheckIdempotence(actx.Ctx, []byte(output), actx.Document, actx.Language)
	if err == nil {
		return nil
	}
	return &AssertionError{
		Type:     AssertIdempotent,
		Expected: "reformatting the output leaves it unchanged",
		Actual:   err.Error(),
		Output:   output,
	}
}

// assertPreservesText requires input and output to hold the same
// non-whitespace characters in the same order.
func assertPreservesText(output, input string) error {
	want := stripSpace(input)
	got := stripSpace(output)
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     AssertPreservesText,
		Expected: fmt.Sprintf("%q", want),
		Actual:   fmt.Sprintf("%q", got),
		Output:   output,
	}
}

func assertMaxBlankLines(output string, a Assertion) error {
	limit, err := parseCount(a.Value)
	if err != nil {
		return err
	}
	longest := longestBlankRun(output)
	if longest <= limit {
		return nil
	}
	return &AssertionError{
		Type:     AssertMaxBlankLines,
		Expected: fmt.Sprintf("at most %d consecutive empty lines", limit),
		Actual:   fmt.Sprintf("%d consecutive empty lines", longest),
		Output:   output,
	}
}

func assertContains(output string, a Assertion) error {
	if strings.Contains(output, a.Value) {
		return nil
	}
	return &AssertionError{
		Type:     AssertContains,
		Expected: fmt.Sprintf("output containing %q", a.Value),
		Actual:   "not found",
		Output:   output,
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// longestBlankRun counts the longest run of empty lines between text.
func longestBlankRun(s string) int {
	longest, run := 0, 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			run++
			continue
		}
		if run > longest {
			longest = run
		}
		run = 0
	}
	return longest
}

func parseCount(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("max_blank_lines requires a non-negative integer value, got %q", v)
	}
	return n, nil
}
