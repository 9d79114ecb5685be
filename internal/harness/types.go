package harness

import (
	"bytes"
	"fmt"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every case passed.
	Pass bool `json:"pass"`

	// Cases holds one result per scenario case, in scenario order.
	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages, prefixed with the case name.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// CaseResult is the outcome of formatting one case.
type CaseResult struct {
	Name string `json:"name"`
	Pass bool   `json:"pass"`

	// Output is the formatted text; empty when formatting failed.
	Output string `json:"output,omitempty"`

	// ErrorKind is the kind of the formatting error, if any.
	ErrorKind string `json:"error_kind,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCase records a case result, propagating its failures.
func (r *Result) AddCase(c CaseResult) {
	r.Cases = append(r.Cases, c)
	for _, e := range c.Errors {
		r.AddError(fmt.Sprintf("%s: %s", c.Name, e))
	}
}

// Snapshot renders the result as golden file content: one section per
// case, headed by "=== <name>", holding either the output or the error
// kind.
func (r *Result) Snapshot() []byte {
	var buf bytes.Buffer
	for _, c := range r.Cases {
		fmt.Fprintf(&buf, "=== %s\n", c.Name)
		if c.ErrorKind != "" {
			fmt.Fprintf(&buf, "error: %s\n", c.ErrorKind)
			continue
		}
		buf.WriteString(c.Output)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func (c *CaseResult) fail(format string, args ...any) {
	c.Errors = append(c.Errors, fmt.Sprintf(format, args...))
	c.Pass = false
}
