package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/shapefmt/internal/ir"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a document.
type Issue struct {
	Rule     int      `json:"rule"`
	Field    string   `json:"field"` // e.g. "rules[2].apply.stmt"
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationResult collects the issues found by Validate.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Errors returns only the error-severity issues.
func (r ValidationResult) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Validate checks the structural consistency of a compiled document.
//
// Errors (the document must be rejected):
//  1. Unsupported version
//  2. A capture bound twice within one pattern
//  3. An apply entry naming a capture the pattern does not bind
//  4. Negative blank line counts
//  5. Literals containing line breaks
//
// Warnings:
//  1. A rule with no actions (it still claims nodes)
//  2. A capture bound but never used
//
// Validate is a pure function with no side effects.
func Validate(doc *Document) ValidationResult {
	v := &validator{}
	if doc.Version != ir.DocumentVersion {
		v.add(SeverityError, -1, "version", "unsupported document version %d (want %d)",
			doc.Version, ir.DocumentVersion)
	}
	if doc.Settings.MaxBlankLines != nil && *doc.Settings.MaxBlankLines < 0 {
		v.add(SeverityError, -1, "settings.max_blank_lines", "must not be negative")
	}
	for i := range doc.Rules {
		v.validateRule(&doc.Rules[i])
	}
	return ValidationResult{
		Valid:  len(v.errorsOnly()) == 0,
		Issues: v.issues,
	}
}

type validator struct {
	issues []Issue
}

func (v *validator) add(sev Severity, rule int, field, format string, args ...any) {
	v.issues = append(v.issues, Issue{
		Rule:     rule,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
	})
}

func (v *validator) errorsOnly() []Issue {
	return ValidationResult{Issues: v.issues}.Errors()
}

func (v *validator) validateRule(r *Rule) {
	prefix := fmt.Sprintf("rules[%d]", r.Index)

	bound := make(map[string]bool)
	for _, name := range r.Pattern.Captures() {
		if bound[name] {
			v.add(SeverityError, r.Index, prefix+".match", "capture %q is bound more than once", name)
		}
		bound[name] = true
	}

	if len(r.Apply) == 0 {
		v.add(SeverityWarning, r.Index, prefix+".apply", "rule %s has no actions but still claims matching nodes", r.Label())
	}

	used := make(map[string]bool)
	for _, ca := range r.Apply {
		field := prefix + ".apply." + ca.Capture
		used[ca.Capture] = true
		if !bound[ca.Capture] {
			v.add(SeverityError, r.Index, field, "capture %q is not bound by the pattern", ca.Capture)
		}
		for _, a := range ca.Actions {
			switch a.Kind {
			case ActionBlankLines:
				if a.Count < 0 {
					v.add(SeverityError, r.Index, field, "blank line count must not be negative")
				}
			case ActionLiteral:
				if strings.ContainsAny(a.Text, "\r\n") {
					v.add(SeverityError, r.Index, field, "literal %q must not contain line breaks", a.Text)
				}
			case ActionSpace, ActionNoSpace, ActionHardline, ActionIndentStart, ActionIndentEnd,
				ActionDelete, ActionLeaf, ActionAllowBlankLine:
			default:
				v.add(SeverityError, r.Index, field, "unknown action %s", a.Kind)
			}
		}
	}

	for _, name := range r.Pattern.Captures() {
		if !used[name] {
			v.add(SeverityWarning, r.Index, prefix+".match", "capture %q is never used", name)
		}
	}
}
