package compiler

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/shapefmt/internal/queryir"
)

// Warning codes (W200-W299).
const (
	WarnNoActions     = "W201" // rule without actions
	WarnUnusedCapture = "W202" // capture bound but never used
	WarnShadowed      = "W203" // rule can never match
	WarnDuplicateName = "W204" // two rules share a name
)

// ValidationError is one diagnostic about a pattern document.
// Severity is "error" or "warning".
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateDocumentBytes reports every diagnostic for a document instead of
// stopping at the first one. Structural failures (CUE errors, unknown keys,
// unknown actions) still stop parsing and yield a single error.
//
// The returned document is nil if any error-severity diagnostic was found.
func ValidateDocumentBytes(filename string, data []byte) (*queryir.Document, []ValidationError) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))

	doc, err := parseDocument(v)
	if err != nil {
		return nil, []ValidationError{compileErrorToValidation(err)}
	}
	doc.Source = filename

	var out []ValidationError
	hasErrors := false
	for _, issue := range queryir.Validate(doc).Issues {
		ce := issueToCompileError(v, issue)
		code := ce.Code
		if issue.Severity == queryir.SeverityWarning {
			code = warningCode(issue)
		} else {
			hasErrors = true
		}
		out = append(out, ValidationError{
			Field:    ce.Field,
			Message:  ce.Message,
			Code:     code,
			Line:     ce.Line(),
			Severity: string(issue.Severity),
		})
	}

	for _, w := range AnalyzeShadowing(doc) {
		code := WarnShadowed
		if w.Level == "info" {
			code = WarnDuplicateName
		}
		out = append(out, ValidationError{
			Field:    w.Rule,
			Message:  w.Message,
			Code:     code,
			Severity: "warning",
		})
	}

	if hasErrors {
		return nil, out
	}
	return doc, out
}

func warningCode(issue queryir.Issue) string {
	if strings.Contains(issue.Message, "never used") {
		return WarnUnusedCapture
	}
	return WarnNoActions
}

func compileErrorToValidation(err error) ValidationError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ValidationError{
			Field:    ce.Field,
			Message:  ce.Message,
			Code:     ce.Code,
			Line:     ce.Line(),
			Severity: "error",
		}
	}
	return ValidationError{Field: "document", Message: err.Error(), Code: ErrCUE, Severity: "error"}
}
