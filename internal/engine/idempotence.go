package engine

import (
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// IdempotenceError reports that formatting the formatted output changed it.
type IdempotenceError struct {
	First  string // output of the first run
	Second string // output of formatting First
}

func (e *IdempotenceError) Error() string {
	lines := e.Diff()
	changed := 0
	for _, l := range lines {
		if l.Op != DiffEqual {
			changed++
		}
	}
	return fmt.Sprintf("second formatting pass changed %d line(s)", changed)
}

// Diff returns the line diff from First to Second.
func (e *IdempotenceError) Diff() []DiffLine {
	return LineDiff(e.First, e.Second)
}

// DiffOp classifies a DiffLine.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffDelete
	DiffInsert
)

// Prefix returns the unified-diff marker for the op.
func (op DiffOp) Prefix() string {
	switch op {
	case DiffDelete:
		return "-"
	case DiffInsert:
		return "+"
	default:
		return " "
	}
}

// DiffLine is one line of a line-oriented diff, without its newline.
type DiffLine struct {
	Op   DiffOp
	Text string
}

func (l DiffLine) String() string {
	return l.Op.Prefix() + l.Text
}

// LineDiff computes a line-granular diff between a and b.
func LineDiff(a, b string) []DiffLine {
	dmp := diffpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := DiffEqual
		switch d.Type {
		case diffpatch.DiffDelete:
			op = DiffDelete
		case diffpatch.DiffInsert:
			op = DiffInsert
		}
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			out = append(out, DiffLine{Op: op, Text: line})
		}
	}
	return out
}

// FormatDiff renders a line diff as plain text.
func FormatDiff(lines []DiffLine) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// NewIdempotenceError wraps an IdempotenceError in a FormatterError.
func NewIdempotenceError(first, second string) *FormatterError {
	return &FormatterError{
		Kind:    KindIdempotence,
		Message: "formatting is not idempotent",
		Err:     &IdempotenceError{First: first, Second: second},
	}
}
