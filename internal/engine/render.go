package engine

import (
	"strings"

	"github.com/roach88/shapefmt/internal/ir"
)

// Renderer defaults.
const (
	DefaultIndent        = "  "
	DefaultMaxBlankLines = 3
)

// RenderConfig controls text generation.
type RenderConfig struct {
	// Indent is written once per indentation level at the start of a line.
	Indent string

	// MaxBlankLines caps consecutive empty lines.
	MaxBlankLines int

	// FinalNewline appends a newline to non-empty output.
	FinalNewline bool
}

// DefaultRenderConfig returns the renderer defaults.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{Indent: DefaultIndent, MaxBlankLines: DefaultMaxBlankLines}
}

// lineState classifies what was last written.
type lineState int

const (
	startOfOutput lineState = iota
	afterText
	afterWhitespace
	afterLinebreak
)

type renderer struct {
	cfg   RenderConfig
	out   strings.Builder
	depth int
	state lineState

	// Whitespace is deferred until the next text so that no line ends in
	// spaces or indentation and trailing breaks can be dropped.
	pendingNewlines int
	pendingSpace    bool
}

// Render turns an atom stream into text in a single pass.
//
// Policy:
//   - whitespace directives before the first text are dropped
//   - consecutive hardlines collapse into one line break
//   - blank lines emit at most min(n, MaxBlankLines) empty lines
//   - a space is emitted only between two pieces of text on the same line
//   - indentation is written lazily, before the first text of each line
//   - trailing whitespace at the end of the output is dropped
//
// Closing more indentation than was opened, or leaving levels open at the
// end, is an Internal error.
func Render(atoms []ir.Atom, cfg RenderConfig) (string, error) {
	if cfg.MaxBlankLines < 0 {
		cfg.MaxBlankLines = 0
	}
	r := &renderer{cfg: cfg, state: startOfOutput}

	for _, atom := range atoms {
		switch a := atom.(type) {
		case ir.Leaf:
			r.writeText(a.Text)
		case ir.Directive:
			if err := r.apply(a); err != nil {
				return "", err
			}
		default:
			return "", NewInternalError("unknown atom type %T", atom)
		}
	}

	if r.depth != 0 {
		return "", NewInternalError("unbalanced indentation: %d level(s) still open at end of output", r.depth)
	}

	out := r.out.String()
	if cfg.FinalNewline && out != "" {
		out += "\n"
	}
	return out, nil
}

func (r *renderer) apply(d ir.Directive) error {
	switch d.Kind {
	case ir.InsertSpace:
		if r.state == startOfOutput || r.pendingNewlines > 0 {
			return nil
		}
		r.pendingSpace = true
		r.state = afterWhitespace
	case ir.NoSpace:
		r.pendingSpace = false
	case ir.InsertHardline:
		r.breakLines(1)
	case ir.InsertBlankLines:
		n := d.Count
		if n > r.cfg.MaxBlankLines {
			n = r.cfg.MaxBlankLines
		}
		r.breakLines(n + 1)
	case ir.IndentStart:
		r.depth++
	case ir.IndentEnd:
		r.depth--
		if r.depth < 0 {
			return NewRuleError(d.Origin.RuleName, d.Origin.Capture, "indentation depth became negative")
		}
	case ir.Literal:
		if d.Text != "" {
			r.writeText(d.Text)
		}
	case ir.Delete:
		return NewRuleError(d.Origin.RuleName, d.Origin.Capture, "unresolved delete directive in atom stream")
	default:
		return NewInternalError("unknown directive kind %s", d.Kind)
	}
	return nil
}

// breakLines requests at least n newlines before the next text.
func (r *renderer) breakLines(n int) {
	if r.state == startOfOutput {
		return
	}
	if n > r.pendingNewlines {
		r.pendingNewlines = n
	}
	r.pendingSpace = false
	r.state = afterLinebreak
}

// writeText flushes pending whitespace and writes text verbatim.
func (r *renderer) writeText(text string) {
	if r.state != startOfOutput {
		if r.pendingNewlines > 0 {
			r.out.WriteString(strings.Repeat("\n", r.pendingNewlines))
			r.out.WriteString(strings.Repeat(r.cfg.Indent, r.depth))
		} else if r.pendingSpace {
			r.out.WriteByte(' ')
		}
	}
	r.out.WriteString(text)
	r.pendingNewlines = 0
	r.pendingSpace = false
	r.state = afterText
}
