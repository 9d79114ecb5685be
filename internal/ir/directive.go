package ir

import "fmt"

// DirectiveKind identifies a layout instruction.
//
// Every switch over DirectiveKind in this module is exhaustive; adding a kind
// means visiting each of them.
type DirectiveKind int

const (
	InsertSpace DirectiveKind = iota
	InsertHardline
	InsertBlankLines
	IndentStart
	IndentEnd
	Delete
	Literal
	NoSpace
)

// String returns the directive kind name used in logs and diagnostics.
func (k DirectiveKind) String() string {
	switch k {
	case InsertSpace:
		return "space"
	case InsertHardline:
		return "hardline"
	case InsertBlankLines:
		return "blank_lines"
	case IndentStart:
		return "indent_start"
	case IndentEnd:
		return "indent_end"
	case Delete:
		return "delete"
	case Literal:
		return "literal"
	case NoSpace:
		return "antispace"
	default:
		return fmt.Sprintf("directive(%d)", int(k))
	}
}

// Side says which edge of the captured node a directive attaches to.
type Side int

const (
	Before Side = iota
	After
)

func (s Side) String() string {
	if s == After {
		return "after"
	}
	return "before"
}

// Origin records which rule and capture produced a directive.
type Origin struct {
	Rule     int    `json:"rule"`
	RuleName string `json:"rule_name,omitempty"`
	Capture  string `json:"capture"`
	Order    int    `json:"order"` // position among the capture's actions
}

// Directive is a layout instruction anchored to a byte offset in the source.
//
// Offset is the anchor: the captured node's start for Before, its end for
// After. Delete directives cover [Offset, End). Count is used by
// InsertBlankLines and Text by Literal.
type Directive struct {
	Kind   DirectiveKind `json:"kind"`
	Offset int           `json:"offset"`
	End    int           `json:"end,omitempty"`
	Side   Side          `json:"side"`
	Count  int           `json:"count,omitempty"`
	Text   string        `json:"text,omitempty"`
	Origin Origin        `json:"origin"`
}

func (Directive) atomNode() {}

func (d Directive) String() string {
	switch d.Kind {
	case InsertBlankLines:
		return fmt.Sprintf("%s(%d)@%d", d.Kind, d.Count, d.Offset)
	case Literal:
		return fmt.Sprintf("%s(%q)@%d", d.Kind, d.Text, d.Offset)
	case Delete:
		return fmt.Sprintf("%s[%d,%d)", d.Kind, d.Offset, d.End)
	default:
		return fmt.Sprintf("%s@%d", d.Kind, d.Offset)
	}
}

// Atom is one element of the stream consumed by the renderer.
//
// This is a sealed interface - only Leaf and Directive implement it.
// Consumers use exhaustive type switches.
type Atom interface {
	atomNode() // Marker method - seals interface to this package
}

// Leaf is an indivisible piece of source text, copied verbatim to the output.
type Leaf struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (Leaf) atomNode() {}

// Span is a half-open byte range.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether offset lies strictly inside the span.
func (s Span) Contains(offset int) bool {
	return offset > s.Start && offset < s.End
}
