package queryir

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr/vm"

	"github.com/roach88/shapefmt/internal/ir"
)

// Wildcard matches nodes of any kind.
const Wildcard = "_"

// Document is a compiled pattern document for one language.
type Document struct {
	Version  int      `json:"version"`
	Language string   `json:"language"`
	Settings Settings `json:"settings"`
	Rules    []Rule   `json:"rules"`

	// Source names where the document was loaded from (file path or
	// "builtin:<name>"). Informational only.
	Source string `json:"source,omitempty"`
}

// Settings are per-language overrides of renderer configuration.
// Nil means "use the caller's configuration".
type Settings struct {
	Indent        *string `json:"indent,omitempty"`
	MaxBlankLines *int    `json:"max_blank_lines,omitempty"`
}

// Rule pairs a pattern with the actions applied to its captures.
type Rule struct {
	Index   int              `json:"index"`
	Name    string           `json:"name"`
	Pattern Pattern          `json:"pattern"`
	Apply   []CaptureActions `json:"apply"`

	// Pos is the "file:line:col" of the rule in its document, if known.
	Pos string `json:"pos,omitempty"`
}

// Label returns the rule name, or its index when unnamed.
func (r *Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("rules[%d]", r.Index)
}

// Pattern describes a node shape. Empty string fields are unconstrained.
type Pattern struct {
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text,omitempty"`
	Regex   string `json:"regex,omitempty"`
	Field   string `json:"field,omitempty"`
	Inside  string `json:"inside,omitempty"`
	Where   string `json:"where,omitempty"`
	Capture string `json:"capture,omitempty"`

	// Children are matched as an ordered subsequence of the node's children.
	Children []ChildPattern `json:"children,omitempty"`

	// Compiled forms of Regex and Where, set by the compiler.
	Match   *regexp.Regexp `json:"-"`
	Program *vm.Program    `json:"-"`
}

// MatchesAnyKind reports whether the pattern leaves the node kind open.
func (p *Pattern) MatchesAnyKind() bool {
	return p.Kind == "" || p.Kind == Wildcard
}

// Unconstrained reports whether the pattern accepts every node of its kind.
func (p *Pattern) Unconstrained() bool {
	return p.Text == "" && p.Regex == "" && p.Field == "" && p.Inside == "" &&
		p.Where == "" && len(p.Children) == 0
}

// Captures returns every capture name bound by the pattern, in preorder.
func (p *Pattern) Captures() []string {
	var names []string
	var visit func(p *Pattern)
	visit = func(p *Pattern) {
		if p.Capture != "" {
			names = append(names, p.Capture)
		}
		for i := range p.Children {
			visit(&p.Children[i].Pattern)
		}
	}
	visit(p)
	return names
}

// ChildPattern is one element of a parent pattern's child sequence.
//
// Anchored pins the child to the first child (when it is the first entry)
// or to the sibling immediately after the previously matched child.
type ChildPattern struct {
	Pattern
	Anchored bool `json:"anchor,omitempty"`
}

// CaptureActions lists the actions applied to one capture, in declaration order.
type CaptureActions struct {
	Capture string   `json:"capture"`
	Actions []Action `json:"actions"`
}

// ActionKind is the document-level vocabulary of layout actions.
type ActionKind int

const (
	ActionSpace ActionKind = iota
	ActionNoSpace
	ActionHardline
	ActionBlankLines
	ActionIndentStart
	ActionIndentEnd
	ActionLiteral
	ActionDelete
	ActionLeaf
	ActionAllowBlankLine
)

func (k ActionKind) String() string {
	switch k {
	case ActionSpace:
		return "space"
	case ActionNoSpace:
		return "antispace"
	case ActionHardline:
		return "hardline"
	case ActionBlankLines:
		return "blank_lines"
	case ActionIndentStart:
		return "indent_start"
	case ActionIndentEnd:
		return "indent_end"
	case ActionLiteral:
		return "literal"
	case ActionDelete:
		return "delete"
	case ActionLeaf:
		return "leaf"
	case ActionAllowBlankLine:
		return "allow_blank_line_before"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is one layout action. Side is meaningful for the positional kinds
// (space, antispace, hardline, blank_lines, indent_*, literal).
type Action struct {
	Kind  ActionKind `json:"kind"`
	Side  ir.Side    `json:"side"`
	Count int        `json:"count,omitempty"`
	Text  string     `json:"text,omitempty"`
}

// String renders the action in document syntax.
func (a Action) String() string {
	prefix := "prepend_"
	if a.Side == ir.After {
		prefix = "append_"
	}
	switch a.Kind {
	case ActionDelete, ActionLeaf, ActionAllowBlankLine:
		return a.Kind.String()
	case ActionBlankLines:
		return fmt.Sprintf("%s%s(%d)", prefix, a.Kind, a.Count)
	case ActionLiteral:
		return fmt.Sprintf("%s%s(%q)", prefix, a.Kind, a.Text)
	default:
		return prefix + a.Kind.String()
	}
}

// CaptureNames returns the capture names bound by all rules.
func (d *Document) CaptureNames() []string {
	seen := make(map[string]bool)
	var names []string
	for i := range d.Rules {
		for _, c := range d.Rules[i].Pattern.Captures() {
			if !seen[c] {
				seen[c] = true
				names = append(names, c)
			}
		}
	}
	return names
}

// Canonical returns a map suitable for ir.MarshalCanonical. The compiled
// regex and expression programs are represented by their source text.
func (d *Document) Canonical() map[string]any {
	rules := make([]any, len(d.Rules))
	for i := range d.Rules {
		r := &d.Rules[i]
		apply := make([]any, len(r.Apply))
		for j, ca := range r.Apply {
			actions := make([]any, len(ca.Actions))
			for k, a := range ca.Actions {
				actions[k] = a.String()
			}
			apply[j] = map[string]any{"capture": ca.Capture, "actions": actions}
		}
		rules[i] = map[string]any{
			"index":   r.Index,
			"name":    r.Name,
			"pattern": canonicalPattern(&r.Pattern),
			"apply":   apply,
		}
	}

	settings := map[string]any{}
	if d.Settings.Indent != nil {
		settings["indent"] = *d.Settings.Indent
	}
	if d.Settings.MaxBlankLines != nil {
		settings["max_blank_lines"] = *d.Settings.MaxBlankLines
	}

	return map[string]any{
		"version":  d.Version,
		"language": d.Language,
		"settings": settings,
		"rules":    rules,
	}
}

func canonicalPattern(p *Pattern) map[string]any {
	m := map[string]any{}
	fields := map[string]string{
		"kind": p.Kind, "text": p.Text, "regex": p.Regex, "field": p.Field,
		"inside": p.Inside, "where": p.Where, "capture": p.Capture,
	}
	for k, v := range fields {
		if v != "" {
			m[k] = v
		}
	}
	if len(p.Children) > 0 {
		children := make([]any, len(p.Children))
		for i := range p.Children {
			c := canonicalPattern(&p.Children[i].Pattern)
			if p.Children[i].Anchored {
				c["anchor"] = true
			}
			children[i] = c
		}
		m["children"] = children
	}
	return m
}
