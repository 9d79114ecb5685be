package compiler

import (
	"fmt"
	"regexp"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/queryir"
)

var (
	positionalAction = regexp.MustCompile(`^(append|prepend)_(space|antispace|hardline|indent_start|indent_end)$`)
	blankLinesAction = regexp.MustCompile(`^(append|prepend)_blank_lines\((\d+)\)$`)
	literalAction    = regexp.MustCompile(`^(append|prepend)_literal\(("(?:[^"\\]|\\.)*")\)$`)
)

var positionalKinds = map[string]queryir.ActionKind{
	"space":        queryir.ActionSpace,
	"antispace":    queryir.ActionNoSpace,
	"hardline":     queryir.ActionHardline,
	"indent_start": queryir.ActionIndentStart,
	"indent_end":   queryir.ActionIndentEnd,
}

// parseApply parses the apply struct: capture name -> action list.
// A single string is accepted in place of a one-element list.
// Capture order follows declaration order in the document.
func parseApply(v cue.Value, field string) ([]queryir.CaptureActions, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Code: ErrWrongType,
			Message: "apply must map capture names to action lists", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []queryir.CaptureActions
	for iter.Next() {
		capture := iter.Label()
		av := iter.Value()
		capField := field + "." + capture

		var raw []string
		switch av.IncompleteKind() {
		case cue.StringKind:
			s, err := av.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			raw = []string{s}
		case cue.ListKind:
			items, err := av.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for items.Next() {
				s, err := items.Value().String()
				if err != nil {
					return nil, &CompileError{Field: capField, Code: ErrWrongType,
						Message: "actions must be strings", Pos: items.Value().Pos()}
				}
				raw = append(raw, s)
			}
		default:
			return nil, &CompileError{Field: capField, Code: ErrWrongType,
				Message: "actions must be a string or a list of strings", Pos: av.Pos()}
		}

		actions := make([]queryir.Action, 0, len(raw))
		for _, s := range raw {
			a, err := ParseAction(s)
			if err != nil {
				return nil, &CompileError{Field: capField, Code: ErrUnknownAction,
					Message: err.Error(), Pos: av.Pos()}
			}
			actions = append(actions, a)
		}
		out = append(out, queryir.CaptureActions{Capture: capture, Actions: actions})
	}
	return out, nil
}

// ParseAction parses one action string such as "append_hardline",
// "prepend_blank_lines(2)" or `append_literal(";")`.
func ParseAction(s string) (queryir.Action, error) {
	switch s {
	case "delete":
		return queryir.Action{Kind: queryir.ActionDelete}, nil
	case "leaf":
		return queryir.Action{Kind: queryir.ActionLeaf}, nil
	case "allow_blank_line_before":
		return queryir.Action{Kind: queryir.ActionAllowBlankLine, Side: ir.Before}, nil
	}

	if m := positionalAction.FindStringSubmatch(s); m != nil {
		return queryir.Action{Kind: positionalKinds[m[2]], Side: sideOf(m[1])}, nil
	}

	if m := blankLinesAction.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return queryir.Action{}, fmt.Errorf("invalid blank line count in %q: %w", s, err)
		}
		return queryir.Action{Kind: queryir.ActionBlankLines, Side: sideOf(m[1]), Count: n}, nil
	}

	if m := literalAction.FindStringSubmatch(s); m != nil {
		text, err := strconv.Unquote(m[2])
		if err != nil {
			return queryir.Action{}, fmt.Errorf("invalid literal in %q: %w", s, err)
		}
		return queryir.Action{Kind: queryir.ActionLiteral, Side: sideOf(m[1]), Text: text}, nil
	}

	return queryir.Action{}, fmt.Errorf("unknown action %q", s)
}

func sideOf(prefix string) ir.Side {
	if prefix == "append" {
		return ir.After
	}
	return ir.Before
}
