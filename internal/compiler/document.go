package compiler

import (
	"fmt"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"github.com/expr-lang/expr"

	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/queryir"
)

var (
	documentKeys = map[string]bool{"version": true, "language": true, "settings": true, "rules": true}
	settingsKeys = map[string]bool{"indent": true, "max_blank_lines": true}
	ruleKeys     = map[string]bool{"name": true, "match": true, "apply": true}
	patternKeys  = map[string]bool{
		"kind": true, "text": true, "regex": true, "field": true, "inside": true,
		"where": true, "capture": true, "children": true,
	}
	childKeys = withKey(patternKeys, "anchor")
)

func withKey(base map[string]bool, key string) map[string]bool {
	out := make(map[string]bool, len(base)+1)
	for k := range base {
		out[k] = true
	}
	out[key] = true
	return out
}

// CompileDocumentBytes compiles CUE source text into a pattern document.
// filename is used in error positions only.
func CompileDocumentBytes(filename string, data []byte) (*queryir.Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	doc, err := CompileDocument(v)
	if err != nil {
		return nil, err
	}
	doc.Source = filename
	return doc, nil
}

// CompileDocument parses a CUE value into a pattern document.
//
// The value is the document struct itself:
//
//	version: 1
//	rules: [{name: "x", match: {kind: "statement", capture: "s"}, apply: s: ["append_hardline"]}]
//
// Compilation fails on the first structural problem, then runs
// queryir.Validate and fails on its first error-severity issue. Every
// failure is a *CompileError.
func CompileDocument(v cue.Value) (*queryir.Document, error) {
	doc, err := parseDocument(v)
	if err != nil {
		return nil, err
	}

	result := queryir.Validate(doc)
	if errs := result.Errors(); len(errs) > 0 {
		return nil, issueToCompileError(v, errs[0])
	}
	return doc, nil
}

// parseDocument builds the document without running semantic validation.
func parseDocument(v cue.Value) (*queryir.Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "document", Code: ErrDocumentNotStruct,
			Message: "pattern document must be a struct", Pos: v.Pos()}
	}
	if err := checkKnownFields(v, "", documentKeys); err != nil {
		return nil, err
	}

	doc := &queryir.Document{Version: ir.DocumentVersion}

	if vv := v.LookupPath(cue.ParsePath("version")); vv.Exists() {
		n, err := vv.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Version = int(n)
	}

	if lv := v.LookupPath(cue.ParsePath("language")); lv.Exists() {
		s, err := lv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Language = s
	}

	settings, err := parseSettings(v)
	if err != nil {
		return nil, err
	}
	doc.Settings = settings

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{Field: "rules", Code: ErrMissingRules,
			Message: "rules is required", Pos: v.Pos()}
	}
	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		rule, err := parseRule(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		doc.Rules = append(doc.Rules, *rule)
	}

	return doc, nil
}

func parseSettings(v cue.Value) (queryir.Settings, error) {
	var settings queryir.Settings
	sv := v.LookupPath(cue.ParsePath("settings"))
	if !sv.Exists() {
		return settings, nil
	}
	if err := checkKnownFields(sv, "settings.", settingsKeys); err != nil {
		return settings, err
	}
	if iv := sv.LookupPath(cue.ParsePath("indent")); iv.Exists() {
		s, err := iv.String()
		if err != nil {
			return settings, formatCUEError(err)
		}
		settings.Indent = &s
	}
	if mv := sv.LookupPath(cue.ParsePath("max_blank_lines")); mv.Exists() {
		n, err := mv.Int64()
		if err != nil {
			return settings, formatCUEError(err)
		}
		m := int(n)
		settings.MaxBlankLines = &m
	}
	return settings, nil
}

func parseRule(v cue.Value, index int) (*queryir.Rule, error) {
	prefix := fmt.Sprintf("rules[%d]", index)
	if err := checkKnownFields(v, prefix+".", ruleKeys); err != nil {
		return nil, err
	}

	rule := &queryir.Rule{Index: index, Pos: formatPos(v.Pos())}

	if nv := v.LookupPath(cue.ParsePath("name")); nv.Exists() {
		s, err := nv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		rule.Name = s
	}

	mv := v.LookupPath(cue.ParsePath("match"))
	if !mv.Exists() {
		return nil, &CompileError{Field: prefix + ".match", Code: ErrMissingMatch,
			Message: "match is required", Pos: v.Pos()}
	}
	pattern, err := parsePattern(mv, prefix+".match", patternKeys)
	if err != nil {
		return nil, err
	}
	rule.Pattern = *pattern

	if av := v.LookupPath(cue.ParsePath("apply")); av.Exists() {
		apply, err := parseApply(av, prefix+".apply")
		if err != nil {
			return nil, err
		}
		rule.Apply = apply
	}

	return rule, nil
}

func parsePattern(v cue.Value, field string, allowed map[string]bool) (*queryir.Pattern, error) {
	if err := checkKnownFields(v, field+".", allowed); err != nil {
		return nil, err
	}

	p := &queryir.Pattern{}
	strs := []struct {
		key string
		dst *string
	}{
		{"kind", &p.Kind},
		{"text", &p.Text},
		{"regex", &p.Regex},
		{"field", &p.Field},
		{"inside", &p.Inside},
		{"where", &p.Where},
		{"capture", &p.Capture},
	}
	for _, s := range strs {
		sv := v.LookupPath(cue.ParsePath(s.key))
		if !sv.Exists() {
			continue
		}
		str, err := sv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*s.dst = str
	}

	if p.Regex != "" {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, &CompileError{Field: field + ".regex", Code: ErrInvalidRegex,
				Message: fmt.Sprintf("invalid regex: %v", err), Pos: v.Pos()}
		}
		p.Match = re
	}

	if p.Where != "" {
		program, err := expr.Compile(p.Where, expr.Env(queryir.EnvSchema()), expr.AsBool())
		if err != nil {
			return nil, &CompileError{Field: field + ".where", Code: ErrInvalidWhere,
				Message: fmt.Sprintf("invalid where expression: %v", err), Pos: v.Pos()}
		}
		p.Program = program
	}

	cv := v.LookupPath(cue.ParsePath("children"))
	if cv.Exists() {
		iter, err := cv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			child, err := parseChild(iter.Value(), fmt.Sprintf("%s.children[%d]", field, i))
			if err != nil {
				return nil, err
			}
			p.Children = append(p.Children, *child)
		}
	}

	return p, nil
}

func parseChild(v cue.Value, field string) (*queryir.ChildPattern, error) {
	p, err := parsePattern(v, field, childKeys)
	if err != nil {
		return nil, err
	}
	child := &queryir.ChildPattern{Pattern: *p}
	if av := v.LookupPath(cue.ParsePath("anchor")); av.Exists() {
		b, err := av.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		child.Anchored = b
	}
	return child, nil
}

// checkKnownFields rejects struct fields outside the allowed set, the way
// yaml's KnownFields(true) rejects unknown keys.
func checkKnownFields(v cue.Value, prefix string, allowed map[string]bool) error {
	if v.IncompleteKind() != cue.StructKind {
		return &CompileError{Field: trimDot(prefix), Code: ErrWrongType,
			Message: "expected a struct", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Label()
		if !allowed[label] {
			return &CompileError{
				Field:   prefix + label,
				Code:    ErrUnknownField,
				Message: fmt.Sprintf("unknown field %q", label),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func formatPos(pos token.Pos) string {
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}

func trimDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}
