package grammar

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/ocaml"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/toml"

	"github.com/roach88/shapefmt/internal/ir"
)

// Language ids backed by tree-sitter grammars.
const (
	Bash                = "bash"
	OCaml               = "ocaml"
	OCamlImplementation = "ocaml-implementation"
	Rust                = "rust"
	TOML                = "toml"
)

// TreeSitter parses languages with compiled tree-sitter grammars.
//
// A fresh sitter.Parser is created per call, so TreeSitter is safe for
// concurrent use.
type TreeSitter struct {
	grammars map[string]func() *sitter.Language
}

// NewTreeSitter returns a provider for every bundled grammar.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{grammars: map[string]func() *sitter.Language{
		Bash:                bash.GetLanguage,
		OCaml:               ocaml.GetLanguage,
		OCamlImplementation: ocaml.GetLanguage,
		Rust:                rust.GetLanguage,
		TOML:                toml.GetLanguage,
	}}
}

// Languages returns the supported language ids, sorted.
func (t *TreeSitter) Languages() []string {
	ids := make([]string, 0, len(t.grammars))
	for id := range t.grammars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Supports reports whether language has a grammar.
func (t *TreeSitter) Supports(language string) bool {
	_, ok := t.grammars[language]
	return ok
}

// Parse parses source and converts the concrete syntax tree. A tree with
// ERROR or MISSING nodes yields an *ir.ParseError for the first one.
func (t *TreeSitter) Parse(ctx context.Context, source []byte, language string) (*ir.Tree, error) {
	grammar, ok := t.grammars[language]
	if !ok {
		return nil, fmt.Errorf("no tree-sitter grammar for %q", language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root)
	}

	b := ir.NewBuilder(source)
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()
	convert(b, cursor, ir.NoNode)
	return b.Build()
}

// convert adds the cursor's current node and its subtree to b.
func convert(b *ir.Builder, c *sitter.TreeCursor, parent ir.NodeID) {
	n := c.CurrentNode()
	id := b.Add(parent, n.Type(), int(n.StartByte()), int(n.EndByte()), c.CurrentFieldName(), n.IsNamed())
	if !c.GoToFirstChild() {
		return
	}
	for {
		convert(b, c, id)
		if !c.GoToNextSibling() {
			break
		}
	}
	c.GoToParent()
}

// firstError locates the first ERROR or MISSING node in source order.
func firstError(root *sitter.Node) error {
	var found *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.IsMissing() || n.Type() == "ERROR" {
			found = n
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)

	if found == nil {
		found = root
	}
	pt := found.StartPoint()
	pe := &ir.ParseError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1}
	if found.IsMissing() {
		pe.Kind = "MISSING"
		pe.Message = fmt.Sprintf("missing %q", found.Type())
	} else {
		pe.Kind = "ERROR"
		pe.Message = "unexpected syntax"
	}
	return pe
}
