package ir

import (
	"fmt"
)

// NodeID addresses a node inside a Tree's arena.
type NodeID int

// NoNode is the parent of the root node.
const NoNode NodeID = -1

// Node is one syntax tree node. Byte range is [Start, End).
//
// Kind is the grammar's node type. Anonymous tokens (punctuation, keywords)
// use their literal text as kind, matching tree-sitter conventions.
type Node struct {
	Kind     string   `json:"kind"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Parent   NodeID   `json:"parent"`
	Children []NodeID `json:"children,omitempty"`
	Field    string   `json:"field,omitempty"`
	Named    bool     `json:"named"`
}

// Tree is an immutable syntax tree over Source.
//
// INVARIANTS (enforced by Builder.Build):
//   - every node range lies within [0, len(Source)]
//   - children lie within their parent's range
//   - sibling ranges never overlap and increase monotonically
type Tree struct {
	Source []byte
	Nodes  []Node
	Root   NodeID
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Text returns the source text covered by a node.
func (t *Tree) Text(id NodeID) string {
	n := &t.Nodes[id]
	return string(t.Source[n.Start:n.End])
}

// Depth returns the number of ancestors of a node.
func (t *Tree) Depth(id NodeID) int {
	depth := 0
	for p := t.Nodes[id].Parent; p != NoNode; p = t.Nodes[p].Parent {
		depth++
	}
	return depth
}

// Enclosing returns the nearest strict ancestor with the given kind.
func (t *Tree) Enclosing(id NodeID, kind string) (NodeID, bool) {
	for p := t.Nodes[id].Parent; p != NoNode; p = t.Nodes[p].Parent {
		if t.Nodes[p].Kind == kind {
			return p, true
		}
	}
	return NoNode, false
}

// Index returns the position of a node among its parent's children, or 0 for the root.
func (t *Tree) Index(id NodeID) int {
	parent := t.Nodes[id].Parent
	if parent == NoNode {
		return 0
	}
	for i, c := range t.Nodes[parent].Children {
		if c == id {
			return i
		}
	}
	return 0
}

// PrevSibling returns the sibling immediately before id.
func (t *Tree) PrevSibling(id NodeID) (NodeID, bool) {
	parent := t.Nodes[id].Parent
	if parent == NoNode {
		return NoNode, false
	}
	i := t.Index(id)
	if i == 0 {
		return NoNode, false
	}
	return t.Nodes[parent].Children[i-1], true
}

// NextSibling returns the sibling immediately after id.
func (t *Tree) NextSibling(id NodeID) (NodeID, bool) {
	parent := t.Nodes[id].Parent
	if parent == NoNode {
		return NoNode, false
	}
	siblings := t.Nodes[parent].Children
	i := t.Index(id)
	if i+1 >= len(siblings) {
		return NoNode, false
	}
	return siblings[i+1], true
}

// Walk visits every node depth-first in source order. Returning false from
// fn skips the node's descendants.
func (t *Tree) Walk(fn func(id NodeID) bool) {
	if len(t.Nodes) == 0 {
		return
	}
	stack := []NodeID{t.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(id) {
			continue
		}
		children := t.Nodes[id].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Builder assembles a Tree. Nodes must be added parent first and, among
// siblings, in source order.
type Builder struct {
	source []byte
	nodes  []Node
}

// NewBuilder creates a builder over source.
func NewBuilder(source []byte) *Builder {
	return &Builder{source: source}
}

// Add appends a node under parent (NoNode for the root) and returns its id.
func (b *Builder) Add(parent NodeID, kind string, start, end int, field string, named bool) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Kind:   kind,
		Start:  start,
		End:    end,
		Parent: parent,
		Field:  field,
		Named:  named,
	})
	if parent != NoNode && int(parent) < len(b.nodes) {
		b.nodes[parent].Children = append(b.nodes[parent].Children, id)
	}
	return id
}

// Build validates the collected nodes and returns the tree. The first node
// added is the root.
func (b *Builder) Build() (*Tree, error) {
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	t := &Tree{Source: b.source, Nodes: b.nodes, Root: 0}
	if t.Nodes[0].Parent != NoNode {
		return nil, fmt.Errorf("root node must not have a parent")
	}
	for i := range t.Nodes {
		if err := t.validateNode(NodeID(i)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) validateNode(id NodeID) error {
	n := &t.Nodes[id]
	if n.Start < 0 || n.End < n.Start || n.End > len(t.Source) {
		return fmt.Errorf("node %d (%s): range [%d,%d) outside source of length %d",
			id, n.Kind, n.Start, n.End, len(t.Source))
	}
	if id != t.Root && n.Parent == NoNode {
		return fmt.Errorf("node %d (%s): detached from tree", id, n.Kind)
	}
	prevEnd := n.Start
	for _, c := range n.Children {
		if c <= id || int(c) >= len(t.Nodes) {
			return fmt.Errorf("node %d (%s): invalid child id %d", id, n.Kind, c)
		}
		child := &t.Nodes[c]
		if child.Start < n.Start || child.End > n.End {
			return fmt.Errorf("node %d (%s): child %d (%s) [%d,%d) outside parent [%d,%d)",
				id, n.Kind, c, child.Kind, child.Start, child.End, n.Start, n.End)
		}
		if child.Start < prevEnd {
			return fmt.Errorf("node %d (%s): child %d (%s) overlaps previous sibling",
				id, n.Kind, c, child.Kind)
		}
		prevEnd = child.End
	}
	return nil
}

// ParseError is reported by tree providers when source contains a syntax error.
// Line and Column are 1-based.
type ParseError struct {
	Line    int
	Column  int
	Kind    string
	Message string
}

func (e *ParseError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("parse error at %d:%d (%s): %s", e.Line, e.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// LineColumn converts a byte offset into 1-based line and column numbers.
func LineColumn(source []byte, offset int) (line, column int) {
	line, column = 1, 1
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
