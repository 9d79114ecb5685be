package engine

import (
	"github.com/expr-lang/expr"

	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/queryir"
)

// Match is one rule claiming one node.
type Match struct {
	Rule     int                  // index into Document.Rules
	Node     ir.NodeID            // the claimed node
	Captures map[string]ir.NodeID // capture name -> node
}

// MatchAll runs every rule of doc against tree.
//
// The tree is walked once, depth-first in source order. At each unclaimed
// node the rules are tried in declaration order; the first whose pattern
// matches claims the node and records its captures. Claiming a node does
// not claim its descendants, which are visited and matched on their own.
//
// Matches are returned in traversal order. MatchAll is pure and
// deterministic; the only error is a `where` predicate failing at runtime.
func MatchAll(tree *ir.Tree, doc *queryir.Document) ([]Match, error) {
	m := &matcher{tree: tree}
	claimed := make([]bool, tree.Len())
	var matches []Match
	var matchErr error

	tree.Walk(func(id ir.NodeID) bool {
		if matchErr != nil {
			return false
		}
		if claimed[id] {
			return true
		}
		for i := range doc.Rules {
			rule := &doc.Rules[i]
			caps := make(map[string]ir.NodeID)
			ok, err := m.matchNode(id, &rule.Pattern, caps)
			if err != nil {
				matchErr = NewRuleError(rule.Label(), "", "where predicate failed at %s node [%d,%d): %v",
					tree.Node(id).Kind, tree.Node(id).Start, tree.Node(id).End, err)
				return false
			}
			if ok {
				claimed[id] = true
				matches = append(matches, Match{Rule: i, Node: id, Captures: caps})
				break
			}
		}
		return true
	})

	if matchErr != nil {
		return nil, matchErr
	}
	return matches, nil
}

type matcher struct {
	tree *ir.Tree
}

// matchNode tests one node against a pattern, recording captures into caps
// on success. caps may hold partial captures after a failed match; callers
// pass a scratch map.
func (m *matcher) matchNode(id ir.NodeID, p *queryir.Pattern, caps map[string]ir.NodeID) (bool, error) {
	n := m.tree.Node(id)

	if !p.MatchesAnyKind() && n.Kind != p.Kind {
		return false, nil
	}
	if p.Field != "" && n.Field != p.Field {
		return false, nil
	}
	if p.Text != "" && m.tree.Text(id) != p.Text {
		return false, nil
	}
	if p.Match != nil && !p.Match.MatchString(m.tree.Text(id)) {
		return false, nil
	}
	if p.Inside != "" {
		if _, ok := m.tree.Enclosing(id, p.Inside); !ok {
			return false, nil
		}
	}
	if p.Program != nil {
		out, err := expr.Run(p.Program, m.env(id))
		if err != nil {
			return false, err
		}
		if b, _ := out.(bool); !b {
			return false, nil
		}
	}

	if len(p.Children) > 0 {
		bound, ok, err := m.matchChildren(n.Children, p.Children, 0, caps)
		if err != nil || !ok {
			return false, err
		}
		for k, v := range bound {
			caps[k] = v
		}
	}

	if p.Capture != "" {
		caps[p.Capture] = id
	}
	return true, nil
}

// matchChildren matches pats as an ordered subsequence of children starting
// at index from, backtracking leftmost-first. An anchored pattern must match
// exactly at from.
func (m *matcher) matchChildren(children []ir.NodeID, pats []queryir.ChildPattern, from int, caps map[string]ir.NodeID) (map[string]ir.NodeID, bool, error) {
	if len(pats) == 0 {
		return caps, true, nil
	}

	pat := &pats[0]
	last := len(children) - 1
	if pat.Anchored {
		last = from
	}

	for i := from; i <= last && i < len(children); i++ {
		trial := cloneCaptures(caps)
		ok, err := m.matchNode(children[i], &pat.Pattern, trial)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		rest, ok, err := m.matchChildren(children, pats[1:], i+1, trial)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return rest, true, nil
		}
	}
	return nil, false, nil
}

// env builds the `where` predicate environment for a node.
func (m *matcher) env(id ir.NodeID) map[string]any {
	n := m.tree.Node(id)
	env := queryir.EnvSchema()
	env[queryir.EnvKind] = n.Kind
	env[queryir.EnvText] = m.tree.Text(id)
	env[queryir.EnvField] = n.Field
	env[queryir.EnvDepth] = m.tree.Depth(id)
	env[queryir.EnvIndex] = m.tree.Index(id)
	env[queryir.EnvChildCount] = len(n.Children)
	env[queryir.EnvNamed] = n.Named
	line, _ := ir.LineColumn(m.tree.Source, n.Start)
	env[queryir.EnvLine] = line
	if n.Parent != ir.NoNode {
		env[queryir.EnvParentKind] = m.tree.Node(n.Parent).Kind
	}
	if prev, ok := m.tree.PrevSibling(id); ok {
		env[queryir.EnvPrevKind] = m.tree.Node(prev).Kind
	}
	if next, ok := m.tree.NextSibling(id); ok {
		env[queryir.EnvNextKind] = m.tree.Node(next).Kind
	}
	return env
}

func cloneCaptures(caps map[string]ir.NodeID) map[string]ir.NodeID {
	out := make(map[string]ir.NodeID, len(caps))
	for k, v := range caps {
		out[k] = v
	}
	return out
}
