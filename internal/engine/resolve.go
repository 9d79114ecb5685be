package engine

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/queryir"
)

// Resolved is the output of directive resolution: the surviving leaves and,
// for each boundary between them, the directives to emit there in order.
//
// Boundaries has len(Leaves)+1 entries. Boundary i sits immediately before
// Leaves[i]; the last boundary is the end of the stream.
type Resolved struct {
	Source     []byte
	Leaves     []ir.Leaf
	Boundaries [][]ir.Directive

	// Deleted counts leaves removed by delete actions.
	Deleted int
}

// pending is a directive plus the captured node that produced it.
type pending struct {
	d    ir.Directive
	node ir.Span
	gap  int // raw boundary index over all leaves, deleted included
}

// Resolve lowers the actions of every match to directives, attaches them to
// leaf boundaries and resolves conflicts:
//
//  1. Delete removes the captured leaves and suppresses every other
//     directive captured inside the deleted range.
//  2. Antispace removes every space and blank-lines directive at its boundary.
//  3. Competing blank-lines directives collapse to the maximum count.
//  4. Indentation directives are never suppressed and must never close more
//     levels than were opened.
//
// Directives captured on nodes strictly inside an atomic leaf are ignored.
// Resolve is pure; it fails only on invariant violations.
func Resolve(tree *ir.Tree, doc *queryir.Document, matches []Match) (*Resolved, error) {
	r := &resolver{tree: tree, doc: doc}
	r.markAtomic(matches)
	r.collectLeaves()

	var directives []pending
	var deletes []ir.Span

	for _, match := range matches {
		if match.Rule < 0 || match.Rule >= len(doc.Rules) {
			return nil, NewInternalError("match refers to unknown rule %d", match.Rule)
		}
		rule := &doc.Rules[match.Rule]
		order := 0
		for _, ca := range rule.Apply {
			id, ok := match.Captures[ca.Capture]
			if !ok {
				return nil, NewRuleError(rule.Label(), ca.Capture, "capture missing from match")
			}
			node := tree.Node(id)
			if r.insideAtomic[id] {
				order += len(ca.Actions)
				continue
			}
			for _, a := range ca.Actions {
				origin := ir.Origin{Rule: match.Rule, RuleName: rule.Name, Capture: ca.Capture, Order: order}
				order++

				switch a.Kind {
				case queryir.ActionLeaf:
					// Consumed by markAtomic.
					continue
				case queryir.ActionDelete:
					deletes = append(deletes, ir.Span{Start: node.Start, End: node.End})
					continue
				case queryir.ActionAllowBlankLine:
					if !r.blankLineBefore(node.Start) {
						continue
					}
					a = queryir.Action{Kind: queryir.ActionBlankLines, Side: ir.Before, Count: 1}
				case queryir.ActionSpace, queryir.ActionNoSpace, queryir.ActionHardline,
					queryir.ActionBlankLines, queryir.ActionIndentStart, queryir.ActionIndentEnd,
					queryir.ActionLiteral:
				default:
					return nil, NewRuleError(rule.Label(), ca.Capture, "unknown action %s", a.Kind)
				}

				d, err := lower(a, node, origin)
				if err != nil {
					return nil, NewRuleError(rule.Label(), ca.Capture, "%s", err.Error())
				}
				if d.Offset < 0 || d.Offset > len(tree.Source) {
					return nil, NewRuleError(rule.Label(), ca.Capture,
						"anchor %d outside source of length %d", d.Offset, len(tree.Source))
				}
				directives = append(directives, pending{
					d:    d,
					node: ir.Span{Start: node.Start, End: node.End},
					gap:  r.gapFor(d),
				})
			}
		}
	}

	deleted := r.applyDeletes(deletes)
	directives = suppressDeleted(directives, deletes)
	res := r.assemble(directives, deleted)

	if err := checkIndentBalance(res); err != nil {
		return nil, err
	}
	return res, nil
}

type resolver struct {
	tree   *ir.Tree
	doc    *queryir.Document
	atomic []bool // node renders as one leaf

	// insideAtomic marks strict descendants of atomic nodes.
	insideAtomic []bool

	leaves []ir.Span
}

// markAtomic records nodes captured with the leaf action.
func (r *resolver) markAtomic(matches []Match) {
	r.atomic = make([]bool, r.tree.Len())
	r.insideAtomic = make([]bool, r.tree.Len())
	for _, match := range matches {
		if match.Rule < 0 || match.Rule >= len(r.doc.Rules) {
			continue
		}
		rule := &r.doc.Rules[match.Rule]
		for _, ca := range rule.Apply {
			for _, a := range ca.Actions {
				if a.Kind != queryir.ActionLeaf {
					continue
				}
				if id, ok := match.Captures[ca.Capture]; ok {
					r.atomic[id] = true
				}
			}
		}
	}
}

// collectLeaves finds the leaf spans in source order. A node is a leaf if
// it has no children, was captured with the leaf action, or has text that
// its children do not cover. Empty and whitespace-only leaves are skipped.
func (r *resolver) collectLeaves() {
	t := r.tree
	t.Walk(func(id ir.NodeID) bool {
		n := t.Node(id)
		if !r.atomic[id] && len(n.Children) > 0 && r.childrenCover(id) {
			return true
		}
		r.atomic[id] = true
		r.markDescendants(id)
		if n.End > n.Start && len(bytes.TrimSpace(t.Source[n.Start:n.End])) > 0 {
			r.leaves = append(r.leaves, ir.Span{Start: n.Start, End: n.End})
		}
		return false
	})
}

// childrenCover reports whether every non-whitespace byte of the node lies
// inside one of its children.
func (r *resolver) childrenCover(id ir.NodeID) bool {
	t := r.tree
	n := t.Node(id)
	pos := n.Start
	for _, c := range n.Children {
		child := t.Node(c)
		if len(bytes.TrimSpace(t.Source[pos:child.Start])) > 0 {
			return false
		}
		pos = child.End
	}
	return len(bytes.TrimSpace(t.Source[pos:n.End])) == 0
}

func (r *resolver) markDescendants(id ir.NodeID) {
	for _, c := range r.tree.Node(id).Children {
		r.insideAtomic[c] = true
		r.markDescendants(c)
	}
}

// blankLineBefore reports whether the whitespace preceding offset contains
// at least one empty line.
func (r *resolver) blankLineBefore(offset int) bool {
	newlines := 0
	for i := offset - 1; i >= 0; i-- {
		c := r.tree.Source[i]
		if c == '\n' {
			newlines++
			continue
		}
		if c != ' ' && c != '\t' && c != '\r' {
			break
		}
	}
	return newlines >= 2
}

// gapFor maps a directive's anchor to a raw boundary index. A before-side
// anchor attaches in front of the first leaf starting at or after it; an
// after-side anchor attaches behind the last leaf ending at or before it.
func (r *resolver) gapFor(d ir.Directive) int {
	if d.Side == ir.Before {
		return sort.Search(len(r.leaves), func(i int) bool {
			return r.leaves[i].Start >= d.Offset
		})
	}
	// Number of leaves with End <= offset.
	return sort.Search(len(r.leaves), func(i int) bool {
		return r.leaves[i].End > d.Offset
	})
}

// applyDeletes marks every leaf inside a deleted span.
func (r *resolver) applyDeletes(deletes []ir.Span) []bool {
	deleted := make([]bool, len(r.leaves))
	for _, del := range deletes {
		for i, leaf := range r.leaves {
			if leaf.Start >= del.Start && leaf.End <= del.End {
				deleted[i] = true
			}
		}
	}
	return deleted
}

// suppressDeleted drops directives captured inside deleted spans, except
// indentation which must stay balanced.
func suppressDeleted(directives []pending, deletes []ir.Span) []pending {
	if len(deletes) == 0 {
		return directives
	}
	out := directives[:0:0]
	for _, p := range directives {
		if p.d.Kind != ir.IndentStart && p.d.Kind != ir.IndentEnd && withinAny(p.node, deletes) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func withinAny(s ir.Span, spans []ir.Span) bool {
	for _, del := range spans {
		if s.Start >= del.Start && s.End <= del.End && del.End > del.Start {
			return true
		}
	}
	return false
}

// assemble builds the surviving leaf list and per-boundary directive lists.
// Boundaries on either side of a deleted leaf merge into one.
func (r *resolver) assemble(directives []pending, deleted []bool) *Resolved {
	res := &Resolved{Source: r.tree.Source}

	// effective[g] = number of surviving leaves before raw gap g
	effective := make([]int, len(r.leaves)+1)
	for i, leaf := range r.leaves {
		effective[i+1] = effective[i]
		if deleted[i] {
			res.Deleted++
			continue
		}
		effective[i+1]++
		res.Leaves = append(res.Leaves, ir.Leaf{
			Text:  string(r.tree.Source[leaf.Start:leaf.End]),
			Start: leaf.Start,
			End:   leaf.End,
		})
	}

	buckets := make([][]ir.Directive, len(res.Leaves)+1)
	for _, p := range directives {
		g := effective[p.gap]
		buckets[g] = append(buckets[g], p.d)
	}
	for i := range buckets {
		buckets[i] = resolveBoundary(buckets[i])
	}
	res.Boundaries = buckets
	return res
}

// resolveBoundary orders one boundary's directives and settles conflicts.
func resolveBoundary(ds []ir.Directive) []ir.Directive {
	if len(ds) == 0 {
		return ds
	}

	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Side != b.Side {
			return a.Side == ir.After
		}
		if ra, rb := kindRank(a), kindRank(b); ra != rb {
			return ra < rb
		}
		if a.Origin.Rule != b.Origin.Rule {
			return a.Origin.Rule < b.Origin.Rule
		}
		return a.Origin.Order < b.Origin.Order
	})

	antispace := false
	maxBlank := -1
	for _, d := range ds {
		switch d.Kind {
		case ir.NoSpace:
			antispace = true
		case ir.InsertBlankLines:
			if d.Count > maxBlank {
				maxBlank = d.Count
			}
		case ir.InsertSpace, ir.InsertHardline, ir.IndentStart, ir.IndentEnd, ir.Delete, ir.Literal:
		}
	}

	out := make([]ir.Directive, 0, len(ds))
	seen := make(map[ir.DirectiveKind]bool)
	blankKept := false
	for _, d := range ds {
		switch d.Kind {
		case ir.InsertSpace:
			if antispace || seen[d.Kind] {
				continue
			}
		case ir.InsertBlankLines:
			if antispace || blankKept || d.Count != maxBlank {
				continue
			}
			blankKept = true
		case ir.InsertHardline, ir.NoSpace:
			if seen[d.Kind] {
				continue
			}
		case ir.Delete:
			// Deletes never reach a boundary.
			continue
		case ir.IndentStart, ir.IndentEnd, ir.Literal:
		}
		seen[d.Kind] = true
		out = append(out, d)
	}
	return out
}

// kindRank orders directive kinds within one side of a boundary. Text
// added behind a node comes first on the after side; text added in front
// of a node comes last on the before side.
func kindRank(d ir.Directive) int {
	rank := 0
	switch d.Kind {
	case ir.Literal:
		rank = 0
	case ir.IndentEnd:
		rank = 1
	case ir.IndentStart:
		rank = 2
	case ir.InsertBlankLines:
		rank = 3
	case ir.InsertHardline:
		rank = 4
	case ir.InsertSpace:
		rank = 5
	case ir.NoSpace:
		rank = 6
	case ir.Delete:
		rank = 8
	}
	if d.Side == ir.Before && d.Kind == ir.Literal {
		rank = 7
	}
	return rank
}

// lower converts a positional action into a directive anchored at the
// captured node.
func lower(a queryir.Action, n *ir.Node, origin ir.Origin) (ir.Directive, error) {
	d := ir.Directive{Side: a.Side, Origin: origin, Offset: n.Start}
	if a.Side == ir.After {
		d.Offset = n.End
	}
	switch a.Kind {
	case queryir.ActionSpace:
		d.Kind = ir.InsertSpace
	case queryir.ActionNoSpace:
		d.Kind = ir.NoSpace
	case queryir.ActionHardline:
		d.Kind = ir.InsertHardline
	case queryir.ActionBlankLines:
		d.Kind = ir.InsertBlankLines
		d.Count = a.Count
	case queryir.ActionIndentStart:
		d.Kind = ir.IndentStart
	case queryir.ActionIndentEnd:
		d.Kind = ir.IndentEnd
	case queryir.ActionLiteral:
		d.Kind = ir.Literal
		d.Text = a.Text
	case queryir.ActionDelete, queryir.ActionLeaf, queryir.ActionAllowBlankLine:
		return d, fmt.Errorf("action %s has no directive form", a)
	default:
		return d, fmt.Errorf("action %s has no directive form", a)
	}
	return d, nil
}

// checkIndentBalance walks the resolved stream and fails if any prefix
// closes more indentation levels than it opened.
func checkIndentBalance(res *Resolved) error {
	depth := 0
	for g, ds := range res.Boundaries {
		for _, d := range ds {
			switch d.Kind {
			case ir.IndentStart:
				depth++
			case ir.IndentEnd:
				depth--
				if depth < 0 {
					rule := d.Origin.RuleName
					if rule == "" {
						rule = fmt.Sprintf("rules[%d]", d.Origin.Rule)
					}
					return NewRuleError(rule, d.Origin.Capture,
						"indentation closed more levels than were opened at boundary %d", g)
				}
			case ir.InsertSpace, ir.InsertHardline, ir.InsertBlankLines, ir.Delete, ir.Literal, ir.NoSpace:
			}
		}
	}
	return nil
}
