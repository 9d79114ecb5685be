package engine

import (
	"github.com/roach88/shapefmt/internal/ir"
)

// BuildAtoms flattens a resolved document into the atom stream consumed by
// Render: for each boundary its directives in resolved order, followed by
// the next surviving leaf.
//
// Deleted leaves are already absent from res. BuildAtoms is pure and
// deterministic; it fails only if a leaf or anchor lies outside source.
func BuildAtoms(source []byte, res *Resolved) ([]ir.Atom, error) {
	if len(res.Boundaries) != len(res.Leaves)+1 {
		return nil, NewInternalError("resolved stream has %d boundaries for %d leaves",
			len(res.Boundaries), len(res.Leaves))
	}

	size := len(res.Leaves)
	for _, ds := range res.Boundaries {
		size += len(ds)
	}
	atoms := make([]ir.Atom, 0, size)

	for i, ds := range res.Boundaries {
		for _, d := range ds {
			if d.Offset < 0 || d.Offset > len(source) {
				return nil, NewRuleError(d.Origin.RuleName, d.Origin.Capture,
					"anchor %d outside source of length %d", d.Offset, len(source))
			}
			atoms = append(atoms, d)
		}
		if i == len(res.Leaves) {
			break
		}
		leaf := res.Leaves[i]
		if leaf.Start < 0 || leaf.End > len(source) || leaf.Start > leaf.End {
			return nil, NewInternalError("leaf [%d,%d) outside source of length %d",
				leaf.Start, leaf.End, len(source))
		}
		atoms = append(atoms, leaf)
	}
	return atoms, nil
}
