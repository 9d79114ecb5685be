package compiler

import (
	"fmt"

	"github.com/roach88/shapefmt/internal/queryir"
)

// ShadowWarning reports a rule that can never claim a node.
//
// Shadowing is a warning, not an error: a document may keep a dead rule
// around while it is being edited, and the formatter still behaves
// deterministically.
type ShadowWarning struct {
	Rule       string `json:"rule"`        // label of the unreachable rule
	ShadowedBy string `json:"shadowed_by"` // label of the earlier rule
	Message    string `json:"message"`
	Level      string `json:"level"` // "warning" or "info"
}

// AnalyzeShadowing performs static reachability analysis on a document's rules.
//
// The query engine tries rules in declaration order and the first match
// claims the node. An earlier rule whose pattern constrains nothing but the
// node kind therefore claims every node of that kind, and a later rule with
// the same kind (or any rule, if the earlier one is a wildcard) never fires.
//
// Duplicate rule names are reported at "info" level.
func AnalyzeShadowing(doc *queryir.Document) []ShadowWarning {
	warnings := []ShadowWarning{}
	if doc == nil || len(doc.Rules) == 0 {
		return warnings
	}

	// kind -> first unconstrained rule claiming it ("_" for wildcard)
	claimers := make(map[string]*queryir.Rule)
	names := make(map[string]int)

	for i := range doc.Rules {
		r := &doc.Rules[i]

		if r.Name != "" {
			if prev, ok := names[r.Name]; ok {
				warnings = append(warnings, ShadowWarning{
					Rule:       r.Label(),
					ShadowedBy: doc.Rules[prev].Label(),
					Message:    fmt.Sprintf("rule name %q is used by rules[%d] and rules[%d]", r.Name, prev, i),
					Level:      "info",
				})
			} else {
				names[r.Name] = i
			}
		}

		if by := shadowingRule(claimers, &r.Pattern); by != nil {
			warnings = append(warnings, ShadowWarning{
				Rule:       r.Label(),
				ShadowedBy: by.Label(),
				Message: fmt.Sprintf("rule %s can never match: %s claims every %s node first",
					r.Label(), by.Label(), kindLabel(&by.Pattern)),
				Level: "warning",
			})
			continue
		}

		if r.Pattern.Unconstrained() {
			key := r.Pattern.Kind
			if r.Pattern.MatchesAnyKind() {
				key = queryir.Wildcard
			}
			if _, ok := claimers[key]; !ok {
				claimers[key] = r
			}
		}
	}

	return warnings
}

func shadowingRule(claimers map[string]*queryir.Rule, p *queryir.Pattern) *queryir.Rule {
	if by, ok := claimers[queryir.Wildcard]; ok {
		return by
	}
	if p.MatchesAnyKind() {
		return nil
	}
	return claimers[p.Kind]
}

func kindLabel(p *queryir.Pattern) string {
	if p.MatchesAnyKind() {
		return "kind of"
	}
	return fmt.Sprintf("%q", p.Kind)
}
