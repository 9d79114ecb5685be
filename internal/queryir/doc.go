// Package queryir defines the compiled form of a pattern document.
//
// A pattern document is an ordered list of rules. Each rule pairs a
// structural pattern, matched against syntax tree nodes, with the layout
// actions applied to the nodes the pattern captures.
//
// ORDER:
//
// Rule order is significant. The query engine tries rules in declaration
// order and the first rule to match a node claims it; Rule.Index records
// that order and is also the tie-breaker for directives at the same
// boundary.
//
// ACTIONS:
//
// Actions are the document-level vocabulary ("append_hardline",
// "prepend_antispace", "leaf", ...). The directive resolver lowers them to
// ir.Directive values anchored at the captured node's edges.
//
// Documents are read-only once compiled and may be shared across goroutines.
package queryir
