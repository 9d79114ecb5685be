// Package engine implements the pattern-driven formatting pipeline.
//
// ARCHITECTURE:
//
// Formatting one document is a sequential pipeline of pure stages:
//
//	source -> TreeProvider -> MatchAll -> Resolve -> BuildAtoms -> Render -> output
//
//  1. MatchAll walks the syntax tree once, depth-first in source order, and
//     tries the document's rules at every node. The first rule that matches
//     claims the node.
//  2. Resolve lowers each match's actions to directives, attaches them to
//     boundaries between leaves, and settles conflicts (delete, antispace,
//     blank line maxima).
//  3. BuildAtoms flattens leaves and directives into the atom stream.
//  4. Render turns atoms into text, tracking indentation and line breaks.
//
// Formatter.Format runs the pipeline twice (the second time over its own
// output) and fails unless both runs agree byte for byte.
//
// CRITICAL PATTERNS:
//
// Deterministic output:
// Rules are evaluated in declaration order; directives at one boundary are
// ordered by side, kind, rule index and action order. There is no
// randomness and no concurrency inside a single format.
//
// No partial output:
// Every stage either succeeds completely or returns a *FormatterError.
// Nothing is written by this package.
//
// Parallelism across files belongs to callers. A Formatter is safe for
// concurrent use as long as its providers are.
package engine
