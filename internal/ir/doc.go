// Package ir provides the foundational types shared by the formatter pipeline.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// The package holds three families of types:
//   - The syntax tree (Tree, Node, NodeID, Builder): an arena of nodes addressed
//     by index. Parents are referenced by index, never by pointer.
//   - Directives: the layout instructions produced by pattern rules.
//   - Atoms: the flat stream (Leaf text plus Directives) consumed by the renderer.
//
// Canonical JSON and domain-separated hashing live here as well so that cache
// keys are computed the same way everywhere.
package ir
