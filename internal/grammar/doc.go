// Package grammar provides the tree providers that turn source text into
// ir.Tree values.
//
// TreeSitter wraps the tree-sitter grammars compiled into the binary
// (bash, ocaml, rust, toml). The stmt subpackage is a pure-Go grammar for
// the built-in demo language. Registry routes a language id to the
// provider that parses it.
package grammar
