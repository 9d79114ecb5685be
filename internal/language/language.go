// Package language maps language names and file extensions to language
// ids, and locates and compiles the pattern document for each language.
package language

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/shapefmt/internal/engine"
)

// Language describes one supported language.
type Language struct {
	ID         string
	Extensions []string

	// QueryFile is the base name of the pattern document. Languages whose
	// grammars produce similar trees share one document.
	QueryFile string
}

var languages = []Language{
	{ID: "bash", Extensions: []string{"sh", "bash"}, QueryFile: "bash.cue"},
	{ID: "ocaml", QueryFile: "ocaml.cue"},
	{ID: "ocaml-implementation", Extensions: []string{"ml"}, QueryFile: "ocaml.cue"},
	{ID: "rust", Extensions: []string{"rs"}, QueryFile: "rust.cue"},
	{ID: "stmt", Extensions: []string{"stmt"}, QueryFile: "stmt.cue"},
	{ID: "toml", Extensions: []string{"toml"}, QueryFile: "toml.cue"},
}

// All returns every supported language in id order.
func All() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// FromName resolves a language name, ignoring case.
func FromName(name string) (Language, error) {
	id := strings.ToLower(name)
	for _, l := range languages {
		if l.ID == id {
			return l, nil
		}
	}
	return Language{}, engine.NewLanguageDetectionError(fmt.Sprintf("unsupported language %q", name))
}

// Detect resolves a language from a file path's extension. Extensions are
// compared case-sensitively.
func Detect(path string) (Language, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return Language{}, engine.NewLanguageDetectionError(
			fmt.Sprintf("cannot detect language of %s: no file extension", path))
	}
	for _, l := range languages {
		for _, candidate := range l.Extensions {
			if candidate == ext {
				return l, nil
			}
		}
	}
	return Language{}, engine.NewLanguageDetectionError(
		fmt.Sprintf("cannot detect language of %s: unknown extension %q", path, ext))
}

// QueryFileBase returns the pattern document base name for a language id,
// or "" if the id is unknown.
func QueryFileBase(id string) string {
	for _, l := range languages {
		if l.ID == id {
			return l.QueryFile
		}
	}
	return ""
}
