package language

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/shapefmt/internal/compiler"
	"github.com/roach88/shapefmt/internal/engine"
	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/queryir"
)

// EnvLanguageDir names the environment variable holding a directory of
// pattern documents. It takes priority over every other source.
const EnvLanguageDir = "SHAPEFMT_LANGUAGE_DIR"

// BuildLanguageDir is a pattern document directory fixed at build time:
//
//	go build -ldflags "-X github.com/roach88/shapefmt/internal/language.BuildLanguageDir=/usr/share/shapefmt"
var BuildLanguageDir string

//go:embed languages/*.cue
var bundled embed.FS

// Origin says where a pattern document was found.
type Origin string

const (
	OriginDir     Origin = "dir"
	OriginEnv     Origin = "env"
	OriginBuild   Origin = "build"
	OriginBundled Origin = "bundled"
)

// Location is a resolved pattern document.
type Location struct {
	Origin Origin
	Path   string
}

func (l Location) String() string {
	return fmt.Sprintf("%s (%s)", l.Path, l.Origin)
}

// Documents locates, compiles and caches pattern documents. It implements
// engine.DocumentProvider and is safe for concurrent use.
//
// Sources are tried in order and the first that holds the language's
// document wins:
//
//  1. the directory given with WithDir
//  2. $SHAPEFMT_LANGUAGE_DIR
//  3. BuildLanguageDir
//  4. the documents bundled into the binary
type Documents struct {
	dir      string
	getenv   func(string) string
	buildDir string
	bundled  fs.FS

	mu    sync.Mutex
	cache map[Location]*queryir.Document
}

// DocumentsOption configures Documents.
type DocumentsOption func(*Documents)

// WithDir adds an explicit document directory ahead of every other source.
func WithDir(dir string) DocumentsOption {
	return func(d *Documents) {
		d.dir = dir
	}
}

// WithGetenv replaces os.Getenv.
func WithGetenv(getenv func(string) string) DocumentsOption {
	return func(d *Documents) {
		d.getenv = getenv
	}
}

// WithBuildDir replaces BuildLanguageDir.
func WithBuildDir(dir string) DocumentsOption {
	return func(d *Documents) {
		d.buildDir = dir
	}
}

// NewDocuments creates a provider.
func NewDocuments(opts ...DocumentsOption) *Documents {
	d := &Documents{
		getenv:   os.Getenv,
		buildDir: BuildLanguageDir,
		bundled:  bundled,
		cache:    make(map[Location]*queryir.Document),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Locate finds the pattern document for a language id without reading it.
func (d *Documents) Locate(id string) (Location, error) {
	base := QueryFileBase(id)
	if base == "" {
		return Location{}, engine.NewLanguageDetectionError(fmt.Sprintf("unsupported language %q", id))
	}

	dirs := []struct {
		origin Origin
		dir    string
	}{
		{OriginDir, d.dir},
		{OriginEnv, d.getenv(EnvLanguageDir)},
		{OriginBuild, d.buildDir},
	}
	for _, c := range dirs {
		if c.dir == "" {
			continue
		}
		path := filepath.Join(c.dir, base)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return Location{Origin: c.origin, Path: path}, nil
		}
	}

	path := "languages/" + base
	if _, err := fs.Stat(d.bundled, path); err == nil {
		return Location{Origin: OriginBundled, Path: path}, nil
	}
	return Location{}, engine.NewNotFoundError(
		fmt.Sprintf("no pattern document %s for language %q", base, id), fs.ErrNotExist)
}

// Document implements engine.DocumentProvider.
func (d *Documents) Document(ctx context.Context, id string) (*queryir.Document, error) {
	loc, err := d.Locate(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if doc, ok := d.cache[loc]; ok {
		return doc, nil
	}

	data, err := d.read(loc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, engine.NewNotFoundError("pattern document disappeared: "+loc.Path, err)
		}
		return nil, engine.NewReadingError("cannot read pattern document "+loc.Path, err)
	}
	doc, err := compiler.CompileDocumentBytes(loc.Path, data)
	if err != nil {
		return nil, engine.NewQueryError("invalid pattern document "+loc.Path, err)
	}
	d.cache[loc] = doc
	return doc, nil
}

// Hash returns the content hash of a language's compiled document.
func (d *Documents) Hash(ctx context.Context, id string) (string, error) {
	doc, err := d.Document(ctx, id)
	if err != nil {
		return "", err
	}
	return ir.DocumentHash(doc.Canonical())
}

// Source locates a language's document and returns its raw text.
func (d *Documents) Source(id string) (Location, []byte, error) {
	loc, err := d.Locate(id)
	if err != nil {
		return Location{}, nil, err
	}
	data, err := d.read(loc)
	if err != nil {
		return loc, nil, engine.NewReadingError("cannot read pattern document "+loc.Path, err)
	}
	return loc, data, nil
}

func (d *Documents) read(loc Location) ([]byte, error) {
	if loc.Origin == OriginBundled {
		return fs.ReadFile(d.bundled, loc.Path)
	}
	return os.ReadFile(loc.Path)
}

// Bundled returns the names of the documents compiled into the binary.
func Bundled() []string {
	entries, err := fs.ReadDir(bundled, "languages")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ReadBundled returns the source of a bundled document.
func ReadBundled(name string) ([]byte, error) {
	return fs.ReadFile(bundled, "languages/"+name)
}
