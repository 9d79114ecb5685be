package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/shapefmt/internal/compiler"
)

// LoadError is a command-level failure to find pattern documents.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DocumentFile is one pattern document read from disk.
type DocumentFile struct {
	Path string
	Data []byte
}

// LoadDocumentFiles reads the document at path, or every .cue file below
// it when path is a directory. Files are returned in path order.
func LoadDocumentFiles(path string) ([]DocumentFile, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}

	paths := []string{path}
	if info.IsDir() {
		paths, err = FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(paths) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	files := make([]DocumentFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("reading %s: %v", p, err)}
		}
		files = append(files, DocumentFile{Path: p, Data: data})
	}
	return files, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// DocumentReport is the validation outcome for one file.
type DocumentReport struct {
	Path        string                     `json:"path"`
	Language    string                     `json:"language,omitempty"`
	Rules       int                        `json:"rules"`
	Valid       bool                       `json:"valid"`
	Diagnostics []compiler.ValidationError `json:"diagnostics,omitempty"`
}

// Errors counts error-severity diagnostics.
func (r DocumentReport) Errors() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity != "warning" {
			n++
		}
	}
	return n
}

// validateFile runs every document check on one file.
func validateFile(f DocumentFile) DocumentReport {
	doc, diags := compiler.ValidateDocumentBytes(f.Path, f.Data)
	report := DocumentReport{Path: f.Path, Diagnostics: diags, Valid: doc != nil}
	if doc != nil {
		report.Language = doc.Language
		report.Rules = len(doc.Rules)
	}
	return report
}
