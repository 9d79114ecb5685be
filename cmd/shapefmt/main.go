// Command shapefmt formats source files with tree-pattern documents.
//
// Usage:
//
//	shapefmt fmt [paths...]            Format files in place
//	shapefmt fmt --check .             Report files that would change
//	shapefmt languages                 List languages and their documents
//	shapefmt validate <document|dir>   Check pattern documents
//	shapefmt compile <document|lang>   Print a document's canonical form
//	shapefmt visualise <file>          Print a file's syntax tree
//	shapefmt test <scenarios-dir>      Run conformance scenarios
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/shapefmt/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands report their own failures; anything else is a usage error
	// from flag or argument parsing.
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(cli.ExitCommandError)
}
