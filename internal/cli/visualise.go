package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shapefmt/internal/engine"
	"github.com/roach88/shapefmt/internal/grammar"
	"github.com/roach88/shapefmt/internal/ir"
	"github.com/roach88/shapefmt/internal/language"
)

// VisualiseOptions holds flags for the visualise command.
type VisualiseOptions struct {
	*RootOptions
	Graph    bool
	Language string
}

// TreeNode is the nested JSON form of a syntax tree node. Text is set on
// leaves only.
type TreeNode struct {
	Kind     string      `json:"kind"`
	Field    string      `json:"field,omitempty"`
	Named    bool        `json:"named"`
	Start    int         `json:"start"`
	End      int         `json:"end"`
	Line     int         `json:"line"`
	Column   int         `json:"column"`
	Text     string      `json:"text,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// NewVisualiseCommand creates the visualise command.
func NewVisualiseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VisualiseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "visualise <file|->",
		Aliases: []string{"visualize"},
		Short:   "Print the syntax tree of a file",
		Long: `Parse a file and print its syntax tree, the structure pattern
documents are matched against.

The default output is JSON; --graph prints Graphviz dot instead. Use
"-" to read standard input, which requires --language.

Examples:
  shapefmt visualise main.rs
  shapefmt visualise --graph Cargo.toml | dot -Tsvg > tree.svg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisualise(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Graph, "graph", false, "print Graphviz dot instead of JSON")
	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "language id (skips detection; required for stdin)")

	return cmd
}

func runVisualise(opts *VisualiseOptions, path string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var (
		lang language.Language
		err  error
	)
	switch {
	case opts.Language != "":
		lang, err = language.FromName(opts.Language)
	case path == stdinPath:
		return formatter.fail(ExitCommandError, ErrCodeInvalidArgs, "--language is required when reading from stdin", nil)
	default:
		lang, err = language.Detect(path)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrorCode(err), err.Error(), nil)
	}

	var source []byte
	if path == stdinPath {
		source, err = io.ReadAll(cmd.InOrStdin())
	} else {
		source, err = os.ReadFile(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("path not found: %s", path), nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tree, err := grammar.NewRegistry().Parse(ctx, source, lang.ID)
	if err != nil {
		var pe *ir.ParseError
		if errors.As(err, &pe) {
			err = engine.NewParsingError(err)
		}
		return formatter.fail(ExitFailure, ErrorCode(err), err.Error(), nil)
	}
	formatter.VerboseLog("Parsed %s as %s: %d node(s)", path, lang.ID, tree.Len())

	if opts.Graph {
		_, err := io.WriteString(formatter.Writer, TreeDot(tree))
		return err
	}
	if formatter.Format == "json" {
		return formatter.Success(NestTree(tree))
	}
	enc := json.NewEncoder(formatter.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(NestTree(tree))
}

// NestTree converts the arena tree into nested nodes.
func NestTree(t *ir.Tree) *TreeNode {
	var build func(id ir.NodeID) *TreeNode
	build = func(id ir.NodeID) *TreeNode {
		n := t.Node(id)
		line, col := ir.LineColumn(t.Source, n.Start)
		out := &TreeNode{
			Kind:   n.Kind,
			Field:  n.Field,
			Named:  n.Named,
			Start:  n.Start,
			End:    n.End,
			Line:   line,
			Column: col,
		}
		if len(n.Children) == 0 {
			out.Text = t.Text(id)
		}
		for _, c := range n.Children {
			out.Children = append(out.Children, build(c))
		}
		return out
	}
	return build(t.Root)
}

// TreeDot renders the tree as a Graphviz digraph. Anonymous nodes are
// drawn dashed; field names label the edges.
func TreeDot(t *ir.Tree) string {
	var sb strings.Builder
	sb.WriteString("digraph tree {\n")
	sb.WriteString("  node [shape=box, fontname=\"monospace\"];\n")
	for i := range t.Nodes {
		id := ir.NodeID(i)
		n := t.Node(id)
		label := n.Kind
		if len(n.Children) == 0 && t.Text(id) != n.Kind {
			label += "\n" + t.Text(id)
		}
		style := ""
		if !n.Named {
			style = ", style=dashed"
		}
		fmt.Fprintf(&sb, "  n%d [label=%s%s];\n", i, strconv.Quote(label), style)
	}
	for i := range t.Nodes {
		n := t.Node(ir.NodeID(i))
		if n.Parent == ir.NoNode {
			continue
		}
		if n.Field != "" {
			fmt.Fprintf(&sb, "  n%d -> n%d [label=%s];\n", n.Parent, i, strconv.Quote(n.Field))
		} else {
			fmt.Fprintf(&sb, "  n%d -> n%d;\n", n.Parent, i)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
