package stmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/ir"
)

// kinds lists node kinds in preorder.
func kinds(tree *ir.Tree) []string {
	var out []string
	tree.Walk(func(id ir.NodeID) bool {
		out = append(out, tree.Node(id).Kind)
		return true
	})
	return out
}

func TestParse_Statements(t *testing.T) {
	tree, err := Parse([]byte("a;;b"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"program",
		"statement", "identifier", ";",
		"empty_statement", ";",
		"statement", "identifier",
	}, kinds(tree))

	root := tree.Node(tree.Root)
	require.Len(t, root.Children, 3)
	assert.Equal(t, "a;", tree.Text(root.Children[0]))
	assert.Equal(t, ";", tree.Text(root.Children[1]))
	assert.Equal(t, "b", tree.Text(root.Children[2]))
}

func TestParse_Block(t *testing.T) {
	tree, err := Parse([]byte("{a;}b;"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"program",
		"block", "{", "statement", "identifier", ";", "}",
		"statement", "identifier", ";",
	}, kinds(tree))

	block := tree.Node(tree.Root).Children[0]
	body := tree.Node(block).Children[1]
	assert.Equal(t, FieldBody, tree.Node(body).Field)
	assert.Equal(t, FieldTerminator, tree.Node(tree.Node(body).Children[1]).Field)
	assert.False(t, tree.Node(tree.Node(block).Children[0]).Named)
}

func TestParse_MultiWordStatementAndComment(t *testing.T) {
	tree, err := Parse([]byte("let x = 1;  # note  \nx;"))
	require.NoError(t, err)

	root := tree.Node(tree.Root)
	require.Len(t, root.Children, 3)

	first := tree.Node(root.Children[0])
	assert.Equal(t, KindStatement, first.Kind)
	assert.Len(t, first.Children, 5)

	assert.Equal(t, KindComment, tree.Node(root.Children[1]).Kind)
	assert.Equal(t, "# note", tree.Text(root.Children[1]))
}

func TestParse_Empty(t *testing.T) {
	tree, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column int
		kind   string
	}{
		{"stray close", "a;\n}", 2, 1, "ERROR"},
		{"unclosed block", "a;\n  {b;", 2, 3, "MISSING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)

			var pe *ir.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
			assert.Equal(t, tt.kind, pe.Kind)
		})
	}
}

func TestParser_RejectsOtherLanguages(t *testing.T) {
	_, err := Parser{}.Parse(context.Background(), []byte("a;"), "rust")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rust")
}
