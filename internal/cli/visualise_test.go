package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/grammar/stmt"
)

func TestVisualise_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.stmt")
	writeFile(t, path, "a;\nb;")

	out, _, err := runCLI(t, "", "visualise", path)
	require.NoError(t, err)

	var root TreeNode
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, "program", root.Kind)
	require.Len(t, root.Children, 2)

	second := root.Children[1]
	assert.Equal(t, "statement", second.Kind)
	assert.Equal(t, 2, second.Line)
	assert.Equal(t, 1, second.Column)
	require.Len(t, second.Children, 2)
	assert.Equal(t, "b", second.Children[0].Text)
	assert.Equal(t, "terminator", second.Children[1].Field)
	assert.False(t, second.Children[1].Named)
}

func TestVisualise_JSONEnvelope(t *testing.T) {
	out, _, err := runCLI(t, "a;", "--format", "json", "visualise", "-l", "stmt", "-")
	require.NoError(t, err)

	var resp struct {
		Status string   `json:"status"`
		Data   TreeNode `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "program", resp.Data.Kind)
}

func TestVisualise_Graph(t *testing.T) {
	out, _, err := runCLI(t, "a;", "visualise", "--graph", "-l", "stmt", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "digraph tree {\n")
	assert.Contains(t, out, `n0 [label="program"];`)
	assert.Contains(t, out, `n2 [label="identifier\na"];`)
	assert.Contains(t, out, `n3 [label=";", style=dashed];`)
	assert.Contains(t, out, "n0 -> n1;")
	assert.Contains(t, out, `n1 -> n3 [label="terminator"];`)
}

func TestVisualise_Errors(t *testing.T) {
	_, _, err := runCLI(t, "}", "visualise", "-l", "stmt", "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E_PARSING")

	_, _, err = runCLI(t, "a;", "visualise", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = runCLI(t, "", "visualise", filepath.Join(t.TempDir(), "missing.stmt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)

	_, _, err = runCLI(t, "", "visualise", "README")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_LANGUAGE_DETECTION")
}

func TestNestTreeMatchesArena(t *testing.T) {
	tree, err := stmt.Parse([]byte("x {y;}"))
	require.NoError(t, err)

	count := 0
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		count++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(NestTree(tree))
	assert.Equal(t, tree.Len(), count)
}
