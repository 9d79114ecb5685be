package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapefmt/internal/ir"
)

func leaf(text string) ir.Atom {
	return ir.Leaf{Text: text}
}

func dir(kind ir.DirectiveKind) ir.Atom {
	return ir.Directive{Kind: kind}
}

func blank(n int) ir.Atom {
	return ir.Directive{Kind: ir.InsertBlankLines, Count: n}
}

func literal(text string) ir.Atom {
	return ir.Directive{Kind: ir.Literal, Text: text}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		atoms []ir.Atom
		cfg   func(*RenderConfig)
		want  string
	}{
		{
			name:  "empty",
			atoms: nil,
			want:  "",
		},
		{
			name:  "leading whitespace dropped",
			atoms: []ir.Atom{dir(ir.InsertHardline), dir(ir.InsertSpace), blank(2), leaf("a")},
			want:  "a",
		},
		{
			name:  "hardlines collapse",
			atoms: []ir.Atom{leaf("a"), dir(ir.InsertHardline), dir(ir.InsertHardline), leaf("b")},
			want:  "a\nb",
		},
		{
			name:  "blank lines after hardline",
			atoms: []ir.Atom{leaf("a"), dir(ir.InsertHardline), blank(1), leaf("b")},
			want:  "a\n\nb",
		},
		{
			name:  "blank lines capped",
			atoms: []ir.Atom{leaf("a"), blank(5), leaf("b")},
			cfg:   func(c *RenderConfig) { c.MaxBlankLines = 2 },
			want:  "a\n\n\nb",
		},
		{
			name:  "zero ceiling still breaks the line",
			atoms: []ir.Atom{leaf("a"), blank(5), leaf("b")},
			cfg:   func(c *RenderConfig) { c.MaxBlankLines = 0 },
			want:  "a\nb",
		},
		{
			name:  "space between text",
			atoms: []ir.Atom{leaf("a"), dir(ir.InsertSpace), dir(ir.InsertSpace), leaf("b")},
			want:  "a b",
		},
		{
			name:  "space before line break dropped",
			atoms: []ir.Atom{leaf("a"), dir(ir.InsertSpace), dir(ir.InsertHardline), leaf("b")},
			want:  "a\nb",
		},
		{
			name:  "space after line break dropped",
			atoms: []ir.Atom{leaf("a"), dir(ir.InsertHardline), dir(ir.InsertSpace), leaf("b")},
			want:  "a\nb",
		},
		{
			name:  "antispace cancels pending space",
			atoms: []ir.Atom{leaf("a"), dir(ir.InsertSpace), dir(ir.NoSpace), leaf("b")},
			want:  "ab",
		},
		{
			name:  "literal is text",
			atoms: []ir.Atom{leaf("a"), literal(";"), dir(ir.InsertSpace), leaf("b"), literal("")},
			want:  "a; b",
		},
		{
			name: "indentation is lazy",
			atoms: []ir.Atom{
				leaf("{"), dir(ir.IndentStart), dir(ir.InsertHardline),
				leaf("a"), dir(ir.InsertHardline),
				dir(ir.IndentEnd), leaf("}"),
			},
			want: "{\n  a\n}",
		},
		{
			name: "blank lines carry no indentation",
			atoms: []ir.Atom{
				leaf("{"), dir(ir.IndentStart), blank(1),
				leaf("a"), dir(ir.IndentEnd),
			},
			want: "{\n\n  a",
		},
		{
			name: "custom indent",
			atoms: []ir.Atom{
				leaf("{"), dir(ir.IndentStart), dir(ir.IndentStart), dir(ir.InsertHardline),
				leaf("a"), dir(ir.IndentEnd), dir(ir.IndentEnd),
			},
			cfg:  func(c *RenderConfig) { c.Indent = "\t" },
			want: "{\n\t\ta",
		},
		{
			name:  "trailing whitespace dropped",
			atoms: []ir.Atom{leaf("a"), dir(ir.InsertSpace), blank(3)},
			want:  "a",
		},
		{
			name:  "final newline",
			atoms: []ir.Atom{leaf("a"), blank(3)},
			cfg:   func(c *RenderConfig) { c.FinalNewline = true },
			want:  "a\n",
		},
		{
			name:  "final newline skipped for empty output",
			atoms: []ir.Atom{dir(ir.InsertHardline)},
			cfg:   func(c *RenderConfig) { c.FinalNewline = true },
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRenderConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			got, err := Render(tt.atoms, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name  string
		atoms []ir.Atom
	}{
		{"negative depth", []ir.Atom{leaf("a"), dir(ir.IndentEnd)}},
		{"unclosed indentation", []ir.Atom{dir(ir.IndentStart), leaf("a")}},
		{"delete reaches renderer", []ir.Atom{leaf("a"), ir.Directive{Kind: ir.Delete, Offset: 0, End: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.atoms, DefaultRenderConfig())
			require.Error(t, err)
			assert.True(t, IsInternalError(err), "got %v", err)
		})
	}
}

func TestRender_BlankLineBound(t *testing.T) {
	for ceiling := 0; ceiling <= 4; ceiling++ {
		cfg := DefaultRenderConfig()
		cfg.MaxBlankLines = ceiling
		out, err := Render([]ir.Atom{leaf("a"), blank(10), leaf("b"), blank(1), blank(7), leaf("c")}, cfg)
		require.NoError(t, err)
		assert.NotContains(t, out, strings.Repeat("\n", ceiling+2))
		assert.Contains(t, out, "b"+strings.Repeat("\n", ceiling+1)+"c")
	}
}

func TestBuildAtoms(t *testing.T) {
	res := &Resolved{
		Source: []byte("a;b"),
		Leaves: []ir.Leaf{{Text: "a", Start: 0, End: 1}, {Text: "b", Start: 2, End: 3}},
		Boundaries: [][]ir.Directive{
			nil,
			{{Kind: ir.InsertHardline, Offset: 2, Side: ir.After}},
			{{Kind: ir.InsertHardline, Offset: 3, Side: ir.After}},
		},
	}

	atoms, err := BuildAtoms(res.Source, res)
	require.NoError(t, err)
	require.Len(t, atoms, 4)
	assert.Equal(t, res.Leaves[0], atoms[0])
	assert.Equal(t, res.Boundaries[1][0], atoms[1])
	assert.Equal(t, res.Leaves[1], atoms[2])
	assert.Equal(t, res.Boundaries[2][0], atoms[3])

	out, err := Render(atoms, DefaultRenderConfig())
	require.NoError(t, err)
	assert.Equal(t, "a\nb", out)
}

func TestBuildAtoms_RejectsOutOfRange(t *testing.T) {
	t.Run("anchor", func(t *testing.T) {
		res := &Resolved{
			Leaves:     []ir.Leaf{{Text: "a", Start: 0, End: 1}},
			Boundaries: [][]ir.Directive{nil, {{Kind: ir.InsertSpace, Offset: 9}}},
		}
		_, err := BuildAtoms([]byte("a"), res)
		assert.True(t, IsInternalError(err))
	})

	t.Run("leaf", func(t *testing.T) {
		res := &Resolved{
			Leaves:     []ir.Leaf{{Text: "a", Start: 0, End: 4}},
			Boundaries: [][]ir.Directive{nil, nil},
		}
		_, err := BuildAtoms([]byte("a"), res)
		assert.True(t, IsInternalError(err))
	})

	t.Run("boundary count", func(t *testing.T) {
		res := &Resolved{Leaves: []ir.Leaf{{Text: "a", Start: 0, End: 1}}}
		_, err := BuildAtoms([]byte("a"), res)
		assert.True(t, IsInternalError(err))
	})
}
