package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/roach88/shapefmt/internal/engine"
)

// diffContext is the number of unchanged lines shown around a change.
const diffContext = 2

// palette colours status marks and diff lines. Colour is used only when
// the destination is a terminal.
type palette struct {
	ok     func(a ...any) string
	bad    func(a ...any) string
	del    func(a ...any) string
	ins    func(a ...any) string
	header func(a ...any) string
}

func newPalette(w io.Writer) palette {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		ok:     mk(color.FgGreen),
		bad:    mk(color.FgRed),
		del:    mk(color.FgRed),
		ins:    mk(color.FgGreen),
		header: mk(color.Bold),
	}
}

// writeDiff prints a unified-style line diff from before to after, with
// diffContext lines of context and "@@" between distant changes.
func writeDiff(w io.Writer, pal palette, path, before, after string) {
	lines := engine.LineDiff(before, after)

	fmt.Fprintln(w, pal.header("--- "+path))
	fmt.Fprintln(w, pal.header("+++ "+path+" (formatted)"))

	show := make([]bool, len(lines))
	for i, l := range lines {
		if l.Op == engine.DiffEqual {
			continue
		}
		for j := i - diffContext; j <= i+diffContext; j++ {
			if j >= 0 && j < len(lines) {
				show[j] = true
			}
		}
	}

	skipped := false
	for i, l := range lines {
		if !show[i] {
			skipped = true
			continue
		}
		if skipped {
			fmt.Fprintln(w, pal.header("@@"))
			skipped = false
		}
		switch l.Op {
		case engine.DiffDelete:
			fmt.Fprintln(w, pal.del(l.String()))
		case engine.DiffInsert:
			fmt.Fprintln(w, pal.ins(l.String()))
		default:
			fmt.Fprintln(w, l.String())
		}
	}
}
