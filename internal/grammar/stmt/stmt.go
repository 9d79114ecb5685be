// Package stmt implements the built-in "stmt" language: a tiny statement
// language used to exercise pattern documents without a native grammar.
//
//	program   := item*
//	item      := statement | block | empty_statement | comment
//	statement := identifier+ ";"?
//	block     := "{" item* "}"
//	comment   := "#" ... end of line
//
// An identifier is any run of bytes other than whitespace and ";{}#". A
// statement's terminator may be omitted before "}", "{", a comment or the
// end of input. A lone ";" is an empty_statement.
package stmt

import (
	"context"
	"fmt"

	"github.com/roach88/shapefmt/internal/ir"
)

// Language is the id this grammar is registered under.
const Language = "stmt"

// Node kinds produced by the parser.
const (
	KindProgram        = "program"
	KindStatement      = "statement"
	KindIdentifier     = "identifier"
	KindBlock          = "block"
	KindEmptyStatement = "empty_statement"
	KindComment        = "comment"
	KindSemicolon      = ";"
	KindOpenBrace      = "{"
	KindCloseBrace     = "}"
)

// Field names.
const (
	FieldBody       = "body"
	FieldTerminator = "terminator"
)

// Parser parses stmt source. The zero value is ready to use.
type Parser struct{}

// Parse implements engine.TreeProvider for the stmt language.
func (Parser) Parse(ctx context.Context, source []byte, language string) (*ir.Tree, error) {
	if language != Language {
		return nil, fmt.Errorf("stmt parser cannot parse language %q", language)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(source)
}

// Parse parses source into a tree rooted at a program node.
func Parse(source []byte) (*ir.Tree, error) {
	p := &parser{src: source}
	root := &node{kind: KindProgram, start: 0, end: len(source), named: true}

	items, err := p.items(false)
	if err != nil {
		return nil, err
	}
	root.children = items

	b := ir.NewBuilder(source)
	emit(b, ir.NoNode, root)
	return b.Build()
}

// node is the intermediate form; the builder needs each node's extent
// before its children can be added.
type node struct {
	kind     string
	start    int
	end      int
	field    string
	named    bool
	children []*node
}

func emit(b *ir.Builder, parent ir.NodeID, n *node) {
	id := b.Add(parent, n.kind, n.start, n.end, n.field, n.named)
	for _, c := range n.children {
		emit(b, id, c)
	}
}

type parser struct {
	src []byte
	pos int
}

// items parses items until end of input, or until "}" when inBlock.
func (p *parser) items(inBlock bool) ([]*node, error) {
	var out []*node
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return out, nil
		}
		var field string
		if inBlock {
			field = FieldBody
		}
		switch c := p.src[p.pos]; c {
		case '}':
			if inBlock {
				return out, nil
			}
			return nil, p.errorf(p.pos, "ERROR", "unexpected %q", "}")
		case '{':
			blk, err := p.block()
			if err != nil {
				return nil, err
			}
			blk.field = field
			out = append(out, blk)
		case ';':
			semi := &node{kind: KindSemicolon, start: p.pos, end: p.pos + 1}
			out = append(out, &node{
				kind: KindEmptyStatement, start: p.pos, end: p.pos + 1,
				field: field, named: true, children: []*node{semi},
			})
			p.pos++
		case '#':
			cmt := p.comment()
			cmt.field = field
			out = append(out, cmt)
		default:
			st := p.statement()
			st.field = field
			out = append(out, st)
		}
	}
}

func (p *parser) block() (*node, error) {
	open := &node{kind: KindOpenBrace, start: p.pos, end: p.pos + 1}
	p.pos++
	body, err := p.items(true)
	if err != nil {
		return nil, err
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf(open.start, "MISSING", "block opened here is never closed")
	}
	closing := &node{kind: KindCloseBrace, start: p.pos, end: p.pos + 1}
	p.pos++

	children := make([]*node, 0, len(body)+2)
	children = append(children, open)
	children = append(children, body...)
	children = append(children, closing)
	return &node{kind: KindBlock, start: open.start, end: closing.end, named: true, children: children}, nil
}

func (p *parser) statement() *node {
	st := &node{kind: KindStatement, start: p.pos, named: true}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}
		c := p.src[p.pos]
		if c == ';' {
			st.children = append(st.children, &node{
				kind: KindSemicolon, start: p.pos, end: p.pos + 1, field: FieldTerminator,
			})
			p.pos++
			break
		}
		if isDelimiter(c) {
			break
		}
		start := p.pos
		for p.pos < len(p.src) && !isDelimiter(p.src[p.pos]) && !isSpace(p.src[p.pos]) {
			p.pos++
		}
		st.children = append(st.children, &node{kind: KindIdentifier, start: start, end: p.pos, named: true})
	}
	st.end = st.children[len(st.children)-1].end
	return st
}

func (p *parser) comment() *node {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '\n' {
		p.pos++
	}
	end := p.pos
	for end > start && (p.src[end-1] == ' ' || p.src[end-1] == '\t' || p.src[end-1] == '\r') {
		end--
	}
	return &node{kind: KindComment, start: start, end: end, named: true}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) errorf(offset int, kind, format string, args ...any) error {
	line, col := ir.LineColumn(p.src, offset)
	return &ir.ParseError{Line: line, Column: col, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	return c == ';' || c == '{' || c == '}' || c == '#'
}
