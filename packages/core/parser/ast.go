package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
)

// Node is an element of a parsed template.
type Node interface {
	// Pos returns the byte offset of the node in its source.
	Pos() int
	String() string
	node()
}

// Literal is a constant value: string, int64, float64, bool or nil.
type Literal struct {
	Value  any
	Offset int
}

// VarRef is a variable reference. Path[0] is the variable name, the rest are
// keys or indexes walked into its value.
type VarRef struct {
	Path   []string
	Offset int
}

// Kwarg is a keyword argument of a call.
type Kwarg struct {
	Name  string
	Value Node
}

// Call is a function call.
type Call struct {
	Name   string
	Args   []Node
	Kwargs []*Kwarg
	Offset int
}

// Template is a sequence of literal text and expression segments.
type Template struct {
	Source   string
	Segments []Node
	Offset   int
}

func (n *Literal) Pos() int  { return n.Offset }
func (n *VarRef) Pos() int   { return n.Offset }
func (n *Call) Pos() int     { return n.Offset }
func (n *Template) Pos() int { return n.Offset }

func (*Literal) node()  {}
func (*VarRef) node()   {}
func (*Call) node()     {}
func (*Template) node() {}

func (n *Literal) String() string {
	switch v := n.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}

func (n *VarRef) String() string {
	return "$" + strings.Join(n.Path, ".")
}

func (n *Call) String() string {
	parts := make([]string, 0, len(n.Args)+len(n.Kwargs))
	for _, a := range n.Args {
		parts = append(parts, a.String())
	}
	for _, kw := range n.Kwargs {
		parts = append(parts, kw.Name+"="+kw.Value.String())
	}
	return n.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (n *Template) String() string {
	return n.Source
}

// IsSingle reports whether the template consists of exactly one expression
// and no surrounding text. Such templates evaluate to the raw expression value.
func (n *Template) IsSingle() bool {
	if len(n.Segments) != 1 {
		return false
	}
	_, lit := n.Segments[0].(*Literal)
	return !lit
}

// IsLiteral reports whether the template contains no expressions at all.
func (n *Template) IsLiteral() bool {
	for _, s := range n.Segments {
		if _, ok := s.(*Literal); !ok {
			return false
		}
	}
	return true
}

// Expression returns the sole expression of a single-expression template, or nil.
func (n *Template) Expression() Node {
	if !n.IsSingle() {
		return nil
	}
	return n.Segments[0]
}

// Walk visits node and its descendants depth-first, left to right.
// Returning false from fn stops descent into the current node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
		for _, kw := range n.Kwargs {
			Walk(kw.Value, fn)
		}
	case *Template:
		for _, s := range n.Segments {
			Walk(s, fn)
		}
	}
}

// Calls returns the names of every function called in node, in source order.
func Calls(node Node) []string {
	var names []string
	Walk(node, func(n Node) bool {
		if c, ok := n.(*Call); ok {
			names = append(names, c.Name)
		}
		return true
	})
	return names
}

// SyntaxError reports a malformed template.
type SyntaxError struct {
	Source  string
	Offset  int
	Snippet string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("syntax error at offset %d: %s (near %q)", e.Offset, e.Message, e.Snippet)
	}
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Message)
}

func (e *SyntaxError) Kind() errs.Kind { return errs.KindSyntax }

const snippetLen = 24

func newSyntaxError(source string, offset int, format string, args ...any) *SyntaxError {
	if offset > len(source) {
		offset = len(source)
	}
	end := offset + snippetLen
	if end > len(source) {
		end = len(source)
	}
	return &SyntaxError{
		Source:  source,
		Offset:  offset,
		Snippet: source[offset:end],
		Message: fmt.Sprintf(format, args...),
	}
}
