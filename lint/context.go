package lint

import (
	"go/ast"
	"go/token"
	"go/types"
)

// Context is the parsed representation of exactly one source file handed to
// every analyzer. Analyzers must treat it as read-only.
type Context struct {
	// Filename is the absolute path of the file.
	Filename string
	// Src is the text the file was parsed from.
	Src []byte

	Fset *token.FileSet
	File *ast.File

	// Pkg and TypesInfo describe the enclosing package. In a standalone
	// context they come from a best-effort check of the single file and may
	// be incomplete.
	Pkg        *types.Package
	TypesInfo  *types.Info
	TypesSizes types.Sizes

	// Project is the path of the go.mod the file belongs to, or "".
	Project string
	// Standalone is true when the context was built without project
	// information.
	Standalone bool
}

// Position converts pos into a Position. Unknown positions yield the zero
// value.
func (c *Context) Position(pos token.Pos) Position {
	if c == nil || c.Fset == nil || !pos.IsValid() {
		return Position{}
	}
	p := c.Fset.Position(pos)
	return Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

// Span builds a Span in this file covering [pos, end). When end is invalid
// the span collapses to pos.
func (c *Context) Span(pos, end token.Pos) Span {
	start := c.Position(pos)
	stop := c.Position(end)
	if !stop.IsValid() {
		stop = start
	}
	var file string
	if c != nil {
		file = c.Filename
	}
	return Span{File: file, Start: start, End: stop}
}
