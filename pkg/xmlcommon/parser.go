// Package xmlcommon hosts the SAX-style base shared by the mzXML and
// mzData sequential parsers: a parent-element stack and the self-closing-
// element compensation rule.
package xmlcommon

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/msformats/specio/pkg/core"
)

// StackEntry is one frame of the parent-element stack.
type StackEntry struct {
	Name  string
	Depth int
}

// Handler receives the three SAX-style events a concrete format parser
// reacts to. Each hook may return a non-nil error to abort the current
// parse pass.
type Handler interface {
	OnStart(name string, attrs map[string]string, depth int) error
	OnText(text string, depth int) error
	OnEnd(name string, depth int) error
}

// Parser drives an encoding/xml.Decoder over an in-memory document,
// maintaining the parent-element stack a subclass needs. encoding/xml is the
// tokenizer; everything below belongs to the shared SAX base itself.
type Parser struct {
	dec   *xml.Decoder
	data  []byte
	stack []StackEntry
	depth int

	// isTextReader governs SAXParserLineNumber/ColumnNumber: the original
	// implementation returns a real position when the underlying reader is
	// a text reader, zero otherwise. This parser always tokenizes an
	// in-memory text buffer, so it is always true here; the field exists so
	// the inversion bug the spec calls out cannot silently resurface if the
	// source ever becomes non-textual.
	isTextReader bool
}

// NewParser builds a Parser over data, ready to Run against handler.
func NewParser(data []byte) *Parser {
	p := &Parser{
		dec:          xml.NewDecoder(bytes.NewReader(data)),
		data:         data,
		isTextReader: true,
	}
	p.dec.Strict = false
	return p
}

// Depth returns the current element nesting depth.
func (p *Parser) Depth() int {
	return p.depth
}

// ParentStack returns a snapshot of the current parent-element stack.
func (p *Parser) ParentStack() []StackEntry {
	out := make([]StackEntry, len(p.stack))
	copy(out, p.stack)
	return out
}

// Top returns the innermost stack entry, if any.
func (p *Parser) Top() (StackEntry, bool) {
	if len(p.stack) == 0 {
		return StackEntry{}, false
	}
	return p.stack[len(p.stack)-1], true
}

// LineNumber returns the line of the byte offset the decoder is currently
// at, or 0 when the source is not a text reader (see isTextReader above).
func (p *Parser) LineNumber() int {
	if !p.isTextReader {
		return 0
	}
	return lineAt(p.data, p.dec.InputOffset())
}

// ColumnNumber returns the column of the byte offset the decoder is
// currently at, or 0 when the source is not a text reader.
func (p *Parser) ColumnNumber() int {
	if !p.isTextReader {
		return 0
	}
	return columnAt(p.data, p.dec.InputOffset())
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}

func columnAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	idx := bytes.LastIndexByte(data[:offset], '\n')
	return int(offset) - idx
}

// Run drives the token loop until EOF or handler error, dispatching
// StartElement/CharData/EndElement to handler, and maintaining the parent
// stack with the self-closing-element compensation rule: if the
// top-of-stack frame sits at the same depth as an incoming StartElement,
// it is popped first, because a pull reader collapses a self-closing
// element into a single token pair that would otherwise leave a stale
// frame behind.
func (p *Parser) Run(handler Handler) error {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.Wrap(core.MalformedXml, "xml token error", err).AtLineColumn(p.LineNumber(), p.ColumnNumber())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if top, ok := p.Top(); ok && top.Depth == p.depth {
				p.stack = p.stack[:len(p.stack)-1]
			}
			p.stack = append(p.stack, StackEntry{Name: t.Name.Local, Depth: p.depth})
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = a.Value
			}
			if err := handler.OnStart(t.Name.Local, attrs, p.depth); err != nil {
				return err
			}
			p.depth++
		case xml.CharData:
			if err := handler.OnText(string(t), p.depth); err != nil {
				return err
			}
		case xml.EndElement:
			p.depth--
			if len(p.stack) > 0 {
				p.stack = p.stack[:len(p.stack)-1]
			}
			if err := handler.OnEnd(t.Name.Local, p.depth); err != nil {
				return err
			}
		}
	}
}

// RawTokenError wraps a decoder failure with the parser's current byte
// offset and line/column location.
func (p *Parser) RawTokenError(err error) error {
	return core.Wrap(core.MalformedXml, fmt.Sprintf("xml token error at offset %d", p.dec.InputOffset()), err).
		AtLineColumn(p.LineNumber(), p.ColumnNumber())
}
