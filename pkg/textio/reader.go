// Package textio implements a bidirectional, encoding-aware line reader
// over a seekable byte source, tracking exact byte offsets for every line.
package textio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"unicode/utf16"

	"github.com/msformats/specio/pkg/core"
)

// Encoding is the character encoding detected at open time.
type Encoding int

const (
	ASCII Encoding = iota
	UTF8
	UTF16LE
	UTF16BE
)

// Terminator identifies the line-ending bytes that closed a line, if any.
type Terminator int

const (
	TermNone Terminator = iota
	TermLF
	TermCR
	TermCRLF
)

// Direction selects which of ReadLine/ReadLineBackward is the "natural"
// continuation operation for a caller driving the reader through a single
// ReadNext call.
type Direction int

const (
	Forward Direction = iota
	Backward
)

type lineRecord struct {
	start int64
	end   int64 // inclusive, covers terminator bytes
	term  Terminator
}

// Reader is a bidirectional, encoding-aware line iterator. The entire file
// is loaded into memory once at Open and indexed by a single forward scan;
// ReadLine, ReadLineBackward, and the Move* operations are then index
// operations over that scan, which keeps every byte-offset invariant exact
// without re-reading the file on each direction reversal.
type Reader struct {
	path     string
	data     []byte
	encoding Encoding
	charSize int
	bomLen   int64
	lines    []lineRecord
	direction Direction

	// fwdNext is the index ReadLine will return next; bwdNext is the index
	// ReadLineBackward will return next. They are independent so a position
	// set by MoveToByteOffset can sit exactly between two lines.
	fwdNext int
	bwdNext int

	lineNumber int
	curStart   int64
	curEnd     int64
	curTerm    Terminator

	closed bool
}

// Open reads path fully into memory, detects its encoding, and builds the
// line index.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Wrap(core.IoError, "failed to read file", err)
	}
	return newFromBytes(path, data), nil
}

func newFromBytes(path string, data []byte) *Reader {
	enc, charSize, bomLen := detectEncoding(data)
	lines := scanLines(data, bomLen, charSize, enc)
	return &Reader{
		path:     path,
		data:     data,
		encoding: enc,
		charSize: charSize,
		bomLen:   bomLen,
		lines:    lines,
		fwdNext:  0,
		bwdNext:  -1,
	}
}

// OpenBytes builds a Reader directly from an in-memory buffer instead of a
// file path, with the same line-reading machinery used for whole files.
func OpenBytes(data []byte) *Reader {
	return newFromBytes("", data)
}

// Close releases the in-memory buffer. Repeated Close is a no-op.
func (r *Reader) Close() error {
	r.closed = true
	r.data = nil
	return nil
}

// Size returns the total byte length of the source, including any BOM.
func (r *Reader) Size() int64 {
	return int64(len(r.data))
}

// Bytes exposes the raw underlying buffer for callers (the indexed XML
// accessor's byte-level tag scanner) that need direct random access rather
// than line-at-a-time reads.
func (r *Reader) Bytes() []byte {
	return r.data
}

// Encoding reports the detected character encoding.
func (r *Reader) Encoding() Encoding {
	return r.encoding
}

func detectEncoding(data []byte) (enc Encoding, charSize int, bomLen int64) {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		return UTF16LE, 2, 2
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		return UTF16BE, 2, 2
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return UTF8, 1, 3
	default:
		return ASCII, 1, 0
	}
}

func readUnit(data []byte, pos int64, charSize int, enc Encoding) (code uint16, size int64) {
	if charSize == 1 {
		return uint16(data[pos]), 1
	}
	if enc == UTF16BE {
		return binary.BigEndian.Uint16(data[pos : pos+2]), 2
	}
	return binary.LittleEndian.Uint16(data[pos : pos+2]), 2
}

// scanLines performs the one forward pass that builds the whole line index,
// tolerating mixed CRLF/CR/LF terminators within a single file.
func scanLines(data []byte, bomLen int64, charSize int, enc Encoding) []lineRecord {
	size := int64(len(data))
	var lines []lineRecord
	pos := bomLen
	lineStart := pos

	for pos < size {
		code, sz := readUnit(data, pos, charSize, enc)
		switch code {
		case 0x0D:
			end := pos + sz - 1
			term := TermCR
			next := pos + sz
			if next < size {
				code2, sz2 := readUnit(data, next, charSize, enc)
				if code2 == 0x0A {
					end = next + sz2 - 1
					term = TermCRLF
					next = next + sz2
				}
			}
			lines = append(lines, lineRecord{start: lineStart, end: end, term: term})
			lineStart = next
			pos = next
		case 0x0A:
			end := pos + sz - 1
			lines = append(lines, lineRecord{start: lineStart, end: end, term: TermLF})
			lineStart = pos + sz
			pos = lineStart
		default:
			pos += sz
		}
	}

	if lineStart < size {
		lines = append(lines, lineRecord{start: lineStart, end: size - 1, term: TermNone})
	}

	return lines
}

func (r *Reader) terminatorLen(term Terminator) int64 {
	switch term {
	case TermCRLF:
		return 2 * int64(r.charSize)
	case TermCR, TermLF:
		return int64(r.charSize)
	default:
		return 0
	}
}

func (r *Reader) decodeLine(rec lineRecord) string {
	termLen := r.terminatorLen(rec.term)
	contentEnd := rec.end + 1 - termLen
	content := r.data[rec.start:contentEnd]

	switch r.encoding {
	case ASCII, UTF8:
		return string(content)
	default:
		units := make([]uint16, len(content)/2)
		var order binary.ByteOrder = binary.LittleEndian
		if r.encoding == UTF16BE {
			order = binary.BigEndian
		}
		for i := range units {
			units[i] = order.Uint16(content[i*2:])
		}
		return string(utf16.Decode(units))
	}
}

func (r *Reader) setCurrent(rec lineRecord) {
	r.curStart = rec.start
	r.curEnd = rec.end
	r.curTerm = rec.term
}

// ReadLine returns the next line moving forward, or ok=false at EOF.
func (r *Reader) ReadLine() (line string, ok bool, err error) {
	if r.closed {
		return "", false, core.NewError(core.FileNotOpen, "reader is closed")
	}
	if r.fwdNext < 0 || r.fwdNext >= len(r.lines) {
		return "", false, nil
	}
	rec := r.lines[r.fwdNext]
	r.setCurrent(rec)
	r.lineNumber = r.fwdNext + 1
	line = r.decodeLine(rec)

	r.bwdNext = r.fwdNext - 1
	r.fwdNext = r.fwdNext + 1
	return line, true, nil
}

// ReadLineBackward returns the next line moving backward, or ok=false when
// there is nothing before the current position.
func (r *Reader) ReadLineBackward() (line string, ok bool, err error) {
	if r.closed {
		return "", false, core.NewError(core.FileNotOpen, "reader is closed")
	}
	if r.bwdNext < 0 || r.bwdNext >= len(r.lines) {
		return "", false, nil
	}
	rec := r.lines[r.bwdNext]
	r.setCurrent(rec)
	r.lineNumber = r.bwdNext + 1
	line = r.decodeLine(rec)

	r.fwdNext = r.bwdNext + 1
	r.bwdNext = r.bwdNext - 1
	return line, true, nil
}

// ReadNext reads in whichever direction SetDirection last selected.
func (r *Reader) ReadNext() (string, bool, error) {
	if r.direction == Backward {
		return r.ReadLineBackward()
	}
	return r.ReadLine()
}

// SetDirection selects which direction ReadNext drives.
func (r *Reader) SetDirection(d Direction) {
	r.direction = d
}

// MoveToBeginning positions the reader so the next ReadLine returns the
// first line and ReadLineBackward returns nothing.
func (r *Reader) MoveToBeginning() {
	r.fwdNext = 0
	r.bwdNext = -1
}

// MoveToEnd positions the reader so the next ReadLineBackward returns the
// last line and ReadLine returns nothing.
func (r *Reader) MoveToEnd() {
	r.fwdNext = len(r.lines)
	r.bwdNext = len(r.lines) - 1
}

// MoveToByteOffset positions the reader so the next forward read begins at
// or after offset; if offset falls strictly inside a line, it aligns to the
// start of the next line, per the contract in SPEC_FULL.md §4.2.
func (r *Reader) MoveToByteOffset(offset int64) error {
	if offset < r.bomLen {
		offset = r.bomLen
	}
	if offset >= int64(len(r.data)) {
		r.MoveToEnd()
		return nil
	}

	idx := sort.Search(len(r.lines), func(i int) bool {
		return r.lines[i].end >= offset
	})
	if idx >= len(r.lines) {
		r.MoveToEnd()
		return nil
	}

	if offset == r.lines[idx].start {
		r.fwdNext = idx
		r.bwdNext = idx - 1
		return nil
	}

	// offset falls inside line idx; align to the start of the next line.
	r.fwdNext = idx + 1
	r.bwdNext = idx
	return nil
}

// LineNumber returns the 1-based line number of the line most recently
// returned by ReadLine or ReadLineBackward, or 0 if none has been read yet.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// CurrentByteRange returns the byte offsets of the line most recently
// returned, inclusive of terminator bytes.
func (r *Reader) CurrentByteRange() (start, end int64, term Terminator) {
	return r.curStart, r.curEnd, r.curTerm
}

func (r *Reader) String() string {
	return fmt.Sprintf("textio.Reader(%s, %d lines)", r.path, len(r.lines))
}
