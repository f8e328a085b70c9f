// Package wire turns the raw IMAP byte stream into logical lines.
//
// A logical line is a CRLF-terminated line, possibly continued through one or
// more {N} literals: the literal marker ends a physical line, exactly N bytes
// of payload follow, and the line text resumes after the payload.
package wire

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNeedMore is returned by Next when the buffer does not yet hold a
// complete logical line. It is not a protocol error.
var ErrNeedMore = errors.New("wire: need more bytes")

// Line is one logical line. Text keeps the {N} markers in place; Literals
// holds the corresponding payloads in order.
type Line struct {
	Text     string
	Literals [][]byte
}

// Framer frames an append-only receive buffer into logical lines. It is the
// sole owner of the buffer: consumed prefixes are compacted away, and literal
// payloads handed out in Line are copies.
type Framer struct {
	buf    []byte
	pos    int
	closed bool
}

// NewFramer returns an empty framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Append adds received bytes to the buffer.
func (f *Framer) Append(data []byte) {
	f.buf = append(f.buf, data...)
}

// Close marks the end of input. After Close, an incomplete literal becomes a
// hard error instead of ErrNeedMore.
func (f *Framer) Close() {
	f.closed = true
}

// Buffered reports how many unconsumed bytes the framer holds.
func (f *Framer) Buffered() int {
	return len(f.buf) - f.pos
}

// Next returns the next logical line, or ErrNeedMore if the buffer holds only
// a partial line. The returned line is independent of the framer's buffer.
func (f *Framer) Next() (*Line, error) {
	var (
		text     bytes.Buffer
		literals [][]byte
		pos      = f.pos
	)

	for {
		nl := bytes.IndexByte(f.buf[pos:], '\n')
		if nl == -1 {
			if f.closed && len(literals) > 0 {
				return nil, fmt.Errorf("wire: connection closed inside literal continuation")
			}
			return nil, ErrNeedMore
		}

		segEnd := pos + nl
		seg := f.buf[pos:segEnd]
		seg = bytes.TrimSuffix(seg, []byte{'\r'})
		pos = segEnd + 1

		text.Write(seg)

		size, ok := literalSize(seg)
		if !ok {
			break
		}

		if len(f.buf)-pos < size {
			if f.closed {
				return nil, fmt.Errorf("wire: connection closed with %d of %d literal bytes", len(f.buf)-pos, size)
			}
			return nil, ErrNeedMore
		}

		payload := make([]byte, size)
		copy(payload, f.buf[pos:pos+size])
		literals = append(literals, payload)
		pos += size
	}

	f.pos = pos
	f.compact()

	return &Line{Text: text.String(), Literals: literals}, nil
}

// literalSize reports whether a physical line ends with a {N} or {N+} literal
// marker and returns N. Braces anywhere else are plain atom text.
func literalSize(seg []byte) (int, bool) {
	if len(seg) < 3 || seg[len(seg)-1] != '}' {
		return 0, false
	}
	open := bytes.LastIndexByte(seg, '{')
	if open == -1 {
		return 0, false
	}
	digits := seg[open+1 : len(seg)-1]
	digits = bytes.TrimSuffix(digits, []byte{'+'})
	if len(digits) == 0 {
		return 0, false
	}
	size := 0
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
		size = size*10 + int(c-'0')
		if size > 1<<30 {
			return 0, false
		}
	}
	return size, true
}

// compact drops the consumed prefix once it dominates the buffer.
func (f *Framer) compact() {
	if f.pos == len(f.buf) {
		f.buf = f.buf[:0]
		f.pos = 0
		return
	}
	if f.pos > 4096 && f.pos > len(f.buf)/2 {
		n := copy(f.buf, f.buf[f.pos:])
		f.buf = f.buf[:n]
		f.pos = 0
	}
}
