package codec

import (
	"strings"
)

// Header is a case-insensitive mapping from field name to one or more values.
// Multi-valued fields such as Received keep every occurrence in order.
type Header map[string][]string

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	vs := h[strings.ToLower(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values for name.
func (h Header) Values(name string) []string {
	return h[strings.ToLower(name)]
}

// Add appends a value for name.
func (h Header) Add(name, value string) {
	key := strings.ToLower(name)
	h[key] = append(h[key], value)
}

// Unfold joins folded header lines: CRLF (or bare LF) followed by whitespace
// becomes a single space.
func Unfold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\r' && i+2 < len(s) && s[i+1] == '\n' && isWSP(s[i+2]) {
			b.WriteByte(' ')
			i += 2
			for i+1 < len(s) && isWSP(s[i+1]) {
				i++
			}
			continue
		}
		if c == '\n' && i+1 < len(s) && isWSP(s[i+1]) {
			b.WriteByte(' ')
			for i+1 < len(s) && isWSP(s[i+1]) {
				i++
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Fold wraps a header line at spaces, inserting CRLF+SP continuations, so no
// physical line exceeds limit characters. A single word longer than limit is
// not split and its line exceeds the limit. A limit of 0 means 76.
func Fold(line string, limit int) string {
	if limit <= 0 {
		limit = 76
	}
	if len(line) <= limit {
		return line
	}

	var b strings.Builder
	lineLen := 0
	words := strings.Split(line, " ")
	for i, w := range words {
		if i == 0 {
			b.WriteString(w)
			lineLen = len(w)
			continue
		}
		if lineLen+1+len(w) > limit {
			b.WriteString("\r\n ")
			b.WriteString(w)
			lineLen = 1 + len(w)
			continue
		}
		b.WriteByte(' ')
		b.WriteString(w)
		lineLen += 1 + len(w)
	}
	return b.String()
}

// ParseHeaders parses a raw header block (up to and excluding the empty line)
// into a Header map. Folded lines are unfolded first.
func ParseHeaders(raw string) Header {
	h := make(Header)
	unfolded := Unfold(raw)

	for _, line := range strings.Split(unfolded, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		h.Add(name, value)
	}

	return h
}

func isWSP(c byte) bool {
	return c == ' ' || c == '\t'
}
