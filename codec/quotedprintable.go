package codec

import "strings"

const qpMaxLine = 76

const hexUpper = "0123456789ABCDEF"

// EncodeQuotedPrintable encodes data per RFC 2045 section 6.7.
// Printable ASCII (33..126 except '='), space and tab are emitted literally;
// everything else becomes =HH with uppercase hex. A soft line break =CRLF is
// inserted before any output line would exceed 76 characters.
func EncodeQuotedPrintable(data []byte) string {
	var b strings.Builder
	lineLen := 0

	emit := func(token string) {
		// Reserve one column for the soft-break '='.
		if lineLen+len(token) > qpMaxLine-1 {
			b.WriteString("=\r\n")
			lineLen = 0
		}
		b.WriteString(token)
		lineLen += len(token)
	}

	for _, c := range data {
		if (c >= 33 && c <= 126 && c != '=') || c == ' ' || c == '\t' {
			emit(string(c))
		} else {
			emit(string([]byte{'=', hexUpper[c>>4], hexUpper[c&0x0f]}))
		}
	}

	return b.String()
}

// DecodeQuotedPrintable decodes quoted-printable data.
// =CRLF and =LF are soft breaks and produce no output. =HH with valid hex
// decodes to that byte. A '=' followed by anything else is emitted literally.
// A bare LF is normalized to CRLF.
func DecodeQuotedPrintable(s string) []byte {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); {
		c := s[i]
		if c == '=' {
			// Soft break: =CRLF or =LF.
			if i+2 < len(s) && s[i+1] == '\r' && s[i+2] == '\n' {
				i += 3
				continue
			}
			if i+1 < len(s) && s[i+1] == '\n' {
				i += 2
				continue
			}
			if i+2 < len(s) {
				hi, ok1 := unhex(s[i+1])
				lo, ok2 := unhex(s[i+2])
				if ok1 && ok2 {
					out = append(out, hi<<4|lo)
					i += 3
					continue
				}
			}
			// Invalid escape, keep the '=' as-is.
			out = append(out, '=')
			i++
			continue
		}
		if c == '\n' && (len(out) == 0 || out[len(out)-1] != '\r') {
			out = append(out, '\r', '\n')
			i++
			continue
		}
		out = append(out, c)
		i++
	}

	return out
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
