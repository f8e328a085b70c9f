package codec

import (
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// DecodeHeaderValue decodes a header value containing RFC 2047 encoded words.
// Whitespace between two adjacent encoded words is dropped; literal runs are
// kept as-is. Malformed encoded words are returned verbatim.
func DecodeHeaderValue(value string) string {
	var b strings.Builder
	rest := value
	prevWasWord := false

	for {
		start := strings.Index(rest, "=?")
		if start == -1 {
			b.WriteString(rest)
			break
		}

		decoded, consumed, ok := decodeEncodedWord(rest[start:])
		if !ok {
			// Not a valid encoded word, keep the "=?" literally and move on.
			b.WriteString(rest[:start+2])
			rest = rest[start+2:]
			prevWasWord = false
			continue
		}

		lead := rest[:start]
		if !prevWasWord || strings.TrimSpace(lead) != "" {
			b.WriteString(lead)
		}
		b.WriteString(decoded)
		rest = rest[start+consumed:]
		prevWasWord = true
	}

	return b.String()
}

// decodeEncodedWord decodes a single =?charset?enc?text?= segment at the start
// of s. Returns the decoded text, the number of input bytes consumed and
// whether the segment was well-formed.
func decodeEncodedWord(s string) (string, int, bool) {
	// s starts with "=?". Find the terminating "?=" that leaves both the
	// charset and encoding separators before it (Q text may contain "?=").
	end := -1
	for i := 2; i < len(s); {
		j := strings.Index(s[i:], "?=")
		if j == -1 {
			break
		}
		cand := i + j
		if strings.Count(s[2:cand], "?") >= 2 {
			end = cand
			break
		}
		i = cand + 1
	}
	if end == -1 {
		return "", 0, false
	}

	parts := strings.SplitN(s[2:end], "?", 3)
	if len(parts) != 3 {
		return "", 0, false
	}
	charset, enc, text := parts[0], parts[1], parts[2]

	var raw []byte
	switch strings.ToUpper(enc) {
	case "B":
		decoded, err := DecodeBase64(text)
		if err != nil {
			return "", 0, false
		}
		raw = decoded
	case "Q":
		raw = decodeQEncoding(text)
	default:
		return "", 0, false
	}

	return convertCharset(charset, raw), end + 2, true
}

// decodeQEncoding decodes the Q variant: '_' means space, =HH as in
// quoted-printable, everything else literal.
func decodeQEncoding(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		switch {
		case s[i] == '_':
			out = append(out, ' ')
			i++
		case s[i] == '=' && i+2 < len(s):
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				out = append(out, hi<<4|lo)
				i += 3
			} else {
				out = append(out, '=')
				i++
			}
		default:
			out = append(out, s[i])
			i++
		}
	}
	return out
}

// convertCharset converts raw bytes in the named charset to UTF-8.
// Unknown charsets pass the bytes through unchanged.
func convertCharset(charset string, raw []byte) string {
	switch strings.ToLower(charset) {
	case "utf-8", "us-ascii", "ascii", "":
		return string(raw)
	}

	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
