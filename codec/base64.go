package codec

import (
	"encoding/base64"
	"strings"
)

// EncodeBase64 encodes data with the standard alphabet and '=' padding.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes s, tolerating any interleaved whitespace
// (MIME inserts CRLF every 76 characters).
func DecodeBase64(s string) ([]byte, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return base64.StdEncoding.DecodeString(b.String())
}
