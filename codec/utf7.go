package codec

import (
	"encoding/base64"
	"strings"
	"unicode/utf16"
)

// Modified base64 alphabet for mailbox names, RFC 3501 section 5.1.3.
var mUTF7 = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,").WithPadding(base64.NoPadding)

// EncodeMailbox encodes a mailbox name using IMAP modified UTF-7.
// Printable ASCII passes through, '&' becomes "&-", and runs of other
// characters are encoded as '&' + modified base64 of UTF-16BE + '-'.
func EncodeMailbox(name string) string {
	var b strings.Builder
	var run []rune

	flush := func() {
		if len(run) == 0 {
			return
		}
		units := utf16.Encode(run)
		raw := make([]byte, 0, len(units)*2)
		for _, u := range units {
			raw = append(raw, byte(u>>8), byte(u))
		}
		b.WriteByte('&')
		b.WriteString(mUTF7.EncodeToString(raw))
		b.WriteByte('-')
		run = run[:0]
	}

	for _, r := range name {
		if r >= 0x20 && r <= 0x7e {
			flush()
			if r == '&' {
				b.WriteString("&-")
			} else {
				b.WriteRune(r)
			}
			continue
		}
		run = append(run, r)
	}
	flush()

	return b.String()
}

// DecodeMailbox decodes an IMAP modified UTF-7 mailbox name. Malformed
// encoded runs are kept verbatim.
func DecodeMailbox(name string) string {
	var b strings.Builder

	for i := 0; i < len(name); {
		c := name[i]
		if c != '&' {
			b.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(name[i+1:], '-')
		if end == -1 {
			b.WriteString(name[i:])
			break
		}
		end += i + 1

		if end == i+1 {
			// "&-" is a literal ampersand.
			b.WriteByte('&')
			i = end + 1
			continue
		}

		raw, err := mUTF7.DecodeString(name[i+1 : end])
		if err != nil || len(raw)%2 != 0 {
			b.WriteString(name[i : end+1])
			i = end + 1
			continue
		}

		units := make([]uint16, 0, len(raw)/2)
		for j := 0; j < len(raw); j += 2 {
			units = append(units, uint16(raw[j])<<8|uint16(raw[j+1]))
		}
		b.WriteString(string(utf16.Decode(units)))
		i = end + 1
	}

	return b.String()
}
