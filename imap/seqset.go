package imap

import (
	"fmt"
	"strings"
)

// ValidSeqSet reports whether s is a plausible sequence set: digits, commas,
// colons and stars only, per RFC 3501 sequence-set syntax.
func ValidSeqSet(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == ',' || c == ':' || c == '*':
		default:
			return false
		}
	}
	return true
}

// SeqSetFromUIDs renders a sorted UID list as a compact sequence set,
// collapsing consecutive runs into ranges (1,2,3,7 -> "1:3,7").
func SeqSetFromUIDs(uids []uint32) string {
	if len(uids) == 0 {
		return ""
	}

	var b strings.Builder
	start, prev := uids[0], uids[0]

	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if start == prev {
			fmt.Fprintf(&b, "%d", start)
		} else {
			fmt.Fprintf(&b, "%d:%d", start, prev)
		}
	}

	for _, uid := range uids[1:] {
		if uid == prev+1 {
			prev = uid
			continue
		}
		flush()
		start, prev = uid, uid
	}
	flush()

	return b.String()
}
