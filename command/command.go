// Package command renders typed requests into RFC 3501 command text. The
// session engine prepends the tag and appends the terminating CRLF; literal
// payloads are sent after the server's continuation.
package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"wren/codec"
	"wren/imap"
)

// Command is rendered command text. Each segment is one physical line; every
// segment except the last ends with a {N} literal marker whose payload is the
// matching entry of Literals.
type Command struct {
	Segments []string
	Literals [][]byte
}

// Simple reports whether the command carries no literals.
func (c Command) Simple() bool {
	return len(c.Literals) == 0
}

// Text returns the single-segment command text. Only valid for simple
// commands.
func (c Command) Text() string {
	return c.Segments[0]
}

func simple(text string) Command {
	return Command{Segments: []string{text}}
}

// builder accumulates command text with spliced literals.
type builder struct {
	cur      strings.Builder
	segments []string
	literals [][]byte
}

func (b *builder) text(s string) {
	b.cur.WriteString(s)
}

func (b *builder) literal(data []byte) {
	fmt.Fprintf(&b.cur, "{%d}", len(data))
	b.segments = append(b.segments, b.cur.String())
	b.cur.Reset()
	b.literals = append(b.literals, data)
}

func (b *builder) done() Command {
	return Command{
		Segments: append(b.segments, b.cur.String()),
		Literals: b.literals,
	}
}

// Login renders LOGIN with quoted credentials.
func Login(username, password string) Command {
	return simple(fmt.Sprintf("LOGIN %s %s", quote(username), quote(password)))
}

// Authenticate renders AUTHENTICATE, with the initial response inline when
// the server supports SASL-IR.
func Authenticate(mechanism, initial string, saslIR bool) Command {
	if saslIR && initial != "" {
		return simple(fmt.Sprintf("AUTHENTICATE %s %s", mechanism, initial))
	}
	return simple("AUTHENTICATE " + mechanism)
}

func Capability() Command { return simple("CAPABILITY") }

// Enable requests RFC 5161 extensions.
func Enable(caps ...string) Command {
	return simple("ENABLE " + strings.Join(caps, " "))
}
func Noop() Command     { return simple("NOOP") }
func Check() Command    { return simple("CHECK") }
func Logout() Command   { return simple("LOGOUT") }
func StartTLS() Command { return simple("STARTTLS") }
func Idle() Command     { return simple("IDLE") }
func Expunge() Command  { return simple("EXPUNGE") }
func Close() Command    { return simple("CLOSE") }
func Unselect() Command { return simple("UNSELECT") }

// Select renders SELECT or EXAMINE. CONDSTORE is requested as a select
// parameter when enabled.
func Select(mailbox string, examine, condstore bool) Command {
	name := "SELECT"
	if examine {
		name = "EXAMINE"
	}
	text := fmt.Sprintf("%s %s", name, quoteMailbox(mailbox))
	if condstore {
		text += " (CONDSTORE)"
	}
	return simple(text)
}

// List renders LIST (or LSUB) with both arguments quoted.
func List(reference, pattern string, lsub bool) Command {
	name := "LIST"
	if lsub {
		name = "LSUB"
	}
	return simple(fmt.Sprintf("%s %s %s", name, quoteMailbox(reference), quoteMailbox(pattern)))
}

// Status renders STATUS with the requested attributes.
func Status(mailbox string, items []string) Command {
	if len(items) == 0 {
		items = []string{"MESSAGES", "RECENT", "UNSEEN", "UIDNEXT", "UIDVALIDITY"}
	}
	return simple(fmt.Sprintf("STATUS %s (%s)", quoteMailbox(mailbox), strings.Join(items, " ")))
}

// Fetch renders FETCH for the given sequence set. UID and FLAGS are always
// included; body sections use BODY.PEEK unless opts.MarkSeen.
func Fetch(seq string, opts imap.FetchOptions) (Command, error) {
	if !imap.ValidSeqSet(seq) {
		return Command{}, fmt.Errorf("invalid sequence set %q", seq)
	}

	items := []string{"UID", "FLAGS"}
	if opts.Struct {
		items = append(items, "BODYSTRUCTURE")
	}
	if opts.Envelope {
		items = append(items, "ENVELOPE")
	}
	if opts.Size {
		items = append(items, "RFC822.SIZE")
	}
	if opts.InternalDate {
		items = append(items, "INTERNALDATE")
	}
	if opts.ModSeq {
		items = append(items, "MODSEQ")
	}
	bodyItem := "BODY.PEEK"
	if opts.MarkSeen {
		bodyItem = "BODY"
	}
	for _, section := range opts.Bodies {
		items = append(items, fmt.Sprintf("%s[%s]", bodyItem, section))
	}

	text := fmt.Sprintf("FETCH %s (%s)", seq, strings.Join(items, " "))
	if opts.ChangedSince > 0 {
		text += fmt.Sprintf(" (CHANGEDSINCE %d)", opts.ChangedSince)
	}
	return simple(text), nil
}

// Store renders STORE. unchangedSince adds the CONDSTORE modifier when
// non-zero.
func Store(seq string, action imap.StoreAction, flags []string, silent bool, unchangedSince uint64) (Command, error) {
	if !imap.ValidSeqSet(seq) {
		return Command{}, fmt.Errorf("invalid sequence set %q", seq)
	}

	item := string(action)
	if silent {
		item += ".SILENT"
	}

	text := "STORE " + seq
	if unchangedSince > 0 {
		text += fmt.Sprintf(" (UNCHANGEDSINCE %d)", unchangedSince)
	}
	text += fmt.Sprintf(" %s (%s)", item, strings.Join(flags, " "))
	return simple(text), nil
}

// Copy renders COPY to the destination mailbox.
func Copy(seq, mailbox string) (Command, error) {
	if !imap.ValidSeqSet(seq) {
		return Command{}, fmt.Errorf("invalid sequence set %q", seq)
	}
	return simple(fmt.Sprintf("COPY %s %s", seq, quoteMailbox(mailbox))), nil
}

// Move renders MOVE to the destination mailbox.
func Move(seq, mailbox string) (Command, error) {
	if !imap.ValidSeqSet(seq) {
		return Command{}, fmt.Errorf("invalid sequence set %q", seq)
	}
	return simple(fmt.Sprintf("MOVE %s %s", seq, quoteMailbox(mailbox))), nil
}

// Append renders APPEND with the message as a literal.
func Append(mailbox string, message []byte, opts imap.AppendOptions) Command {
	var b builder
	b.text("APPEND " + quoteMailbox(mailbox))
	if len(opts.Flags) > 0 {
		b.text(" (" + strings.Join(opts.Flags, " ") + ")")
	}
	if opts.InternalDate != "" {
		b.text(" " + quote(opts.InternalDate))
	}
	b.text(" ")
	b.literal(message)
	return b.done()
}

// ID renders the RFC 2971 ID command; nil fields sends ID NIL. Fields are
// emitted in sorted key order so the command text is deterministic.
func ID(fields map[string]string) Command {
	if len(fields) == 0 {
		return simple("ID NIL")
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(fields)*2)
	for _, k := range keys {
		pairs = append(pairs, quote(k), quote(fields[k]))
	}
	return simple("ID (" + strings.Join(pairs, " ") + ")")
}

// quote renders an IMAP quoted string with backslash escapes.
func quote(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

// quoteMailbox encodes a mailbox name with modified UTF-7 and quotes it.
func quoteMailbox(name string) string {
	return quote(codec.EncodeMailbox(name))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

func itoa(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}
