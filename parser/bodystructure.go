package parser

import (
	"fmt"
	"strconv"
	"strings"

	"wren/imap"
)

// parseBodyStructure parses one BODYSTRUCTURE node. A list whose first
// element is itself a list is a multipart; otherwise it is a basic part.
func parseBodyStructure(items []any) (*imap.BodyStructure, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty body structure")
	}

	if _, ok := items[0].([]any); ok {
		return parseMultipart(items)
	}
	return parseBasicPart(items)
}

// parseMultipart parses (part1 part2 ... subtype [params disposition
// language location]).
func parseMultipart(items []any) (*imap.BodyStructure, error) {
	bs := &imap.BodyStructure{Type: "multipart"}

	i := 0
	for i < len(items) {
		list, ok := items[i].([]any)
		if !ok {
			break
		}
		part, err := parseBodyStructure(list)
		if err != nil {
			return nil, err
		}
		bs.Parts = append(bs.Parts, part)
		i++
	}

	if i >= len(items) {
		return nil, fmt.Errorf("multipart without subtype")
	}
	bs.Subtype = strings.ToLower(itemString(items[i]))
	i++

	// Optional extension fields.
	if i < len(items) {
		bs.Params = parseParamList(items[i])
		i++
	}
	if i < len(items) {
		d, err := parseDisposition(items[i])
		if err != nil {
			return nil, err
		}
		bs.Disposition = d
		i++
	}
	if i < len(items) {
		bs.Language = parseLanguage(items[i])
		i++
	}
	if i < len(items) {
		bs.Location = itemString(items[i])
	}

	return bs, nil
}

// parseBasicPart parses (type subtype params id description encoding size
// ...) with the text and message/rfc822 variants and optional trailing
// extension fields.
func parseBasicPart(items []any) (*imap.BodyStructure, error) {
	if len(items) < 7 {
		return nil, fmt.Errorf("body part needs at least 7 fields, got %d", len(items))
	}

	bs := &imap.BodyStructure{
		Type:        strings.ToLower(itemString(items[0])),
		Subtype:     strings.ToLower(itemString(items[1])),
		Params:      parseParamList(items[2]),
		ID:          itemString(items[3]),
		Description: itemString(items[4]),
		Encoding:    strings.ToUpper(itemString(items[5])),
	}

	size, err := strconv.ParseUint(itemString(items[6]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad body part size %q", itemString(items[6]))
	}
	bs.Size = uint32(size)

	i := 7
	switch {
	case bs.Type == "text":
		if i < len(items) {
			lines, err := strconv.ParseUint(itemString(items[i]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad text line count %q", itemString(items[i]))
			}
			bs.Lines = uint32(lines)
			i++
		}
	case bs.Type == "message" && bs.Subtype == "rfc822":
		if i < len(items) {
			envList, ok := items[i].([]any)
			if !ok {
				return nil, fmt.Errorf("message/rfc822 envelope is not a list")
			}
			env, err := parseEnvelope(envList)
			if err != nil {
				return nil, err
			}
			bs.Envelope = env
			i++
		}
		if i < len(items) {
			sub, ok := items[i].([]any)
			if !ok {
				return nil, fmt.Errorf("message/rfc822 body is not a list")
			}
			nested, err := parseBodyStructure(sub)
			if err != nil {
				return nil, err
			}
			bs.Message = nested
			i++
		}
		if i < len(items) {
			lines, err := strconv.ParseUint(itemString(items[i]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad message line count %q", itemString(items[i]))
			}
			bs.Lines = uint32(lines)
			i++
		}
	}

	// Optional extension fields: md5 disposition language location.
	if i < len(items) {
		bs.MD5 = itemString(items[i])
		i++
	}
	if i < len(items) {
		d, err := parseDisposition(items[i])
		if err != nil {
			return nil, err
		}
		bs.Disposition = d
		i++
	}
	if i < len(items) {
		bs.Language = parseLanguage(items[i])
		i++
	}
	if i < len(items) {
		bs.Location = itemString(items[i])
	}

	return bs, nil
}

// parseParamList parses a NIL-or-(key value ...) parameter list into a map
// with lowercase keys.
func parseParamList(item any) map[string]string {
	list, ok := item.([]any)
	if !ok {
		return nil
	}
	params := make(map[string]string, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		params[strings.ToLower(itemString(list[i]))] = itemString(list[i+1])
	}
	return params
}

// parseDisposition parses NIL or (type (params)).
func parseDisposition(item any) (*imap.Disposition, error) {
	if item == nil {
		return nil, nil
	}
	list, ok := item.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("malformed disposition")
	}
	d := &imap.Disposition{Type: strings.ToLower(itemString(list[0]))}
	if len(list) > 1 {
		d.Params = parseParamList(list[1])
	}
	return d, nil
}

// parseLanguage parses NIL, a single tag or a tag list.
func parseLanguage(item any) []string {
	switch v := item.(type) {
	case nil:
		return nil
	case []any:
		return atomList(v)
	default:
		return []string{itemString(item)}
	}
}

// FormatBodyStructure renders a node back to its parenthesized wire form.
// Extension fields are emitted only when one of them is set.
func FormatBodyStructure(bs *imap.BodyStructure) string {
	var b strings.Builder
	writeBodyStructure(&b, bs)
	return b.String()
}

func writeBodyStructure(b *strings.Builder, bs *imap.BodyStructure) {
	b.WriteByte('(')

	if bs.Multipart() {
		for _, part := range bs.Parts {
			writeBodyStructure(b, part)
		}
		b.WriteByte(' ')
		b.WriteString(quoteOrNIL(strings.ToUpper(bs.Subtype)))
		if bs.Params != nil || bs.Disposition != nil || bs.Language != nil || bs.Location != "" {
			b.WriteByte(' ')
			writeParamList(b, bs.Params)
			b.WriteByte(' ')
			writeDisposition(b, bs.Disposition)
			b.WriteByte(' ')
			writeLanguage(b, bs.Language)
			b.WriteByte(' ')
			b.WriteString(quoteOrNIL(bs.Location))
		}
		b.WriteByte(')')
		return
	}

	b.WriteString(quoteOrNIL(strings.ToUpper(bs.Type)))
	b.WriteByte(' ')
	b.WriteString(quoteOrNIL(strings.ToUpper(bs.Subtype)))
	b.WriteByte(' ')
	writeParamList(b, bs.Params)
	b.WriteByte(' ')
	b.WriteString(quoteOrNIL(bs.ID))
	b.WriteByte(' ')
	b.WriteString(quoteOrNIL(bs.Description))
	b.WriteByte(' ')
	b.WriteString(quoteOrNIL(bs.Encoding))
	fmt.Fprintf(b, " %d", bs.Size)

	switch {
	case bs.Type == "text":
		fmt.Fprintf(b, " %d", bs.Lines)
	case bs.Type == "message" && bs.Subtype == "rfc822" && bs.Message != nil:
		b.WriteString(" (")
		// Envelope serialization is only needed for round trips of parsed
		// values; emit the raw ten-field form.
		writeEnvelope(b, bs.Envelope)
		b.WriteString(") ")
		writeBodyStructure(b, bs.Message)
		fmt.Fprintf(b, " %d", bs.Lines)
	}

	if bs.MD5 != "" || bs.Disposition != nil || bs.Language != nil || bs.Location != "" {
		b.WriteByte(' ')
		b.WriteString(quoteOrNIL(bs.MD5))
		b.WriteByte(' ')
		writeDisposition(b, bs.Disposition)
		b.WriteByte(' ')
		writeLanguage(b, bs.Language)
		b.WriteByte(' ')
		b.WriteString(quoteOrNIL(bs.Location))
	}

	b.WriteByte(')')
}

func writeParamList(b *strings.Builder, params map[string]string) {
	if len(params) == 0 {
		b.WriteString("NIL")
		return
	}
	b.WriteByte('(')
	first := true
	for k, v := range params {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(quoteOrNIL(strings.ToUpper(k)))
		b.WriteByte(' ')
		b.WriteString(quoteOrNIL(v))
	}
	b.WriteByte(')')
}

func writeDisposition(b *strings.Builder, d *imap.Disposition) {
	if d == nil {
		b.WriteString("NIL")
		return
	}
	b.WriteByte('(')
	b.WriteString(quoteOrNIL(strings.ToUpper(d.Type)))
	b.WriteByte(' ')
	writeParamList(b, d.Params)
	b.WriteByte(')')
}

func writeLanguage(b *strings.Builder, langs []string) {
	switch len(langs) {
	case 0:
		b.WriteString("NIL")
	case 1:
		b.WriteString(quoteOrNIL(langs[0]))
	default:
		b.WriteByte('(')
		for i, l := range langs {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(quoteOrNIL(l))
		}
		b.WriteByte(')')
	}
}

func writeEnvelope(b *strings.Builder, env *imap.Envelope) {
	if env == nil {
		b.WriteString("NIL NIL NIL NIL NIL NIL NIL NIL NIL NIL")
		return
	}
	b.WriteString(quoteOrNIL(env.Date))
	b.WriteByte(' ')
	b.WriteString(quoteOrNIL(env.Subject))
	for _, addrs := range [][]imap.Address{
		env.From, env.Sender, env.ReplyTo, env.To, env.Cc, env.Bcc,
	} {
		b.WriteByte(' ')
		writeAddressList(b, addrs)
	}
	b.WriteByte(' ')
	b.WriteString(quoteOrNIL(env.InReplyTo))
	b.WriteByte(' ')
	b.WriteString(quoteOrNIL(env.MessageID))
}

func writeAddressList(b *strings.Builder, addrs []imap.Address) {
	if len(addrs) == 0 {
		b.WriteString("NIL")
		return
	}
	b.WriteByte('(')
	for _, a := range addrs {
		b.WriteByte('(')
		b.WriteString(quoteOrNIL(a.Name))
		b.WriteString(" NIL ")
		b.WriteString(quoteOrNIL(a.Mailbox))
		b.WriteByte(' ')
		b.WriteString(quoteOrNIL(a.Host))
		b.WriteByte(')')
	}
	b.WriteByte(')')
}

// quoteOrNIL renders a quoted string, or NIL when empty.
func quoteOrNIL(s string) string {
	if s == "" {
		return "NIL"
	}
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
