package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"wren/imap"
	"wren/wire"
)

const internalDateLayout = "_2-Jan-2006 15:04:05 -0700"

// parseFetch parses the parenthesized FETCH attribute list starting at
// offset into a Message.
func parseFetch(line *wire.Line, offset int, seqNum uint32) (*FetchResponse, error) {
	r := newSexpReader(line, offset)
	item, err := r.readItem()
	if err != nil {
		return nil, err
	}
	items, ok := item.([]any)
	if !ok {
		return nil, fmt.Errorf("FETCH payload is not a list")
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("FETCH attribute list has odd length %d", len(items))
	}

	msg := imap.Message{SeqNum: seqNum}

	for i := 0; i < len(items); i += 2 {
		key, ok := items[i].(string)
		if !ok {
			return nil, fmt.Errorf("FETCH key is not an atom")
		}
		val := items[i+1]

		if section, isBody := bodySectionKey(key); isBody {
			part := imap.MessagePart{Section: section}
			switch v := val.(type) {
			case nil:
			case string:
				part.Body = []byte(v)
			case []byte:
				part.Body = v
			default:
				return nil, fmt.Errorf("unexpected BODY[%s] value", section)
			}
			part.Size = len(part.Body)
			msg.Parts = append(msg.Parts, part)
			continue
		}

		switch strings.ToUpper(key) {
		case "UID":
			n, err := strconv.ParseUint(itemString(val), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad UID %q", itemString(val))
			}
			msg.UID = uint32(n)
		case "FLAGS":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("FLAGS value is not a list")
			}
			msg.Flags = atomList(list)
		case "RFC822.SIZE":
			n, err := strconv.ParseUint(itemString(val), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad RFC822.SIZE %q", itemString(val))
			}
			msg.Size = uint32(n)
		case "INTERNALDATE":
			t, err := time.Parse(internalDateLayout, itemString(val))
			if err != nil {
				return nil, fmt.Errorf("bad INTERNALDATE %q", itemString(val))
			}
			msg.InternalDate = t
		case "MODSEQ":
			// MODSEQ value arrives as a one-element list.
			s := itemString(val)
			if list, ok := val.([]any); ok && len(list) == 1 {
				s = itemString(list[0])
			}
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad MODSEQ %q", s)
			}
			msg.ModSeq = n
		case "ENVELOPE":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("ENVELOPE value is not a list")
			}
			env, err := parseEnvelope(list)
			if err != nil {
				return nil, err
			}
			msg.Envelope = env
		case "BODYSTRUCTURE", "BODY":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%s value is not a list", key)
			}
			bs, err := parseBodyStructure(list)
			if err != nil {
				return nil, err
			}
			msg.BodyStructure = bs
		case "RFC822":
			msg.Parts = append(msg.Parts, imap.MessagePart{
				Section: "", Body: itemBytes(val), Size: len(itemBytes(val)),
			})
		default:
			// Unknown attribute, skip the pair.
		}
	}

	return &FetchResponse{Message: msg}, nil
}

// bodySectionKey extracts the section spec from a BODY[...] key, including a
// trailing partial range. BODY alone (no brackets) is a BODYSTRUCTURE
// variant and is not a section key.
func bodySectionKey(key string) (string, bool) {
	upper := strings.ToUpper(key)
	if !strings.HasPrefix(upper, "BODY[") {
		return "", false
	}
	open := strings.IndexByte(key, '[')
	close := strings.LastIndexByte(key, ']')
	if close < open {
		return "", false
	}
	section := key[open+1 : close]
	if partial := key[close+1:]; partial != "" {
		section += partial
	}
	return section, true
}

func itemBytes(item any) []byte {
	switch v := item.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}
