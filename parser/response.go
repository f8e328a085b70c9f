package parser

import (
	"fmt"
	"strconv"
	"strings"

	"wren/imap"
	"wren/wire"
)

// Status is the condition of a status response.
type Status string

const (
	StatusOK      Status = "OK"
	StatusNo      Status = "NO"
	StatusBad     Status = "BAD"
	StatusBye     Status = "BYE"
	StatusPreauth Status = "PREAUTH"
)

// StatusResponse is a tagged or untagged OK/NO/BAD/BYE/PREAUTH line.
// Tag is empty for untagged responses.
type StatusResponse struct {
	Tag    string
	Status Status
	Code   *RespCode
	Text   string
}

// RespCode is a bracketed resp-text-code with its parsed arguments.
type RespCode struct {
	Name string
	Raw  string

	Num    uint32   // UIDVALIDITY, UIDNEXT, UNSEEN
	ModSeq uint64   // HIGHESTMODSEQ
	Flags  []string // PERMANENTFLAGS
	Caps   []string // CAPABILITY

	// UIDPLUS data.
	UIDValidity uint32
	SrcUIDs     string // COPYUID source set
	DstUIDs     string // COPYUID destination set, APPENDUID assigned set
}

// ContinuationRequest is a "+ text" line.
type ContinuationRequest struct {
	Text string
}

// Untagged data responses.

type ExistsResponse struct{ Count uint32 }
type RecentResponse struct{ Count uint32 }
type ExpungeResponse struct{ SeqNum uint32 }
type FlagsResponse struct{ Flags []string }
type CapabilityResponse struct{ Caps []string }
type SearchResponse struct{ IDs []uint32 }

// ListResponse is a LIST or LSUB row.
type ListResponse struct {
	Info       imap.MailboxInfo
	Subscribed bool // true for LSUB
}

// MailboxStatusResponse is an untagged STATUS reply.
type MailboxStatusResponse struct {
	Status imap.MailboxStatus
}

// FetchResponse is an untagged FETCH reply, solicited or not.
type FetchResponse struct {
	Message imap.Message
}

// IDResponse is the RFC 2971 server identification list.
type IDResponse struct {
	Fields map[string]string
}

// UnknownResponse preserves an unrecognized untagged line verbatim.
type UnknownResponse struct {
	Raw      string
	Literals [][]byte
}

// Parse classifies one framed line and returns the corresponding response
// value. Unrecognized untagged payloads come back as UnknownResponse, never
// as an error.
func Parse(line *wire.Line) (any, error) {
	text := line.Text
	if text == "" {
		return nil, fmt.Errorf("empty response line")
	}

	if text[0] == '+' {
		rest := strings.TrimPrefix(text[1:], " ")
		return &ContinuationRequest{Text: rest}, nil
	}

	if strings.HasPrefix(text, "* ") {
		return parseUntagged(line, 2)
	}

	// Tagged response.
	sp := strings.IndexByte(text, ' ')
	if sp <= 0 {
		return nil, fmt.Errorf("malformed tagged response")
	}
	tag := text[:sp]
	resp, err := parseStatus(line, sp+1)
	if err != nil {
		return nil, err
	}
	resp.Tag = tag
	return resp, nil
}

// parseUntagged dispatches on the first atom of the untagged payload.
func parseUntagged(line *wire.Line, offset int) (any, error) {
	text := line.Text
	rest := text[offset:]
	sp := strings.IndexByte(rest, ' ')
	first := rest
	if sp != -1 {
		first = rest[:sp]
	}

	// Numeric prefix: EXISTS / RECENT / EXPUNGE / FETCH.
	if n, err := strconv.ParseUint(first, 10, 32); err == nil {
		if sp == -1 {
			return nil, fmt.Errorf("bare number in untagged response")
		}
		afterNum := offset + sp + 1
		kindEnd := strings.IndexByte(text[afterNum:], ' ')
		kind := text[afterNum:]
		if kindEnd != -1 {
			kind = text[afterNum : afterNum+kindEnd]
		}
		switch strings.ToUpper(kind) {
		case "EXISTS":
			return &ExistsResponse{Count: uint32(n)}, nil
		case "RECENT":
			return &RecentResponse{Count: uint32(n)}, nil
		case "EXPUNGE":
			return &ExpungeResponse{SeqNum: uint32(n)}, nil
		case "FETCH":
			if kindEnd == -1 {
				return nil, fmt.Errorf("FETCH response without attribute list")
			}
			return parseFetch(line, afterNum+kindEnd+1, uint32(n))
		default:
			return &UnknownResponse{Raw: text, Literals: line.Literals}, nil
		}
	}

	switch strings.ToUpper(first) {
	case "OK", "NO", "BAD", "BYE", "PREAUTH":
		return parseStatus(line, offset)
	case "CAPABILITY":
		caps := strings.Fields(rest)[1:]
		return &CapabilityResponse{Caps: caps}, nil
	case "FLAGS":
		return parseFlagsResponse(line, offset+sp+1)
	case "LIST":
		return parseList(line, offset+sp+1, false)
	case "LSUB":
		return parseList(line, offset+sp+1, true)
	case "SEARCH":
		return parseSearch(rest)
	case "STATUS":
		return parseMailboxStatus(line, offset+sp+1)
	case "ID":
		return parseID(line, offset+sp+1)
	default:
		return &UnknownResponse{Raw: text, Literals: line.Literals}, nil
	}
}

// parseStatus parses "OK|NO|BAD|BYE|PREAUTH [code] text" starting at offset.
func parseStatus(line *wire.Line, offset int) (*StatusResponse, error) {
	rest := line.Text[offset:]

	sp := strings.IndexByte(rest, ' ')
	word := rest
	var after string
	if sp != -1 {
		word = rest[:sp]
		after = rest[sp+1:]
	}

	status := Status(strings.ToUpper(word))
	switch status {
	case StatusOK, StatusNo, StatusBad, StatusBye, StatusPreauth:
	default:
		return nil, fmt.Errorf("unexpected status %q", word)
	}

	resp := &StatusResponse{Status: status}

	if strings.HasPrefix(after, "[") {
		end := strings.IndexByte(after, ']')
		if end == -1 {
			return nil, fmt.Errorf("unterminated response code")
		}
		code, err := parseRespCode(after[1:end])
		if err != nil {
			return nil, err
		}
		resp.Code = code
		after = strings.TrimPrefix(after[end+1:], " ")
	}

	resp.Text = after
	return resp, nil
}

// parseRespCode parses the inside of a bracketed resp-text-code.
func parseRespCode(s string) (*RespCode, error) {
	code := &RespCode{Raw: s}

	sp := strings.IndexByte(s, ' ')
	name := s
	var arg string
	if sp != -1 {
		name = s[:sp]
		arg = s[sp+1:]
	}
	code.Name = strings.ToUpper(name)

	switch code.Name {
	case "UIDVALIDITY", "UIDNEXT", "UNSEEN":
		n, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad %s argument %q", code.Name, arg)
		}
		code.Num = uint32(n)
	case "HIGHESTMODSEQ":
		n, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad HIGHESTMODSEQ argument %q", arg)
		}
		code.ModSeq = n
	case "PERMANENTFLAGS":
		trimmed := strings.TrimSuffix(strings.TrimPrefix(arg, "("), ")")
		code.Flags = strings.Fields(trimmed)
	case "CAPABILITY":
		code.Caps = strings.Fields(arg)
	case "APPENDUID":
		parts := strings.Fields(arg)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad APPENDUID data %q", arg)
		}
		n, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad APPENDUID uidvalidity %q", parts[0])
		}
		code.UIDValidity = uint32(n)
		code.DstUIDs = parts[1]
	case "COPYUID":
		parts := strings.Fields(arg)
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad COPYUID data %q", arg)
		}
		n, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad COPYUID uidvalidity %q", parts[0])
		}
		code.UIDValidity = uint32(n)
		code.SrcUIDs = parts[1]
		code.DstUIDs = parts[2]
	}

	return code, nil
}

func parseFlagsResponse(line *wire.Line, offset int) (*FlagsResponse, error) {
	r := newSexpReader(line, offset)
	item, err := r.readItem()
	if err != nil {
		return nil, err
	}
	list, ok := item.([]any)
	if !ok {
		return nil, fmt.Errorf("FLAGS payload is not a list")
	}
	return &FlagsResponse{Flags: atomList(list)}, nil
}

// parseSearch parses "SEARCH" followed by zero or more numbers.
func parseSearch(rest string) (*SearchResponse, error) {
	fields := strings.Fields(rest)[1:]
	resp := &SearchResponse{}
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad SEARCH id %q", f)
		}
		resp.IDs = append(resp.IDs, uint32(n))
	}
	return resp, nil
}

// parseMailboxStatus parses `STATUS "name" (MESSAGES 2 UNSEEN 1 ...)`.
func parseMailboxStatus(line *wire.Line, offset int) (*MailboxStatusResponse, error) {
	r := newSexpReader(line, offset)

	nameItem, err := r.readItem()
	if err != nil {
		return nil, err
	}
	listItem, err := r.readItem()
	if err != nil {
		return nil, err
	}
	items, ok := listItem.([]any)
	if !ok || len(items)%2 != 0 {
		return nil, fmt.Errorf("malformed STATUS attribute list")
	}

	resp := &MailboxStatusResponse{}
	resp.Status.Name = itemString(nameItem)

	for i := 0; i < len(items); i += 2 {
		key := strings.ToUpper(itemString(items[i]))
		val := itemString(items[i+1])
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad STATUS value %q for %s", val, key)
		}
		switch key {
		case "MESSAGES":
			resp.Status.Messages = uint32(n)
		case "RECENT":
			resp.Status.Recent = uint32(n)
		case "UNSEEN":
			resp.Status.Unseen = uint32(n)
		case "UIDNEXT":
			resp.Status.UIDNext = uint32(n)
		case "UIDVALIDITY":
			resp.Status.UIDValidity = uint32(n)
		case "HIGHESTMODSEQ":
			resp.Status.HighestModSeq = n
		}
	}

	return resp, nil
}

// parseID parses the RFC 2971 parameter list, which may be NIL.
func parseID(line *wire.Line, offset int) (*IDResponse, error) {
	r := newSexpReader(line, offset)
	item, err := r.readItem()
	if err != nil {
		return nil, err
	}
	resp := &IDResponse{Fields: make(map[string]string)}
	list, ok := item.([]any)
	if !ok {
		return resp, nil // NIL
	}
	for i := 0; i+1 < len(list); i += 2 {
		resp.Fields[itemString(list[i])] = itemString(list[i+1])
	}
	return resp, nil
}

// itemString renders a sexp item as a string; nil becomes "".
func itemString(item any) string {
	switch v := item.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// atomList converts a sexp list of atoms to strings.
func atomList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, itemString(it))
	}
	return out
}
