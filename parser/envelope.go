package parser

import (
	"fmt"

	"wren/codec"
	"wren/imap"
)

// parseEnvelope parses the ten-field ENVELOPE list:
// date subject from sender reply-to to cc bcc in-reply-to message-id.
func parseEnvelope(items []any) (*imap.Envelope, error) {
	if len(items) != 10 {
		return nil, fmt.Errorf("ENVELOPE needs 10 fields, got %d", len(items))
	}

	env := &imap.Envelope{
		Date:      itemString(items[0]),
		Subject:   codec.DecodeHeaderValue(itemString(items[1])),
		InReplyTo: itemString(items[8]),
		MessageID: itemString(items[9]),
	}

	for i, dst := range []*[]imap.Address{
		&env.From, &env.Sender, &env.ReplyTo, &env.To, &env.Cc, &env.Bcc,
	} {
		addrs, err := parseAddressList(items[2+i])
		if err != nil {
			return nil, err
		}
		*dst = addrs
	}

	return env, nil
}

// parseAddressList parses a NIL-or-list of four-field address structures
// (name adl mailbox host).
func parseAddressList(item any) ([]imap.Address, error) {
	if item == nil {
		return nil, nil
	}
	list, ok := item.([]any)
	if !ok {
		return nil, fmt.Errorf("address list is not a list")
	}

	var addrs []imap.Address
	for _, it := range list {
		fields, ok := it.([]any)
		if !ok || len(fields) != 4 {
			return nil, fmt.Errorf("address needs 4 fields")
		}
		addrs = append(addrs, imap.Address{
			Name:    codec.DecodeHeaderValue(itemString(fields[0])),
			Mailbox: itemString(fields[2]),
			Host:    itemString(fields[3]),
		})
	}
	return addrs, nil
}
