package parser

import (
	"fmt"
	"strings"

	"wren/codec"
	"wren/imap"
	"wren/wire"
)

// parseList parses `(attribs) "delim" name` after LIST or LSUB.
func parseList(line *wire.Line, offset int, subscribed bool) (*ListResponse, error) {
	r := newSexpReader(line, offset)

	attrItem, err := r.readItem()
	if err != nil {
		return nil, err
	}
	attrs, ok := attrItem.([]any)
	if !ok {
		return nil, fmt.Errorf("LIST attributes are not a list")
	}

	delimItem, err := r.readItem()
	if err != nil {
		return nil, err
	}

	nameItem, err := r.readItem()
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Subscribed: subscribed,
		Info: imap.MailboxInfo{
			Name:       codec.DecodeMailbox(itemString(nameItem)),
			Attributes: atomList(attrs),
			Delimiter:  itemString(delimItem),
		},
	}, nil
}

// BuildMailboxTree nests LIST rows into a tree keyed by path component,
// split on each row's delimiter. Attributes attach to the leaf component of
// each row; intermediate nodes are created on demand.
func BuildMailboxTree(rows []imap.MailboxInfo) map[string]*imap.MailboxNode {
	root := make(map[string]*imap.MailboxNode)

	for _, row := range rows {
		components := []string{row.Name}
		if row.Delimiter != "" {
			components = strings.Split(row.Name, row.Delimiter)
		}

		level := root
		for i, comp := range components {
			if comp == "" {
				continue
			}
			node, ok := level[comp]
			if !ok {
				node = &imap.MailboxNode{Delimiter: row.Delimiter}
				level[comp] = node
			}
			if i == len(components)-1 {
				node.Attributes = append([]string(nil), row.Attributes...)
			}
			if node.Children == nil {
				node.Children = make(map[string]*imap.MailboxNode)
			}
			level = node.Children
		}
	}

	return root
}
