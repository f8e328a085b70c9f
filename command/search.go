package command

import (
	"fmt"

	"wren/imap"
)

const searchDateLayout = "2-Jan-2006"

// Search renders SEARCH from the criteria list (AND semantics). An empty
// list searches ALL. Non-ASCII string values switch the command to
// CHARSET UTF-8 and send those values as literals.
func Search(criteria []imap.Criterion) (Command, error) {
	if len(criteria) == 0 {
		return simple("SEARCH ALL"), nil
	}

	var b builder
	b.text("SEARCH")
	if criteriaNeedCharset(criteria) {
		b.text(" CHARSET UTF-8")
	}
	for _, c := range criteria {
		b.text(" ")
		if err := writeCriterion(&b, c); err != nil {
			return Command{}, err
		}
	}
	return b.done(), nil
}

func criteriaNeedCharset(criteria []imap.Criterion) bool {
	for _, c := range criteria {
		if !isASCII(c.Value) || !isASCII(c.Value2) {
			return true
		}
		if criteriaNeedCharset(c.Sub) {
			return true
		}
	}
	return false
}

func writeCriterion(b *builder, c imap.Criterion) error {
	switch c.Key {
	case "ALL", "ANSWERED", "DELETED", "DRAFT", "FLAGGED", "NEW", "RECENT",
		"SEEN", "UNANSWERED", "UNDELETED", "UNFLAGGED", "UNSEEN":
		b.text(c.Key)

	case "FROM", "TO", "CC", "BCC", "SUBJECT", "BODY", "TEXT", "KEYWORD":
		b.text(c.Key + " ")
		writeSearchString(b, c.Value)

	case "HEADER":
		b.text("HEADER " + c.Value + " ")
		writeSearchString(b, c.Value2)

	case "SINCE", "BEFORE", "ON", "SENTSINCE", "SENTBEFORE", "SENTON":
		b.text(c.Key + " " + c.Date.UTC().Format(searchDateLayout))

	case "LARGER", "SMALLER":
		b.text(c.Key + " " + itoa(c.Size))

	case "MODSEQ":
		b.text(fmt.Sprintf("MODSEQ %d", c.ModSeq))

	case "UID":
		if !imap.ValidSeqSet(c.Value) {
			return fmt.Errorf("invalid UID set %q", c.Value)
		}
		b.text("UID " + c.Value)

	case "NOT":
		if len(c.Sub) != 1 {
			return fmt.Errorf("NOT takes exactly one criterion")
		}
		b.text("NOT ")
		return writeCriterion(b, c.Sub[0])

	case "OR":
		if len(c.Sub) != 2 {
			return fmt.Errorf("OR takes exactly two criteria")
		}
		b.text("OR ")
		if err := writeCriterion(b, c.Sub[0]); err != nil {
			return err
		}
		b.text(" ")
		return writeCriterion(b, c.Sub[1])

	case "GROUP":
		b.text("(")
		for i, sub := range c.Sub {
			if i > 0 {
				b.text(" ")
			}
			if err := writeCriterion(b, sub); err != nil {
				return err
			}
		}
		b.text(")")

	default:
		return fmt.Errorf("unknown search criterion %q", c.Key)
	}
	return nil
}

// writeSearchString quotes an ASCII value or sends a UTF-8 value as a
// literal.
func writeSearchString(b *builder, v string) {
	if isASCII(v) {
		b.text(quote(v))
		return
	}
	b.literal([]byte(v))
}
