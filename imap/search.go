package imap

import "time"

// Criterion is one SEARCH criterion. Key decides which of the remaining
// fields apply; combinators carry their operands in Sub.
type Criterion struct {
	Key    string
	Value  string      // string criteria, UID sets, HEADER field name
	Value2 string      // HEADER field value
	Date   time.Time   // date criteria
	Size   uint32      // LARGER / SMALLER
	ModSeq uint64      // MODSEQ (CONDSTORE)
	Sub    []Criterion // NOT (one), OR (two), GROUP (any)
}

// Flag-style criteria without arguments.

func All() Criterion        { return Criterion{Key: "ALL"} }
func Answered() Criterion   { return Criterion{Key: "ANSWERED"} }
func Deleted() Criterion    { return Criterion{Key: "DELETED"} }
func Draft() Criterion      { return Criterion{Key: "DRAFT"} }
func Flagged() Criterion    { return Criterion{Key: "FLAGGED"} }
func New() Criterion        { return Criterion{Key: "NEW"} }
func Recent() Criterion     { return Criterion{Key: "RECENT"} }
func Seen() Criterion       { return Criterion{Key: "SEEN"} }
func Unanswered() Criterion { return Criterion{Key: "UNANSWERED"} }
func Undeleted() Criterion  { return Criterion{Key: "UNDELETED"} }
func Unflagged() Criterion  { return Criterion{Key: "UNFLAGGED"} }
func Unseen() Criterion     { return Criterion{Key: "UNSEEN"} }

// String criteria; the builder quotes the value, or switches to CHARSET UTF-8
// with literal syntax when it is not ASCII.

func From(v string) Criterion    { return Criterion{Key: "FROM", Value: v} }
func To(v string) Criterion      { return Criterion{Key: "TO", Value: v} }
func Cc(v string) Criterion      { return Criterion{Key: "CC", Value: v} }
func Bcc(v string) Criterion     { return Criterion{Key: "BCC", Value: v} }
func Subject(v string) Criterion { return Criterion{Key: "SUBJECT", Value: v} }
func Body(v string) Criterion    { return Criterion{Key: "BODY", Value: v} }
func Text(v string) Criterion    { return Criterion{Key: "TEXT", Value: v} }
func Keyword(v string) Criterion { return Criterion{Key: "KEYWORD", Value: v} }

// HeaderField matches a specific header field value.
func HeaderField(name, value string) Criterion {
	return Criterion{Key: "HEADER", Value: name, Value2: value}
}

// Date criteria, formatted as D-Mon-YYYY in UTC by the builder.

func Since(t time.Time) Criterion      { return Criterion{Key: "SINCE", Date: t} }
func Before(t time.Time) Criterion     { return Criterion{Key: "BEFORE", Date: t} }
func On(t time.Time) Criterion         { return Criterion{Key: "ON", Date: t} }
func SentSince(t time.Time) Criterion  { return Criterion{Key: "SENTSINCE", Date: t} }
func SentBefore(t time.Time) Criterion { return Criterion{Key: "SENTBEFORE", Date: t} }
func SentOn(t time.Time) Criterion     { return Criterion{Key: "SENTON", Date: t} }

// Size criteria.

func Larger(n uint32) Criterion  { return Criterion{Key: "LARGER", Size: n} }
func Smaller(n uint32) Criterion { return Criterion{Key: "SMALLER", Size: n} }

// UIDSet restricts the search to a UID sequence set.
func UIDSet(set string) Criterion { return Criterion{Key: "UID", Value: set} }

// ModSeqSince matches messages modified since the given mod-sequence
// (CONDSTORE).
func ModSeqSince(v uint64) Criterion {
	return Criterion{Key: "MODSEQ", ModSeq: v}
}

// Combinators.

func Not(c Criterion) Criterion       { return Criterion{Key: "NOT", Sub: []Criterion{c}} }
func Or(a, b Criterion) Criterion     { return Criterion{Key: "OR", Sub: []Criterion{a, b}} }
func Group(cs ...Criterion) Criterion { return Criterion{Key: "GROUP", Sub: cs} }
