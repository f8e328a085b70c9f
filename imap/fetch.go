package imap

// FetchOptions selects the data items for a FETCH. UID and FLAGS are always
// requested. Bodies holds section specs such as "", "HEADER", "TEXT",
// "HEADER.FIELDS (FROM SUBJECT DATE)" or "1.2"; they map to BODY.PEEK[spec]
// unless MarkSeen is set.
type FetchOptions struct {
	Bodies       []string
	Struct       bool
	Envelope     bool
	Size         bool
	InternalDate bool
	MarkSeen     bool
	ModSeq       bool
	ChangedSince uint64 // CONDSTORE CHANGEDSINCE modifier, 0 disables
}

// StoreAction is the flag mutation kind for STORE.
type StoreAction string

const (
	AddFlags     StoreAction = "+FLAGS"
	RemoveFlags  StoreAction = "-FLAGS"
	ReplaceFlags StoreAction = "FLAGS"
)

// AppendOptions carries the optional APPEND arguments.
type AppendOptions struct {
	Flags        []string
	InternalDate string // rendered date-time, empty omits it
}
