// Package imap holds the protocol data model shared by the parser, the
// command builder and the session engine.
package imap

import "time"

// Standard system flags, RFC 3501 section 2.3.2.
const (
	FlagSeen     = "\\Seen"
	FlagAnswered = "\\Answered"
	FlagFlagged  = "\\Flagged"
	FlagDeleted  = "\\Deleted"
	FlagDraft    = "\\Draft"
	FlagRecent   = "\\Recent"
)

// Address is a single envelope address.
type Address struct {
	Name    string
	Mailbox string
	Host    string
}

// String renders the address as mailbox@host, with the display name if set.
func (a Address) String() string {
	addr := a.Mailbox + "@" + a.Host
	if a.Name != "" {
		return a.Name + " <" + addr + ">"
	}
	return addr
}

// Envelope is the parsed ENVELOPE fetch item.
type Envelope struct {
	Date      string
	Subject   string
	From      []Address
	Sender    []Address
	ReplyTo   []Address
	To        []Address
	Cc        []Address
	Bcc       []Address
	InReplyTo string
	MessageID string
}

// Disposition is the Content-Disposition of a body part.
type Disposition struct {
	Type   string
	Params map[string]string
}

// BodyStructure is one node of the BODYSTRUCTURE tree. A node with Parts is
// a multipart; otherwise the basic fields apply. For message/rfc822 parts the
// nested Envelope and Message fields are set.
type BodyStructure struct {
	Type        string
	Subtype     string
	Params      map[string]string
	ID          string
	Description string
	Encoding    string
	Size        uint32
	Lines       uint32

	MD5         string
	Disposition *Disposition
	Language    []string
	Location    string

	Envelope *Envelope      // message/rfc822 only
	Message  *BodyStructure // message/rfc822 only

	Parts []*BodyStructure // multipart only
}

// Multipart reports whether the node is a multipart container.
func (bs *BodyStructure) Multipart() bool {
	return len(bs.Parts) > 0
}

// MessageCounts are the per-mailbox message counters.
type MessageCounts struct {
	Total  uint32
	Recent uint32
	Unseen uint32
}

// Mailbox is a snapshot of the selected mailbox state.
type Mailbox struct {
	Name           string
	ReadOnly       bool
	UIDValidity    uint32
	UIDNext        uint32
	Flags          []string
	PermanentFlags []string
	Messages       MessageCounts
	HighestModSeq  uint64
}

// Clone returns an independent copy of the snapshot.
func (m *Mailbox) Clone() *Mailbox {
	c := *m
	c.Flags = append([]string(nil), m.Flags...)
	c.PermanentFlags = append([]string(nil), m.PermanentFlags...)
	return &c
}

// MailboxInfo is one LIST or LSUB reply row.
type MailboxInfo struct {
	Name       string
	Attributes []string
	Delimiter  string
}

// MailboxNode is one node of the mailbox tree, keyed by path component.
type MailboxNode struct {
	Attributes []string
	Delimiter  string
	Children   map[string]*MailboxNode
}

// MailboxStatus is the result of a STATUS command.
type MailboxStatus struct {
	Name          string
	Messages      uint32
	Recent        uint32
	Unseen        uint32
	UIDNext       uint32
	UIDValidity   uint32
	HighestModSeq uint64
}

// MessagePart is one fetched BODY[...] section.
type MessagePart struct {
	Section string
	Size    int
	Body    []byte
}

// Message is one FETCH result. Parts holds the requested body sections in
// the order the server returned them.
type Message struct {
	SeqNum        uint32
	UID           uint32
	Flags         []string
	Size          uint32
	InternalDate  time.Time
	ModSeq        uint64
	Envelope      *Envelope
	BodyStructure *BodyStructure
	Parts         []MessagePart
}

// Part returns the body of the section with the given canonical key, or nil.
func (m *Message) Part(section string) []byte {
	for _, p := range m.Parts {
		if p.Section == section {
			return p.Body
		}
	}
	return nil
}

// HasFlag reports whether the message carries the given flag.
func (m *Message) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
