package client

import (
	"fmt"

	"wren/command"
	"wren/imap"
	"wren/parser"
)

// OpenBox selects (or examines, when readOnly) a mailbox and returns its
// snapshot. State only changes once the server confirms with a tagged OK; a
// READ-ONLY or READ-WRITE code on that OK overrides the requested mode.
func (s *Session) OpenBox(name string, readOnly bool) (*imap.Mailbox, error) {
	if st := s.State(); st != StateAuthenticated && st != StateSelected {
		return nil, fmt.Errorf("client: cannot select in state %s", st)
	}

	condstore := s.cfg.Extensions.CondStore && s.Capability("CONDSTORE")
	box := &imap.Mailbox{Name: name, ReadOnly: readOnly}

	st, err := s.execute("SELECT", command.Select(name, readOnly, condstore), func(resp any) {
		switch r := resp.(type) {
		case *parser.ExistsResponse:
			box.Messages.Total = r.Count
		case *parser.RecentResponse:
			box.Messages.Recent = r.Count
		case *parser.FlagsResponse:
			box.Flags = r.Flags
		case *parser.StatusResponse:
			if r.Code == nil {
				return
			}
			switch r.Code.Name {
			case "UIDVALIDITY":
				box.UIDValidity = r.Code.Num
			case "UIDNEXT":
				box.UIDNext = r.Code.Num
			case "UNSEEN":
				box.Messages.Unseen = r.Code.Num
			case "PERMANENTFLAGS":
				box.PermanentFlags = r.Code.Flags
			case "HIGHESTMODSEQ":
				box.HighestModSeq = r.Code.ModSeq
			}
		}
	}, 0)
	if err != nil {
		return nil, err
	}

	if st.Code != nil {
		switch st.Code.Name {
		case "READ-ONLY":
			box.ReadOnly = true
		case "READ-WRITE":
			box.ReadOnly = false
		}
	}

	s.mu.Lock()
	s.state = StateSelected
	s.mailbox = box
	s.mu.Unlock()

	return box.Clone(), nil
}

// CloseBox closes the selected mailbox, expunging deleted messages.
func (s *Session) CloseBox() error {
	if err := s.requireSelected("CLOSE"); err != nil {
		return err
	}
	if _, err := s.execute("CLOSE", command.Close(), nil, 0); err != nil {
		return err
	}
	s.setState(StateAuthenticated)
	return nil
}

// Unselect leaves the mailbox without expunging (RFC 3691).
func (s *Session) Unselect() error {
	if err := s.requireSelected("UNSELECT"); err != nil {
		return err
	}
	if !s.Capability("UNSELECT") {
		return s.CloseBox()
	}
	if _, err := s.execute("UNSELECT", command.Unselect(), nil, 0); err != nil {
		return err
	}
	s.setState(StateAuthenticated)
	return nil
}

// List queries mailboxes matching pattern under reference and nests the
// rows into a tree split on each row's delimiter.
func (s *Session) List(reference, pattern string) (map[string]*imap.MailboxNode, error) {
	rows, err := s.listRows(reference, pattern, false)
	if err != nil {
		return nil, err
	}
	return parser.BuildMailboxTree(rows), nil
}

// Lsub is List over the subscription list.
func (s *Session) Lsub(reference, pattern string) (map[string]*imap.MailboxNode, error) {
	rows, err := s.listRows(reference, pattern, true)
	if err != nil {
		return nil, err
	}
	return parser.BuildMailboxTree(rows), nil
}

func (s *Session) listRows(reference, pattern string, lsub bool) ([]imap.MailboxInfo, error) {
	name := "LIST"
	if lsub {
		name = "LSUB"
	}
	var rows []imap.MailboxInfo
	_, err := s.execute(name, command.List(reference, pattern, lsub), func(resp any) {
		if r, ok := resp.(*parser.ListResponse); ok {
			rows = append(rows, r.Info)
		}
	}, 0)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Status queries a mailbox without selecting it.
func (s *Session) Status(name string, items []string) (*imap.MailboxStatus, error) {
	var result *imap.MailboxStatus
	_, err := s.execute("STATUS", command.Status(name, items), func(resp any) {
		if r, ok := resp.(*parser.MailboxStatusResponse); ok {
			st := r.Status
			result = &st
		}
	}, 0)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &imap.ParseError{Err: fmt.Errorf("STATUS completed without data")}
	}
	return result, nil
}

// Search runs UID SEARCH and returns matching UIDs in server order,
// concatenated across multiple untagged SEARCH lines.
func (s *Session) Search(criteria []imap.Criterion) ([]uint32, error) {
	if err := s.requireSelected("SEARCH"); err != nil {
		return nil, err
	}
	cmd, err := command.Search(criteria)
	if err != nil {
		return nil, err
	}
	cmd.Segments[0] = "UID " + cmd.Segments[0]

	uids := []uint32{}
	_, err = s.execute("UID SEARCH", cmd, func(resp any) {
		if r, ok := resp.(*parser.SearchResponse); ok {
			uids = append(uids, r.IDs...)
		}
	}, 0)
	if err != nil {
		return nil, err
	}
	return uids, nil
}

// Fetch retrieves message data for a sequence set.
func (s *Session) Fetch(seq string, opts imap.FetchOptions) ([]imap.Message, error) {
	return s.fetch(seq, opts, false)
}

// FetchUID retrieves message data for a UID set.
func (s *Session) FetchUID(uidSet string, opts imap.FetchOptions) ([]imap.Message, error) {
	return s.fetch(uidSet, opts, true)
}

func (s *Session) fetch(seq string, opts imap.FetchOptions, uid bool) ([]imap.Message, error) {
	if err := s.requireSelected("FETCH"); err != nil {
		return nil, err
	}
	cmd, err := command.Fetch(seq, opts)
	if err != nil {
		return nil, err
	}
	name := "FETCH"
	if uid {
		name = "UID FETCH"
		cmd.Segments[0] = "UID " + cmd.Segments[0]
	}

	var msgs []imap.Message
	_, err = s.execute(name, cmd, func(resp any) {
		if r, ok := resp.(*parser.FetchResponse); ok {
			msgs = append(msgs, r.Message)
		}
	}, 0)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// AddFlags adds flags to the messages in seq.
func (s *Session) AddFlags(seq string, flags []string) error {
	return s.store(seq, imap.AddFlags, flags)
}

// RemoveFlags removes flags from the messages in seq.
func (s *Session) RemoveFlags(seq string, flags []string) error {
	return s.store(seq, imap.RemoveFlags, flags)
}

// SetFlags replaces the flags of the messages in seq.
func (s *Session) SetFlags(seq string, flags []string) error {
	return s.store(seq, imap.ReplaceFlags, flags)
}

func (s *Session) store(seq string, action imap.StoreAction, flags []string) error {
	if err := s.requireSelected("STORE"); err != nil {
		return err
	}
	cmd, err := command.Store(seq, action, flags, false, 0)
	if err != nil {
		return err
	}
	_, err = s.execute("STORE", cmd, nil, 0)
	return err
}

// AppendResult is the UIDPLUS data from a successful APPEND.
type AppendResult struct {
	UIDValidity uint32
	UID         string
}

// Append uploads a message to the named mailbox.
func (s *Session) Append(mailbox string, message []byte, opts imap.AppendOptions) (*AppendResult, error) {
	st, err := s.execute("APPEND", command.Append(mailbox, message, opts), nil, 0)
	if err != nil {
		return nil, err
	}
	result := &AppendResult{}
	if st.Code != nil && st.Code.Name == "APPENDUID" {
		result.UIDValidity = st.Code.UIDValidity
		result.UID = st.Code.DstUIDs
	}
	return result, nil
}

// CopyResult is the UIDPLUS data from a successful COPY or MOVE.
type CopyResult struct {
	UIDValidity uint32
	SourceUIDs  string
	DestUIDs    string
}

// Copy copies the messages in the UID set to another mailbox (UID COPY).
func (s *Session) Copy(uidSet, mailbox string) (*CopyResult, error) {
	return s.copyMove(uidSet, mailbox, false)
}

// Move moves the messages in the UID set to another mailbox (UID MOVE),
// falling back to COPY + STORE \Deleted + EXPUNGE without the MOVE
// capability.
func (s *Session) Move(uidSet, mailbox string) (*CopyResult, error) {
	if !s.Capability("MOVE") {
		result, err := s.Copy(uidSet, mailbox)
		if err != nil {
			return nil, err
		}
		cmd, err := command.Store(uidSet, imap.AddFlags, []string{imap.FlagDeleted}, true, 0)
		if err != nil {
			return nil, err
		}
		cmd.Segments[0] = "UID " + cmd.Segments[0]
		if _, err := s.execute("UID STORE", cmd, nil, 0); err != nil {
			return nil, err
		}
		if err := s.Expunge(); err != nil {
			return nil, err
		}
		return result, nil
	}
	return s.copyMove(uidSet, mailbox, true)
}

func (s *Session) copyMove(uidSet, mailbox string, move bool) (*CopyResult, error) {
	if err := s.requireSelected("COPY"); err != nil {
		return nil, err
	}
	var cmd command.Command
	var err error
	name := "UID COPY"
	if move {
		name = "UID MOVE"
		cmd, err = command.Move(uidSet, mailbox)
	} else {
		cmd, err = command.Copy(uidSet, mailbox)
	}
	if err != nil {
		return nil, err
	}
	cmd.Segments[0] = "UID " + cmd.Segments[0]

	result := &CopyResult{}
	grab := func(code *parser.RespCode) {
		if code != nil && code.Name == "COPYUID" {
			result.UIDValidity = code.UIDValidity
			result.SourceUIDs = code.SrcUIDs
			result.DestUIDs = code.DstUIDs
		}
	}
	st, err := s.execute(name, cmd, func(resp any) {
		if r, ok := resp.(*parser.StatusResponse); ok {
			grab(r.Code)
		}
	}, 0)
	if err != nil {
		return nil, err
	}
	grab(st.Code)
	return result, nil
}

// Expunge permanently removes messages flagged \Deleted.
func (s *Session) Expunge() error {
	if err := s.requireSelected("EXPUNGE"); err != nil {
		return err
	}
	_, err := s.execute("EXPUNGE", command.Expunge(), nil, 0)
	return err
}

// requireSelected guards mailbox-scoped commands.
func (s *Session) requireSelected(name string) error {
	if st := s.State(); st != StateSelected && st != StateIdling {
		return fmt.Errorf("client: %s requires a selected mailbox (state %s)", name, st)
	}
	return nil
}
