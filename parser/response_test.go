package parser

import (
	"testing"

	"wren/wire"
)

func frame(t *testing.T, raw string) *wire.Line {
	t.Helper()
	f := wire.NewFramer()
	f.Append([]byte(raw))
	line, err := f.Next()
	if err != nil {
		t.Fatalf("framing %q: %v", raw, err)
	}
	return line
}

func TestParse_TaggedOK(t *testing.T) {
	resp, err := Parse(frame(t, "A0001 OK LOGIN completed\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, ok := resp.(*StatusResponse)
	if !ok {
		t.Fatalf("expected StatusResponse, got %T", resp)
	}
	if st.Tag != "A0001" || st.Status != StatusOK || st.Text != "LOGIN completed" {
		t.Errorf("got %+v", st)
	}
}

func TestParse_TaggedNoWithCode(t *testing.T) {
	resp, err := Parse(frame(t, "A0002 NO [TRYCREATE] no such mailbox\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*StatusResponse)
	if st.Status != StatusNo || st.Code == nil || st.Code.Name != "TRYCREATE" {
		t.Errorf("got %+v", st)
	}
}

func TestParse_Continuation(t *testing.T) {
	resp, err := Parse(frame(t, "+ Ready for literal data\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cont, ok := resp.(*ContinuationRequest)
	if !ok {
		t.Fatalf("expected ContinuationRequest, got %T", resp)
	}
	if cont.Text != "Ready for literal data" {
		t.Errorf("got %q", cont.Text)
	}
}

func TestParse_UntaggedExists(t *testing.T) {
	resp, err := Parse(frame(t, "* 23 EXISTS\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e, ok := resp.(*ExistsResponse); !ok || e.Count != 23 {
		t.Errorf("got %#v", resp)
	}
}

func TestParse_UntaggedExpunge(t *testing.T) {
	resp, err := Parse(frame(t, "* 4 EXPUNGE\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e, ok := resp.(*ExpungeResponse); !ok || e.SeqNum != 4 {
		t.Errorf("got %#v", resp)
	}
}

func TestParse_UIDValidityCode(t *testing.T) {
	resp, err := Parse(frame(t, "* OK [UIDVALIDITY 3857529045] UIDs valid\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*StatusResponse)
	if st.Code == nil || st.Code.Name != "UIDVALIDITY" || st.Code.Num != 3857529045 {
		t.Errorf("got %+v", st.Code)
	}
}

func TestParse_PermanentFlagsCode(t *testing.T) {
	resp, err := Parse(frame(t, "* OK [PERMANENTFLAGS (\\Deleted \\Seen \\*)] Limited\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*StatusResponse)
	if st.Code == nil || len(st.Code.Flags) != 3 || st.Code.Flags[0] != "\\Deleted" {
		t.Errorf("got %+v", st.Code)
	}
}

func TestParse_HighestModSeqCode(t *testing.T) {
	resp, err := Parse(frame(t, "* OK [HIGHESTMODSEQ 715194045007] ok\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*StatusResponse)
	if st.Code == nil || st.Code.ModSeq != 715194045007 {
		t.Errorf("got %+v", st.Code)
	}
}

func TestParse_AppendUIDCode(t *testing.T) {
	resp, err := Parse(frame(t, "A003 OK [APPENDUID 38505 3955] APPEND completed\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*StatusResponse)
	if st.Code.UIDValidity != 38505 || st.Code.DstUIDs != "3955" {
		t.Errorf("got %+v", st.Code)
	}
}

func TestParse_CopyUIDCode(t *testing.T) {
	resp, err := Parse(frame(t, "A004 OK [COPYUID 38505 304,319:320 3956:3958] done\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*StatusResponse)
	if st.Code.UIDValidity != 38505 || st.Code.SrcUIDs != "304,319:320" || st.Code.DstUIDs != "3956:3958" {
		t.Errorf("got %+v", st.Code)
	}
}

func TestParse_Capability(t *testing.T) {
	resp, err := Parse(frame(t, "* CAPABILITY IMAP4rev1 STARTTLS IDLE UIDPLUS\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	caps := resp.(*CapabilityResponse).Caps
	if len(caps) != 4 || caps[1] != "STARTTLS" {
		t.Errorf("got %v", caps)
	}
}

func TestParse_Search(t *testing.T) {
	resp, err := Parse(frame(t, "* SEARCH 2 84 882\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := resp.(*SearchResponse).IDs
	if len(ids) != 3 || ids[0] != 2 || ids[2] != 882 {
		t.Errorf("got %v", ids)
	}
}

func TestParse_SearchEmpty(t *testing.T) {
	resp, err := Parse(frame(t, "* SEARCH\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := resp.(*SearchResponse).IDs; len(ids) != 0 {
		t.Errorf("expected empty result, got %v", ids)
	}
}

func TestParse_List(t *testing.T) {
	resp, err := Parse(frame(t, "* LIST (\\HasNoChildren) \"/\" \"INBOX/Work/Reports\"\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := resp.(*ListResponse)
	if l.Info.Name != "INBOX/Work/Reports" || l.Info.Delimiter != "/" {
		t.Errorf("got %+v", l.Info)
	}
	if len(l.Info.Attributes) != 1 || l.Info.Attributes[0] != "\\HasNoChildren" {
		t.Errorf("got attributes %v", l.Info.Attributes)
	}
}

func TestParse_Status(t *testing.T) {
	resp, err := Parse(frame(t, "* STATUS \"INBOX\" (MESSAGES 231 UIDNEXT 44292 UNSEEN 4)\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*MailboxStatusResponse).Status
	if st.Name != "INBOX" || st.Messages != 231 || st.UIDNext != 44292 || st.Unseen != 4 {
		t.Errorf("got %+v", st)
	}
}

func TestParse_Flags(t *testing.T) {
	resp, err := Parse(frame(t, "* FLAGS (\\Answered \\Flagged \\Deleted \\Seen \\Draft)\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fl := resp.(*FlagsResponse).Flags
	if len(fl) != 5 || fl[4] != "\\Draft" {
		t.Errorf("got %v", fl)
	}
}

func TestParse_Bye(t *testing.T) {
	resp, err := Parse(frame(t, "* BYE Autologout; idle for too long\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := resp.(*StatusResponse)
	if st.Status != StatusBye || st.Tag != "" {
		t.Errorf("got %+v", st)
	}
}

func TestParse_UnknownUntaggedPreserved(t *testing.T) {
	raw := "* XAPPLEPUSH something proprietary\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unknown untagged response must not error: %v", err)
	}
	u, ok := resp.(*UnknownResponse)
	if !ok {
		t.Fatalf("expected UnknownResponse, got %T", resp)
	}
	if u.Raw != "* XAPPLEPUSH something proprietary" {
		t.Errorf("raw not preserved: %q", u.Raw)
	}
}

func TestParse_ID(t *testing.T) {
	resp, err := Parse(frame(t, "* ID (\"name\" \"Dovecot\" \"version\" \"2.3\")\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := resp.(*IDResponse)
	if id.Fields["name"] != "Dovecot" || id.Fields["version"] != "2.3" {
		t.Errorf("got %v", id.Fields)
	}
}
