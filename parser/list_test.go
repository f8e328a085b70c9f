package parser

import (
	"testing"

	"wren/imap"
)

func TestBuildMailboxTree_NestedPath(t *testing.T) {
	rows := []imap.MailboxInfo{
		{Name: "INBOX/Work/Reports", Delimiter: "/", Attributes: []string{"\\HasNoChildren"}},
	}
	tree := BuildMailboxTree(rows)

	inbox := tree["INBOX"]
	if inbox == nil {
		t.Fatal("INBOX missing")
	}
	work := inbox.Children["Work"]
	if work == nil {
		t.Fatal("Work missing")
	}
	reports := work.Children["Reports"]
	if reports == nil {
		t.Fatal("Reports missing")
	}
	if len(reports.Attributes) != 1 || reports.Attributes[0] != "\\HasNoChildren" {
		t.Errorf("attributes: %v", reports.Attributes)
	}
}

func TestBuildMailboxTree_SiblingsShareParent(t *testing.T) {
	rows := []imap.MailboxInfo{
		{Name: "INBOX", Delimiter: "/", Attributes: []string{"\\Unmarked"}},
		{Name: "INBOX/A", Delimiter: "/"},
		{Name: "INBOX/B", Delimiter: "/"},
	}
	tree := BuildMailboxTree(rows)
	inbox := tree["INBOX"]
	if inbox == nil || len(inbox.Children) != 2 {
		t.Fatalf("expected 2 children, got %+v", inbox)
	}
	if len(inbox.Attributes) != 1 || inbox.Attributes[0] != "\\Unmarked" {
		t.Errorf("parent attributes lost: %v", inbox.Attributes)
	}
}

func TestBuildMailboxTree_NilDelimiter(t *testing.T) {
	rows := []imap.MailboxInfo{{Name: "Archive.2024", Delimiter: ""}}
	tree := BuildMailboxTree(rows)
	if tree["Archive.2024"] == nil {
		t.Error("flat name not kept whole without a delimiter")
	}
}

func TestParseList_UTF7Name(t *testing.T) {
	resp, err := Parse(frame(t, "* LIST () \"/\" \"&ZeVnLIqe-\"\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.(*ListResponse).Info.Name; got != "日本語" {
		t.Errorf("got %q", got)
	}
}

func TestParseList_NilDelimiter(t *testing.T) {
	resp, err := Parse(frame(t, "* LIST (\\Noselect) NIL \"\"\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := resp.(*ListResponse).Info
	if info.Delimiter != "" {
		t.Errorf("delimiter: %q", info.Delimiter)
	}
	if len(info.Attributes) != 1 || info.Attributes[0] != "\\Noselect" {
		t.Errorf("attributes: %v", info.Attributes)
	}
}
