package parser

import (
	"bytes"
	"strconv"
	"testing"
	"time"
)

func TestParseFetch_Basic(t *testing.T) {
	raw := "* 12 FETCH (UID 4827 FLAGS (\\Seen) RFC822.SIZE 4286 INTERNALDATE \"17-Jul-1996 02:44:25 -0700\")\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, ok := resp.(*FetchResponse)
	if !ok {
		t.Fatalf("expected FetchResponse, got %T", resp)
	}
	msg := f.Message
	if msg.SeqNum != 12 || msg.UID != 4827 || msg.Size != 4286 {
		t.Errorf("got %+v", msg)
	}
	if len(msg.Flags) != 1 || msg.Flags[0] != "\\Seen" {
		t.Errorf("flags: %v", msg.Flags)
	}
	want := time.Date(1996, 7, 17, 2, 44, 25, 0, time.FixedZone("", -7*3600))
	if !msg.InternalDate.Equal(want) {
		t.Errorf("internal date: %v", msg.InternalDate)
	}
}

func TestParseFetch_BodySectionLiteral(t *testing.T) {
	body := "From: alice@example.org\r\nSubject: hi\r\n\r\n"
	raw := "* 1 FETCH (UID 7 BODY[HEADER] {" + strconv.Itoa(len(body)) + "}\r\n" + body + ")\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := resp.(*FetchResponse).Message
	if len(msg.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(msg.Parts))
	}
	if msg.Parts[0].Section != "HEADER" {
		t.Errorf("section: %q", msg.Parts[0].Section)
	}
	if !bytes.Equal(msg.Parts[0].Body, []byte(body)) {
		t.Errorf("body not verbatim: %q", msg.Parts[0].Body)
	}
}

func TestParseFetch_MultipleSections(t *testing.T) {
	raw := "* 2 FETCH (UID 9 BODY[1] {2}\r\nab BODY[2] {3}\r\nxyz)\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := resp.(*FetchResponse).Message
	if len(msg.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(msg.Parts))
	}
	if string(msg.Part("1")) != "ab" || string(msg.Part("2")) != "xyz" {
		t.Errorf("parts: %+v", msg.Parts)
	}
}

func TestParseFetch_HeaderFieldsSectionKey(t *testing.T) {
	raw := "* 3 FETCH (BODY[HEADER.FIELDS (FROM SUBJECT DATE)] {4}\r\nhdrs)\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := resp.(*FetchResponse).Message
	if len(msg.Parts) != 1 || msg.Parts[0].Section != "HEADER.FIELDS (FROM SUBJECT DATE)" {
		t.Errorf("parts: %+v", msg.Parts)
	}
}

func TestParseFetch_Envelope(t *testing.T) {
	raw := "* 5 FETCH (ENVELOPE (\"Mon, 7 Feb 1994 21:52:25 -0800\" \"subject here\" " +
		"((\"Alice\" NIL \"alice\" \"example.org\")) NIL NIL " +
		"((NIL NIL \"bob\" \"example.net\")) NIL NIL NIL \"<id@host>\"))\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := resp.(*FetchResponse).Message.Envelope
	if env == nil {
		t.Fatal("envelope missing")
	}
	if env.Subject != "subject here" || env.MessageID != "<id@host>" {
		t.Errorf("got %+v", env)
	}
	if len(env.From) != 1 || env.From[0].Mailbox != "alice" || env.From[0].Host != "example.org" {
		t.Errorf("from: %+v", env.From)
	}
	if len(env.To) != 1 || env.To[0].Mailbox != "bob" {
		t.Errorf("to: %+v", env.To)
	}
}

func TestParseFetch_EncodedSubjectDecoded(t *testing.T) {
	raw := "* 6 FETCH (ENVELOPE (NIL \"=?utf-8?Q?caf=C3=A9?=\" NIL NIL NIL NIL NIL NIL NIL NIL))\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := resp.(*FetchResponse).Message.Envelope
	if env.Subject != "café" {
		t.Errorf("subject: %q", env.Subject)
	}
}

func TestParseFetch_ModSeq(t *testing.T) {
	raw := "* 7 FETCH (UID 30 MODSEQ (624140003) FLAGS (\\Seen))\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := resp.(*FetchResponse).Message
	if msg.ModSeq != 624140003 {
		t.Errorf("modseq: %d", msg.ModSeq)
	}
}

func TestParseFetch_EmptyLiteralSection(t *testing.T) {
	raw := "* 8 FETCH (BODY[TEXT] {0}\r\n)\r\n"
	resp, err := Parse(frame(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := resp.(*FetchResponse).Message
	if len(msg.Parts) != 1 || msg.Parts[0].Body == nil && len(msg.Parts[0].Body) != 0 {
		t.Fatalf("parts: %+v", msg.Parts)
	}
	if len(msg.Parts[0].Body) != 0 {
		t.Errorf("expected empty body")
	}
}
