package parser

import (
	"reflect"
	"testing"

	"wren/imap"
	"wren/wire"
)

func parseBSString(t *testing.T, s string) *imap.BodyStructure {
	t.Helper()
	line := &wire.Line{Text: s}
	r := newSexpReader(line, 0)
	item, err := r.readItem()
	if err != nil {
		t.Fatalf("sexp error: %v", err)
	}
	list, ok := item.([]any)
	if !ok {
		t.Fatalf("expected list, got %T", item)
	}
	bs, err := parseBodyStructure(list)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return bs
}

func TestBodyStructure_SimpleText(t *testing.T) {
	bs := parseBSString(t, `("TEXT" "PLAIN" ("CHARSET" "US-ASCII") NIL NIL "7BIT" 3028 92)`)
	if bs.Type != "text" || bs.Subtype != "plain" {
		t.Errorf("type: %s/%s", bs.Type, bs.Subtype)
	}
	if bs.Size != 3028 || bs.Lines != 92 {
		t.Errorf("size %d lines %d", bs.Size, bs.Lines)
	}
	if bs.Params["charset"] != "US-ASCII" {
		t.Errorf("params: %v", bs.Params)
	}
}

func TestBodyStructure_MultipartAlternative(t *testing.T) {
	bs := parseBSString(t, `(("TEXT" "PLAIN" ("CHARSET" "utf-8") NIL NIL "7BIT" 23 1 NIL NIL NIL) "ALTERNATIVE" ("BOUNDARY" "x"))`)
	if !bs.Multipart() || bs.Subtype != "alternative" {
		t.Fatalf("got %+v", bs)
	}
	if len(bs.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(bs.Parts))
	}
	child := bs.Parts[0]
	if child.Type != "text" || child.Subtype != "plain" || child.Size != 23 || child.Lines != 1 {
		t.Errorf("child: %+v", child)
	}
	if child.Params["charset"] != "utf-8" {
		t.Errorf("child params: %v", child.Params)
	}
	if bs.Params["boundary"] != "x" {
		t.Errorf("multipart params: %v", bs.Params)
	}
}

func TestBodyStructure_NestedMultipart(t *testing.T) {
	bs := parseBSString(t, `((("TEXT" "PLAIN" NIL NIL NIL "7BIT" 10 1)("TEXT" "HTML" NIL NIL NIL "QUOTED-PRINTABLE" 20 2) "ALTERNATIVE" NIL NIL NIL NIL)("IMAGE" "PNG" NIL NIL NIL "BASE64" 4096 NIL ("ATTACHMENT" ("FILENAME" "a.png")) NIL NIL) "MIXED" ("BOUNDARY" "b"))`)
	if len(bs.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(bs.Parts))
	}
	inner := bs.Parts[0]
	if !inner.Multipart() || inner.Subtype != "alternative" || len(inner.Parts) != 2 {
		t.Errorf("inner: %+v", inner)
	}
	img := bs.Parts[1]
	if img.Type != "image" || img.Encoding != "BASE64" {
		t.Errorf("image part: %+v", img)
	}
	if img.Disposition == nil || img.Disposition.Type != "attachment" || img.Disposition.Params["filename"] != "a.png" {
		t.Errorf("disposition: %+v", img.Disposition)
	}
}

func TestBodyStructure_MessageRFC822(t *testing.T) {
	bs := parseBSString(t, `("MESSAGE" "RFC822" NIL NIL NIL "7BIT" 342 (NIL "fwd" NIL NIL NIL NIL NIL NIL NIL NIL) ("TEXT" "PLAIN" NIL NIL NIL "7BIT" 14 2) 5)`)
	if bs.Type != "message" || bs.Subtype != "rfc822" {
		t.Fatalf("type: %s/%s", bs.Type, bs.Subtype)
	}
	if bs.Envelope == nil || bs.Envelope.Subject != "fwd" {
		t.Errorf("envelope: %+v", bs.Envelope)
	}
	if bs.Message == nil || bs.Message.Type != "text" {
		t.Errorf("nested: %+v", bs.Message)
	}
	if bs.Lines != 5 {
		t.Errorf("lines: %d", bs.Lines)
	}
}

func TestBodyStructure_SerializeReparse(t *testing.T) {
	inputs := []string{
		`("TEXT" "PLAIN" ("CHARSET" "utf-8") NIL NIL "7BIT" 23 1)`,
		`(("TEXT" "PLAIN" ("CHARSET" "utf-8") NIL NIL "7BIT" 23 1) "ALTERNATIVE" ("BOUNDARY" "x"))`,
		`("APPLICATION" "PDF" ("NAME" "doc.pdf") "<cid>" "desc" "BASE64" 99999 "md5sum" ("ATTACHMENT" ("FILENAME" "doc.pdf")) "en" "http://x")`,
	}
	for _, in := range inputs {
		first := parseBSString(t, in)
		second := parseBSString(t, FormatBodyStructure(first))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("round trip changed tree for %s:\nfirst:  %+v\nsecond: %+v", in, first, second)
		}
	}
}
