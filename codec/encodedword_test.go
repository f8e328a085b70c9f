package codec

import "testing"

func TestDecodeHeaderValue_QEncoding(t *testing.T) {
	got := DecodeHeaderValue("=?utf-8?Q?caf=C3=A9?=")
	if got != "café" {
		t.Errorf("expected café, got %q", got)
	}
}

func TestDecodeHeaderValue_BEncoding(t *testing.T) {
	got := DecodeHeaderValue("=?utf-8?B?SGVsbG8sIElNQVA=?=")
	if got != "Hello, IMAP" {
		t.Errorf("expected Hello, IMAP, got %q", got)
	}
}

func TestDecodeHeaderValue_AdjacentWords(t *testing.T) {
	// Whitespace between two encoded words is dropped.
	got := DecodeHeaderValue("=?utf-8?Q?Hello?= =?utf-8?Q?World?=")
	if got != "HelloWorld" {
		t.Errorf("expected HelloWorld, got %q", got)
	}
}

func TestDecodeHeaderValue_MixedLiteral(t *testing.T) {
	got := DecodeHeaderValue("Re: =?utf-8?Q?caf=C3=A9?= meeting")
	if got != "Re: café meeting" {
		t.Errorf("got %q", got)
	}
}

func TestDecodeHeaderValue_UnderscoreIsSpace(t *testing.T) {
	got := DecodeHeaderValue("=?utf-8?Q?a_b?=")
	if got != "a b" {
		t.Errorf("expected a b, got %q", got)
	}
}

func TestDecodeHeaderValue_ISO8859(t *testing.T) {
	// 0xE9 is é in latin-1.
	got := DecodeHeaderValue("=?iso-8859-1?Q?caf=E9?=")
	if got != "café" {
		t.Errorf("expected café, got %q", got)
	}
}

func TestDecodeHeaderValue_UnknownCharset(t *testing.T) {
	got := DecodeHeaderValue("=?x-unknown-charset?Q?abc?=")
	if got != "abc" {
		t.Errorf("expected passthrough abc, got %q", got)
	}
}

func TestDecodeHeaderValue_Malformed(t *testing.T) {
	inputs := []string{
		"=?utf-8?Q?unterminated",
		"=?utf-8?X?badenc?=",
		"plain =? text",
	}
	for _, in := range inputs {
		if got := DecodeHeaderValue(in); got != in {
			t.Errorf("malformed input %q changed to %q", in, got)
		}
	}
}

func TestDecodeHeaderValue_QuestionMarkInText(t *testing.T) {
	got := DecodeHeaderValue("=?utf-8?Q?really=3F?=")
	if got != "really?" {
		t.Errorf("expected really?, got %q", got)
	}
}
