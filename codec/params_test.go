package codec

import "testing"

func TestParseParams_ContentType(t *testing.T) {
	main, params := ParseParams(`text/plain; charset="utf-8"; name=x`)
	if main != "text/plain" {
		t.Errorf("expected text/plain, got %q", main)
	}
	if params["charset"] != "utf-8" {
		t.Errorf("expected charset utf-8, got %q", params["charset"])
	}
	if params["name"] != "x" {
		t.Errorf("expected name x, got %q", params["name"])
	}
}

func TestParseParams_NoParams(t *testing.T) {
	main, params := ParseParams("message/rfc822")
	if main != "message/rfc822" {
		t.Errorf("got %q", main)
	}
	if len(params) != 0 {
		t.Errorf("expected no params, got %v", params)
	}
}

func TestParseParams_QuotedSemicolon(t *testing.T) {
	_, params := ParseParams(`application/octet-stream; name="a;b.bin"`)
	if params["name"] != "a;b.bin" {
		t.Errorf("quoted semicolon mishandled: %q", params["name"])
	}
}
