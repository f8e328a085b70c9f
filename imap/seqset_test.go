package imap

import "testing"

func TestValidSeqSet_Accepts(t *testing.T) {
	for _, s := range []string{"1", "1:5", "1,3,5", "559:*", "*", "1:3,7,9:*"} {
		if !ValidSeqSet(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
}

func TestValidSeqSet_Rejects(t *testing.T) {
	for _, s := range []string{"", "1;2", "a:b", "1 2", "-1"} {
		if ValidSeqSet(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestSeqSetFromUIDs_CollapsesRuns(t *testing.T) {
	got := SeqSetFromUIDs([]uint32{1, 2, 3, 7, 9, 10})
	if got != "1:3,7,9:10" {
		t.Errorf("got %q", got)
	}
}

func TestSeqSetFromUIDs_Single(t *testing.T) {
	if got := SeqSetFromUIDs([]uint32{42}); got != "42" {
		t.Errorf("got %q", got)
	}
}

func TestSeqSetFromUIDs_Empty(t *testing.T) {
	if got := SeqSetFromUIDs(nil); got != "" {
		t.Errorf("got %q", got)
	}
}
