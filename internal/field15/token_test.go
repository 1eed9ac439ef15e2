package field15

import "testing"

func TestTokenStreamCursor(t *testing.T) {
	tokens := []Token{
		{Text: "N0450F350", Start: 0, End: 9},
		{Text: "DCT", Start: 10, End: 13},
		{Text: "ABC", Start: 14, End: 17},
	}
	ts := NewTokenStream(tokens)

	if ts.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ts.Len())
	}
	if ts.Pos() != -1 {
		t.Fatalf("initial Pos() = %d, want -1", ts.Pos())
	}
	if !ts.HasNext() {
		t.Fatalf("HasNext() = false before any Next()")
	}

	first := ts.Next()
	if first.Text != "N0450F350" {
		t.Fatalf("first Next() = %q, want N0450F350", first.Text)
	}
	if ts.Current().Text != first.Text {
		t.Fatalf("Current() does not match last Next()")
	}
	if ts.Peek(1).Text != "DCT" {
		t.Fatalf("Peek(1) = %q, want DCT", ts.Peek(1).Text)
	}

	ts.Next()
	ts.Next()
	if ts.HasNext() {
		t.Fatalf("HasNext() = true after exhausting stream")
	}
	if !ts.Next().IsNone() {
		t.Fatalf("Next() past end should return NoToken")
	}

	if ts.First().Text != "N0450F350" {
		t.Fatalf("First() = %q", ts.First().Text)
	}
	if ts.Last().Text != "ABC" {
		t.Fatalf("Last() = %q", ts.Last().Text)
	}
}

func TestTokenStreamEmpty(t *testing.T) {
	ts := NewTokenStream(nil)
	if ts.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", ts.Len())
	}
	if !ts.First().IsNone() {
		t.Fatalf("First() on empty stream should be NoToken")
	}
	if !ts.Last().IsNone() {
		t.Fatalf("Last() on empty stream should be NoToken")
	}
}

func TestTokenStreamSlice(t *testing.T) {
	ts := Tokenize("C/PNT/N0100F110F220")
	if got := ts.Slice(0, 5); got != "C/PNT" {
		t.Fatalf("Slice(0,5) = %q, want C/PNT", got)
	}
	if got := ts.Slice(0, 1000); got != "C/PNT/N0100F110F220" {
		t.Fatalf("Slice clamps to source length, got %q", got)
	}
	if got := ts.Slice(5, 2); got != "" {
		t.Fatalf("Slice with start >= end should be empty, got %q", got)
	}
}
