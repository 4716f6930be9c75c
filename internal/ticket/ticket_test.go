package ticket

import (
	"bytes"
	"testing"
)

func TestNewCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		c := NewCode()
		if seen[c] {
			t.Fatalf("duplicate code %s", c)
		}
		seen[c] = true
	}
}

func TestPNG(t *testing.T) {
	png, err := PNG(NewCode(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("not a png")
	}
	if _, err := PNG("", 128); err == nil {
		t.Fatal("expected error for empty code")
	}
}
