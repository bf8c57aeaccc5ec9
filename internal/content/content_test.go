package content

import (
	"strings"
	"testing"
)

func TestPutValidation(t *testing.T) {
	s := NewStore()

	if err := s.Put(0, "text"); err == nil {
		t.Error("expected error for page 0")
	}
	if err := s.Put(-3, "text"); err == nil {
		t.Error("expected error for negative page")
	}
	if err := s.Put(1, "text"); err != nil {
		t.Errorf("Put(1): %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 page, got %d", s.Len())
	}
}

func TestPutSkipsBlankPages(t *testing.T) {
	s := NewStore()

	if err := s.Put(1, ""); err != nil {
		t.Fatalf("Put empty: %v", err)
	}
	if err := s.Put(2, "   \n\t "); err != nil {
		t.Fatalf("Put whitespace: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("blank pages should not be stored, got %d pages", s.Len())
	}
	if s.All() != "" {
		t.Errorf("expected empty concatenation, got %q", s.All())
	}
}

func TestPutOverwrites(t *testing.T) {
	s := NewStore()
	_ = s.Put(1, "first")
	_ = s.Put(1, "second")

	if s.Text(1) != "second" {
		t.Errorf("expected overwritten text, got %q", s.Text(1))
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 page after overwrite, got %d", s.Len())
	}
}

func TestAllOrdersByPageNumber(t *testing.T) {
	s := NewStore()
	// Insert out of order.
	_ = s.Put(3, "three")
	_ = s.Put(1, "one")
	_ = s.Put(2, "two")

	want := "one\n\ntwo\n\nthree"
	if got := s.All(); got != want {
		t.Errorf("All() = %q, want %q", got, want)
	}

	pages := s.Pages()
	if len(pages) != 3 || pages[0] != 1 || pages[1] != 2 || pages[2] != 3 {
		t.Errorf("Pages() = %v, want [1 2 3]", pages)
	}
}

func TestAllTruncates(t *testing.T) {
	s := NewStore()
	_ = s.Put(1, strings.Repeat("a", MaxContextChars))
	_ = s.Put(2, strings.Repeat("b", 100))

	got := s.All()
	if len([]rune(got)) != MaxContextChars {
		t.Errorf("expected %d runes, got %d", MaxContextChars, len([]rune(got)))
	}
	if strings.Contains(got, "b") {
		t.Error("truncated output should not contain page 2 text")
	}
}

func TestCustomLimit(t *testing.T) {
	s := NewStoreWithLimit(5)
	_ = s.Put(1, "abcdefghij")

	if got := s.All(); got != "abcde" {
		t.Errorf("All() = %q, want %q", got, "abcde")
	}

	// Non-positive limits fall back to the default.
	s = NewStoreWithLimit(0)
	_ = s.Put(1, strings.Repeat("a", MaxContextChars+10))
	if n := len([]rune(s.All())); n != MaxContextChars {
		t.Errorf("expected default cap %d, got %d", MaxContextChars, n)
	}
}
