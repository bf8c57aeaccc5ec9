// Package content holds the extracted source text a viva is conducted
// against, keyed by page number.
package content

import (
	"fmt"
	"sort"
	"strings"
)

// MaxContextChars caps the concatenated text handed to the question
// generator so it fits the model's context window.
const MaxContextChars = 6000

// Store maps page numbers to extracted page text.
type Store struct {
	pages map[int]string
	limit int
}

// NewStore returns an empty content store with the default context cap.
func NewStore() *Store {
	return NewStoreWithLimit(MaxContextChars)
}

// NewStoreWithLimit returns an empty content store capping All output at
// the given number of runes. A non-positive limit falls back to the
// default.
func NewStoreWithLimit(limit int) *Store {
	if limit <= 0 {
		limit = MaxContextChars
	}
	return &Store{pages: make(map[int]string), limit: limit}
}

// Put inserts or overwrites a page's text. Whitespace-only text is
// skipped entirely; a blank page is never stored.
func (s *Store) Put(page int, text string) error {
	if page < 1 {
		return fmt.Errorf("page number must be positive, got %d", page)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.pages[page] = text
	return nil
}

// Len returns the number of stored pages.
func (s *Store) Len() int {
	return len(s.pages)
}

// Pages returns the stored page numbers in ascending order.
func (s *Store) Pages() []int {
	nums := make([]int, 0, len(s.pages))
	for n := range s.pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Text returns the stored text for a page, or "" if the page is absent.
func (s *Store) Text(page int) string {
	return s.pages[page]
}

// All concatenates all stored pages in ascending page order, truncated
// to the store's rune limit.
func (s *Store) All() string {
	var sb strings.Builder
	for i, n := range s.Pages() {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s.pages[n])
	}
	text := sb.String()
	runes := []rune(text)
	if len(runes) > s.limit {
		return string(runes[:s.limit])
	}
	return text
}
