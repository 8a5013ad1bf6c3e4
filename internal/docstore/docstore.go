// Package docstore tracks the open SQL documents delivered by the host
// editor, keyed by URI, together with the range arithmetic needed for
// selection-scoped analysis.
package docstore

import (
	"strings"
	"sync"
)

// Position is a zero-based line/character position inside a document.
// Characters are counted in runes within the line.
type Position struct {
	Line      uint32
	Character uint32
}

// Range is a half-open [Start, End) span inside a document.
type Range struct {
	Start Position
	End   Position
}

// Empty reports whether the range selects no text.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Document is the editor-owned state the analysis core reads: a stable
// key (the URI), a host-supplied monotonically increasing version, the
// declared language, and the full text.
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string
}

// Key returns the stable identity of the document.
func (d Document) Key() string {
	return d.URI
}

// Slice returns the text covered by the given range. It reports false
// when the range falls outside the document.
func (d Document) Slice(r Range) (string, bool) {
	if r.End.Line < r.Start.Line || (r.End.Line == r.Start.Line && r.End.Character < r.Start.Character) {
		return "", false
	}

	lines := strings.Split(d.Text, "\n")
	if int(r.Start.Line) >= len(lines) || int(r.End.Line) >= len(lines) {
		return "", false
	}

	if r.Start.Line == r.End.Line {
		return sliceLine(lines[r.Start.Line], r.Start.Character, r.End.Character)
	}

	first, ok := sliceLine(lines[r.Start.Line], r.Start.Character, uint32(len([]rune(lines[r.Start.Line]))))
	if !ok {
		return "", false
	}

	last, ok := sliceLine(lines[r.End.Line], 0, r.End.Character)
	if !ok {
		return "", false
	}

	parts := make([]string, 0, r.End.Line-r.Start.Line+1)
	parts = append(parts, first)
	parts = append(parts, lines[r.Start.Line+1:r.End.Line]...)
	parts = append(parts, last)

	return strings.Join(parts, "\n"), true
}

func sliceLine(line string, from, to uint32) (string, bool) {
	runes := []rune(line)
	if int(from) > len(runes) || int(to) > len(runes) || from > to {
		return "", false
	}

	return string(runes[from:to]), true
}

// Store is a thread-safe store for open documents keyed by URI.
type Store struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{docs: make(map[string]Document)}
}

// Open records a freshly opened document.
func (s *Store) Open(uri, languageID string, version int32, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[uri] = Document{URI: uri, LanguageID: languageID, Version: version, Text: text}
}

// Update replaces the text and version of an open document. An update
// for an unknown URI is recorded as an open with no language ID.
func (s *Store) Update(uri string, version int32, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[uri]
	doc.URI = uri
	doc.Version = version
	doc.Text = text
	s.docs[uri] = doc
}

// Get retrieves a document by URI.
func (s *Store) Get(uri string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]

	return doc, ok
}

// Close removes a document by URI.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, uri)
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}
