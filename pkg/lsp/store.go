package lsp

import (
	"sync"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
)

// document is one open file and the occurrences of its last successful parse.
type document struct {
	text        string
	occurrences []lvar.Occurrence
}

// DocumentStore is a thread-safe store of open documents keyed by URI.
type DocumentStore struct {
	documents map[string]*document
	mu        sync.RWMutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*document),
	}
}

// Set stores document text for uri. Occurrences above the first changed line
// are kept until SetOccurrences replaces them, so a file that stops parsing
// while being edited still highlights. Occurrences from that line down may
// have moved and are dropped.
func (ds *DocumentStore) Set(uri, text string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	doc, ok := ds.documents[uri]
	if !ok {
		ds.documents[uri] = &document{text: text}

		return
	}

	if doc.text != text {
		doc.occurrences = above(doc.occurrences, firstChangedLine(doc.text, text))
	}

	doc.text = text
}

// above returns the occurrences on lines before line.
func above(occs []lvar.Occurrence, line int) []lvar.Occurrence {
	kept := make([]lvar.Occurrence, 0, len(occs))

	for _, occ := range occs {
		if occ.Line < line {
			kept = append(kept, occ)
		}
	}

	return kept
}

// SetOccurrences records the occurrences extracted from uri's current text.
func (ds *DocumentStore) SetOccurrences(uri string, occs []lvar.Occurrence) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if doc, ok := ds.documents[uri]; ok {
		doc.occurrences = occs
	}
}

// Get retrieves document text by URI.
func (ds *DocumentStore) Get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]
	if !ok {
		return "", false
	}

	return doc.text, true
}

// Occurrences returns the occurrences recorded for uri.
func (ds *DocumentStore) Occurrences(uri string) []lvar.Occurrence {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if doc, ok := ds.documents[uri]; ok {
		return doc.occurrences
	}

	return nil
}

// Delete removes the document.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}
