package lsp

import (
	"sync"

	"github.com/odvcencio/parsley/editor"
)

// DocumentStore is a thread-safe store of open documents keyed by URI.
type DocumentStore struct {
	documents map[string]*editor.Document
	mu        sync.Mutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*editor.Document),
	}
}

// Set stores doc under uri, replacing any previous document.
func (ds *DocumentStore) Set(uri string, doc *editor.Document) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = doc
}

// With runs fn on the document for uri while holding the store lock. It
// reports false without calling fn if the document is not open.
func (ds *DocumentStore) With(uri string, fn func(*editor.Document)) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	doc, ok := ds.documents[uri]
	if !ok {
		return false
	}
	fn(doc)

	return true
}

// Delete removes the document for uri.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// Len returns the number of open documents.
func (ds *DocumentStore) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	return len(ds.documents)
}
