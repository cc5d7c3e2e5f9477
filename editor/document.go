// Package editor holds open documents: their text, the current syntax tree
// and the edit history. Every edit, undo and redo is an incremental
// reparse of the previous tree.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/odvcencio/parsley/grammars"
)

// ErrOutOfRange is returned for edits that fall outside the document.
var ErrOutOfRange = errors.New("editor: edit out of range")

// Range represents a byte range [Start, End) within document text.
type Range struct {
	Start, End int
}

// editOp records a single edit for undo/redo support.
type editOp struct {
	offset  int
	oldText string
	newText string
}

// Document manages the text and syntax tree of a single source file. It is
// not safe for concurrent use.
type Document struct {
	path      string // absolute path, or "" if untitled
	text      string
	savedText string
	undoStack []editOp
	redoStack []editOp

	lang   *gotreesitter.Language
	parser *gotreesitter.Parser
	tree   *gotreesitter.Tree
	stats  gotreesitter.ParseStats
	logger *slog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithLogger routes parser recovery events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDocument parses text with lang.
func NewDocument(lang *gotreesitter.Language, text string, opts ...Option) *Document {
	d := &Document{lang: lang, parser: gotreesitter.NewParser(lang)}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger != nil {
		d.parser.SetLogger(d.logger)
	}
	d.reset(text)
	return d
}

// OpenDocument reads the file at path and parses it with the language
// registered for its extension, falling back to Parsley.
func OpenDocument(path string, opts ...Option) (*Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("editor: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("editor: %w", err)
	}
	lang := grammars.ParsleyLanguage()
	if entry := grammars.DetectLanguage(absPath); entry != nil {
		lang = entry.Language()
	}
	d := NewDocument(lang, string(data), opts...)
	d.path = absPath
	return d, nil
}

func (d *Document) reset(text string) {
	d.text = text
	d.savedText = text
	d.undoStack, d.redoStack = nil, nil
	d.tree = d.parser.Parse([]byte(text))
	d.stats = d.parser.Stats()
}

// Save writes the current text to the stored path.
func (d *Document) Save() error {
	if d.path == "" {
		return errors.New("editor: document has no path; use SaveAs")
	}
	if err := os.WriteFile(d.path, []byte(d.text), 0o644); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	d.savedText = d.text
	return nil
}

// SaveAs writes the current text to path and makes it the stored path.
func (d *Document) SaveAs(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(d.text), 0o644); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	d.path = absPath
	d.savedText = d.text
	return nil
}

// Path returns the absolute file path, or "" if the document is untitled.
func (d *Document) Path() string { return d.path }

// Text returns the current text.
func (d *Document) Text() string { return d.text }

// Tree returns the syntax tree of the current text.
func (d *Document) Tree() *gotreesitter.Tree { return d.tree }

// Language returns the document's language.
func (d *Document) Language() *gotreesitter.Language { return d.lang }

// Version returns the tree version; it counts reparses since open.
func (d *Document) Version() uint64 { return d.tree.Version() }

// Stats describes the most recent parse or reparse.
func (d *Document) Stats() gotreesitter.ParseStats { return d.stats }

// Dirty reports whether the text differs from the last saved/opened text.
func (d *Document) Dirty() bool { return d.text != d.savedText }

// Untitled reports whether the document has no associated file path.
func (d *Document) Untitled() bool { return d.path == "" }

// Title returns the base filename, or "untitled".
func (d *Document) Title() string {
	if d.path == "" {
		return "untitled"
	}
	return filepath.Base(d.path)
}

// replace swaps text[offset:offset+len(oldText)] for newText and reparses.
func (d *Document) replace(offset int, oldText, newText string) {
	src, edit := gotreesitter.ApplyEdit([]byte(d.text), uint32(offset), uint32(offset+len(oldText)), []byte(newText))
	d.text = string(src)
	d.tree = d.parser.Reparse(d.tree, edit, src)
	d.stats = d.parser.Stats()
}

// ApplyEdit replaces the bytes [start, end) with newText, records the edit
// for undo, and reparses incrementally.
func (d *Document) ApplyEdit(start, end int, newText string) error {
	if start < 0 || end < start || end > len(d.text) {
		return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrOutOfRange, start, end, len(d.text))
	}
	op := editOp{offset: start, oldText: d.text[start:end], newText: newText}
	d.undoStack = append(d.undoStack, op)
	d.redoStack = nil
	d.replace(op.offset, op.oldText, op.newText)
	return nil
}

// SetText replaces the whole text. The change is reduced to a single edit
// by diffing against the current text, so unchanged regions are reused.
// It reports whether anything changed.
func (d *Document) SetText(text string) bool {
	edit, ok := gotreesitter.EditFromDiff([]byte(d.text), []byte(text))
	if !ok {
		return false
	}
	start, oldEnd, newEnd := int(edit.StartByte), int(edit.OldEndByte), int(edit.NewEndByte)
	d.undoStack = append(d.undoStack, editOp{offset: start, oldText: d.text[start:oldEnd], newText: text[start:newEnd]})
	d.redoStack = nil
	d.text = text
	d.tree = d.parser.Reparse(d.tree, edit, []byte(text))
	d.stats = d.parser.Stats()
	return true
}

// Undo reverses the last edit. It returns false if there is nothing to undo.
func (d *Document) Undo() bool {
	if len(d.undoStack) == 0 {
		return false
	}
	op := d.undoStack[len(d.undoStack)-1]
	d.undoStack = d.undoStack[:len(d.undoStack)-1]
	d.replace(op.offset, op.newText, op.oldText)
	d.redoStack = append(d.redoStack, op)
	return true
}

// Redo reapplies the last undone edit. It returns false if there is nothing
// to redo.
func (d *Document) Redo() bool {
	if len(d.redoStack) == 0 {
		return false
	}
	op := d.redoStack[len(d.redoStack)-1]
	d.redoStack = d.redoStack[:len(d.redoStack)-1]
	d.replace(op.offset, op.oldText, op.newText)
	d.undoStack = append(d.undoStack, op)
	return true
}

// Find returns all byte ranges where query appears in the text.
func (d *Document) Find(query string) []Range {
	if query == "" {
		return nil
	}
	var results []Range
	start := 0
	for {
		idx := strings.Index(d.text[start:], query)
		if idx < 0 {
			break
		}
		absIdx := start + idx
		results = append(results, Range{Start: absIdx, End: absIdx + len(query)})
		start = absIdx + len(query)
	}
	return results
}

// ReplaceAll replaces all occurrences of query with replacement and returns
// the number of replacements. Each one is a separate undo step.
func (d *Document) ReplaceAll(query, replacement string) int {
	ranges := d.Find(query)
	// Back to front so earlier offsets stay valid.
	for i := len(ranges) - 1; i >= 0; i-- {
		r := ranges[i]
		_ = d.ApplyEdit(r.Start, r.End, replacement)
	}
	return len(ranges)
}

// OffsetAt converts a zero-based line and byte column to a byte offset,
// clamped to the text.
func (d *Document) OffsetAt(line, col int) int {
	offset := 0
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(d.text[offset:], '\n')
		if nl < 0 {
			return len(d.text)
		}
		offset += nl + 1
	}
	end := strings.IndexByte(d.text[offset:], '\n')
	if end < 0 {
		end = len(d.text) - offset
	}
	return offset + min(max(col, 0), end)
}
