package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/parsley/gotreesitter"
	"github.com/odvcencio/parsley/grammars"
)

func newParsleyDoc(text string) *Document {
	return NewDocument(grammars.ParsleyLanguage(), text)
}

func sexpr(d *Document) string {
	return d.Tree().RootNode().String(d.Language())
}

func TestNewDocument(t *testing.T) {
	d := newParsleyDoc("")
	if d.Text() != "" {
		t.Errorf("new document text = %q, want empty", d.Text())
	}
	if d.Dirty() {
		t.Error("new document should not be dirty")
	}
	if !d.Untitled() || d.Title() != "untitled" {
		t.Errorf("new document title = %q, want untitled", d.Title())
	}
	if got := sexpr(d); got != "(source_file)" {
		t.Errorf("tree = %s, want (source_file)", got)
	}
}

func TestOpenDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.pars")
	content := "let x = 1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	d, err := OpenDocument(path)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if d.Text() != content {
		t.Errorf("text = %q, want %q", d.Text(), content)
	}
	if !filepath.IsAbs(d.Path()) {
		t.Errorf("path %q is not absolute", d.Path())
	}
	if d.Title() != "main.pars" {
		t.Errorf("title = %q, want %q", d.Title(), "main.pars")
	}
	if d.Tree().RootNode().HasError() {
		t.Error("unexpected syntax error")
	}
}

func TestOpenDocumentMissingFile(t *testing.T) {
	if _, err := OpenDocument(filepath.Join(t.TempDir(), "nope.pars")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDocumentSave(t *testing.T) {
	d := newParsleyDoc("let a = 1")
	if err := d.Save(); err == nil {
		t.Fatal("Save on untitled document should fail")
	}

	path := filepath.Join(t.TempDir(), "out.pars")
	if err := d.ApplyEdit(8, 9, "2"); err != nil {
		t.Fatal(err)
	}
	if !d.Dirty() {
		t.Fatal("document should be dirty after edit")
	}
	if err := d.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if d.Dirty() {
		t.Error("document should be clean after SaveAs")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "let a = 2" {
		t.Errorf("file content = %q, want %q", data, "let a = 2")
	}
}

func TestDocumentEditReparses(t *testing.T) {
	d := newParsleyDoc("let a = 1\nlet b = 2\n")
	v := d.Version()

	if err := d.ApplyEdit(8, 9, "x + y"); err != nil {
		t.Fatal(err)
	}
	want := "(source_file (let_statement pattern: (identifier) value: (binary_expression left: (identifier) right: (identifier))) (let_statement pattern: (identifier) value: (number)))"
	if got := sexpr(d); got != want {
		t.Fatalf("tree = %s\nwant %s", got, want)
	}
	if d.Version() != v+1 {
		t.Errorf("version = %d, want %d", d.Version(), v+1)
	}
	if !d.Stats().Incremental {
		t.Error("edit should reparse incrementally")
	}
	fresh := gotreesitter.NewParser(d.Language()).Parse([]byte(d.Text()))
	if got, want := sexpr(d), fresh.RootNode().String(d.Language()); got != want {
		t.Fatalf("incremental tree differs from full parse:\n%s\n%s", got, want)
	}
}

func TestDocumentEditOutOfRange(t *testing.T) {
	d := newParsleyDoc("let a = 1")
	for _, r := range [][2]int{{-1, 0}, {3, 2}, {0, 100}} {
		err := d.ApplyEdit(r[0], r[1], "x")
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ApplyEdit(%d, %d) error = %v, want ErrOutOfRange", r[0], r[1], err)
		}
	}
}

func TestDocumentUndoRedo(t *testing.T) {
	d := newParsleyDoc("let a = 1")
	original := sexpr(d)

	if err := d.ApplyEdit(8, 9, `"s"`); err != nil {
		t.Fatal(err)
	}
	edited := sexpr(d)
	if d.Text() != `let a = "s"` {
		t.Fatalf("after edit text = %q", d.Text())
	}

	if !d.Undo() {
		t.Fatal("Undo returned false, expected true")
	}
	if d.Text() != "let a = 1" || sexpr(d) != original {
		t.Fatalf("after undo text = %q tree = %s", d.Text(), sexpr(d))
	}
	if d.Undo() {
		t.Fatal("Undo returned true on empty stack")
	}

	if !d.Redo() {
		t.Fatal("Redo returned false, expected true")
	}
	if sexpr(d) != edited {
		t.Fatalf("after redo tree = %s, want %s", sexpr(d), edited)
	}
	if d.Redo() {
		t.Fatal("Redo returned true on empty stack")
	}

	// A new edit clears the redo stack.
	d.Undo()
	if err := d.ApplyEdit(0, 0, "// c\n"); err != nil {
		t.Fatal(err)
	}
	if d.Redo() {
		t.Fatal("Redo should return false after new edit clears redo stack")
	}
}

func TestDocumentSetText(t *testing.T) {
	d := newParsleyDoc("let a = 1\nlet b = 2\n")
	if d.SetText(d.Text()) {
		t.Fatal("SetText with identical text reported a change")
	}
	if !d.SetText("let a = 1\nlet b = 3\n") {
		t.Fatal("SetText reported no change")
	}
	if !d.Stats().Incremental || d.Stats().ReusedChunks == 0 {
		t.Errorf("stats = %+v, want an incremental reparse reusing the first statement", d.Stats())
	}
	if !d.Undo() || d.Text() != "let a = 1\nlet b = 2\n" {
		t.Fatalf("undo after SetText: %q", d.Text())
	}
}

func TestDocumentFindReplaceAll(t *testing.T) {
	d := newParsleyDoc("let foo = foo + foo")
	if got := d.Find("foo"); len(got) != 3 || got[1] != (Range{Start: 10, End: 13}) {
		t.Fatalf("Find = %v", got)
	}
	if d.Find("") != nil {
		t.Error("Find(\"\") should return nil")
	}
	if n := d.ReplaceAll("foo", "b"); n != 3 {
		t.Fatalf("ReplaceAll = %d, want 3", n)
	}
	if d.Text() != "let b = b + b" {
		t.Fatalf("text = %q", d.Text())
	}
	d.Undo()
	d.Undo()
	d.Undo()
	if d.Text() != "let foo = foo + foo" {
		t.Fatalf("after undo text = %q", d.Text())
	}
}

func TestDocumentOffsetAt(t *testing.T) {
	d := newParsleyDoc("ab\ncde\nf")
	tests := []struct {
		line, col, want int
	}{
		{0, 0, 0},
		{0, 5, 2},
		{1, 1, 4},
		{2, 0, 7},
		{9, 0, 8},
	}
	for _, tt := range tests {
		if got := d.OffsetAt(tt.line, tt.col); got != tt.want {
			t.Errorf("OffsetAt(%d, %d) = %d, want %d", tt.line, tt.col, got, tt.want)
		}
	}
}
