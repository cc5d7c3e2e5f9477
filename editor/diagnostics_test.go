package editor

import (
	"strings"
	"testing"
)

func TestDiagnosticsClean(t *testing.T) {
	d := newParsleyDoc("let x = 42\n")
	if diags := d.Diagnostics(); diags != nil {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}
}

func TestDiagnosticsMissing(t *testing.T) {
	d := newParsleyDoc("let x =")
	diags := d.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v, want one", diags)
	}
	got := diags[0]
	if !got.Missing || got.Message != "missing identifier" {
		t.Errorf("diagnostic = %+v", got)
	}
	if got.StartByte != 7 || got.EndByte != 7 {
		t.Errorf("missing node at [%d, %d), want [7, 7)", got.StartByte, got.EndByte)
	}
}

func TestDiagnosticsError(t *testing.T) {
	d := newParsleyDoc("let = 5\nlet y = 2\n")
	diags := d.Diagnostics()
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
	for _, diag := range diags {
		if diag.EndByte > 8 {
			t.Errorf("diagnostic %+v leaks past the broken statement", diag)
		}
		if !diag.Missing && !strings.HasPrefix(diag.Message, "syntax error") {
			t.Errorf("message = %q", diag.Message)
		}
	}
}

func TestErrorMessageTruncates(t *testing.T) {
	d := newParsleyDoc("let = " + strings.Repeat("9", 40) + "\n")
	diags := d.Diagnostics()
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
	for _, diag := range diags {
		if len([]rune(diag.Message)) > len("syntax error near ")+maxSnippet+3 {
			t.Errorf("message too long: %q", diag.Message)
		}
	}
}
