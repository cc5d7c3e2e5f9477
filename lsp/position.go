package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LSP positions count UTF-16 code units; the tree counts bytes.

// lineIndex maps byte offsets of one text to LSP positions.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{text: text, starts: starts}
}

// line returns the zero-based line containing offset.
func (li *lineIndex) line(offset int) int {
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (li *lineIndex) position(offset int) protocol.Position {
	offset = min(max(offset, 0), len(li.text))
	line := li.line(offset)
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(utf16Len(li.text[li.starts[line]:offset])),
	}
}

func (li *lineIndex) rangeOf(start, end int) protocol.Range {
	return protocol.Range{Start: li.position(start), End: li.position(end)}
}

// offset converts pos to a byte offset, clamping past-the-end lines and
// characters to the text.
func (li *lineIndex) offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(li.starts) {
		return len(li.text)
	}
	start := li.starts[line]
	end := len(li.text)
	if nl := strings.IndexByte(li.text[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	units := int(pos.Character)
	i := start
	for i < end && units > 0 {
		r, size := utf8.DecodeRuneInString(li.text[i:])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if n > units {
			break
		}
		units -= n
		i += size
	}
	return i
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if k := utf16.RuneLen(r); k > 0 {
			n += k
		} else {
			n++
		}
	}
	return n
}
