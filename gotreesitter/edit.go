package gotreesitter

import (
	"bytes"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// InputEdit describes a single edit to the source text: the byte range
// [StartByte, OldEndByte) of the old text was replaced by
// [StartByte, NewEndByte) of the new text.
type InputEdit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Delta returns the change in length caused by the edit.
func (e InputEdit) Delta() int64 {
	return int64(e.NewEndByte) - int64(e.OldEndByte)
}

// ApplyEdit replaces src[start:oldEnd] with newText and returns the new
// text together with the edit that describes the change.
func ApplyEdit(src []byte, start, oldEnd uint32, newText []byte) ([]byte, InputEdit) {
	if int(oldEnd) > len(src) {
		oldEnd = uint32(len(src))
	}
	if start > oldEnd {
		start = oldEnd
	}
	out := make([]byte, 0, len(src)-int(oldEnd-start)+len(newText))
	out = append(out, src[:start]...)
	out = append(out, newText...)
	out = append(out, src[oldEnd:]...)

	startPoint := PointAt(src, start)
	edit := InputEdit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  start + uint32(len(newText)),
		StartPoint:  startPoint,
		OldEndPoint: advancePoint(startPoint, src[start:oldEnd]),
		NewEndPoint: advancePoint(startPoint, newText),
	}
	return out, edit
}

// EditFromDiff computes the smallest single edit that turns oldText into
// newText by trimming their common prefix and suffix. ok is false when
// the texts are identical.
func EditFromDiff(oldText, newText []byte) (edit InputEdit, ok bool) {
	if bytes.Equal(oldText, newText) {
		return InputEdit{}, false
	}
	prefixBytes, suffixBytes := commonAffixes(oldText, newText)

	start := uint32(prefixBytes)
	oldEnd := uint32(len(oldText) - suffixBytes)
	newEnd := uint32(len(newText) - suffixBytes)
	startPoint := PointAt(oldText, start)
	return InputEdit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  newEnd,
		StartPoint:  startPoint,
		OldEndPoint: advancePoint(startPoint, oldText[start:oldEnd]),
		NewEndPoint: advancePoint(startPoint, newText[start:newEnd]),
	}, true
}

// commonAffixes returns the byte lengths of the common prefix and of the
// common suffix of the remainders.
func commonAffixes(oldText, newText []byte) (prefix, suffix int) {
	if !utf8.Valid(oldText) || !utf8.Valid(newText) {
		for prefix < len(oldText) && prefix < len(newText) && oldText[prefix] == newText[prefix] {
			prefix++
		}
		for suffix < len(oldText)-prefix && suffix < len(newText)-prefix &&
			oldText[len(oldText)-1-suffix] == newText[len(newText)-1-suffix] {
			suffix++
		}
		return prefix, suffix
	}
	// diffmatchpatch counts runes.
	dmp := diffmatchpatch.New()
	a, b := string(oldText), string(newText)
	runes := []rune(a)
	n := dmp.DiffCommonPrefix(a, b)
	prefix = len(string(runes[:n]))
	rest := []rune(a[prefix:])
	m := dmp.DiffCommonSuffix(a[prefix:], b[prefix:])
	suffix = len(string(rest[len(rest)-m:]))
	return prefix, suffix
}

// shiftPoint moves a point at or after the old end of an edit into new
// coordinates.
func shiftPoint(p Point, e InputEdit) Point {
	if p.Row == e.OldEndPoint.Row {
		return Point{
			Row:    e.NewEndPoint.Row,
			Column: uint32(int64(p.Column) - int64(e.OldEndPoint.Column) + int64(e.NewEndPoint.Column)),
		}
	}
	return Point{
		Row:    uint32(int64(p.Row) + int64(e.NewEndPoint.Row) - int64(e.OldEndPoint.Row)),
		Column: p.Column,
	}
}
