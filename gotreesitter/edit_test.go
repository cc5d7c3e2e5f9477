package gotreesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEdit(t *testing.T) {
	t.Parallel()
	src := []byte("let x = 1\nlet y = 2\n")
	out, edit := ApplyEdit(src, 8, 9, []byte("10\n+ 3"))
	assert.Equal(t, "let x = 10\n+ 3\nlet y = 2\n", string(out))
	assert.Equal(t, InputEdit{
		StartByte:   8,
		OldEndByte:  9,
		NewEndByte:  14,
		StartPoint:  Point{Row: 0, Column: 8},
		OldEndPoint: Point{Row: 0, Column: 9},
		NewEndPoint: Point{Row: 1, Column: 3},
	}, edit)
	assert.Equal(t, int64(5), edit.Delta())

	// Out of range bounds are clamped.
	out, edit = ApplyEdit([]byte("ab"), 5, 9, []byte("c"))
	assert.Equal(t, "abc", string(out))
	assert.Equal(t, uint32(2), edit.StartByte)
}

func TestEditFromDiff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		old, new      string
		start, oldEnd uint32
		newEnd        uint32
	}{
		{"insert", "let x = 1", "let xy = 1", 5, 5, 6},
		{"delete", "let xy = 1", "let x = 1", 5, 6, 5},
		{"replace", "a + b", "a * b", 2, 3, 3},
		{"multibyte", "let s = \"héllo\"", "let s = \"hällo\"", 10, 12, 12},
		{"invalid utf8", "a\xffb", "a\xfeb", 1, 2, 2},
		{"append", "1", "1 + 2", 1, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			edit, ok := EditFromDiff([]byte(tt.old), []byte(tt.new))
			require.True(t, ok)
			assert.Equal(t, tt.start, edit.StartByte)
			assert.Equal(t, tt.oldEnd, edit.OldEndByte)
			assert.Equal(t, tt.newEnd, edit.NewEndByte)

			// The edit must reproduce the new text.
			out, _ := ApplyEdit([]byte(tt.old), edit.StartByte, edit.OldEndByte, []byte(tt.new)[edit.StartByte:edit.NewEndByte])
			assert.Equal(t, tt.new, string(out))
		})
	}

	_, ok := EditFromDiff([]byte("same"), []byte("same"))
	assert.False(t, ok)
}

func TestShiftPoint(t *testing.T) {
	t.Parallel()
	// "ab\ncd" -> replace "b" with "x\nyz": "ax\nyz\ncd"
	edit := InputEdit{
		StartPoint:  Point{Row: 0, Column: 1},
		OldEndPoint: Point{Row: 0, Column: 2},
		NewEndPoint: Point{Row: 1, Column: 2},
	}
	assert.Equal(t, Point{Row: 1, Column: 2}, shiftPoint(Point{Row: 0, Column: 2}, edit))
	assert.Equal(t, Point{Row: 2, Column: 1}, shiftPoint(Point{Row: 1, Column: 1}, edit))
}
