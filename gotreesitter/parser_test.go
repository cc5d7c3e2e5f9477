package gotreesitter

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSums(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "(program)"},
		{"single", "1", "(program (expression (number)))"},
		{"sum", "1 + 2", "(program (expression left: (expression (number)) right: (number)))"},
		{"left associative", "1 + 2 + 3",
			"(program (expression left: (expression left: (expression (number)) right: (number)) right: (number)))"},
		{"two statements", "1 2", "(program (expression (number)) (expression (number)))"},
		{"statement continues over newline", "1\n+ 2", "(program (expression left: (expression (number)) right: (number)))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := parseSum(t, tt.input)
			assert.Equal(t, tt.want, tree.RootNode().String(tree.Language()))
			assert.False(t, tree.RootNode().HasError())
		})
	}
}

func TestParseRecovery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing operand at end", "1 +",
			"(program (expression left: (expression (number)) right: (MISSING number)))"},
		{"doubled operator", "1 + + 2",
			"(program (expression left: (expression (number)) (ERROR) right: (number)))"},
		{"leading operator", "+ 1", "(program (ERROR) (expression (number)))"},
		{"unknown word", "1 + x",
			"(program (expression left: (expression (number)) (ERROR) right: (MISSING number)))"},
		{"only garbage", "+ +", "(program (ERROR))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := parseSum(t, tt.input)
			root := tree.RootNode()
			assert.Equal(t, tt.want, root.String(tree.Language()))
			assert.True(t, root.HasError())
			assert.Equal(t, uint32(0), root.StartByte())
			assert.Equal(t, uint32(len(tt.input)), root.EndByte())
		})
	}
}

func TestParseMissingNodeIsZeroWidth(t *testing.T) {
	t.Parallel()
	tree := parseSum(t, "1 +")
	expr := tree.RootNode().Child(0)
	right := expr.ChildByFieldName("right", tree.Language())
	require.NotNil(t, right)
	assert.True(t, right.IsMissing())
	assert.Equal(t, uint32(3), right.StartByte())
	assert.Equal(t, right.StartByte(), right.EndByte())
	assert.True(t, expr.HasError())
}

func TestParseSkippedRunIsOneErrorNode(t *testing.T) {
	t.Parallel()
	const n = 20000
	src := strings.Repeat("+ ", n) + "1"
	start := time.Now()
	tree := parseSum(t, src)
	assert.Less(t, time.Since(start), 5*time.Second)

	root := tree.RootNode()
	require.Equal(t, 2, root.ChildCount())
	errNode := root.Child(0)
	assert.True(t, errNode.IsError())
	assert.Equal(t, n, errNode.ChildCount())
	assert.Equal(t, uint32(2*n-1), errNode.EndByte())
	assert.Equal(t, uint32(len(src)), root.EndByte())
}

func TestParseRangesNest(t *testing.T) {
	t.Parallel()
	for _, src := range []string{"1 + 2\n3", "1 + + 2 +", "+ 1 x 2 +\n+", "  1  "} {
		tree := parseSum(t, src)
		var check func(n *Node)
		check = func(n *Node) {
			prev := n.StartByte()
			for _, c := range n.Children() {
				require.GreaterOrEqual(t, c.StartByte(), prev, "%q: child starts before sibling ends", src)
				require.LessOrEqual(t, c.EndByte(), n.EndByte(), "%q: child ends after parent", src)
				prev = c.EndByte()
				check(c)
			}
		}
		check(tree.RootNode())
		assert.Equal(t, uint32(len(src)), tree.RootNode().EndByte())
	}
}

func TestParseStats(t *testing.T) {
	t.Parallel()
	p := NewParser(buildSumLanguage())
	p.Parse([]byte("1 + 2\n3 4 + +"))
	st := p.Stats()
	assert.Equal(t, 3, st.Chunks)
	assert.Equal(t, 1, st.ErrorChunks)
	assert.False(t, st.Incremental)
	assert.Positive(t, st.Tokens)
}

func TestParserLogsRecovery(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewParser(buildSumLanguage())
	p.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	p.Parse([]byte("1 +"))
	assert.Contains(t, buf.String(), "insert missing")
}

func TestTreeComments(t *testing.T) {
	t.Parallel()
	src := "1 // one\n+ 2 // two"
	tree := parseSum(t, src)
	comments := tree.Comments()
	require.Len(t, comments, 2)
	assert.Equal(t, "// one", src[comments[0].StartByte:comments[0].EndByte])
	assert.Equal(t, "// two", src[comments[1].StartByte:comments[1].EndByte])
	assert.Equal(t, Point{Row: 1, Column: 4}, comments[1].StartPoint)
}

func TestReparseReusesChunks(t *testing.T) {
	t.Parallel()
	lang := buildSumLanguage()
	p := NewParser(lang)
	oldSrc := []byte("1 + 2\n3 + 4\n5")
	old := p.Parse(oldSrc)

	newSrc, edit := ApplyEdit(oldSrc, 10, 11, []byte("40"))
	require.Equal(t, "1 + 2\n3 + 40\n5", string(newSrc))

	tree := p.Reparse(old, edit, newSrc)
	st := p.Stats()
	assert.True(t, st.Incremental)
	assert.Equal(t, 1, st.ReusedChunks)
	assert.Equal(t, 1, st.ShiftedChunks)
	assert.Equal(t, uint64(1), tree.Version())

	// Chunks before the edit are shared with the old tree.
	assert.Same(t, old.RootNode().Child(0), tree.RootNode().Child(0))
	requireSameTree(t, NewParser(lang).Parse(newSrc), tree)

	// The old tree is untouched.
	assert.Equal(t, "1 + 2\n3 + 4\n5", string(old.Source()))
	assert.Equal(t, uint32(len(oldSrc)), old.RootNode().EndByte())
	assert.Equal(t, "4", old.RootNode().Child(1).ChildByFieldName("right", lang).Text(old.Source()))
}

func TestReparseSharesUnmovedChunks(t *testing.T) {
	t.Parallel()
	lang := buildSumLanguage()
	p := NewParser(lang)
	oldSrc := []byte("1 + 2\n3 + 4\n5")
	old := p.Parse(oldSrc)

	// Same-length replacement: later chunks keep their positions.
	newSrc, edit := ApplyEdit(oldSrc, 10, 11, []byte("7"))
	tree := p.Reparse(old, edit, newSrc)
	st := p.Stats()
	assert.Equal(t, 1, st.ReusedChunks)
	assert.Zero(t, st.ShiftedChunks)
	assert.Same(t, old.RootNode().Child(2), tree.RootNode().Child(2))

	// A growing edit moves later chunks, which are copied at new offsets.
	newSrc, edit = ApplyEdit(oldSrc, 10, 11, []byte("77"))
	tree = p.Reparse(old, edit, newSrc)
	st = p.Stats()
	assert.Equal(t, 1, st.ShiftedChunks)
	assert.NotSame(t, old.RootNode().Child(2), tree.RootNode().Child(2))
	assert.Equal(t, old.RootNode().Child(2).StartByte()+1, tree.RootNode().Child(2).StartByte())
	assert.Equal(t, uint32(12), old.RootNode().Child(2).StartByte())
	requireSameTree(t, NewParser(lang).Parse(newSrc), tree)
}

func TestReparseEquivalence(t *testing.T) {
	t.Parallel()
	type edit struct {
		start, oldEnd uint32
		text          string
	}
	tests := []struct {
		name  string
		src   string
		edits []edit
	}{
		{"insert statement", "1 + 2\n3", []edit{{5, 5, "\n7 + 8"}}},
		{"delete operator", "1 + 2\n3 + 4\n5", []edit{{8, 9, ""}}},
		{"break then fix", "1 + 2\n3 + 4\n5", []edit{{10, 11, ""}, {10, 10, "9"}}},
		{"join statements", "1\n2\n3", []edit{{1, 2, " + "}}},
		{"append at end", "1 + 2", []edit{{5, 5, " +"}, {7, 7, " 3"}}},
		{"replace everything", "1 + 2", []edit{{0, 5, "+ + 9\n8"}}},
		{"multiline shift", "1\n2\n3 + 4\n5", []edit{{0, 1, "10\n\n11"}}},
		{"comment inserted", "1 + 2\n3", []edit{{5, 5, " // c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lang := buildSumLanguage()
			p := NewParser(lang)
			src := []byte(tt.src)
			tree := p.Parse(src)
			for i, e := range tt.edits {
				var ie InputEdit
				src, ie = ApplyEdit(src, e.start, e.oldEnd, []byte(e.text))
				tree = p.Reparse(tree, ie, src)
				require.Equal(t, uint64(i+1), tree.Version())
				requireSameTree(t, NewParser(lang).Parse(src), tree)
			}
		})
	}
}

func TestReparseRejectsMismatchedEdit(t *testing.T) {
	t.Parallel()
	p := NewParser(buildSumLanguage())
	old := p.Parse([]byte("1 + 2"))
	newSrc := []byte("1 + 3")
	// Claims nothing changed although the text differs.
	tree := p.Reparse(old, InputEdit{StartByte: 5, OldEndByte: 5, NewEndByte: 5}, newSrc)
	assert.False(t, p.Stats().Incremental)
	assert.Equal(t, uint64(1), tree.Version())
	requireSameTree(t, NewParser(buildSumLanguage()).Parse(newSrc), tree)
}

func TestParseIsTotal(t *testing.T) {
	t.Parallel()
	p := NewParser(buildSumLanguage())
	alphabet := []string{"1", "+", " ", "\n", "x", "//", "é", "\x00"}
	// Deterministic walk over short strings of the alphabet.
	for i := 0; i < 4000; i++ {
		var b strings.Builder
		for n := i; n > 0; n /= len(alphabet) {
			b.WriteString(alphabet[n%len(alphabet)])
		}
		src := b.String()
		tree := p.Parse([]byte(src))
		require.NotNil(t, tree.RootNode(), "%q", src)
		require.Equal(t, uint32(len(src)), tree.RootNode().EndByte(), "%q", src)
	}
}
