package gotreesitter

import "sort"

// HighlightRange represents a styled range of source code, mapping a byte span
// to a capture name from a highlight query. Hosts map capture names
// (e.g., "keyword", "string", "function") to colors or token types.
type HighlightRange struct {
	StartByte uint32
	EndByte   uint32
	Capture   string // "keyword", "string", "function", etc.
}

// Highlighter is a high-level API that takes source code and returns styled
// ranges. It combines a Parser, a compiled Query, and a Language to provide
// a single Highlight() call. Like Parser, it is not safe for concurrent use.
type Highlighter struct {
	parser       *Parser
	query        *Query
	lang         *Language
	commentLabel string
}

// HighlighterOption configures a Highlighter.
type HighlighterOption func(*Highlighter)

// WithCommentLabel sets the capture name given to comment trivia. The
// default is "comment"; an empty label leaves comments unstyled.
func WithCommentLabel(label string) HighlighterOption {
	return func(h *Highlighter) {
		h.commentLabel = label
	}
}

// NewHighlighter creates a Highlighter for the given language and highlight
// query (in tree-sitter .scm format). Returns an error if the query fails
// to compile.
func NewHighlighter(lang *Language, highlightQuery string, opts ...HighlighterOption) (*Highlighter, error) {
	q, err := NewQuery(highlightQuery, lang)
	if err != nil {
		return nil, err
	}

	h := &Highlighter{
		parser:       NewParser(lang),
		query:        q,
		lang:         lang,
		commentLabel: "comment",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Query returns the compiled highlight query.
func (h *Highlighter) Query() *Query { return h.query }

// Highlight parses the source code and executes the highlight query, returning
// a slice of HighlightRange sorted by StartByte. When ranges overlap, inner
// (more specific) captures take priority over outer ones.
func (h *Highlighter) Highlight(source []byte) []HighlightRange {
	if len(source) == 0 {
		return nil
	}
	return h.HighlightTree(h.parser.Parse(source))
}

// HighlightIncremental re-highlights source after edit was applied to
// oldTree's text. It returns the new ranges and the new tree for use in
// subsequent calls.
func (h *Highlighter) HighlightIncremental(oldTree *Tree, edit InputEdit, source []byte) ([]HighlightRange, *Tree) {
	tree := h.parser.Reparse(oldTree, edit, source)
	return h.HighlightTree(tree), tree
}

// HighlightTree highlights an already parsed tree.
func (h *Highlighter) HighlightTree(tree *Tree) []HighlightRange {
	if tree == nil || tree.RootNode() == nil {
		return nil
	}

	var ranges []HighlightRange
	cursor := NewQueryCursor(h.query, tree)
	for {
		c, ok := cursor.NextCapture()
		if !ok {
			break
		}
		node := c.Node
		if node.StartByte() == node.EndByte() {
			continue
		}
		ranges = append(ranges, HighlightRange{
			StartByte: node.StartByte(),
			EndByte:   node.EndByte(),
			Capture:   c.Name,
		})
	}
	if h.commentLabel != "" {
		for _, r := range tree.Comments() {
			ranges = append(ranges, HighlightRange{StartByte: r.StartByte, EndByte: r.EndByte, Capture: h.commentLabel})
		}
	}

	if len(ranges) == 0 {
		return nil
	}

	// Stable: a node and its only child can share a span, and the child
	// comes later in pre-order.
	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].StartByte != ranges[j].StartByte {
			return ranges[i].StartByte < ranges[j].StartByte
		}
		wi := ranges[i].EndByte - ranges[i].StartByte
		wj := ranges[j].EndByte - ranges[j].StartByte
		return wi > wj
	})

	return resolveOverlaps(ranges)
}

// resolveOverlaps takes a sorted slice of ranges (sorted by StartByte asc,
// span width desc) and returns a non-overlapping slice where inner (narrower)
// captures take priority over outer (wider) ones. Adjacent segments with
// the same capture are merged.
func resolveOverlaps(ranges []HighlightRange) []HighlightRange {
	if len(ranges) == 0 {
		return nil
	}

	type event struct {
		pos     uint32
		isStart bool
		idx     int // index into ranges
	}

	events := make([]event, 0, len(ranges)*2)
	for i := range ranges {
		events = append(events,
			event{pos: ranges[i].StartByte, isStart: true, idx: i},
			event{pos: ranges[i].EndByte, isStart: false, idx: i},
		)
	}

	// By position; ends before starts; wider starts first so the narrower
	// range ends up on top of the stack.
	sort.Slice(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		if events[i].isStart != events[j].isStart {
			return !events[i].isStart
		}
		if events[i].isStart {
			return events[i].idx < events[j].idx
		}
		return events[i].idx > events[j].idx
	})

	var stack []int
	active := make([]bool, len(ranges))

	var result []HighlightRange
	var lastPos uint32
	var lastCapture string

	flush := func(endPos uint32) {
		if endPos <= lastPos || lastCapture == "" {
			return
		}
		if n := len(result); n > 0 && result[n-1].EndByte == lastPos && result[n-1].Capture == lastCapture {
			result[n-1].EndByte = endPos
			return
		}
		result = append(result, HighlightRange{StartByte: lastPos, EndByte: endPos, Capture: lastCapture})
	}

	for _, ev := range events {
		flush(ev.pos)

		if ev.isStart {
			stack = append(stack, ev.idx)
			active[ev.idx] = true
		} else {
			active[ev.idx] = false
			for len(stack) > 0 && !active[stack[len(stack)-1]] {
				stack = stack[:len(stack)-1]
			}
		}

		lastPos = ev.pos
		lastCapture = ""
		for i := len(stack) - 1; i >= 0; i-- {
			if active[stack[i]] {
				lastCapture = ranges[stack[i]].Capture
				break
			}
		}
	}

	return result
}
