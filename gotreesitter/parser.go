package gotreesitter

import (
	"io"
	"log/slog"
)

// Parser is a deterministic LR parser that reads parse tables from a
// Language and produces syntax trees.
//
// The input is parsed as a sequence of top-level items (statements), each
// from the table's initial state. An item is the unit of error
// resynchronization and of incremental reuse. A Parser is not safe for
// concurrent use; the trees it returns are.
type Parser struct {
	language *Language
	logger   *slog.Logger
	stats    ParseStats
}

// ParseStats describes the most recent parse.
type ParseStats struct {
	Tokens        int
	Chunks        int
	ReusedChunks  int
	ShiftedChunks int
	ErrorChunks   int
	Incremental   bool
}

// NewParser creates a new Parser for the given language.
func NewParser(lang *Language) *Parser {
	return &Parser{
		language: lang,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger routes recovery and reuse events to logger at debug level.
func (p *Parser) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Language returns the parser's language.
func (p *Parser) Language() *Language { return p.language }

// Stats returns counters for the most recent Parse or Reparse.
func (p *Parser) Stats() ParseStats { return p.stats }

// Parse tokenizes and parses source, returning a syntax tree. It always
// returns a complete tree; syntax errors become ERROR and MISSING nodes.
func (p *Parser) Parse(source []byte) *Tree {
	return p.ParseTokens(source, p.tokenSource(source))
}

// ParseTokens parses the tokens produced by ts. source is kept alongside
// the tree for text extraction.
func (p *Parser) ParseTokens(source []byte, ts TokenSource) *Tree {
	r := p.newRun(source, ts, arenaClassFull)
	tree := r.run()
	p.stats = r.stats
	return tree
}

func (p *Parser) tokenSource(source []byte) TokenSource {
	if p.language.TokenSourceFactory != nil {
		return p.language.TokenSourceFactory(source, p.language)
	}
	return NewBasicTokenSource(source, p.language)
}

func (p *Parser) newRun(source []byte, ts TokenSource, class arenaClass) *parseRun {
	r := &parseRun{
		lang:   p.language,
		logger: p.logger,
		source: source,
		ts:     ts,
		arena:  newNodeArena(class),
		stack:  newParseStack(p.language.InitialState),
	}
	r.rs, _ = ts.(ResumableTokenSource)
	return r
}

// chunk records one top-level item of a parse: which root children it
// produced and the lexer context it was parsed in.
type chunk struct {
	startByte   uint32
	first       int
	count       int
	startState  LexerState
	endState    LexerState
	examinedEnd uint32
}

// parseRun is the state of a single Parse or Reparse call.
type parseRun struct {
	lang   *Language
	logger *slog.Logger
	source []byte
	ts     TokenSource
	rs     ResumableTokenSource
	arena  *nodeArena
	stack  parseStack

	lookahead Token
	laState   LexerState
	pending   []Token

	lastEnd      uint32
	lastEndPoint Point
	examined     uint32
	missingAt    int64

	nodes  []*Node
	chunks []chunk
	reuse  *reuseState
	stats  ParseStats

	kids []*Node
	fids []FieldID

	// skipNode is the ERROR node of the current run of skipped tokens;
	// skipped backs its children.
	skipNode *Node
	skipped  []*Node
}

func (r *parseRun) run() *Tree {
	r.advance()
	for !r.lookahead.IsEOF() {
		if r.reuse != nil && r.tryReuse() {
			continue
		}
		r.parseChunk()
	}
	r.stats.Chunks = len(r.chunks)

	root := r.arena.allocNode()
	initParent(root, r.lang.RootSymbol, true, r.arena.allocChildren(r.nodes), nil, 0)
	root.startByte, root.startPoint = 0, Point{}
	root.endByte = uint32(len(r.source))
	if r.lookahead.EndByte == root.endByte {
		root.endPoint = r.lookahead.EndPoint
	} else {
		root.endPoint = PointAt(r.source, root.endByte)
	}
	return &Tree{
		root:     root,
		source:   r.source,
		language: r.lang,
		chunks:   r.chunks,
	}
}

// advance moves to the next lookahead, draining tokens queued by
// recovery first.
func (r *parseRun) advance() {
	if len(r.pending) > 0 {
		r.lookahead = r.pending[0]
		r.pending = r.pending[1:]
		return
	}
	if r.rs != nil {
		r.laState = r.rs.State()
	}
	tok := r.ts.Next()
	r.stats.Tokens++
	r.lookahead = tok
	r.examined = max(r.examined, tok.LookaheadEnd, tok.EndByte)
}

func (r *parseRun) parseChunk() {
	r.stack.reset(r.lang.InitialState)
	r.skipNode, r.skipped = nil, nil
	r.missingAt = -1
	c := chunk{
		startByte:  r.lookahead.StartByte,
		first:      len(r.nodes),
		startState: r.laState,
	}
	r.examined = max(r.lookahead.LookaheadEnd, r.lookahead.EndByte)

	for {
		act, ok := r.lang.Action(r.stack.top().state, r.lookahead.Symbol)
		if !ok {
			if r.recover() {
				break
			}
			continue
		}
		if act.Type == ParseActionAccept {
			r.finishChunk(r.spliceEntries(r.stack.nodes()))
			break
		}
		switch act.Type {
		case ParseActionShift:
			r.shift(act.State)
		case ParseActionReduce:
			r.reduce(act)
		}
	}

	c.count = len(r.nodes) - c.first
	c.endState = r.laState
	c.examinedEnd = r.examined
	if c.count == 0 {
		return
	}
	if r.chunkHasError(c) {
		r.stats.ErrorChunks++
	}
	r.chunks = append(r.chunks, c)
}

func (r *parseRun) chunkHasError(c chunk) bool {
	for _, n := range r.nodes[c.first:] {
		if n.hasError {
			return true
		}
	}
	return false
}

func (r *parseRun) finishChunk(nodes []*Node) {
	r.nodes = append(r.nodes, nodes...)
	r.stack.reset(r.lang.InitialState)
	r.skipNode, r.skipped = nil, nil
}

func (r *parseRun) leaf(tok Token) *Node {
	n := r.arena.allocNode()
	*n = Node{
		symbol:     tok.Symbol,
		isNamed:    r.lang.IsNamed(tok.Symbol),
		isMissing:  tok.missing,
		startByte:  tok.StartByte,
		endByte:    tok.EndByte,
		startPoint: tok.StartPoint,
		endPoint:   tok.EndPoint,
		hasError:   tok.missing || tok.Symbol == ErrorSymbol,
	}
	return n
}

func (r *parseRun) shift(state StateID) {
	tok := r.lookahead
	r.stack.push(state, r.leaf(tok), false)
	r.lastEnd, r.lastEndPoint = tok.EndByte, tok.EndPoint
	r.advance()
}

func (r *parseRun) reduce(act ParseAction) {
	trailing := r.stack.popTrailingExtras()
	children := r.stack.popChildren(int(act.ChildCount))
	node := r.buildNode(act.Symbol, act.ProductionID, children)
	if len(children) == 0 {
		at, atPoint := r.lastEnd, r.lastEndPoint
		if len(trailing) > 0 {
			at, atPoint = trailing[0].node.startByte, trailing[0].node.startPoint
		}
		node.startByte, node.endByte = at, at
		node.startPoint, node.endPoint = atPoint, atPoint
	}
	state, ok := r.lang.Goto(r.stack.top().state, act.Symbol)
	if !ok {
		// Only a malformed table gets here. Keep the node so the tree stays
		// complete.
		r.logger.Error("parser: missing goto", "state", r.stack.top().state, "symbol", r.lang.SymbolName(act.Symbol))
		r.stack.pushExtra(node)
	} else {
		r.stack.push(state, node, false)
	}
	for _, e := range trailing {
		r.stack.pushExtra(e.node)
	}
}

// buildNode creates the node for a reduction. Hidden children are spliced
// into visible parents; a field on a hidden child carries over to its
// spliced children that have no field of their own.
func (r *parseRun) buildNode(sym Symbol, productionID uint16, entries []stackEntry) *Node {
	fields := r.lang.FieldsForProduction(productionID)
	visible := r.lang.IsVisible(sym)
	r.kids, r.fids = r.kids[:0], r.fids[:0]
	childIndex := 0
	for _, e := range entries {
		var fid FieldID
		if !e.extra {
			fid = fieldForChild(fields, childIndex)
			childIndex++
		}
		if visible {
			r.splice(e.node, fid)
		} else {
			r.kids = append(r.kids, e.node)
			r.fids = append(r.fids, fid)
		}
	}
	n := r.arena.allocNode()
	initParent(n, sym, r.lang.IsNamed(sym), r.arena.allocChildren(r.kids), r.fieldSlice(), productionID)
	return n
}

func fieldForChild(fields []FieldMapEntry, childIndex int) FieldID {
	for _, f := range fields {
		if int(f.ChildIndex) == childIndex {
			return f.FieldID
		}
	}
	return 0
}

// fieldSlice returns the scratch field IDs, or nil when none are set.
func (r *parseRun) fieldSlice() []FieldID {
	for _, f := range r.fids {
		if f != 0 {
			return r.arena.allocFields(r.fids)
		}
	}
	return nil
}

func (r *parseRun) isHidden(n *Node) bool {
	return !r.lang.IsTerminal(n.symbol) && !r.lang.IsVisible(n.symbol)
}

func (r *parseRun) splice(n *Node, fid FieldID) {
	if !r.isHidden(n) {
		r.kids = append(r.kids, n)
		r.fids = append(r.fids, fid)
		return
	}
	for i, c := range n.children {
		cf := n.FieldIDForChild(i)
		if cf == 0 {
			cf = fid
		}
		r.splice(c, cf)
	}
}

// spliceEntries flattens stack entries into visible nodes.
func (r *parseRun) spliceEntries(entries []stackEntry) []*Node {
	r.kids, r.fids = r.kids[:0], r.fids[:0]
	for _, e := range entries {
		r.splice(e.node, 0)
	}
	return append([]*Node(nil), r.kids...)
}
