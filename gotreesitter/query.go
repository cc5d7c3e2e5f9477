package gotreesitter

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ErrInvalidQuery matches every *PatternError.
var ErrInvalidQuery = errors.New("query: invalid pattern")

// PatternError reports a malformed query pattern.
type PatternError struct {
	Offset  int // byte offset in the query source
	Message string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("query: %s at offset %d", e.Message, e.Offset)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidQuery) hold for pattern errors.
func (e *PatternError) Is(target error) bool { return target == ErrInvalidQuery }

// Query holds compiled patterns parsed from a tree-sitter .scm query file.
// It is read-only after NewQuery and safe for concurrent use.
type Query struct {
	lang     *Language
	patterns []Pattern
	captures []string // capture name by index

	rootCandidatesBySymbol map[Symbol][]int
	rootFallbackCandidates []int
}

// Pattern is a single top-level S-expression pattern in a query.
type Pattern struct {
	steps      []QueryStep
	childSteps [][]int // direct child step indices, per step
	predicates []QueryPredicate
	offset     int
}

// QueryStep is one matching instruction within a pattern.
type QueryStep struct {
	symbol    Symbol  // node type to match, or 0 for wildcard
	field     FieldID // required field on parent, or 0
	captureID int     // index into Query.captures, or -1 if no capture
	isNamed   bool    // whether we expect a named node; (_) sets it, _ does not
	depth     int     // nesting depth (0 = top-level node in pattern)
	// alternatives lists what can match at this position for [ ... ].
	// If non-nil, symbol is ignored.
	alternatives []alternativeSymbol
	// textMatch matches anonymous nodes whose type equals it ("let").
	textMatch string
	// negatedFields must all be absent on the matched node (!field).
	negatedFields []FieldID
}

type queryPredicateType uint8

const (
	predicateEq queryPredicateType = iota
	predicateNotEq
	predicateMatch
	predicateNotMatch
	predicateAnyOf
)

// QueryPredicate is a post-match constraint attached to a pattern.
// Supported forms:
//   - (#eq? @a @b), (#eq? @a "literal"), and #not-eq?
//   - (#match? @a "regex") and #not-match?
//   - (#any-of? @a "x" "y" ...)
type QueryPredicate struct {
	kind queryPredicateType

	leftCapture  string
	rightCapture string   // optional for #eq?
	literals     []string // literal, regex source, or any-of set
	regex        *regexp.Regexp
}

// alternativeSymbol is one branch of an alternation like [(true) (false)].
type alternativeSymbol struct {
	symbol  Symbol
	isNamed bool
	// textMatch for string alternatives like "let"
	textMatch string
}

// QueryMatch represents a successful pattern match with its captures.
type QueryMatch struct {
	PatternIndex int
	Captures     []QueryCapture
}

// QueryCapture is a single captured node within a match.
type QueryCapture struct {
	Name string
	Node *Node
}

// NewQuery compiles query source (tree-sitter .scm format) against a
// language. Malformed patterns and references to unknown node types or
// fields are reported as *PatternError.
func NewQuery(source string, lang *Language) (*Query, error) {
	p := &queryParser{
		input: source,
		lang:  lang,
		q: &Query{
			lang:     lang,
			captures: []string{},
		},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	for i := range p.q.patterns {
		p.q.patterns[i].indexChildren()
	}
	p.q.buildRootPatternIndex()
	return p.q, nil
}

// PatternCount returns the number of patterns in the query.
func (q *Query) PatternCount() int {
	return len(q.patterns)
}

// CaptureNames returns the list of unique capture names used in the query.
func (q *Query) CaptureNames() []string {
	return q.captures
}

// PatternOffset returns the byte offset of pattern i in the query source.
func (q *Query) PatternOffset(i int) int {
	if i < 0 || i >= len(q.patterns) {
		return -1
	}
	return q.patterns[i].offset
}

// Execute runs the query against a syntax tree and returns all matches in
// pre-order of their root nodes, patterns in declaration order at each
// node.
func (q *Query) Execute(tree *Tree) []QueryMatch {
	if tree == nil || tree.RootNode() == nil {
		return nil
	}
	var matches []QueryMatch
	tree.Walk(func(n *Node, _ int) bool {
		for _, pi := range q.rootPatternCandidates(n.Symbol()) {
			if caps, ok := q.matchPattern(&q.patterns[pi], n, tree.source); ok {
				matches = append(matches, QueryMatch{PatternIndex: pi, Captures: caps})
			}
		}
		return true
	})
	return matches
}

func (pat *Pattern) indexChildren() {
	pat.childSteps = make([][]int, len(pat.steps))
	for i, step := range pat.steps {
		for j := i + 1; j < len(pat.steps); j++ {
			if pat.steps[j].depth <= step.depth {
				break
			}
			if pat.steps[j].depth == step.depth+1 {
				pat.childSteps[i] = append(pat.childSteps[i], j)
			}
		}
	}
}

func (q *Query) rootPatternCandidates(sym Symbol) []int {
	if cands, ok := q.rootCandidatesBySymbol[sym]; ok {
		return cands
	}
	return q.rootFallbackCandidates
}

func (q *Query) buildRootPatternIndex() {
	bySymbol := make(map[Symbol][]int)
	var fallback []int

	for pi, pat := range q.patterns {
		step := pat.steps[0]
		switch {
		case len(step.alternatives) > 0:
			complexAlt := false
			for _, alt := range step.alternatives {
				if alt.textMatch != "" || alt.symbol == 0 {
					complexAlt = true
					break
				}
			}
			if complexAlt {
				fallback = append(fallback, pi)
				continue
			}
			seen := make(map[Symbol]bool, len(step.alternatives))
			for _, alt := range step.alternatives {
				if !seen[alt.symbol] {
					seen[alt.symbol] = true
					bySymbol[alt.symbol] = append(bySymbol[alt.symbol], pi)
				}
			}
		case step.textMatch != "" || step.symbol == 0:
			fallback = append(fallback, pi)
		default:
			bySymbol[step.symbol] = append(bySymbol[step.symbol], pi)
		}
	}

	q.rootFallbackCandidates = fallback
	q.rootCandidatesBySymbol = make(map[Symbol][]int, len(bySymbol))
	for sym, exact := range bySymbol {
		merged := append(append([]int(nil), exact...), fallback...)
		slices.Sort(merged)
		q.rootCandidatesBySymbol[sym] = slices.Compact(merged)
	}
}

// matchPattern tries to match a pattern rooted at node.
func (q *Query) matchPattern(pat *Pattern, node *Node, source []byte) ([]QueryCapture, bool) {
	var captures []QueryCapture
	if !q.matchNode(pat, 0, node, &captures) {
		return nil, false
	}
	if !q.matchesPredicates(pat.predicates, captures, source) {
		return nil, false
	}
	return captures, true
}

// matchNode matches step si against node, then its child steps against
// node's children in order.
func (q *Query) matchNode(pat *Pattern, si int, node *Node, captures *[]QueryCapture) bool {
	step := &pat.steps[si]
	if !q.nodeMatchesStep(step, node) {
		return false
	}
	for _, f := range step.negatedFields {
		if node.ChildByFieldID(f) != nil {
			return false
		}
	}
	mark := len(*captures)
	if step.captureID >= 0 {
		*captures = append(*captures, QueryCapture{Name: q.captures[step.captureID], Node: node})
	}
	if q.matchChildren(pat, pat.childSteps[si], node, 0, captures) {
		return true
	}
	*captures = (*captures)[:mark]
	return false
}

// matchChildren matches child steps to distinct children of node in
// order, backtracking over the choice of child.
func (q *Query) matchChildren(pat *Pattern, steps []int, node *Node, from int, captures *[]QueryCapture) bool {
	if len(steps) == 0 {
		return true
	}
	cs := &pat.steps[steps[0]]
	for i := from; i < len(node.children); i++ {
		if cs.field != 0 && node.FieldIDForChild(i) != cs.field {
			continue
		}
		mark := len(*captures)
		if q.matchNode(pat, steps[0], node.children[i], captures) &&
			q.matchChildren(pat, steps[1:], node, i+1, captures) {
			return true
		}
		*captures = (*captures)[:mark]
	}
	return false
}

// nodeMatchesStep checks a single node against a step's type constraint.
func (q *Query) nodeMatchesStep(step *QueryStep, node *Node) bool {
	if len(step.alternatives) > 0 {
		for _, alt := range step.alternatives {
			switch {
			case alt.textMatch != "":
				if !node.IsNamed() && node.Type(q.lang) == alt.textMatch {
					return true
				}
			case alt.symbol == 0:
				if !alt.isNamed || node.IsNamed() {
					return true
				}
			case node.Symbol() == alt.symbol && node.IsNamed() == alt.isNamed:
				return true
			}
		}
		return false
	}
	if step.textMatch != "" {
		return !node.IsNamed() && node.Type(q.lang) == step.textMatch
	}
	if step.symbol == 0 {
		return !step.isNamed || node.IsNamed()
	}
	if node.Symbol() != step.symbol {
		return false
	}
	return !step.isNamed || node.IsNamed()
}

func (q *Query) matchesPredicates(predicates []QueryPredicate, captures []QueryCapture, source []byte) bool {
	for _, pred := range predicates {
		left, ok := captureText(pred.leftCapture, captures, source)
		if !ok {
			return false
		}
		switch pred.kind {
		case predicateEq, predicateNotEq:
			right := ""
			if len(pred.literals) > 0 {
				right = pred.literals[0]
			}
			if pred.rightCapture != "" {
				right, ok = captureText(pred.rightCapture, captures, source)
				if !ok {
					return false
				}
			}
			if (left == right) != (pred.kind == predicateEq) {
				return false
			}
		case predicateMatch, predicateNotMatch:
			if pred.regex.MatchString(left) != (pred.kind == predicateMatch) {
				return false
			}
		case predicateAnyOf:
			if !slices.Contains(pred.literals, left) {
				return false
			}
		}
	}
	return true
}

func captureText(name string, captures []QueryCapture, source []byte) (string, bool) {
	for _, c := range captures {
		if c.Name == name {
			if source == nil {
				return "", false
			}
			return c.Node.Text(source), true
		}
	}
	return "", false
}
