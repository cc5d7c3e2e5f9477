package gotreesitter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// queryParser parses tree-sitter .scm query files into a Query.
type queryParser struct {
	input string
	pos   int
	lang  *Language
	q     *Query
}

func (p *queryParser) errorf(format string, args ...any) *PatternError {
	return p.errorAt(p.pos, format, args...)
}

func (p *queryParser) errorAt(pos int, format string, args ...any) *PatternError {
	return &PatternError{Offset: pos, Message: fmt.Sprintf(format, args...)}
}

func (p *queryParser) parse() error {
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.input) {
			return nil
		}
		if p.peekPredicate() {
			if len(p.q.patterns) == 0 {
				return p.errorf("predicate must follow a pattern")
			}
			pred, err := p.parsePredicate()
			if err != nil {
				return err
			}
			last := &p.q.patterns[len(p.q.patterns)-1]
			last.predicates = append(last.predicates, pred)
			if err := p.validatePatternPredicates(last); err != nil {
				return err
			}
			continue
		}

		start := p.pos
		switch p.input[p.pos] {
		case '(', '[', '"':
		default:
			return p.errorf("unexpected character %q", string(p.input[p.pos]))
		}
		steps, preds, err := p.parseNode(0)
		if err != nil {
			return err
		}
		pat := Pattern{steps: steps, predicates: preds, offset: start}
		if err := p.validatePatternPredicates(&pat); err != nil {
			return err
		}
		p.q.patterns = append(p.q.patterns, pat)
	}
}

func (p *queryParser) peekPredicate() bool {
	return p.pos+1 < len(p.input) && p.input[p.pos] == '(' && p.input[p.pos+1] == '#'
}

// parseNode parses one node pattern at the given depth: (type ...),
// [alternatives], "literal", or the bare wildcard _. A trailing capture is
// attached to the node's step.
func (p *queryParser) parseNode(depth int) ([]QueryStep, []QueryPredicate, error) {
	var (
		steps []QueryStep
		preds []QueryPredicate
		err   error
	)
	switch ch := p.input[p.pos]; {
	case ch == '(':
		steps, preds, err = p.parseParenthesized(depth)
	case ch == '[':
		steps, err = p.parseAlternation(depth)
	case ch == '"':
		start := p.pos
		var text string
		if text, err = p.readString(); err == nil && !p.hasAnonymous(text) {
			err = p.errorAt(start, "unknown node type %q", text)
		}
		steps = []QueryStep{{captureID: -1, depth: depth, textMatch: text}}
	case ch == '_':
		p.pos++
		steps = []QueryStep{{captureID: -1, depth: depth}}
	default:
		return nil, nil, p.errorf("unexpected character %q", string(ch))
	}
	if err != nil {
		return nil, nil, err
	}

	p.skipWhitespaceAndComments()
	if p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '@':
			name, err := p.readCapture()
			if err != nil {
				return nil, nil, err
			}
			steps[0].captureID = p.ensureCapture(name)
		case '*', '+', '?':
			return nil, nil, p.errorf("quantifier %q is not supported", string(p.input[p.pos]))
		}
	}
	return steps, preds, nil
}

// parseParenthesized parses (type child* field: child* !field*).
func (p *queryParser) parseParenthesized(depth int) ([]QueryStep, []QueryPredicate, error) {
	open := p.pos
	p.pos++ // consume '('
	p.skipWhitespaceAndComments()
	if p.pos < len(p.input) {
		if ch := p.input[p.pos]; (ch == '(' && !p.peekPredicate()) || ch == '[' || ch == '"' {
			return p.parseGroup(open, depth)
		}
	}

	typeStart := p.pos
	step := QueryStep{captureID: -1, depth: depth}
	if p.pos < len(p.input) && p.input[p.pos] == '_' && (p.pos+1 >= len(p.input) || !isIdentPart(p.input[p.pos+1])) {
		p.pos++
		step.isNamed = true
	} else {
		nodeType, err := p.readIdentifier()
		if err != nil {
			return nil, nil, p.errorAt(typeStart, "expected node type after '('")
		}
		sym, isNamed, err := p.resolveSymbol(nodeType, typeStart)
		if err != nil {
			return nil, nil, err
		}
		step.symbol, step.isNamed = sym, isNamed
	}

	steps := []QueryStep{step}
	var preds []QueryPredicate
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.input) {
			return nil, nil, p.errorf("unexpected end of input, expected ')'")
		}
		ch := p.input[p.pos]
		switch {
		case ch == ')':
			p.pos++
			return steps, preds, nil

		case p.peekPredicate():
			pred, err := p.parsePredicate()
			if err != nil {
				return nil, nil, err
			}
			preds = append(preds, pred)

		case ch == '!':
			p.pos++
			nameStart := p.pos
			name, err := p.readIdentifier()
			if err != nil {
				return nil, nil, p.errorAt(nameStart, "expected field name after '!'")
			}
			fid, err := p.resolveField(name, nameStart)
			if err != nil {
				return nil, nil, err
			}
			steps[0].negatedFields = append(steps[0].negatedFields, fid)

		case ch == '(' || ch == '[' || ch == '"' || ch == '_' && !p.identFollows():
			child, childPreds, err := p.parseNode(depth + 1)
			if err != nil {
				return nil, nil, err
			}
			steps = append(steps, child...)
			preds = append(preds, childPreds...)

		case isIdentStart(ch):
			nameStart := p.pos
			name, err := p.readIdentifier()
			if err != nil {
				return nil, nil, err
			}
			p.skipWhitespaceAndComments()
			if p.pos >= len(p.input) || p.input[p.pos] != ':' {
				return nil, nil, p.errorAt(nameStart, "unexpected identifier %q", name)
			}
			p.pos++ // consume ':'
			p.skipWhitespaceAndComments()
			fid, err := p.resolveField(name, nameStart)
			if err != nil {
				return nil, nil, err
			}
			if p.pos >= len(p.input) {
				return nil, nil, p.errorf("expected child pattern after field %q", name)
			}
			child, childPreds, err := p.parseNode(depth + 1)
			if err != nil {
				return nil, nil, err
			}
			child[0].field = fid
			steps = append(steps, child...)
			preds = append(preds, childPreds...)

		default:
			return nil, nil, p.errorf("unexpected character %q", string(ch))
		}
	}
}

// parseGroup parses ((pattern) (#predicate ...)*), a single pattern
// grouped with its predicates. The opening '(' is already consumed.
func (p *queryParser) parseGroup(open, depth int) ([]QueryStep, []QueryPredicate, error) {
	steps, preds, err := p.parseNode(depth)
	if err != nil {
		return nil, nil, err
	}
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.input) {
			return nil, nil, p.errorAt(open, "unterminated group")
		}
		switch {
		case p.input[p.pos] == ')':
			p.pos++
			return steps, preds, nil
		case p.peekPredicate():
			pred, err := p.parsePredicate()
			if err != nil {
				return nil, nil, err
			}
			preds = append(preds, pred)
		default:
			return nil, nil, p.errorf("sibling sequences are not supported")
		}
	}
}

// identFollows reports whether the '_' at the cursor starts a longer
// identifier such as a field name.
func (p *queryParser) identFollows() bool {
	return p.pos+1 < len(p.input) && isIdentPart(p.input[p.pos+1])
}

// parseAlternation parses [...] alternation syntax.
func (p *queryParser) parseAlternation(depth int) ([]QueryStep, error) {
	open := p.pos
	p.pos++ // consume '['
	var alts []alternativeSymbol
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.input) {
			return nil, p.errorf("unexpected end of input in alternation")
		}
		switch p.input[p.pos] {
		case ']':
			p.pos++
			if len(alts) == 0 {
				return nil, p.errorAt(open, "empty alternation")
			}
			return []QueryStep{{captureID: -1, depth: depth, alternatives: alts}}, nil
		case '(':
			p.pos++
			p.skipWhitespaceAndComments()
			typeStart := p.pos
			var alt alternativeSymbol
			if p.pos < len(p.input) && p.input[p.pos] == '_' && !p.identFollows() {
				p.pos++
				alt.isNamed = true
			} else {
				nodeType, err := p.readIdentifier()
				if err != nil {
					return nil, p.errorAt(typeStart, "expected node type in alternation")
				}
				sym, isNamed, err := p.resolveSymbol(nodeType, typeStart)
				if err != nil {
					return nil, err
				}
				alt.symbol, alt.isNamed = sym, isNamed
			}
			p.skipWhitespaceAndComments()
			if p.pos >= len(p.input) || p.input[p.pos] != ')' {
				return nil, p.errorf("expected ')' in alternation")
			}
			p.pos++
			alts = append(alts, alt)
		case '"':
			start := p.pos
			text, err := p.readString()
			if err != nil {
				return nil, err
			}
			if !p.hasAnonymous(text) {
				return nil, p.errorAt(start, "unknown node type %q", text)
			}
			alts = append(alts, alternativeSymbol{textMatch: text})
		default:
			return nil, p.errorf("unexpected character %q in alternation", string(p.input[p.pos]))
		}
	}
}

func (p *queryParser) parsePredicate() (QueryPredicate, error) {
	start := p.pos
	p.pos++ // consume '('
	p.skipWhitespaceAndComments()

	name, err := p.readPredicateName()
	if err != nil {
		return QueryPredicate{}, err
	}

	type predicateArg struct {
		text      string
		isCapture bool
	}
	var args []predicateArg
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.input) {
			return QueryPredicate{}, p.errorf("expected ')' to close predicate")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			break
		}
		text, isCapture, err := p.readPredicateArg()
		if err != nil {
			return QueryPredicate{}, err
		}
		args = append(args, predicateArg{text, isCapture})
	}
	if len(args) < 2 {
		return QueryPredicate{}, p.errorAt(start, "%s needs at least two arguments", name)
	}
	if !args[0].isCapture {
		return QueryPredicate{}, p.errorAt(start, "first argument of %s must be a capture", name)
	}

	pred := QueryPredicate{leftCapture: args[0].text}
	switch name {
	case "#eq?", "#not-eq?":
		pred.kind = predicateEq
		if name == "#not-eq?" {
			pred.kind = predicateNotEq
		}
		if len(args) != 2 {
			return QueryPredicate{}, p.errorAt(start, "%s takes two arguments", name)
		}
		if args[1].isCapture {
			pred.rightCapture = args[1].text
		} else {
			pred.literals = []string{args[1].text}
		}
	case "#match?", "#not-match?":
		pred.kind = predicateMatch
		if name == "#not-match?" {
			pred.kind = predicateNotMatch
		}
		if len(args) != 2 || args[1].isCapture {
			return QueryPredicate{}, p.errorAt(start, "%s second argument must be a string literal", name)
		}
		rx, err := regexp.Compile(args[1].text)
		if err != nil {
			return QueryPredicate{}, &PatternError{Offset: start, Message: fmt.Sprintf("invalid regex in %s: %v", name, err), Err: err}
		}
		pred.literals = []string{args[1].text}
		pred.regex = rx
	case "#any-of?":
		pred.kind = predicateAnyOf
		for _, a := range args[1:] {
			if a.isCapture {
				return QueryPredicate{}, p.errorAt(start, "#any-of? values must be string literals")
			}
			pred.literals = append(pred.literals, a.text)
		}
	default:
		return QueryPredicate{}, p.errorAt(start, "unsupported predicate %q", name)
	}
	return pred, nil
}

func (p *queryParser) validatePatternPredicates(pat *Pattern) error {
	if len(pat.predicates) == 0 {
		return nil
	}
	captureSet := make(map[string]bool)
	for _, s := range pat.steps {
		if s.captureID >= 0 && s.captureID < len(p.q.captures) {
			captureSet[p.q.captures[s.captureID]] = true
		}
	}
	for _, pred := range pat.predicates {
		if !captureSet[pred.leftCapture] {
			return p.errorAt(pat.offset, "predicate references unknown capture @%s", pred.leftCapture)
		}
		if pred.rightCapture != "" && !captureSet[pred.rightCapture] {
			return p.errorAt(pat.offset, "predicate references unknown capture @%s", pred.rightCapture)
		}
	}
	return nil
}

func (p *queryParser) readPredicateName() (string, error) {
	if p.pos >= len(p.input) || p.input[p.pos] != '#' {
		return "", p.errorf("expected predicate name")
	}
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ')' || ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos], nil
}

func (p *queryParser) readPredicateArg() (arg string, isCapture bool, err error) {
	switch p.input[p.pos] {
	case '@':
		name, err := p.readCapture()
		if err != nil {
			return "", false, err
		}
		return name, true, nil
	case '"':
		text, err := p.readString()
		if err != nil {
			return "", false, err
		}
		return text, false, nil
	default:
		return "", false, p.errorf("expected capture or string literal in predicate")
	}
}

// readIdentifier reads a node type, field, or capture name. Identifiers
// can contain letters, digits, underscores, dots, and hyphens.
func (p *queryParser) readIdentifier() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected identifier")
	}
	return p.input[start:p.pos], nil
}

// readCapture reads a @capture_name token. It consumes the '@' and the name.
func (p *queryParser) readCapture() (string, error) {
	p.pos++ // consume '@'
	name, err := p.readIdentifier()
	if err != nil {
		return "", p.errorf("expected capture name after '@'")
	}
	return name, nil
}

// readString reads a quoted string like "let". Consumes the quotes.
func (p *queryParser) readString() (string, error) {
	start := p.pos
	p.pos++ // consume opening '"'
	var sb strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\\' && p.pos+1 < len(p.input) {
			p.pos++
			switch p.input[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		if ch == '"' {
			p.pos++
			return sb.String(), nil
		}
		sb.WriteByte(ch)
		p.pos++
	}
	return "", p.errorAt(start, "unterminated string")
}

// skipWhitespaceAndComments skips whitespace and ;-style line comments.
func (p *queryParser) skipWhitespaceAndComments() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == ';' {
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		return
	}
}

// resolveSymbol looks up a node type name. Named symbols win over
// anonymous ones of the same name, as in (null) vs "null".
func (p *queryParser) resolveSymbol(name string, at int) (Symbol, bool, error) {
	sym, ok := p.lang.SymbolByName(name)
	if !ok || (!p.lang.IsVisible(sym) && sym != ErrorSymbol) {
		return 0, false, p.errorAt(at, "unknown node type %q", name)
	}
	return sym, p.lang.IsNamed(sym), nil
}

func (p *queryParser) hasAnonymous(name string) bool {
	p.lang.buildLookups()
	_, ok := p.lang.anonIndex[name]
	return ok
}

func (p *queryParser) resolveField(name string, at int) (FieldID, error) {
	fid, ok := p.lang.FieldByName(name)
	if !ok {
		return 0, p.errorAt(at, "unknown field name %q", name)
	}
	return fid, nil
}

// ensureCapture returns the index for a capture name, adding it if new.
func (p *queryParser) ensureCapture(name string) int {
	for i, cn := range p.q.captures {
		if cn == name {
			return i
		}
	}
	p.q.captures = append(p.q.captures, name)
	return len(p.q.captures) - 1
}

// isIdentStart reports whether a byte can start an identifier.
func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	r := rune(ch)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || ch == '_' || ch == '.' || ch == '-'
}
