package grammargen

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/odvcencio/parsley/gotreesitter"
)

var (
	// ErrUndefinedSymbol is returned when a rule refers to a name that is
	// neither a rule nor a token.
	ErrUndefinedSymbol = errors.New("grammargen: undefined symbol")
	// ErrInvalidRoot is returned when the first rule is not a repetition of
	// a single rule, or when another rule refers to the root.
	ErrInvalidRoot = errors.New("grammargen: root rule must be repeat(symbol)")
	// ErrDuplicateName is returned when a rule or token is declared twice.
	ErrDuplicateName = errors.New("grammargen: duplicate name")
	// ErrTooManyAlternatives is returned when flattening a rule produces
	// more alternatives than the configured limit.
	ErrTooManyAlternatives = errors.New("grammargen: too many alternatives")
	// ErrTableOverflow is returned when the tables exceed runtime limits.
	ErrTableOverflow = errors.New("grammargen: table exceeds runtime limits")
)

// Grammar is a declarative grammar. The first rule is the root and must be
// Repeat(Sym(item)): the parser reads the input as a sequence of items,
// each parsed from the initial state.
type Grammar struct {
	Name  string
	Rules []RuleDef
	// Tokens are the named tokens supplied by the token source, in symbol
	// order. Literal tokens come from the Str rules.
	Tokens []string
}

// RuleDef binds a rule name to its definition. Names starting with '_'
// are hidden: their nodes are spliced into the parent.
type RuleDef struct {
	Name string
	Rule Rule
}

// Production is a flattened grammar alternative, as listed in reports.
type Production struct {
	Index  int      `json:"index" yaml:"index"`
	LHS    string   `json:"lhs" yaml:"lhs"`
	RHS    []string `json:"rhs" yaml:"rhs"`
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Prec   int      `json:"prec" yaml:"prec"`
	Assoc  Assoc    `json:"assoc" yaml:"assoc"`
}

func (p Production) String() string {
	var b strings.Builder
	b.WriteString(p.LHS)
	b.WriteString(" ->")
	if len(p.RHS) == 0 {
		b.WriteString(" ε")
	}
	for i, s := range p.RHS {
		b.WriteByte(' ')
		if i < len(p.Fields) && p.Fields[i] != "" {
			b.WriteString(p.Fields[i])
			b.WriteByte(':')
		}
		b.WriteString(s)
	}
	return b.String()
}

// MarshalText renders the associativity by name.
func (a Assoc) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Compiled is the result of compiling a Grammar.
type Compiled struct {
	Language    *gotreesitter.Language
	NodeTypes   []gotreesitter.NodeTypeInfo
	Conflicts   []Conflict
	Productions []Production
	States      int
}

// Option configures Compile.
type Option func(*compiler)

// WithLogger logs conflict resolutions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxAlternatives bounds the alternatives a single rule may flatten
// into.
func WithMaxAlternatives(n int) Option {
	return func(c *compiler) {
		if n > 0 {
			c.maxAlts = n
		}
	}
}

const defaultMaxAlternatives = 1024

// Compile flattens g, builds its LALR(1) tables, resolves conflicts, and
// derives the node-type schema. The schema is checked against the emitted
// language before returning.
func Compile(g *Grammar, opts ...Option) (*Compiled, error) {
	c := &compiler{
		g:       g,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxAlts: defaultMaxAlternatives,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.declare(); err != nil {
		return nil, err
	}
	if err := c.flatten(); err != nil {
		return nil, err
	}
	c.computeFirst()
	c.buildAutomaton()
	if len(c.states) >= 1<<16 {
		return nil, fmt.Errorf("%w: %d states", ErrTableOverflow, len(c.states))
	}
	c.buildActions()

	lang := c.emitLanguage()
	types := c.nodeTypes()
	if err := gotreesitter.ValidateNodeTypes(lang, types); err != nil {
		return nil, fmt.Errorf("grammargen: %s: %w", g.Name, err)
	}
	c.logger.Debug("grammargen: compiled",
		"grammar", g.Name,
		"symbols", len(c.symbols),
		"productions", len(c.prods)-1,
		"states", len(c.states),
		"conflicts", len(c.conflicts))

	return &Compiled{
		Language:    lang,
		NodeTypes:   types,
		Conflicts:   c.conflicts,
		Productions: c.productions(),
		States:      len(c.states),
	}, nil
}

func (c *compiler) productions() []Production {
	out := make([]Production, 0, len(c.prods)-1)
	for _, p := range c.prods[:len(c.prods)-1] {
		out = append(out, c.describe(p))
	}
	return out
}

func (c *compiler) describe(p production) Production {
	d := Production{Index: p.index, Prec: p.prec, Assoc: p.assoc}
	if p.lhs >= 0 {
		d.LHS = c.symbols[p.lhs].name
	} else {
		d.LHS = "start"
	}
	hasField := false
	for i, s := range p.rhs {
		d.RHS = append(d.RHS, c.displayName(s))
		if p.fields[i] != "" {
			hasField = true
		}
	}
	if hasField {
		d.Fields = append([]string(nil), p.fields...)
	}
	return d
}

// displayName quotes literal terminals.
func (c *compiler) displayName(sym int) string {
	s := c.symbols[sym]
	if s.kind == symLiteral {
		return fmt.Sprintf("%q", s.name)
	}
	return s.name
}
