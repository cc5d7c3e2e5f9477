// Package grammargen compiles declarative grammar rules into the parse
// tables, literal-token DFA, and node-type schema used by the gotreesitter
// runtime.
//
// Grammars are written with a small rule DSL modelled on tree-sitter's
// grammar.js (Seq, Choice, Repeat, Field, Prec, ...). Compile flattens the
// rules into productions, builds an LALR(1) automaton, and resolves every
// conflict by precedence, associativity, and declaration order, recording
// each resolution in the result.
package grammargen

// Rule is one node of a grammar rule expression.
type Rule interface {
	isRule()
}

// Assoc is the associativity of a precedence annotation.
type Assoc uint8

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
)

func (a Assoc) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	default:
		return "none"
	}
}

// BlankRule matches the empty string.
type BlankRule struct{}

// StringRule matches a literal token.
type StringRule struct {
	Value string
}

// SymbolRule refers to another rule or to a named token.
type SymbolRule struct {
	Name string
}

// SeqRule matches its members in order.
type SeqRule struct {
	Members []Rule
}

// ChoiceRule matches any one of its members. Earlier members are earlier
// in declaration order.
type ChoiceRule struct {
	Members []Rule
}

// RepeatRule matches its content zero or more times.
type RepeatRule struct {
	Content Rule
}

// Repeat1Rule matches its content one or more times.
type Repeat1Rule struct {
	Content Rule
}

// FieldRule names the child produced by its content.
type FieldRule struct {
	Name    string
	Content Rule
}

// PrecRule gives the productions of its content a precedence and
// associativity. An inner PrecRule overrides an outer one.
type PrecRule struct {
	Value   int
	Assoc   Assoc
	Content Rule
}

func (BlankRule) isRule()   {}
func (StringRule) isRule()  {}
func (SymbolRule) isRule()  {}
func (SeqRule) isRule()     {}
func (ChoiceRule) isRule()  {}
func (RepeatRule) isRule()  {}
func (Repeat1Rule) isRule() {}
func (FieldRule) isRule()   {}
func (PrecRule) isRule()    {}

// Blank returns a rule matching nothing.
func Blank() Rule { return BlankRule{} }

// Str returns a literal token rule.
func Str(s string) Rule { return StringRule{Value: s} }

// Sym returns a reference to the rule or token called name.
func Sym(name string) Rule { return SymbolRule{Name: name} }

// Seq returns a sequence rule.
func Seq(members ...Rule) Rule { return SeqRule{Members: members} }

// Choice returns an alternation rule.
func Choice(members ...Rule) Rule { return ChoiceRule{Members: members} }

// Optional matches r or nothing; the non-empty alternative comes first.
func Optional(r Rule) Rule { return Choice(r, Blank()) }

// Repeat matches r zero or more times.
func Repeat(r Rule) Rule { return RepeatRule{Content: r} }

// Repeat1 matches r one or more times.
func Repeat1(r Rule) Rule { return Repeat1Rule{Content: r} }

// Field names the child matched by r.
func Field(name string, r Rule) Rule { return FieldRule{Name: name, Content: r} }

// Prec sets a precedence with no associativity.
func Prec(value int, r Rule) Rule { return PrecRule{Value: value, Content: r} }

// PrecLeft sets a left-associative precedence.
func PrecLeft(value int, r Rule) Rule { return PrecRule{Value: value, Assoc: AssocLeft, Content: r} }

// PrecRight sets a right-associative precedence.
func PrecRight(value int, r Rule) Rule { return PrecRule{Value: value, Assoc: AssocRight, Content: r} }

// CommaSep matches zero or more r separated by commas, with an optional
// trailing comma.
func CommaSep(r Rule) Rule {
	return Optional(CommaSep1(r))
}

// CommaSep1 matches one or more r separated by commas, with an optional
// trailing comma.
func CommaSep1(r Rule) Rule {
	return Seq(r, Repeat(Seq(Str(","), r)), Optional(Str(",")))
}
