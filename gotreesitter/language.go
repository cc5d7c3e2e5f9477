// Package gotreesitter implements a pure Go incremental parsing runtime in
// the style of tree-sitter.
//
// This file defines the compiled language description: symbol metadata,
// the deterministic parse table, field maps, and the literal-token DFA.
// A Language is produced by the grammargen compiler and is read-only
// once built, so it can be shared by any number of parsers.
package gotreesitter

import "sync"

// RuntimeVersion is the table layout version this runtime understands.
const RuntimeVersion uint32 = 1

// Symbol is a grammar symbol ID (terminal or nonterminal).
type Symbol uint16

// StateID is a parser state index.
type StateID uint16

// FieldID is a named field index. Zero means "no field".
type FieldID uint16

// ParseActionType identifies the kind of parse action.
type ParseActionType uint8

const (
	// ParseActionError marks the absence of an action.
	ParseActionError ParseActionType = iota
	ParseActionShift
	ParseActionReduce
	ParseActionAccept
)

func (t ParseActionType) String() string {
	switch t {
	case ParseActionShift:
		return "shift"
	case ParseActionReduce:
		return "reduce"
	case ParseActionAccept:
		return "accept"
	default:
		return "error"
	}
}

// ParseAction is a single parser action from the parse table.
type ParseAction struct {
	Type         ParseActionType
	State        StateID // target state (shift, and goto entries for nonterminals)
	Symbol       Symbol  // reduced symbol (reduce)
	ChildCount   uint8   // children consumed (reduce)
	ProductionID uint16  // which production (reduce)
}

// LexState is one state in the table-driven literal-token DFA.
type LexState struct {
	AcceptToken Symbol // 0 if this state doesn't accept
	Transitions []LexTransition
	Default     int // default next state (-1 if none)
}

// LexTransition maps a character range to a next state.
type LexTransition struct {
	Lo, Hi    rune // inclusive character range
	NextState int
}

// SymbolMetadata holds display information about a symbol.
type SymbolMetadata struct {
	Name    string
	Visible bool
	Named   bool
}

// FieldMapEntry maps a child index to a field name.
type FieldMapEntry struct {
	FieldID    FieldID
	ChildIndex uint8
}

// Language holds all data needed to parse a specific language.
type Language struct {
	Name    string
	Version uint32

	// Counts
	SymbolCount       uint32
	TokenCount        uint32 // terminals, including the end symbol 0
	StateCount        uint32
	FieldCount        uint32
	ProductionIDCount uint32

	// Symbol metadata
	SymbolNames    []string
	SymbolMetadata []SymbolMetadata
	FieldNames     []string // index 0 is ""

	// ParseTable is dense: [state][symbol] -> index into ParseActions.
	// Index 0 means no action. Nonterminal columns hold goto entries,
	// encoded as shift actions.
	ParseTable   [][]uint16
	ParseActions []ParseAction

	// LexStates is a longest-match DFA over the grammar's punctuation and
	// operator terminals.
	LexStates []LexState

	// Field mapping
	FieldMapSlices  [][2]uint16 // [production_id] -> (index, length)
	FieldMapEntries []FieldMapEntry

	// ProductionLHS is the reduced symbol of each production.
	ProductionLHS []Symbol

	// InitialState is the state every statement chunk starts from.
	InitialState StateID

	// RootSymbol is the symbol of the tree root. Its rule is a repetition
	// whose items are parsed one at a time from InitialState.
	RootSymbol Symbol

	// TokenSourceFactory builds the token source used by Parser.Parse.
	TokenSourceFactory func(source []byte, lang *Language) TokenSource

	// Trivia reports comment spans inside a run of skipped bytes.
	Trivia TriviaScanner

	lookupOnce    sync.Once
	namedIndex    map[string]Symbol
	anonIndex     map[string]Symbol
	tokensByName  map[string][]Symbol
	fieldIndex    map[string]FieldID
	keywordSymbol map[string]Symbol
}

// CompatibleWithRuntime reports whether the table layout matches this
// runtime.
func (l *Language) CompatibleWithRuntime() bool {
	return l != nil && l.Version == RuntimeVersion
}

func (l *Language) buildLookups() {
	l.lookupOnce.Do(func() {
		l.namedIndex = make(map[string]Symbol)
		l.anonIndex = make(map[string]Symbol)
		l.tokensByName = make(map[string][]Symbol)
		l.fieldIndex = make(map[string]FieldID, len(l.FieldNames))
		l.keywordSymbol = make(map[string]Symbol)
		for i, name := range l.SymbolNames {
			sym := Symbol(i)
			named := i < len(l.SymbolMetadata) && l.SymbolMetadata[i].Named
			if named {
				if _, ok := l.namedIndex[name]; !ok {
					l.namedIndex[name] = sym
				}
			} else if _, ok := l.anonIndex[name]; !ok {
				l.anonIndex[name] = sym
			}
			if uint32(i) < l.TokenCount && i > 0 {
				l.tokensByName[name] = append(l.tokensByName[name], sym)
				if !named && isWord(name) {
					l.keywordSymbol[name] = sym
				}
			}
		}
		for i, name := range l.FieldNames {
			if i == 0 {
				continue
			}
			l.fieldIndex[name] = FieldID(i)
		}
	})
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// SymbolByName returns the symbol with the given name. Named symbols are
// preferred over anonymous ones when both exist.
func (l *Language) SymbolByName(name string) (Symbol, bool) {
	if name == "ERROR" {
		return ErrorSymbol, true
	}
	l.buildLookups()
	if sym, ok := l.namedIndex[name]; ok {
		return sym, true
	}
	sym, ok := l.anonIndex[name]
	return sym, ok
}

// NamedSymbolByName looks up a named symbol only.
func (l *Language) NamedSymbolByName(name string) (Symbol, bool) {
	if name == "ERROR" {
		return ErrorSymbol, true
	}
	l.buildLookups()
	sym, ok := l.namedIndex[name]
	return sym, ok
}

// TokenSymbolsByName returns every terminal symbol with the given name.
func (l *Language) TokenSymbolsByName(name string) []Symbol {
	l.buildLookups()
	return l.tokensByName[name]
}

// KeywordSymbol returns the anonymous terminal for a reserved word.
func (l *Language) KeywordSymbol(word string) (Symbol, bool) {
	l.buildLookups()
	sym, ok := l.keywordSymbol[word]
	return sym, ok
}

// FieldByName returns the field ID for a field name.
func (l *Language) FieldByName(name string) (FieldID, bool) {
	l.buildLookups()
	id, ok := l.fieldIndex[name]
	return id, ok
}

// SymbolName returns the display name of sym.
func (l *Language) SymbolName(sym Symbol) string {
	if sym == ErrorSymbol {
		return "ERROR"
	}
	if int(sym) < len(l.SymbolNames) {
		return l.SymbolNames[sym]
	}
	return ""
}

// IsNamed reports whether sym is a named symbol.
func (l *Language) IsNamed(sym Symbol) bool {
	if sym == ErrorSymbol {
		return true
	}
	if int(sym) < len(l.SymbolMetadata) {
		return l.SymbolMetadata[sym].Named
	}
	return false
}

// IsVisible reports whether nodes of sym appear in trees.
func (l *Language) IsVisible(sym Symbol) bool {
	if sym == ErrorSymbol {
		return true
	}
	if int(sym) < len(l.SymbolMetadata) {
		return l.SymbolMetadata[sym].Visible
	}
	return false
}

// IsTerminal reports whether sym is a token.
func (l *Language) IsTerminal(sym Symbol) bool {
	return sym == ErrorSymbol || uint32(sym) < l.TokenCount
}

// Action returns the parse action for (state, sym).
func (l *Language) Action(state StateID, sym Symbol) (ParseAction, bool) {
	if int(state) >= len(l.ParseTable) {
		return ParseAction{}, false
	}
	row := l.ParseTable[state]
	if int(sym) >= len(row) {
		return ParseAction{}, false
	}
	idx := row[sym]
	if idx == 0 || int(idx) >= len(l.ParseActions) {
		return ParseAction{}, false
	}
	act := l.ParseActions[idx]
	return act, act.Type != ParseActionError
}

// Goto returns the state reached after reducing to nonterminal sym.
func (l *Language) Goto(state StateID, sym Symbol) (StateID, bool) {
	act, ok := l.Action(state, sym)
	if !ok || act.Type != ParseActionShift {
		return 0, false
	}
	return act.State, true
}

// FieldsForProduction returns the field map entries of a production.
func (l *Language) FieldsForProduction(productionID uint16) []FieldMapEntry {
	if int(productionID) >= len(l.FieldMapSlices) {
		return nil
	}
	fm := l.FieldMapSlices[productionID]
	start, length := int(fm[0]), int(fm[1])
	if length == 0 || start+length > len(l.FieldMapEntries) {
		return nil
	}
	return l.FieldMapEntries[start : start+length]
}

// CanStartChunk reports whether sym may begin a new top-level item.
func (l *Language) CanStartChunk(sym Symbol) bool {
	if sym == 0 || sym == ErrorSymbol {
		return false
	}
	_, ok := l.Action(l.InitialState, sym)
	return ok
}
