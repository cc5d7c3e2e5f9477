package gotreesitter

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInconsistentSchema matches every *InconsistencyError.
var ErrInconsistentSchema = errors.New("node types: schema does not match language")

// InconsistencyError reports a mismatch between a node-type schema and the
// parse tables it claims to describe.
type InconsistencyError struct {
	Type   string
	Detail string
}

func (e *InconsistencyError) Error() string {
	if e.Type == "" {
		return "node types: " + e.Detail
	}
	return fmt.Sprintf("node types: %s: %s", e.Type, e.Detail)
}

func (e *InconsistencyError) Is(target error) bool { return target == ErrInconsistentSchema }

// NodeTypeInfo is one entry of a node-types.json document.
type NodeTypeInfo struct {
	Type     string                   `json:"type"`
	Named    bool                     `json:"named"`
	Fields   map[string]ChildTypeInfo `json:"fields,omitempty"`
	Children *ChildTypeInfo           `json:"children,omitempty"`
}

// ChildTypeInfo describes what may appear in a field or among a node's
// unfielded named children.
type ChildTypeInfo struct {
	Multiple bool          `json:"multiple"`
	Required bool          `json:"required"`
	Types    []NodeTypeRef `json:"types"`
}

// NodeTypeRef names a node type.
type NodeTypeRef struct {
	Type  string `json:"type"`
	Named bool   `json:"named"`
}

func (r NodeTypeRef) String() string {
	if r.Named {
		return r.Type
	}
	return fmt.Sprintf("%q", r.Type)
}

// ValidateNodeTypes checks that types lists exactly the visible symbols of
// lang, that every field it mentions is a field of lang and every field of
// lang is mentioned, and that every referenced type has an entry.
func ValidateNodeTypes(lang *Language, types []NodeTypeInfo) error {
	if lang == nil {
		return &InconsistencyError{Detail: "nil language"}
	}
	visible := make(map[NodeTypeRef]Symbol)
	for i, name := range lang.SymbolNames {
		sym := Symbol(i)
		if sym == 0 || !lang.IsVisible(sym) {
			continue
		}
		visible[NodeTypeRef{Type: name, Named: lang.IsNamed(sym)}] = sym
	}

	entries := make(map[NodeTypeRef]bool, len(types))
	usedFields := make(map[string]bool)
	for _, t := range types {
		ref := NodeTypeRef{Type: t.Type, Named: t.Named}
		if entries[ref] {
			return &InconsistencyError{Type: ref.String(), Detail: "duplicate entry"}
		}
		entries[ref] = true
		sym, ok := visible[ref]
		if !ok {
			return &InconsistencyError{Type: ref.String(), Detail: "no visible symbol"}
		}
		if lang.IsTerminal(sym) && (len(t.Fields) > 0 || t.Children != nil) {
			return &InconsistencyError{Type: ref.String(), Detail: "token has children"}
		}
		for name := range t.Fields {
			if _, ok := lang.FieldByName(name); !ok {
				return &InconsistencyError{Type: ref.String(), Detail: fmt.Sprintf("unknown field %q", name)}
			}
			usedFields[name] = true
		}
	}

	var missing []string
	for ref := range visible {
		if !entries[ref] {
			missing = append(missing, ref.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &InconsistencyError{Detail: fmt.Sprintf("symbols without entries: %v", missing)}
	}
	for _, name := range lang.FieldNames[min(1, len(lang.FieldNames)):] {
		if !usedFields[name] {
			return &InconsistencyError{Detail: fmt.Sprintf("field %q is not used by any entry", name)}
		}
	}

	check := func(owner string, info *ChildTypeInfo) error {
		if len(info.Types) == 0 {
			return &InconsistencyError{Type: owner, Detail: "empty type list"}
		}
		for _, r := range info.Types {
			if !entries[r] {
				return &InconsistencyError{Type: owner, Detail: fmt.Sprintf("references unknown type %s", r)}
			}
		}
		return nil
	}
	for _, t := range types {
		owner := NodeTypeRef{Type: t.Type, Named: t.Named}.String()
		for _, info := range t.Fields {
			if err := check(owner, &info); err != nil {
				return err
			}
		}
		if t.Children != nil {
			if err := check(owner, t.Children); err != nil {
				return err
			}
		}
	}
	return nil
}
