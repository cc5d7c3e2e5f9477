package grammargen

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the grammar in tree-sitter's grammar.json layout.
// Rules keep their declaration order.
func (g *Grammar) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	name, err := json.Marshal(g.Name)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"name":`)
	buf.Write(name)
	buf.WriteString(`,"rules":{`)
	for i, rd := range g.Rules {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rd.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(ruleJSON(rd.Rule))
		if err != nil {
			return nil, fmt.Errorf("grammargen: rule %q: %w", rd.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString(`},"externals":`)
	tokens := make([]map[string]string, 0, len(g.Tokens))
	for _, t := range g.Tokens {
		tokens = append(tokens, map[string]string{"type": "SYMBOL", "name": t})
	}
	ext, err := json.Marshal(tokens)
	if err != nil {
		return nil, err
	}
	buf.Write(ext)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GrammarJSON returns the grammar as indented grammar.json.
func GrammarJSON(g *Grammar) ([]byte, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

type jsonRule map[string]any

func ruleJSON(r Rule) jsonRule {
	switch r := r.(type) {
	case BlankRule:
		return jsonRule{"type": "BLANK"}
	case StringRule:
		return jsonRule{"type": "STRING", "value": r.Value}
	case SymbolRule:
		return jsonRule{"type": "SYMBOL", "name": r.Name}
	case SeqRule:
		return jsonRule{"type": "SEQ", "members": rulesJSON(r.Members)}
	case ChoiceRule:
		return jsonRule{"type": "CHOICE", "members": rulesJSON(r.Members)}
	case RepeatRule:
		return jsonRule{"type": "REPEAT", "content": ruleJSON(r.Content)}
	case Repeat1Rule:
		return jsonRule{"type": "REPEAT1", "content": ruleJSON(r.Content)}
	case FieldRule:
		return jsonRule{"type": "FIELD", "name": r.Name, "content": ruleJSON(r.Content)}
	case PrecRule:
		kind := "PREC"
		switch r.Assoc {
		case AssocLeft:
			kind = "PREC_LEFT"
		case AssocRight:
			kind = "PREC_RIGHT"
		}
		return jsonRule{"type": kind, "value": r.Value, "content": ruleJSON(r.Content)}
	}
	return jsonRule{"type": "BLANK"}
}

func rulesJSON(rs []Rule) []jsonRule {
	out := make([]jsonRule, len(rs))
	for i, r := range rs {
		out[i] = ruleJSON(r)
	}
	return out
}
