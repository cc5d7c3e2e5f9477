package grammars

import (
	gg "github.com/odvcencio/parsley/grammargen"
)

// Binding strength of Parsley operators. Higher binds tighter.
const (
	precAssign = iota + 1
	precNullish
	precOr
	precAnd
	precCompare
	precRegexMatch
	precRange
	precAdd
	precMult
	precConcat
	precUnary
	precCall
	precMember
)

// parsleyTokens are the named tokens produced by the Parsley token source,
// in symbol order.
var parsleyTokens = []string{
	"identifier",
	"number",
	"escape_sequence",
	"string_content",
	"regex",
	"money",
	"datetime_literal",
	"time_now_literal",
	"duration_literal",
	"connection_literal",
	"schema_literal",
	"table_literal",
	"query_literal",
	"context_literal",
	"stdlib_import",
	"path_literal",
	"url_literal",
	"stdio_literal",
	"tag_name",
	"attribute_name",
	"tag_text",
}

func binaryGroup(prec int, assoc gg.Assoc, ops ...string) gg.Rule {
	choices := make([]gg.Rule, len(ops))
	for i, op := range ops {
		choices[i] = gg.Str(op)
	}
	return gg.PrecRule{Value: prec, Assoc: assoc, Content: gg.Seq(
		gg.Field("left", gg.Sym("_expression")),
		gg.Field("operator", gg.Choice(choices...)),
		gg.Field("right", gg.Sym("_expression")),
	)}
}

// ParsleyGrammar returns the Parsley rule set. Pattern rules are declared
// before expression rules so that an ambiguous for-loop head reads as a
// destructuring pattern.
func ParsleyGrammar() *gg.Grammar {
	return &gg.Grammar{
		Name:   "parsley",
		Tokens: parsleyTokens,
		Rules: []gg.RuleDef{
			{Name: "source_file", Rule: gg.Repeat(gg.Sym("_statement"))},

			// Statements
			{Name: "_statement", Rule: gg.Choice(
				gg.Sym("let_statement"),
				gg.Sym("export_statement"),
				gg.Sym("return_statement"),
				gg.Sym("check_statement"),
				gg.Sym("expression_statement"),
			)},
			{Name: "let_statement", Rule: gg.Seq(
				gg.Str("let"),
				gg.Field("pattern", gg.Sym("_pattern")),
				gg.Str("="),
				gg.Field("value", gg.Sym("_expression")),
			)},
			{Name: "export_statement", Rule: gg.Seq(
				gg.Str("export"),
				gg.Optional(gg.Str("computed")),
				gg.Field("name", gg.Sym("identifier")),
				gg.Str("="),
				gg.Field("value", gg.Sym("_expression")),
			)},
			{Name: "return_statement", Rule: gg.PrecRight(0, gg.Seq(gg.Str("return"), gg.Optional(gg.Sym("_expression"))))},
			{Name: "check_statement", Rule: gg.PrecRight(0, gg.Seq(
				gg.Str("check"),
				gg.Field("condition", gg.Sym("_expression")),
				gg.Optional(gg.Field("body", gg.Sym("block"))),
			))},
			{Name: "expression_statement", Rule: gg.Sym("_expression")},
			{Name: "block", Rule: gg.Seq(gg.Str("{"), gg.Repeat(gg.Sym("_statement")), gg.Str("}"))},

			// Patterns
			{Name: "_pattern", Rule: gg.Choice(gg.Sym("identifier"), gg.Sym("array_pattern"), gg.Sym("dictionary_pattern"), gg.Str("_"))},
			{Name: "array_pattern", Rule: gg.Seq(
				gg.Str("["),
				gg.CommaSep(gg.Choice(gg.Sym("_pattern"), gg.Seq(gg.Str("..."), gg.Optional(gg.Sym("identifier"))))),
				gg.Str("]"),
			)},
			{Name: "dictionary_pattern", Rule: gg.Seq(
				gg.Str("{"),
				gg.CommaSep(gg.Choice(
					gg.Sym("identifier"),
					gg.Seq(gg.Field("key", gg.Sym("identifier")), gg.Str(":"), gg.Field("value", gg.Sym("_pattern"))),
					gg.Seq(gg.Str("..."), gg.Optional(gg.Sym("identifier"))),
				)),
				gg.Str("}"),
			)},

			// Expressions
			{Name: "_expression", Rule: gg.Choice(
				gg.Sym("_primary_expression"),
				gg.Sym("unary_expression"),
				gg.Sym("binary_expression"),
				gg.Sym("ternary_expression"),
				gg.Sym("assignment_expression"),
				gg.Sym("call_expression"),
				gg.Sym("index_expression"),
				gg.Sym("member_expression"),
				gg.Sym("function_expression"),
				gg.Sym("for_expression"),
				gg.Sym("if_expression"),
				gg.Sym("try_expression"),
				gg.Sym("import_expression"),
				gg.Sym("tag_expression"),
				gg.Sym("parenthesized_expression"),
			)},
			{Name: "_primary_expression", Rule: gg.Choice(
				gg.Sym("identifier"),
				gg.Sym("_literal"),
				gg.Sym("array_literal"),
				gg.Sym("dictionary_literal"),
			)},
			{Name: "parenthesized_expression", Rule: gg.Seq(gg.Str("("), gg.Sym("_expression"), gg.Str(")"))},
			{Name: "unary_expression", Rule: gg.PrecRight(precUnary, gg.Seq(
				gg.Field("operator", gg.Choice(gg.Str("-"), gg.Str("!"), gg.Str("not"))),
				gg.Field("operand", gg.Sym("_expression")),
			))},
			{Name: "binary_expression", Rule: gg.Choice(
				binaryGroup(precNullish, gg.AssocRight, "??"),
				binaryGroup(precOr, gg.AssocLeft, "or", "||"),
				binaryGroup(precAnd, gg.AssocLeft, "and", "&&"),
				binaryGroup(precCompare, gg.AssocLeft, "==", "!=", "<", ">", "<=", ">="),
				binaryGroup(precRegexMatch, gg.AssocLeft, "~", "!~"),
				binaryGroup(precRange, gg.AssocLeft, ".."),
				binaryGroup(precAdd, gg.AssocLeft, "+", "-"),
				binaryGroup(precMult, gg.AssocLeft, "*", "/", "%"),
				binaryGroup(precConcat, gg.AssocLeft, "++"),
				// file I/O
				binaryGroup(precCompare, gg.AssocLeft, "<==", "<=/=", "==>", "==>>", "=/=>", "=/=>>"),
				// database
				binaryGroup(precCompare, gg.AssocLeft, "<=?=>", "<=??=>", "<=!=>", "<=#=>"),
				// query DSL
				binaryGroup(precCompare, gg.AssocLeft, "|>", "|<", "?->", "??->", "?!->", "??!->", ".->", "<-"),
			)},
			{Name: "ternary_expression", Rule: gg.PrecRight(precNullish, gg.Seq(
				gg.Field("condition", gg.Sym("_expression")),
				gg.Str("?"),
				gg.Field("consequence", gg.Sym("_expression")),
				gg.Str(":"),
				gg.Field("alternative", gg.Sym("_expression")),
			))},
			{Name: "assignment_expression", Rule: gg.PrecRight(precAssign, gg.Seq(
				gg.Field("left", gg.Choice(gg.Sym("identifier"), gg.Sym("member_expression"), gg.Sym("index_expression"))),
				gg.Str("="),
				gg.Field("right", gg.Sym("_expression")),
			))},
			{Name: "call_expression", Rule: gg.Prec(precCall, gg.Seq(
				gg.Field("function", gg.Sym("_expression")),
				gg.Field("arguments", gg.Sym("arguments")),
			))},
			{Name: "arguments", Rule: gg.Seq(gg.Str("("), gg.CommaSep(gg.Choice(gg.Sym("_expression"), gg.Sym("spread_element"))), gg.Str(")"))},
			{Name: "spread_element", Rule: gg.Seq(gg.Str("..."), gg.Sym("_expression"))},
			{Name: "index_expression", Rule: gg.Prec(precMember, gg.Seq(
				gg.Field("object", gg.Sym("_expression")),
				gg.Str("["),
				gg.Choice(
					gg.Seq(gg.Field("start", gg.Optional(gg.Sym("_expression"))), gg.Str(":"), gg.Field("end", gg.Optional(gg.Sym("_expression")))),
					gg.Field("index", gg.Sym("_expression")),
				),
				gg.Str("]"),
			))},
			{Name: "member_expression", Rule: gg.Prec(precMember, gg.Seq(
				gg.Field("object", gg.Sym("_expression")),
				gg.Str("."),
				gg.Field("property", gg.Sym("identifier")),
			))},
			{Name: "function_expression", Rule: gg.Seq(
				gg.Choice(gg.Str("fn"), gg.Str("function")),
				gg.Field("parameters", gg.Sym("parameter_list")),
				gg.Field("body", gg.Sym("block")),
			)},
			{Name: "parameter_list", Rule: gg.Seq(
				gg.Str("("),
				gg.CommaSep(gg.Choice(
					gg.Sym("identifier"),
					gg.Seq(gg.Sym("identifier"), gg.Str("="), gg.Sym("_expression")),
					gg.Seq(gg.Str("..."), gg.Sym("identifier")),
				)),
				gg.Str(")"),
			)},
			{Name: "for_expression", Rule: gg.PrecRight(0, gg.Seq(
				gg.Str("for"),
				gg.Choice(
					gg.Seq(
						gg.Field("pattern", gg.Sym("_pattern")),
						gg.Str("in"),
						gg.Field("iterable", gg.Sym("_expression")),
						gg.Field("body", gg.Sym("block")),
					),
					gg.Field("iterable", gg.Sym("_expression")),
				),
			))},
			{Name: "if_expression", Rule: gg.Seq(
				gg.Str("if"),
				gg.Field("condition", gg.Sym("_expression")),
				gg.Field("consequence", gg.Sym("block")),
				gg.Optional(gg.Seq(gg.Str("else"), gg.Field("alternative", gg.Choice(gg.Sym("block"), gg.Sym("if_expression"))))),
			)},
			{Name: "try_expression", Rule: gg.Seq(gg.Str("try"), gg.Sym("_expression"))},
			{Name: "import_expression", Rule: gg.PrecRight(0, gg.Seq(
				gg.Str("import"),
				gg.Field("source", gg.Sym("_expression")),
				gg.Optional(gg.Seq(gg.Str("as"), gg.Field("alias", gg.Sym("identifier")))),
			))},

			// Literals
			{Name: "_literal", Rule: gg.Choice(
				gg.Sym("number"),
				gg.Sym("string"),
				gg.Sym("template_string"),
				gg.Sym("raw_string"),
				gg.Sym("regex"),
				gg.Sym("boolean"),
				gg.Sym("null"),
				gg.Sym("money"),
				gg.Sym("_at_literal"),
			)},
			{Name: "boolean", Rule: gg.Choice(gg.Str("true"), gg.Str("false"))},
			{Name: "null", Rule: gg.Str("null")},
			{Name: "string", Rule: gg.Seq(
				gg.Str(`"`),
				gg.Repeat(gg.Choice(gg.Sym("escape_sequence"), gg.Sym("interpolation"), gg.Sym("string_content"))),
				gg.Str(`"`),
			)},
			{Name: "template_string", Rule: gg.Seq(
				gg.Str("`"),
				gg.Repeat(gg.Choice(gg.Sym("escape_sequence"), gg.Sym("interpolation"), gg.Sym("string_content"))),
				gg.Str("`"),
			)},
			{Name: "raw_string", Rule: gg.Seq(
				gg.Str("'"),
				gg.Repeat(gg.Choice(gg.Sym("escape_sequence"), gg.Sym("raw_interpolation"), gg.Sym("string_content"))),
				gg.Str("'"),
			)},
			{Name: "interpolation", Rule: gg.Seq(gg.Str("{"), gg.Sym("_expression"), gg.Str("}"))},
			{Name: "raw_interpolation", Rule: gg.Seq(gg.Str("@{"), gg.Sym("_expression"), gg.Str("}"))},
			{Name: "_at_literal", Rule: gg.Choice(
				gg.Sym("datetime_literal"),
				gg.Sym("time_now_literal"),
				gg.Sym("duration_literal"),
				gg.Sym("connection_literal"),
				gg.Sym("schema_literal"),
				gg.Sym("table_literal"),
				gg.Sym("query_literal"),
				gg.Sym("context_literal"),
				gg.Sym("stdlib_import"),
				gg.Sym("path_literal"),
				gg.Sym("url_literal"),
				gg.Sym("path_template"),
				gg.Sym("stdio_literal"),
			)},
			{Name: "path_template", Rule: gg.Seq(
				gg.Str("@("),
				gg.Repeat(gg.Choice(gg.Sym("string_content"), gg.Sym("interpolation"))),
				gg.Str(")"),
			)},

			// Arrays and dictionaries
			{Name: "array_literal", Rule: gg.Seq(gg.Str("["), gg.CommaSep(gg.Choice(gg.Sym("_expression"), gg.Sym("spread_element"))), gg.Str("]"))},
			{Name: "dictionary_literal", Rule: gg.Seq(
				gg.Str("{"),
				gg.CommaSep(gg.Choice(gg.Sym("pair"), gg.Sym("shorthand_property"), gg.Sym("spread_element"), gg.Sym("computed_property"))),
				gg.Str("}"),
			)},
			{Name: "pair", Rule: gg.Seq(
				gg.Field("key", gg.Choice(gg.Sym("identifier"), gg.Sym("string"), gg.Sym("number"))),
				gg.Str(":"),
				gg.Field("value", gg.Sym("_expression")),
			)},
			{Name: "shorthand_property", Rule: gg.Prec(-1, gg.Sym("identifier"))},
			{Name: "computed_property", Rule: gg.Seq(
				gg.Str("["),
				gg.Field("key", gg.Sym("_expression")),
				gg.Str("]"),
				gg.Str(":"),
				gg.Field("value", gg.Sym("_expression")),
			)},

			// Tags. The lexer emits "<" as a tag opener only where an
			// operand may start.
			{Name: "tag_expression", Rule: gg.Prec(precMember+1, gg.Choice(
				gg.Sym("self_closing_tag"),
				gg.Seq(gg.Sym("open_tag"), gg.Repeat(gg.Sym("_tag_child")), gg.Sym("close_tag")),
			))},
			// Shared by both tag forms so their attribute lists are one
			// repetition.
			{Name: "_tag_start", Rule: gg.Seq(
				gg.Str("<"),
				gg.Field("name", gg.Sym("tag_name")),
				gg.Repeat(gg.Sym("tag_attribute")),
			)},
			{Name: "self_closing_tag", Rule: gg.Seq(gg.Sym("_tag_start"), gg.Str("/>"))},
			{Name: "open_tag", Rule: gg.Seq(gg.Sym("_tag_start"), gg.Str(">"))},
			{Name: "close_tag", Rule: gg.Seq(gg.Str("</"), gg.Field("name", gg.Sym("tag_name")), gg.Str(">"))},
			{Name: "tag_attribute", Rule: gg.Choice(
				gg.Seq(
					gg.Field("name", gg.Sym("attribute_name")),
					gg.Str("="),
					gg.Field("value", gg.Choice(gg.Sym("string"), gg.Sym("tag_embedded_expression"))),
				),
				gg.Field("name", gg.Sym("attribute_name")),
				gg.Sym("tag_spread_attribute"),
			)},
			{Name: "tag_embedded_expression", Rule: gg.Seq(gg.Str("{"), gg.Sym("_expression"), gg.Str("}"))},
			{Name: "tag_spread_attribute", Rule: gg.Seq(gg.Str("..."), gg.Sym("identifier"))},
			{Name: "_tag_child", Rule: gg.Choice(
				gg.Sym("tag_expression"),
				gg.Sym("tag_embedded_expression"),
				gg.Sym("string"),
				gg.Sym("tag_text"),
			)},
		},
	}
}
