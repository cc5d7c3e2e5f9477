package grammars

import (
	"sort"

	"github.com/odvcencio/parsley/gotreesitter"
)

// ParseBackend describes how a language is lexed in this runtime.
type ParseBackend string

const (
	ParseBackendUnsupported ParseBackend = "unsupported"
	ParseBackendBasic       ParseBackend = "basic"
	ParseBackendTokenSource ParseBackend = "token_source"
)

// ParseSupport summarizes parser support status for one registered language.
type ParseSupport struct {
	Name                  string
	LanguageVersion       uint32
	VersionCompatible     bool
	Backend               ParseBackend
	Reason                string
	HasTokenSourceFactory bool
	HasLiteralDFA         bool
	States                uint32
	Symbols               uint32
}

// EvaluateParseSupport reports whether a language can parse using either the
// built-in basic lexer or a registered token source factory.
func EvaluateParseSupport(entry LangEntry, lang *gotreesitter.Language) ParseSupport {
	report := ParseSupport{
		Name:                  entry.Name,
		LanguageVersion:       lang.Version,
		VersionCompatible:     lang.CompatibleWithRuntime(),
		HasTokenSourceFactory: entry.TokenSourceFactory != nil || lang.TokenSourceFactory != nil,
		HasLiteralDFA:         len(lang.LexStates) > 0,
		States:                lang.StateCount,
		Symbols:               lang.SymbolCount,
		Backend:               ParseBackendUnsupported,
	}

	if !report.VersionCompatible {
		report.Reason = "language version is incompatible with runtime"
		return report
	}

	if report.HasTokenSourceFactory {
		report.Backend = ParseBackendTokenSource
		report.Reason = "custom token source factory"
		return report
	}

	if !report.HasLiteralDFA {
		report.Reason = "missing literal DFA (LexStates)"
		return report
	}

	report.Backend = ParseBackendBasic
	report.Reason = "basic lexer"
	return report
}

// AuditParseSupport evaluates parse support for all registered languages.
func AuditParseSupport() []ParseSupport {
	entries := AllLanguages()
	reports := make([]ParseSupport, 0, len(entries))
	for _, entry := range entries {
		reports = append(reports, EvaluateParseSupport(entry, entry.Language()))
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Name < reports[j].Name
	})
	return reports
}
