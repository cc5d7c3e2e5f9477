package grammars

import (
	"path/filepath"
	"strings"

	"github.com/odvcencio/parsley/gotreesitter"
)

// LangEntry holds a registered language with its grammar, extensions, and highlight query.
type LangEntry struct {
	Name               string
	Extensions         []string                      // e.g. [".pars"]
	Shebangs           []string                      // e.g. ["#!/usr/bin/env parsley"]
	Language           func() *gotreesitter.Language // lazy loader
	HighlightQuery     string
	TokenSourceFactory func(src []byte, lang *gotreesitter.Language) gotreesitter.TokenSource // nil = basic lexer
}

var registry []LangEntry

// Register adds a language to the registry.
func Register(entry LangEntry) {
	registry = append(registry, entry)
}

// DetectLanguage returns the LangEntry for a filename, or nil if unknown.
func DetectLanguage(filename string) *LangEntry {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil
	}
	for i := range registry {
		for _, e := range registry[i].Extensions {
			if e == ext {
				return &registry[i]
			}
		}
	}
	return nil
}

// DetectLanguageByShebang checks the first line of content for shebang matches.
func DetectLanguageByShebang(firstLine string) *LangEntry {
	for i := range registry {
		for _, shebang := range registry[i].Shebangs {
			if strings.HasPrefix(firstLine, shebang) {
				return &registry[i]
			}
		}
	}
	return nil
}

// LookupLanguage returns the entry registered under name.
func LookupLanguage(name string) *LangEntry {
	for i := range registry {
		if registry[i].Name == name {
			return &registry[i]
		}
	}
	return nil
}

// AllLanguages returns all registered languages.
func AllLanguages() []LangEntry {
	return registry
}
