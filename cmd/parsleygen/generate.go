package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"

	gg "github.com/odvcencio/parsley/grammargen"
)

// Artifact is one generated file.
type Artifact struct {
	Name string
	Data []byte
}

// Report is the conflict report written to conflicts.yaml.
type Report struct {
	Grammar     string        `yaml:"grammar"`
	States      int           `yaml:"states"`
	Productions []string      `yaml:"productions"`
	Conflicts   []gg.Conflict `yaml:"conflicts"`
}

// Artifacts renders the files generated for a compiled grammar:
// node-types.json, grammar.json and conflicts.yaml.
func Artifacts(g *gg.Grammar, c *gg.Compiled) ([]Artifact, error) {
	nodeTypes, err := gg.MarshalNodeTypes(c.NodeTypes)
	if err != nil {
		return nil, fmt.Errorf("node types: %w", err)
	}
	if err := gg.ValidateNodeTypesJSON(nodeTypes); err != nil {
		return nil, fmt.Errorf("node types: %w", err)
	}
	grammarJSON, err := gg.GrammarJSON(g)
	if err != nil {
		return nil, fmt.Errorf("grammar.json: %w", err)
	}

	report := Report{Grammar: g.Name, States: c.States, Conflicts: c.Conflicts}
	for _, p := range c.Productions {
		report.Productions = append(report.Productions, p.String())
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("conflict report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("conflict report: %w", err)
	}

	return []Artifact{
		{Name: "node-types.json", Data: append(nodeTypes, '\n')},
		{Name: "grammar.json", Data: grammarJSON},
		{Name: "conflicts.yaml", Data: buf.Bytes()},
	}, nil
}

// WriteArtifacts writes each artifact into dir, creating it if needed.
func WriteArtifacts(dir string, arts []Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, a := range arts {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Stale describes an artifact whose file in dir differs from the
// generated content. Diff is empty when the file is missing.
type Stale struct {
	Name    string
	Missing bool
	Diff    string
}

// CheckArtifacts compares arts against the files in dir.
func CheckArtifacts(dir string, arts []Artifact) ([]Stale, error) {
	var stale []Stale
	dmp := diffmatchpatch.New()
	for _, a := range arts {
		have, err := os.ReadFile(filepath.Join(dir, a.Name))
		if errors.Is(err, os.ErrNotExist) {
			stale = append(stale, Stale{Name: a.Name, Missing: true})
			continue
		}
		if err != nil {
			return nil, err
		}
		if bytes.Equal(have, a.Data) {
			continue
		}
		// Line-level diff keeps the output readable for large JSON files.
		src, dst, lines := dmp.DiffLinesToChars(string(have), string(a.Data))
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)
		stale = append(stale, Stale{Name: a.Name, Diff: dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs))})
	}
	return stale, nil
}
