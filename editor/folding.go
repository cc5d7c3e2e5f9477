package editor

import (
	"sort"

	"github.com/odvcencio/parsley/gotreesitter"
)

// FoldRegion represents a foldable region of text.
type FoldRegion struct {
	StartLine int
	EndLine   int
	Folded    bool
}

// FoldState tracks which regions are folded.
type FoldState struct {
	regions []FoldRegion
}

// NewFoldState creates an empty fold state.
func NewFoldState() *FoldState {
	return &FoldState{}
}

// SetRegions replaces the fold regions, e.g. after a reparse.
// Preserves fold state for regions that match by start line.
func (fs *FoldState) SetRegions(regions []FoldRegion) {
	oldFolded := make(map[int]bool)
	for _, r := range fs.regions {
		if r.Folded {
			oldFolded[r.StartLine] = true
		}
	}
	for i := range regions {
		if oldFolded[regions[i].StartLine] {
			regions[i].Folded = true
		}
	}
	fs.regions = regions
}

// Toggle folds/unfolds the region at the given line.
func (fs *FoldState) Toggle(line int) bool {
	for i, r := range fs.regions {
		if r.StartLine == line {
			fs.regions[i].Folded = !fs.regions[i].Folded
			return true
		}
	}
	return false
}

// FoldAll folds all regions.
func (fs *FoldState) FoldAll() {
	for i := range fs.regions {
		fs.regions[i].Folded = true
	}
}

// UnfoldAll unfolds all regions.
func (fs *FoldState) UnfoldAll() {
	for i := range fs.regions {
		fs.regions[i].Folded = false
	}
}

// IsLineHidden returns true if the given line is inside a folded region
// (not the start line, which remains visible).
func (fs *FoldState) IsLineHidden(line int) bool {
	for _, r := range fs.regions {
		if r.Folded && line > r.StartLine && line <= r.EndLine {
			return true
		}
	}
	return false
}

// Regions returns all fold regions.
func (fs *FoldState) Regions() []FoldRegion {
	return fs.regions
}

// FoldAtLine finds and folds the innermost region starting at or containing
// the given line.
func (fs *FoldState) FoldAtLine(line int) bool {
	best := -1
	for i, r := range fs.regions {
		if r.Folded {
			continue
		}
		if r.StartLine == line {
			fs.regions[i].Folded = true
			return true
		}
		if line >= r.StartLine && line <= r.EndLine {
			if best < 0 || (r.EndLine-r.StartLine) < (fs.regions[best].EndLine-fs.regions[best].StartLine) {
				best = i
			}
		}
	}
	if best >= 0 {
		fs.regions[best].Folded = true
		return true
	}
	return false
}

// UnfoldAtLine unfolds the region at or containing the given line.
func (fs *FoldState) UnfoldAtLine(line int) bool {
	for i, r := range fs.regions {
		if !r.Folded {
			continue
		}
		if line >= r.StartLine && line <= r.EndLine {
			fs.regions[i].Folded = false
			return true
		}
	}
	return false
}

// VisibleLines returns which original line indices are visible after folding.
func (fs *FoldState) VisibleLines(totalLines int) []int {
	visible := make([]int, 0, totalLines)
	for i := 0; i < totalLines; i++ {
		if !fs.IsLineHidden(i) {
			visible = append(visible, i)
		}
	}
	return visible
}

// foldable node types. A region needs at least one hidden line.
var foldable = map[string]bool{
	"block":              true,
	"dictionary_literal": true,
	"array_literal":      true,
	"arguments":          true,
	"parameter_list":     true,
	"template_string":    true,
	"dictionary_pattern": true,
	"array_pattern":      true,
}

// FoldRegionsFromTree returns fold regions for multi-line blocks,
// collections and template strings, in document order. Runs of two or
// more line comments also fold.
func FoldRegionsFromTree(tree *gotreesitter.Tree) []FoldRegion {
	if tree == nil || tree.RootNode() == nil {
		return nil
	}
	lang := tree.Language()
	var regions []FoldRegion
	tree.Walk(func(n *gotreesitter.Node, _ int) bool {
		if n.IsNamed() && foldable[n.Type(lang)] {
			start, end := int(n.StartPoint().Row), int(n.EndPoint().Row)
			if end-start >= 2 {
				regions = append(regions, FoldRegion{StartLine: start, EndLine: end})
			}
		}
		return n.ChildCount() > 0
	})
	regions = append(regions, commentRuns(tree.Comments())...)
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].StartLine < regions[j].StartLine
	})
	return regions
}

func commentRuns(comments []gotreesitter.Range) []FoldRegion {
	var out []FoldRegion
	for i := 0; i < len(comments); {
		j := i
		for j+1 < len(comments) && comments[j+1].StartPoint.Row == comments[j].StartPoint.Row+1 {
			j++
		}
		if j > i {
			out = append(out, FoldRegion{StartLine: int(comments[i].StartPoint.Row), EndLine: int(comments[j].StartPoint.Row)})
		}
		i = j + 1
	}
	return out
}

// FoldRegions returns the fold regions of the current tree.
func (d *Document) FoldRegions() []FoldRegion {
	return FoldRegionsFromTree(d.tree)
}
