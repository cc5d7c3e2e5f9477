package gotreesitter

import "unsafe"

const (
	// incrementalArenaSlab is sized for reparses where only the edited
	// chunks are rebuilt.
	incrementalArenaSlab = 16 * 1024
	// fullParseArenaSlab covers a typical whole-file parse without
	// chaining a second slab.
	fullParseArenaSlab = 256 * 1024
	minArenaNodeCap    = 64
)

type arenaClass uint8

const (
	arenaClassIncremental arenaClass = iota
	arenaClassFull
)

// nodeArena is a slab-backed allocator for Node structs. Nodes are shared
// between tree versions, so slabs are never recycled: a slab lives as long
// as any tree still points into it.
type nodeArena struct {
	class    arenaClass
	nodes    []Node
	used     int
	slabCap  int
	children []*Node
	fields   []FieldID
}

func nodeCapacityForBytes(slabBytes int) int {
	nodeSize := int(unsafe.Sizeof(Node{}))
	if nodeSize <= 0 {
		return minArenaNodeCap
	}
	return max(slabBytes/nodeSize, minArenaNodeCap)
}

func newNodeArena(class arenaClass) *nodeArena {
	slab := fullParseArenaSlab
	if class == arenaClassIncremental {
		slab = incrementalArenaSlab
	}
	capacity := nodeCapacityForBytes(slab)
	return &nodeArena{
		class:   class,
		nodes:   make([]Node, capacity),
		slabCap: capacity,
	}
}

func (a *nodeArena) allocNode() *Node {
	if a == nil {
		return &Node{}
	}
	if a.used >= len(a.nodes) {
		a.nodes = make([]Node, a.slabCap)
		a.used = 0
	}
	n := &a.nodes[a.used]
	a.used++
	return n
}

// allocChildren copies children into arena-owned backing storage.
func (a *nodeArena) allocChildren(children []*Node) []*Node {
	if len(children) == 0 {
		return nil
	}
	if a == nil {
		return append([]*Node(nil), children...)
	}
	if len(a.children)+len(children) > cap(a.children) {
		a.children = make([]*Node, 0, max(4*a.slabCap, len(children)))
	}
	start := len(a.children)
	a.children = append(a.children, children...)
	return a.children[start:len(a.children):len(a.children)]
}

func (a *nodeArena) allocFields(fields []FieldID) []FieldID {
	if len(fields) == 0 {
		return nil
	}
	if a == nil {
		return append([]FieldID(nil), fields...)
	}
	if len(a.fields)+len(fields) > cap(a.fields) {
		a.fields = make([]FieldID, 0, max(4*a.slabCap, len(fields)))
	}
	start := len(a.fields)
	a.fields = append(a.fields, fields...)
	return a.fields[start:len(a.fields):len(a.fields)]
}
