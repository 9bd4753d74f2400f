package domain

import "slices"

// Chunk is the wire unit: a format version, the languages used by its
// nodes and the nodes themselves, kept both in order and by id.
type Chunk struct {
	SerializationFormatVersion string

	languages []*LanguageVersion
	nodes     []*Node
	byID      map[string]*Node
}

// NewChunk creates an empty chunk.
func NewChunk(formatVersion string) *Chunk {
	return &Chunk{
		SerializationFormatVersion: formatVersion,
		byID:                       make(map[string]*Node),
	}
}

// ChunkFromNodes creates a chunk holding nodes with its used languages
// populated.
func ChunkFromNodes(formatVersion string, nodes []*Node) *Chunk {
	c := NewChunk(formatVersion)
	for _, n := range nodes {
		c.AddNode(n)
	}
	c.PopulateUsedLanguages()
	return c
}

// Nodes returns the nodes in insertion order.
func (c *Chunk) Nodes() []*Node {
	return slices.Clip(c.nodes)
}

// Len returns the number of nodes, counting duplicates.
func (c *Chunk) Len() int {
	return len(c.nodes)
}

// AddNode appends n. With duplicate ids the last one wins the index.
func (c *Chunk) AddNode(n *Node) {
	if c.byID == nil {
		c.byID = make(map[string]*Node)
	}
	c.nodes = append(c.nodes, n)
	c.byID[n.ID] = n
}

// NodeByID looks a node up by id.
func (c *Chunk) NodeByID(id string) (*Node, bool) {
	n, ok := c.byID[id]
	return n, ok
}

// Has reports whether a node with id is present.
func (c *Chunk) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Languages returns the declared used languages.
func (c *Chunk) Languages() []*LanguageVersion {
	return slices.Clip(c.languages)
}

// AddLanguage declares lv as used, ignoring repeats.
func (c *Chunk) AddLanguage(lv *LanguageVersion) {
	if !slices.Contains(c.languages, lv) {
		c.languages = append(c.languages, lv)
	}
}

// PopulateUsedLanguages declares every language the nodes use, in the order
// first seen.
func (c *Chunk) PopulateUsedLanguages() {
	for _, lv := range c.UsedLanguages() {
		c.AddLanguage(lv)
	}
}

// UsedLanguages scans classifiers and feature MetaPointers of every node and
// returns the distinct languages in the order first seen. It does not touch
// the declared list.
func (c *Chunk) UsedLanguages() []*LanguageVersion {
	seen := make(map[*LanguageVersion]struct{})
	var used []*LanguageVersion
	for _, n := range c.nodes {
		n.MetaPointers(func(mp *MetaPointer) {
			lv := mp.LanguageVersion()
			if _, ok := seen[lv]; ok {
				return
			}
			seen[lv] = struct{}{}
			used = append(used, lv)
		})
	}
	return used
}

// Roots returns the nodes without a parent.
func (c *Chunk) Roots() []*Node {
	var roots []*Node
	for _, n := range c.nodes {
		if n.IsRoot() {
			roots = append(roots, n)
		}
	}
	return roots
}

// Equal compares format version, declared languages and nodes in order.
func (c *Chunk) Equal(other *Chunk) bool {
	return c.SerializationFormatVersion == other.SerializationFormatVersion &&
		slices.Equal(c.languages, other.languages) &&
		slices.EqualFunc(c.nodes, other.nodes, (*Node).Equal)
}
