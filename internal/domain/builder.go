package domain

// TreeBuilder assembles node trees while keeping parent ids and
// containment/annotation lists consistent: every edge is created through
// one call that updates both ends.
type TreeBuilder struct {
	nodes []*Node
}

// BuiltNode is a node owned by a TreeBuilder. Structural edges can only be
// added through it.
type BuiltNode struct {
	node    *Node
	builder *TreeBuilder
}

// NewTreeBuilder creates an empty builder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{}
}

// Root adds a parentless node.
func (b *TreeBuilder) Root(id string, classifier *MetaPointer) *BuiltNode {
	return b.add(NewNode(id, classifier, ""))
}

func (b *TreeBuilder) add(n *Node) *BuiltNode {
	b.nodes = append(b.nodes, n)
	return &BuiltNode{node: n, builder: b}
}

// Nodes returns clones of the built nodes in creation order.
func (b *TreeBuilder) Nodes() []*Node {
	out := make([]*Node, len(b.nodes))
	for i, n := range b.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Chunk returns the built nodes as a chunk with used languages populated.
func (b *TreeBuilder) Chunk(formatVersion string) *Chunk {
	return ChunkFromNodes(formatVersion, b.Nodes())
}

// ID returns the node id.
func (bn *BuiltNode) ID() string { return bn.node.ID }

// Child creates a node contained by bn under containment.
func (bn *BuiltNode) Child(containment *MetaPointer, id string, classifier *MetaPointer) *BuiltNode {
	bn.node.AddChild(containment, id)
	return bn.builder.add(NewNode(id, classifier, bn.node.ID))
}

// Annotate creates an annotation instance attached to bn.
func (bn *BuiltNode) Annotate(id string, classifier *MetaPointer) *BuiltNode {
	bn.node.AddAnnotation(id)
	return bn.builder.add(NewNode(id, classifier, bn.node.ID))
}

// Property sets a property value and returns bn for chaining.
func (bn *BuiltNode) Property(mp *MetaPointer, value string) *BuiltNode {
	bn.node.SetProperty(mp, &value)
	return bn
}

// Reference adds a reference target and returns bn for chaining.
func (bn *BuiltNode) Reference(mp *MetaPointer, entry ReferenceEntry) *BuiltNode {
	bn.node.AddReferenceEntry(mp, entry)
	return bn
}
