package domain

import (
	"fmt"
	"slices"
)

// Node is the serialized form of a classifier instance: an id, the
// classifier it instantiates, its parent and its edges. Containments,
// references and annotations are only allocated once used.
//
// Node does not keep parent ids and containment lists in sync; the
// validators check that. Use TreeBuilder when both sides should follow
// from one call.
//
// Slices returned by getters belong to the node and must not be modified.
type Node struct {
	ID         string
	Classifier *MetaPointer
	// ParentID is empty for roots.
	ParentID string

	properties   []*PropertyValue
	containments []*ContainmentValue
	references   []*ReferenceValue
	annotations  []string
}

// NewNode creates a node without edges.
func NewNode(id string, classifier *MetaPointer, parentID string) *Node {
	return &Node{ID: id, Classifier: classifier, ParentID: parentID}
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// Properties returns the property values in insertion order.
func (n *Node) Properties() []*PropertyValue {
	return slices.Clip(n.properties)
}

// PropertyValue returns the value stored for mp.
func (n *Node) PropertyValue(mp *MetaPointer) (*PropertyValue, bool) {
	for _, pv := range n.properties {
		if pv.metaPointer == mp {
			return pv, true
		}
	}
	return nil, false
}

// PropertyValueByKey returns the value of the first property whose key matches.
func (n *Node) PropertyValueByKey(key string) (*PropertyValue, bool) {
	for _, pv := range n.properties {
		if pv.metaPointer.Key() == key {
			return pv, true
		}
	}
	return nil, false
}

// SetPropertyValue replaces the value for the same property, or appends it.
func (n *Node) SetPropertyValue(pv *PropertyValue) {
	for i, existing := range n.properties {
		if existing.metaPointer == pv.metaPointer {
			n.properties[i] = pv
			return
		}
	}
	n.properties = append(n.properties, pv)
}

// SetProperty is shorthand for SetPropertyValue(NewPropertyValue(mp, value)).
func (n *Node) SetProperty(mp *MetaPointer, value *string) {
	n.SetPropertyValue(NewPropertyValue(mp, value))
}

// Containments returns the containment groups in insertion order.
func (n *Node) Containments() []*ContainmentValue {
	return slices.Clip(n.containments)
}

// Children returns the ids of all children across containments.
func (n *Node) Children() []string {
	if len(n.containments) == 0 {
		return nil
	}
	var children []string
	for _, cv := range n.containments {
		children = append(children, cv.Children...)
	}
	return children
}

// ContainmentChildren returns the children held under mp.
func (n *Node) ContainmentChildren(mp *MetaPointer) []string {
	for _, cv := range n.containments {
		if cv.MetaPointer == mp {
			return slices.Clip(cv.Children)
		}
	}
	return nil
}

// AddContainment appends cv as is, without merging it into an existing
// group for the same containment. Decoders use it to keep the wire order.
func (n *Node) AddContainment(cv *ContainmentValue) {
	n.containments = append(n.containments, cv)
}

// AddChild appends childID to the group for mp, creating it if needed.
func (n *Node) AddChild(mp *MetaPointer, childID string) {
	if cv := n.containment(mp); cv != nil {
		cv.Children = append(cv.Children, childID)
		return
	}
	n.containments = append(n.containments, NewContainmentValue(mp, childID))
}

// InsertChild inserts childID at index within the group for mp.
func (n *Node) InsertChild(mp *MetaPointer, childID string, index int) error {
	cv := n.containment(mp)
	size := 0
	if cv != nil {
		size = len(cv.Children)
	}
	if index < 0 || index > size {
		return fmt.Errorf("insert child %s at %d: index out of range [0,%d]", childID, index, size)
	}
	if cv == nil {
		n.containments = append(n.containments, NewContainmentValue(mp, childID))
		return nil
	}
	cv.Children = slices.Insert(cv.Children, index, childID)
	return nil
}

// RemoveChild removes childID from whichever group holds it.
func (n *Node) RemoveChild(childID string) bool {
	for _, cv := range n.containments {
		if cv.RemoveChild(childID) {
			return true
		}
	}
	return false
}

// RemoveContainmentValue drops the whole group for mp.
func (n *Node) RemoveContainmentValue(mp *MetaPointer) bool {
	for i, cv := range n.containments {
		if cv.MetaPointer == mp {
			n.containments = slices.Delete(n.containments, i, i+1)
			if len(n.containments) == 0 {
				n.containments = nil
			}
			return true
		}
	}
	return false
}

// ClearContainments drops every containment group, so a partition root can
// be created childless and filled in by a later store.
func (n *Node) ClearContainments() {
	n.containments = nil
}

// Contains reports whether id is one of the node's children.
func (n *Node) Contains(id string) bool {
	for _, cv := range n.containments {
		if slices.Contains(cv.Children, id) {
			return true
		}
	}
	return false
}

func (n *Node) containment(mp *MetaPointer) *ContainmentValue {
	for _, cv := range n.containments {
		if cv.MetaPointer == mp {
			return cv
		}
	}
	return nil
}

// References returns the reference groups in insertion order.
func (n *Node) References() []*ReferenceValue {
	return slices.Clip(n.references)
}

// ReferenceEntries returns the targets held under mp.
func (n *Node) ReferenceEntries(mp *MetaPointer) []ReferenceEntry {
	for _, rv := range n.references {
		if rv.MetaPointer == mp {
			return slices.Clip(rv.Entries)
		}
	}
	return nil
}

// AddReference appends rv without merging.
func (n *Node) AddReference(rv *ReferenceValue) {
	n.references = append(n.references, rv)
}

// AddReferenceEntry appends entry to the group for mp, creating it if needed.
func (n *Node) AddReferenceEntry(mp *MetaPointer, entry ReferenceEntry) {
	for _, rv := range n.references {
		if rv.MetaPointer == mp {
			rv.Entries = append(rv.Entries, entry)
			return
		}
	}
	n.references = append(n.references, NewReferenceValue(mp, entry))
}

// SetReferenceValue replaces the group for the same reference, or appends it.
func (n *Node) SetReferenceValue(rv *ReferenceValue) {
	for i, existing := range n.references {
		if existing.MetaPointer == rv.MetaPointer {
			n.references[i] = rv
			return
		}
	}
	n.references = append(n.references, rv)
}

// Annotations returns the annotation ids in order.
func (n *Node) Annotations() []string {
	return slices.Clip(n.annotations)
}

// SetAnnotations replaces the annotation list with a copy of ids.
func (n *Node) SetAnnotations(ids []string) {
	if len(ids) == 0 {
		n.annotations = nil
		return
	}
	n.annotations = slices.Clone(ids)
}

// AddAnnotation appends id.
func (n *Node) AddAnnotation(id string) {
	n.annotations = append(n.annotations, id)
}

// RemoveAnnotation removes the first occurrence of id.
func (n *Node) RemoveAnnotation(id string) bool {
	i := slices.Index(n.annotations, id)
	if i < 0 {
		return false
	}
	n.annotations = slices.Delete(n.annotations, i, i+1)
	if len(n.annotations) == 0 {
		n.annotations = nil
	}
	return true
}

// Equal compares id, classifier, parent and every edge kind structurally.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	return n.ID == other.ID &&
		n.Classifier == other.Classifier &&
		n.ParentID == other.ParentID &&
		slices.EqualFunc(n.properties, other.properties, (*PropertyValue).Equal) &&
		slices.EqualFunc(n.containments, other.containments, (*ContainmentValue).Equal) &&
		slices.EqualFunc(n.references, other.references, (*ReferenceValue).Equal) &&
		slices.Equal(n.annotations, other.annotations)
}

// Clone returns a deep copy. Property values are immutable and shared.
func (n *Node) Clone() *Node {
	c := &Node{
		ID:          n.ID,
		Classifier:  n.Classifier,
		ParentID:    n.ParentID,
		properties:  slices.Clone(n.properties),
		annotations: slices.Clone(n.annotations),
	}
	if n.containments != nil {
		c.containments = make([]*ContainmentValue, len(n.containments))
		for i, cv := range n.containments {
			c.containments[i] = cv.clone()
		}
	}
	if n.references != nil {
		c.references = make([]*ReferenceValue, len(n.references))
		for i, rv := range n.references {
			c.references[i] = rv.clone()
		}
	}
	return c
}

// MetaPointers calls fn for the classifier and for every property,
// containment and reference MetaPointer of the node.
func (n *Node) MetaPointers(fn func(*MetaPointer)) {
	if n.Classifier != nil {
		fn(n.Classifier)
	}
	for _, pv := range n.properties {
		fn(pv.metaPointer)
	}
	for _, cv := range n.containments {
		fn(cv.MetaPointer)
	}
	for _, rv := range n.references {
		fn(rv.MetaPointer)
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{id=%s, classifier=%v, parent=%q}", n.ID, n.Classifier, n.ParentID)
}
