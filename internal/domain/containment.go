package domain

import "slices"

// ContainmentValue groups the children a node holds under one containment.
type ContainmentValue struct {
	MetaPointer *MetaPointer
	Children    []string
}

// NewContainmentValue creates a containment value holding a copy of children.
func NewContainmentValue(mp *MetaPointer, children ...string) *ContainmentValue {
	return &ContainmentValue{MetaPointer: mp, Children: slices.Clone(children)}
}

// RemoveChild removes the first occurrence of id and reports whether it was present.
func (c *ContainmentValue) RemoveChild(id string) bool {
	i := slices.Index(c.Children, id)
	if i < 0 {
		return false
	}
	c.Children = slices.Delete(c.Children, i, i+1)
	return true
}

// Equal compares containment and children in order.
func (c *ContainmentValue) Equal(other *ContainmentValue) bool {
	return c.MetaPointer == other.MetaPointer && slices.Equal(c.Children, other.Children)
}

func (c *ContainmentValue) clone() *ContainmentValue {
	return &ContainmentValue{MetaPointer: c.MetaPointer, Children: slices.Clone(c.Children)}
}
