package domain

// PropertyValue is the serialized value of one property. Values are
// immutable and may be shared between nodes.
type PropertyValue struct {
	metaPointer *MetaPointer
	value       *string
}

// NewPropertyValue returns a property value for mp, deduplicated by the
// interner that owns mp.
func NewPropertyValue(mp *MetaPointer, value *string) *PropertyValue {
	in := mp.interner
	if in == nil {
		in = DefaultInterner
	}
	return in.PropertyValue(mp, value)
}

// MetaPointer returns the property the value belongs to.
func (p *PropertyValue) MetaPointer() *MetaPointer { return p.metaPointer }

// Value returns the value, or "" when it is null.
func (p *PropertyValue) Value() string { return stringOrEmpty(p.value) }

// ValueRef returns the raw value; nil means null.
func (p *PropertyValue) ValueRef() *string { return p.value }

// IsNull reports whether the value is null.
func (p *PropertyValue) IsNull() bool { return p.value == nil }

// Equal compares by property and value, so it also holds for long values
// that are not shared.
func (p *PropertyValue) Equal(other *PropertyValue) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	return p.metaPointer == other.metaPointer && equalNullable(p.value, other.value)
}

func (p *PropertyValue) String() string {
	return "PropertyValue{" + p.metaPointer.Key() + "=" + describe(p.value) + "}"
}
