package domain

import "slices"

// ReferenceEntry is one target of a reference. Both fields are nullable:
// Reference holds the target node id, ResolveInfo a fallback label.
type ReferenceEntry struct {
	Reference   *string
	ResolveInfo *string
}

// Target builds an entry pointing at id with the given resolve info.
func Target(id, resolveInfo string) ReferenceEntry {
	return ReferenceEntry{Reference: Ptr(id), ResolveInfo: Ptr(resolveInfo)}
}

// Equal compares both fields by value.
func (e ReferenceEntry) Equal(other ReferenceEntry) bool {
	return equalNullable(e.Reference, other.Reference) && equalNullable(e.ResolveInfo, other.ResolveInfo)
}

// ReferenceValue groups the targets of one reference. Targets may point to
// nodes that do not exist.
type ReferenceValue struct {
	MetaPointer *MetaPointer
	Entries     []ReferenceEntry
}

// NewReferenceValue creates a reference value holding a copy of entries.
func NewReferenceValue(mp *MetaPointer, entries ...ReferenceEntry) *ReferenceValue {
	return &ReferenceValue{MetaPointer: mp, Entries: slices.Clone(entries)}
}

// Equal compares reference and entries in order.
func (r *ReferenceValue) Equal(other *ReferenceValue) bool {
	return r.MetaPointer == other.MetaPointer && slices.EqualFunc(r.Entries, other.Entries, ReferenceEntry.Equal)
}

func (r *ReferenceValue) clone() *ReferenceValue {
	entries := make([]ReferenceEntry, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = ReferenceEntry{Reference: cloneString(e.Reference), ResolveInfo: cloneString(e.ResolveInfo)}
	}
	return &ReferenceValue{MetaPointer: r.MetaPointer, Entries: entries}
}
