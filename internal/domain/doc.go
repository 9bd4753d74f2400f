// Package domain defines the low-level serialized graph of classifier
// instances exchanged and stored by lionrepo.
//
// # Core Types
//
// MetaPointer references a metamodel element by (language, version, key).
// LanguageVersion is the coarser (language, version) pair. Both are interned
// by an Interner, so equal values share one instance and compare with ==.
// DefaultInterner serves the whole process; NewInterner creates scoped ones.
//
// PropertyValue, ContainmentValue and ReferenceValue are the typed
// attachments of a node. Short property values are deduplicated.
//
// Node is one serialized classifier instance: id, classifier, parent id,
// properties, containments, references and annotations. Edge lists are
// allocated lazily so wide graphs of leaf nodes stay cheap.
//
// Chunk bundles nodes with the languages they use and a format version. It
// is the unit of exchange between codecs, validators and repositories.
//
// # Invariants
//
// Node records trust their producer: a child listed in a containment is
// expected to name the container as its parent, but nothing here enforces
// it. The validator package checks those rules; TreeBuilder produces trees
// that satisfy them by construction.
//
// Node ids follow the grammar [a-zA-Z0-9_-]+ (IsValidID).
package domain
