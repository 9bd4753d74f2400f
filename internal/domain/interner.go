package domain

import (
	"sync"
	"unicode/utf8"
)

// propertyCacheThreshold is the length in characters below which property
// values are deduplicated.
const propertyCacheThreshold = 128

// DefaultInterner is the process-wide interner used by NewMetaPointer,
// NewLanguageVersion and the codecs unless another one is supplied.
var DefaultInterner = NewInterner()

// Interner hands out canonical MetaPointer, LanguageVersion and short
// PropertyValue instances. Equal inputs always yield the same pointer, also
// when first requested concurrently. Caches are append-only.
type Interner struct {
	metaPointers     sync.Map // internKey -> *MetaPointer
	languageVersions sync.Map // internKey -> *LanguageVersion
	propertyValues   sync.Map // propertyKey -> *PropertyValue
}

// NewInterner creates an empty interner. Most code should use
// DefaultInterner; scoped interners keep tests isolated.
func NewInterner() *Interner {
	return &Interner{}
}

// nullable is a comparable stand-in for *string.
type nullable struct {
	value string
	valid bool
}

func toNullable(s *string) nullable {
	if s == nil {
		return nullable{}
	}
	return nullable{value: *s, valid: true}
}

type internKey struct {
	language nullable
	version  nullable
	key      nullable
}

type propertyKey struct {
	metaPointer *MetaPointer
	value       nullable
}

// MetaPointer returns the canonical MetaPointer for the triple. Any
// component may be nil.
func (in *Interner) MetaPointer(language, version, key *string) *MetaPointer {
	k := internKey{language: toNullable(language), version: toNullable(version), key: toNullable(key)}
	if mp, ok := in.metaPointers.Load(k); ok {
		return mp.(*MetaPointer)
	}
	candidate := &MetaPointer{
		language: cloneString(language),
		version:  cloneString(version),
		key:      cloneString(key),
		interner: in,
	}
	actual, _ := in.metaPointers.LoadOrStore(k, candidate)
	return actual.(*MetaPointer)
}

// LanguageVersion returns the canonical LanguageVersion for the pair.
func (in *Interner) LanguageVersion(key, version *string) *LanguageVersion {
	k := internKey{key: toNullable(key), version: toNullable(version)}
	if lv, ok := in.languageVersions.Load(k); ok {
		return lv.(*LanguageVersion)
	}
	candidate := &LanguageVersion{key: cloneString(key), version: cloneString(version)}
	actual, _ := in.languageVersions.LoadOrStore(k, candidate)
	return actual.(*LanguageVersion)
}

// PropertyValue returns a property value for mp. Null and short values are
// shared; values of propertyCacheThreshold characters or more are always
// freshly allocated.
func (in *Interner) PropertyValue(mp *MetaPointer, value *string) *PropertyValue {
	if value != nil && utf8.RuneCountInString(*value) >= propertyCacheThreshold {
		return &PropertyValue{metaPointer: mp, value: cloneString(value)}
	}
	k := propertyKey{metaPointer: mp, value: toNullable(value)}
	if pv, ok := in.propertyValues.Load(k); ok {
		return pv.(*PropertyValue)
	}
	candidate := &PropertyValue{metaPointer: mp, value: cloneString(value)}
	actual, _ := in.propertyValues.LoadOrStore(k, candidate)
	return actual.(*PropertyValue)
}

// Ptr returns a pointer to s, for filling nullable fields.
func Ptr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equalNullable(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
