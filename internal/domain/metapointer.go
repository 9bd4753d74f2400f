package domain

import "fmt"

// MetaPointer references a metamodel element by language key, language
// version and element key. Instances are canonical: compare them with ==.
type MetaPointer struct {
	language *string
	version  *string
	key      *string
	interner *Interner
}

// NewMetaPointer returns the canonical MetaPointer from DefaultInterner.
func NewMetaPointer(language, version, key string) *MetaPointer {
	return DefaultInterner.MetaPointer(&language, &version, &key)
}

// Language returns the language key, or "" when it is null.
func (m *MetaPointer) Language() string { return stringOrEmpty(m.language) }

// Version returns the language version, or "" when it is null.
func (m *MetaPointer) Version() string { return stringOrEmpty(m.version) }

// Key returns the element key, or "" when it is null.
func (m *MetaPointer) Key() string { return stringOrEmpty(m.key) }

// LanguageRef returns the raw language component; nil means null.
func (m *MetaPointer) LanguageRef() *string { return m.language }

// VersionRef returns the raw version component; nil means null.
func (m *MetaPointer) VersionRef() *string { return m.version }

// KeyRef returns the raw key component; nil means null.
func (m *MetaPointer) KeyRef() *string { return m.key }

// Interner returns the interner that owns m.
func (m *MetaPointer) Interner() *Interner { return m.interner }

// LanguageVersion returns the canonical (language, version) pair of m,
// interned by the same interner as m.
func (m *MetaPointer) LanguageVersion() *LanguageVersion {
	return m.interner.LanguageVersion(m.language, m.version)
}

func (m *MetaPointer) String() string {
	return fmt.Sprintf("MetaPointer{language=%s, version=%s, key=%s}",
		describe(m.language), describe(m.version), describe(m.key))
}

// LanguageVersion identifies one version of a language.
type LanguageVersion struct {
	key     *string
	version *string
}

// NewLanguageVersion returns the canonical LanguageVersion from DefaultInterner.
func NewLanguageVersion(key, version string) *LanguageVersion {
	return DefaultInterner.LanguageVersion(&key, &version)
}

// Key returns the language key, or "" when it is null.
func (l *LanguageVersion) Key() string { return stringOrEmpty(l.key) }

// Version returns the version, or "" when it is null.
func (l *LanguageVersion) Version() string { return stringOrEmpty(l.version) }

// KeyRef returns the raw key; nil means null.
func (l *LanguageVersion) KeyRef() *string { return l.key }

// VersionRef returns the raw version; nil means null.
func (l *LanguageVersion) VersionRef() *string { return l.version }

// String renders the pair as key@version.
func (l *LanguageVersion) String() string {
	return describe(l.key) + "@" + describe(l.version)
}

// Compare orders language versions by key, then version, with nulls first.
func (l *LanguageVersion) Compare(other *LanguageVersion) int {
	if c := compareNullable(l.key, other.key); c != 0 {
		return c
	}
	return compareNullable(l.version, other.version)
}

func compareNullable(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func describe(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
