package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lionrepo/internal/metamodel"
)

func named(id string) metamodel.Named {
	return metamodel.Named{ID: id, Key: id + "-key", Name: id}
}

func newLanguage(elements ...metamodel.Element) *metamodel.Language {
	return &metamodel.Language{
		Named:    metamodel.Named{ID: "lang", Key: "lang-key", Name: "my.language"},
		Version:  "1",
		Elements: elements,
	}
}

func validateLanguage(t *testing.T, l *metamodel.Language) *Result {
	t.Helper()
	result, err := LanguageValidator{}.Validate(l)
	require.NoError(t, err)
	return result
}

func TestLanguageValidatorValid(t *testing.T) {
	base := &metamodel.Concept{Named: named("Base"), Abstract: true}
	doc := &metamodel.Concept{
		Named:     named("Doc"),
		Partition: true,
		Extends:   base,
		Features:  []*metamodel.Feature{{Named: named("title"), Kind: metamodel.PropertyFeature}},
	}
	result := validateLanguage(t, newLanguage(base, doc))
	assert.True(t, result.IsSuccessful(), result.String())
}

func TestLanguageValidatorCycles(t *testing.T) {
	t.Run("interface extending itself", func(t *testing.T) {
		i := &metamodel.Interface{Named: named("I")}
		i.Extends = []*metamodel.Interface{i}
		result := validateLanguage(t, newLanguage(i))
		assert.True(t, result.HasMessage("Cyclic hierarchy found: the interface extends itself"))
	})

	t.Run("indirect interface cycle", func(t *testing.T) {
		i1 := &metamodel.Interface{Named: named("I1")}
		i2 := &metamodel.Interface{Named: named("I2"), Extends: []*metamodel.Interface{i1}}
		i1.Extends = []*metamodel.Interface{i2}
		result := validateLanguage(t, newLanguage(i1, i2))
		assert.False(t, result.IsSuccessful())
	})

	t.Run("three concept cycle", func(t *testing.T) {
		a := &metamodel.Concept{Named: named("A")}
		b := &metamodel.Concept{Named: named("B"), Extends: a}
		c := &metamodel.Concept{Named: named("C"), Extends: b}
		a.Extends = c
		result := validateLanguage(t, newLanguage(a, b, c))
		assert.True(t, result.HasMessage("Cyclic hierarchy found"))
		assert.False(t, result.IsSuccessful())
	})

	t.Run("diamond through concepts is valid", func(t *testing.T) {
		i := &metamodel.Interface{Named: named("I")}
		b := &metamodel.Concept{Named: named("B"), Implements: []*metamodel.Interface{i}}
		a := &metamodel.Concept{Named: named("A"), Extends: b, Implements: []*metamodel.Interface{i}}
		result := validateLanguage(t, newLanguage(i, a, b))
		assert.True(t, result.IsSuccessful(), result.String())
	})

	t.Run("interface diamond is valid", func(t *testing.T) {
		l := &metamodel.Interface{Named: named("L")}
		j := &metamodel.Interface{Named: named("J"), Extends: []*metamodel.Interface{l}}
		k := &metamodel.Interface{Named: named("K"), Extends: []*metamodel.Interface{l}}
		i := &metamodel.Interface{Named: named("I"), Extends: []*metamodel.Interface{j, k}}
		result := validateLanguage(t, newLanguage(l, j, k, i))
		assert.True(t, result.IsSuccessful(), result.String())
	})

	t.Run("same interface implemented twice", func(t *testing.T) {
		i := &metamodel.Interface{Named: named("I")}
		c := &metamodel.Concept{Named: named("C"), Implements: []*metamodel.Interface{i, i}}
		result := validateLanguage(t, newLanguage(i, c))
		assert.True(t, result.HasMessage("The same interface has been implemented multiple times"))
	})
}

func TestLanguageValidatorNamesAndKeys(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		a := &metamodel.Concept{Named: metamodel.Named{ID: "a", Key: "a", Name: "Same"}}
		b := &metamodel.Concept{Named: metamodel.Named{ID: "b", Key: "b", Name: "Same"}}
		result := validateLanguage(t, newLanguage(a, b))
		assert.True(t, result.HasMessage("Duplicate name Same"))
		assert.Equal(t, 2, countMessages(result, "Duplicate name Same"))
	})

	t.Run("duplicate keys", func(t *testing.T) {
		a := &metamodel.Concept{Named: metamodel.Named{ID: "a", Key: "k", Name: "A"}}
		b := &metamodel.Concept{Named: metamodel.Named{ID: "b", Key: "k", Name: "B"}}
		result := validateLanguage(t, newLanguage(a, b))
		assert.True(t, result.HasMessage("Key 'k' is duplicate. It is also used by a"))
	})

	t.Run("missing key and names", func(t *testing.T) {
		c := &metamodel.Concept{Named: metamodel.Named{ID: "c"}}
		l := newLanguage(c)
		l.Name = ""
		result := validateLanguage(t, l)
		assert.True(t, result.HasMessage("Key should not be null"))
		assert.True(t, result.HasMessage("Simple name not set"))
		assert.True(t, result.HasMessage("Qualified name not set"))
	})

	t.Run("duplicate feature names", func(t *testing.T) {
		c := &metamodel.Concept{Named: named("C"), Features: []*metamodel.Feature{
			{Named: metamodel.Named{ID: "f1", Key: "f1", Name: "f"}},
			{Named: metamodel.Named{ID: "f2", Key: "f2", Name: "f"}},
		}}
		result := validateLanguage(t, newLanguage(c))
		assert.True(t, result.HasMessage("Duplicate name f"))
	})

	t.Run("enumeration literals", func(t *testing.T) {
		e := &metamodel.Enumeration{Named: named("E"), Literals: []metamodel.Named{
			{ID: "l1", Key: "l1", Name: "x"},
			{ID: "l2", Key: "l2", Name: "x"},
		}}
		result := validateLanguage(t, newLanguage(e))
		assert.True(t, result.HasMessage("Duplicate name x"))
	})
}

func TestLanguageValidatorAnnotations(t *testing.T) {
	target := &metamodel.Concept{Named: named("Target")}
	other := &metamodel.Concept{Named: named("Other")}

	t.Run("annotates missing", func(t *testing.T) {
		a := &metamodel.Annotation{Named: named("A")}
		result := validateLanguage(t, newLanguage(a))
		assert.True(t, result.HasMessage("An annotation should specify annotates or inherit it"))
	})

	t.Run("annotates inherited", func(t *testing.T) {
		super := &metamodel.Annotation{Named: named("Super"), Annotates: target}
		sub := &metamodel.Annotation{Named: named("Sub"), Extends: super}
		result := validateLanguage(t, newLanguage(target, super, sub))
		assert.True(t, result.IsSuccessful(), result.String())
	})

	t.Run("annotates changed by sub annotation", func(t *testing.T) {
		super := &metamodel.Annotation{Named: named("Super"), Annotates: target}
		sub := &metamodel.Annotation{Named: named("Sub"), Extends: super, Annotates: other}
		result := validateLanguage(t, newLanguage(target, other, super, sub))
		assert.True(t, result.HasMessage("When a sub annotation specify a value for annotates it must be the same value the super annotation specifies"))
	})

	t.Run("containment feature", func(t *testing.T) {
		a := &metamodel.Annotation{Named: named("A"), Annotates: target, Features: []*metamodel.Feature{
			{Named: named("label"), Kind: metamodel.PropertyFeature},
			{Named: named("parts"), Kind: metamodel.ContainmentFeature, Multiple: true},
			{Named: named("about"), Kind: metamodel.ReferenceFeature},
		}}
		result := validateLanguage(t, newLanguage(target, a))
		assert.True(t, result.HasMessage("An annotation should not have containment links"))
		assert.Equal(t, 1, result.Len(), result.String())
	})
}

func TestLanguageValidatorDependencies(t *testing.T) {
	external := &metamodel.Language{Named: metamodel.Named{ID: "ext", Key: "ext-key", Name: "ext"}, Version: "3"}
	base := &metamodel.Concept{Named: named("ExtBase"), Language: external}
	c := &metamodel.Concept{Named: named("C"), Extends: base}

	l := newLanguage(c)
	result := validateLanguage(t, l)
	assert.True(t, result.HasMessage("Language ext-key version 3 is not listed among dependencies"))

	l.DependsOn = []*metamodel.Language{external}
	result = validateLanguage(t, l)
	assert.True(t, result.IsSuccessful(), result.String())

	builtins := &metamodel.Language{Named: metamodel.Named{ID: "b", Key: BuiltinsLanguageKey, Name: "builtins"}, Version: "2023.1"}
	node := &metamodel.Concept{Named: named("Node"), Language: builtins}
	result = validateLanguage(t, newLanguage(&metamodel.Concept{Named: named("D"), Extends: node}))
	assert.True(t, result.IsSuccessful(), result.String())
}

func TestLanguageValidatorNil(t *testing.T) {
	_, err := LanguageValidator{}.Validate(nil)
	assert.ErrorIs(t, err, ErrNilInput)
}

func countMessages(r *Result, msg string) int {
	n := 0
	for _, issue := range r.Issues() {
		if issue.Message == msg {
			n++
		}
	}
	return n
}
