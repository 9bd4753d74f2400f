package validator

import (
	"fmt"

	"lionrepo/internal/domain"
	"lionrepo/internal/metamodel"
)

// BuiltinsLanguageKey is the key of the built-in language every language
// may use without declaring it.
const BuiltinsLanguageKey = "LionCore-builtins"

// LanguageValidator checks a language definition: identity of its
// elements, names, keys, inheritance cycles, annotation targets and
// declared dependencies.
type LanguageValidator struct{}

// Validate checks language.
func (v LanguageValidator) Validate(language *metamodel.Language) (*Result, error) {
	if language == nil {
		return nil, ErrNilInput
	}
	result := NewResult()

	validateIdentities(language, result)
	result.AddErrorIf(language.Name == "", "Qualified name not set", language.ID)
	validateNamesAreUnique(language.Elements, result)
	validateLanguageDependencies(language, result)

	for _, el := range language.Elements {
		result.AddErrorIf(el.ElementName() == "", "Simple name not set", el.ElementID())

		switch e := el.(type) {
		case *metamodel.Enumeration:
			validateEnumeration(e, result)
		case *metamodel.Concept:
			validateFeatures(e, result)
			checkConceptAncestors(e, result)
			result.AddErrorIf(hasRepeats(e.Implements),
				"The same interface has been implemented multiple times", e.ID)
		case *metamodel.Interface:
			validateFeatures(e, result)
			checkInterfaceCycles(e, result)
		case *metamodel.Annotation:
			validateFeatures(e, result)
			checkAnnotationAncestors(e, result)
			checkAnnotates(e, result)
			checkAnnotationFeatures(e, result)
		}
	}
	return result, nil
}

// validateIdentities checks ids and keys over the language and every
// element, feature and literal it owns.
func validateIdentities(language *metamodel.Language, result *Result) {
	ids := make(map[string]bool)
	keys := make(map[string]string)

	visit := func(id, key string) {
		switch {
		case id == "":
			result.AddError("ID null found", "")
		case !domain.IsValidID(id):
			result.AddError("Invalid ID", id)
		case ids[id]:
			result.AddError("Duplicate ID found: "+id, id)
		}
		ids[id] = true

		if key == "" {
			result.AddError("Key should not be null", id)
			return
		}
		if owner, dup := keys[key]; dup {
			result.AddError(fmt.Sprintf("Key '%s' is duplicate. It is also used by %s", key, owner), id)
			return
		}
		keys[key] = id
	}

	visit(language.ID, language.Key)
	for _, el := range language.Elements {
		visit(el.ElementID(), el.ElementKey())
		if c, ok := el.(metamodel.Classifier); ok {
			for _, f := range c.OwnFeatures() {
				visit(f.ID, f.Key)
			}
		}
		if e, ok := el.(*metamodel.Enumeration); ok {
			for _, lit := range e.Literals {
				visit(lit.ID, lit.Key)
			}
		}
	}
}

func validateNamesAreUnique[T metamodel.Element](elements []T, result *Result) {
	byName := make(map[string][]T)
	var order []string
	for _, el := range elements {
		name := el.ElementName()
		if name == "" {
			continue
		}
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = append(byName[name], el)
	}
	for _, name := range order {
		group := byName[name]
		if len(group) < 2 {
			continue
		}
		for _, el := range group {
			result.AddError("Duplicate name "+name, el.ElementID())
		}
	}
}

func validateFeatures(c metamodel.Classifier, result *Result) {
	for _, f := range c.OwnFeatures() {
		result.AddErrorIf(f.Name == "", "Simple name not set", f.ID)
	}
	validateNamesAreUnique(c.OwnFeatures(), result)
}

func validateEnumeration(e *metamodel.Enumeration, result *Result) {
	for _, lit := range e.Literals {
		result.AddErrorIf(lit.Name == "", "Simple name not set", lit.ID)
	}
	validateNamesAreUnique(e.Literals, result)
}

func hasRepeats[T comparable](items []T) bool {
	seen := make(map[T]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			return true
		}
		seen[it] = struct{}{}
	}
	return false
}

// checkConceptAncestors walks extends and implements edges from c. Reaching
// a concept twice is a cycle. Reaching an interface twice is a diamond,
// which is fine for concepts.
func checkConceptAncestors(c *metamodel.Concept, result *Result) {
	explored := make(map[any]bool)
	var walkConcept func(*metamodel.Concept)
	var walkInterface func(*metamodel.Interface)

	walkConcept = func(cur *metamodel.Concept) {
		if explored[cur] {
			result.AddError("Cyclic hierarchy found", cur.ID)
			return
		}
		explored[cur] = true
		if cur.Extends != nil {
			walkConcept(cur.Extends)
		}
		for _, i := range cur.Implements {
			walkInterface(i)
		}
	}
	walkInterface = func(cur *metamodel.Interface) {
		if explored[cur] {
			return
		}
		explored[cur] = true
		for _, i := range cur.Extends {
			walkInterface(i)
		}
	}
	walkConcept(c)
}

func checkAnnotationAncestors(a *metamodel.Annotation, result *Result) {
	seen := make(map[*metamodel.Annotation]bool)
	for cur := a; cur != nil; cur = cur.Extends {
		if seen[cur] {
			result.AddError("Cyclic hierarchy found", cur.ID)
			return
		}
		seen[cur] = true
	}
}

func checkInterfaceCycles(i *metamodel.Interface, result *Result) {
	for _, ext := range i.AllExtended() {
		if ext == i {
			result.AddError("Cyclic hierarchy found: the interface extends itself", i.ID)
			return
		}
	}
}

func checkAnnotates(a *metamodel.Annotation, result *Result) {
	result.AddErrorIf(a.EffectiveAnnotates() == nil,
		"An annotation should specify annotates or inherit it", a.ID)
	result.AddErrorIf(a.Extends != nil && a.Annotates != nil && a.Annotates != a.Extends.Annotates,
		"When a sub annotation specify a value for annotates it must be the same value the super annotation specifies", a.ID)
}

// checkAnnotationFeatures rejects containments: annotation instances never
// have children.
func checkAnnotationFeatures(a *metamodel.Annotation, result *Result) {
	for _, f := range a.Features {
		result.AddErrorIf(f.Kind == metamodel.ContainmentFeature,
			"An annotation should not have containment links", f.ID)
	}
}

func validateLanguageDependencies(language *metamodel.Language, result *Result) {
	used := make(map[*metamodel.Language]bool)
	var order []*metamodel.Language
	use := func(l *metamodel.Language) {
		if l == nil || used[l] {
			return
		}
		used[l] = true
		order = append(order, l)
	}

	for _, el := range language.Elements {
		switch e := el.(type) {
		case *metamodel.Concept:
			if e.Extends != nil {
				use(e.Extends.Language)
			}
			for _, i := range e.Implements {
				use(i.Language)
			}
		case *metamodel.Interface:
			for _, i := range e.Extends {
				use(i.Language)
			}
		case *metamodel.Annotation:
			if e.Annotates != nil {
				use(classifierLanguage(e.Annotates))
			}
		}
	}

	declared := make(map[*metamodel.Language]bool, len(language.DependsOn))
	for _, d := range language.DependsOn {
		declared[d] = true
	}
	for _, l := range order {
		if l == language || declared[l] || l.Key == BuiltinsLanguageKey {
			continue
		}
		result.AddError(fmt.Sprintf("Language %s version %s is not listed among dependencies", l.Key, l.Version), language.ID)
	}
}

func classifierLanguage(c metamodel.Classifier) *metamodel.Language {
	switch t := c.(type) {
	case *metamodel.Concept:
		return t.Language
	case *metamodel.Interface:
		return t.Language
	case *metamodel.Annotation:
		return t.Language
	}
	return nil
}
