// Package metamodel holds the M3-level elements a language is made of:
// concepts, interfaces, annotations, enumerations and their features.
// It holds just enough structure for validating a language.
package metamodel

// Element is anything with an id, key and name inside a language.
type Element interface {
	ElementID() string
	ElementKey() string
	ElementName() string
}

// Named carries the identity shared by every element.
type Named struct {
	ID   string
	Key  string
	Name string
}

func (n Named) ElementID() string   { return n.ID }
func (n Named) ElementKey() string  { return n.Key }
func (n Named) ElementName() string { return n.Name }

// Language is a versioned set of language elements.
type Language struct {
	Named
	Version   string
	Elements  []Element
	DependsOn []*Language
}

// FeatureKind distinguishes the three kinds of features.
type FeatureKind int

const (
	PropertyFeature FeatureKind = iota
	ContainmentFeature
	ReferenceFeature
)

// Feature is a property, containment or reference of a classifier.
type Feature struct {
	Named
	Kind     FeatureKind
	Optional bool
	Multiple bool
}

// Classifier is implemented by concepts, interfaces and annotations.
type Classifier interface {
	Element
	OwnFeatures() []*Feature
}

// Concept is an instantiable (or abstract) classifier with single
// inheritance.
type Concept struct {
	Named
	Abstract   bool
	Partition  bool
	Extends    *Concept
	Implements []*Interface
	Features   []*Feature
	// Language owning the concept; nil means the language being validated.
	Language *Language
}

func (c *Concept) OwnFeatures() []*Feature { return c.Features }

// Interface is a classifier with multiple inheritance among interfaces.
type Interface struct {
	Named
	Extends  []*Interface
	Features []*Feature
	Language *Language
}

func (i *Interface) OwnFeatures() []*Feature { return i.Features }

// AllExtended returns every interface reachable through extends edges,
// each once. The receiver itself is included only when a cycle leads back
// to it.
func (i *Interface) AllExtended() []*Interface {
	seen := make(map[*Interface]bool)
	var out []*Interface
	queue := append([]*Interface(nil), i.Extends...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil || seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, next.Extends...)
	}
	return out
}

// Annotation is a classifier whose instances attach to nodes of the
// classifier named by Annotates.
type Annotation struct {
	Named
	Extends    *Annotation
	Implements []*Interface
	Annotates  Classifier
	Features   []*Feature
	Language   *Language
}

func (a *Annotation) OwnFeatures() []*Feature { return a.Features }

// EffectiveAnnotates returns Annotates, or the first value found walking up
// the extends chain.
func (a *Annotation) EffectiveAnnotates() Classifier {
	seen := make(map[*Annotation]bool)
	for cur := a; cur != nil && !seen[cur]; cur = cur.Extends {
		seen[cur] = true
		if cur.Annotates != nil {
			return cur.Annotates
		}
	}
	return nil
}

// Enumeration is a data type with a fixed set of literals.
type Enumeration struct {
	Named
	Literals []Named
}

// PrimitiveType is a data type without structure.
type PrimitiveType struct {
	Named
}
