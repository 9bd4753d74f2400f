package codec

import (
	"fmt"

	"lionrepo/internal/domain"
)

// Wire shapes used for encoding. Decoding walks a generic tree instead so
// that errors can name the offending field.

type wireChunk struct {
	SerializationFormatVersion string         `json:"serializationFormatVersion" yaml:"serializationFormatVersion"`
	Languages                  []wireLanguage `json:"languages" yaml:"languages"`
	Nodes                      []wireNode     `json:"nodes" yaml:"nodes"`
}

type wireLanguage struct {
	Key     *string `json:"key" yaml:"key"`
	Version *string `json:"version" yaml:"version"`
}

type wireMetaPointer struct {
	Language *string `json:"language" yaml:"language"`
	Version  *string `json:"version" yaml:"version"`
	Key      *string `json:"key" yaml:"key"`
}

type wireNode struct {
	ID          string            `json:"id" yaml:"id"`
	Classifier  wireMetaPointer   `json:"classifier" yaml:"classifier"`
	Parent      *string           `json:"parent" yaml:"parent"`
	Properties  []wireProperty    `json:"properties" yaml:"properties"`
	Children    []wireContainment `json:"children" yaml:"children"`
	References  []wireReference   `json:"references" yaml:"references"`
	Annotations []string          `json:"annotations" yaml:"annotations"`
}

type wireProperty struct {
	Property wireMetaPointer `json:"property" yaml:"property"`
	Value    *string         `json:"value" yaml:"value"`
}

type wireContainment struct {
	Containment wireMetaPointer `json:"containment" yaml:"containment"`
	Children    []string        `json:"children" yaml:"children"`
}

type wireReference struct {
	Reference wireMetaPointer `json:"reference" yaml:"reference"`
	Targets   []wireTarget    `json:"targets" yaml:"targets"`
}

type wireTarget struct {
	Reference   *string `json:"reference" yaml:"reference"`
	ResolveInfo *string `json:"resolveInfo" yaml:"resolveInfo"`
}

func toWireMetaPointer(mp *domain.MetaPointer) wireMetaPointer {
	if mp == nil {
		return wireMetaPointer{}
	}
	return wireMetaPointer{Language: mp.LanguageRef(), Version: mp.VersionRef(), Key: mp.KeyRef()}
}

func toWire(chunk *domain.Chunk) *wireChunk {
	wc := &wireChunk{
		SerializationFormatVersion: chunk.SerializationFormatVersion,
		Languages:                  make([]wireLanguage, 0, len(chunk.Languages())),
		Nodes:                      make([]wireNode, 0, chunk.Len()),
	}
	for _, lv := range chunk.Languages() {
		wc.Languages = append(wc.Languages, wireLanguage{Key: lv.KeyRef(), Version: lv.VersionRef()})
	}
	for _, n := range chunk.Nodes() {
		wn := wireNode{
			ID:          n.ID,
			Classifier:  toWireMetaPointer(n.Classifier),
			Properties:  make([]wireProperty, 0, len(n.Properties())),
			Children:    make([]wireContainment, 0, len(n.Containments())),
			References:  make([]wireReference, 0, len(n.References())),
			Annotations: append(make([]string, 0, len(n.Annotations())), n.Annotations()...),
		}
		if !n.IsRoot() {
			parent := n.ParentID
			wn.Parent = &parent
		}
		for _, pv := range n.Properties() {
			wn.Properties = append(wn.Properties, wireProperty{
				Property: toWireMetaPointer(pv.MetaPointer()),
				Value:    pv.ValueRef(),
			})
		}
		for _, cv := range n.Containments() {
			wn.Children = append(wn.Children, wireContainment{
				Containment: toWireMetaPointer(cv.MetaPointer),
				Children:    append(make([]string, 0, len(cv.Children)), cv.Children...),
			})
		}
		for _, rv := range n.References() {
			wr := wireReference{
				Reference: toWireMetaPointer(rv.MetaPointer),
				Targets:   make([]wireTarget, 0, len(rv.Entries)),
			}
			for _, e := range rv.Entries {
				wr.Targets = append(wr.Targets, wireTarget{Reference: e.Reference, ResolveInfo: e.ResolveInfo})
			}
			wn.References = append(wn.References, wr)
		}
		wc.Nodes = append(wc.Nodes, wn)
	}
	return wc
}

// treeDecoder builds a chunk from the generic tree produced by a JSON or
// YAML parser.
type treeDecoder struct {
	in *domain.Interner
}

func (d treeDecoder) chunk(tree any) (*domain.Chunk, error) {
	root, err := asObject(tree, "")
	if err != nil {
		return nil, err
	}
	version, err := requiredString(root, "", "serializationFormatVersion")
	if err != nil {
		return nil, err
	}
	chunk := domain.NewChunk(version)

	languages, err := optionalArray(root, "", "languages")
	if err != nil {
		return nil, err
	}
	for i, item := range languages {
		path := fmt.Sprintf("languages[%d]", i)
		obj, err := asObject(item, path)
		if err != nil {
			return nil, err
		}
		key, err := nullableString(obj, path, "key", true)
		if err != nil {
			return nil, err
		}
		ver, err := nullableString(obj, path, "version", true)
		if err != nil {
			return nil, err
		}
		chunk.AddLanguage(d.in.LanguageVersion(key, ver))
	}

	nodes, err := requiredArray(root, "", "nodes")
	if err != nil {
		return nil, err
	}
	for i, item := range nodes {
		n, err := d.node(item, fmt.Sprintf("nodes[%d]", i))
		if err != nil {
			return nil, err
		}
		chunk.AddNode(n)
	}
	return chunk, nil
}

func (d treeDecoder) node(tree any, path string) (*domain.Node, error) {
	obj, err := asObject(tree, path)
	if err != nil {
		return nil, err
	}
	id, err := requiredString(obj, path, "id")
	if err != nil {
		return nil, err
	}
	classifier, err := d.metaPointer(obj, path, "classifier")
	if err != nil {
		return nil, err
	}
	parent, err := nullableString(obj, path, "parent", false)
	if err != nil {
		return nil, err
	}
	n := domain.NewNode(id, classifier, "")
	if parent != nil {
		n.ParentID = *parent
	}

	properties, err := optionalArray(obj, path, "properties")
	if err != nil {
		return nil, err
	}
	for i, item := range properties {
		ipath := fmt.Sprintf("%s.properties[%d]", path, i)
		pobj, err := asObject(item, ipath)
		if err != nil {
			return nil, err
		}
		mp, err := d.metaPointer(pobj, ipath, "property")
		if err != nil {
			return nil, err
		}
		value, err := nullableString(pobj, ipath, "value", false)
		if err != nil {
			return nil, err
		}
		n.SetPropertyValue(d.in.PropertyValue(mp, value))
	}

	containmentKey := "children"
	if _, ok := obj[containmentKey]; !ok {
		containmentKey = "containments"
	}
	containments, err := optionalArray(obj, path, containmentKey)
	if err != nil {
		return nil, err
	}
	for i, item := range containments {
		ipath := fmt.Sprintf("%s.%s[%d]", path, containmentKey, i)
		cobj, err := asObject(item, ipath)
		if err != nil {
			return nil, err
		}
		mp, err := d.metaPointer(cobj, ipath, "containment")
		if err != nil {
			return nil, err
		}
		children, err := requiredStrings(cobj, ipath, "children")
		if err != nil {
			return nil, err
		}
		n.AddContainment(domain.NewContainmentValue(mp, children...))
	}

	references, err := optionalArray(obj, path, "references")
	if err != nil {
		return nil, err
	}
	for i, item := range references {
		ipath := fmt.Sprintf("%s.references[%d]", path, i)
		robj, err := asObject(item, ipath)
		if err != nil {
			return nil, err
		}
		mp, err := d.metaPointer(robj, ipath, "reference")
		if err != nil {
			return nil, err
		}
		targets, err := requiredArray(robj, ipath, "targets")
		if err != nil {
			return nil, err
		}
		rv := domain.NewReferenceValue(mp)
		for j, t := range targets {
			tpath := fmt.Sprintf("%s.targets[%d]", ipath, j)
			tobj, err := asObject(t, tpath)
			if err != nil {
				return nil, err
			}
			ref, err := nullableString(tobj, tpath, "reference", false)
			if err != nil {
				return nil, err
			}
			info, err := nullableString(tobj, tpath, "resolveInfo", false)
			if err != nil {
				return nil, err
			}
			rv.Entries = append(rv.Entries, domain.ReferenceEntry{Reference: ref, ResolveInfo: info})
		}
		n.AddReference(rv)
	}

	annotations, err := optionalStrings(obj, path, "annotations")
	if err != nil {
		return nil, err
	}
	n.SetAnnotations(annotations)
	return n, nil
}

func (d treeDecoder) metaPointer(obj map[string]any, path, key string) (*domain.MetaPointer, error) {
	mpath := join(path, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, &DecodeError{Field: mpath, Msg: "required"}
	}
	mobj, err := asObject(raw, mpath)
	if err != nil {
		return nil, err
	}
	language, err := nullableString(mobj, mpath, "language", true)
	if err != nil {
		return nil, err
	}
	version, err := nullableString(mobj, mpath, "version", true)
	if err != nil {
		return nil, err
	}
	k, err := nullableString(mobj, mpath, "key", true)
	if err != nil {
		return nil, err
	}
	return d.in.MetaPointer(language, version, k), nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func asObject(v any, path string) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, &DecodeError{Field: path, Msg: fmt.Sprintf("non-string key %v", k)}
			}
			out[ks] = val
		}
		return out, nil
	}
	return nil, &DecodeError{Field: path, Msg: fmt.Sprintf("expected object, got %s", typeName(v))}
}

func requiredString(obj map[string]any, path, key string) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", &DecodeError{Field: join(path, key), Msg: "required"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &DecodeError{Field: join(path, key), Msg: fmt.Sprintf("expected string, got %s", typeName(raw))}
	}
	return s, nil
}

func nullableString(obj map[string]any, path, key string, required bool) (*string, error) {
	raw, ok := obj[key]
	if !ok {
		if required {
			return nil, &DecodeError{Field: join(path, key), Msg: "required"}
		}
		return nil, nil
	}
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &DecodeError{Field: join(path, key), Msg: fmt.Sprintf("expected string or null, got %s", typeName(raw))}
	}
	return &s, nil
}

func optionalArray(obj map[string]any, path, key string) ([]any, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, &DecodeError{Field: join(path, key), Msg: fmt.Sprintf("expected array, got %s", typeName(raw))}
	}
	return arr, nil
}

func requiredArray(obj map[string]any, path, key string) ([]any, error) {
	if raw, ok := obj[key]; !ok || raw == nil {
		return nil, &DecodeError{Field: join(path, key), Msg: "required"}
	}
	return optionalArray(obj, path, key)
}

func optionalStrings(obj map[string]any, path, key string) ([]string, error) {
	arr, err := optionalArray(obj, path, key)
	if err != nil || arr == nil {
		return nil, err
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, &DecodeError{Field: fmt.Sprintf("%s[%d]", join(path, key), i), Msg: fmt.Sprintf("expected string, got %s", typeName(item))}
		}
		out[i] = s
	}
	return out, nil
}

func requiredStrings(obj map[string]any, path, key string) ([]string, error) {
	if raw, ok := obj[key]; !ok || raw == nil {
		return nil, &DecodeError{Field: join(path, key), Msg: "required"}
	}
	return optionalStrings(obj, path, key)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any, map[any]any:
		return "object"
	}
	return "number"
}
