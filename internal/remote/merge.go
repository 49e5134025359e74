package remote

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// MergePaths flattens doc into dotted field paths ("guardian.phone"), one
// per leaf value. Merging a document path by path updates nested fields
// without dropping the stored siblings of those fields. Empty nested
// documents and non-document values are leaves. SyncedAtField is dropped.
func MergePaths(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == SyncedAtField {
			continue
		}
		flattenInto(out, k, v)
	}
	return out
}

func flattenInto(out map[string]any, path string, v any) {
	nested, ok := asDocument(v)
	if !ok || len(nested) == 0 {
		out[path] = v
		return
	}
	for k, child := range nested {
		flattenInto(out, path+"."+k, child)
	}
}

// asDocument reports whether v is a nested document.
func asDocument(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case bson.M:
		return t, true
	}
	return nil, false
}

// setPath stores v at a dotted path in doc. Missing or non-document
// intermediate fields are replaced by new documents.
func setPath(doc map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := asDocument(doc[part])
		if !ok {
			next = make(map[string]any)
			doc[part] = next
		}
		doc = next
	}
	doc[parts[len(parts)-1]] = v
}

// copyDocument returns a copy of doc that shares no nested documents with it.
func copyDocument(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if nested, ok := asDocument(v); ok {
			v = copyDocument(nested)
		}
		out[k] = v
	}
	return out
}
