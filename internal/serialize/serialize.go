// Package serialize converts entity documents to and from the remote
// document representation.
//
// Local documents use time.Time for instants and nil for absent fields. The
// remote store wants primitive.DateTime for instants and no key at all for
// absent fields, because it rejects explicit undefined values.
package serialize

import (
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToRemote returns a copy of doc suitable for writing to the remote store.
//
//   - time.Time and *time.Time become primitive.DateTime
//   - nil values and nil pointers are dropped
//   - nested maps are converted recursively
//   - slices and all other values are passed through unchanged
//
// The input map is not modified.
func ToRemote(doc map[string]any) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if isAbsent(v) {
			continue
		}
		out[k] = toRemoteValue(v)
	}
	return out
}

func toRemoteValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return primitive.NewDateTimeFromTime(t)
	case *time.Time:
		return primitive.NewDateTimeFromTime(*t)
	case bson.M:
		return ToRemote(t)
	case map[string]any:
		return ToRemote(t)
	default:
		return v
	}
}

// FromRemote is the inverse of ToRemote: primitive.DateTime values become
// UTC time.Time and nested maps are converted recursively. Keys that were
// dropped on the way out stay absent.
func FromRemote(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = fromRemoteValue(v)
	}
	return out
}

func fromRemoteValue(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case bson.M:
		return FromRemote(t)
	case map[string]any:
		return FromRemote(t)
	default:
		return v
	}
}

// isAbsent reports whether v is nil or a nil pointer, map, slice or interface.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
