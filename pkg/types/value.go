package types

import (
	"reflect"
	"sort"
)

// Kind is the structural tag of a configuration value.
type Kind int

const (
	// KindNull is an absent value or an explicit null.
	KindNull Kind = iota
	// KindScalar is a string, number or boolean.
	KindScalar
	// KindSequence is an ordered []any.
	KindSequence
	// KindMapping is an *Object.
	KindMapping
)

// String returns the kind name used in validation messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "array"
	case KindMapping:
		return "object"
	default:
		return "unknown"
	}
}

// KindOf classifies a value. Values must already be normalized (see Normalize).
func KindOf(v any) Kind {
	switch t := v.(type) {
	case nil:
		return KindNull
	case *Object:
		if t == nil {
			return KindNull
		}
		return KindMapping
	case []any:
		return KindSequence
	default:
		return KindScalar
	}
}

// IsSequence reports whether v is an ordered sequence.
func IsSequence(v any) bool {
	return KindOf(v) == KindSequence
}

// IsMapping reports whether v is a non-nil *Object.
func IsMapping(v any) bool {
	return KindOf(v) == KindMapping
}

// Normalize converts Go-native containers into the value model:
// map[string]any becomes *Object (keys sorted), typed slices become []any and
// integer/float32 numbers become float64.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64, *Object:
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		return FromMap(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return FromMap(m)
		}
	}
	return v
}

// FromMap builds an Object from a Go map. Keys are inserted in sorted order
// since Go maps carry no ordering of their own.
func FromMap(m map[string]any) *Object {
	obj := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		obj.Set(k, m[k])
	}
	return obj
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case []any:
		if t == nil {
			return []any(nil)
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports structural equality. Mapping key order is ignored and all
// numbers compare as float64.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}

	switch ka {
	case KindNull:
		return true
	case KindMapping:
		oa, ob := a.(*Object), b.(*Object)
		if oa.Len() != ob.Len() {
			return false
		}
		equal := true
		oa.Range(func(k string, va any) bool {
			vb, ok := ob.Get(k)
			if !ok || !Equal(va, vb) {
				equal = false
				return false
			}
			return true
		})
		return equal
	case KindSequence:
		sa, sb := a.([]any), b.([]any)
		if len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !Equal(sa[i], sb[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// ToPlain converts a value into plain Go containers (map[string]any, []any)
// for consumers that do not understand *Object.
func ToPlain(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil
		}
		m := make(map[string]any, t.Len())
		t.Range(func(k string, e any) bool {
			m[k] = ToPlain(e)
			return true
		})
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToPlain(e)
		}
		return out
	default:
		return v
	}
}
