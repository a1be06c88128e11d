// Package types defines the configuration value model shared by the loader,
// merge engine and resolver.
//
// A configuration is an *Object: a string-keyed mapping that remembers
// insertion order. Values inside it are one of
//
//	nil                      null / absent
//	bool, float64, string    scalars
//	[]any                    ordered sequence
//	*Object                  nested mapping
//
// Order matters: the merge engine iterates override keys in insertion order
// and encoded output mirrors the order keys were first declared.
package types

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered configuration mapping.
// The zero value is not usable; create one with NewObject.
type Object struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, any]()}
}

// Len returns the number of keys. A nil Object has length 0.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil || o.m == nil {
		return nil, false
	}
	return o.m.Get(key)
}

// Has reports whether key is present, including explicit nulls.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position; a new key is
// appended. v is normalized into the value model.
func (o *Object) Set(key string, v any) {
	if o.m == nil {
		o.m = orderedmap.New[string, any]()
	}
	o.m.Set(key, Normalize(v))
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil || o.m == nil {
		return false
	}
	_, ok := o.m.Delete(key)
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	o.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Range calls fn for each entry in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, value any) bool) {
	if o == nil || o.m == nil {
		return
	}
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	out := NewObject()
	o.Range(func(k string, v any) bool {
		out.m.Set(k, Clone(v))
		return true
	})
	return out
}

// GetObject returns the nested mapping stored under key, if any.
func (o *Object) GetObject(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*Object)
	return obj, ok && obj != nil
}

// GetString returns the string stored under key, if any.
func (o *Object) GetString(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Source is a configuration object together with the file it was read from.
// Path is empty for configurations that did not come from a file.
type Source struct {
	Config *Object
	Path   string
}
