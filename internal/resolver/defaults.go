package resolver

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/validate"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// applyDefaults copies every default into dst whose path has no value yet.
// Present values are kept even when false, zero, empty or null.
func applyDefaults(dst, defaults *types.Object, log zerolog.Logger) {
	defaults.Range(func(path string, v any) bool {
		if dst.Has(path) {
			return true
		}
		if _, ok := validate.Lookup(dst, path); ok {
			return true
		}
		if !setPath(dst, path, types.Clone(v)) {
			log.Debug().Str("path", path).Msg("default not applied, parent is not an object")
		}
		return true
	})
}

// setPath stores v at a dot path, creating intermediate objects. It fails
// when an intermediate value exists and is not an object.
func setPath(obj *types.Object, path string, v any) bool {
	segs := strings.Split(path, ".")
	cur := obj
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur.Get(seg)
		if !ok {
			child := types.NewObject()
			cur.Set(seg, child)
			cur = child
			continue
		}
		child, isObj := next.(*types.Object)
		if !isObj {
			return false
		}
		cur = child
	}
	cur.Set(segs[len(segs)-1], v)
	return true
}
