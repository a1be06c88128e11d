// Package merge implements the deep merge used to layer configuration objects
// on top of the configurations they extend.
package merge

import (
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// PluginsKey is the key whose sequence entries are merged by their "name".
const PluginsKey = "plugins"

// Engine merges configuration values. The upgrade-merge keys it was built
// with are promoted to sequences and combined by set union instead of
// being overridden.
type Engine struct {
	upgrade map[string]struct{}
}

// New creates an Engine for the given upgrade-merge key list.
func New(upgradeMergeList []string) *Engine {
	upgrade := make(map[string]struct{}, len(upgradeMergeList))
	for _, k := range upgradeMergeList {
		upgrade[k] = struct{}{}
	}
	return &Engine{upgrade: upgrade}
}

// IsUpgradeKey reports whether key is merged by set union.
func (e *Engine) IsUpgradeKey(key string) bool {
	_, ok := e.upgrade[key]
	return ok
}

// Merge combines base and override into a new value; neither input is
// modified. When either side is a sequence the result is a sequence merge,
// otherwise both sides are treated as mappings (absent means empty).
// parentKey is the key the values were found under and enables the plugin
// merge for "plugins".
func (e *Engine) Merge(base, override any, combineArrays bool, parentKey string) any {
	base, override = types.Normalize(base), types.Normalize(override)

	if types.IsSequence(base) || types.IsSequence(override) {
		return e.mergeSequence(base, override, combineArrays, parentKey)
	}

	b, _ := base.(*types.Object)
	o, _ := override.(*types.Object)
	return e.Objects(b, o)
}

// Objects is the mapping merge: the result starts as a deep copy of base and
// every key of override is layered on top in override's insertion order.
func (e *Engine) Objects(base, override *types.Object) *types.Object {
	dst := base.Clone()
	if dst == nil {
		dst = types.NewObject()
	}

	override.Range(func(key string, ov any) bool {
		upgrade := e.IsUpgradeKey(key)
		if upgrade && !types.IsSequence(ov) {
			ov = []any{ov}
		}

		bv, _ := base.Get(key)
		switch {
		case types.IsSequence(bv) || types.IsSequence(ov):
			dst.Set(key, e.mergeSequence(bv, ov, upgrade, key))
		case types.IsMapping(ov):
			bo, _ := bv.(*types.Object)
			dst.Set(key, e.Objects(bo, ov.(*types.Object)))
		default:
			dst.Set(key, ov)
		}
		return true
	})

	return dst
}

func (e *Engine) mergeSequence(base, override any, combine bool, parentKey string) []any {
	baseSeq := asSequence(base)
	overSeq := asSequence(override)

	// A single-element or non-sequence override seeds from base; only a
	// multi-element override sequence seeds from itself.
	var dst []any
	if ov, ok := override.([]any); ok && len(ov) > 1 {
		dst = cloneSequence(ov)
	} else {
		dst = cloneSequence(baseSeq)
	}

	if parentKey == PluginsKey && types.IsSequence(base) {
		return mergePlugins(dst, baseSeq, overSeq)
	}

	for i, ov := range overSeq {
		if i >= len(dst) {
			dst = append(dst, types.Clone(ov))
			continue
		}

		oo, overIsObj := ov.(*types.Object)
		do, destIsObj := dst[i].(*types.Object)
		switch {
		case overIsObj && destIsObj:
			dst[i] = e.Objects(do, oo)
		case combine:
			if !contains(dst, ov) {
				dst = append(dst, types.Clone(ov))
			}
		default:
			dst[i] = types.Clone(ov)
		}
	}

	return dst
}

// mergePlugins keeps base plugins that are missing from dst at the tail and
// moves every override plugin to the front, replacing any entry of the same
// name.
func mergePlugins(dst, base, override []any) []any {
	for _, bp := range base {
		if indexByName(dst, pluginName(bp)) < 0 {
			dst = append(dst, types.Clone(bp))
		}
	}

	for _, op := range override {
		if i := indexByName(dst, pluginName(op)); i >= 0 {
			dst = append(dst[:i], dst[i+1:]...)
		}
		dst = append([]any{types.Clone(op)}, dst...)
	}

	return dst
}

func pluginName(v any) any {
	obj, ok := v.(*types.Object)
	if !ok {
		return nil
	}
	name, _ := obj.Get("name")
	return name
}

func indexByName(seq []any, name any) int {
	for i, e := range seq {
		if types.Equal(pluginName(e), name) {
			return i
		}
	}
	return -1
}

func asSequence(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		if types.KindOf(v) == types.KindNull {
			return nil
		}
		return []any{v}
	}
}

func cloneSequence(seq []any) []any {
	out := make([]any, len(seq))
	for i, e := range seq {
		out[i] = types.Clone(e)
	}
	return out
}

func contains(seq []any, v any) bool {
	for _, e := range seq {
		if types.Equal(e, v) {
			return true
		}
	}
	return false
}
