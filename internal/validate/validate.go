// Package validate checks configuration objects against rule sets keyed by
// dot-separated paths.
//
// A rule key is either a literal path ("output.dir", "plugins.0.name") or a
// glob over paths ("plugins.*.name", "**.enabled"). Each rule can require
// presence, restrict the value type and run a custom predicate:
//
//	rules := validate.RuleSet{
//		"name":           {Required: true, Type: "string"},
//		"plugins":        {Type: "array"},
//		"plugins.*.name": {Required: true, Type: "string"},
//		"port":           {Type: "number", Test: isPort, Expected: "a port number"},
//	}
//	err := validate.Validate(cfg, rules, "app.json")
package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// Rule describes what is expected at one path.
type Rule struct {
	// Required fails validation when nothing exists at the path.
	Required bool `json:"required,omitempty"`
	// Type restricts the value: string, number, boolean, object, array, null
	// or any. Alternatives are separated by "|".
	Type string `json:"type,omitempty"`
	// Expected describes the accepted values in error messages.
	Expected string `json:"expected,omitempty"`
	// Message replaces the generated error message.
	Message string `json:"message,omitempty"`
	// Test is an optional predicate the value must satisfy.
	Test func(value any) bool `json:"-"`
}

// RuleSet maps paths (or path globs) to rules.
type RuleSet map[string]Rule

// Validate checks cfg against rules and returns an *Error listing every
// violation, or nil. name identifies the configuration in messages.
func Validate(cfg *types.Object, rules RuleSet, name string) error {
	if len(rules) == 0 {
		return nil
	}

	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	verr := &Error{Config: name}
	var flat []flatEntry

	for _, key := range keys {
		rule := rules[key]

		if !isGlob(key) {
			v, ok := Lookup(cfg, key)
			if !ok {
				if rule.Required {
					verr.add(key, "required", rule.messageOr("is required"), nil)
				}
				continue
			}
			checkValue(verr, key, v, rule)
			continue
		}

		if flat == nil {
			flat = flatten(cfg)
		}
		pattern := strings.ReplaceAll(key, ".", "/")
		matched := false
		for _, entry := range flat {
			ok, err := doublestar.Match(pattern, entry.slashPath)
			if err != nil {
				verr.add(key, "pattern", fmt.Sprintf("invalid rule pattern: %v", err), nil)
				break
			}
			if ok {
				matched = true
				checkValue(verr, entry.path, entry.value, rule)
			}
		}
		if !matched && rule.Required {
			verr.add(key, "required", rule.messageOr("no value matches required pattern"), nil)
		}
	}

	return verr.asError()
}

func checkValue(verr *Error, path string, v any, rule Rule) {
	if rule.Type != "" {
		ok, known := matchType(rule.Type, v)
		if !known {
			verr.add(path, "type", fmt.Sprintf("unknown rule type %q", rule.Type), v)
			return
		}
		if !ok {
			verr.add(path, "type", rule.messageOr(fmt.Sprintf("expected %s, got %s", rule.expected(), typeName(v))), v)
			return
		}
	}

	if rule.Test != nil && !rule.Test(v) {
		verr.add(path, "test", rule.messageOr(fmt.Sprintf("expected %s", rule.expected())), v)
	}
}

func (r Rule) messageOr(fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

func (r Rule) expected() string {
	switch {
	case r.Expected != "":
		return r.Expected
	case r.Type != "":
		return r.Type
	default:
		return "a valid value"
	}
}

// matchType reports whether v matches one of the "|"-separated type names.
// known is false when a name is not recognized.
func matchType(want string, v any) (ok, known bool) {
	for _, name := range strings.Split(want, "|") {
		name = strings.TrimSpace(name)
		switch name {
		case "any":
			ok = true
		case "string", "number", "boolean", "object", "array", "null":
			if typeName(v) == name {
				ok = true
			}
		default:
			return false, false
		}
	}
	return ok, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case *types.Object:
		if types.KindOf(v) == types.KindNull {
			return "null"
		}
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Lookup returns the value at a dot-separated path. Numeric segments index
// into sequences.
func Lookup(cfg *types.Object, path string) (any, bool) {
	var cur any = cfg
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case *types.Object:
			v, ok := c.Get(seg)
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

type flatEntry struct {
	path      string
	slashPath string
	value     any
}

// flatten lists every path in cfg, containers included, in document order.
func flatten(cfg *types.Object) []flatEntry {
	var out []flatEntry
	var walk func(prefix []string, v any)
	walk = func(prefix []string, v any) {
		if len(prefix) > 0 {
			out = append(out, flatEntry{
				path:      strings.Join(prefix, "."),
				slashPath: strings.Join(prefix, "/"),
				value:     v,
			})
		}
		switch t := v.(type) {
		case *types.Object:
			t.Range(func(k string, e any) bool {
				walk(append(prefix[:len(prefix):len(prefix)], k), e)
				return true
			})
		case []any:
			for i, e := range t {
				walk(append(prefix[:len(prefix):len(prefix)], strconv.Itoa(i)), e)
			}
		}
	}
	walk(nil, cfg)
	return out
}

func isGlob(key string) bool {
	return strings.ContainsAny(key, "*?[{")
}
