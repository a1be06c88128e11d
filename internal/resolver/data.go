package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/validate"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// Data is the swappable part of a Resolver.
type Data struct {
	// DefaultValues are applied after merging wherever the result has no
	// value. Keys may be dot paths ("output.dir").
	DefaultValues *types.Object
	// PreValidate is checked against the input and every loaded parent.
	PreValidate validate.RuleSet
	// PostValidate is checked against the final result.
	PostValidate validate.RuleSet
	// UpgradeMergeList names keys merged by set union across the chain.
	UpgradeMergeList []string
}

// Clone returns a deep copy. Rule predicates are shared.
func (d Data) Clone() Data {
	return Data{
		DefaultValues:    d.DefaultValues.Clone(),
		PreValidate:      cloneRules(d.PreValidate),
		PostValidate:     cloneRules(d.PostValidate),
		UpgradeMergeList: append([]string(nil), d.UpgradeMergeList...),
	}
}

func cloneRules(rules validate.RuleSet) validate.RuleSet {
	if rules == nil {
		return nil
	}
	out := make(validate.RuleSet, len(rules))
	for k, v := range rules {
		out[k] = v
	}
	return out
}

// DataFromObject reads resolver data from a configuration object with the
// keys defaultValues, preValidate, postValidate and upgradeMergeList. Other
// keys are ignored. A component of the wrong type yields ErrInvalidInput.
func DataFromObject(obj *types.Object) (Data, error) {
	var d Data
	if obj == nil {
		return d, nil
	}

	if v, ok := obj.Get("defaultValues"); ok && v != nil {
		defaults, isObj := v.(*types.Object)
		if !isObj {
			return d, invalidInput("defaultValues is %s, want object", types.KindOf(v))
		}
		d.DefaultValues = defaults.Clone()
	}

	var err error
	if d.PreValidate, err = rulesFrom(obj, "preValidate"); err != nil {
		return d, err
	}
	if d.PostValidate, err = rulesFrom(obj, "postValidate"); err != nil {
		return d, err
	}

	if v, ok := obj.Get("upgradeMergeList"); ok && v != nil {
		list, isSeq := v.([]any)
		if !isSeq {
			return d, invalidInput("upgradeMergeList is %s, want array", types.KindOf(v))
		}
		for i, e := range list {
			s, isStr := e.(string)
			if !isStr {
				return d, invalidInput("upgradeMergeList entry %d is %s, want string", i, types.KindOf(e))
			}
			d.UpgradeMergeList = append(d.UpgradeMergeList, s)
		}
	}

	return d, nil
}

func rulesFrom(obj *types.Object, key string) (validate.RuleSet, error) {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	rulesObj, isObj := v.(*types.Object)
	if !isObj {
		return nil, invalidInput("%s is %s, want object", key, types.KindOf(v))
	}

	rules := make(validate.RuleSet, rulesObj.Len())
	var err error
	rulesObj.Range(func(path string, rv any) bool {
		var rule validate.Rule
		switch t := rv.(type) {
		case string:
			// shorthand: "name": "string"
			rule.Type = t
		case *types.Object:
			data, merr := json.Marshal(t)
			if merr == nil {
				merr = json.Unmarshal(data, &rule)
			}
			if merr != nil {
				err = invalidInput("%s.%s: %v", key, path, merr)
				return false
			}
		default:
			err = invalidInput("%s.%s is %s, want object or type string", key, path, types.KindOf(rv))
			return false
		}
		rules[path] = rule
		return true
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// String summarizes the data for diagnostics.
func (d Data) String() string {
	return fmt.Sprintf("defaults=%d pre=%d post=%d upgrade=[%s]",
		d.DefaultValues.Len(), len(d.PreValidate), len(d.PostValidate),
		strings.Join(d.UpgradeMergeList, ","))
}
