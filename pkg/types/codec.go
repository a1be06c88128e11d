package types

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidJSON is returned for input that is not valid JSON after
	// comments and trailing commas are stripped.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNotObject is returned when a document's top-level value is not a mapping.
	ErrNotObject = errors.New("configuration is not an object")
	// ErrYAMLAlias is returned for a YAML alias that refers to itself or that
	// expands past maxAliasExpansions.
	ErrYAMLAlias = errors.New("invalid YAML alias")
)

// maxAliasExpansions bounds the number of alias dereferences in one document.
const maxAliasExpansions = 10000

// ParseJSON decodes a JSON document into an Object. Line and block comments
// and trailing commas are accepted. Key order follows the document.
func ParseJSON(data []byte) (*Object, error) {
	v, err := ParseJSONValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %s", ErrNotObject, KindOf(v))
	}
	return obj, nil
}

// ParseJSONValue decodes any JSON value into the value model.
func ParseJSONValue(data []byte) (any, error) {
	data = jsonc.ToJSON(data)
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// MustParseJSON is like ParseJSON but panics on error. Intended for tests and
// static fixtures.
func MustParseJSON(s string) *Object {
	obj, err := ParseJSON([]byte(s))
	if err != nil {
		panic(err)
	}
	return obj
}

func fromResult(r gjson.Result) any {
	switch {
	case r.IsObject():
		obj := NewObject()
		r.ForEach(func(key, value gjson.Result) bool {
			obj.m.Set(key.String(), fromResult(value))
			return true
		})
		return obj
	case r.IsArray():
		seq := []any{}
		r.ForEach(func(_, value gjson.Result) bool {
			seq = append(seq, fromResult(value))
			return true
		})
		return seq
	}

	switch r.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num
	case gjson.String:
		return r.Str
	default:
		return nil
	}
}

// MarshalJSON encodes the Object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil || o.m == nil {
		return []byte("null"), nil
	}
	return o.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON (or JSONC) object, preserving key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// ParseYAML decodes a YAML document into an Object.
func ParseYAML(data []byte) (*Object, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	v, err := newNodeDecoder().decode(&node)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewObject(), nil
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %s", ErrNotObject, KindOf(v))
	}
	return obj, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Object) UnmarshalYAML(node *yaml.Node) error {
	v, err := newNodeDecoder().decode(node)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("%w: got %s", ErrNotObject, KindOf(v))
	}
	*o = *obj
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (o *Object) MarshalYAML() (any, error) {
	return toNode(o)
}

// nodeDecoder converts a yaml.Node tree into the value model. It tracks the
// anchors being expanded so a self-referencing alias fails instead of
// recursing forever.
type nodeDecoder struct {
	expanding map[*yaml.Node]bool
	aliases   int
}

func newNodeDecoder() *nodeDecoder {
	return &nodeDecoder{expanding: make(map[*yaml.Node]bool)}
}

func (d *nodeDecoder) decode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.decode(n.Content[0])
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := d.decode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.m.Set(n.Content[i].Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.decode(c)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.AliasNode:
		return d.alias(n)
	case yaml.ScalarNode:
		if n.Tag == "!!timestamp" {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Normalize(v), nil
	case 0:
		return nil, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func (d *nodeDecoder) alias(n *yaml.Node) (any, error) {
	target := n.Alias
	if target == nil {
		return nil, fmt.Errorf("line %d: %w: *%s has no anchor", n.Line, ErrYAMLAlias, n.Value)
	}
	if d.expanding[target] {
		return nil, fmt.Errorf("line %d: %w: *%s refers to itself", n.Line, ErrYAMLAlias, n.Value)
	}
	d.aliases++
	if d.aliases > maxAliasExpansions {
		return nil, fmt.Errorf("line %d: %w: more than %d expansions", n.Line, ErrYAMLAlias, maxAliasExpansions)
	}

	d.expanding[target] = true
	defer delete(d.expanding, target)
	return d.decode(target)
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *Object:
		if t == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
		}
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		t.Range(func(k string, e any) bool {
			var child *yaml.Node
			child, err = toNode(e)
			if err != nil {
				return false
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				child,
			)
			return true
		})
		return node, err
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			child, err := toNode(e)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, err
		}
		return node, nil
	}
}
