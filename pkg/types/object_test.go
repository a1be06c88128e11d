package types

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseJSON_PreservesKeyOrder(t *testing.T) {
	obj, err := ParseJSON([]byte(`{"z": 1, "a": {"y": true, "b": null}, "m": [1, "two"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	nested, ok := obj.GetObject("a")
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, nested.Keys())

	v, ok := nested.Get("b")
	assert.True(t, ok, "explicit null is still present")
	assert.Nil(t, v)

	seq, _ := obj.Get("m")
	assert.Equal(t, []any{float64(1), "two"}, seq)
}

func TestParseJSON_Comments(t *testing.T) {
	src := `{
		// line comment
		"name": "base", /* block
		comment */
		"list": [1, 2,],
	}`

	obj, err := ParseJSON([]byte(src))
	require.NoError(t, err)

	name, _ := obj.GetString("name")
	assert.Equal(t, "base", name)
	list, _ := obj.Get("list")
	assert.Equal(t, []any{float64(1), float64(2)}, list)
}

func TestParseJSON_Errors(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a": `))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = ParseJSON([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = ParseJSON(nil)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestObject_SetKeepsPosition(t *testing.T) {
	obj := MustParseJSON(`{"a": 1, "b": 2}`)
	obj.Set("a", 10)
	obj.Set("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, obj.Keys())
	a, _ := obj.Get("a")
	assert.Equal(t, float64(10), a, "ints are normalized to float64")

	assert.True(t, obj.Delete("b"))
	assert.False(t, obj.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, obj.Keys())
}

func TestObject_SetNormalizesContainers(t *testing.T) {
	obj := NewObject()
	obj.Set("tags", []string{"x", "y"})
	obj.Set("nested", map[string]any{"b": 1, "a": 2})

	tags, _ := obj.Get("tags")
	assert.Equal(t, []any{"x", "y"}, tags)

	nested, ok := obj.GetObject("nested")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, nested.Keys())
}

func TestObject_CloneIsDeep(t *testing.T) {
	orig := MustParseJSON(`{"a": {"b": [1, {"c": 2}]}}`)
	clone := orig.Clone()
	require.True(t, Equal(orig, clone))

	inner, _ := clone.GetObject("a")
	inner.Set("b", "replaced")

	origInner, _ := orig.GetObject("a")
	b, _ := origInner.Get("b")
	assert.IsType(t, []any{}, b, "mutating the clone must not reach the original")
}

func TestObject_NilReceiver(t *testing.T) {
	var obj *Object
	assert.Equal(t, 0, obj.Len())
	_, ok := obj.Get("a")
	assert.False(t, ok)
	assert.Empty(t, obj.Keys())
	assert.Nil(t, obj.Clone())

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestObject_MarshalJSONOrder(t *testing.T) {
	obj := MustParseJSON(`{"zeta": 1, "alpha": {"y": 2, "x": 3}, "list": [{"k": "v"}]}`)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"y":2,"x":3},"list":[{"k":"v"}]}`, string(data))
}

func TestObject_UnmarshalJSONField(t *testing.T) {
	var holder struct {
		Defaults *Object `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"defaults": {"b": 1, "a": 2}}`), &holder))
	require.NotNil(t, holder.Defaults)
	assert.Equal(t, []string{"b", "a"}, holder.Defaults.Keys())
}

func TestYAMLRoundTrip(t *testing.T) {
	src := `
name: child
extends:
  - ./base.yaml
plugins:
  - name: b
    opt: 1
  - name: a
enabled: false
`
	obj, err := ParseYAML([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "extends", "plugins", "enabled"}, obj.Keys())

	plugins, _ := obj.Get("plugins")
	require.Len(t, plugins, 2)
	first := plugins.([]any)[0].(*Object)
	opt, _ := first.Get("opt")
	assert.Equal(t, float64(1), opt)

	out, err := yaml.Marshal(obj)
	require.NoError(t, err)

	again, err := ParseYAML(out)
	require.NoError(t, err)
	assert.True(t, Equal(obj, again))
	assert.Equal(t, obj.Keys(), again.Keys())
}

func TestParseYAML_EmptyAndScalar(t *testing.T) {
	obj, err := ParseYAML([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, 0, obj.Len())

	_, err = ParseYAML([]byte("just a string"))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestParseYAML_Aliases(t *testing.T) {
	obj, err := ParseYAML([]byte("base: &b\n  x: 1\nchild: *b\nlist: [*b, *b]\n"))
	require.NoError(t, err)
	child, _ := obj.Get("child")
	assert.JSONEq(t, `{"x": 1}`, toJSON(t, child))
	list, _ := obj.Get("list")
	assert.Len(t, list, 2)
}

func TestParseYAML_SelfReferencingAlias(t *testing.T) {
	tests := []string{
		"a: &x\n  b: *x\n",
		"a: &x\n  - 1\n  - *x\n",
		"a: &x\n  b:\n    c: [*x]\n",
	}
	for _, src := range tests {
		_, err := ParseYAML([]byte(src))
		assert.ErrorIs(t, err, ErrYAMLAlias, src)
	}
}

func TestParseYAML_AliasExpansionLimit(t *testing.T) {
	src := "l0: &l0 [x]\n"
	for i := 1; i <= 4; i++ {
		src += fmt.Sprintf("l%d: &l%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				src += ", "
			}
			src += fmt.Sprintf("*l%d", i-1)
		}
		src += "]\n"
	}

	_, err := ParseYAML([]byte(src))
	assert.ErrorIs(t, err, ErrYAMLAlias)
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"nil", nil, KindNull},
		{"nil object", (*Object)(nil), KindNull},
		{"string", "x", KindScalar},
		{"number", 1.5, KindScalar},
		{"bool", false, KindScalar},
		{"sequence", []any{1}, KindSequence},
		{"mapping", NewObject(), KindMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.in))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, float64(1)))
	assert.True(t, Equal(MustParseJSON(`{"a":1,"b":2}`), MustParseJSON(`{"b":2,"a":1}`)))
	assert.False(t, Equal(MustParseJSON(`{"a":1}`), MustParseJSON(`{"a":1,"b":2}`)))
	assert.False(t, Equal([]any{1, 2}, []any{2, 1}))
	assert.False(t, Equal("1", 1))
	assert.True(t, Equal(nil, (*Object)(nil)))
}

func TestToPlain(t *testing.T) {
	obj := MustParseJSON(`{"a": {"b": [1, {"c": true}]}}`)

	plain := ToPlain(obj)
	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": []any{float64(1), map[string]any{"c": true}},
		},
	}, plain)
}
