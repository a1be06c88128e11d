package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/event"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/loader"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/validate"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

var errMissing = errors.New("missing")

type mapLoader struct {
	configs map[string]string
	loaded  []string
}

func (l *mapLoader) Load(id, _ string) (*types.Source, error) {
	src, ok := l.configs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, errMissing)
	}
	l.loaded = append(l.loaded, id)
	return &types.Source{Config: types.MustParseJSON(src), Path: id}, nil
}

func newResolver(configs map[string]string, data Data) (*Resolver, *mapLoader) {
	l := &mapLoader{configs: configs}
	nop := zerolog.Nop()
	return New(Options{Data: data, Loader: l, Logger: &nop}), l
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestResolve_NoExtendsReturnsCopy(t *testing.T) {
	r, l := newResolver(nil, Data{})
	cfg := types.MustParseJSON(`{"a": 1, "nested": {"b": 2}, "plugins": [{"name": "p1"}, {"name": "p2"}]}`)

	got, err := r.Resolve(cfg)
	require.NoError(t, err)
	assert.True(t, types.Equal(cfg, got))
	assert.NotSame(t, cfg, got)
	assert.Empty(t, l.loaded)

	nested, _ := got.GetObject("nested")
	nested.Set("b", 3)
	orig, _ := cfg.GetObject("nested")
	b, _ := orig.Get("b")
	assert.Equal(t, float64(2), b, "result shares no structure with the input")
}

func TestResolve_NullOrEmptyExtendsIsNoExtends(t *testing.T) {
	r, l := newResolver(nil, Data{})

	for _, src := range []string{
		`{"extends": null, "plugins": [{"name": "a"}, {"name": "b"}]}`,
		`{"extends": "", "plugins": [{"name": "a"}, {"name": "b"}]}`,
	} {
		cfg := types.MustParseJSON(src)
		got, err := r.Resolve(cfg)
		require.NoError(t, err, src)
		assert.True(t, types.Equal(cfg, got), src)
		plugins, _ := got.Get("plugins")
		assert.JSONEq(t, `[{"name": "a"}, {"name": "b"}]`, toJSON(t, plugins))
	}
	assert.Empty(t, l.loaded)
}

func TestResolve_EndToEnd(t *testing.T) {
	r, _ := newResolver(map[string]string{
		"./base.json": `{"a": 1}`,
	}, Data{DefaultValues: types.MustParseJSON(`{"b": 2}`)})

	got, err := r.Resolve(types.MustParseJSON(`{"extends": "./base.json"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"extends": ["./base.json"], "a": 1, "b": 2}`, toJSON(t, got))
}

func TestResolve_DefaultsDoNotOverride(t *testing.T) {
	r, _ := newResolver(nil, Data{DefaultValues: types.MustParseJSON(`{
		"enabled": true, "count": 5, "name": "x", "unset": null, "z": "dflt",
		"out.dir": "dist", "flag.deep": 1
	}`)})

	got, err := r.Resolve(types.MustParseJSON(`{"enabled": false, "count": 0, "name": "", "z": null, "flag": true}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"enabled": false, "count": 0, "name": "", "z": null, "flag": true,
		"unset": null, "out": {"dir": "dist"}
	}`, toJSON(t, got))
}

func TestResolve_DefaultsAreCopied(t *testing.T) {
	defaults := types.MustParseJSON(`{"list": [1]}`)
	r, _ := newResolver(nil, Data{DefaultValues: defaults})

	got, err := r.Resolve(types.NewObject())
	require.NoError(t, err)
	list, _ := got.Get("list")
	list.([]any)[0] = float64(99)

	again, err := r.Resolve(types.NewObject())
	require.NoError(t, err)
	assert.JSONEq(t, `{"list": [1]}`, toJSON(t, again))
}

func TestResolve_PrecedenceLaw(t *testing.T) {
	r, _ := newResolver(map[string]string{
		"./a.json": `{"all": "a", "ab": "a"}`,
		"./b.json": `{"all": "b", "ab": "b", "onlyB": "b"}`,
	}, Data{})

	got, err := r.Resolve(types.MustParseJSON(`{"extends": ["./a.json", "./b.json"], "all": "child"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"all": "child", "ab": "a", "onlyB": "b",
		"extends": ["./b.json", "./a.json"]
	}`, toJSON(t, got))
}

func TestResolve_PluginReordering(t *testing.T) {
	r, _ := newResolver(map[string]string{
		"./parent.json": `{"plugins": [{"name": "y"}, {"name": "x", "opt": 1}]}`,
	}, Data{})

	got, err := r.Resolve(types.MustParseJSON(`{"extends": "./parent.json", "plugins": [{"name": "x"}]}`))
	require.NoError(t, err)
	plugins, _ := got.Get("plugins")
	assert.JSONEq(t, `[{"name": "y"}, {"name": "x"}]`, toJSON(t, plugins))
}

func TestResolve_UpgradeMergeUnion(t *testing.T) {
	r, _ := newResolver(map[string]string{
		"./parent.json": `{"tags": ["a", "b"]}`,
	}, Data{UpgradeMergeList: []string{"tags"}})

	got, err := r.Resolve(types.MustParseJSON(`{"extends": "./parent.json", "tags": "a"}`))
	require.NoError(t, err)
	tags, _ := got.Get("tags")
	assert.Equal(t, []any{"a", "b"}, tags)
}

func TestResolve_InputIsNotModified(t *testing.T) {
	r, _ := newResolver(map[string]string{
		"./parent.json": `{"plugins": [{"name": "y"}], "tags": ["t"]}`,
	}, Data{UpgradeMergeList: []string{"tags"}, DefaultValues: types.MustParseJSON(`{"d": 1}`)})

	const src = `{"extends": "./parent.json", "plugins": [{"name": "x"}, {"name": "z"}], "tags": "u"}`
	cfg := types.MustParseJSON(src)

	_, err := r.Resolve(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, src, toJSON(t, cfg))
}

func TestResolve_CycleIsSafe(t *testing.T) {
	r, l := newResolver(map[string]string{
		"./a.json": `{"extends": "./b.json", "from": "a"}`,
		"b.json":   `{"extends": "./a.json", "from": "b"}`,
	}, Data{})

	got, err := r.Resolve(types.MustParseJSON(`{"extends": "./a.json"}`))
	require.NoError(t, err)
	ext, _ := got.Get("extends")
	assert.Equal(t, []any{"./a.json", "b.json"}, ext)
	assert.Len(t, l.loaded, 2)
}

func TestResolve_ExtendsErrorCarriesChain(t *testing.T) {
	r, _ := newResolver(map[string]string{
		"./ok.json":    `{"extends": "./also-ok.json"}`,
		"also-ok.json": `{"extends": "./missing.json"}`,
	}, Data{})

	_, err := r.Resolve(types.MustParseJSON(`{"extends": "./ok.json"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errMissing)

	var eerr *ExtendsError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, []string{"./ok.json", "also-ok.json", "missing.json"}, eerr.Chain)
	assert.Contains(t, err.Error(), "[./ok.json, also-ok.json, missing.json]")
}

func TestResolve_PreValidation(t *testing.T) {
	r, l := newResolver(map[string]string{
		"./parent.json": `{"name": 5}`,
	}, Data{PreValidate: validate.RuleSet{"name": {Type: "string"}}})

	_, err := r.Resolve(types.MustParseJSON(`{"name": 1, "extends": "./parent.json"}`))
	assert.ErrorIs(t, err, validate.ErrValidation)
	assert.Empty(t, l.loaded, "input is validated before anything loads")

	_, err = r.Resolve(types.MustParseJSON(`{"name": "ok", "extends": "./parent.json"}`))
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "./parent.json", verr.Config, "parents are validated under their identifier")
}

func TestResolve_PostValidationSeesDefaults(t *testing.T) {
	rules := validate.RuleSet{"mode": {Required: true, Type: "string"}}

	r, _ := newResolver(nil, Data{PostValidate: rules})
	_, err := r.Resolve(types.NewObject())
	assert.ErrorIs(t, err, validate.ErrValidation)

	r.SetResolverData(Data{PostValidate: rules, DefaultValues: types.MustParseJSON(`{"mode": "dev"}`)})
	got, err := r.Resolve(types.NewObject())
	require.NoError(t, err)
	mode, _ := got.GetString("mode")
	assert.Equal(t, "dev", mode)
}

func TestResolveValue(t *testing.T) {
	r, _ := newResolver(nil, Data{})

	got, err := r.ResolveValue(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, toJSON(t, got))

	for _, v := range []any{nil, "str", 3, []any{1}} {
		_, err := r.ResolveValue(v)
		assert.ErrorIs(t, err, ErrInvalidInput, "%T", v)
	}

	_, err = r.Resolve(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPreAndPostValidate(t *testing.T) {
	r, _ := newResolver(nil, Data{
		PreValidate:  validate.RuleSet{"a": {Required: true}},
		PostValidate: validate.RuleSet{"b": {Required: true}},
	})
	cfg := types.MustParseJSON(`{"a": 1}`)

	assert.NoError(t, r.PreValidate(cfg))

	err := r.PostValidate(cfg, "my-config")
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "my-config", verr.Config)

	err = r.PostValidate(cfg)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, DefaultName, verr.Config)

	assert.ErrorIs(t, r.PreValidate(nil), ErrInvalidInput)
}

func TestResolverData_GetReturnsCopy(t *testing.T) {
	r, _ := newResolver(nil, Data{
		DefaultValues:    types.MustParseJSON(`{"a": 1}`),
		UpgradeMergeList: []string{"tags"},
	})

	d := r.GetResolverData()
	d.DefaultValues.Set("a", 2)
	d.UpgradeMergeList[0] = "other"

	again := r.GetResolverData()
	a, _ := again.DefaultValues.Get("a")
	assert.Equal(t, float64(1), a)
	assert.Equal(t, []string{"tags"}, again.UpgradeMergeList)
}

func TestSetResolverData_ChangesMergePolicy(t *testing.T) {
	configs := map[string]string{"./p.json": `{"tags": ["a"]}`}
	r, _ := newResolver(configs, Data{})
	cfg := types.MustParseJSON(`{"extends": "./p.json", "tags": ["b"]}`)

	got, err := r.Resolve(cfg)
	require.NoError(t, err)
	tags, _ := got.Get("tags")
	assert.Equal(t, []any{"b"}, tags)

	r.SetResolverData(Data{UpgradeMergeList: []string{"tags"}})
	got, err = r.Resolve(cfg)
	require.NoError(t, err)
	tags, _ = got.Get("tags")
	assert.Equal(t, []any{"a", "b"}, tags)
}

func TestDataFromObject(t *testing.T) {
	d, err := DataFromObject(types.MustParseJSON(`{
		"defaultValues": {"a": 1},
		"preValidate": {"name": "string", "port": {"type": "number", "required": true}},
		"upgradeMergeList": ["tags"],
		"eventPrepend": "ignored"
	}`))
	require.NoError(t, err)
	assert.Equal(t, 1, d.DefaultValues.Len())
	assert.Equal(t, validate.Rule{Type: "string"}, d.PreValidate["name"])
	assert.Equal(t, validate.Rule{Type: "number", Required: true}, d.PreValidate["port"])
	assert.Nil(t, d.PostValidate)
	assert.Equal(t, []string{"tags"}, d.UpgradeMergeList)
}

func TestDataFromObject_InvalidInput(t *testing.T) {
	tests := map[string]string{
		"defaults not object":  `{"defaultValues": []}`,
		"rules not object":     `{"preValidate": "x"}`,
		"rule wrong type":      `{"postValidate": {"a": 1}}`,
		"rule bad field":       `{"postValidate": {"a": {"required": "yes"}}}`,
		"upgrade not array":    `{"upgradeMergeList": "tags"}`,
		"upgrade entry number": `{"upgradeMergeList": ["tags", 1]}`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DataFromObject(types.MustParseJSON(src))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestChain(t *testing.T) {
	r, _ := newResolver(map[string]string{
		"./a.json": `{"extends": "some-module"}`,
		"some-module": `{}`,
	}, Data{})

	ids, err := r.Chain(types.MustParseJSON(`{"extends": "./a.json"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"./a.json", "some-module"}, ids)
}

func TestAllowExtendsIsNotEnforced(t *testing.T) {
	nop := zerolog.Nop()
	r := New(Options{
		Loader:       &mapLoader{configs: map[string]string{"./p.json": `{"p": true}`}},
		Logger:       &nop,
		AllowExtends: false,
	})
	assert.False(t, r.AllowExtends())

	got, err := r.Resolve(types.MustParseJSON(`{"extends": "./p.json"}`))
	require.NoError(t, err)
	assert.True(t, got.Has("p"))
}

func TestRunFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/proj/app.json", []byte(`{"extends": "./base.json", "app": true}`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/proj/base.json", []byte(`{"extends": "shared", "base": true}`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/proj/node_modules/shared/index.json", []byte(`{"shared": true}`), 0o644))

	nop := zerolog.Nop()
	r := New(Options{Loader: loader.New(fsys), Logger: &nop})

	res, err := r.RunFile("/proj/app.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/base.json", "shared"}, res.Chain)
	assert.Equal(t, []string{"/proj/app.json", "/proj/base.json", "/proj/node_modules/shared/index.json"}, res.Files)
	assert.Len(t, res.ID, 26)
	assert.JSONEq(t, `{"app": true, "base": true, "shared": true, "extends": ["/proj/base.json", "shared"]}`,
		toJSON(t, res.Config))

	r = New(Options{Loader: loader.New(fsys), Logger: &nop, BaseDir: "/proj"})
	cfg, err := r.ResolveFile("app.json")
	require.NoError(t, err)
	assert.True(t, cfg.Has("shared"))
}

func TestResolve_PublishesEvents(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	resolved := make(chan event.ResolvedData, 1)
	failed := make(chan event.ResolveFailedData, 1)
	bus.Subscribe(event.ConfigResolved, func(e event.Event) { resolved <- e.Data.(event.ResolvedData) })
	bus.Subscribe(event.ConfigResolveFailed, func(e event.Event) { failed <- e.Data.(event.ResolveFailedData) })

	nop := zerolog.Nop()
	r := New(Options{
		Loader: &mapLoader{configs: map[string]string{"./p.json": `{}`}},
		Logger: &nop,
		Bus:    bus,
	})

	_, err := r.Resolve(types.MustParseJSON(`{"extends": "./p.json"}`))
	require.NoError(t, err)
	select {
	case d := <-resolved:
		assert.Equal(t, []string{"./p.json"}, d.Chain)
		assert.NotEmpty(t, d.ID)
	case <-time.After(time.Second):
		t.Fatal("no config.resolved event")
	}

	_, err = r.Resolve(types.MustParseJSON(`{"extends": "./nope.json"}`))
	require.Error(t, err)
	select {
	case d := <-failed:
		assert.Contains(t, d.Error, "./nope.json")
	case <-time.After(time.Second):
		t.Fatal("no config.resolve.failed event")
	}
}

func TestRegister(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	ctx := context.Background()

	r, _ := newResolver(map[string]string{"./p.json": `{"p": 1}`}, Data{
		PreValidate: validate.RuleSet{"name": {Type: "string"}},
	})

	unregister, err := Register(bus, r, RegisterOptions{EventPrepend: "cfg"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cfg:resolve", "cfg:validate:pre", "cfg:validate:post"}, bus.Handlers())

	out, err := bus.Trigger(ctx, "cfg:resolve", map[string]any{"extends": "./p.json"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"extends": ["./p.json"], "p": 1}`, toJSON(t, out))

	out, err = bus.Trigger(ctx, "cfg:resolve", []byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, toJSON(t, out))

	_, err = bus.Trigger(ctx, "cfg:resolve", "not an object")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = bus.Trigger(ctx, "cfg:validate:pre", ValidateRequest{
		Config: types.MustParseJSON(`{"name": 1}`),
		Name:   "named.json",
	})
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "named.json", verr.Config)

	_, err = bus.Trigger(ctx, "cfg:validate:post", types.NewObject())
	assert.NoError(t, err)

	_, err = Register(bus, r, RegisterOptions{EventPrepend: "cfg"})
	assert.ErrorIs(t, err, event.ErrHandlerExists)
	assert.Len(t, bus.Handlers(), 3, "a failed registration leaves the existing one intact")

	unregister()
	assert.Empty(t, bus.Handlers())
}

func TestTriggerName(t *testing.T) {
	assert.Equal(t, "resolve", TriggerName("", TriggerResolve))
	assert.Equal(t, "tjs:config:validate:pre", TriggerName("tjs:config", TriggerPreValidate))
}
