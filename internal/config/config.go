package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/loader"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/merge"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// FileNames are the settings file names looked up in each location.
var FileNames = []string{"config-resolver.json", "config-resolver.jsonc"}

// Environment variables read by Load.
const (
	EnvConfig        = "CONFIG_RESOLVER_CONFIG"
	EnvConfigContent = "CONFIG_RESOLVER_CONFIG_CONTENT"
	EnvUpgradeMerge  = "CONFIG_RESOLVER_UPGRADE_MERGE"
	EnvModuleDirs    = "CONFIG_RESOLVER_MODULE_DIRS"
	EnvEventPrepend  = "CONFIG_RESOLVER_EVENT_PREPEND"
)

// listKeys are upgrade-merged across settings sources.
var listKeys = []string{"upgradeMergeList", "moduleDirs"}

// Settings configure the resolver tooling.
type Settings struct {
	// Data is the resolver data (defaults, rule sets, upgrade-merge keys).
	Data resolver.Data
	// ModuleDirs are searched for module references after node_modules.
	ModuleDirs []string
	// EventPrepend prefixes the host trigger names.
	EventPrepend string
	// AllowExtends is passed through to the resolver.
	AllowExtends bool
	// Interpolate enables {env:} and {file:} expansion in loaded configs.
	Interpolate bool
	// Sources lists the settings files that were loaded, in order.
	Sources []string
	// Raw is the merged settings document.
	Raw *types.Object
}

// Load loads settings from multiple sources (priority order):
// 1. Global settings ($XDG_CONFIG_HOME/config-resolver/)
// 2. Project settings (directory and directory/.config-resolver/)
// 3. CONFIG_RESOLVER_CONFIG file
// 4. CONFIG_RESOLVER_CONFIG_CONTENT inline JSON
// 5. Environment variables
//
// Sources are layered with the resolver's own merge engine, so later
// sources override earlier ones and upgradeMergeList and moduleDirs follow
// upgrade-merge rules. Missing files are skipped; malformed ones are an
// error.
func Load(directory string) (*Settings, error) {
	raw := types.NewObject()
	merger := merge.New(listKeys)
	files := loader.New(nil)
	var sources []string

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string) error {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return nil
		}
		obj, err := files.ReadFile(absPath)
		if err != nil {
			if errors.Is(err, loader.ErrNotFound) {
				return nil
			}
			return err
		}
		loaded[absPath] = true
		sources = append(sources, absPath)
		raw = merger.Objects(raw, resolveDirs(obj, filepath.Dir(absPath)))
		return nil
	}

	var candidates []string
	globalPath := GetPaths().Config
	for _, name := range FileNames {
		candidates = append(candidates, filepath.Join(globalPath, name))
	}
	if directory != "" {
		for _, name := range FileNames {
			candidates = append(candidates, filepath.Join(directory, name))
		}
		for _, name := range FileNames {
			candidates = append(candidates, ProjectConfigPath(directory, name))
		}
	}
	if configPath := os.Getenv(EnvConfig); configPath != "" {
		candidates = append(candidates, configPath)
	}

	for _, path := range candidates {
		if err := loadOnce(path); err != nil {
			return nil, err
		}
	}

	if content := os.Getenv(EnvConfigContent); content != "" {
		inline, err := types.ParseJSON([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvConfigContent, err)
		}
		raw = merger.Objects(raw, resolveDirs(inline, directory))
	}

	raw = merger.Objects(raw, envOverrides(directory))

	return fromObject(raw, sources)
}

// resolveDirs makes relative moduleDirs entries absolute against baseDir.
func resolveDirs(obj *types.Object, baseDir string) *types.Object {
	v, ok := obj.Get("moduleDirs")
	if !ok {
		return obj
	}
	dirs, ok := v.([]any)
	if !ok {
		return obj
	}
	out := obj.Clone()
	resolved := make([]any, len(dirs))
	for i, d := range dirs {
		if s, isStr := d.(string); isStr && baseDir != "" && !filepath.IsAbs(s) {
			d = filepath.Join(baseDir, s)
		}
		resolved[i] = d
	}
	out.Set("moduleDirs", resolved)
	return out
}

// envOverrides builds a settings layer from environment variables.
func envOverrides(directory string) *types.Object {
	env := types.NewObject()
	if v := os.Getenv(EnvUpgradeMerge); v != "" {
		env.Set("upgradeMergeList", splitList(v, ","))
	}
	if v := os.Getenv(EnvModuleDirs); v != "" {
		env.Set("moduleDirs", splitList(v, string(os.PathListSeparator)))
		env = resolveDirs(env, directory)
	}
	if v := os.Getenv(EnvEventPrepend); v != "" {
		env.Set("eventPrepend", v)
	}
	return env
}

func splitList(s, sep string) []any {
	var out []any
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FromObject converts a settings document into Settings.
func FromObject(obj *types.Object) (*Settings, error) {
	return fromObject(obj, nil)
}

func fromObject(raw *types.Object, sources []string) (*Settings, error) {
	data, err := resolver.DataFromObject(raw)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Data:        data,
		Interpolate: true,
		Sources:     sources,
		Raw:         raw,
	}

	if v, ok := raw.Get("moduleDirs"); ok && v != nil {
		dirs, isSeq := v.([]any)
		if !isSeq {
			return nil, fmt.Errorf("%w: moduleDirs is %s, want array", resolver.ErrInvalidInput, types.KindOf(v))
		}
		for i, d := range dirs {
			str, isStr := d.(string)
			if !isStr {
				return nil, fmt.Errorf("%w: moduleDirs entry %d is %s, want string", resolver.ErrInvalidInput, i, types.KindOf(d))
			}
			s.ModuleDirs = append(s.ModuleDirs, str)
		}
	}
	if s.EventPrepend, err = stringField(raw, "eventPrepend"); err != nil {
		return nil, err
	}
	if s.AllowExtends, err = boolField(raw, "allowExtends", false); err != nil {
		return nil, err
	}
	if s.Interpolate, err = boolField(raw, "interpolate", true); err != nil {
		return nil, err
	}
	return s, nil
}

func stringField(obj *types.Object, key string) (string, error) {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", fmt.Errorf("%w: %s is %s, want string", resolver.ErrInvalidInput, key, types.KindOf(v))
	}
	return s, nil
}

func boolField(obj *types.Object, key string, def bool) (bool, error) {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return def, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return def, fmt.Errorf("%w: %s is %s, want boolean", resolver.ErrInvalidInput, key, types.KindOf(v))
	}
	return b, nil
}

// LoaderOptions returns the loader options implied by s.
func (s *Settings) LoaderOptions() []loader.Option {
	return []loader.Option{
		loader.WithModuleDirs(s.ModuleDirs...),
		loader.WithInterpolation(s.Interpolate),
	}
}
