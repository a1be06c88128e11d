// Package resolver flattens configurations that extend other configurations:
// it pre-validates the input, merges every ancestor named through "extends",
// applies default values and post-validates the result.
package resolver

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/event"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/extends"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/loader"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/merge"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/validate"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// DefaultName identifies configurations validated without a name.
const DefaultName = "config"

// Options configures a Resolver.
type Options struct {
	Data Data
	// Loader loads parent configurations. Defaults to a loader.FileLoader on
	// the OS filesystem.
	Loader extends.Loader
	// BaseDir is the relative base for file references of configurations
	// that were not read from a file. Empty means the working directory.
	BaseDir string
	// Logger receives diagnostics. Defaults to the "resolver" component
	// logger.
	Logger *zerolog.Logger
	// AllowExtends is recorded for hosts that read it back; extends are
	// resolved regardless of its value.
	AllowExtends bool
	// Bus receives config.resolved and config.resolve.failed notifications.
	Bus *event.Bus
}

// Result describes one resolution.
type Result struct {
	// ID is a ULID unique to the resolution.
	ID string
	// Config is the flattened configuration.
	Config *types.Object
	// Chain lists the parent identifiers in load order.
	Chain []string
	// Files lists the source file (if any) and every loaded parent file.
	Files []string
}

// Resolver resolves configurations against a swappable Data bundle.
// It is safe for concurrent use; every resolution works on a snapshot of
// the data taken when it starts.
type Resolver struct {
	mu   sync.RWMutex
	snap *snapshot

	loader       extends.Loader
	baseDir      string
	allowExtends bool
	log          zerolog.Logger
	bus          *event.Bus
}

type snapshot struct {
	data   Data
	merger *merge.Engine
}

func newSnapshot(d Data) *snapshot {
	d = d.Clone()
	return &snapshot{data: d, merger: merge.New(d.UpgradeMergeList)}
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	log := logging.Component("resolver")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	l := opts.Loader
	if l == nil {
		l = loader.New(nil, loader.WithLogger(log))
	}
	return &Resolver{
		snap:         newSnapshot(opts.Data),
		loader:       l,
		baseDir:      opts.BaseDir,
		allowExtends: opts.AllowExtends,
		log:          log,
		bus:          opts.Bus,
	}
}

// SetResolverData replaces the resolver data. Resolutions already running
// keep the data they started with.
func (r *Resolver) SetResolverData(d Data) {
	s := newSnapshot(d)
	r.mu.Lock()
	r.snap = s
	r.mu.Unlock()
}

// GetResolverData returns a copy of the current resolver data.
func (r *Resolver) GetResolverData() Data {
	return r.snapshot().data.Clone()
}

// AllowExtends reports the configured allowExtends flag.
func (r *Resolver) AllowExtends() bool {
	return r.allowExtends
}

func (r *Resolver) snapshot() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// PreValidate checks cfg against the pre-validation rules. name defaults to
// DefaultName.
func (r *Resolver) PreValidate(cfg *types.Object, name ...string) error {
	if cfg == nil {
		return invalidInput("config is nil")
	}
	return validate.Validate(cfg, r.snapshot().data.PreValidate, nameOr(name))
}

// PostValidate checks cfg against the post-validation rules. name defaults
// to DefaultName.
func (r *Resolver) PostValidate(cfg *types.Object, name ...string) error {
	if cfg == nil {
		return invalidInput("config is nil")
	}
	return validate.Validate(cfg, r.snapshot().data.PostValidate, nameOr(name))
}

func nameOr(name []string) string {
	if len(name) > 0 && name[0] != "" {
		return name[0]
	}
	return DefaultName
}

// Resolve returns the flattened form of cfg. cfg is not modified.
func (r *Resolver) Resolve(cfg *types.Object) (*types.Object, error) {
	res, err := r.Run(cfg, "")
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// ResolveValue is Resolve for untyped input such as decoded JSON or a
// map[string]any. Anything that is not an object fails with
// ErrInvalidInput.
func (r *Resolver) ResolveValue(v any) (*types.Object, error) {
	obj, ok := types.Normalize(v).(*types.Object)
	if !ok || obj == nil {
		return nil, invalidInput("config is %T, want object", v)
	}
	return r.Resolve(obj)
}

// ResolveFile loads path and resolves it. Relative references in the file
// are relative to the file's directory.
func (r *Resolver) ResolveFile(path string) (*types.Object, error) {
	res, err := r.RunFile(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// Chain resolves cfg and returns the identifiers of its ancestors in load
// order.
func (r *Resolver) Chain(cfg *types.Object) ([]string, error) {
	res, err := r.Run(cfg, "")
	if err != nil {
		return nil, err
	}
	return res.Chain, nil
}

// RunFile is ResolveFile returning the full Result.
func (r *Resolver) RunFile(path string) (*Result, error) {
	if !filepath.IsAbs(path) {
		if r.baseDir != "" {
			path = filepath.Join(r.baseDir, path)
		} else if !extends.IsFilePath(path) {
			path = "." + string(filepath.Separator) + path
		}
	}
	src, err := r.loader.Load(path, "")
	if err != nil {
		return nil, err
	}
	source := src.Path
	if source == "" {
		source = path
	}
	return r.Run(src.Config, source)
}

// Run resolves cfg. source is the file cfg was read from, or "" when it was
// built in memory; it names cfg in validation errors and is the base for
// its relative extends.
func (r *Resolver) Run(cfg *types.Object, source string) (*Result, error) {
	if cfg == nil {
		return nil, invalidInput("config is nil")
	}

	snap := r.snapshot()
	start := time.Now()
	res := &Result{ID: ulid.Make().String()}
	if source != "" {
		res.Files = append(res.Files, source)
	}
	log := r.log.With().Str("resolution", res.ID).Logger()

	name := source
	if name == "" {
		name = DefaultName
	}

	err := r.run(snap, cfg, source, res, log, name)
	if err != nil {
		log.Debug().Err(err).Strs("chain", res.Chain).Msg("resolve failed")
		r.publish(event.Event{Type: event.ConfigResolveFailed, Data: event.ResolveFailedData{
			ID:     res.ID,
			Source: source,
			Chain:  res.Chain,
			Error:  err.Error(),
		}})
		return nil, err
	}

	elapsed := time.Since(start)
	log.Debug().Strs("chain", res.Chain).Dur("elapsed", elapsed).Msg("resolved")
	r.publish(event.Event{Type: event.ConfigResolved, Data: event.ResolvedData{
		ID:       res.ID,
		Source:   source,
		Chain:    res.Chain,
		Duration: elapsed.String(),
	}})
	return res, nil
}

func (r *Resolver) run(snap *snapshot, cfg *types.Object, source string, res *Result, log zerolog.Logger, name string) error {
	if err := validate.Validate(cfg, snap.data.PreValidate, name); err != nil {
		return err
	}

	var result *types.Object
	if !hasExtends(cfg) {
		result = cfg.Clone()
	} else {
		if !r.allowExtends {
			log.Debug().Msg("allowExtends is off; extends are resolved anyway")
		}

		rec := &recordingLoader{Loader: r.loader}
		walker := extends.NewWalker(rec, snap.merger, func(parent *types.Object, id string) error {
			return validate.Validate(parent, snap.data.PreValidate, id)
		}, log)

		relativeBase := ""
		if source == "" {
			relativeBase = r.baseDir
		}

		chain := extends.NewChain()
		ancestors, err := walker.Apply(cfg, source, relativeBase, chain)
		res.Chain = chain.IDs()
		res.Files = append(res.Files, rec.files...)
		if err != nil {
			return &ExtendsError{Chain: res.Chain, Err: err}
		}

		result = snap.merger.Objects(ancestors, cfg)
		if chain.Len() > 0 {
			ids := make([]any, len(res.Chain))
			for i, id := range res.Chain {
				ids[i] = id
			}
			result.Set(extends.Key, ids)
		}

		if v, ok := result.Get(merge.PluginsKey); ok {
			if plugins, isSeq := v.([]any); isSeq {
				reverse(plugins)
			}
		}
	}

	applyDefaults(result, snap.data.DefaultValues, log)

	if err := validate.Validate(result, snap.data.PostValidate, name); err != nil {
		return err
	}

	res.Config = result
	return nil
}

func (r *Resolver) publish(e event.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// hasExtends reports whether cfg names any parent. A null or empty string
// extends is treated like an absent one.
func hasExtends(cfg *types.Object) bool {
	v, ok := cfg.Get(extends.Key)
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

func reverse(s []any) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// recordingLoader remembers the path of every loaded parent.
type recordingLoader struct {
	extends.Loader
	files []string
}

func (l *recordingLoader) Load(identifier, relativeBase string) (*types.Source, error) {
	src, err := l.Loader.Load(identifier, relativeBase)
	if err == nil && src.Path != "" {
		l.files = append(l.files, src.Path)
	}
	return src, err
}
