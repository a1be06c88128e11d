// Package extends resolves the chain of parent configurations named by a
// configuration's "extends" key.
package extends

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/merge"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// Loader turns a parent identifier into a configuration. relativeBase is the
// directory module lookups start from; file identifiers arrive already
// joined with it.
type Loader interface {
	Load(identifier, relativeBase string) (*types.Source, error)
}

// ValidateFunc checks a loaded parent before its own extends are followed.
type ValidateFunc func(cfg *types.Object, name string) error

// Walker follows extends references and merges the resulting ancestors.
type Walker struct {
	loader   Loader
	merger   *merge.Engine
	validate ValidateFunc
	log      zerolog.Logger
}

// NewWalker creates a Walker. validate may be nil.
func NewWalker(loader Loader, merger *merge.Engine, validate ValidateFunc, log zerolog.Logger) *Walker {
	return &Walker{
		loader:   loader,
		merger:   merger,
		validate: validate,
		log:      log,
	}
}

// Apply returns the merged view of every ancestor of cfg. cfg itself is not
// merged in; callers layer it on top of the result.
//
// References are processed right to left. Each resolved parent is layered on
// top of the accumulator, so the leftmost reference wins among siblings.
// A reference whose identifier is already in chain is skipped, which breaks
// cycles without failing.
//
// source is the file cfg was read from ("" if none). Relative file references
// are joined with relativeBase, or with the directory of source when
// relativeBase is empty.
func (w *Walker) Apply(cfg *types.Object, source, relativeBase string, chain *Chain) (*types.Object, error) {
	raw, _ := cfg.Get(Key)
	refs, err := References(raw)
	if err != nil {
		return nil, err
	}

	base := relativeBase
	if base == "" && source != "" {
		base = filepath.Dir(source)
	}

	acc := types.NewObject()
	for i := len(refs) - 1; i >= 0; i-- {
		id := identifier(refs[i], base)
		if !chain.Add(id) {
			w.log.Debug().Str("ref", id).Msg("already loaded, skipping")
			continue
		}

		parent, err := w.resolveParent(id, base, chain)
		if err != nil {
			return nil, err
		}
		acc = w.merger.Objects(acc, parent)
	}

	return acc, nil
}

// resolveParent loads id and merges it on top of its own ancestors.
func (w *Walker) resolveParent(id, base string, chain *Chain) (*types.Object, error) {
	src, err := w.loader.Load(id, base)
	if err != nil {
		return nil, err
	}

	parent := src.Config
	if parent == nil {
		parent = types.NewObject()
	}
	w.log.Debug().Str("ref", id).Str("path", src.Path).Msg("loaded parent config")

	if w.validate != nil {
		if err := w.validate(parent, id); err != nil {
			return nil, err
		}
	}

	if !parent.Has(Key) {
		return parent, nil
	}

	path := src.Path
	if path == "" && IsFilePath(id) {
		path = id
	}
	ancestors, err := w.Apply(parent, path, "", chain)
	if err != nil {
		return nil, err
	}
	return w.merger.Objects(ancestors, parent), nil
}

func identifier(ref, base string) string {
	if !IsFilePath(ref) || filepath.IsAbs(ref) || base == "" {
		return ref
	}
	return filepath.Join(base, ref)
}
