// Package loader reads configuration files and resolves module references
// into configuration objects.
package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/extends"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// FileLoader loads configurations from a filesystem. File identifiers are
// read directly; module identifiers are looked up in node_modules
// directories above the relative base and then in the configured module
// directories.
type FileLoader struct {
	fs          afero.Fs
	moduleDirs  []string
	interpolate bool
	getenv      func(string) string
	log         zerolog.Logger
}

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithModuleDirs adds directories searched for module references after the
// node_modules lookup.
func WithModuleDirs(dirs ...string) Option {
	return func(l *FileLoader) {
		l.moduleDirs = append(l.moduleDirs, dirs...)
	}
}

// WithInterpolation toggles {env:VAR} and {file:path} expansion in JSON
// configs. It is enabled by default.
func WithInterpolation(enabled bool) Option {
	return func(l *FileLoader) {
		l.interpolate = enabled
	}
}

// WithGetenv replaces the environment lookup used for interpolation.
func WithGetenv(getenv func(string) string) Option {
	return func(l *FileLoader) {
		l.getenv = getenv
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(log zerolog.Logger) Option {
	return func(l *FileLoader) {
		l.log = log
	}
}

// New creates a FileLoader on fsys. A nil fsys uses the OS filesystem.
func New(fsys afero.Fs, opts ...Option) *FileLoader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	l := &FileLoader{
		fs:          fsys,
		interpolate: true,
		getenv:      os.Getenv,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements extends.Loader.
func (l *FileLoader) Load(identifier, relativeBase string) (*types.Source, error) {
	path := identifier
	if !extends.IsFilePath(identifier) {
		resolved, err := l.resolveModule(identifier, relativeBase)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	cfg, err := l.read(identifier, path)
	if err != nil {
		return nil, err
	}
	return &types.Source{Config: cfg, Path: path}, nil
}

// ReadFile reads and parses a single configuration file without following
// its extends.
func (l *FileLoader) ReadFile(path string) (*types.Object, error) {
	return l.read(path, path)
}

func (l *FileLoader) read(identifier, path string) (*types.Object, error) {
	l.log.Debug().Str("id", identifier).Str("path", path).Msg("reading config")

	format := formatOf(path)
	if format == formatScript {
		return nil, &LoadError{Identifier: identifier, Path: path, Err: ErrUnsupportedFormat}
	}

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{
				Identifier: identifier,
				Path:       path,
				Err:        ErrNotFound,
				Suggestion: l.suggest(path),
			}
		}
		return nil, &LoadError{Identifier: identifier, Path: path, Err: err}
	}

	var cfg *types.Object
	switch format {
	case formatYAML:
		cfg, err = types.ParseYAML(data)
	default:
		if l.interpolate {
			data = l.expand(data, filepath.Dir(path))
		}
		cfg, err = types.ParseJSON(data)
	}
	if err != nil {
		return nil, &LoadError{Identifier: identifier, Path: path, Err: err}
	}
	return cfg, nil
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatScript
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".js", ".cjs", ".mjs":
		return formatScript
	default:
		return formatJSON
	}
}
