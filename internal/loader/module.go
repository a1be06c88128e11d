package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

var (
	moduleExtensions = []string{"", ".json", ".jsonc", ".yaml", ".yml"}
	indexFiles       = []string{"index.json", "index.jsonc", "index.yaml", "index.yml"}
)

// resolveModule finds the config file for a bare or @scoped module name.
func (l *FileLoader) resolveModule(name, relativeBase string) (string, error) {
	roots := l.moduleRoots(relativeBase)
	for _, root := range roots {
		if path := l.moduleFile(filepath.Join(root, name)); path != "" {
			l.log.Debug().Str("module", name).Str("path", path).Msg("resolved module")
			return path, nil
		}
	}
	return "", &LoadError{
		Identifier: name,
		Err:        fmt.Errorf("%w: searched %s", ErrNotFound, strings.Join(roots, ", ")),
	}
}

// moduleRoots lists node_modules directories from relativeBase up to the
// filesystem root, followed by the configured module directories.
func (l *FileLoader) moduleRoots(relativeBase string) []string {
	dir := relativeBase
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	} else {
		dir = filepath.Clean(dir)
	}

	var roots []string
	for {
		if filepath.Base(dir) != "node_modules" {
			roots = append(roots, filepath.Join(dir, "node_modules"))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return append(roots, l.moduleDirs...)
}

// moduleFile returns the config file for a module base path: the path
// itself or with a known extension, else the package.json "main" entry or an
// index file when base is a directory.
func (l *FileLoader) moduleFile(base string) string {
	if path := l.withExtension(base); path != "" {
		return path
	}
	if !l.isDir(base) {
		return ""
	}

	if data, err := afero.ReadFile(l.fs, filepath.Join(base, "package.json")); err == nil {
		if main := gjson.GetBytes(data, "main").String(); main != "" {
			if path := l.withExtension(filepath.Join(base, main)); path != "" {
				return path
			}
		}
	}

	for _, index := range indexFiles {
		if path := filepath.Join(base, index); l.isFile(path) {
			return path
		}
	}
	return ""
}

func (l *FileLoader) withExtension(base string) string {
	for _, ext := range moduleExtensions {
		if path := base + ext; l.isFile(path) {
			return path
		}
	}
	return ""
}

func (l *FileLoader) isFile(path string) bool {
	fi, err := l.fs.Stat(path)
	return err == nil && !fi.IsDir()
}

func (l *FileLoader) isDir(path string) bool {
	fi, err := l.fs.Stat(path)
	return err == nil && fi.IsDir()
}

// suggest returns the closest file name next to a missing path, if one is
// close enough to be a likely typo.
func (l *FileLoader) suggest(path string) string {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return ""
	}

	limit := len(name)/3 + 1
	if limit < 2 {
		limit = 2
	}
	best, bestDist := "", limit+1
	for _, e := range entries {
		if e.IsDir() || e.Name() == name {
			continue
		}
		if d := levenshtein.ComputeDistance(name, e.Name()); d < bestDist {
			best, bestDist = e.Name(), d
		}
	}
	if best == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), best)
}
