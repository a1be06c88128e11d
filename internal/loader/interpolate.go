package loader

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// expand processes {env:VAR} and {file:path} placeholders. File paths are
// relative to baseDir; a leading ~/ is the home directory. A placeholder
// whose file cannot be read is left untouched.
func (l *FileLoader) expand(data []byte, baseDir string) []byte {
	str := string(data)

	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		return escapeJSON(l.getenv(envPattern.FindStringSubmatch(match)[1]))
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(l.getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := afero.ReadFile(l.fs, filePath)
		if err != nil {
			l.log.Debug().Str("file", filePath).Err(err).Msg("interpolation file not readable")
			return match
		}
		return escapeJSON(string(content))
	})

	return []byte(str)
}

// escapeJSON escapes s for use inside a JSON string literal.
func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
