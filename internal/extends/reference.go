package extends

import (
	"errors"
	"fmt"
	"path/filepath"
	"unicode"
	"unicode/utf8"
)

// Key is the reserved configuration key naming parent configurations.
const Key = "extends"

// ErrInvalidReference is returned when an extends value is neither a string
// nor a sequence of strings.
var ErrInvalidReference = errors.New("invalid extends reference")

// IsFilePath reports whether ref names a file rather than a module. Absolute
// paths and anything starting with a character other than a letter, digit or
// '@' (./, ../, ~, ...) are files; bare and @scoped names are modules.
func IsFilePath(ref string) bool {
	if filepath.IsAbs(ref) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(ref)
	if r == utf8.RuneError {
		return true
	}
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '@')
}

// References normalizes an extends value into an ordered list.
func References(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, fmt.Errorf("%w: empty string", ErrInvalidReference)
		}
		return []string{t}, nil
	case []any:
		refs := make([]string, 0, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d is %T, want string", ErrInvalidReference, i, e)
			}
			if s == "" {
				return nil, fmt.Errorf("%w: entry %d is empty", ErrInvalidReference, i)
			}
			refs = append(refs, s)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("%w: got %T, want string or array of strings", ErrInvalidReference, v)
	}
}

// Chain records the identifiers loaded during one resolution, in load order.
// Identifiers are compared by their cleaned form so "./a.json" and "a.json"
// are the same entry.
type Chain struct {
	ids  []string
	seen map[string]struct{}
}

// NewChain creates an empty Chain.
func NewChain() *Chain {
	return &Chain{seen: make(map[string]struct{})}
}

// Has reports whether id was already added.
func (c *Chain) Has(id string) bool {
	_, ok := c.seen[chainKey(id)]
	return ok
}

// Add appends id. It returns false, leaving the chain untouched, when id is
// already present.
func (c *Chain) Add(id string) bool {
	key := chainKey(id)
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	c.ids = append(c.ids, id)
	return true
}

// IDs returns a copy of the identifiers in load order.
func (c *Chain) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Len returns the number of identifiers.
func (c *Chain) Len() int {
	return len(c.ids)
}

func chainKey(id string) string {
	if IsFilePath(id) {
		return filepath.Clean(id)
	}
	return id
}
