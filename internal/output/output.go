// Package output renders resolved configurations for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Format encodes v as JSON (indented) or YAML. v may be any configuration
// value.
func Format(v any, format string) (string, error) {
	v = types.Normalize(v)
	switch strings.ToLower(format) {
	case "", FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

// Query runs a jq filter against cfg and returns every emitted value.
func Query(cfg *types.Object, filter string) ([]any, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("jq: filter parse error: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq: compile error: %w", err)
	}

	var results []any
	iter := code.Run(types.ToPlain(cfg))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq: execution error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}
