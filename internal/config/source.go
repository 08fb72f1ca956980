package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

type sourceFormat string

const (
	formatJSON sourceFormat = "json"
	formatYAML sourceFormat = "yaml"
)

func formatOf(path string) sourceFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// toJSON returns the config document as JSON so both formats share the
// strict decoder. JSON input is returned untouched.
func toJSON(path string, data []byte) ([]byte, sourceFormat, error) {
	f := formatOf(path)
	if f == formatJSON {
		return data, f, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, f, fmt.Errorf("yaml unmarshal: %w", err)
	}
	out, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, f, fmt.Errorf("yaml->json: %w", err)
	}
	return out, f, nil
}

// stringKeys rewrites map[any]any nodes, which encoding/json rejects.
func stringKeys(node any) any {
	switch n := node.(type) {
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = stringKeys(v)
		}
		return out
	case map[string]any:
		for k, v := range n {
			n[k] = stringKeys(v)
		}
		return n
	case []any:
		for i, v := range n {
			n[i] = stringKeys(v)
		}
		return n
	}
	return node
}
