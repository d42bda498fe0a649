package params

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gauntlet/pkg/logging"
)

// LoadFile reads a YAML parameter file into a Set, preserving the key order
// of the document. Values must be scalars; nested mappings or sequences are
// rejected. Duplicate keys within the file resolve to the last occurrence
// with a warning.
func LoadFile(path string) (*Set, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigurationError("", "file", fmt.Sprintf("failed to read parameter file %s: %v", path, err))
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, NewConfigurationError("", "file", fmt.Sprintf("failed to parse YAML in %s: %v", path, err))
	}

	set := NewSet()
	if len(doc.Content) == 0 {
		// Empty document is a valid, empty parameter source.
		return set, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, NewConfigurationError("", "file", fmt.Sprintf("parameter file %s must contain a mapping of key: value pairs", path))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valueNode := root.Content[i+1]
		if valueNode.Kind != yaml.ScalarNode {
			return nil, NewConfigurationError(keyNode.Value, "file", fmt.Sprintf("value must be a scalar (line %d)", valueNode.Line))
		}
		if prev, replaced := set.Put(keyNode.Value, valueNode.Value); replaced {
			logging.Warn("Params", "Duplicate key %q in %s, keeping last value (was %q)", keyNode.Value, path, prev)
		}
	}

	return set, nil
}

// Resolve merges the optional file source with explicit overrides into the
// final parameter set for the run. Overrides win; each displaced file value
// is logged naming the file as the losing source. An override with an empty
// value does not participate in the merge. The merged set must contain the
// platform key or resolution fails.
func Resolve(filePath string, overrides *Set) (*Set, error) {
	var merged *Set
	if filePath == "" {
		merged = NewSet()
	} else {
		loaded, err := LoadFile(filePath)
		if err != nil {
			return nil, err
		}
		merged = loaded
		logging.Debug("Params", "Loaded %d parameters from %s", merged.Len(), filePath)
	}

	if overrides != nil {
		for _, key := range overrides.Keys() {
			value, _ := overrides.Lookup(key)
			if value == "" {
				continue
			}
			if prev, replaced := merged.Put(key, value); replaced && prev != value {
				logging.Warn("Params", "Override replaces parameter %q from file %s (%q -> %q)", key, filePath, prev, value)
			}
		}
	}

	if platform, ok := merged.Lookup(KeyPlatform); !ok || strings.TrimSpace(platform) == "" {
		return nil, NewConfigurationError(KeyPlatform, "resolver", "no platform selected: set it in the parameter file or pass --platform")
	}

	return merged, nil
}

// ParseKeyValues parses repeatable key=value flag values into a map.
// A missing '=' or an empty key is a configuration error.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, NewConfigurationError(pair, "override", "expected key=value")
		}
		out[key] = value
	}
	return out, nil
}
