package ai

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadLabels reads a class index to name mapping. Accepted layouts are a
// YAML list, a YAML map of index to name, or either of those under a
// top-level "names" key. A missing file yields an empty mapping.
func LoadLabels(path string) (map[int]string, error) {
	if path == "" {
		return map[int]string{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[int]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return ParseLabels(data)
}

// ParseLabels decodes label YAML, see LoadLabels.
func ParseLabels(data []byte) (map[int]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	if len(doc.Content) == 0 {
		return map[int]string{}, nil
	}

	node := doc.Content[0]
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "names" {
				node = node.Content[i+1]
				break
			}
		}
	}

	labels := make(map[int]string)
	switch node.Kind {
	case yaml.SequenceNode:
		for i, item := range node.Content {
			labels[i] = item.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			idx, err := strconv.Atoi(node.Content[i].Value)
			if err != nil {
				return nil, fmt.Errorf("label key %q is not an integer", node.Content[i].Value)
			}
			labels[idx] = node.Content[i+1].Value
		}
	default:
		return nil, errors.New("labels must be a list or a map")
	}
	return labels, nil
}

// StringKeyedLabels converts a JSON-style label map, skipping keys that are
// not integers.
func StringKeyedLabels(in map[string]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		idx, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[idx] = v
	}
	return out
}

// ClassName resolves an index through labels, falling back to the index itself.
func ClassName(labels map[int]string, idx int) string {
	if name, ok := labels[idx]; ok && name != "" {
		return name
	}
	return strconv.Itoa(idx)
}
