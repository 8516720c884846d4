package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadLayers reads several YAML files ordered from weakest to strongest and
// merges them before defaults, overrides and validation run. A key set in a
// stronger file wins, including explicit false and zero values. Sequences
// are replaced rather than appended.
func LoadLayers(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return Parse(nil)
	}
	var merged map[string]any
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		var layer map[string]any
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
		merged = mergeLayer(layer, merged)
	}
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("config: merge: %w", err)
	}
	return Parse(data)
}

func mergeLayer(strong, weak map[string]any) map[string]any {
	if strong == nil {
		return cloneLayer(weak)
	}
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = cloneNode(value)
	}
	for key, value := range strong {
		strongMap, ok := value.(map[string]any)
		weakMap, weakOK := result[key].(map[string]any)
		if ok && weakOK {
			result[key] = mergeLayer(strongMap, weakMap)
			continue
		}
		result[key] = cloneNode(value)
	}
	return result
}

func cloneLayer(layer map[string]any) map[string]any {
	if layer == nil {
		return nil
	}
	clone := make(map[string]any, len(layer))
	for key, value := range layer {
		clone[key] = cloneNode(value)
	}
	return clone
}

func cloneNode(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneLayer(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, item := range typed {
			clone[i] = cloneNode(item)
		}
		return clone
	default:
		return value
	}
}
