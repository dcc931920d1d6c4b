package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// newSource reads an optional YAML overlay. Keys use the environment variable
// names, for example:
//
//	TABLE_NAME: items
//	CACHE_TTL: 30s
//	UNSET_REMOVED_COLUMNS: true
func newSource(path string) (source, error) {
	if path == "" {
		return source{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return source{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	file := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case []interface{}:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			file[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			file[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return source{file: file}, nil
}
