package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfigurations = errors.New("project: invalid configurations file")

// Configuration is one named run configuration from configurations.yaml. The
// shape is deliberately loose: keys map onto container run options understood
// by the endpoint layer.
type Configuration map[string]any

type configurationsFile struct {
	Version        string                   `yaml:"version"`
	Configurations map[string]Configuration `yaml:"configurations"`
}

// LoadConfigurations reads the optional configurations.yaml of a project. A
// missing file yields an empty map.
func LoadConfigurations(p Project) (map[string]Configuration, error) {
	path := filepath.Join(p.Root, ConfigurationsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Configuration{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfigurations, path, err)
	}

	var parsed configurationsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfigurations, path, err)
	}
	if parsed.Version == "" {
		return nil, fmt.Errorf("%w: %s: missing root key 'version'", ErrInvalidConfigurations, path)
	}
	if parsed.Version != "1.0" {
		return nil, fmt.Errorf("%w: %s: unsupported version %q", ErrInvalidConfigurations, path, parsed.Version)
	}
	if parsed.Configurations == nil {
		return map[string]Configuration{}, nil
	}
	return parsed.Configurations, nil
}
