package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danmuck/cpkctl/internal/semver"
)

var (
	ErrNotAProject        = errors.New("project: not a cpk project")
	ErrInvalidDescriptor  = errors.New("project: invalid descriptor")
	ErrSchemaNotSupported = errors.New("project: descriptor schema not supported")
	ErrMissingResource    = errors.New("project: missing required resource")
)

// SupportedSchemas lists the descriptor schema versions this build accepts.
var SupportedSchemas = []string{"1.0"}

var nameFormat = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-_]*$`)

// Mapping triggers.
const (
	TriggerDefault  = "default"
	TriggerRunMount = "run:mount"
)

// FileMapping declares a file or directory copied (or mounted) from the
// project tree into the image.
type FileMapping struct {
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination"`
	Triggers    []string `yaml:"triggers"`
	Required    bool     `yaml:"required"`
}

// Triggered reports whether the mapping is active for the given trigger.
// Mappings with no declared triggers default to the "default" trigger.
func (m FileMapping) Triggered(trigger string) bool {
	if len(m.Triggers) == 0 {
		return trigger == TriggerDefault
	}
	for _, t := range m.Triggers {
		if t == trigger {
			return true
		}
	}
	return false
}

// MustHave declares files and directories a template requires a project to
// carry.
type MustHave struct {
	Files       []string `yaml:"files"`
	Directories []string `yaml:"directories"`
}

// TemplateInfo describes the template a project was created from.
type TemplateInfo struct {
	Name     string        `yaml:"name"`
	Version  string        `yaml:"version"`
	URL      string        `yaml:"url"`
	Mappings []FileMapping `yaml:"mappings"`
	MustHave MustHave      `yaml:"must_have"`
}

// Descriptor is the parsed cpk/self.yaml document.
type Descriptor struct {
	Schema       string        `yaml:"schema"`
	Name         string        `yaml:"name"`
	Organization string        `yaml:"organization"`
	Description  string        `yaml:"description"`
	Maintainer   string        `yaml:"maintainer"`
	Version      string        `yaml:"version"`
	Registry     string        `yaml:"registry"`
	Template     *TemplateInfo `yaml:"template"`
	Mappings     []FileMapping `yaml:"mappings"`
}

// LoadDescriptor reads and validates the descriptor of the project rooted at
// root.
func LoadDescriptor(root string) (Descriptor, error) {
	marker := filepath.Join(root, MarkerDir, MarkerFile)
	data, err := os.ReadFile(marker)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Descriptor{}, fmt.Errorf("%w: %s is missing %s", ErrNotAProject, root, filepath.Join(MarkerDir, MarkerFile))
		}
		return Descriptor{}, fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, marker, err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s must contain valid YAML: %v", ErrInvalidDescriptor, marker, err)
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", marker, err)
	}
	return d, nil
}

// Validate checks the descriptor against its declared schema version.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Schema) == "" {
		return fmt.Errorf("%w: missing field: schema", ErrInvalidDescriptor)
	}
	if !schemaSupported(d.Schema) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrSchemaNotSupported, d.Schema, strings.Join(SupportedSchemas, ", "))
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: missing field: name", ErrInvalidDescriptor)
	}
	if !nameFormat.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidDescriptor, d.Name, nameFormat.String())
	}
	if strings.TrimSpace(d.Version) != "" {
		if _, err := semver.Parse(d.Version); err != nil {
			return fmt.Errorf("%w: version: %v", ErrInvalidDescriptor, err)
		}
	}
	for i, m := range d.Mappings {
		if err := validateMapping(m); err != nil {
			return fmt.Errorf("%w: mappings[%d]: %v", ErrInvalidDescriptor, i, err)
		}
	}
	if d.Template != nil {
		if strings.TrimSpace(d.Template.Name) == "" {
			return fmt.Errorf("%w: template: missing field: name", ErrInvalidDescriptor)
		}
		for i, m := range d.Template.Mappings {
			if err := validateMapping(m); err != nil {
				return fmt.Errorf("%w: template.mappings[%d]: %v", ErrInvalidDescriptor, i, err)
			}
		}
	}
	return nil
}

// MergedMappings combines template and project mappings. Project mappings
// take priority over template mappings sharing a destination. The
// {project_name} placeholder is substituted in both source and destination.
func (d Descriptor) MergedMappings() []FileMapping {
	var templateMaps []FileMapping
	if d.Template != nil {
		for _, tm := range d.Template.Mappings {
			collision := false
			for _, pm := range d.Mappings {
				if pm.Destination == tm.Destination {
					collision = true
					break
				}
			}
			if !collision {
				templateMaps = append(templateMaps, tm)
			}
		}
	}

	merged := make([]FileMapping, 0, len(templateMaps)+len(d.Mappings))
	for _, m := range append(templateMaps, d.Mappings...) {
		m.Source = strings.ReplaceAll(m.Source, "{project_name}", d.Name)
		m.Destination = strings.ReplaceAll(m.Destination, "{project_name}", d.Name)
		merged = append(merged, m)
	}
	return merged
}

// ValidateStructure checks that the project tree carries everything the
// project format and its template require. A Dockerfile is always required.
func ValidateStructure(p Project, d Descriptor) error {
	mustFiles := []string{"Dockerfile"}
	var mustDirs []string
	if d.Template != nil {
		mustFiles = append(mustFiles, d.Template.MustHave.Files...)
		mustDirs = append(mustDirs, d.Template.MustHave.Directories...)
	}
	for _, file := range mustFiles {
		info, err := os.Stat(p.Resource(file))
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: file %q", ErrMissingResource, file)
		}
	}
	for _, dir := range mustDirs {
		info, err := os.Stat(p.Resource(dir))
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: directory %q", ErrMissingResource, dir)
		}
	}
	return nil
}

func validateMapping(m FileMapping) error {
	if strings.TrimSpace(m.Source) == "" {
		return errors.New("missing field: source")
	}
	if strings.TrimSpace(m.Destination) == "" {
		return errors.New("missing field: destination")
	}
	for _, t := range m.Triggers {
		if t != TriggerDefault && t != TriggerRunMount {
			return fmt.Errorf("unknown trigger %q", t)
		}
	}
	return nil
}

func schemaSupported(schema string) bool {
	for _, s := range SupportedSchemas {
		if s == schema {
			return true
		}
	}
	return false
}
