package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validDescriptor = `schema: "1.0"
name: sensor-driver
organization: acme
description: camera driver
maintainer: dev@acme.example
version: "1.2.0"
template:
  name: basic
  version: "2.0"
  mappings:
    - source: "packages"
      destination: "/code/{project_name}/packages"
    - source: "assets"
      destination: "/assets"
  must_have:
    files: ["Dockerfile"]
    directories: []
mappings:
  - source: "custom/assets"
    destination: "/assets"
    triggers: ["run:mount"]
    required: true
`

func writeProject(t *testing.T, body string) Project {
	t.Helper()
	root := t.TempDir()
	markerDir := filepath.Join(root, MarkerDir)
	if err := os.MkdirAll(markerDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(markerDir, MarkerFile), []byte(body), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return At(root)
}

func TestLoadDescriptorParsesValidDocument(t *testing.T) {
	p := writeProject(t, validDescriptor)
	d, err := LoadDescriptor(p.Root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Name != "sensor-driver" || d.Organization != "acme" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.Template == nil || d.Template.Name != "basic" {
		t.Fatalf("unexpected template: %+v", d.Template)
	}
}

func TestLoadDescriptorMissingMarkerIsNotAProject(t *testing.T) {
	if _, err := LoadDescriptor(t.TempDir()); !errors.Is(err, ErrNotAProject) {
		t.Fatalf("expected ErrNotAProject, got %v", err)
	}
}

func TestLoadDescriptorRejectsMissingSchema(t *testing.T) {
	p := writeProject(t, "name: foo\n")
	if _, err := LoadDescriptor(p.Root); !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestLoadDescriptorRejectsUnsupportedSchema(t *testing.T) {
	p := writeProject(t, "schema: \"9.9\"\nname: foo\n")
	if _, err := LoadDescriptor(p.Root); !errors.Is(err, ErrSchemaNotSupported) {
		t.Fatalf("expected ErrSchemaNotSupported, got %v", err)
	}
}

func TestLoadDescriptorRejectsBadVersion(t *testing.T) {
	p := writeProject(t, "schema: \"1.0\"\nname: foo\nversion: \"not-a-version\"\n")
	if _, err := LoadDescriptor(p.Root); !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestMergedMappingsProjectBeatsTemplate(t *testing.T) {
	p := writeProject(t, validDescriptor)
	d, err := LoadDescriptor(p.Root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	mappings := d.MergedMappings()
	if len(mappings) != 2 {
		t.Fatalf("expected 2 mappings after collision pruning, got %d: %+v", len(mappings), mappings)
	}
	// Template mapping survives with the placeholder substituted.
	if mappings[0].Destination != "/code/sensor-driver/packages" {
		t.Fatalf("unexpected template mapping: %+v", mappings[0])
	}
	// The /assets destination resolves to the project mapping.
	if mappings[1].Source != "custom/assets" || !mappings[1].Required {
		t.Fatalf("project mapping did not win: %+v", mappings[1])
	}
	if !mappings[1].Triggered(TriggerRunMount) || mappings[1].Triggered(TriggerDefault) {
		t.Fatalf("unexpected triggers: %+v", mappings[1].Triggers)
	}
}

func TestValidateStructureRequiresDockerfile(t *testing.T) {
	p := writeProject(t, validDescriptor)
	d, err := LoadDescriptor(p.Root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ValidateStructure(p, d); !errors.Is(err, ErrMissingResource) {
		t.Fatalf("expected ErrMissingResource, got %v", err)
	}
	if err := os.WriteFile(p.Resource("Dockerfile"), []byte("FROM scratch\n"), 0o644); err != nil {
		t.Fatalf("write Dockerfile: %v", err)
	}
	if err := ValidateStructure(p, d); err != nil {
		t.Fatalf("structure should be valid: %v", err)
	}
}

func TestLaunchersListsExecutableAndShebangFiles(t *testing.T) {
	p := writeProject(t, validDescriptor)
	dir := p.LaunchersDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// shebang, not executable
	if err := os.WriteFile(filepath.Join(dir, "default.sh"), []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// executable, no shebang
	if err := os.WriteFile(filepath.Join(dir, "debug"), []byte("echo hi\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	// neither
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a launcher\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := p.Launchers()
	want := []string{"debug", "default"}
	if len(got) != len(want) {
		t.Fatalf("unexpected launchers: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected launchers: %v want %v", got, want)
		}
	}
}

func TestLoadConfigurations(t *testing.T) {
	p := writeProject(t, validDescriptor)

	cfgs, err := LoadConfigurations(p)
	if err != nil {
		t.Fatalf("missing file should be empty, got: %v", err)
	}
	if len(cfgs) != 0 {
		t.Fatalf("expected empty map, got %+v", cfgs)
	}

	body := "version: \"1.0\"\nconfigurations:\n  default:\n    ports: [\"8080:80\"]\n"
	if err := os.WriteFile(p.Resource(ConfigurationsFileName), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfgs, err = LoadConfigurations(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := cfgs["default"]; !ok {
		t.Fatalf("expected default configuration, got %+v", cfgs)
	}

	bad := "configurations: {}\n"
	if err := os.WriteFile(p.Resource(ConfigurationsFileName), []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigurations(p); !errors.Is(err, ErrInvalidConfigurations) {
		t.Fatalf("expected ErrInvalidConfigurations, got %v", err)
	}
}
