package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/cpkctl/internal/config"
	"github.com/danmuck/cpkctl/internal/docker"
	"github.com/danmuck/cpkctl/internal/testutil/testlog"
)

const testDescriptor = `schema: "1.0"
name: sensor-driver
organization: acme
version: "1.2.0"
mappings:
  - source: packages
    destination: /code/sensor-driver/packages
    triggers: [run:mount]
  - source: /var/data
    destination: /data
    triggers: [run:mount]
`

func fixtureProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "cpk"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cpk", "self.yaml"), []byte(testDescriptor), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM alpine\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func TestLoadWorkspaceOutsideRepository(t *testing.T) {
	testlog.Start(t)
	ws, err := loadWorkspace(fixtureProject(t))
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	if ws.name() != "sensor-driver" {
		t.Fatalf("unexpected name %q", ws.name())
	}
	if ws.repo.Present {
		t.Fatalf("fixture is not a git checkout")
	}
	if ws.isRelease() {
		t.Fatalf("untracked checkouts are never releases")
	}
}

func TestWorkspaceImageName(t *testing.T) {
	testlog.Start(t)
	ws, err := loadWorkspace(fixtureProject(t))
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	image, err := ws.image(config.DefaultConfig(), "arm64v8")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if image != "docker.io/acme/sensor-driver:1.2.0-arm64v8" {
		t.Fatalf("unexpected image %q", image)
	}
	if _, err := ws.image(config.DefaultConfig(), "x86_64"); err == nil {
		t.Fatalf("non-canonical arch must be rejected")
	}
}

func TestWorkspaceRemoteRef(t *testing.T) {
	testlog.Start(t)
	ws, err := loadWorkspace(fixtureProject(t))
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}

	repository, tag, err := ws.remoteRef(config.DefaultConfig(), "arm64v8")
	if err != nil {
		t.Fatalf("remoteRef: %v", err)
	}
	if repository != "acme/sensor-driver" || tag != "1.2.0-arm64v8" {
		t.Fatalf("unexpected reference %s:%s", repository, tag)
	}

	if _, _, err := ws.remoteRef(config.DefaultConfig(), "x86_64"); err == nil {
		t.Fatalf("non-canonical arch must be rejected")
	}

	cfg := config.DefaultConfig()
	cfg.Registry.Host = "registry.example.com"
	if _, _, err := ws.remoteRef(cfg, "arm64v8"); err == nil {
		t.Fatalf("non-Hub registries cannot be inspected remotely")
	}
}

func TestWorkspaceOrganizationFallback(t *testing.T) {
	testlog.Start(t)
	dir := fixtureProject(t)
	descriptor := strings.Replace(testDescriptor, "organization: acme\n", "", 1)
	if err := os.WriteFile(filepath.Join(dir, "cpk", "self.yaml"), []byte(descriptor), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ws, err := loadWorkspace(dir)
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}

	if _, err := ws.organization(config.DefaultConfig()); err == nil {
		t.Fatalf("no organization anywhere must be an error")
	}

	cfg := config.DefaultConfig()
	cfg.Registry.Namespace = "fallback"
	organization, err := ws.organization(cfg)
	if err != nil {
		t.Fatalf("organization: %v", err)
	}
	if organization != "fallback" {
		t.Fatalf("expected configured namespace, got %q", organization)
	}
}

func TestWorkspaceBuildLabels(t *testing.T) {
	testlog.Start(t)
	ws, err := loadWorkspace(fixtureProject(t))
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	labels := ws.buildLabels(config.DefaultConfig())

	vcsKey := docker.Label("project.acme.sensor-driver.code.vcs")
	if labels[vcsKey] != "ND" {
		t.Fatalf("untracked checkout should report ND vcs, got %q", labels[vcsKey])
	}
	tagKey := docker.Label("project.acme.sensor-driver.code.version.tag")
	if labels[tagKey] != "1.2.0" {
		t.Fatalf("unexpected version tag label %q", labels[tagKey])
	}
}

func TestWorkspaceMountVolumes(t *testing.T) {
	testlog.Start(t)
	dir := fixtureProject(t)
	ws, err := loadWorkspace(dir)
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}

	volumes, err := ws.mountVolumes([]string{"default"})
	if err != nil {
		t.Fatalf("mountVolumes: %v", err)
	}
	if len(volumes) != 0 {
		t.Fatalf("no default-trigger mappings declared, got %v", volumes)
	}

	volumes, err = ws.mountVolumes([]string{"default", "run:mount"})
	if err != nil {
		t.Fatalf("mountVolumes: %v", err)
	}
	if len(volumes) != 2 {
		t.Fatalf("expected both mount mappings, got %v", volumes)
	}
	want := filepath.Join(dir, "packages") + ":/code/sensor-driver/packages"
	found := false
	for _, volume := range volumes {
		if volume == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("relative sources resolve against the project root, got %v", volumes)
	}
}

func TestWorkspaceMountConflict(t *testing.T) {
	testlog.Start(t)
	dir := fixtureProject(t)
	descriptor := testDescriptor + `  - source: /other/data
    destination: /data
    triggers: [run:mount]
`
	if err := os.WriteFile(filepath.Join(dir, "cpk", "self.yaml"), []byte(descriptor), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ws, err := loadWorkspace(dir)
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	if _, err := ws.mountVolumes([]string{"run:mount"}); err == nil {
		t.Fatalf("conflicting destination claims must fail")
	}
}
