package docker

import (
	"errors"
	"testing"
)

func TestParseImageNameFull(t *testing.T) {
	image, err := ParseImageName("registry.example.com:5500/acme/sensor-driver:v1.2-arm64v8")
	if err != nil {
		t.Fatalf("ParseImageName: %v", err)
	}
	if image.Registry.Hostname != "registry.example.com" || image.Registry.Port != 5500 {
		t.Fatalf("unexpected registry: %+v", image.Registry)
	}
	if image.User != "acme" || image.Repository != "sensor-driver" {
		t.Fatalf("unexpected name: %+v", image)
	}
	if image.Tag != "v1.2" || image.Arch != "arm64v8" {
		t.Fatalf("arch suffix should split off the tag: tag=%q arch=%q", image.Tag, image.Arch)
	}
}

func TestParseImageNameDefaults(t *testing.T) {
	image, err := ParseImageName("alpine")
	if err != nil {
		t.Fatalf("ParseImageName: %v", err)
	}
	if image.User != DefaultUser || image.Tag != DefaultTag || image.Arch != "" {
		t.Fatalf("unexpected defaults: %+v", image)
	}
	if !image.Registry.IsDefault() {
		t.Fatalf("expected default registry, got %+v", image.Registry)
	}
}

func TestCompileRoundTrip(t *testing.T) {
	for _, name := range []string{
		"alpine",
		"acme/sensor-driver",
		"acme/sensor-driver:v1.2",
		"acme/sensor-driver:v1.2-amd64",
		"registry.example.com/acme/sensor-driver:v1.2-arm32v7",
	} {
		image, err := ParseImageName(name)
		if err != nil {
			t.Fatalf("ParseImageName(%q): %v", name, err)
		}
		if got := image.Compile(); got != name {
			t.Fatalf("Compile(ParseImageName(%q)) = %q", name, got)
		}
	}
}

func TestCompileImpliesLatestTagWithArch(t *testing.T) {
	image := ImageName{
		Registry:   DefaultRegistry(),
		User:       "acme",
		Repository: "sensor-driver",
		Tag:        DefaultTag,
		Arch:       "amd64",
	}
	if got := image.Compile(); got != "acme/sensor-driver:latest-amd64" {
		t.Fatalf("tag must be explicit when an arch suffix follows, got %q", got)
	}
}

func TestParseImageNameRejectsGarbage(t *testing.T) {
	for _, name := range []string{"", "a/b/c/d", ":justatag"} {
		if _, err := ParseImageName(name); !errors.Is(err, ErrInvalidImageName) {
			t.Fatalf("name %q: expected ErrInvalidImageName, got %v", name, err)
		}
	}
}

func TestLabelNamespacing(t *testing.T) {
	if got := Label(".code.version.tag"); got != "cpk.label.code.version.tag" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := LabelArg("template.name", "basic"); got != "cpk.label.template.name=basic" {
		t.Fatalf("unexpected label arg %q", got)
	}
}

func TestSanitizeTag(t *testing.T) {
	if got := SanitizeTag("feature/new sensor"); got != "feature-new-sensor" {
		t.Fatalf("unexpected sanitized tag %q", got)
	}
	if got := SanitizeTag("v1.2.3-rc1"); got != "v1.2.3-rc1" {
		t.Fatalf("legal tags must pass through, got %q", got)
	}
}
