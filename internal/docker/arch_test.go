package docker

import (
	"errors"
	"testing"
)

func TestCanonicalArchAliases(t *testing.T) {
	cases := map[string]string{
		"x86_64":  "amd64",
		"amd64":   "amd64",
		"aarch64": "arm64v8",
		"arm64":   "arm64v8",
		"armv7l":  "arm32v7",
		"armhf":   "arm32v7",
	}
	for alias, want := range cases {
		got, err := CanonicalArch(alias)
		if err != nil {
			t.Fatalf("CanonicalArch(%q): %v", alias, err)
		}
		if got != want {
			t.Fatalf("CanonicalArch(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestCanonicalArchRejectsUnknown(t *testing.T) {
	if _, err := CanonicalArch("riscv64"); !errors.Is(err, ErrUnsupportedArch) {
		t.Fatalf("expected ErrUnsupportedArch, got %v", err)
	}
}

func TestAssertCanonicalArch(t *testing.T) {
	if err := AssertCanonicalArch("amd64"); err != nil {
		t.Fatalf("amd64 is canonical: %v", err)
	}
	// aliases are not canonical names
	if err := AssertCanonicalArch("x86_64"); !errors.Is(err, ErrUnsupportedArch) {
		t.Fatalf("expected ErrUnsupportedArch, got %v", err)
	}
}

func TestPlatform(t *testing.T) {
	platform, err := Platform("arm32v7")
	if err != nil {
		t.Fatalf("Platform: %v", err)
	}
	if platform != "linux/arm/v7" {
		t.Fatalf("unexpected platform %q", platform)
	}
}

func TestNativeBuild(t *testing.T) {
	if !NativeBuild("arm64v8", "arm32v7") {
		t.Fatalf("arm64v8 machines build arm32v7 natively")
	}
	if NativeBuild("amd64", "arm64v8") {
		t.Fatalf("amd64 machines need emulation for arm64v8")
	}
}
