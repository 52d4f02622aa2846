package docker

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

var ErrUnsupportedArch = errors.New("docker: unsupported architecture")

// canonicalArch maps the many names an architecture goes by to the single
// name images are tagged with.
var canonicalArch = map[string]string{
	"arm":      "arm32v7",
	"arm32v7":  "arm32v7",
	"armv7l":   "arm32v7",
	"armhf":    "arm32v7",
	"x64":      "amd64",
	"x86_64":   "amd64",
	"amd64":    "amd64",
	"Intel 64": "amd64",
	"arm64":    "arm64v8",
	"arm64v8":  "arm64v8",
	"armv8":    "arm64v8",
	"aarch64":  "arm64v8",
}

var archToPlatform = map[string]string{
	"amd64":   "linux/amd64",
	"arm32v7": "linux/arm/v7",
	"arm64v8": "linux/arm64/v8",
}

// buildCompatibility lists, per machine architecture, the image
// architectures it can build natively (without binfmt emulation).
var buildCompatibility = map[string][]string{
	"arm32v7": {"arm32v7"},
	"arm64v8": {"arm32v7", "arm64v8"},
	"amd64":   {"amd64"},
}

// CanonicalArch normalizes any known architecture alias.
func CanonicalArch(arch string) (string, error) {
	canonical, ok := canonicalArch[strings.TrimSpace(arch)]
	if !ok {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedArch, arch, strings.Join(Architectures(), ", "))
	}
	return canonical, nil
}

// AssertCanonicalArch rejects anything that is not already a canonical name.
func AssertCanonicalArch(arch string) error {
	for _, canonical := range Architectures() {
		if arch == canonical {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedArch, arch, strings.Join(Architectures(), ", "))
}

// Architectures returns the canonical architecture names, sorted.
func Architectures() []string {
	seen := map[string]bool{}
	var out []string
	for _, canonical := range canonicalArch {
		if !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	sort.Strings(out)
	return out
}

// Platform maps a canonical architecture to the engine platform string.
func Platform(arch string) (string, error) {
	platform, ok := archToPlatform[arch]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedArch, arch)
	}
	return platform, nil
}

// NativeBuild reports whether machineArch can build targetArch images
// without emulation.
func NativeBuild(machineArch, targetArch string) bool {
	for _, compatible := range buildCompatibility[machineArch] {
		if compatible == targetArch {
			return true
		}
	}
	return false
}

// HostArch is the canonical architecture of the current process.
func HostArch() (string, error) {
	return CanonicalArch(runtime.GOARCH)
}
