package docker

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidImageName = errors.New("docker: invalid image name")

// LabelDomain is the namespace all tool-owned image labels live under.
const LabelDomain = "cpk.label"

// Label builds a namespaced label key.
func Label(key string) string {
	return LabelDomain + "." + strings.TrimLeft(key, ".")
}

// LabelArg builds a KEY=VALUE label argument.
func LabelArg(key, value string) string {
	return Label(key) + "=" + value
}

const (
	DefaultRegistryHost = "docker.io"
	DefaultRegistryPort = 5000
	DefaultUser         = "library"
	DefaultTag          = "latest"
)

// Registry is the host[:port] prefix of a fully qualified image name.
type Registry struct {
	Hostname string
	Port     int
}

func DefaultRegistry() Registry {
	return Registry{Hostname: DefaultRegistryHost, Port: DefaultRegistryPort}
}

func (r Registry) IsDefault() bool {
	return r == DefaultRegistry() || (r.Hostname == "" && r.Port == 0)
}

// Compile renders the registry prefix. The default registry is implied and
// renders empty.
func (r Registry) Compile() string {
	if r.IsDefault() {
		return ""
	}
	if r.Port != 0 && r.Port != DefaultRegistryPort {
		return fmt.Sprintf("%s:%d", r.Hostname, r.Port)
	}
	return r.Hostname
}

// ImageName decomposes the engine's [REGISTRY[:PORT]/]USER/REPO[:TAG[-ARCH]]
// naming convention.
type ImageName struct {
	Registry   Registry
	User       string
	Repository string
	Tag        string
	Arch       string
}

// Compile renders the shortest equivalent image name: default registry,
// library user and latest tag are left implicit.
func (n ImageName) Compile() string {
	var b strings.Builder
	if registry := n.Registry.Compile(); registry != "" {
		b.WriteString(registry)
		b.WriteByte('/')
	}
	if n.User != "" && n.User != DefaultUser {
		b.WriteString(n.User)
		b.WriteByte('/')
	}
	b.WriteString(n.Repository)
	if n.Tag != DefaultTag || n.Arch != "" {
		b.WriteByte(':')
		b.WriteString(n.Tag)
	}
	if n.Arch != "" {
		b.WriteByte('-')
		b.WriteString(n.Arch)
	}
	return b.String()
}

// ParseImageName inverts Compile, recognizing a trailing -ARCH tag suffix
// for any canonical architecture.
func ParseImageName(name string) (ImageName, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ImageName{}, fmt.Errorf("%w: empty", ErrInvalidImageName)
	}

	image := ImageName{
		Registry: DefaultRegistry(),
		User:     DefaultUser,
		Tag:      DefaultTag,
	}

	parts := strings.Split(name, "/")
	var registry, repoTag string
	switch len(parts) {
	case 3:
		registry, image.User, repoTag = parts[0], parts[1], parts[2]
	case 2:
		image.User, repoTag = parts[0], parts[1]
	case 1:
		repoTag = parts[0]
	default:
		return ImageName{}, fmt.Errorf("%w: %q", ErrInvalidImageName, name)
	}

	image.Repository = repoTag
	tag := DefaultTag
	if i := strings.IndexByte(repoTag, ':'); i >= 0 {
		image.Repository = repoTag[:i]
		tag = repoTag[i+1:]
	}
	if image.Repository == "" {
		return ImageName{}, fmt.Errorf("%w: %q", ErrInvalidImageName, name)
	}
	for _, arch := range Architectures() {
		if strings.HasSuffix(tag, "-"+arch) {
			tag = strings.TrimSuffix(tag, "-"+arch)
			image.Arch = arch
			break
		}
	}
	image.Tag = tag

	if registry != "" {
		image.Registry = Registry{Hostname: registry, Port: DefaultRegistryPort}
		if i := strings.IndexByte(registry, ':'); i >= 0 {
			port, err := strconv.Atoi(registry[i+1:])
			if err != nil {
				return ImageName{}, fmt.Errorf("%w: bad registry port in %q", ErrInvalidImageName, name)
			}
			image.Registry = Registry{Hostname: registry[:i], Port: port}
		}
	}

	return image, nil
}

var tagSanitizer = regexp.MustCompile(`[^\w\-.]`)

// SanitizeTag rewrites version strings into legal image tag characters.
func SanitizeTag(version string) string {
	return tagSanitizer.ReplaceAllString(version, "-")
}
