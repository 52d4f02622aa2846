package machine

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidMachine = errors.New("machine: invalid machine")
	ErrInvalidName    = errors.New("machine: invalid machine name")
	ErrInvalidTarget  = errors.New("machine: invalid target")
)

// Type is the machine connection type.
type Type string

const (
	TypeSSH    Type = "ssh"
	TypeTCP    Type = "tcp"
	TypeSocket Type = "socket"
)

// DefaultSocketHost is the endpoint used when no machine is selected.
const DefaultSocketHost = "unix:///var/run/docker.sock"

// DefaultSSHPort is assumed when an ssh target omits the port.
const DefaultSSHPort = 22

var nameFormat = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9\-_.]*[a-zA-Z0-9]$`)

var sshTargetFormat = regexp.MustCompile(`^(?:ssh://)?(?P<user>[^@:]+)@(?P<host>[^@:]+?)(?::(?P<port>[0-9]+))?$`)

// Configuration carries the type-dependent connection fields.
type Configuration struct {
	User string `json:"user,omitempty"`
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
}

// Machine is a named local or remote Docker-compatible endpoint descriptor.
type Machine struct {
	Name          string        `json:"-"`
	Type          Type          `json:"type"`
	Description   string        `json:"description"`
	Configuration Configuration `json:"configuration"`
}

// DefaultSocket returns the implicit local machine.
func DefaultSocket() Machine {
	return Machine{
		Name: "default",
		Type: TypeSocket,
		Configuration: Configuration{
			Host: DefaultSocketHost,
		},
	}
}

// Validate enforces the per-type required fields: ssh needs user and host,
// tcp needs host, socket needs a URI-form host.
func (m Machine) Validate() error {
	if !nameFormat.MatchString(m.Name) {
		return fmt.Errorf("%w: %q (letters, digits, '-', '_', '.'; alphanumeric first and last)", ErrInvalidName, m.Name)
	}
	switch m.Type {
	case TypeSSH:
		if strings.TrimSpace(m.Configuration.User) == "" {
			return fmt.Errorf("%w: ssh machine %q requires a user", ErrInvalidMachine, m.Name)
		}
		if strings.TrimSpace(m.Configuration.Host) == "" {
			return fmt.Errorf("%w: ssh machine %q requires a host", ErrInvalidMachine, m.Name)
		}
		if m.Configuration.Port < 0 || m.Configuration.Port > 65535 {
			return fmt.Errorf("%w: ssh machine %q has an invalid port", ErrInvalidMachine, m.Name)
		}
	case TypeTCP:
		if strings.TrimSpace(m.Configuration.Host) == "" {
			return fmt.Errorf("%w: tcp machine %q requires a host", ErrInvalidMachine, m.Name)
		}
	case TypeSocket:
		host := strings.TrimSpace(m.Configuration.Host)
		u, err := url.Parse(host)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("%w: socket machine %q requires a URI-form host", ErrInvalidMachine, m.Name)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMachine, m.Type)
	}
	return nil
}

// DockerHost compiles the connection descriptor handed to the container
// engine client.
func (m Machine) DockerHost() string {
	switch m.Type {
	case TypeSSH:
		port := m.Configuration.Port
		if port == 0 {
			port = DefaultSSHPort
		}
		return fmt.Sprintf("ssh://%s@%s:%d", m.Configuration.User, m.Configuration.Host, port)
	case TypeTCP:
		host := m.Configuration.Host
		if strings.Contains(host, "://") {
			return host
		}
		if m.Configuration.Port != 0 {
			return fmt.Sprintf("tcp://%s:%d", host, m.Configuration.Port)
		}
		return "tcp://" + host
	default:
		return m.Configuration.Host
	}
}

// IsLocal reports whether the machine points at the local engine socket.
func (m Machine) IsLocal() bool {
	return m.Type == TypeSocket
}

// ParseTarget builds a machine record from a target URI:
// "user@host[:port]" (optionally ssh://-prefixed) for ssh machines,
// "tcp://host[:port]" or a bare hostname/IP for tcp machines, and
// "unix:///path" for socket machines.
func ParseTarget(name string, target string) (Machine, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Machine{}, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	if match := sshTargetFormat.FindStringSubmatch(target); match != nil {
		port := 0
		if match[3] != "" {
			p, err := strconv.Atoi(match[3])
			if err != nil || p <= 0 || p > 65535 {
				return Machine{}, fmt.Errorf("%w: bad port in %q", ErrInvalidTarget, target)
			}
			port = p
		}
		return Machine{
			Name: name,
			Type: TypeSSH,
			Configuration: Configuration{
				User: match[1],
				Host: match[2],
				Port: port,
			},
		}, nil
	}

	if strings.HasPrefix(target, "unix://") || strings.HasPrefix(target, "fd://") {
		return Machine{
			Name:          name,
			Type:          TypeSocket,
			Configuration: Configuration{Host: target},
		}, nil
	}

	host := strings.TrimPrefix(target, "tcp://")
	if host == "" || strings.Contains(host, "://") || strings.Contains(host, "@") {
		return Machine{}, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	cfg := Configuration{Host: host}
	if h, p, err := splitHostPort(host); err == nil {
		cfg.Host = h
		cfg.Port = p
	}
	return Machine{Name: name, Type: TypeTCP, Configuration: cfg}, nil
}

func splitHostPort(host string) (string, int, error) {
	i := strings.LastIndexByte(host, ':')
	if i < 0 {
		return "", 0, errors.New("no port")
	}
	port, err := strconv.Atoi(host[i+1:])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, errors.New("bad port")
	}
	return host[:i], port, nil
}
