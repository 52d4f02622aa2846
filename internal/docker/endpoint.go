package docker

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danmuck/cpkctl/internal/logging"
	"github.com/danmuck/cpkctl/internal/machine"
)

// Endpoint drives a container engine through its CLI client, locally or on
// a remote machine via its shell.
type Endpoint struct {
	binary string
	host   string
	shell  machine.Shell
	log    zerolog.Logger
}

// NewEndpoint binds the engine client binary to a machine. The machine's
// docker host is passed with -H on every invocation unless it is the
// implicit local socket.
func NewEndpoint(binary string, m machine.Machine, shell machine.Shell) *Endpoint {
	host := m.DockerHost()
	if m.IsLocal() && host == machine.DefaultSocketHost {
		host = ""
	}
	return &Endpoint{
		binary: binary,
		host:   host,
		shell:  shell,
		log:    logging.Component("docker"),
	}
}

func (e *Endpoint) args(rest ...string) []string {
	var out []string
	if e.host != "" {
		out = append(out, "-H", e.host)
	}
	return append(out, rest...)
}

func (e *Endpoint) run(rest ...string) (string, error) {
	args := e.args(rest...)
	e.log.Debug().Str("binary", e.binary).Strs("args", args).Msg("engine command")
	out, err := e.shell.Run(e.binary, args...)
	if err != nil {
		return "", fmt.Errorf("docker: %s %s: %w: %s", e.binary, strings.Join(rest, " "), err, strings.TrimSpace(out))
	}
	return out, nil
}

func (e *Endpoint) stream(stdout, stderr io.Writer, rest ...string) error {
	args := e.args(rest...)
	e.log.Debug().Str("binary", e.binary).Strs("args", args).Msg("engine command")
	if err := e.shell.RunStreaming(e.binary, args, stdout, stderr); err != nil {
		return fmt.Errorf("docker: %s %s: %w", e.binary, strings.Join(rest, " "), err)
	}
	return nil
}

// EngineInfo is the subset of `docker info` the tool cares about.
type EngineInfo struct {
	Name          string `json:"Name"`
	ServerVersion string `json:"ServerVersion"`
	OSType        string `json:"OSType"`
	Architecture  string `json:"Architecture"`
	NCPU          int    `json:"NCPU"`
	MemTotal      int64  `json:"MemTotal"`
}

// Info queries the engine.
func (e *Endpoint) Info() (EngineInfo, error) {
	out, err := e.run("info", "--format", "{{json .}}")
	if err != nil {
		return EngineInfo{}, err
	}
	var info EngineInfo
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &info); err != nil {
		return EngineInfo{}, fmt.Errorf("docker: decoding engine info: %w", err)
	}
	return info, nil
}

// Arch resolves the engine's canonical architecture.
func (e *Endpoint) Arch() (string, error) {
	info, err := e.Info()
	if err != nil {
		return "", err
	}
	return CanonicalArch(info.Architecture)
}

// BuildOptions parameterizes an image build.
type BuildOptions struct {
	ContextDir string
	Dockerfile string
	Tag        string
	Platform   string
	Labels     map[string]string
	BuildArgs  map[string]string
	NoCache    bool
	Pull       bool
}

// Build runs an image build, streaming engine output to the writers.
func (e *Endpoint) Build(opts BuildOptions, stdout, stderr io.Writer) error {
	args := []string{"build"}
	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}
	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	if opts.Platform != "" {
		args = append(args, "--platform", opts.Platform)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.Pull {
		args = append(args, "--pull")
	}
	for _, key := range sortedKeys(opts.Labels) {
		args = append(args, "--label", key+"="+opts.Labels[key])
	}
	for _, key := range sortedKeys(opts.BuildArgs) {
		args = append(args, "--build-arg", key+"="+opts.BuildArgs[key])
	}
	args = append(args, opts.ContextDir)
	return e.stream(stdout, stderr, args...)
}

// RunOptions parameterizes a container run.
type RunOptions struct {
	Image       string
	Name        string
	Command     []string
	Env         map[string]string
	Volumes     []string
	Network     string
	Privileged  bool
	Remove      bool
	Interactive bool
	Detach      bool
}

// RunContainer starts a container and streams its output.
func (e *Endpoint) RunContainer(opts RunOptions, stdout, stderr io.Writer) error {
	args := []string{"run"}
	if opts.Remove {
		args = append(args, "--rm")
	}
	if opts.Privileged {
		args = append(args, "--privileged")
	}
	if opts.Interactive {
		args = append(args, "-it")
	}
	if opts.Detach {
		args = append(args, "-d")
	}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.Network != "" {
		args = append(args, "--net", opts.Network)
	}
	for _, key := range sortedKeys(opts.Env) {
		args = append(args, "-e", key+"="+opts.Env[key])
	}
	for _, volume := range opts.Volumes {
		args = append(args, "-v", volume)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)
	return e.stream(stdout, stderr, args...)
}

// Push uploads an image, streaming progress.
func (e *Endpoint) Push(image string, stdout, stderr io.Writer) error {
	return e.stream(stdout, stderr, "push", image)
}

// Pull downloads an image, streaming progress.
func (e *Endpoint) Pull(image string, stdout, stderr io.Writer) error {
	return e.stream(stdout, stderr, "pull", image)
}

// RemoveImage deletes a local image.
func (e *Endpoint) RemoveImage(image string) error {
	_, err := e.run("rmi", image)
	return err
}

// ImageLabels reads the labels baked into a local image.
func (e *Endpoint) ImageLabels(image string) (map[string]string, error) {
	out, err := e.run("image", "inspect", "--format", "{{json .Config.Labels}}", image)
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	if out == "" || out == "null" {
		return map[string]string{}, nil
	}
	labels := map[string]string{}
	if err := json.Unmarshal([]byte(out), &labels); err != nil {
		return nil, fmt.Errorf("docker: decoding image labels: %w", err)
	}
	return labels, nil
}

const binfmtImage = "multiarch/qemu-user-static:register"

// EnsureBinfmt registers qemu binfmt handlers when the engine cannot build
// the target architecture natively. Registration failures are logged, not
// fatal: the build may still work on engines configured out of band.
func (e *Endpoint) EnsureBinfmt(targetArch string) error {
	machineArch, err := e.Arch()
	if err != nil {
		return err
	}
	if NativeBuild(machineArch, targetArch) {
		e.log.Info().Str("machine", machineArch).Str("target", targetArch).Msg("multiarch not needed")
		return nil
	}
	e.log.Info().Str("machine", machineArch).Str("target", targetArch).Msg("configuring machine for multiarch")
	if _, err := e.run("run", "--rm", "--privileged", binfmtImage, "--reset"); err != nil {
		e.log.Warn().Err(err).Msg("multiarch could not be enabled on the target machine; builds may fail")
		return nil
	}
	e.log.Info().Msg("multiarch enabled")
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
