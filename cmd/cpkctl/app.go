package main

import (
	"fmt"

	"github.com/danmuck/cpkctl/internal/config"
	"github.com/danmuck/cpkctl/internal/docker"
	"github.com/danmuck/cpkctl/internal/machine"
)

// app bundles the loaded tool configuration with the machine registry.
type app struct {
	configDir string
	cfg       config.Config
	machines  *machine.Store
}

func openApp() (*app, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.Path(dir))
	if err != nil {
		return nil, err
	}
	machines, err := machine.NewStore(config.MachinesDir(dir))
	if err != nil {
		return nil, err
	}
	return &app{configDir: dir, cfg: cfg, machines: machines}, nil
}

// selectMachine resolves the -H/--machine argument, falling back to the
// configured default machine and finally to the local engine socket.
func (a *app) selectMachine(arg string) (machine.Machine, error) {
	if arg == "" {
		arg = a.cfg.Machine
	}
	return a.machines.Resolve(arg)
}

// endpointFor builds an engine endpoint for the selected machine.
func (a *app) endpointFor(machineArg string) (*docker.Endpoint, machine.Machine, error) {
	m, err := a.selectMachine(machineArg)
	if err != nil {
		return nil, machine.Machine{}, err
	}
	shell, err := a.machines.ShellFor(m)
	if err != nil {
		return nil, machine.Machine{}, err
	}
	return docker.NewEndpoint(a.cfg.Docker.Binary, m, shell), m, nil
}

// resolveArch canonicalizes an explicit arch or falls back to the engine's.
func resolveArch(endpoint *docker.Endpoint, arch string) (string, error) {
	if arch != "" {
		return docker.CanonicalArch(arch)
	}
	machineArch, err := endpoint.Arch()
	if err != nil {
		return "", fmt.Errorf("resolving architecture from the endpoint: %w", err)
	}
	return machineArch, nil
}
