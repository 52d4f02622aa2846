package bootstrap

import (
	"sort"
	"strings"
)

// Environment variables consumed by the bootstrap. The guard flags default to
// unset on a fresh process and are only ever set by the sequencer.
const (
	EnvSourceDir = "CPK_SOURCE_DIR"
	EnvLauncher  = "CPK_LAUNCHER"
	EnvUID       = "CPK_UID"
	EnvGID       = "CPK_GID"
	EnvSuperuser = "CPK_SUPERUSER"

	EnvGuardBootstrap   = "CPK_BOOTSTRAP_DONE"
	EnvGuardEntrypoint  = "CPK_ENTRYPOINT_DONE"
	EnvGuardEnvironment = "CPK_ENVIRONMENT_DONE"
)

// State tracks the sequencer through its phases.
type State int

const (
	StateUninitialized State = iota
	StateUserConfigured
	StateProjectsMerged
	StateLaunchersInstalled
	StateReady
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateUserConfigured:
		return "USER_CONFIGURED"
	case StateProjectsMerged:
		return "PROJECTS_MERGED"
	case StateLaunchersInstalled:
		return "LAUNCHERS_INSTALLED"
	case StateReady:
		return "READY"
	case StateExecuting:
		return "EXECUTING"
	default:
		return "UNKNOWN"
	}
}

// Context is the process-wide environment state, carried explicitly through
// every phase instead of living in ambient globals. It is initialized empty,
// mutated once per project during the merge, and frozen once the sequencer
// reaches READY.
type Context struct {
	// Initialized flips when the bootstrap phases have run; a second run
	// against an initialized context is a no-op.
	Initialized bool

	// SearchPath accumulates package roots in visitation order: index zero
	// has the highest lookup precedence.
	SearchPath []string

	// Env holds exported variables: guard flags and hook-emitted deltas.
	Env map[string]string

	// Launchers maps derived launcher names to resolved source paths.
	Launchers map[string]string
}

func NewContext() *Context {
	return &Context{
		Env:       make(map[string]string),
		Launchers: make(map[string]string),
	}
}

// AddPackageRoot records a package root at the lowest precedence position
// seen so far. Duplicates are dropped.
func (c *Context) AddPackageRoot(root string) {
	for _, existing := range c.SearchPath {
		if existing == root {
			return
		}
	}
	c.SearchPath = append(c.SearchPath, root)
}

// Set records an exported variable.
func (c *Context) Set(key, value string) {
	c.Env[key] = value
}

// Get reads an exported variable, empty when unset.
func (c *Context) Get(key string) string {
	return c.Env[key]
}

// Environ merges the context's exported variables over a base environment in
// KEY=VALUE form, suitable for spawning children. Base entries are kept
// unless overridden; context entries come out sorted for determinism.
func (c *Context) Environ(base []string) []string {
	merged := make([]string, 0, len(base)+len(c.Env))
	for _, entry := range base {
		key := entry
		if i := strings.IndexByte(entry, '='); i >= 0 {
			key = entry[:i]
		}
		if _, ok := c.Env[key]; ok {
			continue
		}
		merged = append(merged, entry)
	}

	keys := make([]string, 0, len(c.Env))
	for key := range c.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		merged = append(merged, key+"="+c.Env[key])
	}
	return merged
}
