package bootstrap

import (
	"os"

	"github.com/danmuck/cpkctl/internal/tools"
)

// Launcher aliases are namespaced with this prefix and installed under
// DefaultBinDir when materialized.
const (
	LauncherPrefix = "cpk-launcher-"
	DefaultBinDir  = "/usr/local/bin"

	// DefaultSourceRoot is where project discovery starts inside a container
	// unless CPK_SOURCE_DIR overrides it.
	DefaultSourceRoot = "/code"

	// DefaultSearchPathVar is the search-path variable package roots are
	// prepended to.
	DefaultSearchPathVar = "PYTHONPATH"

	// DefaultLauncherName is the launcher invoked when CPK_LAUNCHER is unset.
	DefaultLauncherName = "default"
)

// Config carries the bootstrap knobs. The hook policies default to the
// permissive contract: entrypoint hooks are mandatory, environment hooks are
// best-effort. Either can be tightened or relaxed by the caller.
type Config struct {
	SourceRoot    string
	SearchPathVar string
	BinDir        string
	Prefix        string

	EntrypointPolicy  HookPolicy
	EnvironmentPolicy HookPolicy

	// LibraryInstallCommand registers one library directory locally; the
	// directory path is appended as the final argument.
	LibraryInstallCommand []string

	Runner  tools.CommandRunner
	Getenv  func(string) string
	Environ func() []string
}

func DefaultConfig() Config {
	return Config{
		SourceRoot:            DefaultSourceRoot,
		SearchPathVar:         DefaultSearchPathVar,
		BinDir:                DefaultBinDir,
		Prefix:                LauncherPrefix,
		EntrypointPolicy:      PolicyStrict,
		EnvironmentPolicy:     PolicyBestEffort,
		LibraryInstallCommand: []string{"pip3", "install", "--no-dependencies", "--editable"},
		Runner:                tools.ExecRunner{},
		Getenv:                os.Getenv,
		Environ:               os.Environ,
	}
}

// withDefaults fills zero-valued fields so partially specified configs stay
// usable in tests.
func (c Config) withDefaults() Config {
	if c.SourceRoot == "" {
		c.SourceRoot = DefaultSourceRoot
	}
	if c.SearchPathVar == "" {
		c.SearchPathVar = DefaultSearchPathVar
	}
	if c.BinDir == "" {
		c.BinDir = DefaultBinDir
	}
	if c.Prefix == "" {
		c.Prefix = LauncherPrefix
	}
	if c.EntrypointPolicy == PolicyUnset {
		c.EntrypointPolicy = PolicyStrict
	}
	if c.EnvironmentPolicy == PolicyUnset {
		c.EnvironmentPolicy = PolicyBestEffort
	}
	if len(c.LibraryInstallCommand) == 0 {
		c.LibraryInstallCommand = []string{"pip3", "install", "--no-dependencies", "--editable"}
	}
	if c.Runner == nil {
		c.Runner = tools.ExecRunner{}
	}
	if c.Getenv == nil {
		c.Getenv = os.Getenv
	}
	if c.Environ == nil {
		c.Environ = os.Environ
	}
	return c
}
