package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danmuck/cpkctl/internal/logging"
	"github.com/danmuck/cpkctl/internal/project"
	"github.com/danmuck/cpkctl/internal/tools"
)

// Merger folds the contributions of every discovered project into the
// environment context: entrypoint hooks, package roots, library
// registrations, and environment hooks, in that order. Each category visits
// projects in set order, so the most recently touched project wins precedence
// wherever names collide.
type Merger struct {
	cfg Config
	log zerolog.Logger
}

func NewMerger(cfg Config) *Merger {
	return &Merger{cfg: cfg.withDefaults(), log: logging.Component("merge")}
}

// Merge runs the full configuration merge. A context that already carries the
// environment guard is left untouched.
func (m *Merger) Merge(ctx *Context, projects []project.Project) error {
	if ctx.Get(EnvGuardEnvironment) != "" {
		m.log.Debug().Msg("environment already merged, skipping")
		return nil
	}

	base := m.cfg.Environ()

	// Entrypoint hooks first: they may perform mandatory user/privilege
	// setup, so they run under the strict policy before anything else.
	if ctx.Get(EnvGuardEntrypoint) == "" {
		for _, p := range projects {
			if err := runHookDir(ctx, m.cfg.Runner, p.EntrypointHooks(), m.cfg.EntrypointPolicy, base, m.log); err != nil {
				return fmt.Errorf("project %s: %w", p.Name, err)
			}
		}
		ctx.Set(EnvGuardEntrypoint, "1")
	}

	for _, p := range projects {
		if err := m.mergePackages(ctx, p); err != nil {
			m.log.Warn().Str("project", p.Name).Err(err).Msg("skipping malformed project")
			continue
		}
	}

	for _, p := range projects {
		if err := m.registerLibraries(ctx, p); err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
	}

	for _, p := range projects {
		if err := runHookDir(ctx, m.cfg.Runner, p.EnvironmentHooks(), m.cfg.EnvironmentPolicy, base, m.log); err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
	}

	m.exportSearchPath(ctx)
	ctx.Set(EnvGuardEnvironment, "1")
	return nil
}

// mergePackages records a project's package root. Visitation order is
// precedence order: roots accumulate back-to-front so the newest project's
// packages shadow older ones at lookup time.
func (m *Merger) mergePackages(ctx *Context, p project.Project) error {
	dir := p.PackagesDir()
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}
	ctx.AddPackageRoot(dir)
	m.log.Debug().Str("project", p.Name).Str("root", dir).Msg("package root merged")
	return nil
}

// registerLibraries performs a local editable registration for every
// subdirectory of libraries/ that carries an install descriptor. Directories
// without one are not libraries and are silently skipped.
func (m *Merger) registerLibraries(ctx *Context, p project.Project) error {
	entries, err := os.ReadDir(p.LibrariesDir())
	if err != nil {
		// libraries/ is optional
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		libDir := filepath.Join(p.LibrariesDir(), entry.Name())
		if _, err := os.Stat(filepath.Join(libDir, project.LibraryDescriptorFile)); err != nil {
			continue
		}
		if err := m.installLibrary(ctx, libDir); err != nil {
			return err
		}
		m.log.Debug().Str("project", p.Name).Str("library", entry.Name()).Msg("library registered")
	}
	return nil
}

func (m *Merger) installLibrary(ctx *Context, dir string) error {
	cmd := m.cfg.LibraryInstallCommand
	_, stderr, code, err := m.cfg.Runner.Run(tools.Command{
		Name: cmd[0],
		Args: append(append([]string{}, cmd[1:]...), dir),
		Env:  ctx.Environ(m.cfg.Environ()),
	})
	if err != nil {
		return fmt.Errorf("library install failed for %s (exit=%d): %w: %s",
			dir, code, err, strings.TrimSpace(string(stderr)))
	}
	return nil
}

// exportSearchPath finalizes the search-path variable: accumulated roots
// first (highest precedence), any pre-existing value behind them.
func (m *Merger) exportSearchPath(ctx *Context) {
	if len(ctx.SearchPath) == 0 {
		return
	}
	value := strings.Join(ctx.SearchPath, string(os.PathListSeparator))
	if prior := m.cfg.Getenv(m.cfg.SearchPathVar); prior != "" {
		value = value + string(os.PathListSeparator) + prior
	}
	ctx.Set(m.cfg.SearchPathVar, value)
}
