package bootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/danmuck/cpkctl/internal/logging"
)

var (
	ErrLauncherNotExecutable = errors.New("bootstrap: launcher is not executable and has no shebang")
	ErrLauncherNotFound      = errors.New("bootstrap: launcher not found")
)

var shebang = []byte("#!")

// LauncherInstaller materializes each project's launchers into a single
// executable namespace. The primary install target is the context's launcher
// registry (name -> source path, resolved at invocation time); Materialize
// additionally writes symbolic aliases so launchers stay invocable by name
// from interactive shells and later processes.
type LauncherInstaller struct {
	prefix string
	log    zerolog.Logger
}

func NewLauncherInstaller(prefix string) *LauncherInstaller {
	if prefix == "" {
		prefix = LauncherPrefix
	}
	return &LauncherInstaller{prefix: prefix, log: logging.Component("launchers")}
}

// DerivedName computes the installed alias name for a launcher file: the
// namespace prefix plus the file stem, extension stripped.
func (li *LauncherInstaller) DerivedName(filename string) string {
	stem := filepath.Base(filename)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	return li.prefix + stem
}

type launcherCandidate struct {
	name      string
	source    string
	grantExec bool
}

// InstallDir installs every launcher in one directory. Validation runs over
// the whole directory before anything is committed, so a malformed launcher
// fails the entire installation without leaving partial entries behind.
// Re-installing an existing name replaces it, which is how later projects
// override earlier ones.
func (li *LauncherInstaller) InstallDir(ctx *Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// a project without launchers is fine
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	candidates := make([]launcherCandidate, 0, len(names))
	for _, name := range names {
		source := filepath.Join(dir, name)
		info, err := os.Stat(source)
		if err != nil {
			return fmt.Errorf("bootstrap: cannot stat launcher %s: %w", source, err)
		}
		candidate := launcherCandidate{name: li.DerivedName(name), source: source}
		if info.Mode().Perm()&0o111 == 0 {
			if !startsWithShebang(source) {
				return fmt.Errorf("%w: %s", ErrLauncherNotExecutable, source)
			}
			candidate.grantExec = true
		}
		candidates = append(candidates, candidate)
	}

	for _, candidate := range candidates {
		if candidate.grantExec {
			info, err := os.Stat(candidate.source)
			if err != nil {
				return fmt.Errorf("bootstrap: cannot stat launcher %s: %w", candidate.source, err)
			}
			if err := os.Chmod(candidate.source, info.Mode().Perm()|0o111); err != nil {
				return fmt.Errorf("bootstrap: cannot mark launcher executable %s: %w", candidate.source, err)
			}
		}
		ctx.Launchers[candidate.name] = candidate.source
		li.log.Debug().Str("name", candidate.name).Str("source", candidate.source).Msg("launcher installed")
	}
	return nil
}

// Resolve returns the source path for a launcher by its short name.
func (li *LauncherInstaller) Resolve(ctx *Context, name string) (string, error) {
	source, ok := ctx.Launchers[li.prefix+name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrLauncherNotFound, name)
	}
	return source, nil
}

// Materialize writes a symbolic alias into binDir for every registered
// launcher. Pre-existing aliases are replaced, so re-running always reflects
// the current sources.
func (li *LauncherInstaller) Materialize(ctx *Context, binDir string) error {
	for name, source := range ctx.Launchers {
		alias := filepath.Join(binDir, name)
		if err := os.Remove(alias); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("bootstrap: cannot replace alias %s: %w", alias, err)
		}
		if err := os.Symlink(source, alias); err != nil {
			return fmt.Errorf("bootstrap: cannot create alias %s: %w", alias, err)
		}
	}
	return nil
}

func startsWithShebang(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 2)
	n, err := f.Read(head)
	if err != nil || n < 2 {
		return false
	}
	return bytes.Equal(head, shebang)
}
