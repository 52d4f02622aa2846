package project

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// MarkerDir is the metadata directory every project carries at its root.
	MarkerDir = "cpk"
	// MarkerFile is the descriptor file inside MarkerDir whose presence makes
	// a directory a project.
	MarkerFile = "self.yaml"
)

// Resource directory names, all optional per project.
const (
	PackagesDirName        = "packages"
	LibrariesDirName       = "libraries"
	LaunchersDirName       = "launchers"
	EnvironmentHooksDir    = "environment.d"
	EntrypointHooksDir     = "entrypoint.d"
	LibraryDescriptorFile  = "setup.py"
	ConfigurationsFileName = "configurations.yaml"
)

var shebangMarker = []byte("#!")

// Project is a directory recognized as a packaging unit via its marker file.
type Project struct {
	Name         string
	Root         string
	DiscoveredAt time.Time
}

// At wraps an existing directory as a Project without scanning. The marker
// file must exist for the result to be meaningful.
func At(root string) Project {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return Project{Name: filepath.Base(abs), Root: abs}
}

func (p Project) MarkerPath() string {
	return filepath.Join(p.Root, MarkerDir, MarkerFile)
}

func (p Project) PackagesDir() string {
	return filepath.Join(p.Root, PackagesDirName)
}

func (p Project) LibrariesDir() string {
	return filepath.Join(p.Root, LibrariesDirName)
}

func (p Project) LaunchersDir() string {
	return filepath.Join(p.Root, LaunchersDirName)
}

func (p Project) EnvironmentHooks() string {
	return filepath.Join(p.Root, EnvironmentHooksDir)
}

func (p Project) EntrypointHooks() string {
	return filepath.Join(p.Root, EntrypointHooksDir)
}

// Resource resolves a path relative to the project root.
func (p Project) Resource(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Launchers lists the launcher names this project ships: the stem of every
// regular file under launchers/ that is either executable or starts with a
// shebang. Sorted for stable output.
func (p Project) Launchers() []string {
	entries, err := os.ReadDir(p.LaunchersDir())
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(p.LaunchersDir(), entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o111 == 0 && !hasShebang(path) {
			continue
		}
		names = append(names, stem(entry.Name()))
	}
	sort.Strings(names)
	return names
}

func hasShebang(path string) bool {
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
	return bytes.Equal(head, shebangMarker)
}

func stem(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
