// Package git inspects the repository a project lives in. All information
// comes from the git CLI so the tool sees exactly what the user's checkout
// reports.
package git

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danmuck/cpkctl/internal/logging"
	"github.com/danmuck/cpkctl/internal/tools"
)

// Version pairs the tag sitting exactly on HEAD (when the tree is clean)
// with the most recent tag in the repository.
type Version struct {
	Head    string
	Closest string
}

// Origin describes the remote the repository tracks.
type Origin struct {
	URL          string
	HTTPS        string
	Organization string
}

// Index summarizes the working tree state.
type Index struct {
	Clean       bool
	NumAdded    int
	NumModified int
}

// Repository is everything the tool knows about a project's checkout.
type Repository struct {
	Name     string
	SHA      string
	Branch   string
	Present  bool
	Detached bool
	Version  Version
	Origin   Origin
	Index    Index
}

// DefaultRepository is what non-repositories (and empty ones) report.
func DefaultRepository() Repository {
	return Repository{Index: Index{Clean: true}}
}

// Inspector reads repository state through a command runner.
type Inspector struct {
	runner tools.CommandRunner
	log    zerolog.Logger
}

func NewInspector(runner tools.CommandRunner) *Inspector {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Inspector{runner: runner, log: logging.Component("git")}
}

// emptyRepoExitCode is what rev-parse reports when HEAD does not exist yet.
const emptyRepoExitCode = 128

// RepoInfo collects the repository state for the checkout at path. A path
// outside any repository yields DefaultRepository, not an error.
func (i *Inspector) RepoInfo(path string) (Repository, error) {
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return DefaultRepository(), nil
	}

	sha, code, err := i.first(path, "rev-parse", "HEAD")
	if code == emptyRepoExitCode {
		return DefaultRepository(), nil
	}
	if err != nil {
		return Repository{}, fmt.Errorf("git: reading HEAD at %s: %w", path, err)
	}

	branch, _, err := i.first(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return Repository{}, fmt.Errorf("git: reading branch at %s: %w", path, err)
	}

	repo := Repository{
		SHA:      sha,
		Branch:   branch,
		Present:  true,
		Detached: branch == "HEAD",
	}

	if originURL, _, err := i.first(path, "config", "--get", "remote.origin.url"); err == nil && originURL != "" {
		originURL = strings.TrimSuffix(originURL, ".git")
		originURL = strings.TrimSuffix(originURL, "/")
		repo.Origin = Origin{
			URL:          originURL,
			HTTPS:        RemoteURLToHTTPS(originURL),
			Organization: RemoteURLToOrganization(originURL),
		}
		parts := strings.Split(originURL, "/")
		repo.Name = parts[len(parts)-1]
	}

	modified, err := i.lines(path, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return Repository{}, fmt.Errorf("git: reading index at %s: %w", path, err)
	}
	added, err := i.lines(path, "status", "--porcelain")
	if err != nil {
		return Repository{}, fmt.Errorf("git: reading index at %s: %w", path, err)
	}
	repo.Index = Index{
		Clean:       len(modified)+len(added) == 0,
		NumAdded:    len(added),
		NumModified: len(modified),
	}

	if repo.Index.Clean {
		if headTag, _, err := i.first(path, "describe", "--exact-match", "--tags", "HEAD"); err == nil {
			repo.Version.Head = headTag
		}
	}
	if tags, err := i.lines(path, "tag"); err == nil && len(tags) > 0 {
		repo.Version.Closest = tags[len(tags)-1]
	}

	return repo, nil
}

func (i *Inspector) run(path string, args ...string) ([]string, int32, error) {
	stdout, stderr, code, err := i.runner.Run(tools.Command{
		Name: "git",
		Args: append([]string{"-C", path}, args...),
	})
	if err != nil {
		i.log.Debug().Strs("args", args).Int32("code", code).
			Str("stderr", strings.TrimSpace(string(stderr))).Msg("git command failed")
		return nil, code, err
	}
	return nonEmptyLines(string(stdout)), code, nil
}

func (i *Inspector) first(path string, args ...string) (string, int32, error) {
	lines, code, err := i.run(path, args...)
	if err != nil {
		return "", code, err
	}
	if len(lines) == 0 {
		return "", code, nil
	}
	return lines[0], code, nil
}

func (i *Inspector) lines(path string, args ...string) ([]string, error) {
	lines, _, err := i.run(path, args...)
	return lines, err
}

func nonEmptyLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var (
	sshRemoteFormat   = regexp.MustCompile(`(?i)git@([^:]+):([^/]+)/(.+)`)
	httpsRemoteFormat = regexp.MustCompile(`(?i)https?://[^/]+/([^/]+)/.+`)
)

// RemoteURLToHTTPS rewrites an ssh remote to its https equivalent. Other
// remotes pass through unchanged.
func RemoteURLToHTTPS(remoteURL string) string {
	if m := sshRemoteFormat.FindStringSubmatch(remoteURL); m != nil {
		return fmt.Sprintf("https://%s/%s/%s", m[1], m[2], m[3])
	}
	return remoteURL
}

// RemoteURLToOrganization extracts the organization segment of a remote URL.
func RemoteURLToOrganization(remoteURL string) string {
	if m := httpsRemoteFormat.FindStringSubmatch(RemoteURLToHTTPS(remoteURL)); m != nil {
		return m[1]
	}
	return ""
}
