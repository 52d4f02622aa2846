package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/cpkctl/internal/config"
	"github.com/danmuck/cpkctl/internal/docker"
	"github.com/danmuck/cpkctl/internal/git"
	"github.com/danmuck/cpkctl/internal/project"
)

const valueNotDetermined = "ND"

// workspace ties a project checkout to its descriptor and repository state.
type workspace struct {
	project    project.Project
	descriptor project.Descriptor
	repo       git.Repository
}

func loadWorkspace(dir string) (*workspace, error) {
	p := project.At(dir)
	descriptor, err := project.LoadDescriptor(p.Root)
	if err != nil {
		return nil, err
	}
	repo, err := git.NewInspector(nil).RepoInfo(p.Root)
	if err != nil {
		return nil, err
	}
	return &workspace{project: p, descriptor: descriptor, repo: repo}, nil
}

func (w *workspace) name() string {
	return w.descriptor.Name
}

// registry preference order: descriptor, then tool configuration.
func (w *workspace) registry(cfg config.Config) string {
	if w.descriptor.Registry != "" {
		return w.descriptor.Registry
	}
	return cfg.Registry.Host
}

// organization preference order: descriptor, git origin, configured
// registry namespace.
func (w *workspace) organization(cfg config.Config) (string, error) {
	if w.descriptor.Organization != "" {
		return w.descriptor.Organization, nil
	}
	if w.repo.Origin.Organization != "" {
		return w.repo.Origin.Organization, nil
	}
	if cfg.Registry.Namespace != "" {
		return cfg.Registry.Namespace, nil
	}
	return "", fmt.Errorf("project %q declares no organization and none could be inferred "+
		"(set one in %s or configure registry.namespace)", w.name(), project.MarkerFile)
}

// versionTag is the descriptor version, falling back to the git branch and
// finally to latest for untracked checkouts.
func (w *workspace) versionTag() string {
	if w.descriptor.Version != "" {
		return w.descriptor.Version
	}
	if w.repo.Branch != "" {
		return w.repo.Branch
	}
	return "latest"
}

// image compiles the fully qualified per-arch image name.
func (w *workspace) image(cfg config.Config, arch string) (string, error) {
	if err := docker.AssertCanonicalArch(arch); err != nil {
		return "", err
	}
	organization, err := w.organization(cfg)
	if err != nil {
		return "", err
	}
	tag := docker.SanitizeTag(w.versionTag())
	return fmt.Sprintf("%s/%s/%s:%s-%s", w.registry(cfg), organization, w.name(), tag, arch), nil
}

// remoteRef addresses the project image on the Docker Hub registry API:
// repository path plus the per-arch tag. Only Hub is queryable this way;
// other registries keep their metadata behind docker image inspect.
func (w *workspace) remoteRef(cfg config.Config, arch string) (string, string, error) {
	if err := docker.AssertCanonicalArch(arch); err != nil {
		return "", "", err
	}
	if registry := w.registry(cfg); registry != docker.DefaultRegistryHost {
		return "", "", fmt.Errorf("remote inspection is only available for %s images (project registry is %s)",
			docker.DefaultRegistryHost, registry)
	}
	organization, err := w.organization(cfg)
	if err != nil {
		return "", "", err
	}
	tag := docker.SanitizeTag(w.versionTag()) + "-" + arch
	return organization + "/" + w.name(), tag, nil
}

// isRelease means a clean tree sitting exactly on a version tag.
func (w *workspace) isRelease() bool {
	return w.repo.Index.Clean && w.repo.Version.Head != ""
}

// label namespaces a key under this project's label subtree.
func (w *workspace) label(cfg config.Config, key string) string {
	organization, err := w.organization(cfg)
	if err != nil {
		organization = valueNotDetermined
	}
	return docker.Label(fmt.Sprintf("project.%s.%s.%s", organization, w.name(), key))
}

// buildLabels bakes project provenance into the image.
func (w *workspace) buildLabels(cfg config.Config) map[string]string {
	vcs := valueNotDetermined
	if w.repo.Present {
		vcs = "git"
	}
	sha := valueNotDetermined
	if w.repo.SHA != "" && w.repo.Index.Clean {
		sha = w.repo.SHA
	}
	labels := map[string]string{
		w.label(cfg, "code.vcs"):             vcs,
		w.label(cfg, "code.version.tag"):     orND(w.versionTag()),
		w.label(cfg, "code.version.head"):    orND(w.repo.Version.Head),
		w.label(cfg, "code.version.closest"): orND(w.repo.Version.Closest),
		w.label(cfg, "code.version.sha"):     sha,
		w.label(cfg, "code.vcs.repository"):  orND(w.repo.Name),
		w.label(cfg, "code.vcs.branch"):      orND(w.repo.Branch),
		w.label(cfg, "code.vcs.url"):         orND(w.repo.Origin.HTTPS),
		w.label(cfg, "code.launchers"):       strings.Join(w.project.Launchers(), ","),
	}
	if w.descriptor.Template != nil {
		labels[w.label(cfg, "template.name")] = w.descriptor.Template.Name
		labels[w.label(cfg, "template.version")] = orND(w.descriptor.Template.Version)
		labels[w.label(cfg, "template.url")] = orND(w.descriptor.Template.URL)
	}
	if configurations, err := project.LoadConfigurations(w.project); err == nil {
		for name, data := range configurations {
			if raw, err := json.Marshal(data); err == nil {
				labels[w.label(cfg, "configuration."+name)] = string(raw)
			}
		}
	}
	return labels
}

// mountVolumes renders the active file mappings as -v source:destination
// bindings. Conflicting claims over a destination are an error.
func (w *workspace) mountVolumes(triggers []string) ([]string, error) {
	claimed := map[string]string{}
	var volumes []string
	for _, mapping := range w.descriptor.MergedMappings() {
		if !anyTriggered(mapping, triggers) {
			continue
		}
		source := mapping.Source
		if !strings.HasPrefix(source, "/") {
			source = w.project.Resource(source)
		}
		if owner, ok := claimed[mapping.Destination]; ok && owner != source {
			return nil, fmt.Errorf("mountpoint %q claimed by both %q and %q",
				mapping.Destination, owner, source)
		}
		claimed[mapping.Destination] = source
		volumes = append(volumes, source+":"+mapping.Destination)
	}
	sort.Strings(volumes)
	return volumes, nil
}

func anyTriggered(mapping project.FileMapping, triggers []string) bool {
	for _, trigger := range triggers {
		if mapping.Triggered(trigger) {
			return true
		}
	}
	return false
}

func orND(value string) string {
	if value == "" {
		return valueNotDetermined
	}
	return value
}
