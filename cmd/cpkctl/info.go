package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/danmuck/cpkctl/internal/docker"
)

func newInfoCommand() *command {
	var workdir string
	var arch string
	var remote bool
	return &command{
		name:    "info",
		summary: "Show information about the project in the working directory.",
		usage:   "cpk info [flags]",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("info", pflag.ContinueOnError)
			fs.StringVarP(&workdir, "workdir", "C", ".", "project directory")
			fs.StringVarP(&arch, "arch", "a", "", "image architecture for --remote (default: host architecture)")
			fs.BoolVar(&remote, "remote", false, "include the project labels published on the registry")
			return fs
		},
		run: func(args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(workdir)
			if err != nil {
				return err
			}

			index := "clean"
			if !ws.repo.Index.Clean {
				index = "dirty"
			}
			released := ws.repo.Version.Head
			if released == "" {
				released = "unreleased"
			}
			templateName, templateVersion := "(none)", ""
			if ws.descriptor.Template != nil {
				templateName = ws.descriptor.Template.Name
				templateVersion = ws.descriptor.Template.Version
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Project:\t%s\n", ws.name())
			fmt.Fprintf(tw, "Tag:\t%s\n", ws.versionTag())
			fmt.Fprintf(tw, "Version:\t%s\n", released)
			fmt.Fprintf(tw, "Template:\t%s %s\n", templateName, templateVersion)
			fmt.Fprintf(tw, "Index:\t%s\n", index)
			fmt.Fprintf(tw, "Path:\t%s\n", ws.project.Root)
			fmt.Fprintf(tw, "URL:\t%s\n", orNone(ws.repo.Origin.HTTPS))
			fmt.Fprintf(tw, "Registry:\t%s\n", ws.registry(app.cfg))
			fmt.Fprintf(tw, "Launchers:\t%s\n", orNone(strings.Join(ws.project.Launchers(), ", ")))

			if remote {
				if err := writeRemoteInfo(tw, ws, app, arch); err != nil {
					tw.Flush()
					return err
				}
			}
			return tw.Flush()
		},
	}
}

// writeRemoteInfo appends the project labels published on Docker Hub for the
// image currently addressed by the workspace.
func writeRemoteInfo(tw *tabwriter.Writer, ws *workspace, app *app, arch string) error {
	var err error
	if arch == "" {
		arch, err = docker.HostArch()
	} else {
		arch, err = docker.CanonicalArch(arch)
	}
	if err != nil {
		return err
	}

	repository, tag, err := ws.remoteRef(app.cfg, arch)
	if err != nil {
		return err
	}
	labels, err := docker.NewHubClient().RemoteImageLabels(repository, tag)
	if err != nil {
		return err
	}

	fmt.Fprintf(tw, "Remote:\t%s:%s\n", repository, tag)
	prefix := ws.label(app.cfg, "")
	keys := make([]string, 0, len(labels))
	for key := range labels {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(tw, "  %s:\t%s\n", strings.TrimPrefix(key, prefix), labels[key])
	}
	return nil
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}
