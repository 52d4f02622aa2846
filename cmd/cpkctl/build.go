package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/cpkctl/internal/docker"
	"github.com/danmuck/cpkctl/internal/project"
)

func newBuildCommand() *command {
	var (
		workdir     string
		machineArg  string
		arch        string
		noCache     bool
		pullBase    bool
		push        bool
		noMultiarch bool
	)
	return &command{
		name:    "build",
		summary: "Build the project image.",
		usage:   "cpk build [flags]",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
			fs.StringVarP(&workdir, "workdir", "C", ".", "project directory")
			fs.StringVarP(&machineArg, "machine", "H", "", "machine to build on")
			fs.StringVarP(&arch, "arch", "a", "", "target architecture (default: endpoint architecture)")
			fs.BoolVar(&noCache, "no-cache", false, "build without the engine cache")
			fs.BoolVar(&pullBase, "pull", false, "always pull the base image")
			fs.BoolVar(&push, "push", false, "push the image after a successful build")
			fs.BoolVar(&noMultiarch, "no-multiarch", false, "skip binfmt emulation setup")
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
			if err := project.ValidateStructure(ws.project, ws.descriptor); err != nil {
				return err
			}

			endpoint, m, err := app.endpointFor(machineArg)
			if err != nil {
				return err
			}
			targetArch, err := resolveArch(endpoint, arch)
			if err != nil {
				return err
			}
			if !noMultiarch {
				if err := endpoint.EnsureBinfmt(targetArch); err != nil {
					return err
				}
			}

			image, err := ws.image(app.cfg, targetArch)
			if err != nil {
				return err
			}
			platform, err := docker.Platform(targetArch)
			if err != nil {
				return err
			}

			log.Info().Str("project", ws.name()).Str("image", image).
				Str("machine", m.Name).Msg("building image")

			err = endpoint.Build(docker.BuildOptions{
				ContextDir: ws.project.Root,
				Dockerfile: filepath.Join(ws.project.Root, "Dockerfile"),
				Tag:        image,
				Platform:   platform,
				Labels:     ws.buildLabels(app.cfg),
				BuildArgs: map[string]string{
					"ARCH":         targetArch,
					"PROJECT_NAME": ws.name(),
				},
				NoCache: noCache,
				Pull:    pullBase,
			}, os.Stdout, os.Stderr)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			log.Info().Str("image", image).Msg("image built")

			if push {
				log.Info().Str("image", image).Msg("pushing image")
				if err := endpoint.Push(image, os.Stdout, os.Stderr); err != nil {
					return fmt.Errorf("push failed: %w", err)
				}
			}
			return nil
		},
	}
}
