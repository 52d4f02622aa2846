package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/cpkctl/internal/bootstrap"
	"github.com/danmuck/cpkctl/internal/docker"
	"github.com/danmuck/cpkctl/internal/project"
)

func newRunCommand() *command {
	var (
		workdir     string
		machineArg  string
		arch        string
		name        string
		launcher    string
		network     string
		mount       bool
		keep        bool
		detachedCmd bool
		pull        bool
		noMultiarch bool
	)
	return &command{
		name:    "run",
		summary: "Run the project image. Arguments after -- are passed to the container.",
		usage:   "cpk run [flags] [-- command...]",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
			fs.StringVarP(&workdir, "workdir", "C", ".", "project directory")
			fs.StringVarP(&machineArg, "machine", "H", "", "machine to run on")
			fs.StringVarP(&arch, "arch", "a", "", "image architecture (default: endpoint architecture)")
			fs.StringVarP(&name, "name", "n", "", "container name")
			fs.StringVarP(&launcher, "launcher", "L", "", "launcher to invoke inside the container")
			fs.StringVar(&network, "net", "", "container network mode")
			fs.BoolVarP(&mount, "mount", "M", false, "mount the project source into the container")
			fs.BoolVar(&keep, "keep", false, "keep the container after it stops")
			fs.BoolVarP(&detachedCmd, "detach", "d", false, "detach and let the container run")
			fs.BoolVar(&pull, "pull", false, "pull the image before running")
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
			if mount && !ws.repo.Index.Clean {
				log.Warn().Str("project", ws.name()).
					Msg("mounting a dirty checkout; the container will see uncommitted changes")
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
			if pull {
				log.Info().Str("image", image).Msg("pulling image")
				if err := endpoint.Pull(image, os.Stdout, os.Stderr); err != nil {
					return fmt.Errorf("pull failed: %w", err)
				}
			}

			triggers := []string{project.TriggerDefault}
			if mount {
				triggers = append(triggers, project.TriggerRunMount)
			}
			volumes, err := ws.mountVolumes(triggers)
			if err != nil {
				return err
			}

			if launcher != "" && len(args) > 0 {
				return fmt.Errorf("--launcher cannot be combined with an explicit command")
			}
			env := map[string]string{}
			if launcher != "" {
				env[bootstrap.EnvLauncher] = launcher
			}
			if name == "" {
				name = "cpk-run-" + ws.name()
			}

			log.Info().Str("image", image).Str("machine", m.Name).
				Str("container", name).Msg("running container")
			return endpoint.RunContainer(docker.RunOptions{
				Image:       image,
				Name:        name,
				Command:     args,
				Env:         env,
				Volumes:     volumes,
				Network:     network,
				Remove:      !keep && !detachedCmd,
				Interactive: !detachedCmd,
				Detach:      detachedCmd,
			}, os.Stdout, os.Stderr)
		},
	}
}
