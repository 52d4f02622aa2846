package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// imageFlags are the arguments shared by the commands that address the
// project image on an endpoint.
type imageFlags struct {
	workdir    string
	machineArg string
	arch       string
}

func (f *imageFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.workdir, "workdir", "C", ".", "project directory")
	fs.StringVarP(&f.machineArg, "machine", "H", "", "machine to target")
	fs.StringVarP(&f.arch, "arch", "a", "", "image architecture (default: endpoint architecture)")
}

func newCleanCommand() *command {
	flags := &imageFlags{}
	return &command{
		name:    "clean",
		summary: "Remove the project image from the endpoint.",
		usage:   "cpk clean [flags]",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("clean", pflag.ContinueOnError)
			flags.register(fs)
			return fs
		},
		run: func(args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(flags.workdir)
			if err != nil {
				return err
			}
			endpoint, _, err := app.endpointFor(flags.machineArg)
			if err != nil {
				return err
			}
			targetArch, err := resolveArch(endpoint, flags.arch)
			if err != nil {
				return err
			}
			image, err := ws.image(app.cfg, targetArch)
			if err != nil {
				return err
			}
			log.Info().Str("image", image).Msg("removing image")
			return endpoint.RemoveImage(image)
		},
	}
}

func newPushCommand() *command {
	flags := &imageFlags{}
	var force bool
	return &command{
		name:    "push",
		summary: "Push the project image to its registry.",
		usage:   "cpk push [flags]",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("push", pflag.ContinueOnError)
			flags.register(fs)
			fs.BoolVarP(&force, "force", "f", false, "push even from a dirty checkout")
			return fs
		},
		run: func(args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(flags.workdir)
			if err != nil {
				return err
			}
			if !ws.repo.Index.Clean && !force {
				return fmt.Errorf("refusing to push from a dirty checkout (use --force to override)")
			}
			endpoint, _, err := app.endpointFor(flags.machineArg)
			if err != nil {
				return err
			}
			targetArch, err := resolveArch(endpoint, flags.arch)
			if err != nil {
				return err
			}
			image, err := ws.image(app.cfg, targetArch)
			if err != nil {
				return err
			}
			log.Info().Str("image", image).Msg("pushing image")
			return endpoint.Push(image, os.Stdout, os.Stderr)
		},
	}
}

func newPullCommand() *command {
	flags := &imageFlags{}
	return &command{
		name:    "pull",
		summary: "Pull the project image from its registry.",
		usage:   "cpk pull [flags]",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("pull", pflag.ContinueOnError)
			flags.register(fs)
			return fs
		},
		run: func(args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(flags.workdir)
			if err != nil {
				return err
			}
			endpoint, _, err := app.endpointFor(flags.machineArg)
			if err != nil {
				return err
			}
			targetArch, err := resolveArch(endpoint, flags.arch)
			if err != nil {
				return err
			}
			image, err := ws.image(app.cfg, targetArch)
			if err != nil {
				return err
			}
			log.Info().Str("image", image).Msg("pulling image")
			return endpoint.Pull(image, os.Stdout, os.Stderr)
		},
	}
}
