package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/danmuck/cpkctl/internal/config"
)

func newEndpointCommand() *command {
	return &command{
		name:    "endpoint",
		summary: "Inspect container engine endpoints.",
		subcommands: []*command{
			newEndpointInfoCommand(),
		},
	}
}

func newEndpointInfoCommand() *command {
	var machineArg string
	return &command{
		name:    "info",
		summary: "Show information about the selected endpoint.",
		usage:   "cpk endpoint info [flags]",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("info", pflag.ContinueOnError)
			fs.StringVarP(&machineArg, "machine", "H", "", "machine to query")
			return fs
		},
		run: func(args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			endpoint, m, err := app.endpointFor(machineArg)
			if err != nil {
				return err
			}
			info, err := endpoint.Info()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Machine:\t%s\n", m.Name)
			fmt.Fprintf(tw, "Endpoint:\t%s\n", m.DockerHost())
			fmt.Fprintf(tw, "Hostname:\t%s\n", info.Name)
			fmt.Fprintf(tw, "Engine:\t%s\n", info.ServerVersion)
			fmt.Fprintf(tw, "OS:\t%s\n", info.OSType)
			fmt.Fprintf(tw, "Architecture:\t%s\n", info.Architecture)
			fmt.Fprintf(tw, "CPUs:\t%d\n", info.NCPU)
			return tw.Flush()
		},
	}
}

func newConfigCommand() *command {
	var force bool
	return &command{
		name:    "config",
		summary: "Manage the tool configuration.",
		subcommands: []*command{
			{
				name:    "init",
				summary: "Write a starter configuration file.",
				usage:   "cpk config init [flags]",
				flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("init", pflag.ContinueOnError)
					fs.BoolVarP(&force, "force", "f", false, "overwrite an existing configuration")
					return fs
				},
				run: func(args []string) error {
					dir, err := config.Dir()
					if err != nil {
						return err
					}
					path := config.Path(dir)
					if err := config.WriteTemplate(path, force); err != nil {
						return err
					}
					fmt.Printf("Configuration written to %s\n", path)
					return nil
				},
			},
		},
	}
}
