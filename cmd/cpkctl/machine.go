package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/cpkctl/internal/machine"
)

func newMachineCommand() *command {
	return &command{
		name:    "machine",
		summary: "Manage remote machines.",
		subcommands: []*command{
			newMachineCreateCommand(),
			newMachineListCommand(),
			newMachineInfoCommand(),
			newMachineRemoveCommand(),
		},
	}
}

func newMachineCreateCommand() *command {
	var (
		description   string
		provisionKeys bool
	)
	return &command{
		name:    "create",
		summary: "Register a machine from a target URI.",
		usage:   "cpk machine create <name> <user@host[:port] | tcp://host:port | unix:///path>",
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
			fs.StringVarP(&description, "description", "d", "", "free-form machine description")
			fs.BoolVar(&provisionKeys, "provision-keys", false, "generate an ssh key pair for the machine")
			return fs
		},
		run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <name> and <target>, got %d arguments", len(args))
			}
			app, err := openApp()
			if err != nil {
				return err
			}
			name, target := args[0], args[1]
			if app.machines.Exists(name) {
				return fmt.Errorf("machine %q already exists", name)
			}

			m, err := machine.ParseTarget(name, target)
			if err != nil {
				return err
			}
			m.Description = description
			if err := app.machines.Save(m); err != nil {
				return err
			}
			log.Info().Str("machine", name).Str("type", string(m.Type)).Msg("machine registered")

			if provisionKeys {
				if m.Type != machine.TypeSSH {
					return fmt.Errorf("--provision-keys only applies to ssh machines")
				}
				pair, err := app.machines.ProvisionKeys(name)
				if err != nil {
					return err
				}
				pub, err := os.ReadFile(pair.PublicKeyPath)
				if err != nil {
					return err
				}
				fmt.Printf("Add this key to %s@%s:~/.ssh/authorized_keys:\n\n%s",
					m.Configuration.User, m.Configuration.Host, pub)
			}
			return nil
		},
	}
}

func newMachineListCommand() *command {
	return &command{
		name:    "list",
		summary: "List registered machines.",
		usage:   "cpk machine list",
		run: func(args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			machines, err := app.machines.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tENDPOINT\tDESCRIPTION")
			for _, m := range machines {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Type, m.DockerHost(), m.Description)
			}
			return tw.Flush()
		},
	}
}

func newMachineInfoCommand() *command {
	return &command{
		name:    "info",
		summary: "Show one machine's record.",
		usage:   "cpk machine info <name>",
		run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one machine name")
			}
			app, err := openApp()
			if err != nil {
				return err
			}
			m, err := app.machines.Get(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Name:\t%s\n", m.Name)
			fmt.Fprintf(tw, "Type:\t%s\n", m.Type)
			fmt.Fprintf(tw, "Endpoint:\t%s\n", m.DockerHost())
			fmt.Fprintf(tw, "Description:\t%s\n", orNone(m.Description))
			if keys, ok := app.machines.Keys(m.Name); ok {
				fmt.Fprintf(tw, "SSH key:\t%s\n", keys.PrivateKeyPath)
			}
			return tw.Flush()
		},
	}
}

func newMachineRemoveCommand() *command {
	return &command{
		name:    "remove",
		summary: "Remove a machine and its credentials.",
		usage:   "cpk machine remove <name>",
		run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one machine name")
			}
			app, err := openApp()
			if err != nil {
				return err
			}
			return app.machines.Remove(args[0])
		},
	}
}
