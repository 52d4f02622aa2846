package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// command is one node of the CLI tree. Leaves carry run, inner nodes carry
// subcommands.
type command struct {
	name    string
	summary string
	usage   string

	// flags builds the command's flag set on demand; nil means no flags.
	flags func() *pflag.FlagSet

	subcommands []*command
	run         func(args []string) error

	parent *command
}

func (c *command) execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.printHelp(os.Stderr)
		return nil
	}

	if len(c.subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		for _, sub := range c.subcommands {
			if sub.name == args[0] {
				sub.parent = c
				return sub.execute(args[1:])
			}
		}
		return fmt.Errorf("unknown command %q, run '%s --help' for usage", args[0], c.fullName())
	}

	if c.run == nil {
		c.printHelp(os.Stderr)
		if len(args) == 0 {
			return fmt.Errorf("subcommand required")
		}
		return fmt.Errorf("unknown argument %q", args[0])
	}

	if c.flags != nil {
		flagSet := c.flags()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			return fmt.Errorf("%s, run '%s --help' for usage", err, c.fullName())
		}
		args = flagSet.Args()
	}

	return c.run(args)
}

func (c *command) printHelp(w io.Writer) {
	if c.summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.summary)
	}
	if c.usage != "" {
		fmt.Fprintf(w, "Usage:\n  %s\n", c.usage)
	} else if len(c.subcommands) > 0 {
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", c.fullName())
	} else {
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", c.fullName())
	}
	if len(c.subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.name, sub.summary)
		}
		tw.Flush()
	}
	if c.flags != nil {
		flagSet := c.flags()
		var b strings.Builder
		flagSet.SetOutput(&b)
		flagSet.PrintDefaults()
		if b.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", b.String())
		}
	}
	if len(c.subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", c.fullName())
	}
}

func (c *command) fullName() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.fullName() + " " + c.name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
