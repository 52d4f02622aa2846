package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/cpkctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()

	root := &command{
		name:    "cpk",
		summary: "Package, build and run containerized projects.",
		subcommands: []*command{
			newInfoCommand(),
			newBuildCommand(),
			newRunCommand(),
			newCleanCommand(),
			newPushCommand(),
			newPullCommand(),
			newMachineCommand(),
			newEndpointCommand(),
			newConfigCommand(),
		},
	}

	if err := root.execute(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
