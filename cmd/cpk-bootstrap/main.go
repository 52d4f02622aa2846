// Command cpk-bootstrap is the in-container entry point. It discovers the
// projects baked into the image, merges their runtime configuration, installs
// their launchers and hands control to the requested launcher or command,
// propagating its exit code.
package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/cpkctl/internal/bootstrap"
	"github.com/danmuck/cpkctl/internal/logging"
	"github.com/danmuck/cpkctl/internal/project"
)

func main() {
	logging.ConfigureRuntime()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := bootstrap.DefaultConfig()
	if root := os.Getenv(bootstrap.EnvSourceDir); root != "" {
		cfg.SourceRoot = root
	}

	projects := project.Locate(cfg.SourceRoot)
	log.Info().Str("root", cfg.SourceRoot).Int("projects", len(projects)).Msg("projects discovered")

	ctx := bootstrap.NewContext()
	sequencer := bootstrap.NewSequencer(cfg)
	if err := sequencer.Bootstrap(ctx, projects); err != nil {
		log.Error().Err(err).Stringer("state", sequencer.State()).Msg("bootstrap aborted")
		return 1
	}

	code, err := sequencer.Execute(ctx, args)
	if err != nil {
		log.Error().Err(err).Msg("hand-off failed")
		if code == 0 {
			code = 1
		}
	}
	return code
}
