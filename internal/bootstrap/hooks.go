package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danmuck/cpkctl/internal/tools"
)

// HookExt is the extension hook scripts must carry to be picked up.
const HookExt = ".sh"

// HookPolicy decides what a failing hook does to the bootstrap.
type HookPolicy int

const (
	// PolicyUnset resolves to the phase's documented default: strict for
	// entrypoint hooks, best-effort for environment hooks.
	PolicyUnset HookPolicy = iota
	// PolicyStrict aborts the bootstrap on the first hook failure.
	PolicyStrict
	// PolicyBestEffort logs the failure and moves on.
	PolicyBestEffort
)

func (p HookPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyBestEffort:
		return "best-effort"
	default:
		return "unset"
	}
}

var envDeltaLine = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)

// discoverHooks lists *.sh files in dir sorted lexicographically by filename,
// which is what makes the numeric-prefix convention (10-setup.sh, 20-env.sh)
// deterministic. A missing directory yields nil.
func discoverHooks(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var hooks []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), HookExt) {
			continue
		}
		hooks = append(hooks, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(hooks)
	return hooks
}

// runHook executes one hook as a child process and parses KEY=VALUE lines
// from its stdout into an environment delta. Hooks run through /bin/sh so the
// executable bit is not required on hook scripts.
func runHook(runner tools.CommandRunner, path string, env []string) (map[string]string, error) {
	stdout, stderr, code, err := runner.Run(tools.Command{
		Name: "/bin/sh",
		Args: []string{path},
		Env:  env,
	})
	if err != nil {
		return nil, fmt.Errorf("hook %s failed (exit=%d): %w: %s", path, code, err, strings.TrimSpace(string(stderr)))
	}
	return parseEnvDeltas(stdout), nil
}

// parseEnvDeltas extracts well-formed KEY=VALUE lines; everything else on
// stdout is ignored.
func parseEnvDeltas(out []byte) map[string]string {
	deltas := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		match := envDeltaLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		deltas[match[1]] = match[2]
	}
	return deltas
}

// runHookDir executes every hook under dir in order, folding emitted deltas
// into the context as it goes so later hooks observe earlier deltas.
func runHookDir(ctx *Context, runner tools.CommandRunner, dir string, policy HookPolicy, base []string, log zerolog.Logger) error {
	for _, hook := range discoverHooks(dir) {
		deltas, err := runHook(runner, hook, ctx.Environ(base))
		if err != nil {
			if policy == PolicyStrict {
				return err
			}
			log.Warn().Str("hook", hook).Err(err).Msg("hook failed, continuing")
			continue
		}
		for key, value := range deltas {
			ctx.Set(key, value)
		}
		log.Debug().Str("hook", hook).Int("deltas", len(deltas)).Msg("hook applied")
	}
	return nil
}
