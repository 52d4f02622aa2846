package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/danmuck/cpkctl/internal/logging"
	"github.com/danmuck/cpkctl/internal/project"
)

// Separator splits bootstrap arguments from launcher arguments: everything
// after it is handed to the selected launcher. Without it, the arguments are
// executed directly as a command.
const Separator = "--"

var ErrInvalidImpersonation = errors.New("bootstrap: invalid impersonation target")

// Sequencer drives the bootstrap phases exactly once per process and then
// hands control to a launcher or an arbitrary command. Failures before READY
// abort the bootstrap (fail closed); after hand-off the child's exit code is
// propagated verbatim (fail open).
type Sequencer struct {
	cfg       Config
	log       zerolog.Logger
	merger    *Merger
	installer *LauncherInstaller
	state     State
	cred      *syscall.Credential
}

func NewSequencer(cfg Config) *Sequencer {
	cfg = cfg.withDefaults()
	return &Sequencer{
		cfg:       cfg,
		log:       logging.Component("bootstrap"),
		merger:    NewMerger(cfg),
		installer: NewLauncherInstaller(cfg.Prefix),
		state:     StateUninitialized,
	}
}

func (s *Sequencer) State() State {
	return s.state
}

// Bootstrap runs the discovery/merge/install phases. When the guard flags
// show the phases already ran in this process tree, it short-circuits
// straight to READY; the launcher registry is still rebuilt on that path
// because a fresh process starts with an empty one and Execute needs it to
// resolve the selected launcher.
func (s *Sequencer) Bootstrap(ctx *Context, projects []project.Project) error {
	if ctx.Initialized || s.cfg.Getenv(EnvGuardBootstrap) != "" {
		s.log.Debug().Msg("bootstrap already ran, short-circuiting")
		// Reinstallation is idempotent and leaves the environment untouched.
		if err := s.installLaunchers(ctx, projects); err != nil {
			return err
		}
		s.state = StateReady
		return nil
	}

	if err := s.configureUser(); err != nil {
		return err
	}
	s.state = StateUserConfigured

	if err := s.merger.Merge(ctx, projects); err != nil {
		return err
	}
	s.state = StateProjectsMerged

	if err := s.installLaunchers(ctx, projects); err != nil {
		return err
	}
	s.state = StateLaunchersInstalled

	if err := s.installer.Materialize(ctx, s.cfg.BinDir); err != nil {
		return err
	}

	ctx.Set(EnvGuardBootstrap, "1")
	ctx.Initialized = true
	s.state = StateReady
	s.log.Debug().Int("projects", len(projects)).Int("launchers", len(ctx.Launchers)).Msg("bootstrap complete")
	return nil
}

// Execute performs the final hand-off. Arguments starting with the separator
// run the selected launcher (CPK_LAUNCHER, default "default") with the
// remaining arguments; any other arguments run directly as a command; no
// arguments at all is a documented no-op.
func (s *Sequencer) Execute(ctx *Context, args []string) (int, error) {
	s.state = StateExecuting

	if len(args) == 0 {
		s.log.Info().Msg("nothing to run: pass '-- <args>' for the selected launcher or a command to execute")
		return 0, nil
	}

	var name string
	var argv []string
	if args[0] == Separator {
		launcher := s.cfg.Getenv(EnvLauncher)
		if launcher == "" {
			launcher = DefaultLauncherName
		}
		source, err := s.installer.Resolve(ctx, launcher)
		if err != nil {
			return 1, err
		}
		name = source
		argv = args[1:]
	} else {
		name = args[0]
		argv = args[1:]
	}

	return s.runChild(ctx, name, argv)
}

func (s *Sequencer) installLaunchers(ctx *Context, projects []project.Project) error {
	for _, p := range projects {
		if err := s.installer.InstallDir(ctx, p.LaunchersDir()); err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
	}
	return nil
}

// configureUser validates the optional UID/GID impersonation targets. The
// resulting credential is applied to the hand-off child; with no targets set
// this is a no-op.
func (s *Sequencer) configureUser() error {
	if s.cred != nil {
		return nil
	}
	rawUID := s.cfg.Getenv(EnvUID)
	rawGID := s.cfg.Getenv(EnvGID)
	if rawUID == "" && rawGID == "" {
		return nil
	}

	cred := &syscall.Credential{}
	if rawUID != "" {
		uid, err := strconv.ParseUint(rawUID, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidImpersonation, EnvUID, rawUID)
		}
		cred.Uid = uint32(uid)
	}
	if rawGID != "" {
		gid, err := strconv.ParseUint(rawGID, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidImpersonation, EnvGID, rawGID)
		}
		cred.Gid = uint32(gid)
	}
	s.cred = cred
	return nil
}

func (s *Sequencer) runChild(ctx *Context, name string, argv []string) (int, error) {
	cmd := exec.Command(name, argv...)
	cmd.Env = ctx.Environ(s.cfg.Environ())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if s.cred != nil && !s.superuser() {
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: s.cred}
	}

	// Forward termination signals so an interrupted parent cleanly stops the
	// child before exiting itself. The handler is registered before the child
	// starts so no signal arrives unforwarded in between.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	if err := cmd.Start(); err != nil {
		signal.Stop(sigc)
		return 1, fmt.Errorf("bootstrap: cannot start %s: %w", name, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigc:
				_ = cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)
	signal.Stop(sigc)
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// the child's failure is the application's business, not ours
		return exitErr.ExitCode(), nil
	}
	return 1, err
}

func (s *Sequencer) superuser() bool {
	v, err := strconv.ParseBool(s.cfg.Getenv(EnvSuperuser))
	return err == nil && v
}
