package tools

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
)

// Command describes one child-process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the child environment entirely when non-nil.
	Env []string
}

// CommandRunner abstracts child-process execution for runtime adapters.
type CommandRunner interface {
	Run(cmd Command) ([]byte, []byte, int32, error)
	RunStreaming(cmd Command, stdout, stderr io.Writer) (int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// tools command-runner implementation backed by os/exec.
func (r ExecRunner) Run(cmd Command) ([]byte, []byte, int32, error) {
	command := exec.Command(cmd.Name, cmd.Args...)
	command.Dir = cmd.Dir
	command.Env = cmd.Env
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode(err), err
}

// tools command-runner implementation streaming output to the caller.
func (r ExecRunner) RunStreaming(cmd Command, stdout, stderr io.Writer) (int32, error) {
	command := exec.Command(cmd.Name, cmd.Args...)
	command.Dir = cmd.Dir
	command.Env = cmd.Env
	if stdout != nil {
		command.Stdout = stdout
	}
	if stderr != nil {
		command.Stderr = stderr
	}

	err := command.Run()
	if err == nil {
		return 0, nil
	}
	return exitCode(err), err
}

func exitCode(err error) int32 {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitCode())
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return 127
	}
	return 1
}
