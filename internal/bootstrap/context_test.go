package bootstrap

import "testing"

func TestEnvironOverridesBase(t *testing.T) {
	ctx := NewContext()
	ctx.Set("PYTHONPATH", "/code/app/packages")
	ctx.Set("ROBOT_TYPE", "camera")

	env := ctx.Environ([]string{"PATH=/usr/bin", "PYTHONPATH=/old", "HOME=/root"})
	seen := make(map[string]string, len(env))
	for _, entry := range env {
		for i := 0; i < len(entry); i++ {
			if entry[i] == '=' {
				seen[entry[:i]] = entry[i+1:]
				break
			}
		}
	}
	if seen["PYTHONPATH"] != "/code/app/packages" {
		t.Fatalf("override lost: %v", env)
	}
	if seen["PATH"] != "/usr/bin" || seen["HOME"] != "/root" {
		t.Fatalf("base entries lost: %v", env)
	}
	if seen["ROBOT_TYPE"] != "camera" {
		t.Fatalf("context entry lost: %v", env)
	}
	if len(env) != 4 {
		t.Fatalf("duplicate entries: %v", env)
	}
}

func TestAddPackageRootDeduplicates(t *testing.T) {
	ctx := NewContext()
	ctx.AddPackageRoot("/a")
	ctx.AddPackageRoot("/b")
	ctx.AddPackageRoot("/a")
	if len(ctx.SearchPath) != 2 {
		t.Fatalf("unexpected search path: %v", ctx.SearchPath)
	}
}

func TestStateStrings(t *testing.T) {
	states := map[State]string{
		StateUninitialized:      "UNINITIALIZED",
		StateUserConfigured:     "USER_CONFIGURED",
		StateProjectsMerged:     "PROJECTS_MERGED",
		StateLaunchersInstalled: "LAUNCHERS_INSTALLED",
		StateReady:              "READY",
		StateExecuting:          "EXECUTING",
	}
	for state, want := range states {
		if state.String() != want {
			t.Fatalf("state %d: got %q want %q", state, state.String(), want)
		}
	}
}
