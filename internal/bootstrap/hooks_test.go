package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiscoverHooksSortsLexicographically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20-later.sh", "10-early.sh", "05-first.sh", "readme.txt", "99-last.sh"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("true\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub.sh"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	hooks := discoverHooks(dir)
	want := []string{"05-first.sh", "10-early.sh", "20-later.sh", "99-last.sh"}
	if len(hooks) != len(want) {
		t.Fatalf("unexpected hooks: %v", hooks)
	}
	for i, name := range want {
		if filepath.Base(hooks[i]) != name {
			t.Fatalf("position %d: got %q want %q", i, hooks[i], name)
		}
	}
}

func TestDiscoverHooksMissingDirIsEmpty(t *testing.T) {
	if hooks := discoverHooks(filepath.Join(t.TempDir(), "nope")); hooks != nil {
		t.Fatalf("expected nil, got %v", hooks)
	}
}

func TestHookPoliciesDefaultPerPhase(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.EntrypointPolicy != PolicyStrict {
		t.Fatalf("entrypoint policy defaulted to %s", cfg.EntrypointPolicy)
	}
	if cfg.EnvironmentPolicy != PolicyBestEffort {
		t.Fatalf("environment policy defaulted to %s", cfg.EnvironmentPolicy)
	}

	tightened := Config{EnvironmentPolicy: PolicyStrict}.withDefaults()
	if tightened.EnvironmentPolicy != PolicyStrict {
		t.Fatalf("explicit environment policy overridden: %s", tightened.EnvironmentPolicy)
	}
}

func TestParseEnvDeltas(t *testing.T) {
	out := strings.Join([]string{
		"ROBOT_TYPE=camera",
		"not a delta",
		"1BAD=rejected",
		"EMPTY=",
		"PATH_EXTRA=/opt/bin:/usr/bin",
		"",
	}, "\n")

	deltas := parseEnvDeltas([]byte(out))
	if len(deltas) != 3 {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}
	if deltas["ROBOT_TYPE"] != "camera" || deltas["EMPTY"] != "" || deltas["PATH_EXTRA"] != "/opt/bin:/usr/bin" {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}
}
