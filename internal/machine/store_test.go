package machine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/cpkctl/internal/testutil/testlog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	testlog.Start(t)
	store, err := NewStore(filepath.Join(t.TempDir(), "machines"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStoreSaveAndGet(t *testing.T) {
	store := newTestStore(t)

	m := Machine{
		Name:        "rover",
		Type:        TypeSSH,
		Description: "field unit",
		Configuration: Configuration{
			User: "robot",
			Host: "rover.local",
			Port: 22,
		},
	}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get("rover")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Type != TypeSSH || got.Description != "field unit" || got.Configuration.Host != "rover.local" {
		t.Fatalf("unexpected machine: %+v", got)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("phantom"); !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	m := Machine{Name: "rover", Type: TypeSSH, Configuration: Configuration{Host: "rover.local"}}
	if err := store.Save(m); !errors.Is(err, ErrInvalidMachine) {
		t.Fatalf("expected ErrInvalidMachine, got %v", err)
	}
}

func TestStoreListSkipsMalformedRecords(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"beta", "alpha"} {
		m := Machine{Name: name, Type: TypeTCP, Configuration: Configuration{Host: "10.0.0.1", Port: 2375}}
		if err := store.Save(m); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	broken := store.Dir("broken")
	if err := os.MkdirAll(broken, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(broken, "config.json"), []byte("not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	machines, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(machines) != 2 {
		t.Fatalf("expected 2 machines, got %d", len(machines))
	}
	if machines[0].Name != "alpha" || machines[1].Name != "beta" {
		t.Fatalf("expected sorted names, got %q %q", machines[0].Name, machines[1].Name)
	}
}

func TestStoreRejectsUnsupportedRecordVersion(t *testing.T) {
	store := newTestStore(t)
	dir := store.Dir("old")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	record := []byte(`{"version":"0.9","type":"tcp","description":"","configuration":{"host":"h"}}`)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), record, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := store.Get("old"); !errors.Is(err, ErrInvalidMachine) {
		t.Fatalf("expected ErrInvalidMachine, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	m := Machine{Name: "rover", Type: TypeTCP, Configuration: Configuration{Host: "h", Port: 2375}}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Remove("rover"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if store.Exists("rover") {
		t.Fatalf("machine should be gone")
	}
	if err := store.Remove("rover"); !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
}

func TestStoreResolve(t *testing.T) {
	store := newTestStore(t)
	saved := Machine{Name: "rover", Type: TypeTCP, Configuration: Configuration{Host: "rover.local", Port: 2375}}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m, err := store.Resolve("")
	if err != nil || m.Type != TypeSocket {
		t.Fatalf("empty arg should resolve to local socket, got %+v, %v", m, err)
	}

	m, err = store.Resolve("rover")
	if err != nil || m.Configuration.Host != "rover.local" {
		t.Fatalf("named machine should win, got %+v, %v", m, err)
	}

	m, err = store.Resolve("robot@10.0.0.9")
	if err != nil || m.Type != TypeSSH {
		t.Fatalf("ad-hoc target should parse, got %+v, %v", m, err)
	}
}
