package machine

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestProvisionKeys(t *testing.T) {
	store := newTestStore(t)
	m := Machine{
		Name: "rover",
		Type: TypeSSH,
		Configuration: Configuration{
			User: "robot",
			Host: "rover.local",
		},
	}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pair, err := store.ProvisionKeys("rover")
	if err != nil {
		t.Fatalf("ProvisionKeys: %v", err)
	}

	raw, err := os.ReadFile(pair.PrivateKeyPath)
	if err != nil {
		t.Fatalf("reading private key: %v", err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		t.Fatalf("private key should parse: %v", err)
	}

	pub, err := os.ReadFile(pair.PublicKeyPath)
	if err != nil {
		t.Fatalf("reading public key: %v", err)
	}
	parsedPub, _, _, _, err := ssh.ParseAuthorizedKey(pub)
	if err != nil {
		t.Fatalf("public key should parse: %v", err)
	}
	if !bytes.Equal(parsedPub.Marshal(), signer.PublicKey().Marshal()) {
		t.Fatalf("public key does not match private key")
	}
}

func TestProvisionKeysIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	m := Machine{Name: "rover", Type: TypeSSH, Configuration: Configuration{User: "robot", Host: "h"}}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, err := store.ProvisionKeys("rover")
	if err != nil {
		t.Fatalf("first ProvisionKeys: %v", err)
	}
	before, err := os.ReadFile(first.PrivateKeyPath)
	if err != nil {
		t.Fatalf("reading private key: %v", err)
	}

	second, err := store.ProvisionKeys("rover")
	if err != nil {
		t.Fatalf("second ProvisionKeys: %v", err)
	}
	after, err := os.ReadFile(second.PrivateKeyPath)
	if err != nil {
		t.Fatalf("reading private key: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("provisioning twice must not rotate the key")
	}
}

func TestProvisionKeysRequiresRecord(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.ProvisionKeys("phantom"); !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
}

func TestShellForLocalMachines(t *testing.T) {
	store := newTestStore(t)
	shell, err := store.ShellFor(DefaultSocket())
	if err != nil {
		t.Fatalf("ShellFor: %v", err)
	}
	if _, ok := shell.(LocalShell); !ok {
		t.Fatalf("socket machine should use the local shell, got %T", shell)
	}
}

func TestShellForSSHRequiresKeys(t *testing.T) {
	store := newTestStore(t)
	m := Machine{Name: "rover", Type: TypeSSH, Configuration: Configuration{User: "robot", Host: "h"}}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.ShellFor(m); !errors.Is(err, ErrInvalidMachine) {
		t.Fatalf("expected ErrInvalidMachine, got %v", err)
	}

	if _, err := store.ProvisionKeys("rover"); err != nil {
		t.Fatalf("ProvisionKeys: %v", err)
	}
	shell, err := store.ShellFor(m)
	if err != nil {
		t.Fatalf("ShellFor: %v", err)
	}
	if _, ok := shell.(SSHShell); !ok {
		t.Fatalf("ssh machine should use the ssh shell, got %T", shell)
	}
}
