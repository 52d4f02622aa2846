package machine

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

const (
	privateKeyFile = "id_ed25519"
	publicKeyFile  = "id_ed25519.pub"
)

// KeyPair points at a machine's provisioned SSH credentials on disk.
type KeyPair struct {
	PrivateKeyPath string
	PublicKeyPath  string
}

// ProvisionKeys generates an ed25519 key pair inside the machine's record
// directory. Provisioning is idempotent: an existing pair is returned as-is.
func (s *Store) ProvisionKeys(name string) (KeyPair, error) {
	if !s.Exists(name) {
		return KeyPair{}, fmt.Errorf("%w: %q", ErrMachineNotFound, name)
	}
	dir := s.Dir(name)
	pair := KeyPair{
		PrivateKeyPath: filepath.Join(dir, privateKeyFile),
		PublicKeyPath:  filepath.Join(dir, publicKeyFile),
	}
	if _, err := os.Stat(pair.PrivateKeyPath); err == nil {
		return pair, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("machine: generating key pair: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, fmt.Sprintf("cpk machine %s", name))
	if err != nil {
		return KeyPair{}, fmt.Errorf("machine: encoding private key: %w", err)
	}
	if err := os.WriteFile(pair.PrivateKeyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return KeyPair{}, fmt.Errorf("machine: writing private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return KeyPair{}, fmt.Errorf("machine: encoding public key: %w", err)
	}
	if err := os.WriteFile(pair.PublicKeyPath, ssh.MarshalAuthorizedKey(sshPub), 0o600); err != nil {
		return KeyPair{}, fmt.Errorf("machine: writing public key: %w", err)
	}

	s.log.Info().Str("machine", name).Str("path", pair.PrivateKeyPath).Msg("ssh key pair provisioned")
	return pair, nil
}

// Keys returns the machine's key pair if one was provisioned.
func (s *Store) Keys(name string) (KeyPair, bool) {
	pair := KeyPair{
		PrivateKeyPath: filepath.Join(s.Dir(name), privateKeyFile),
		PublicKeyPath:  filepath.Join(s.Dir(name), publicKeyFile),
	}
	if _, err := os.Stat(pair.PrivateKeyPath); err != nil {
		return KeyPair{}, false
	}
	return pair, true
}
