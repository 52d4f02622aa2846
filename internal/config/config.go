package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvConfigDir overrides the default configuration root (~/.cpk).
const EnvConfigDir = "CPK_CONFIG_DIR"

// Config is the user-level tool configuration loaded from <dir>/config.toml.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Docker   DockerConfig   `toml:"docker"`
	Machine  string         `toml:"machine"`
}

// RegistryConfig names where images are pushed and under which namespace.
type RegistryConfig struct {
	Host      string `toml:"host"`
	Namespace string `toml:"namespace"`
}

// DockerConfig selects the container engine client binary.
type DockerConfig struct {
	Binary string `toml:"binary"`
}

func DefaultConfig() Config {
	return Config{
		Registry: RegistryConfig{
			Host: "docker.io",
		},
		Docker: DockerConfig{
			Binary: "docker",
		},
	}
}

// Dir resolves the configuration root, honoring CPK_CONFIG_DIR.
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home dir: %w", err)
	}
	return filepath.Join(home, ".cpk"), nil
}

// MachinesDir is where the machine registry lives.
func MachinesDir(root string) string {
	return filepath.Join(root, "machines")
}

// Path is the tool configuration file inside the configuration root.
func Path(root string) string {
	return filepath.Join(root, "config.toml")
}

// Load reads the configuration file at path over DefaultConfig. A missing
// file yields the defaults; a present file only overrides the keys it
// actually defines.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw struct {
		Registry struct {
			Host      string `toml:"host"`
			Namespace string `toml:"namespace"`
		} `toml:"registry"`
		Docker struct {
			Binary string `toml:"binary"`
		} `toml:"docker"`
		Machine string `toml:"machine"`
	}

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
	}

	if meta.IsDefined("registry", "host") {
		if host := strings.TrimSpace(raw.Registry.Host); host != "" {
			cfg.Registry.Host = host
		}
	}
	if meta.IsDefined("registry", "namespace") {
		cfg.Registry.Namespace = strings.TrimSpace(raw.Registry.Namespace)
	}
	if meta.IsDefined("docker", "binary") {
		if bin := strings.TrimSpace(raw.Docker.Binary); bin != "" {
			cfg.Docker.Binary = bin
		}
	}
	if meta.IsDefined("machine") {
		cfg.Machine = strings.TrimSpace(raw.Machine)
	}

	return cfg, nil
}
