package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteTemplate seeds a starter config.toml at path. Existing files are
// left alone unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: creating config dir: %w", err)
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}

const configTemplate = `# cpk tool configuration

[registry]
host = "docker.io"
# namespace = "your-registry-username"

[docker]
binary = "docker"

# default machine to target; empty means the local engine socket
machine = ""
`
