package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretRef marks a password that names a mounted secret file, e.g. "secret:r1-password"
const secretRef = "secret:"

// SecretDirs are searched in order for mounted secrets
var SecretDirs = []string{"/run/secrets", "/secrets"}

// ErrSecretNotFound is returned when a secret reference matches no mounted file
var ErrSecretNotFound = errors.New("mounted secret not found")

// resolvePassword expands ${VAR} references, then replaces a secret reference
// with the content of the matching file under dirs. Trailing newlines are trimmed.
func resolvePassword(raw string, dirs []string) (string, error) {
	value := os.ExpandEnv(raw)
	if !strings.HasPrefix(value, secretRef) {
		return value, nil
	}

	name := strings.TrimPrefix(value, secretRef)
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid secret reference %q", value)
	}

	for _, dir := range dirs {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read secret %s: %w", name, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}
