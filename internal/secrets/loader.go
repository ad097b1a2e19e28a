package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a secret comes from.
type Source struct {
	// Name is used in error messages.
	Name string
	// Value is an inline secret from config or env.
	Value string
	// File points at a file holding the secret. It wins over Value.
	File string
}

// Load resolves a secret from src. The result is trimmed. An error is
// returned when neither File nor Value yield a non-empty secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}
	return secret, nil
}

// Optional is Load for secrets a feature can run without. A missing
// secret yields "" and no error; an unreadable file is still an error.
func Optional(src Source) (string, error) {
	if strings.TrimSpace(src.File) == "" && strings.TrimSpace(src.Value) == "" {
		return "", nil
	}
	return Load(src)
}
