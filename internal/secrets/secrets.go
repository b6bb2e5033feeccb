// Package secrets resolves the Gemini API credential for peopleops.
// The same credential is accepted under two environment variable names,
// GEMINI_API_KEY and GOOGLE_API_KEY, with a local secrets file as the
// fallback. The secrets file is never created automatically and is expected
// to stay out of version control.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names accepted for the credential, checked in order.
const (
	EnvPrimary  = "GEMINI_API_KEY"
	EnvFallback = "GOOGLE_API_KEY"
)

// FileName is the secrets file name inside the workspace environment directory.
const FileName = "secrets.yaml"

// ErrNoCredential indicates that no API credential could be resolved from
// the environment or the secrets file.
var ErrNoCredential = errors.New("no API credential configured")

// Credential is a resolved API credential and where it came from.
type Credential struct {
	Key    string
	Source string // "env:GEMINI_API_KEY", "env:GOOGLE_API_KEY", "file", or "" when absent
}

// Present reports whether a non-empty credential was resolved.
func (c Credential) Present() bool {
	return c.Key != ""
}

// Redacted returns a display-safe form of the credential for status output.
func (c Credential) Redacted() string {
	if c.Key == "" {
		return "(not set)"
	}
	if len(c.Key) <= 8 {
		return "****"
	}
	return c.Key[:4] + "…" + c.Key[len(c.Key)-4:]
}

// secretsFile is the on-disk YAML shape of the secrets file.
type secretsFile struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
}

// Path returns the secrets file path for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".peopleops", FileName)
}

// FileExists reports whether the secrets file is present in the workspace.
func FileExists(workspace string) bool {
	info, err := os.Stat(Path(workspace))
	return err == nil && !info.IsDir()
}

// Resolve returns the credential for a workspace. Resolution order:
// GEMINI_API_KEY, GOOGLE_API_KEY, then the workspace secrets file. Values
// are whitespace-trimmed; an empty value after trimming counts as absent.
// A missing secrets file is not an error; an unreadable or malformed one is
// reported alongside the absent credential so callers can warn.
func Resolve(workspace string) (Credential, error) {
	if key := strings.TrimSpace(os.Getenv(EnvPrimary)); key != "" {
		return Credential{Key: key, Source: "env:" + EnvPrimary}, nil
	}
	if key := strings.TrimSpace(os.Getenv(EnvFallback)); key != "" {
		return Credential{Key: key, Source: "env:" + EnvFallback}, nil
	}

	key, err := readFile(Path(workspace))
	if os.IsNotExist(err) {
		return Credential{}, nil
	}
	if err != nil {
		return Credential{}, fmt.Errorf("secrets file unreadable: %w", err)
	}
	if key == "" {
		return Credential{}, nil
	}
	return Credential{Key: key, Source: "file"}, nil
}

// readFile loads and trims the credential from a secrets file.
func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var sf secretsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return "", fmt.Errorf("failed to parse secrets file: %w", err)
	}

	return strings.TrimSpace(sf.GeminiAPIKey), nil
}

// Write stores the credential in the workspace secrets file with 0600
// permissions, creating the environment directory if needed.
func Write(workspace, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrNoCredential
	}

	path := Path(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}

	data, err := yaml.Marshal(secretsFile{GeminiAPIKey: key})
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}

	return nil
}
