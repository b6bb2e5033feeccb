package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peopleops/internal/secrets"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv(secrets.EnvPrimary, "")
	t.Setenv(secrets.EnvFallback, "")
}

func TestRun_CreatesEnvironment(t *testing.T) {
	clearCredentialEnv(t)
	ws := t.TempDir()
	var out bytes.Buffer

	result, err := Run(context.Background(), Config{
		Workspace:        ws,
		SkipConfirmation: true,
		Writer:           &out,
	})
	require.NoError(t, err)

	assert.True(t, result.Created, "fresh workspace should report creation")
	assert.NotEmpty(t, result.FilesCreated)

	// The spec's verifiable scenario: the environment directory exists now.
	for _, path := range []string{
		".peopleops",
		".peopleops/config.yaml",
		".peopleops/documents/uploads",
		".peopleops/logs",
		".peopleops/.gitignore",
	} {
		_, err := os.Stat(filepath.Join(ws, path))
		assert.NoError(t, err, "%s should exist", path)
	}

	// Seeded by default.
	assert.Equal(t, 50, result.EmployeeCount)
	assert.False(t, result.SecretsPresent)
	assert.Contains(t, out.String(), "BOOTSTRAP COMPLETE")
}

func TestRun_Idempotent(t *testing.T) {
	clearCredentialEnv(t)
	ws := t.TempDir()
	cfg := Config{Workspace: ws, SkipConfirmation: true, Writer: &bytes.Buffer{}}

	first, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Empty(t, second.FilesCreated, "existing files are left alone")
	assert.Equal(t, 50, second.EmployeeCount, "no duplicate seed")
}

func TestRun_SkipSeed(t *testing.T) {
	clearCredentialEnv(t)
	result, err := Run(context.Background(), Config{
		Workspace:        t.TempDir(),
		SkipConfirmation: true,
		SkipSeed:         true,
		Writer:           &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.EmployeeCount)
}

func TestRun_ConfirmationPrompt(t *testing.T) {
	clearCredentialEnv(t)

	t.Run("decline aborts", func(t *testing.T) {
		var out bytes.Buffer
		_, err := Run(context.Background(), Config{
			Workspace: t.TempDir(),
			Reader:    strings.NewReader("n\n"),
			Writer:    &out,
		})
		assert.ErrorIs(t, err, ErrDeclined)
		assert.Contains(t, out.String(), "Continue without an API key?")
	})

	t.Run("confirm continues", func(t *testing.T) {
		result, err := Run(context.Background(), Config{
			Workspace: t.TempDir(),
			Reader:    strings.NewReader("y\n"),
			Writer:    &bytes.Buffer{},
		})
		require.NoError(t, err)
		assert.False(t, result.SecretsPresent)
		assert.NotEmpty(t, result.Warnings)
	})

	t.Run("non-interactive stdin declines", func(t *testing.T) {
		_, err := Run(context.Background(), Config{
			Workspace: t.TempDir(),
			Reader:    strings.NewReader(""),
			Writer:    &bytes.Buffer{},
		})
		assert.ErrorIs(t, err, ErrDeclined)
	})
}

func TestRun_NoPromptWhenCredentialPresent(t *testing.T) {
	t.Setenv(secrets.EnvPrimary, "test-key")
	var out bytes.Buffer

	// Empty reader: if the prompt were reached it would decline.
	result, err := Run(context.Background(), Config{
		Workspace: t.TempDir(),
		Reader:    strings.NewReader(""),
		Writer:    &out,
	})
	require.NoError(t, err)

	assert.True(t, result.SecretsPresent)
	assert.Equal(t, "env:"+secrets.EnvPrimary, result.SecretsSource)
	assert.NotContains(t, out.String(), "Continue without an API key?")
}

func TestRun_SecretsFileResolved(t *testing.T) {
	clearCredentialEnv(t)
	ws := t.TempDir()
	require.NoError(t, secrets.Write(ws, "file-key"))

	result, err := Run(context.Background(), Config{
		Workspace: ws,
		Reader:    strings.NewReader(""),
		Writer:    &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.True(t, result.SecretsPresent)
	assert.Equal(t, "file", result.SecretsSource)
}

func TestRun_MalformedSecretsFileWarnsAndPrompts(t *testing.T) {
	clearCredentialEnv(t)
	ws := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".peopleops"), 0755))
	require.NoError(t, os.WriteFile(secrets.Path(ws), []byte("gemini_api_key: [unclosed"), 0600))

	var out bytes.Buffer
	result, err := Run(context.Background(), Config{
		Workspace: ws,
		Reader:    strings.NewReader("y\n"),
		Writer:    &out,
	})
	require.NoError(t, err, "a broken secrets file must not crash the bootstrap")

	assert.False(t, result.SecretsPresent)
	assert.Contains(t, out.String(), "Continue without an API key?")

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "secrets file") {
			found = true
		}
	}
	assert.True(t, found, "warnings should mention the unreadable secrets file: %v", result.Warnings)
}

func TestRun_IndexesExistingDocuments(t *testing.T) {
	clearCredentialEnv(t)
	ws := t.TempDir()

	// Pre-place a document where the upload dir will be created.
	uploads := filepath.Join(ws, ".peopleops", "documents", "uploads")
	require.NoError(t, os.MkdirAll(uploads, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "policy.txt"),
		[]byte("Vacation policy grants 20 days."), 0644))

	result, err := Run(context.Background(), Config{
		Workspace:        ws,
		SkipConfirmation: true,
		Writer:           &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocumentCount)
	assert.GreaterOrEqual(t, result.ChunkCount, 1)
}

func TestRun_QuietSuppressesOutput(t *testing.T) {
	clearCredentialEnv(t)
	var out bytes.Buffer

	// No credential resolvable: the advisory block must stay quiet too.
	_, err := Run(context.Background(), Config{
		Workspace:        t.TempDir(),
		SkipConfirmation: true,
		Quiet:            true,
		Writer:           &out,
	})
	require.NoError(t, err)
	assert.Empty(t, out.String())
}
