package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWorkspace(t *testing.T) {
	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("PEOPLEOPS_WORKSPACE", t.TempDir())
		flagDir := t.TempDir()

		ws, err := resolveWorkspace(flagDir)
		require.NoError(t, err)
		assert.Equal(t, flagDir, ws)
	})

	t.Run("env used when flag unset", func(t *testing.T) {
		envDir := t.TempDir()
		t.Setenv("PEOPLEOPS_WORKSPACE", envDir)

		ws, err := resolveWorkspace("")
		require.NoError(t, err)
		assert.Equal(t, envDir, ws)
	})

	t.Run("whitespace-only env counts as unset", func(t *testing.T) {
		t.Setenv("PEOPLEOPS_WORKSPACE", "   ")

		ws, err := resolveWorkspace("")
		require.NoError(t, err)

		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, wd, ws)
	})

	t.Run("falls back to working directory", func(t *testing.T) {
		t.Setenv("PEOPLEOPS_WORKSPACE", "")

		ws, err := resolveWorkspace("")
		require.NoError(t, err)

		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, wd, ws)
	})

	t.Run("relative paths become absolute", func(t *testing.T) {
		ws, err := resolveWorkspace("some/relative/dir")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(ws))
	})
}
