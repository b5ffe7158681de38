package repodesc

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, dir string) {
	t.Helper()

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}

	run("init")
	run("config", "user.name", "Test User")
	run("config", "user.email", "test@example.com")
}

func TestResolveValidRepository(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	desc, err := Resolve(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), desc.ShortName)
	assert.True(t, filepath.IsAbs(desc.Path))
}

func TestResolveRejectsNonRepository(t *testing.T) {
	dir := t.TempDir()

	_, err := Resolve(dir)

	require.ErrorIs(t, err, ErrNotAGitWorkingTree)
}

func TestResolveRejectsMissingPath(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "does-not-exist"))

	require.Error(t, err)
}
