package gitlog

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithCommits(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Ada Lovelace",
			"GIT_AUTHOR_EMAIL=ada@example.com",
			"GIT_COMMITTER_NAME=Ada Lovelace",
			"GIT_COMMITTER_EMAIL=ada@example.com",
		)
		require.NoError(t, cmd.Run())
	}

	run("init")
	run("config", "user.name", "Ada Lovelace")
	run("config", "user.email", "ada@example.com")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	run("add", "main.go")
	run("commit", "-m", "add entry point")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	run("add", "main.go")
	run("commit", "-m", "implement main")

	return dir
}

func TestExtractCapturesAllThreeFormats(t *testing.T) {
	dir := initRepoWithCommits(t)

	ext := New("")
	artifacts, err := ext.Extract(context.Background(), dir)

	require.NoError(t, err)
	require.NoError(t, artifacts.PartialErr)

	assert.Contains(t, string(artifacts.FullHistory), "Ada Lovelace ada@example.com")
	assert.Contains(t, string(artifacts.FullHistory), "implement main")
	assert.Contains(t, string(artifacts.FullHistory), "main.go")

	assert.Contains(t, string(artifacts.Stats), "ada@example.com")
	assert.Contains(t, string(artifacts.Stats), "add entry point")

	assert.Contains(t, string(artifacts.Codemaat), "--Ada Lovelace")
}

func TestExtractFailsFatallyWhenGitBinaryMissing(t *testing.T) {
	dir := t.TempDir()

	ext := New(filepath.Join(dir, "no-such-git-binary"))
	_, err := ext.Extract(context.Background(), dir)

	require.ErrorIs(t, err, ErrGitUnavailable)
}

func TestExtractReportsPartialErrOnNonZeroExit(t *testing.T) {
	dir := t.TempDir() // not a repository at all

	ext := New("")
	artifacts, err := ext.Extract(context.Background(), dir)

	require.NoError(t, err)
	require.Error(t, artifacts.PartialErr)
	assert.True(t, bytes.Equal(artifacts.FullHistory, []byte{}) || len(artifacts.FullHistory) == 0)
}
