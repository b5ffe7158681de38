// Package gitlog implements the Git Log Extractor: it
// invokes the local `git` binary with a fixed argument set to produce
// three canonical log formats, parsing none of them itself — it only
// captures raw bytes for downstream consumers (internal/history for the
// full-history and stats formats, internal/evolution for the
// evolution-analyzer dialect).
package gitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrGitUnavailable is returned when the git binary cannot be located or
// executed at all. This is the one Git Log Extractor failure that is
// fatal to the whole pipeline.
var ErrGitUnavailable = errors.New("git binary unavailable")

// Artifacts holds the three raw log captures this stage produces.
type Artifacts struct {
	FullHistory []byte // "commit <hex> <iso8601> <author> <email>" + subject + numstat
	Stats       []byte // compressed one-line-per-commit form for the classifier
	Codemaat    []byte // evolution-analyzer dialect: short date, author only
	PartialErr  error  // non-nil if git exited non-zero but some output was captured
}

// fullHistoryFormat renders a marker line in the fixed literal shape,
// then the subject on its own line; --numstat appends diffstat lines
// automatically.
const fullHistoryFormat = `--pretty=format:commit %H %ad %an %ae%n%s`

// statsFormat is the compressed form fed to the commit classifier: one
// line per commit, hash/date/email/subject, no diffstat.
const statsFormat = `--pretty=format:%H%x09%ad%x09%ae%x09%s`

// codemaatFormat is the code-maat-compatible dialect the evolution
// analyzer expects: short ISO date, author display name only.
const codemaatFormat = `--pretty=format:--%H--%ad--%an`

// Extractor runs the three git log invocations against a resolved git
// binary path, supplied by the pipeline controller from the Tool
// Locator's output.
type Extractor struct {
	GitPath string
}

// New creates an Extractor using the given resolved git binary path (or
// "git" to resolve from PATH if empty).
func New(gitPath string) *Extractor {
	if gitPath == "" {
		gitPath = "git"
	}

	return &Extractor{GitPath: gitPath}
}

// HeadHash resolves repoPath's current HEAD commit hash, used by the
// pipeline controller as the content-addressed cache key for this
// extraction.
func (e *Extractor) HeadHash(ctx context.Context, repoPath string) (string, error) {
	out, err := e.run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// Extract runs all three git log invocations against repoPath and returns
// their raw captures. Commits are left in git's native reverse-chronological
// order; internal/history is responsible for re-sorting to forward
// chronological order before aggregation.
func (e *Extractor) Extract(ctx context.Context, repoPath string) (*Artifacts, error) {
	full, fullErr := e.run(ctx, repoPath, "log", "--no-color", "--date=iso-strict", "--numstat", fullHistoryFormat)
	if fullErr != nil && full == nil {
		return nil, fmt.Errorf("%w: %w", ErrGitUnavailable, fullErr)
	}

	stats, statsErr := e.run(ctx, repoPath, "log", "--no-color", "--date=iso-strict", statsFormat)

	codemaat, codemaatErr := e.run(ctx, repoPath, "log", "--no-color", "--numstat", "--date=short", codemaatFormat)

	artifacts := &Artifacts{
		FullHistory: full,
		Stats:       stats,
		Codemaat:    codemaat,
	}

	// A non-zero exit with partial output is recorded, not fatal:
	// downstream stages operate on whatever was parsed.
	for _, err := range []error{fullErr, statsErr, codemaatErr} {
		if err != nil {
			artifacts.PartialErr = err
		}
	}

	return artifacts, nil
}

// run invokes git with a fixed baseline argument set (no pager, no color,
// UTF-8 path encoding via core.quotepath=false) plus the caller's args,
// returning stdout even when git exits non-zero so partial output can be
// salvaged.
func (e *Extractor) run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	baseArgs := append([]string{"-C", repoPath, "-c", "core.quotepath=false", "--no-pager"}, args...)

	cmd := exec.CommandContext(ctx, e.GitPath, baseArgs...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if _, lookErr := exec.LookPath(e.GitPath); lookErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrGitUnavailable, lookErr)
		}

		return stdout.Bytes(), fmt.Errorf("git %v: %w: %s", args, runErr, bytes.TrimSpace(stderr.Bytes()))
	}

	return stdout.Bytes(), nil
}
