package controller

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgelens/reposcan/internal/config"
	"github.com/forgelens/reposcan/internal/locator"
	"github.com/forgelens/reposcan/internal/pipelinectx"
)

// initScratchRepo creates a tiny two-commit Git repository under a fresh
// temp directory and returns its path. Skips the test if git isn't on
// PATH, since this is the one external dependency the controller cannot
// run without.
func initScratchRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}

	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir

		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init", "-q")
	run("config", "user.name", "Ada Lovelace")
	run("config", "user.email", "ada@example.com")

	require(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "feat: initial commit")

	require(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() { println(\"hi\") }\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "fix: greet on startup")

	return dir
}

func require(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newTestController(t *testing.T, repoPath string) *Controller {
	t.Helper()

	gitPath, err := exec.LookPath("git")
	require(t, err)

	caps := locator.Capabilities{
		locator.ToolGit: {ID: locator.ToolGit, Path: gitPath, Present: true},
	}

	cfg := &config.Config{
		Workers: 1,
		Timeouts: config.TimeoutsConfig{
			Global:      30 * time.Second,
			GraceWindow: time.Second,
		},
		Ranking: config.RankingConfig{Weights: config.DefaultWeights},
	}

	pctx := &pipelinectx.Context{
		Config:       cfg,
		Capabilities: caps,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		RepoPath:     repoPath,
		OutputRoot:   filepath.Join(t.TempDir(), "results"),
	}

	return New(pctx, ParseToolSet(ToolSetAll), nil, nil)
}

func TestControllerRunProducesFullOutputBundle(t *testing.T) {
	repoPath := initScratchRepo(t)
	ctrl := newTestController(t, repoPath)

	code, err := ctrl.Run(context.Background())

	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if code != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", code, ExitSuccess)
	}

	repoOutputRoot := filepath.Join(ctrl.Ctx.OutputRoot, filepath.Base(filepath.Clean(repoPath)))

	for _, name := range []string{
		"commit_analysis.json",
		"developer_contributions.json",
		"technology_stack.json",
		"regional_analysis.json",
		"module_ownership.json",
		"overall_summary.json",
		"developer_rankings.json",
		"manifest.json",
	} {
		path := filepath.Join(repoOutputRoot, name)
		if _, statErr := os.Stat(path); statErr != nil {
			t.Errorf("expected output file %s to exist: %v", name, statErr)
		}
	}
}

func TestCollectRecordsSkippedStagesInPipelineOrder(t *testing.T) {
	repoPath := initScratchRepo(t)
	ctrl := newTestController(t, repoPath)

	result, code, err := ctrl.Collect(context.Background())

	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if code != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", code, ExitSuccess)
	}

	stages := result.Bundle.Manifest.Stages

	outcomes := map[string]string{}
	for _, s := range stages {
		outcomes[s.Stage] = s.Outcome
	}

	// Only git was located, so every external-tool stage is skipped with a
	// reason, never silently absent from the manifest.
	for _, name := range []string{stageCodeCount, stageComplexity, stageVuln, stageEvolution} {
		if outcomes[name] != "skipped" {
			t.Errorf("stage %s outcome = %q, want skipped", name, outcomes[name])
		}
	}

	for _, name := range []string{stageExtraction, stageHistory, stageClassifier, stageRanking} {
		if outcomes[name] != "ok" {
			t.Errorf("stage %s outcome = %q, want ok", name, outcomes[name])
		}
	}

	// The recorded order is pipeline order, not completion order.
	for i := 1; i < len(stages); i++ {
		if stageOrder[stages[i-1].Stage] > stageOrder[stages[i].Stage] {
			t.Errorf("manifest stages out of pipeline order: %s before %s", stages[i-1].Stage, stages[i].Stage)
		}
	}
}

func TestCollectWritesSpecNamedExtractionLogs(t *testing.T) {
	repoPath := initScratchRepo(t)
	ctrl := newTestController(t, repoPath)

	result, _, err := ctrl.Collect(context.Background())
	require(t, err)

	for _, name := range []string{"git_log_all.log", "git_log_stats.log", "git_log_codemaat.txt"} {
		if _, ok := result.Bundle.ExtractionLogs[name]; !ok {
			t.Errorf("extraction log %s missing from bundle", name)
		}
	}
}

func TestControllerRunRejectsNonGitDirectory(t *testing.T) {
	dir := t.TempDir()
	ctrl := newTestController(t, dir)

	code, err := ctrl.Run(context.Background())

	if err == nil {
		t.Fatalf("expected an error for a non-git directory")
	}

	if code != ExitNotAGitWorkingTree {
		t.Fatalf("exit code = %d, want %d", code, ExitNotAGitWorkingTree)
	}
}
