// Package controller implements the Pipeline Controller: it validates the
// target repository, wraps the whole run in a global timeout, drives every
// downstream stage, joins their results into one output bundle, and
// decides the process exit code.
package controller

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/forgelens/reposcan/internal/aggregate"
	"github.com/forgelens/reposcan/internal/classifier"
	"github.com/forgelens/reposcan/internal/evolution"
	"github.com/forgelens/reposcan/internal/gitlog"
	"github.com/forgelens/reposcan/internal/history"
	"github.com/forgelens/reposcan/internal/locator"
	"github.com/forgelens/reposcan/internal/model"
	"github.com/forgelens/reposcan/internal/pipelinectx"
	"github.com/forgelens/reposcan/internal/ranking"
	"github.com/forgelens/reposcan/internal/rcache"
	"github.com/forgelens/reposcan/internal/repodesc"
	"github.com/forgelens/reposcan/internal/runners"
)

// Process exit codes.
const (
	ExitSuccess            = 0
	ExitMisconfiguration   = 2
	ExitGitUnavailable     = 3
	ExitGlobalTimeoutHit   = 4
	ExitNotAGitWorkingTree = 5
)

const (
	stageExtraction = "git-log-extraction"
	stageHistory    = "history-analyzer"
	stageClassifier = "commit-classifier"
	stageCodeCount  = "code-counter"
	stageComplexity = "complexity-analyzer"
	stageVuln       = "vulnerability-scanner"
	stageEvolution  = "evolution-orchestrator"
	stageRanking    = "developer-ranking"
)

const cacheStageGitLog = "git-log-extract"

// extractionLogNames names the three files the Git Log Extractor's
// captures are written under inside extractions/.
const (
	fileFullHistory = "git_log_all.log"
	fileStats       = "git_log_stats.log"
	fileCodemaat    = "git_log_codemaat.txt"
)

// stageOrder fixes the manifest's stage ordering: stages complete in
// whatever order the worker pool finishes them, but the recorded list is
// always presented in pipeline order so re-runs produce identical
// manifests regardless of scheduling.
var stageOrder = map[string]int{
	stageExtraction: 0,
	stageHistory:    1,
	stageClassifier: 2,
	stageCodeCount:  3,
	stageComplexity: 4,
	stageVuln:       5,
	stageEvolution:  6,
	stageRanking:    7,
}

// Controller drives one repository through the full pipeline.
type Controller struct {
	Ctx     *pipelinectx.Context
	Tools   ToolSet
	Cache   *rcache.Cache // nil disables content-addressed caching
	Tracer  trace.Tracer  // nil disables span creation
	NowFunc func() time.Time
}

// New creates a Controller. toolSet gates which optional stages run;
// cache and tracer may be nil.
func New(ctx *pipelinectx.Context, toolSet ToolSet, cache *rcache.Cache, tracer trace.Tracer) *Controller {
	return &Controller{Ctx: ctx, Tools: toolSet, Cache: cache, Tracer: tracer}
}

func (c *Controller) now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}

	return time.Now()
}

// RunResult is everything one repository's pipeline run produced, in a
// shape rich enough for the Aggregator to later combine several runs into
// a cross-repository view: the built Bundle (already valid standalone
// output) plus the raw intermediate aggregates a set-union/re-ranking
// combine needs that the serialized documents alone can't recover.
type RunResult struct {
	RepoName         string
	Bundle           aggregate.Bundle
	Summary          *history.Summary
	TechnologyTotals map[string]*history.TechnologyTotals
	CodeCounter      map[string]runners.CodeCounterEntry
	DeveloperMetrics []ranking.DeveloperMetrics
	TotalLOC         int
}

// Run executes the full pipeline for one repository, writes its output
// bundle, and returns the process exit code. A non-nil error accompanies
// only the fatal exit codes (misconfiguration, git unavailable, not a git
// working tree); a degraded-but-complete run returns ExitSuccess or
// ExitGlobalTimeoutHit with a nil error, the detail recorded in the
// written manifest instead.
func (c *Controller) Run(ctx context.Context) (int, error) {
	result, exitCode, err := c.Collect(ctx)
	if err != nil {
		return exitCode, err
	}

	aggregate.ApplyHeaders(&result.Bundle, result.RepoName, c.now())

	if writeErr := aggregate.WriteAll(result.Bundle); writeErr != nil {
		return ExitMisconfiguration, fmt.Errorf("write output bundle: %w", writeErr)
	}

	c.Ctx.StageLogger("controller").Info("pipeline run complete", "repo", result.RepoName, "exit_code", exitCode)

	return exitCode, nil
}

// Collect runs every stage and assembles the result without writing it to
// disk, so a multi-repository invocation can run several repositories and
// hand their RunResults to the Aggregator's combine step before anything
// is written. Run itself is Collect followed by ApplyHeaders+WriteAll.
func (c *Controller) Collect(ctx context.Context) (*RunResult, int, error) {
	logger := c.Ctx.StageLogger("controller")

	descriptor, descErr := repodesc.Resolve(c.Ctx.RepoPath)
	if descErr != nil {
		return nil, ExitNotAGitWorkingTree, descErr
	}

	if !c.Ctx.Capabilities.Present(locator.ToolGit) {
		return nil, ExitGitUnavailable, fmt.Errorf("git binary not located")
	}

	runCtx, cancel := context.WithTimeout(ctx, c.Ctx.Config.Timeouts.Global)
	defer cancel()

	// Each repository's output lives under its own short-name subdirectory
	// of the configured output root; Ctx.OutputRoot is the shared parent
	// across every repository in a multi-repo run.
	repoOutputRoot := filepath.Join(c.Ctx.OutputRoot, descriptor.ShortName)

	var anyOutputWritten bool

	stages := make([]aggregate.ManifestStage, 0, 8)
	parseErrors := map[string]int{}
	diagnostics := map[string]runners.Diagnostics{}

	extractStart := c.now()
	extractCtx, endExtractSpan := c.startSpan(runCtx, stageExtraction)
	artifacts, codemaatPath, extractErr := c.extract(extractCtx, repoOutputRoot, descriptor.Path)
	endExtractSpan()

	if extractErr != nil {
		if errors.Is(extractErr, gitlog.ErrGitUnavailable) {
			return nil, ExitGitUnavailable, extractErr
		}

		return nil, ExitMisconfiguration, extractErr
	}

	stages = append(stages, c.recordStage(extractCtx, stageExtraction, extractStart, artifacts.PartialErr))

	anyOutputWritten = true

	group, gctx := errgroup.WithContext(runCtx)
	group.SetLimit(maxInt(1, c.Ctx.Config.Workers))

	var (
		mu                 sync.Mutex
		commits            []model.Commit
		summary            *history.Summary
		technologyTotals   map[string]*history.TechnologyTotals
		categories         []classifier.Category
		breakdown          classifier.Breakdown
		codeCounterEntries []runners.CodeCounterEntry
		complexitySummary  *runners.ComplexitySummary
		vulnFindings       []runners.Finding
		vulnRan            bool
		evolutionResults   []evolution.SubResult
	)

	addStage := func(s aggregate.ManifestStage) {
		mu.Lock()
		stages = append(stages, s)
		mu.Unlock()
	}

	group.Go(func() error {
		start := c.now()
		spanCtx, end := c.startSpan(gctx, stageHistory)
		defer end()

		commits = history.ParseFullHistory(artifacts.FullHistory)
		summary = history.Aggregate(commits, c.Ctx.Config.Regions, c.Ctx.Config.CompanyDomains, c.Ctx.Config.Ignore)
		technologyTotals = history.TechnologyStack(commits, c.Ctx.Config.Ignore)

		addStage(c.recordStage(spanCtx, stageHistory, start, nil))

		return nil
	})

	group.Go(func() error {
		start := c.now()
		spanCtx, end := c.startSpan(gctx, stageClassifier)
		defer end()

		records := classifier.ParseStats(artifacts.Stats)
		categories = make([]classifier.Category, len(records))

		for i, r := range records {
			categories[i] = classifier.Classify(r.Subject)
		}

		breakdown = classifier.Aggregate(records, categories)

		mu.Lock()
		parseErrors[stageClassifier] = countSkippedLines(artifacts.Stats, len(records))
		mu.Unlock()

		addStage(c.recordStage(spanCtx, stageClassifier, start, nil))

		return nil
	})

	caps := c.Ctx.Capabilities

	addDiagnostics := func(name string, d runners.Diagnostics) {
		mu.Lock()
		diagnostics[name] = d
		mu.Unlock()
	}

	if skipped, reason := c.stageSkipped(ToolSetTechStack, locator.ToolCodeCounter); skipped {
		addStage(skippedStage(stageCodeCount, reason))
	} else {
		group.Go(func() error {
			start := c.now()
			spanCtx, end := c.startSpan(gctx, stageCodeCount)
			defer end()

			res, entries, err := runners.RunCodeCounter(spanCtx, caps[locator.ToolCodeCounter].Path, descriptor.Path,
				c.Ctx.Config.Timeouts.CodeCounter, c.Ctx.Config.Timeouts.GraceWindow)

			mu.Lock()
			codeCounterEntries = entries
			mu.Unlock()

			addDiagnostics(stageCodeCount, res.Diagnostics)
			addStage(c.recordRunnerStage(stageCodeCount, start, res, err))

			return nil
		})
	}

	if skipped, reason := c.stageSkipped(ToolSetCodeQuality, locator.ToolComplexity); skipped {
		addStage(skippedStage(stageComplexity, reason))
	} else {
		group.Go(func() error {
			start := c.now()
			spanCtx, end := c.startSpan(gctx, stageComplexity)
			defer end()

			res, summaryOut, err := runners.RunComplexity(spanCtx, caps[locator.ToolComplexity].Path, descriptor.Path,
				c.Ctx.Config.Timeouts.Complexity, c.Ctx.Config.Timeouts.GraceWindow)

			mu.Lock()
			complexitySummary = summaryOut
			mu.Unlock()

			addDiagnostics(stageComplexity, res.Diagnostics)
			addStage(c.recordRunnerStage(stageComplexity, start, res, err))

			return nil
		})
	}

	if skipped, reason := c.stageSkipped(ToolSetVulnerability, locator.ToolVulnerability); skipped {
		addStage(skippedStage(stageVuln, reason))
	} else {
		group.Go(func() error {
			start := c.now()
			spanCtx, end := c.startSpan(gctx, stageVuln)
			defer end()

			// A missing or empty cache directory is a stage failure
			// reported through the manifest, never an attempt to fetch.
			res, findings, err := runners.RunVulnerabilityScan(spanCtx, caps[locator.ToolVulnerability].Path, descriptor.Path,
				c.Ctx.Config.Tools.VulnCache, c.Ctx.Config.Timeouts.Vulnerability, c.Ctx.Config.Timeouts.GraceWindow)

			mu.Lock()
			vulnFindings = findings
			vulnRan = res.State == runners.StateOK
			mu.Unlock()

			addDiagnostics(stageVuln, res.Diagnostics)
			addStage(c.recordRunnerStage(stageVuln, start, res, err))

			return nil
		})
	}

	if skipped, reason := c.stageSkipped(ToolSetEvolution, locator.ToolEvolution); skipped {
		addStage(skippedStage(stageEvolution, reason))
	} else {
		group.Go(func() error {
			start := c.now()
			spanCtx, end := c.startSpan(gctx, stageEvolution)
			defer end()

			orchestrator := evolution.New(caps[locator.ToolJava].Path, caps[locator.ToolEvolution].Path,
				c.Ctx.Config.Workers, c.Ctx.Config.Timeouts.EvolutionSub, c.Ctx.Config.Timeouts.GraceWindow)

			results := orchestrator.Run(spanCtx, codemaatPath)

			mu.Lock()
			evolutionResults = results
			mu.Unlock()

			for _, r := range results {
				addDiagnostics("evolution-"+string(r.Analysis), r.Diagnostics)
			}

			addStage(c.recordStage(spanCtx, stageEvolution, start, nil))

			return nil
		})
	}

	_ = group.Wait()

	rankStart := c.now()
	rankCtx, endRankSpan := c.startSpan(runCtx, stageRanking)

	developerMetrics := BuildDeveloperMetrics(summary, evolutionResults, complexitySummary, c.now())
	ranked := ranking.Rank(developerMetrics, c.Ctx.Config.Ranking.Weights)

	endRankSpan()
	stages = append(stages, c.recordStage(rankCtx, stageRanking, rankStart, nil))

	sortStages(stages)

	totalLOC := totalLinesOfCode(technologyTotals, codeCounterEntries)
	securityScore := runners.SecurityScore(vulnFindings, totalLOC, runners.DefaultScoringPolicy)

	commitAnalysis := aggregate.BuildCommitAnalysis(commits, categories, summary.Files, summary.MonthlyCommits)
	commitAnalysis.ClassificationByAuthor = breakdown.ByAuthor
	commitAnalysis.ClassificationByMonth = breakdown.ByMonth

	bundle := aggregate.Bundle{
		OutputRoot:     repoOutputRoot,
		CommitAnalysis: commitAnalysis,
		DeveloperContributions: aggregate.DeveloperContributionsDocument{
			Developers: aggregate.BuildDeveloperContributions(summary),
		},
		TechnologyStack:  aggregate.BuildTechnologyStack(technologyTotals, runners.FlattenIntoTechnology(codeCounterEntries)),
		RegionalAnalysis: aggregate.BuildRegionalAnalysis(summary.Regions),
		ModuleOwnership:  aggregate.BuildModuleOwnership(summary.Files),
		OverallSummary:   aggregate.BuildOverallSummary(summary, securityScore),
		DeveloperRankings: aggregate.DeveloperRankingsDocument{
			Weights:         c.Ctx.Config.Ranking.Weights,
			TotalDevelopers: len(ranked),
			Rankings:        aggregate.BuildRankings(ranked),
		},
		EvolutionTables: evolutionResults,
		ExtractionLogs: map[string][]byte{
			fileFullHistory: artifacts.FullHistory,
			fileStats:       artifacts.Stats,
			fileCodemaat:    artifacts.Codemaat,
		},
		Diagnostics: diagnostics,
	}

	if vulnRan {
		bundle.Vulnerabilities = &aggregate.VulnerabilitiesDocument{Findings: vulnFindings, SecurityScore: securityScore}
	}

	if complexitySummary != nil {
		bundle.Complexity = &aggregate.ComplexityDocument{
			Distribution: complexitySummary.Distribution,
			Functions:    complexitySummary.Functions,
		}
	}

	exitCode := ExitSuccess
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && !anyOutputWritten {
		exitCode = ExitGlobalTimeoutHit
	}

	bundle.Manifest = aggregate.ManifestDocument{
		Stages:      stages,
		ParseErrors: parseErrors,
		ExitCode:    exitCode,
	}

	logger.Debug("pipeline stages complete", "repo", descriptor.ShortName, "exit_code", exitCode)

	return &RunResult{
		RepoName:         descriptor.ShortName,
		Bundle:           bundle,
		Summary:          summary,
		TechnologyTotals: technologyTotals,
		CodeCounter:      runners.FlattenIntoTechnology(codeCounterEntries),
		DeveloperMetrics: developerMetrics,
		TotalLOC:         totalLOC,
	}, exitCode, nil
}

// extract runs the Git Log Extractor, transparently reusing a cached
// capture when the repository's HEAD hasn't moved since the last run. It
// always writes the codemaat capture to disk immediately, since the
// Evolution Analyzer Orchestrator needs a file path rather than bytes.
func (c *Controller) extract(ctx context.Context, repoOutputRoot, repoPath string) (*gitlog.Artifacts, string, error) {
	extractor := gitlog.New(c.Ctx.Capabilities[locator.ToolGit].Path)
	codemaatPath := filepath.Join(repoOutputRoot, aggregate.DirExtractions, fileCodemaat)

	artifacts, cacheHit := c.fromCache(ctx, extractor, repoPath)

	if !cacheHit {
		var err error

		artifacts, err = extractor.Extract(ctx, repoPath)
		if err != nil {
			return nil, "", err
		}

		c.toCache(ctx, extractor, repoPath, artifacts)
	}

	if err := aggregate.WriteAtomic(codemaatPath, artifacts.Codemaat); err != nil {
		return nil, "", fmt.Errorf("write codemaat capture: %w", err)
	}

	return artifacts, codemaatPath, nil
}

func (c *Controller) fromCache(ctx context.Context, extractor *gitlog.Extractor, repoPath string) (*gitlog.Artifacts, bool) {
	if c.Cache == nil {
		return nil, false
	}

	head, err := extractor.HeadHash(ctx, repoPath)
	if err != nil || head == "" {
		return nil, false
	}

	raw, err := c.Cache.Get(rcache.Key{RepoHead: head, Stage: cacheStageGitLog})
	if err != nil {
		return nil, false
	}

	artifacts, err := gitlog.DecodeArtifacts(raw)
	if err != nil {
		return nil, false
	}

	return artifacts, true
}

func (c *Controller) toCache(ctx context.Context, extractor *gitlog.Extractor, repoPath string, artifacts *gitlog.Artifacts) {
	if c.Cache == nil || artifacts.PartialErr != nil {
		return
	}

	head, err := extractor.HeadHash(ctx, repoPath)
	if err != nil || head == "" {
		return
	}

	_ = c.Cache.Put(rcache.Key{RepoHead: head, Stage: cacheStageGitLog}, gitlog.EncodeArtifacts(artifacts))
}

func (c *Controller) startSpan(ctx context.Context, name string) (context.Context, func()) {
	if c.Tracer == nil {
		return ctx, func() {}
	}

	spanCtx, span := c.Tracer.Start(ctx, name)

	return spanCtx, func() { span.End() }
}

func (c *Controller) recordStage(ctx context.Context, name string, start time.Time, err error) aggregate.ManifestStage {
	duration := c.now().Sub(start)
	outcome := "ok"
	errMsg := ""

	if err != nil {
		outcome = "failed"
		errMsg = err.Error()
	}

	if c.Ctx.Metrics != nil {
		c.Ctx.Metrics.RecordStage(ctx, name, outcome, duration)
	}

	return aggregate.ManifestStage{Stage: name, Outcome: outcome, Duration: duration, Error: errMsg}
}

// recordRunnerStage mirrors recordStage but derives the manifest outcome
// from the external runner's terminal state, folded into the manifest's
// fixed vocabulary (ok, skipped, failed, timed-out).
func (c *Controller) recordRunnerStage(name string, start time.Time, res runners.Result, err error) aggregate.ManifestStage {
	duration := c.now().Sub(start)
	outcome := manifestOutcome(res.State)

	errMsg := res.Diagnostics.Note
	if errMsg == "" && err != nil {
		errMsg = err.Error()
	}

	if c.Ctx.Metrics != nil {
		c.Ctx.Metrics.RecordStage(context.Background(), name, outcome, duration)
	}

	return aggregate.ManifestStage{Stage: name, Outcome: outcome, Duration: duration, Error: errMsg}
}

// manifestOutcome folds a runner state into the manifest's outcome
// vocabulary.
func manifestOutcome(s runners.State) string {
	switch s {
	case runners.StateOK:
		return "ok"
	case runners.StateTimedOut:
		return "timed-out"
	case runners.StateNotApplicable:
		return "skipped"
	default:
		return "failed"
	}
}

// stageSkipped reports whether an optional stage should be skipped, either
// because the --tools selection excludes it or its tool wasn't located.
func (c *Controller) stageSkipped(selection string, tool locator.ToolID) (bool, string) {
	if !c.Tools.Enabled(selection) {
		return true, "deselected via --tools"
	}

	if !c.Ctx.Capabilities.Present(tool) {
		reason := c.Ctx.Capabilities[tool].AbsentReason
		if reason == "" {
			reason = "tool not located"
		}

		return true, reason
	}

	return false, ""
}

func skippedStage(name, reason string) aggregate.ManifestStage {
	return aggregate.ManifestStage{Stage: name, Outcome: "skipped", Error: reason}
}

func sortStages(stages []aggregate.ManifestStage) {
	sort.SliceStable(stages, func(i, j int) bool {
		return stageOrder[stages[i].Stage] < stageOrder[stages[j].Stage]
	})
}

func totalLinesOfCode(totals map[string]*history.TechnologyTotals, counted []runners.CodeCounterEntry) int {
	if len(counted) > 0 {
		var sum int

		for _, e := range counted {
			sum += e.Code
		}

		return sum
	}

	var sum int

	for _, t := range totals {
		sum += t.Added
	}

	return sum
}

// countSkippedLines approximates how many stats-format lines were dropped
// for having the wrong field count, for the manifest's parse_errors
// counter: every non-blank line in raw that didn't yield a parsed record.
func countSkippedLines(raw []byte, parsed int) int {
	total := 0

	start := 0

	for i, b := range raw {
		if b == '\n' {
			if hasNonSpace(raw[start:i]) {
				total++
			}

			start = i + 1
		}
	}

	if hasNonSpace(raw[start:]) {
		total++
	}

	if total < parsed {
		return 0
	}

	return total - parsed
}

func hasNonSpace(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' && c != '\r' {
			return true
		}
	}

	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
