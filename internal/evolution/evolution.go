// Package evolution implements the Evolution Analyzer Orchestrator: it
// drives the external evolution-analyzer jar through a fixed set of named
// sub-analyses over a bounded worker pool, each producing one CSV table.
package evolution

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgelens/reposcan/internal/runners"
)

// Analysis names the 15 sub-analyses the evolution analyzer performs, in
// the fixed order the orchestrator reports them.
type Analysis string

const (
	AnalysisRevisions                Analysis = "revisions"
	AnalysisAuthors                  Analysis = "authors"
	AnalysisEntityChurn              Analysis = "entity-churn"
	AnalysisAbsoluteChurn            Analysis = "absolute-churn"
	AnalysisAge                      Analysis = "age"
	AnalysisMainDeveloper            Analysis = "main-developer"
	AnalysisMainDeveloperByRevisions Analysis = "main-developer-by-revisions"
	AnalysisAuthorChurn              Analysis = "author-churn"
	AnalysisCommunication            Analysis = "communication"
	AnalysisEntityOwnership          Analysis = "entity-ownership"
	AnalysisCoupling                 Analysis = "coupling"
	AnalysisSumOfCoupling            Analysis = "sum-of-coupling"
	AnalysisEntityEffort             Analysis = "entity-effort"
	AnalysisFragmentation            Analysis = "fragmentation"
	AnalysisRefactoringMainDeveloper Analysis = "refactoring-main-developer"
)

// analyses is the fixed, ordered list driving deterministic output
// ordering regardless of completion order under the worker pool.
var analyses = []Analysis{
	AnalysisRevisions,
	AnalysisAuthors,
	AnalysisEntityChurn,
	AnalysisAbsoluteChurn,
	AnalysisAge,
	AnalysisMainDeveloper,
	AnalysisMainDeveloperByRevisions,
	AnalysisAuthorChurn,
	AnalysisCommunication,
	AnalysisEntityOwnership,
	AnalysisCoupling,
	AnalysisSumOfCoupling,
	AnalysisEntityEffort,
	AnalysisFragmentation,
	AnalysisRefactoringMainDeveloper,
}

// SubResult is one sub-analysis's outcome: its parsed CSV table plus the
// runner state/diagnostics that produced it.
type SubResult struct {
	Analysis    Analysis
	Table       Table
	RunnerState runners.State
	Diagnostics runners.Diagnostics
}

// Orchestrator drives the 15 sub-analyses over a bounded worker pool.
type Orchestrator struct {
	JavaPath    string
	JarPath     string
	Workers     int
	SubTimeout  time.Duration
	GraceWindow time.Duration
}

// New creates an Orchestrator; Workers <= 0 falls back to sequential (1).
func New(javaPath, jarPath string, workers int, subTimeout, graceWindow time.Duration) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}

	return &Orchestrator{
		JavaPath:    javaPath,
		JarPath:     jarPath,
		Workers:     workers,
		SubTimeout:  subTimeout,
		GraceWindow: graceWindow,
	}
}

// Run executes all 15 sub-analyses against logPath (the Git Log
// Extractor's evolution-analyzer-dialect capture) and returns them in the
// fixed analyses order, independent of which worker finished first.
func (o *Orchestrator) Run(ctx context.Context, logPath string) []SubResult {
	results := make([]SubResult, len(analyses))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.Workers)

	for i, analysis := range analyses {
		i, analysis := i, analysis

		group.Go(func() error {
			results[i] = o.runOne(groupCtx, analysis, logPath)

			return nil
		})
	}

	_ = group.Wait()

	return results
}

// runOne runs a single sub-analysis. Errors never propagate to the group:
// a failed sub-analysis is recorded in its own SubResult, not allowed to
// cancel its siblings.
func (o *Orchestrator) runOne(ctx context.Context, analysis Analysis, logPath string) SubResult {
	res := runners.Run(ctx, runners.Invocation{
		Tool:        string(analysis),
		Path:        o.JavaPath,
		Args:        []string{"-jar", o.JarPath, "-l", logPath, "-a", string(analysis)},
		Timeout:     o.SubTimeout,
		GraceWindow: o.GraceWindow,
	})

	result := SubResult{
		Analysis:    analysis,
		RunnerState: res.State,
		Diagnostics: res.Diagnostics,
	}

	if res.State == runners.StateOK {
		result.Table = ParseCSV(res.Stdout)
	}

	return result
}
