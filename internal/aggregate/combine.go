package aggregate

import (
	"sort"

	"github.com/forgelens/reposcan/internal/classifier"
	"github.com/forgelens/reposcan/internal/history"
	"github.com/forgelens/reposcan/internal/ranking"
	"github.com/forgelens/reposcan/internal/runners"
)

// RepoResult is the slice of one repository's pipeline run that the
// combined view needs: the Bundle it would otherwise write standalone,
// plus the raw intermediate aggregates whose set-union/re-ranking
// semantics can't be recovered from the serialized documents alone.
type RepoResult struct {
	Name             string
	Bundle           Bundle
	Summary          *history.Summary
	TechnologyTotals map[string]*history.TechnologyTotals
	CodeCounter      map[string]runners.CodeCounterEntry
	DeveloperMetrics []ranking.DeveloperMetrics
	TotalLOC         int
}

// DirCombined is the directory name the Aggregator writes the
// cross-repository combined view under.
const DirCombined = "combined"

// RepositoryCombined is the `repository` header value stamped on every
// combined-view document.
const RepositoryCombined = "combined"

// CombinedRankings re-ranks the union of every repository's per-developer
// metrics into one cross-repository ranking.
func CombinedRankings(perRepo map[string][]ranking.DeveloperMetrics, weights map[string]float64) []DeveloperRankingEntry {
	combinedMetrics := ranking.CombineAll(perRepo)
	ranked := ranking.Rank(combinedMetrics, weights)

	return BuildRankings(ranked)
}

// Combine builds the `combined` Bundle from several repositories' pipeline
// results: countable fields sum, set-valued fields
// union, and developer rankings re-derive from the union of raw metrics
// rather than averaging already-ranked output. Non-additive fields
// (ratios, owner shares, averages) are re-derived from the combined raw
// counts, never averaged across repositories.
func Combine(results []RepoResult, weights map[string]float64) Bundle {
	summaries := make([]*history.Summary, 0, len(results))
	technologyPerRepo := make([]map[string]*history.TechnologyTotals, 0, len(results))
	devMetricsByRepo := make(map[string][]ranking.DeveloperMetrics, len(results))

	var (
		combinedVulns    []runners.Finding
		combinedTotalLOC int
	)

	combinedCodeCounter := map[string]runners.CodeCounterEntry{}
	classificationTotals := classifier.Counts{}
	classificationByAuthor := map[string]classifier.Counts{}
	classificationByMonth := map[string]classifier.Counts{}
	monthTotalsFromDocs := map[string]int{} // fallback if Summary is nil in a test fixture
	totalCommitsFromDocs := 0

	var complexityDistribution map[string]int

	var complexityFunctions []runners.FunctionComplexity

	vulnSeen := map[string]bool{}

	for _, r := range results {
		summaries = append(summaries, r.Summary)
		technologyPerRepo = append(technologyPerRepo, r.TechnologyTotals)
		devMetricsByRepo[r.Name] = r.DeveloperMetrics
		combinedTotalLOC += r.TotalLOC

		for lang, e := range r.CodeCounter {
			existing := combinedCodeCounter[lang]
			existing.Language = lang
			existing.Files += e.Files
			existing.Blank += e.Blank
			existing.Comment += e.Comment
			existing.Code += e.Code
			combinedCodeCounter[lang] = existing
		}

		for category, count := range r.Bundle.CommitAnalysis.Classification {
			classificationTotals[category] += count
		}

		mergeCounts(classificationByAuthor, r.Bundle.CommitAnalysis.ClassificationByAuthor)
		mergeCounts(classificationByMonth, r.Bundle.CommitAnalysis.ClassificationByMonth)

		totalCommitsFromDocs += r.Bundle.CommitAnalysis.TotalCommits

		for month, count := range r.Bundle.CommitAnalysis.CommitsByMonth {
			monthTotalsFromDocs[month] += count
		}

		if r.Bundle.Vulnerabilities != nil {
			for _, f := range r.Bundle.Vulnerabilities.Findings {
				key := f.ID + "|" + f.Package
				if vulnSeen[key] {
					continue
				}

				vulnSeen[key] = true

				combinedVulns = append(combinedVulns, f)
			}
		}

		if r.Bundle.Complexity != nil {
			if complexityDistribution == nil {
				complexityDistribution = map[string]int{}
			}

			for bucket, count := range r.Bundle.Complexity.Distribution {
				complexityDistribution[bucket] += count
			}

			complexityFunctions = append(complexityFunctions, r.Bundle.Complexity.Functions...)
		}
	}

	combinedSummary := history.CombineSummaries(summaries)
	combinedTechnology := history.CombineTechnologyTotals(technologyPerRepo)

	// CombineSummaries re-fills monthly gaps across the merged span, which
	// the per-repository documents alone can't provide when repositories'
	// active periods don't overlap.
	combinedMonthly := combinedSummary.MonthlyCommits
	if len(combinedMonthly) == 0 {
		combinedMonthly = monthTotalsFromDocs
	}

	securityScore := runners.SecurityScore(combinedVulns, combinedTotalLOC, runners.DefaultScoringPolicy)

	bundle := Bundle{
		OutputRoot: "", // set by the caller before WriteAll
		CommitAnalysis: CommitAnalysisDocument{
			TotalCommits:           totalCommitsFromDocs,
			CommitsByMonth:         combinedMonthly,
			Classification:         classificationTotals,
			ClassificationByAuthor: classificationByAuthor,
			ClassificationByMonth:  classificationByMonth,
			TopFiles:               topFilesByChurn(combinedSummary.Files),
		},
		DeveloperContributions: DeveloperContributionsDocument{
			Developers: BuildDeveloperContributions(combinedSummary),
		},
		TechnologyStack:  BuildTechnologyStack(combinedTechnology, combinedCodeCounter),
		RegionalAnalysis: BuildRegionalAnalysis(combinedSummary.Regions),
		ModuleOwnership:  BuildModuleOwnership(combinedSummary.Files),
		OverallSummary:   BuildOverallSummary(combinedSummary, securityScore),
		DeveloperRankings: DeveloperRankingsDocument{
			Weights:         weights,
			TotalDevelopers: 0, // filled below
			Rankings:        nil,
		},
		Manifest: ManifestDocument{
			Stages:      combinedManifestStages(results),
			ParseErrors: combinedParseErrors(results),
			ExitCode:    0,
		},
	}

	rankings := CombinedRankings(devMetricsByRepo, weights)
	bundle.DeveloperRankings.Rankings = rankings
	bundle.DeveloperRankings.TotalDevelopers = len(rankings)

	if len(combinedVulns) > 0 || anyVulnRan(results) {
		bundle.Vulnerabilities = &VulnerabilitiesDocument{Findings: combinedVulns, SecurityScore: securityScore}
	}

	if complexityDistribution != nil {
		sortFunctions(complexityFunctions)
		bundle.Complexity = &ComplexityDocument{Distribution: complexityDistribution, Functions: complexityFunctions}
	}

	return bundle
}

func combinedManifestStages(results []RepoResult) []ManifestStage {
	stages := make([]ManifestStage, 0, len(results))

	for _, r := range results {
		outcome := "ok"

		for _, s := range r.Bundle.Manifest.Stages {
			if s.Outcome == "failed" || s.Outcome == "timed-out" {
				outcome = s.Outcome
			}
		}

		stages = append(stages, ManifestStage{
			Stage:   "combine:" + r.Name,
			Outcome: outcome,
		})
	}

	sort.Slice(stages, func(i, j int) bool { return stages[i].Stage < stages[j].Stage })

	return stages
}

// mergeCounts sums src's nested per-category tallies into dst.
func mergeCounts(dst, src map[string]classifier.Counts) {
	for key, counts := range src {
		if dst[key] == nil {
			dst[key] = classifier.Counts{}
		}

		for category, count := range counts {
			dst[key][category] += count
		}
	}
}

func combinedParseErrors(results []RepoResult) map[string]int {
	totals := map[string]int{}

	for _, r := range results {
		for stage, count := range r.Bundle.Manifest.ParseErrors {
			totals[r.Name+":"+stage] += count
		}
	}

	if len(totals) == 0 {
		return nil
	}

	return totals
}

func anyVulnRan(results []RepoResult) bool {
	for _, r := range results {
		if r.Bundle.Vulnerabilities != nil {
			return true
		}
	}

	return false
}

func sortFunctions(fns []runners.FunctionComplexity) {
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].File != fns[j].File {
			return fns[i].File < fns[j].File
		}

		return fns[i].Function < fns[j].Function
	})
}
