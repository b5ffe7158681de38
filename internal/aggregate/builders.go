package aggregate

import (
	"sort"
	"time"

	"github.com/forgelens/reposcan/internal/classifier"
	"github.com/forgelens/reposcan/internal/history"
	"github.com/forgelens/reposcan/internal/model"
	"github.com/forgelens/reposcan/internal/runners"
)

// ApplyHeaders stamps every document in b with the same schema version,
// generation timestamp, and repository name. docHeader's fields are
// unexported from outside this package, so the pipeline controller
// assembles a Bundle's documents first and calls this once before
// WriteAll.
func ApplyHeaders(b *Bundle, repository string, generatedAt time.Time) {
	h := newHeader(repository, generatedAt)

	b.CommitAnalysis.docHeader = h
	b.DeveloperContributions.docHeader = h
	b.TechnologyStack.docHeader = h
	b.RegionalAnalysis.docHeader = h
	b.ModuleOwnership.docHeader = h
	b.OverallSummary.docHeader = h
	b.DeveloperRankings.docHeader = h
	b.Manifest.docHeader = h

	if b.Vulnerabilities != nil {
		b.Vulnerabilities.docHeader = h
	}

	if b.Complexity != nil {
		b.Complexity.docHeader = h
	}
}

// topFilesLimit bounds commit_analysis.json's top_files list to the
// busiest files by churn, not every file the repository has ever touched.
const topFilesLimit = 50

// BuildCommitAnalysis assembles commit_analysis.json from the parsed
// commit sequence, its per-commit classification, and the History
// Analyzer's file aggregates.
func BuildCommitAnalysis(commits []model.Commit, categories []classifier.Category, files map[string]*history.FileAggregate, monthly map[string]int) CommitAnalysisDocument {
	counts := classifier.Counts{}
	for _, c := range categories {
		counts[c]++
	}

	return CommitAnalysisDocument{
		TotalCommits:   len(commits),
		CommitsByMonth: monthly,
		Classification: counts,
		TopFiles:       topFilesByChurn(files),
	}
}

func topFilesByChurn(files map[string]*history.FileAggregate) []TopFile {
	rows := make([]TopFile, 0, len(files))

	for path, f := range files {
		rows = append(rows, TopFile{
			Path:      path,
			Revisions: f.Commits,
			Churn:     f.Added + f.Deleted,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Churn != rows[j].Churn {
			return rows[i].Churn > rows[j].Churn
		}

		return rows[i].Path < rows[j].Path
	})

	if len(rows) > topFilesLimit {
		rows = rows[:topFilesLimit]
	}

	return rows
}

// BuildTechnologyStack assembles technology_stack.json from the History
// Analyzer's path-based technology attribution, refined by the code
// counter's per-language line counts where the counter ran.
func BuildTechnologyStack(totals map[string]*history.TechnologyTotals, counted map[string]runners.CodeCounterEntry) TechnologyStackDocument {
	usage := make(map[string]int, len(totals))
	details := make(map[string]TechnologyDetail, len(totals))
	byCategory := map[string]map[string]int{}

	for lang, t := range totals {
		usage[lang] = len(t.Files)

		lines := t.Added + t.Deleted

		if entry, ok := counted[lang]; ok {
			lines = entry.Code
		}

		details[lang] = TechnologyDetail{Files: len(t.Files), Lines: lines}

		category := history.CategoryForLanguage(lang)
		if byCategory[category] == nil {
			byCategory[category] = map[string]int{}
		}

		byCategory[category][lang] += len(t.Files)
	}

	return TechnologyStackDocument{
		OverallTechnologyUsage: usage,
		TechnologyDetails:      details,
		TechnologyByCategory:   byCategory,
	}
}

// BuildRegionalAnalysis assembles regional_analysis.json from the History
// Analyzer's per-region totals.
func BuildRegionalAnalysis(regions map[string]*history.RegionTotals) RegionalAnalysisDocument {
	rows := make([]RegionEntry, 0, len(regions))

	for region, r := range regions {
		rows = append(rows, RegionEntry{
			Region:      region,
			Commits:     r.Commits,
			Added:       r.Added,
			Deleted:     r.Deleted,
			AuthorCount: len(r.Authors),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Region < rows[j].Region })

	return RegionalAnalysisDocument{Regions: rows}
}

// BuildModuleOwnership assembles module_ownership.json: for each file, the
// contributing author with the most commits against it is its owner, and
// ownership share is that author's fraction of the file's total commits.
func BuildModuleOwnership(files map[string]*history.FileAggregate) ModuleOwnershipDocument {
	rows := make([]ModuleOwnershipEntry, 0, len(files))

	for path, f := range files {
		owner, share := FileOwner(f)

		rows = append(rows, ModuleOwnershipEntry{
			Path:         path,
			Commits:      f.Commits,
			Added:        f.Added,
			Deleted:      f.Deleted,
			LastModified: f.LastModified,
			OwnerEmail:   owner,
			OwnerShare:   share,
			Authors:      f.Authors,
			RenamedFrom:  f.RenamedFrom,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })

	return ModuleOwnershipDocument{Files: rows}
}

// FileOwner picks the author with the most commits against f, ties broken
// by lowercased email for determinism. Used both for module_ownership.json
// and to attribute per-file complexity scores to a developer.
func FileOwner(f *history.FileAggregate) (email string, share float64) {
	if f.Commits == 0 || len(f.Authors) == 0 {
		return "", 0
	}

	bestEmail := ""
	bestCommits := -1

	for e, commits := range f.Authors {
		if commits > bestCommits || (commits == bestCommits && e < bestEmail) {
			bestEmail = e
			bestCommits = commits
		}
	}

	return bestEmail, float64(bestCommits) / float64(f.Commits)
}

// BuildOverallSummary assembles overall_summary.json from the History
// Analyzer's summary and the vulnerability scanner's aggregate score
// (zero when the scanner was skipped).
func BuildOverallSummary(summary *history.Summary, securityScore float64) OverallSummaryDocument {
	return OverallSummaryDocument{
		TotalCommits:    totalCommits(summary),
		TotalDevelopers: len(summary.Authors),
		TotalFiles:      len(summary.Files),
		ActiveYears:     summary.ActiveYears,
		SecurityScore:   securityScore,
	}
}

func totalCommits(summary *history.Summary) int {
	var total int

	for _, a := range summary.Authors {
		total += a.Commits
	}

	return total
}
