package aggregate

import (
	"sort"
	"time"

	"github.com/forgelens/reposcan/internal/classifier"
	"github.com/forgelens/reposcan/internal/history"
	"github.com/forgelens/reposcan/internal/ranking"
	"github.com/forgelens/reposcan/internal/runners"
)

const schemaVersion = 1

// docHeader is embedded in every top-level output document.
type docHeader struct {
	SchemaVersion int    `json:"schema_version"`
	GeneratedAt   string `json:"generated_at"`
	Repository    string `json:"repository"`
}

func newHeader(repository string, generatedAt time.Time) docHeader {
	return docHeader{
		SchemaVersion: schemaVersion,
		GeneratedAt:   generatedAt.UTC().Format(time.RFC3339),
		Repository:    repository,
	}
}

// TopFile is one row of commit_analysis.json's top_files list.
type TopFile struct {
	Path      string `json:"path"`
	Revisions int    `json:"revisions"`
	Churn     int    `json:"churn"`
}

// CommitAnalysisDocument is commit_analysis.json, with schema
// verbatim: {total_commits, commits_by_month, classification,
// top_files}.
type CommitAnalysisDocument struct {
	docHeader
	TotalCommits   int                         `json:"total_commits"`
	CommitsByMonth map[string]int              `json:"commits_by_month"`
	Classification map[classifier.Category]int `json:"classification"`
	// The per-author and per-month cuts of the same classification.
	ClassificationByAuthor map[string]classifier.Counts `json:"classification_by_author,omitempty"`
	ClassificationByMonth  map[string]classifier.Counts `json:"classification_by_month,omitempty"`
	TopFiles               []TopFile                    `json:"top_files"`
}

// DeveloperContribution is one row of developer_contributions.json.
type DeveloperContribution struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Commits   int    `json:"commits"`
	Added     int    `json:"lines_added"`
	Deleted   int    `json:"lines_deleted"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
	Region    string `json:"region"`
	IsCompany bool   `json:"is_company"`
}

// DeveloperContributionsDocument is developer_contributions.json.
type DeveloperContributionsDocument struct {
	docHeader
	Developers []DeveloperContribution `json:"developers"`
}

// TechnologyDetail is one entry of technology_stack.json's
// technology_details map.
type TechnologyDetail struct {
	Files int `json:"files"`
	Lines int `json:"lines"`
}

// TechnologyStackDocument is technology_stack.json, with schema
// verbatim: {overall_technology_usage, technology_details,
// technology_by_category}.
type TechnologyStackDocument struct {
	docHeader
	OverallTechnologyUsage map[string]int                `json:"overall_technology_usage"`
	TechnologyDetails      map[string]TechnologyDetail    `json:"technology_details"`
	TechnologyByCategory   map[string]map[string]int      `json:"technology_by_category"`
}

// RegionalAnalysisDocument is regional_analysis.json.
type RegionalAnalysisDocument struct {
	docHeader
	Regions []RegionEntry `json:"regions"`
}

// RegionEntry is one row of regional_analysis.json.
type RegionEntry struct {
	Region      string `json:"region"`
	Commits     int    `json:"commits"`
	Added       int    `json:"lines_added"`
	Deleted     int    `json:"lines_deleted"`
	AuthorCount int    `json:"author_count"`
}

// ModuleOwnershipEntry is one row of module_ownership.json.
type ModuleOwnershipEntry struct {
	Path         string         `json:"path"`
	Commits      int            `json:"commits"`
	Added        int            `json:"lines_added"`
	Deleted      int            `json:"lines_deleted"`
	LastModified string         `json:"last_modified"`
	OwnerEmail   string         `json:"owner_email"`
	OwnerShare   float64        `json:"owner_share"`
	Authors      map[string]int `json:"authors"`
	RenamedFrom  string         `json:"renamed_from,omitempty"`
}

// ModuleOwnershipDocument is module_ownership.json.
type ModuleOwnershipDocument struct {
	docHeader
	Files []ModuleOwnershipEntry `json:"files"`
}

// OverallSummaryDocument is overall_summary.json.
type OverallSummaryDocument struct {
	docHeader
	TotalCommits    int      `json:"total_commits"`
	TotalDevelopers int      `json:"total_developers"`
	TotalFiles      int      `json:"total_files"`
	ActiveYears     []string `json:"active_years"`
	SecurityScore   float64  `json:"security_score,omitempty"`
}

// DeveloperRankingEntry is one entry of developer_rankings.json's rankings
// list, matching schema verbatim: {rank, developer, email,
// weighted_score, metrics, normalized_scores}.
type DeveloperRankingEntry struct {
	Rank            int                `json:"rank"`
	Developer       string             `json:"developer"`
	Email           string             `json:"email"`
	WeightedScore   float64            `json:"weighted_score"`
	Metrics         map[string]float64 `json:"metrics"`
	NormalizedScores map[string]float64 `json:"normalized_scores"`
}

// DeveloperRankingsDocument is developer_rankings.json, with schema
// verbatim: {weights, total_developers, rankings}.
type DeveloperRankingsDocument struct {
	docHeader
	Weights         map[string]float64      `json:"weights"`
	TotalDevelopers int                     `json:"total_developers"`
	Rankings        []DeveloperRankingEntry `json:"rankings"`
}

// VulnerabilitiesDocument is vulnerabilities.json.
type VulnerabilitiesDocument struct {
	docHeader
	Findings      []runners.Finding `json:"findings"`
	SecurityScore float64           `json:"security_score"`
}

// ComplexityDocument is complexity.json.
type ComplexityDocument struct {
	docHeader
	Distribution map[string]int               `json:"distribution"`
	Functions    []runners.FunctionComplexity `json:"functions"`
}

// ManifestStage is one stage's outcome entry in manifest.json.
type ManifestStage struct {
	Stage    string        `json:"stage"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ManifestDocument is manifest.json: the pipeline controller's run record.
type ManifestDocument struct {
	docHeader
	Stages      []ManifestStage `json:"stages"`
	ParseErrors map[string]int  `json:"parse_errors,omitempty"`
	ExitCode    int             `json:"exit_code"`
}

// BuildDeveloperContributions converts a history.Summary into the document
// row shape, sorted by email for deterministic output.
func BuildDeveloperContributions(summary *history.Summary) []DeveloperContribution {
	rows := make([]DeveloperContribution, 0, len(summary.Authors))

	for _, a := range summary.Authors {
		rows = append(rows, DeveloperContribution{
			Email:     a.Email,
			Name:      a.Name,
			Commits:   a.Commits,
			Added:     a.Added,
			Deleted:   a.Deleted,
			FirstSeen: a.FirstSeen,
			LastSeen:  a.LastSeen,
			Region:    a.Region,
			IsCompany: a.IsCompany,
		})
	}

	sortContributions(rows)

	return rows
}

// BuildRankings converts ranking.Rank's output into document rows.
func BuildRankings(ranked []ranking.Ranked) []DeveloperRankingEntry {
	rows := make([]DeveloperRankingEntry, 0, len(ranked))

	for _, r := range ranked {
		rows = append(rows, DeveloperRankingEntry{
			Rank:             r.Rank,
			Developer:        r.Name,
			Email:            r.Email,
			WeightedScore:    r.Composite,
			Metrics:          r.Raw,
			NormalizedScores: r.Normalized,
		})
	}

	return rows
}

func sortContributions(rows []DeveloperContribution) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Email < rows[j].Email
	})
}
