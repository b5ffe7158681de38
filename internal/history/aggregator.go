package history

import (
	"sort"
	"strings"
	"time"

	"github.com/forgelens/reposcan/internal/model"
)

// AuthorAggregate is the per-developer rollup feeding both
// developer_contributions.json and the Developer Ranking Engine's "history"
// metric family.
type AuthorAggregate struct {
	Name       string
	Email      string
	Commits    int
	Added      int
	Deleted    int
	FirstSeen  string // RFC3339
	LastSeen   string // RFC3339
	Region     string
	IsCompany  bool
	FilesTouched map[string]struct{}
}

// FileAggregate is the per-file rollup feeding module_ownership.json.
type FileAggregate struct {
	Path         string
	Commits      int
	Added        int
	Deleted      int
	LastModified string // RFC3339
	Authors      map[string]int // email -> commits touching this file
	RenamedFrom  string         // set when this path was reached via a rename; the prior path
}

// RegionTotals is one region's slice of the regional_analysis.json output.
type RegionTotals struct {
	Region  string
	Commits int
	Added   int
	Deleted int
	Authors map[string]struct{}
}

// Summary is the complete History Analyzer result for one repository.
type Summary struct {
	Authors     map[string]*AuthorAggregate // keyed by lowercased email
	Files       map[string]*FileAggregate   // keyed by path
	Regions     map[string]*RegionTotals    // keyed by region name
	MonthlyCommits map[string]int           // "YYYY-MM" -> commit count
	ActiveYears []string                    // sorted, derived purely from commit dates
	MergeCommits int
	EmptyCommits int
}

// Aggregate builds the full History Analyzer summary from parsed commits.
// Active years are derived strictly from the commit timestamps present in
// the data.
func Aggregate(commits []model.Commit, regions map[string]string, companyDomains []string, ignore []string) *Summary {
	summary := &Summary{
		Authors:        map[string]*AuthorAggregate{},
		Files:          map[string]*FileAggregate{},
		Regions:        map[string]*RegionTotals{},
		MonthlyCommits: map[string]int{},
	}

	yearSet := map[string]struct{}{}

	for _, c := range commits {
		if c.IsMerge() {
			summary.MergeCommits++
		}

		added, deleted := c.Churn()
		if len(c.Changes) == 0 {
			summary.EmptyCommits++
		}

		email := strings.ToLower(c.AuthorEmail)

		author, ok := summary.Authors[email]
		if !ok {
			author = &AuthorAggregate{
				Name:         c.AuthorName,
				Email:        email,
				Region:       RegionForEmail(email, regions),
				IsCompany:    IsCompanyEmail(email, companyDomains),
				FilesTouched: map[string]struct{}{},
				FirstSeen:    c.AuthoredAt.Format(rfc3339),
			}
			summary.Authors[email] = author
		}

		author.Commits++
		author.Added += added
		author.Deleted += deleted
		author.LastSeen = c.AuthoredAt.Format(rfc3339)

		region, ok := summary.Regions[author.Region]
		if !ok {
			region = &RegionTotals{Region: author.Region, Authors: map[string]struct{}{}}
			summary.Regions[author.Region] = region
		}

		region.Commits++
		region.Added += added
		region.Deleted += deleted
		region.Authors[email] = struct{}{}

		if !c.AuthoredAt.IsZero() {
			yearSet[c.AuthoredAt.Format("2006")] = struct{}{}
			summary.MonthlyCommits[c.AuthoredAt.Format("2006-01")]++
		}

		for _, fc := range c.Changes {
			if isIgnored(fc.Path, ignore) {
				continue
			}

			author.FilesTouched[fc.Path] = struct{}{}

			file, ok := summary.Files[fc.Path]
			if !ok {
				file = &FileAggregate{Path: fc.Path, Authors: map[string]int{}}
				summary.Files[fc.Path] = file
			}

			if fc.Kind == model.ChangeRename && fc.OldPath != "" && fc.OldPath != fc.Path {
				file.RenamedFrom = fc.OldPath
			}

			// Binary files still count toward revisions; they contribute
			// zero churn since fc.Added/fc.Deleted are left at zero for
			// them by the parser.
			file.Commits++
			file.Added += fc.Added
			file.Deleted += fc.Deleted
			file.LastModified = c.AuthoredAt.Format(rfc3339)
			file.Authors[email]++
		}
	}

	summary.ActiveYears = make([]string, 0, len(yearSet))
	for y := range yearSet {
		summary.ActiveYears = append(summary.ActiveYears, y)
	}

	sort.Strings(summary.ActiveYears)

	fillMonthlyGaps(summary.MonthlyCommits)

	return summary
}

const (
	rfc3339    = "2006-01-02T15:04:05Z07:00"
	monthLayout = "2006-01"
)

// fillMonthlyGaps ensures commits_by_month has an entry, possibly zero, for
// every month between the earliest and latest month already present
// (inclusive): a repository with activity in January and March of
// the same year must still record a zero entry for February rather than
// omitting it.
func fillMonthlyGaps(monthly map[string]int) {
	if len(monthly) == 0 {
		return
	}

	var first, last time.Time

	for key := range monthly {
		month, err := time.Parse(monthLayout, key)
		if err != nil {
			continue
		}

		if first.IsZero() || month.Before(first) {
			first = month
		}

		if last.IsZero() || month.After(last) {
			last = month
		}
	}

	if first.IsZero() || last.IsZero() {
		return
	}

	for cursor := first; !cursor.After(last); cursor = cursor.AddDate(0, 1, 0) {
		key := cursor.Format(monthLayout)
		if _, ok := monthly[key]; !ok {
			monthly[key] = 0
		}
	}
}
