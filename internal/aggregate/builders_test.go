package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgelens/reposcan/internal/history"
)

func TestBuildModuleOwnershipPicksMostCommitsAsOwner(t *testing.T) {
	files := map[string]*history.FileAggregate{
		"src/main.go": {
			Path:         "src/main.go",
			Commits:      5,
			Added:        40,
			Deleted:      10,
			LastModified: "2024-01-01T00:00:00Z",
			Authors: map[string]int{
				"ada@example.com": 3,
				"zed@example.com": 2,
			},
		},
	}

	doc := BuildModuleOwnership(files)

	require.Len(t, doc.Files, 1)
	assert.Equal(t, "ada@example.com", doc.Files[0].OwnerEmail)
	assert.InDelta(t, 0.6, doc.Files[0].OwnerShare, 1e-9)
}

func TestBuildModuleOwnershipTiesBrokenByEmail(t *testing.T) {
	files := map[string]*history.FileAggregate{
		"src/a.go": {
			Path:    "src/a.go",
			Commits: 2,
			Authors: map[string]int{
				"zed@example.com": 1,
				"ada@example.com": 1,
			},
		},
	}

	doc := BuildModuleOwnership(files)

	require.Len(t, doc.Files, 1)
	assert.Equal(t, "ada@example.com", doc.Files[0].OwnerEmail)
}

func TestTopFilesByChurnOrdersDescendingAndLimits(t *testing.T) {
	files := map[string]*history.FileAggregate{
		"a.go": {Path: "a.go", Commits: 1, Added: 10, Deleted: 0},
		"b.go": {Path: "b.go", Commits: 1, Added: 100, Deleted: 0},
		"c.go": {Path: "c.go", Commits: 1, Added: 5, Deleted: 0},
	}

	rows := topFilesByChurn(files)

	require.Len(t, rows, 3)
	assert.Equal(t, "b.go", rows[0].Path)
	assert.Equal(t, "a.go", rows[1].Path)
	assert.Equal(t, "c.go", rows[2].Path)
}

func TestBuildOverallSummarySumsAuthorCommits(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"a@example.com": {Commits: 3},
			"b@example.com": {Commits: 4},
		},
		Files:       map[string]*history.FileAggregate{"x.go": {}},
		ActiveYears: []string{"2023", "2024"},
	}

	doc := BuildOverallSummary(summary, 2.5)

	assert.Equal(t, 7, doc.TotalCommits)
	assert.Equal(t, 2, doc.TotalDevelopers)
	assert.Equal(t, 1, doc.TotalFiles)
	assert.Equal(t, []string{"2023", "2024"}, doc.ActiveYears)
	assert.InDelta(t, 2.5, doc.SecurityScore, 1e-9)
}

func TestBuildRegionalAnalysisSortsByRegion(t *testing.T) {
	regions := map[string]*history.RegionTotals{
		"Unknown": {Region: "Unknown", Commits: 1, Authors: map[string]struct{}{"a@example.com": {}}},
		"Europe":  {Region: "Europe", Commits: 2, Authors: map[string]struct{}{"b@example.com": {}}},
	}

	doc := BuildRegionalAnalysis(regions)

	require.Len(t, doc.Regions, 2)
	assert.Equal(t, "Europe", doc.Regions[0].Region)
	assert.Equal(t, "Unknown", doc.Regions[1].Region)
}
