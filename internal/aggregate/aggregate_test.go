package aggregate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgelens/reposcan/internal/evolution"
	"github.com/forgelens/reposcan/internal/history"
	"github.com/forgelens/reposcan/internal/ranking"
	"github.com/forgelens/reposcan/internal/runners"
)

func TestWriteJSONAtomicRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	doc := OverallSummaryDocument{
		docHeader:    newHeader("myrepo", time.Now()),
		TotalCommits: 5,
	}

	require.NoError(t, WriteJSONAtomic(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_commits": 5`)
	assert.Contains(t, string(data), `"repository": "myrepo"`)
}

func TestWriteAtomicLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	require.NoError(t, WriteAtomic(path, []byte("hello")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.bin", entries[0].Name())
}

func TestEncodeCSVRoundTripsEmptyTable(t *testing.T) {
	buf, err := encodeCSV(evolution.Table{})

	require.NoError(t, err)
	assert.Empty(t, buf)
}

func TestEncodeCSVWritesHeaderAndRows(t *testing.T) {
	table := evolution.ParseCSV([]byte("entity,n-revs\nmain.go,4\n"))

	buf, err := encodeCSV(table)

	require.NoError(t, err)
	assert.Contains(t, string(buf), "entity,n-revs")
	assert.Contains(t, string(buf), "main.go,4")
}

func TestWriteDiagnosticsOneFilePerInvocation(t *testing.T) {
	root := t.TempDir()

	diags := map[string]runners.Diagnostics{
		"code-counter":        {Tool: "code-counter", ExitCode: 0},
		"evolution-revisions": {Tool: "revisions", ExitCode: 1, Note: "boom"},
	}

	require.NoError(t, writeDiagnostics(root, diags))

	for _, name := range []string{"code-counter.json", "evolution-revisions.json"} {
		data, err := os.ReadFile(filepath.Join(root, DirDiagnostics, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"exit_code"`)
	}
}

func TestBuildDeveloperContributionsSortsByEmail(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"z@example.com": {Email: "z@example.com", Name: "Zed", Commits: 1},
			"a@example.com": {Email: "a@example.com", Name: "Ada", Commits: 2},
		},
	}

	rows := BuildDeveloperContributions(summary)

	require.Len(t, rows, 2)
	assert.Equal(t, "a@example.com", rows[0].Email)
	assert.Equal(t, "z@example.com", rows[1].Email)
}

func TestCombinedRankingsReRanksAcrossRepos(t *testing.T) {
	perRepo := map[string][]ranking.DeveloperMetrics{
		"repo1": {{Email: "a@example.com", Name: "Ada", Commits: 3, Raw: map[string]float64{"commits": 3}}},
		"repo2": {{Email: "a@example.com", Name: "Ada", Commits: 4, Raw: map[string]float64{"commits": 4}}},
	}

	rows := CombinedRankings(perRepo, map[string]float64{"commits": 1.0})

	require.Len(t, rows, 1)
	assert.Equal(t, 7.0, rows[0].Metrics["commits"])
	assert.Equal(t, 1, rows[0].Rank)
}
