package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `commit aaa111 2024-01-05T10:00:00+00:00 Ada Lovelace ada@example.com
add entry point
1	0	main.go
commit bbb222 2024-02-10T11:30:00+00:00 Grace Hopper grace@example.de
implement feature
5	1	main.go
-	-	logo.png
2	0	vendor/lib/helper.go
commit ccc333 2024-02-11T09:00:00+00:00 Ada Lovelace ada@example.com
Merge branch 'feature'
`

func TestParseFullHistoryOrdersChronologically(t *testing.T) {
	commits := ParseFullHistory([]byte(sampleLog))

	require.Len(t, commits, 3)
	assert.Equal(t, "aaa111", commits[0].Hash)
	assert.Equal(t, "bbb222", commits[1].Hash)
	assert.Equal(t, "ccc333", commits[2].Hash)
	assert.True(t, commits[2].IsMerge())
}

func TestParseFullHistoryCapturesChurnAndBinary(t *testing.T) {
	commits := ParseFullHistory([]byte(sampleLog))

	second := commits[1]
	require.Len(t, second.Changes, 3)

	added, deleted := second.Churn()
	assert.Equal(t, 7, added)
	assert.Equal(t, 1, deleted)
	assert.True(t, second.Changes[1].Binary)
}

func TestSplitRenamePathHandlesBraceForm(t *testing.T) {
	oldPath, newPath, renamed := splitRenamePath("pkg/{old => new}/file.go")

	require.True(t, renamed)
	assert.Equal(t, "pkg/old/file.go", oldPath)
	assert.Equal(t, "pkg/new/file.go", newPath)
}

func TestSplitRenamePathHandlesFullPathForm(t *testing.T) {
	oldPath, newPath, renamed := splitRenamePath("a/b.go => c/d.go")

	require.True(t, renamed)
	assert.Equal(t, "a/b.go", oldPath)
	assert.Equal(t, "c/d.go", newPath)
}

func TestParseFullHistoryEmitsTwoEntriesForRename(t *testing.T) {
	const renameLog = `commit ddd444 2024-04-01T00:00:00+00:00 Ada Lovelace ada@example.com
rename module entry point
3	1	old/path.js => new/path.js
`

	commits := ParseFullHistory([]byte(renameLog))
	require.Len(t, commits, 1)
	require.Len(t, commits[0].Changes, 2)

	oldEntry, newEntry := commits[0].Changes[0], commits[0].Changes[1]
	assert.Equal(t, "old/path.js", oldEntry.Path)
	assert.Equal(t, "old/path.js", oldEntry.OldPath)
	assert.Equal(t, 0, oldEntry.Added+oldEntry.Deleted)

	assert.Equal(t, "new/path.js", newEntry.Path)
	assert.Equal(t, "old/path.js", newEntry.OldPath)
	assert.Equal(t, 3, newEntry.Added)
	assert.Equal(t, 1, newEntry.Deleted)

	summary := Aggregate(commits, nil, nil, nil)

	oldFile := summary.Files["old/path.js"]
	require.NotNil(t, oldFile)
	assert.Equal(t, 1, oldFile.Commits)

	newFile := summary.Files["new/path.js"]
	require.NotNil(t, newFile)
	assert.Equal(t, 1, newFile.Commits)
	assert.Equal(t, "old/path.js", newFile.RenamedFrom)
}

func TestAggregateDerivesActiveYearsFromDataOnly(t *testing.T) {
	commits := ParseFullHistory([]byte(sampleLog))

	summary := Aggregate(commits, map[string]string{".de": "Europe"}, nil, nil)

	assert.Equal(t, []string{"2024"}, summary.ActiveYears)
	assert.Equal(t, 1, summary.MergeCommits)

	ada := summary.Authors["ada@example.com"]
	require.NotNil(t, ada)
	assert.Equal(t, 2, ada.Commits)
	assert.Equal(t, "Unknown", ada.Region)

	grace := summary.Authors["grace@example.com"]
	require.NotNil(t, grace)
	assert.Equal(t, "Europe", grace.Region)
}

func TestAggregateRespectsIgnorePatterns(t *testing.T) {
	commits := ParseFullHistory([]byte(sampleLog))

	withoutIgnore := Aggregate(commits, nil, nil, nil)
	_, touchedWithoutIgnore := withoutIgnore.Files["vendor/lib/helper.go"]
	assert.True(t, touchedWithoutIgnore)

	withIgnore := Aggregate(commits, nil, nil, []string{"vendor/**"})
	_, touchedWithIgnore := withIgnore.Files["vendor/lib/helper.go"]
	assert.False(t, touchedWithIgnore)
}

func TestAggregateFillsMonthlyGaps(t *testing.T) {
	const sparseLog = `commit aaa111 2024-01-05T10:00:00+00:00 Ada Lovelace ada@example.com
one
1	0	main.go
commit bbb222 2024-03-10T11:30:00+00:00 Ada Lovelace ada@example.com
two
1	0	main.go
`

	commits := ParseFullHistory([]byte(sparseLog))
	summary := Aggregate(commits, nil, nil, nil)

	assert.Equal(t, 1, summary.MonthlyCommits["2024-01"])
	assert.Equal(t, 0, summary.MonthlyCommits["2024-02"])
	assert.Equal(t, 1, summary.MonthlyCommits["2024-03"])
}

func TestIsCompanyEmail(t *testing.T) {
	assert.True(t, IsCompanyEmail("dev@corp.example", []string{"corp.example"}))
	assert.False(t, IsCompanyEmail("dev@other.example", []string{"corp.example"}))
	assert.False(t, IsCompanyEmail("dev@corp.example", nil))
}

func TestTechnologyStackAttributesByExtension(t *testing.T) {
	commits := ParseFullHistory([]byte(sampleLog))

	totals := TechnologyStack(commits, nil)

	var found bool

	for lang, t2 := range totals {
		if lang == "go" {
			found = true
			assert.Contains(t, t2.Files, "main.go")
		}
	}

	assert.True(t, found, "expected the \"go\" tag to be detected from main.go")
}
