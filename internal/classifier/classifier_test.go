package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPriorityOrder(t *testing.T) {
	cases := []struct {
		subject string
		want    Category
	}{
		{"Merge branch 'fix-bug' into main", CategoryMerge},
		{"fix: resolve crash in test suite", CategoryBug},
		{"add tests for the payment flow", CategoryTest},
		{"update README with install steps", CategoryDocs},
		{"refactor the ranking engine", CategoryRefactor},
		{"bump golang.org/x/sync to v0.8.0", CategoryChore},
		{"implement developer ranking", CategoryFeature},
		{"initial commit", CategoryFeature},
		{"tweak spacing in header", CategoryFeature},
		{"", CategoryOther},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.subject), tc.subject)
	}
}

func TestAggregateBreaksDownByAuthorAndMonth(t *testing.T) {
	records := []Record{
		{Hash: "a", Date: "2024-01-05T10:00:00+00:00", Email: "ada@example.com", Subject: "fix crash"},
		{Hash: "b", Date: "2024-01-20T10:00:00+00:00", Email: "ada@example.com", Subject: "add feature"},
		{Hash: "c", Date: "2024-02-01T10:00:00+00:00", Email: "grace@example.com", Subject: "fix leak"},
	}

	categories := make([]Category, len(records))
	for i, r := range records {
		categories[i] = Classify(r.Subject)
	}

	b := Aggregate(records, categories)

	assert.Equal(t, 2, b.ByCategory[CategoryBug])
	assert.Equal(t, 1, b.ByAuthor["ada@example.com"][CategoryBug])
	assert.Equal(t, 1, b.ByAuthor["ada@example.com"][CategoryFeature])
	assert.Equal(t, 1, b.ByAuthor["grace@example.com"][CategoryBug])
	assert.Equal(t, 2, sumCounts(b.ByMonth["2024-01"]))
	assert.Equal(t, 1, sumCounts(b.ByMonth["2024-02"]))
}

func sumCounts(c Counts) int {
	var total int
	for _, n := range c {
		total += n
	}

	return total
}

func TestClassifyAllTallies(t *testing.T) {
	counts := ClassifyAll([]string{
		"Merge pull request #1",
		"fix null pointer",
		"fix another bug",
		"misc change",
	})

	assert.Equal(t, 1, counts[CategoryMerge])
	assert.Equal(t, 2, counts[CategoryBug])
	assert.Equal(t, 1, counts[CategoryFeature])
}
