package controller

import (
	"strings"
	"testing"
	"time"

	"github.com/forgelens/reposcan/internal/evolution"
	"github.com/forgelens/reposcan/internal/history"
	"github.com/forgelens/reposcan/internal/runners"
)

func csvTable(t *testing.T, lines ...string) evolution.Table {
	t.Helper()

	return evolution.ParseCSV([]byte(strings.Join(lines, "\n")))
}

func subResult(analysis evolution.Analysis, table evolution.Table) evolution.SubResult {
	return evolution.SubResult{Analysis: analysis, Table: table, RunnerState: runners.StateOK}
}

func TestBuildDeveloperMetricsJoinsHotspotWorkByMainDeveloper(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"ada@example.com": {Name: "Ada Lovelace", Email: "ada@example.com", Commits: 10, LastSeen: "2026-07-01T00:00:00Z"},
		},
		Files: map[string]*history.FileAggregate{},
	}

	results := []evolution.SubResult{
		subResult(evolution.AnalysisRevisions, csvTable(t, "entity,n-revs", "src/main.go,4")),
		subResult(evolution.AnalysisEntityChurn, csvTable(t, "entity,added,deleted", "src/main.go,100,20")),
		subResult(evolution.AnalysisMainDeveloperByRevisions, csvTable(t, "entity,author,ownership", "src/main.go,Ada Lovelace,0.9")),
	}

	metrics := BuildDeveloperMetrics(summary, results, nil, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))

	if len(metrics) != 1 {
		t.Fatalf("expected 1 developer, got %d", len(metrics))
	}

	got := metrics[0].Raw["hotspot_work"]
	want := 4.0 * (100 + 20)

	if got != want {
		t.Fatalf("hotspot_work = %v, want %v", got, want)
	}
}

func TestBuildDeveloperMetricsIgnoresEntitiesWithUnknownOwner(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"ada@example.com": {Name: "Ada Lovelace", Commits: 1, LastSeen: "2026-07-01T00:00:00Z"},
		},
		Files: map[string]*history.FileAggregate{},
	}

	results := []evolution.SubResult{
		subResult(evolution.AnalysisRevisions, csvTable(t, "entity,n-revs", "orphan.go,9")),
		subResult(evolution.AnalysisEntityChurn, csvTable(t, "entity,added,deleted", "orphan.go,50,0")),
		subResult(evolution.AnalysisMainDeveloperByRevisions, csvTable(t, "entity,author", "")),
	}

	metrics := BuildDeveloperMetrics(summary, results, nil, time.Now())

	if metrics[0].Raw["hotspot_work"] != 0 {
		t.Fatalf("expected no hotspot_work credit for an entity with no recorded owner, got %v", metrics[0].Raw["hotspot_work"])
	}
}

func TestBuildDeveloperMetricsCountsHotspotFiles(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"ada@example.com": {Name: "Ada Lovelace", Email: "ada@example.com", Commits: 5, Added: 30, Deleted: 10, LastSeen: "2026-07-01T00:00:00Z"},
		},
		Files: map[string]*history.FileAggregate{},
	}

	results := []evolution.SubResult{
		subResult(evolution.AnalysisMainDeveloperByRevisions, csvTable(t,
			"entity,author", "src/main.go,Ada Lovelace", "src/util.go,Ada Lovelace", "docs/readme.md,Someone Else")),
	}

	metrics := BuildDeveloperMetrics(summary, results, nil, time.Now())

	if metrics[0].Raw["hotspot_files"] != 2 {
		t.Fatalf("hotspot_files = %v, want 2", metrics[0].Raw["hotspot_files"])
	}

	if metrics[0].Raw["lines_added"] != 30 || metrics[0].Raw["lines_deleted"] != 10 {
		t.Fatalf("lines_added/deleted = %v/%v, want 30/10",
			metrics[0].Raw["lines_added"], metrics[0].Raw["lines_deleted"])
	}
}

func TestBuildDeveloperMetricsCommunicationCountsBothSides(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"ada@example.com":  {Name: "Ada Lovelace", Commits: 1, LastSeen: "2026-07-01T00:00:00Z"},
			"grace@example.com": {Name: "Grace Hopper", Commits: 1, LastSeen: "2026-07-01T00:00:00Z"},
		},
		Files: map[string]*history.FileAggregate{},
	}

	results := []evolution.SubResult{
		subResult(evolution.AnalysisCommunication, csvTable(t, "author,peer,count", "Ada Lovelace,Grace Hopper,7")),
	}

	metrics := BuildDeveloperMetrics(summary, results, nil, time.Now())

	byEmail := map[string]float64{}
	for _, m := range metrics {
		byEmail[m.Email] = m.Raw["communication"]
	}

	if byEmail["ada@example.com"] != 7 || byEmail["grace@example.com"] != 7 {
		t.Fatalf("expected both sides of the communication pair credited 7, got %+v", byEmail)
	}
}

func TestBuildDeveloperMetricsFragmentationReadDirectly(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"ada@example.com": {Name: "Ada Lovelace", Commits: 1, LastSeen: "2026-07-01T00:00:00Z"},
		},
		Files: map[string]*history.FileAggregate{},
	}

	results := []evolution.SubResult{
		subResult(evolution.AnalysisFragmentation, csvTable(t, "author,fragmentation", "Ada Lovelace,0.42")),
	}

	metrics := BuildDeveloperMetrics(summary, results, nil, time.Now())

	if metrics[0].Raw["fragmentation"] != 0.42 {
		t.Fatalf("fragmentation = %v, want 0.42", metrics[0].Raw["fragmentation"])
	}
}

func TestBuildDeveloperMetricsComplexityAttributedByFileOwnership(t *testing.T) {
	summary := &history.Summary{
		Authors: map[string]*history.AuthorAggregate{
			"ada@example.com": {Name: "Ada Lovelace", Commits: 1, LastSeen: "2026-07-01T00:00:00Z"},
		},
		Files: map[string]*history.FileAggregate{
			"src/main.go": {
				Commits: 3,
				Authors: map[string]int{"ada@example.com": 3},
			},
		},
	}

	complexity := &runners.ComplexitySummary{
		Functions: []runners.FunctionComplexity{
			{File: "src/main.go", Function: "main", Score: 4},
			{File: "src/main.go", Function: "helper", Score: 6},
		},
	}

	metrics := BuildDeveloperMetrics(summary, nil, complexity, time.Now())

	if metrics[0].Raw["complexity"] != 10 {
		t.Fatalf("complexity = %v, want sum of 4 and 6 = 10", metrics[0].Raw["complexity"])
	}
}

func TestDaysSinceFallsBackOnUnparsableTimestamp(t *testing.T) {
	got := daysSince("not-a-timestamp", time.Now())

	if got != recencyFallbackDays {
		t.Fatalf("daysSince = %v, want fallback %v", got, recencyFallbackDays)
	}
}
