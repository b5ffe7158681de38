package controller

import (
	"strings"
	"time"

	"github.com/forgelens/reposcan/internal/aggregate"
	"github.com/forgelens/reposcan/internal/evolution"
	"github.com/forgelens/reposcan/internal/history"
	"github.com/forgelens/reposcan/internal/ranking"
	"github.com/forgelens/reposcan/internal/runners"
)

// Evolution CSV column names this package reads. Every other column in a
// sub-analysis table is preserved verbatim in the written CSV but is not
// consulted here.
const (
	colEntity        = "entity"
	colRevisions     = "n-revs"
	colAdded         = "added"
	colDeleted       = "deleted"
	colAuthor        = "author"
	colPeer          = "peer"
	colCount         = "count"
	colOwnership     = "ownership"
	colSumOfCoupling = "sum-of-coupling"
	colFragmentation = "fragmentation"
)

// recencyFallbackDays is used when an author's last-seen timestamp fails
// to parse; it places them beyond the recency decay horizon rather than
// crashing the join.
const recencyFallbackDays = 10000.0

// evolutionTables maps each sub-analysis to its parsed table, keeping only
// the ones that ran to completion; a skipped, failed, or timed-out
// sub-analysis simply contributes nothing to the join.
func evolutionTables(results []evolution.SubResult) map[evolution.Analysis]evolution.Table {
	tables := make(map[evolution.Analysis]evolution.Table, len(results))

	for _, r := range results {
		if r.RunnerState == runners.StateOK {
			tables[r.Analysis] = r.Table
		}
	}

	return tables
}

// BuildDeveloperMetrics joins the History Analyzer's per-author totals
// with hotspot, ownership, communication, coupling, and fragmentation
// signals harvested from the Evolution Analyzer Orchestrator's tables, and
// complexity scores attributed through file ownership, into the ranking
// engine's input vector. Evolution tables key authors by display name (the
// codemaat log dialect carries no email); names are resolved back to
// email through the History Analyzer's author set.
func BuildDeveloperMetrics(summary *history.Summary, results []evolution.SubResult, complexity *runners.ComplexitySummary, now time.Time) []ranking.DeveloperMetrics {
	tables := evolutionTables(results)

	hotspot := hotspotWorkByName(tables)
	hotspotFiles := hotspotFilesByName(tables)
	ownership := ownershipByName(tables)
	communication := communicationByName(tables)
	coupling := couplingByName(tables)
	fragmentation := fragmentationByName(tables)
	complexityByEmail := complexityByFileOwnership(summary, complexity)

	metrics := make([]ranking.DeveloperMetrics, 0, len(summary.Authors))

	for email, author := range summary.Authors {
		name := strings.ToLower(author.Name)

		raw := map[string]float64{
			"commits":       float64(author.Commits),
			"churn":         float64(author.Added + author.Deleted),
			"lines_added":   float64(author.Added),
			"lines_deleted": float64(author.Deleted),
			"hotspot_work":  hotspot[name],
			"hotspot_files": hotspotFiles[name],
			"ownership":     ownership[name],
			"communication": communication[name],
			"coupling":      coupling[name],
			"fragmentation": fragmentation[name],
			"complexity":    complexityByEmail[email],
		}

		metrics = append(metrics, ranking.DeveloperMetrics{
			Email:         email,
			Name:          author.Name,
			Commits:       author.Commits,
			Raw:           raw,
			DaysSinceLast: daysSince(author.LastSeen, now),
		})
	}

	return metrics
}

func daysSince(lastSeen string, now time.Time) float64 {
	t, err := time.Parse(time.RFC3339, lastSeen)
	if err != nil {
		return recencyFallbackDays
	}

	return now.Sub(t).Hours() / 24
}

// hotspotWorkByName attributes each entity's (revisions × churn) hotspot
// weight to the entity's main developer by revision count.
func hotspotWorkByName(tables map[evolution.Analysis]evolution.Table) map[string]float64 {
	result := map[string]float64{}

	revisions := tables[evolution.AnalysisRevisions]
	churn := tables[evolution.AnalysisEntityChurn]
	owners := tables[evolution.AnalysisMainDeveloperByRevisions]

	revisionsByEntity := numericColumnByEntity(revisions, colRevisions)
	ownerByEntity := stringColumnByEntity(owners, colAuthor)

	entityIdx := churn.Column(colEntity)
	addedIdx := churn.Column(colAdded)
	deletedIdx := churn.Column(colDeleted)

	if entityIdx < 0 || addedIdx < 0 || deletedIdx < 0 {
		return result
	}

	for _, row := range churn.Rows {
		entity := row[entityIdx].Raw

		owner, ok := ownerByEntity[entity]
		if !ok {
			continue
		}

		weight := revisionsByEntity[entity] * (row[addedIdx].Number + row[deletedIdx].Number)
		result[strings.ToLower(owner)] += weight
	}

	return result
}

// hotspotFilesByName counts, per author, the entities they are the main
// developer of by revision count — the size of each developer's hotspot
// portfolio, as opposed to hotspotWorkByName's churn-weighted score.
func hotspotFilesByName(tables map[evolution.Analysis]evolution.Table) map[string]float64 {
	result := map[string]float64{}

	owners := stringColumnByEntity(tables[evolution.AnalysisMainDeveloperByRevisions], colAuthor)

	for _, owner := range owners {
		result[strings.ToLower(owner)]++
	}

	return result
}

// ownershipByName sums the entity-ownership table's ownership column
// per author across every entity they hold a stake in.
func ownershipByName(tables map[evolution.Analysis]evolution.Table) map[string]float64 {
	return sumNumericColumnByAuthor(tables[evolution.AnalysisEntityOwnership], colAuthor, colOwnership)
}

// communicationByName sums the communication table's count column for
// every row naming the author, in either the "author" or "peer" position.
func communicationByName(tables map[evolution.Analysis]evolution.Table) map[string]float64 {
	result := map[string]float64{}

	table := tables[evolution.AnalysisCommunication]

	authorIdx := table.Column(colAuthor)
	peerIdx := table.Column(colPeer)
	countIdx := table.Column(colCount)

	if authorIdx < 0 || peerIdx < 0 || countIdx < 0 {
		return result
	}

	for _, row := range table.Rows {
		count := row[countIdx].Number
		result[strings.ToLower(row[authorIdx].Raw)] += count
		result[strings.ToLower(row[peerIdx].Raw)] += count
	}

	return result
}

// couplingByName attributes each entity's sum-of-coupling value to its
// main developer by added lines.
func couplingByName(tables map[evolution.Analysis]evolution.Table) map[string]float64 {
	result := map[string]float64{}

	coupling := tables[evolution.AnalysisSumOfCoupling]
	owners := tables[evolution.AnalysisMainDeveloper]

	ownerByEntity := stringColumnByEntity(owners, colAuthor)

	entityIdx := coupling.Column(colEntity)
	valueIdx := coupling.Column(colSumOfCoupling)

	if entityIdx < 0 || valueIdx < 0 {
		return result
	}

	for _, row := range coupling.Rows {
		owner, ok := ownerByEntity[row[entityIdx].Raw]
		if !ok {
			continue
		}

		result[strings.ToLower(owner)] += row[valueIdx].Number
	}

	return result
}

// fragmentationByName reads the fragmentation table directly: it is
// already keyed one row per author.
func fragmentationByName(tables map[evolution.Analysis]evolution.Table) map[string]float64 {
	result := map[string]float64{}

	table := tables[evolution.AnalysisFragmentation]

	authorIdx := table.Column(colAuthor)
	valueIdx := table.Column(colFragmentation)

	if authorIdx < 0 || valueIdx < 0 {
		return result
	}

	for _, row := range table.Rows {
		result[strings.ToLower(row[authorIdx].Raw)] = row[valueIdx].Number
	}

	return result
}

// complexityByFileOwnership attributes each function's complexity to its
// file's main developer (by commit count), summing per developer email —
// the "sum of complexities of functions in files they are the main
// developer of" metric the ranking engine wants.
func complexityByFileOwnership(summary *history.Summary, complexity *runners.ComplexitySummary) map[string]float64 {
	result := map[string]float64{}

	if complexity == nil {
		return result
	}

	for _, fn := range complexity.Functions {
		fileAgg, ok := summary.Files[fn.File]
		if !ok {
			continue
		}

		owner, _ := aggregate.FileOwner(fileAgg)
		if owner == "" {
			continue
		}

		result[owner] += fn.Score
	}

	return result
}

func numericColumnByEntity(table evolution.Table, valueCol string) map[string]float64 {
	result := map[string]float64{}

	entityIdx := table.Column(colEntity)
	valueIdx := table.Column(valueCol)

	if entityIdx < 0 || valueIdx < 0 {
		return result
	}

	for _, row := range table.Rows {
		result[row[entityIdx].Raw] = row[valueIdx].Number
	}

	return result
}

func stringColumnByEntity(table evolution.Table, valueCol string) map[string]string {
	result := map[string]string{}

	entityIdx := table.Column(colEntity)
	valueIdx := table.Column(valueCol)

	if entityIdx < 0 || valueIdx < 0 {
		return result
	}

	for _, row := range table.Rows {
		result[row[entityIdx].Raw] = row[valueIdx].Raw
	}

	return result
}

func sumNumericColumnByAuthor(table evolution.Table, authorCol, valueCol string) map[string]float64 {
	result := map[string]float64{}

	authorIdx := table.Column(authorCol)
	valueIdx := table.Column(valueCol)

	if authorIdx < 0 || valueIdx < 0 {
		return result
	}

	for _, row := range table.Rows {
		result[strings.ToLower(row[authorIdx].Raw)] += row[valueIdx].Number
	}

	return result
}
