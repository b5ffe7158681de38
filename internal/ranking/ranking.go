// Package ranking implements the Developer Ranking Engine:
// it joins per-developer metrics from every upstream stage by lowercased
// email, normalizes each metric to a 0-100 scale, and computes a weighted
// composite score.
package ranking

import (
	"sort"
	"strings"
)

// recencyHalfLifeDays is the linear-decay horizon: 100 at zero days since
// the developer's last commit, 0 at or beyond this many days.
const recencyHalfLifeDays = 730.0

// DeveloperMetrics is one developer's raw, unnormalized inputs, joined
// across history, evolution, and complexity stages by lowercased email.
// Raw holds every dimension except "recency", which uses DaysSinceLast
// instead of a max-normalized raw value.
type DeveloperMetrics struct {
	Email         string
	Name          string
	Commits       int // ranking tie-breaker
	Raw           map[string]float64
	DaysSinceLast float64
}

// Ranked is one developer's final position in the ranking.
type Ranked struct {
	Email      string
	Name       string
	Commits    int
	Raw        map[string]float64
	Normalized map[string]float64
	Composite  float64
	Rank       int
}

// Rank normalizes every developer's metrics, computes the weighted
// composite, and orders the result by composite score descending, with
// ties broken by commit count descending then email ascending.
func Rank(devs []DeveloperMetrics, weights map[string]float64) []Ranked {
	maxByDimension := map[string]float64{}

	for _, d := range devs {
		for dim, value := range d.Raw {
			if value > maxByDimension[dim] {
				maxByDimension[dim] = value
			}
		}
	}

	ranked := make([]Ranked, 0, len(devs))

	for _, d := range devs {
		raw := make(map[string]float64, len(d.Raw)+1)
		normalized := make(map[string]float64, len(d.Raw)+1)

		for dim, value := range d.Raw {
			raw[dim] = value

			max := maxByDimension[dim]
			if max == 0 {
				normalized[dim] = 0
			} else {
				normalized[dim] = 100 * value / max
			}
		}

		// Recency is already a 0-100 decay score rather than a
		// max-normalized dimension; it appears identically in both vectors.
		recency := recencyScore(d.DaysSinceLast)
		raw["recency"] = recency
		normalized["recency"] = recency

		var composite float64

		for dim, weight := range weights {
			composite += weight * normalized[dim]
		}

		ranked = append(ranked, Ranked{
			Email:      normalizeEmail(d.Email),
			Name:       d.Name,
			Commits:    d.Commits,
			Raw:        raw,
			Normalized: normalized,
			Composite:  composite,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}

		if ranked[i].Commits != ranked[j].Commits {
			return ranked[i].Commits > ranked[j].Commits
		}

		return ranked[i].Email < ranked[j].Email
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// normalizeEmail is the single canonicalization point for joining
// developer identities across stages.
func normalizeEmail(email string) string {
	return strings.ToLower(email)
}

// recencyScore computes the linear-decay recency score: 100 at zero days
// since the developer's last commit, 0 at or beyond recencyHalfLifeDays,
// clamped at both ends.
func recencyScore(daysSinceLast float64) float64 {
	if daysSinceLast <= 0 {
		return 100
	}

	if daysSinceLast >= recencyHalfLifeDays {
		return 0
	}

	return 100 * (1 - daysSinceLast/recencyHalfLifeDays)
}
