package runners

import (
	"cmp"
	"slices"
)

// threshold defines a single classification boundary: values >= Limit are
// assigned Label.
type threshold[T cmp.Ordered] struct {
	limit T
	label string
}

// bucketClassifier maps ordered values to string labels using descending
// thresholds, used to bucket complexity scores into low/medium/high/
// very_high.
type bucketClassifier[T cmp.Ordered] struct {
	thresholds   []threshold[T]
	defaultLabel string
}

func newBucketClassifier[T cmp.Ordered](thresholds []threshold[T], defaultLabel string) bucketClassifier[T] {
	sorted := make([]threshold[T], len(thresholds))
	copy(sorted, thresholds)

	slices.SortFunc(sorted, func(a, b threshold[T]) int {
		return cmp.Compare(b.limit, a.limit)
	})

	return bucketClassifier[T]{thresholds: sorted, defaultLabel: defaultLabel}
}

func (c bucketClassifier[T]) classify(value T) string {
	for _, t := range c.thresholds {
		if value >= t.limit {
			return t.label
		}
	}

	return c.defaultLabel
}

// complexityBuckets is the fixed four-way bucketing the complexity
// analyzer's distribution summary requires: low <= 5, medium 6-10, high
// 11-20, very_high > 20.
var complexityBuckets = newBucketClassifier([]threshold[float64]{
	{limit: 21, label: "very_high"},
	{limit: 11, label: "high"},
	{limit: 6, label: "medium"},
}, "low")
