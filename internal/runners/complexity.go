package runners

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FunctionComplexity is one function's complexity score, as reported by
// the complexity analyzer.
type FunctionComplexity struct {
	File     string  `json:"file"`
	Function string  `json:"function"`
	Score    float64 `json:"score"`
}

// complexityDocument is the raw shape the complexity analyzer emits:
// summary statistics plus a per-function list.
type complexityDocument struct {
	Functions []FunctionComplexity `json:"functions"`
}

// ComplexitySummary is the parsed, bucketed result handed to the
// aggregator and the Developer Ranking Engine's "complexity" metric.
type ComplexitySummary struct {
	Functions    []FunctionComplexity
	Distribution map[string]int // bucket label -> function count
}

// RunComplexity invokes the complexity analyzer against repoPath and
// buckets every reported function into low/medium/high/very_high.
func RunComplexity(ctx context.Context, toolPath, repoPath string, timeout, grace time.Duration) (Result, *ComplexitySummary, error) {
	res := Run(ctx, Invocation{
		Tool:        "complexity-analyzer",
		Path:        toolPath,
		Args:        []string{repoPath},
		Timeout:     timeout,
		GraceWindow: grace,
	})

	if res.State != StateOK {
		return res, nil, nil
	}

	var doc complexityDocument

	if err := json.Unmarshal(res.Stdout, &doc); err != nil {
		res.State = StateBad
		res.Diagnostics.Note = "output empty or malformed"

		return res, nil, fmt.Errorf("parse complexity analyzer output: %w", err)
	}

	summary := &ComplexitySummary{
		Functions:    doc.Functions,
		Distribution: map[string]int{"low": 0, "medium": 0, "high": 0, "very_high": 0},
	}

	for _, fn := range doc.Functions {
		summary.Distribution[complexityBuckets.classify(fn.Score)]++
	}

	return res, summary, nil
}

// AverageByFile reduces per-function scores to one average score per file.
func (s *ComplexitySummary) AverageByFile() map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}

	for _, fn := range s.Functions {
		sums[fn.File] += fn.Score
		counts[fn.File]++
	}

	avg := make(map[string]float64, len(sums))

	for file, sum := range sums {
		avg[file] = sum / float64(counts[file])
	}

	return avg
}
