package runners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrVulnDBCacheMissing is returned when the vulnerability scanner's
// pre-populated database cache directory is absent or empty. The runner
// fails fast in this case rather than attempting any network fetch.
var ErrVulnDBCacheMissing = errors.New("vulnerability database cache missing")

// Severity is one finding's severity bucket.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityUnknown  Severity = "Unknown"
)

// Finding is one vulnerability finding.
type Finding struct {
	ID               string   `json:"id"`
	Package          string   `json:"package"`
	InstalledVersion string   `json:"installed_version"`
	FixedVersion     string   `json:"fixed_version"`
	Severity         Severity `json:"severity"`
	Title            string   `json:"title"`
}

// ScoringPolicy holds the per-severity weights and density penalty rate
// used to compute a repository's aggregate security score. Every field is
// a heuristic passed in by the caller; the pipeline controller and the
// combined view pass DefaultScoringPolicy, and the configuration file has
// no setting for it.
type ScoringPolicy struct {
	CriticalWeight float64
	HighWeight     float64
	MediumWeight   float64
	LowWeight      float64
	// DensityPenaltyPerKLOC scales the base score up when findings are
	// concentrated in a small codebase: penalty = base * rate * (findings
	// per thousand lines of code).
	DensityPenaltyPerKLOC float64
}

// DefaultScoringPolicy carries the preserved-verbatim coefficients:
// critical 2.0, high 1.0, medium 0.2, low 0.05, plus a density penalty
// term.
var DefaultScoringPolicy = ScoringPolicy{
	CriticalWeight:        2.0,
	HighWeight:            1.0,
	MediumWeight:          0.2,
	LowWeight:             0.05,
	DensityPenaltyPerKLOC: 0.1,
}

// SecurityScore computes the aggregate security score for findings against
// a codebase of the given size (total lines of code, across all
// languages). Unknown-severity findings do not contribute to the base
// score but still count toward density.
func SecurityScore(findings []Finding, totalLinesOfCode int, policy ScoringPolicy) float64 {
	var base float64

	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			base += policy.CriticalWeight
		case SeverityHigh:
			base += policy.HighWeight
		case SeverityMedium:
			base += policy.MediumWeight
		case SeverityLow:
			base += policy.LowWeight
		}
	}

	if totalLinesOfCode <= 0 || len(findings) == 0 {
		return base
	}

	findingsPerKLOC := float64(len(findings)) / (float64(totalLinesOfCode) / 1000.0)

	return base + base*policy.DensityPenaltyPerKLOC*findingsPerKLOC
}

// RunVulnerabilityScan invokes the vulnerability scanner against repoPath,
// pointing it at cacheDir with flags forbidding any online database
// update. It fails fast with ErrVulnDBCacheMissing if cacheDir does not
// exist or is empty, never attempting a fetch.
func RunVulnerabilityScan(ctx context.Context, toolPath, repoPath, cacheDir string, timeout, grace time.Duration) (Result, []Finding, error) {
	entries, statErr := os.ReadDir(cacheDir)
	if statErr != nil || len(entries) == 0 {
		return Result{Tool: "vulnerability-scanner", State: StateBad, Diagnostics: Diagnostics{
			Tool: "vulnerability-scanner",
			Note: "cache missing",
		}}, nil, ErrVulnDBCacheMissing
	}

	res := Run(ctx, Invocation{
		Tool:        "vulnerability-scanner",
		Path:        toolPath,
		Args:        []string{"--offline", "--no-update", "--cache-dir", cacheDir, repoPath},
		Timeout:     timeout,
		GraceWindow: grace,
	})

	if res.State != StateOK {
		return res, nil, nil
	}

	var findings []Finding

	if err := json.Unmarshal(res.Stdout, &findings); err != nil {
		res.State = StateBad
		res.Diagnostics.Note = "output empty or malformed"

		return res, nil, fmt.Errorf("parse vulnerability scanner output: %w", err)
	}

	return res, findings, nil
}
