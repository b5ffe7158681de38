package aggregate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgelens/reposcan/internal/evolution"
	"github.com/forgelens/reposcan/internal/runners"
)

// Layout names the fixed directory structure assigned to one
// repository's output root.
const (
	FileCommitAnalysis          = "commit_analysis.json"
	FileDeveloperContributions  = "developer_contributions.json"
	FileTechnologyStack         = "technology_stack.json"
	FileRegionalAnalysis        = "regional_analysis.json"
	FileModuleOwnership         = "module_ownership.json"
	FileOverallSummary          = "overall_summary.json"
	FileDeveloperRankings       = "developer_rankings.json"
	FileVulnerabilities         = "vulnerabilities.json"
	FileComplexity              = "complexity.json"
	DirCodeAnalysis             = "code_analysis"
	DirExtractions              = "extractions"
	DirDiagnostics              = "diagnostics"
	FileManifest                = "manifest.json"
)

// Bundle holds every document this stage produces for one repository,
// already assembled by the pipeline controller from upstream stage
// results.
type Bundle struct {
	OutputRoot            string
	CommitAnalysis         CommitAnalysisDocument
	DeveloperContributions DeveloperContributionsDocument
	TechnologyStack        TechnologyStackDocument
	RegionalAnalysis       RegionalAnalysisDocument
	ModuleOwnership        ModuleOwnershipDocument
	OverallSummary         OverallSummaryDocument
	DeveloperRankings      DeveloperRankingsDocument
	Vulnerabilities        *VulnerabilitiesDocument // nil when the scanner was skipped
	Complexity             *ComplexityDocument      // nil when the analyzer was skipped
	EvolutionTables        []evolution.SubResult
	ExtractionLogs         map[string][]byte // filename -> raw extractor capture
	// Diagnostics carries each external runner invocation's sidecar
	// record (command line, exit status, duration, stderr tail), written
	// one file per invocation under diagnostics/.
	Diagnostics map[string]runners.Diagnostics
	Manifest    ManifestDocument
}

// WriteAll writes every document in Bundle to its fixed location under
// OutputRoot, each write atomic.
func WriteAll(b Bundle) error {
	writes := []struct {
		path string
		doc  any
	}{
		{filepath.Join(b.OutputRoot, FileCommitAnalysis), b.CommitAnalysis},
		{filepath.Join(b.OutputRoot, FileDeveloperContributions), b.DeveloperContributions},
		{filepath.Join(b.OutputRoot, FileTechnologyStack), b.TechnologyStack},
		{filepath.Join(b.OutputRoot, FileRegionalAnalysis), b.RegionalAnalysis},
		{filepath.Join(b.OutputRoot, FileModuleOwnership), b.ModuleOwnership},
		{filepath.Join(b.OutputRoot, FileOverallSummary), b.OverallSummary},
		{filepath.Join(b.OutputRoot, FileDeveloperRankings), b.DeveloperRankings},
		{filepath.Join(b.OutputRoot, FileManifest), b.Manifest},
	}

	if b.Vulnerabilities != nil {
		writes = append(writes, struct {
			path string
			doc  any
		}{filepath.Join(b.OutputRoot, FileVulnerabilities), *b.Vulnerabilities})
	}

	if b.Complexity != nil {
		writes = append(writes, struct {
			path string
			doc  any
		}{filepath.Join(b.OutputRoot, FileComplexity), *b.Complexity})
	}

	for _, w := range writes {
		if err := WriteJSONAtomic(w.path, w.doc); err != nil {
			return err
		}
	}

	if err := writeEvolutionTables(b.OutputRoot, b.EvolutionTables); err != nil {
		return err
	}

	if err := writeDiagnostics(b.OutputRoot, b.Diagnostics); err != nil {
		return err
	}

	return writeExtractionLogs(b.OutputRoot, b.ExtractionLogs)
}

// writeDiagnostics writes each external runner's sidecar record under
// diagnostics/, one JSON file per invocation. These are required for
// reproducing a failed or timed-out tool run after the fact.
func writeDiagnostics(outputRoot string, diags map[string]runners.Diagnostics) error {
	for name, d := range diags {
		path := filepath.Join(outputRoot, DirDiagnostics, name+".json")

		if err := WriteJSONAtomic(path, d); err != nil {
			return err
		}
	}

	return nil
}

// writeEvolutionTables writes one CSV file per sub-analysis under
// code_analysis/, even for sub-analyses that produced zero rows: an
// empty table is still a successful, written output.
func writeEvolutionTables(outputRoot string, tables []evolution.SubResult) error {
	dir := filepath.Join(outputRoot, DirCodeAnalysis)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create code_analysis directory: %w", err)
	}

	for _, t := range tables {
		path := filepath.Join(dir, string(t.Analysis)+".csv")

		buf, err := encodeCSV(t.Table)
		if err != nil {
			return fmt.Errorf("encode %s: %w", t.Analysis, err)
		}

		if err := WriteAtomic(path, buf); err != nil {
			return err
		}
	}

	return nil
}

// encodeCSV re-serializes a parsed evolution.Table back to CSV bytes. A
// table with no header (the empty-input case) still produces a valid,
// empty CSV file rather than an error — matching ParseCSV's
// zero-rows-is-success contract.
func encodeCSV(table evolution.Table) ([]byte, error) {
	var buf bytes.Buffer

	writer := csv.NewWriter(&buf)

	if table.Header != nil {
		if err := writer.Write(table.Header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for _, row := range table.Rows {
		record := make([]string, len(row))

		for i, cell := range row {
			record[i] = cell.Raw
		}

		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()

	return buf.Bytes(), writer.Error()
}

func writeExtractionLogs(outputRoot string, logs map[string][]byte) error {
	dir := filepath.Join(outputRoot, DirExtractions)

	for name, raw := range logs {
		if err := WriteAtomic(filepath.Join(dir, name), raw); err != nil {
			return err
		}
	}

	return nil
}
