package runners

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgelens/reposcan/internal/history"
)

// CodeCounterEntry is one row of the code counter's JSON array output: a
// per-language line-count breakdown.
type CodeCounterEntry struct {
	Language string `json:"language"`
	Files    int    `json:"files"`
	Blank    int    `json:"blank"`
	Comment  int    `json:"comment"`
	Code     int    `json:"code"`
}

// RunCodeCounter invokes the code counter tool against repoPath and parses
// its JSON array output. A parse failure does not abort the pipeline: the
// result is marked StateBad with a note, and the caller records it as a
// failed stage in the run manifest.
func RunCodeCounter(ctx context.Context, toolPath, repoPath string, timeout, grace time.Duration) (Result, []CodeCounterEntry, error) {
	res := Run(ctx, Invocation{
		Tool:        "code-counter",
		Path:        toolPath,
		Args:        []string{repoPath},
		Timeout:     timeout,
		GraceWindow: grace,
	})

	if res.State != StateOK {
		return res, nil, nil
	}

	var entries []CodeCounterEntry

	if err := json.Unmarshal(res.Stdout, &entries); err != nil {
		res.State = StateBad
		res.Diagnostics.Note = "output empty or malformed"

		return res, nil, fmt.Errorf("parse code counter output: %w", err)
	}

	return res, entries, nil
}

// FlattenIntoTechnology groups code counter line counts into a new map,
// summing entries that share the symbolic technology tag
// history.TechnologyStack uses, so the two sources join correctly.
func FlattenIntoTechnology(entries []CodeCounterEntry) map[string]CodeCounterEntry {
	byLanguage := make(map[string]CodeCounterEntry, len(entries))

	for _, e := range entries {
		tag := history.SymbolicTag(e.Language)

		existing, ok := byLanguage[tag]
		if !ok {
			e.Language = tag
			byLanguage[tag] = e

			continue
		}

		existing.Files += e.Files
		existing.Blank += e.Blank
		existing.Comment += e.Comment
		existing.Code += e.Code
		byLanguage[tag] = existing
	}

	return byLanguage
}
