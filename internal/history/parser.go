// Package history implements the History Analyzer: it turns
// the Git Log Extractor's raw full-history capture into structured commits,
// then aggregates per-author, per-file, per-period, per-region, and
// per-technology views.
package history

import (
	"bufio"
	"bytes"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forgelens/reposcan/internal/model"
)

const commitMarkerPrefix = "commit "

// ParseFullHistory turns the Git Log Extractor's full-history capture into
// commits. Commits are returned re-sorted into forward chronological order
// (oldest first): the extractor's native reverse-chronological order is
// corrected here, before aggregation.
func ParseFullHistory(raw []byte) []model.Commit {
	commits := make([]model.Commit, 0, 256)

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var current *model.Commit

	wantSubject := false

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, commitMarkerPrefix):
			if current != nil {
				commits = append(commits, *current)
			}

			current = parseMarkerLine(line)
			wantSubject = current != nil

		case current == nil:
			continue

		case wantSubject:
			current.Subject = line
			wantSubject = false

		case strings.TrimSpace(line) == "":
			continue

		default:
			if changes, ok := parseNumstatLine(line); ok {
				current.Changes = append(current.Changes, changes...)
			}
		}
	}

	if current != nil {
		commits = append(commits, *current)
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].AuthoredAt.Before(commits[j].AuthoredAt)
	})

	return commits
}

// parseMarkerLine parses "commit <hex> <iso8601> <author-name> <author-email>".
// The author name may itself contain spaces; hash, date, and email occupy
// fixed positions so the name is whatever remains between them.
func parseMarkerLine(line string) *model.Commit {
	fields := strings.Fields(strings.TrimPrefix(line, commitMarkerPrefix))
	if len(fields) < 3 {
		return nil
	}

	hash := fields[0]
	isoDate := fields[1]
	email := fields[len(fields)-1]
	name := strings.Join(fields[2:len(fields)-1], " ")

	authoredAt, err := time.Parse(time.RFC3339, isoDate)
	if err != nil {
		authoredAt = time.Time{}
	}

	return &model.Commit{
		Hash:        hash,
		AuthorName:  name,
		AuthorEmail: strings.ToLower(email),
		AuthoredAt:  authoredAt,
		Changes:     make([]model.FileChange, 0, 4),
	}
}

// parseNumstatLine parses one "git log --numstat" diffstat line: either
// "<added>\t<deleted>\t<path>", "-\t-\t<path>" for a binary file, or a
// rename recorded as "<path> => <path>" (optionally with a "{old => new}"
// brace segment for a partial-path rename). A rename is emitted as two
// logical file-change entries sharing the rename flag: a zero-churn marker
// at the old path (so its own file aggregate still records the event) and
// the real entry at the new path, carrying a back-reference to the old one.
func parseNumstatLine(line string) ([]model.FileChange, bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return nil, false
	}

	var (
		binary  bool
		added   int
		deleted int
	)

	if parts[0] == "-" && parts[1] == "-" {
		binary = true
	} else {
		a, err1 := strconv.Atoi(parts[0])
		d, err2 := strconv.Atoi(parts[1])

		if err1 != nil || err2 != nil {
			return nil, false
		}

		added = a
		deleted = d
	}

	oldPath, newPath, renamed := splitRenamePath(parts[2])
	if !renamed {
		return []model.FileChange{{
			Path:    parts[2],
			Added:   added,
			Deleted: deleted,
			Kind:    model.ChangeModify,
			Binary:  binary,
		}}, true
	}

	return []model.FileChange{
		{
			Path:    oldPath,
			OldPath: oldPath,
			Kind:    model.ChangeRename,
			Binary:  binary,
		},
		{
			Path:    newPath,
			OldPath: oldPath,
			Added:   added,
			Deleted: deleted,
			Kind:    model.ChangeRename,
			Binary:  binary,
		},
	}, true
}

// splitRenamePath handles both rename notations git emits in numstat
// output: a full "old/path => new/path" form, and a brace-contracted
// "shared/{old => new}/suffix" form for renames under a common prefix.
func splitRenamePath(raw string) (oldPath, newPath string, renamed bool) {
	if braceStart := strings.Index(raw, "{"); braceStart >= 0 {
		braceEnd := strings.Index(raw, "}")
		if braceEnd > braceStart {
			inner := raw[braceStart+1 : braceEnd]
			if arrow := strings.Index(inner, " => "); arrow >= 0 {
				prefix := raw[:braceStart]
				suffix := raw[braceEnd+1:]
				oldInner := inner[:arrow]
				newInner := inner[arrow+4:]

				return prefix + oldInner + suffix, prefix + newInner + suffix, true
			}
		}
	}

	if arrow := strings.Index(raw, " => "); arrow >= 0 {
		return raw[:arrow], raw[arrow+4:], true
	}

	return "", raw, false
}
