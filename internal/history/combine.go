package history

import "sort"

// CombineSummaries merges per-repository History Analyzer summaries into
// one cross-repository view: an
// author's raw metrics sum across repositories, set-valued fields
// (files touched, region membership) union instead of double-counting.
func CombineSummaries(summaries []*Summary) *Summary {
	combined := &Summary{
		Authors:        map[string]*AuthorAggregate{},
		Files:          map[string]*FileAggregate{},
		Regions:        map[string]*RegionTotals{},
		MonthlyCommits: map[string]int{},
	}

	yearSet := map[string]struct{}{}

	for _, s := range summaries {
		if s == nil {
			continue
		}

		combined.MergeCommits += s.MergeCommits
		combined.EmptyCommits += s.EmptyCommits

		for month, count := range s.MonthlyCommits {
			combined.MonthlyCommits[month] += count
		}

		for _, y := range s.ActiveYears {
			yearSet[y] = struct{}{}
		}

		mergeAuthors(combined.Authors, s.Authors)
		mergeFiles(combined.Files, s.Files)
		mergeRegions(combined.Regions, s.Regions)
	}

	combined.ActiveYears = make([]string, 0, len(yearSet))
	for y := range yearSet {
		combined.ActiveYears = append(combined.ActiveYears, y)
	}

	sort.Strings(combined.ActiveYears)

	fillMonthlyGaps(combined.MonthlyCommits)

	return combined
}

func mergeAuthors(dst map[string]*AuthorAggregate, src map[string]*AuthorAggregate) {
	for email, a := range src {
		existing, ok := dst[email]
		if !ok {
			existing = &AuthorAggregate{
				Name:         a.Name,
				Email:        a.Email,
				Region:       a.Region,
				IsCompany:    a.IsCompany,
				FilesTouched: map[string]struct{}{},
				FirstSeen:    a.FirstSeen,
				LastSeen:     a.LastSeen,
			}
			dst[email] = existing
		}

		existing.Commits += a.Commits
		existing.Added += a.Added
		existing.Deleted += a.Deleted

		if a.FirstSeen != "" && (existing.FirstSeen == "" || a.FirstSeen < existing.FirstSeen) {
			existing.FirstSeen = a.FirstSeen
		}

		if a.LastSeen > existing.LastSeen {
			existing.LastSeen = a.LastSeen

			if a.Name != "" {
				existing.Name = a.Name // most-recent non-empty display name wins
			}
		}

		for path := range a.FilesTouched {
			existing.FilesTouched[path] = struct{}{}
		}
	}
}

func mergeFiles(dst map[string]*FileAggregate, src map[string]*FileAggregate) {
	for path, f := range src {
		existing, ok := dst[path]
		if !ok {
			existing = &FileAggregate{Path: path, Authors: map[string]int{}}
			dst[path] = existing
		}

		existing.Commits += f.Commits
		existing.Added += f.Added
		existing.Deleted += f.Deleted

		if f.LastModified > existing.LastModified {
			existing.LastModified = f.LastModified
		}

		if f.RenamedFrom != "" {
			existing.RenamedFrom = f.RenamedFrom
		}

		for email, commits := range f.Authors {
			existing.Authors[email] += commits
		}
	}
}

// CombineTechnologyTotals merges per-repository technology attribution
// tables: file and commit sets union (an unchanged file shared across
// repositories is not double-counted against the file-count dimension),
// churn sums.
func CombineTechnologyTotals(perRepo []map[string]*TechnologyTotals) map[string]*TechnologyTotals {
	combined := map[string]*TechnologyTotals{}

	for _, totals := range perRepo {
		for lang, t := range totals {
			existing, ok := combined[lang]
			if !ok {
				existing = &TechnologyTotals{
					Language: lang,
					Files:    map[string]struct{}{},
					Commits:  map[string]struct{}{},
				}
				combined[lang] = existing
			}

			existing.Added += t.Added
			existing.Deleted += t.Deleted

			for f := range t.Files {
				existing.Files[f] = struct{}{}
			}

			for c := range t.Commits {
				existing.Commits[c] = struct{}{}
			}
		}
	}

	return combined
}

func mergeRegions(dst map[string]*RegionTotals, src map[string]*RegionTotals) {
	for region, r := range src {
		existing, ok := dst[region]
		if !ok {
			existing = &RegionTotals{Region: region, Authors: map[string]struct{}{}}
			dst[region] = existing
		}

		existing.Commits += r.Commits
		existing.Added += r.Added
		existing.Deleted += r.Deleted

		for email := range r.Authors {
			existing.Authors[email] = struct{}{}
		}
	}
}
