package history

import (
	"path"
	"strings"

	enry "github.com/src-d/enry/v2"

	"github.com/forgelens/reposcan/internal/model"
)

// TechnologyTotals accumulates churn attributed to a single detected
// language or technology across the whole history.
type TechnologyTotals struct {
	Language string
	Files    map[string]struct{}
	Added    int
	Deleted  int
	Commits  map[string]struct{}
}

// TechnologyStack buckets every file change in commits by the technology
// tag derived from the language enry attributes to its path, using
// path-only detection since no blob content is available from numstat
// output. Totals are keyed by the lowercase symbolic tag ("csharp",
// "javascript", "xml", "python", ...), never enry's capitalized language name.
func TechnologyStack(commits []model.Commit, ignore []string) map[string]*TechnologyTotals {
	totals := map[string]*TechnologyTotals{}

	for _, c := range commits {
		for _, fc := range c.Changes {
			if fc.Binary || isIgnored(fc.Path, ignore) {
				continue
			}

			tag := SymbolicTag(enry.GetLanguage(path.Base(fc.Path), nil))

			t, ok := totals[tag]
			if !ok {
				t = &TechnologyTotals{
					Language: tag,
					Files:    map[string]struct{}{},
					Commits:  map[string]struct{}{},
				}
				totals[tag] = t
			}

			t.Files[fc.Path] = struct{}{}
			t.Commits[c.Hash] = struct{}{}
			t.Added += fc.Added
			t.Deleted += fc.Deleted
		}
	}

	return totals
}

// tagOverrides maps enry/code-counter language names that don't reduce
// cleanly to a symbolic tag by lowercasing alone (punctuation, spacing).
// Anything absent from this table falls back to strings.ToLower(lang).
var tagOverrides = map[string]string{
	"":              "other",
	"Unknown":       "other",
	"C#":            "csharp",
	"C++":           "cpp",
	"Objective-C":   "objectivec",
	"Objective-C++": "objectivecpp",
	"F#":            "fsharp",
	"Shell":         "shell",
}

// SymbolicTag maps an enry or code-counter language name to the lowercase
// symbolic technology tag used as the join key across technology_stack.json
// ("csharp", "javascript", "xml", "python", ...). Every file maps to
// exactly one primary tag; names this table
// and ToLower can't resolve fall into "other".
func SymbolicTag(lang string) string {
	if tag, ok := tagOverrides[lang]; ok {
		return tag
	}

	return strings.ToLower(lang)
}

// languageCategories buckets symbolic technology tags into the coarser
// groups technology_stack.json's technology_by_category reports. Tags not
// listed here fall into "other".
var languageCategories = map[string]string{
	"go":         "programming",
	"java":       "programming",
	"python":     "programming",
	"c":          "programming",
	"cpp":        "programming",
	"csharp":     "programming",
	"javascript": "programming",
	"typescript": "programming",
	"ruby":       "programming",
	"rust":       "programming",
	"php":        "programming",
	"shell":      "programming",
	"html":       "markup",
	"xml":        "markup",
	"markdown":   "markup",
	"yaml":       "data",
	"json":       "data",
	"toml":       "data",
	"csv":        "data",
	"sql":        "data",
	"dockerfile": "config",
	"makefile":   "config",
	"ini":        "config",
}

// CategoryForLanguage resolves a symbolic technology tag to its
// technology_by_category bucket.
func CategoryForLanguage(tag string) string {
	if category, ok := languageCategories[tag]; ok {
		return category
	}

	return "other"
}

// isIgnored reports whether path matches one of the configured ignore glob
// patterns. Patterns use doublestar-style "**" segments; matching here
// is approximated with simple suffix/substring rules sufficient for the
// fixed default set plus user overrides of the same shape.
func isIgnored(filePath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchGlobish(filePath, pattern) {
			return true
		}
	}

	return false
}

func matchGlobish(filePath, pattern string) bool {
	clean := strings.TrimPrefix(pattern, "**/")

	switch {
	case strings.HasPrefix(pattern, "**/") && strings.HasSuffix(clean, "/**"):
		dir := strings.TrimSuffix(clean, "/**")

		return strings.Contains(filePath, "/"+dir+"/") || strings.HasPrefix(filePath, dir+"/")

	case strings.HasPrefix(pattern, "**/") && strings.HasPrefix(clean, "*."):
		ext := strings.TrimPrefix(clean, "*")

		return strings.HasSuffix(filePath, ext)

	case strings.HasPrefix(pattern, "**/"):
		return strings.HasSuffix(filePath, clean) || strings.Contains(filePath, "/"+clean)

	case strings.HasSuffix(pattern, "/**"):
		dir := strings.TrimSuffix(pattern, "/**")

		return strings.HasPrefix(filePath, dir+"/")

	default:
		ok, err := path.Match(pattern, filePath)

		return err == nil && ok
	}
}
