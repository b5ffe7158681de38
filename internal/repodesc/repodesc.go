// Package repodesc builds and validates the Repository descriptor: an
// absolute path, derived short name, confirmed to contain a Git working
// tree. Validation uses libgit2 (via git2go) rather than shelling out —
// a cheap existence/bare check before any heavier per-commit work begins.
// The Git Log Extractor (internal/gitlog) still shells out to the git
// binary for the three canonical log formats it requires.
package repodesc

import (
	"errors"
	"fmt"
	"path/filepath"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNotAGitWorkingTree is returned when the given path does not contain a
// Git working tree resolvable by libgit2.
var ErrNotAGitWorkingTree = errors.New("path is not a git working tree")

// Descriptor is the immutable description of one repository under
// analysis, created once by the pipeline controller.
type Descriptor struct {
	Path      string // absolute
	ShortName string
}

// Resolve validates rawPath and builds its Descriptor. It is the only
// point in the pipeline that opens the repository through libgit2; all
// subsequent Git access goes through the Git Log Extractor's subprocess
// invocations.
func Resolve(rawPath string) (*Descriptor, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}

	repo, openErr := git2go.OpenRepository(abs)
	if openErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAGitWorkingTree, abs, openErr)
	}
	defer repo.Free()

	if repo.IsBare() {
		return nil, fmt.Errorf("%w: %s: bare repository has no working tree", ErrNotAGitWorkingTree, abs)
	}

	return &Descriptor{
		Path:      abs,
		ShortName: filepath.Base(filepath.Clean(abs)),
	}, nil
}
