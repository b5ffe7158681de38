// Package pipelinectx defines the explicit pipeline context value threaded
// through every stage, replacing ambient global state with an explicit
// input. Every stage receives its configuration, tool capability
// snapshot, logger, and output paths as an input — never by ambient
// lookup.
package pipelinectx

import (
	"log/slog"

	"github.com/forgelens/reposcan/internal/config"
	"github.com/forgelens/reposcan/internal/locator"
	"github.com/forgelens/reposcan/internal/observability"
)

// Context is passed by pointer into the pipeline controller's constructor.
// The CLI builds one per repository, and it is never mutated after
// construction.
type Context struct {
	Config       *config.Config
	Capabilities locator.Capabilities
	Logger       *slog.Logger
	Metrics      *observability.StageMetrics
	RepoPath     string
	OutputRoot   string
}

// StageLogger returns a logger annotated with the given stage name.
func (c *Context) StageLogger(stage string) *slog.Logger {
	return observability.WithStage(c.Logger, stage)
}
