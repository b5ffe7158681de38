package runners

import "time"

// Diagnostics is the sidecar document written alongside each external
// analyzer's output: enough to debug a skipped or failed stage without
// re-running the pipeline.
type Diagnostics struct {
	Tool       string        `json:"tool"`
	CommandLine []string     `json:"command_line"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration"`
	StderrTail string        `json:"stderr_tail"`
	Note       string        `json:"note,omitempty"`
}

// maxStderrTail bounds how much of stderr is retained in the diagnostics
// document, enough for a human to see the failure without storing the
// whole stream.
const maxStderrTail = 4096

func truncateTail(b []byte) string {
	if len(b) <= maxStderrTail {
		return string(b)
	}

	return string(b[len(b)-maxStderrTail:])
}
