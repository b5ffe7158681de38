// Package locator implements the Tool Locator: a pure query
// over the filesystem and process environment that reports, for each
// external tool, either an absolute executable path or an explicit absence
// reason. It never invokes a tool to probe it.
package locator

import (
	"os"
	"os/exec"
	"path/filepath"
)

// ToolID names an external tool the pipeline depends on.
type ToolID string

// Recognized external tools.
const (
	ToolGit           ToolID = "git"
	ToolCodeCounter   ToolID = "code-counter"
	ToolComplexity    ToolID = "complexity-analyzer"
	ToolVulnerability ToolID = "vulnerability-scanner"
	ToolEvolution     ToolID = "evolution-analyzer"
	ToolJava          ToolID = "java"
)

// bundledNames maps a ToolID to the filename it has inside the bundled
// tools/ directory adjacent to the executable. Not every tool has a bundled form (git is always resolved from
// PATH; the evolution analyzer is typically shipped as a jar invoked via
// java, handled separately by locateEvolution).
var bundledNames = map[ToolID]string{
	ToolCodeCounter:   "code-counter",
	ToolComplexity:    "complexity-analyzer",
	ToolVulnerability: "vulnerability-scanner",
	ToolJava:          "java",
}

// envNames maps a ToolID to the PATH-resolvable binary name used when the
// bundled directory doesn't have it.
var envNames = map[ToolID]string{
	ToolGit:           "git",
	ToolCodeCounter:   "code-counter",
	ToolComplexity:    "complexity-analyzer",
	ToolVulnerability: "vulnerability-scanner",
	ToolJava:          "java",
}

// Tool describes the located (or absent) state of a single external tool.
type Tool struct {
	ID            ToolID
	Path          string
	Version       string
	Present       bool
	AbsentReason  string
}

// Capabilities is the immutable capability set produced once at startup:
// a snapshot of which external tools are runnable and where. Downstream
// stages consume this as an input rather than probing the filesystem
// themselves.
type Capabilities map[ToolID]Tool

// Present reports whether the named tool is runnable.
func (c Capabilities) Present(id ToolID) bool {
	tool, ok := c[id]

	return ok && tool.Present
}

// Locator resolves tool paths by probing, in order, a bundled directory
// co-located with the running executable, then the process PATH.
type Locator struct {
	BundledDir string
	JarPath    string
	JavaPath   string
}

// New creates a Locator whose bundled directory defaults to a "tools"
// folder next to the current executable, overridable via bundledDir.
func New(bundledDir, jarPath, javaPath string) *Locator {
	if bundledDir == "" {
		bundledDir = defaultBundledDir()
	}

	return &Locator{BundledDir: bundledDir, JarPath: jarPath, JavaPath: javaPath}
}

func defaultBundledDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "tools"
	}

	return filepath.Join(filepath.Dir(exe), "tools")
}

// Locate resolves the full capability set in one pass. It is a pure query:
// it confirms existence and executability only, never executing a tool to
// check for it.
func (l *Locator) Locate() Capabilities {
	caps := Capabilities{}

	caps[ToolGit] = l.locate(ToolGit)
	caps[ToolCodeCounter] = l.locate(ToolCodeCounter)
	caps[ToolComplexity] = l.locate(ToolComplexity)
	caps[ToolVulnerability] = l.locate(ToolVulnerability)
	caps[ToolJava] = l.locate(ToolJava)
	caps[ToolEvolution] = l.locateEvolution()

	return caps
}

func (l *Locator) locate(id ToolID) Tool {
	if id == ToolJava && l.JavaPath != "" {
		if isExecutable(l.JavaPath) {
			return Tool{ID: id, Path: l.JavaPath, Present: true}
		}

		return Tool{ID: id, AbsentReason: "configured java path is not executable"}
	}

	if bundledName, ok := bundledNames[id]; ok {
		candidate := filepath.Join(l.BundledDir, bundledName)
		if isExecutable(candidate) {
			return Tool{ID: id, Path: candidate, Present: true}
		}
	}

	envName, ok := envNames[id]
	if !ok {
		return Tool{ID: id, AbsentReason: "no known binary name"}
	}

	resolved, err := exec.LookPath(envName)
	if err != nil {
		return Tool{ID: id, AbsentReason: "not found in bundled directory or PATH"}
	}

	return Tool{ID: id, Path: resolved, Present: true}
}

// locateEvolution resolves the evolution analyzer, which is typically
// distributed as a jar invoked through a JVM rather than a native binary.
// An explicit --jar always takes priority; otherwise the locator falls
// back to a bundled jar if present.
func (l *Locator) locateEvolution() Tool {
	java := l.locate(ToolJava)

	jarPath := l.JarPath
	if jarPath == "" {
		candidate := filepath.Join(l.BundledDir, "evolution-analyzer.jar")
		if fileExists(candidate) {
			jarPath = candidate
		}
	}

	if jarPath == "" {
		return Tool{ID: ToolEvolution, AbsentReason: "no jar configured or bundled"}
	}

	if !java.Present {
		return Tool{ID: ToolEvolution, AbsentReason: "java runtime not found"}
	}

	return Tool{ID: ToolEvolution, Path: jarPath, Present: true}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return info.Mode()&0o111 != 0
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
