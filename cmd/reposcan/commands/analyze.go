// Package commands implements reposcan's CLI command handlers.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgelens/reposcan/internal/aggregate"
	"github.com/forgelens/reposcan/internal/config"
	"github.com/forgelens/reposcan/internal/controller"
	"github.com/forgelens/reposcan/internal/locator"
	"github.com/forgelens/reposcan/internal/observability"
	"github.com/forgelens/reposcan/internal/pipelinectx"
	"github.com/forgelens/reposcan/internal/rcache"
)

const cacheDirName = ".reposcan-cache"

type analyzeCmd struct {
	repoPaths       []string
	outputDir       string
	tools           string
	jarPath         string
	javaPath        string
	toolsDir        string
	workers         int
	sequential      bool
	verbose         bool
	timeoutGlobal   time.Duration
	noCompanyFilter bool
	configFile      string
}

// NewAnalyzeCommand creates the "analyze" command: it resolves a Git
// repository, runs the full pipeline against it, and writes the output
// bundle. exitCode receives the process exit code the caller should use,
// independent of the error RunE returns (cobra's own error-printing is
// silenced at the root command; main.go reports the error itself).
func NewAnalyzeCommand(exitCode *int) *cobra.Command {
	ac := &analyzeCmd{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a Git repository and write the reposcan output bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := ac.run(cmd)
			*exitCode = code

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&ac.repoPaths, "repo", nil,
		"Path to a Git repository to analyze (required; repeat for a combined multi-repository run)")
	flags.StringVar(&ac.outputDir, "output", "./results", "Directory to write the output bundle into")
	flags.StringVar(&ac.tools, "tools", controller.ToolSetAll,
		"Comma-separated tool selection: internal,tech-stack,code-quality,vulnerability,evolution,all")
	flags.StringVar(&ac.jarPath, "jar", "", "Path to the evolution analyzer jar (overrides config/bundled)")
	flags.StringVar(&ac.javaPath, "java", "", "Path to the java binary (overrides PATH resolution)")
	flags.StringVar(&ac.toolsDir, "tools-dir", "", "Directory containing bundled external tool binaries")
	flags.IntVar(&ac.workers, "workers", config.DefaultWorkers, "Worker pool size for concurrent stages")
	flags.BoolVar(&ac.sequential, "sequential", false, "Force workers=1, disabling stage concurrency")
	flags.BoolVarP(&ac.verbose, "verbose", "v", false, "Enable debug-level logging")
	flags.DurationVar(&ac.timeoutGlobal, "timeout-global", config.DefaultGlobalTimeout, "Global wall-clock budget for the whole run")
	flags.BoolVar(&ac.noCompanyFilter, "no-company-filter", false, "Treat every author as external, ignoring configured company domains")
	flags.StringVar(&ac.configFile, "config", "", "Path to a reposcan configuration file")

	_ = cmd.MarkFlagRequired("repo")

	return cmd
}

func (ac *analyzeCmd) run(cmd *cobra.Command) (int, error) {
	cfg, loadErr := config.Load(ac.configFile)
	if loadErr != nil {
		return controller.ExitMisconfiguration, fmt.Errorf("load configuration: %w", loadErr)
	}

	ac.applyOverrides(cmd, cfg)

	if validateErr := config.Validate(cfg); validateErr != nil {
		return controller.ExitMisconfiguration, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	toolsDir := ac.toolsDir
	if toolsDir == "" {
		toolsDir = cfg.Tools.ToolsDir
	}

	loc := locator.New(toolsDir, cfg.Tools.JarPath, cfg.Tools.JavaPath)
	caps := loc.Locate()

	// The vulnerability scanner's pre-populated database ships inside the
	// bundled tools directory unless the operator points elsewhere.
	if cfg.Tools.VulnCache == "" {
		cfg.Tools.VulnCache = filepath.Join(loc.BundledDir, "vulndb-cache")
	}

	level := cfg.Logging.Level
	if ac.verbose {
		level = "debug"
	}

	logger := observability.NewLogger(cfg.Logging.Format, level)

	providers, obsErr := observability.Init("reposcan")
	if obsErr != nil {
		return controller.ExitMisconfiguration, fmt.Errorf("init observability: %w", obsErr)
	}

	defer func() {
		_ = providers.Shutdown(context.Background())
	}()

	if cfg.MetricsAddr != "" {
		metricsSrv := providers.StartMetricsServer(cfg.MetricsAddr)

		defer func() {
			_ = metricsSrv.Shutdown(context.Background())
		}()
	}

	cache, cacheErr := rcache.New(filepath.Join(ac.outputDir, cacheDirName))
	if cacheErr != nil {
		logger.Warn("content-addressed cache unavailable, continuing without it", "error", cacheErr)

		cache = nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := make([]aggregate.RepoResult, 0, len(ac.repoPaths))

	worstExit := controller.ExitSuccess

	for _, repoPath := range ac.repoPaths {
		pctx := &pipelinectx.Context{
			Config:       cfg,
			Capabilities: caps,
			Logger:       logger,
			Metrics:      providers.Metrics,
			RepoPath:     repoPath,
			OutputRoot:   ac.outputDir,
		}

		ctrl := controller.New(pctx, controller.ParseToolSet(ac.tools), cache, providers.Tracer)

		result, exitCode, runErr := ctrl.Collect(ctx)
		if runErr != nil {
			return exitCode, fmt.Errorf("analyze %s: %w", repoPath, runErr)
		}

		if exitCode > worstExit {
			worstExit = exitCode
		}

		aggregate.ApplyHeaders(&result.Bundle, result.RepoName, time.Now())

		if writeErr := aggregate.WriteAll(result.Bundle); writeErr != nil {
			return controller.ExitMisconfiguration, fmt.Errorf("write output bundle for %s: %w", repoPath, writeErr)
		}

		logger.Info("pipeline run complete", "repo", result.RepoName, "exit_code", exitCode)

		if ac.verbose {
			renderManifest(os.Stdout, result.RepoName, result.Bundle.Manifest)
			renderRankings(os.Stdout, result.RepoName+" rankings", result.Bundle.DeveloperRankings.Rankings, 10)
		}

		results = append(results, aggregate.RepoResult{
			Name:             result.RepoName,
			Bundle:           result.Bundle,
			Summary:          result.Summary,
			TechnologyTotals: result.TechnologyTotals,
			CodeCounter:      result.CodeCounter,
			DeveloperMetrics: result.DeveloperMetrics,
			TotalLOC:         result.TotalLOC,
		})
	}

	if len(results) > 1 {
		combined := aggregate.Combine(results, cfg.Ranking.Weights)
		combined.OutputRoot = filepath.Join(ac.outputDir, aggregate.DirCombined)

		aggregate.ApplyHeaders(&combined, aggregate.RepositoryCombined, time.Now())

		if writeErr := aggregate.WriteAll(combined); writeErr != nil {
			return controller.ExitMisconfiguration, fmt.Errorf("write combined output bundle: %w", writeErr)
		}

		logger.Info("combined run complete", "repositories", len(results))

		if ac.verbose {
			renderManifest(os.Stdout, "combined", combined.Manifest)
			renderRankings(os.Stdout, "combined rankings", combined.DeveloperRankings.Rankings, 10)
		}
	}

	return worstExit, nil
}

func (ac *analyzeCmd) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("workers") {
		cfg.Workers = ac.workers
	}

	if ac.sequential {
		cfg.Workers = 1
	}

	if flags.Changed("timeout-global") {
		cfg.Timeouts.Global = ac.timeoutGlobal
	}

	if flags.Changed("jar") {
		cfg.Tools.JarPath = ac.jarPath
	}

	if flags.Changed("java") {
		cfg.Tools.JavaPath = ac.javaPath
	}

	if ac.noCompanyFilter {
		cfg.CompanyDomains = nil
	}
}
