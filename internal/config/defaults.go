package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for per-runner timeouts, worker pool size, the ranking
// weight vector, and the global budget.
const (
	DefaultWorkers             = 5
	DefaultGlobalTimeout       = 3600 * time.Second
	DefaultCodeCounterTimeout  = 5 * time.Minute
	DefaultComplexityTimeout   = 5 * time.Minute
	DefaultVulnerabilityTimeout = 15 * time.Minute
	DefaultEvolutionSubTimeout = 5 * time.Minute
	DefaultGraceWindow         = 5 * time.Second
)

// DefaultWeights is the default weight vector. Dimension names here are
// authoritative; other names are not rejected, and a weight on a name the
// ranking engine's metric vector lacks adds nothing to the composite.
var DefaultWeights = map[string]float64{
	"commits":        0.20,
	"churn":          0.15,
	"hotspot_work":   0.15,
	"ownership":      0.15,
	"complexity":     0.10,
	"communication":  0.08,
	"recency":        0.07,
	"fragmentation":  0.05,
	"coupling":       0.05,
}

// DefaultIgnorePaths is the default exclusion set for churn aggregates:
// vendored dependencies, generated artifacts, and common lock files.
var DefaultIgnorePaths = []string{
	"vendor/**",
	"node_modules/**",
	"**/*.lock",
	"**/go.sum",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/Gemfile.lock",
	"**/*.min.js",
	"**/dist/**",
	"**/build/**",
}

// DefaultRegions is the fixed email-domain-to-region lookup table for
// regional attribution. Unknown domains fold into "Unknown" at lookup
// time, not here.
var DefaultRegions = map[string]string{
	"gmail.com":   "Unknown",
	".cn":         "China",
	".jp":         "Japan",
	".in":         "India",
	".de":         "Europe",
	".fr":         "Europe",
	".uk":         "Europe",
	".co.uk":      "Europe",
	".br":         "Latin America",
	".us":         "North America",
}

// DefaultCompanyDomains is the configurable "company" filter domain list,
// empty by default so every author is treated as external until the
// operator supplies their own domains.
var DefaultCompanyDomains = []string{}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("workers", DefaultWorkers)

	viperCfg.SetDefault("timeouts.global", DefaultGlobalTimeout)
	viperCfg.SetDefault("timeouts.code_counter", DefaultCodeCounterTimeout)
	viperCfg.SetDefault("timeouts.complexity", DefaultComplexityTimeout)
	viperCfg.SetDefault("timeouts.vulnerability", DefaultVulnerabilityTimeout)
	viperCfg.SetDefault("timeouts.evolution_sub", DefaultEvolutionSubTimeout)
	viperCfg.SetDefault("timeouts.grace_window", DefaultGraceWindow)

	viperCfg.SetDefault("ranking.weights", DefaultWeights)
	viperCfg.SetDefault("ignore_paths", DefaultIgnorePaths)
	viperCfg.SetDefault("regions", DefaultRegions)
	viperCfg.SetDefault("company_domains", DefaultCompanyDomains)

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "json")
	viperCfg.SetDefault("metrics_addr", "")
}
