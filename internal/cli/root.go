// Package cli defines the command-line interface for beacon. It is the
// external layer around the core: flag/env/file configuration via viper,
// color and terminal-width handling, and exit-code mapping. The core
// packages never import it.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/gitbeacon/beacon/engine"
	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/internal/gitclient"
	"github.com/gitbeacon/beacon/internal/iocache"
)

// All linker flags will be set by release infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes documented for CI consumers.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitInvalidArgs    = 2
	ExitRepoNotFound   = 3
	ExitCommitNotFound = 4
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg holds the validated, final configuration.
var cfg contract.Config

// client is the Repository Access Layer shared by every command.
var client = gitclient.NewLocalGitClient()

// eng is constructed once cfg is validated, in sharedSetup.
var eng *engine.Engine

// rootCmd is the command-line entrypoint. With a positional commit
// identifier it prints a single-commit report; otherwise it runs the full
// range report over the resolved window.
var rootCmd = &cobra.Command{
	Use:   "beacon [commit]",
	Short: "Analyze Git history for velocity, ownership, churn, and risk.",
	Long: `Beacon reads a repository's commit history over a time window and reports
development velocity, team collaboration, code-change quality, and composite
risk, as text sections with ASCII charts or as JSON.

Examples:
  # Range report over the last week (the default window)
  beacon --repo .

  # Range report over a sprint, as JSON for CI
  beacon --since 2w --format json

  # Single-commit report with extended stats
  beacon 1a2b3c4d --format extended`,
	Version:            version,
	Args:               cobra.MaximumNArgs(1),
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	PreRunE:            sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		if len(args) == 1 {
			return runCommitReport(rootCtx, args[0])
		}
		return runRangeReport(rootCtx)
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".beacon")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("BEACON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Documented env overrides with names that differ from their keys.
	_ = viper.BindEnv("repo", "BEACON_REPO_PATH")
	_ = viper.BindEnv("format", "BEACON_FORMAT")
	_ = viper.BindEnv("no-cache", "BEACON_NO_CACHE")

	// Defaults for every documented option, under its canonical name.
	viper.SetDefault("repo", ".")
	viper.SetDefault("format", "standard")
	viper.SetDefault("since", "7d")
	viper.SetDefault("until", "now")
	viper.SetDefault("time.velocity_window_days", 7)
	viper.SetDefault("time.peak_threshold", 1.5)
	viper.SetDefault("time.bus_factor_cutoff", 0.5)
	viper.SetDefault("team.ownership_half_life_days", 60)
	viper.SetDefault("team.silo_threshold", 0.8)
	viper.SetDefault("team.silo_days", 90)
	viper.SetDefault("team.collab_window_days", 30)
	viper.SetDefault("quality.churn_threshold", 0.6)
	viper.SetDefault("quality.large_change_lines", 500)
	viper.SetDefault("quality.refactor_keywords", []string{"refactor", "cleanup", "rename", "reorg"})
	viper.SetDefault("risk.weights.bus", 0.30)
	viper.SetDefault("risk.weights.silos", 0.25)
	viper.SetDefault("risk.weights.churn", 0.25)
	viper.SetDefault("risk.weights.velocity", 0.20)
	viper.SetDefault("render.chart_width", defaultChartWidth())
	viper.SetDefault("render.chart_height", 15)
	viper.SetDefault("render.use_emoji", true)
	viper.SetDefault("sections.overview", true)
	viper.SetDefault("sections.time", true)
	viper.SetDefault("sections.team", true)
	viper.SetDefault("sections.quality", true)
	viper.SetDefault("sections.risk", true)
	viper.SetDefault("engine.max_commits", 50000)
	viper.SetDefault("engine.cache_size", 100)
	viper.SetDefault("engine.deadline_ms", 30000)
	viper.SetDefault("engine.cache_backend", "none")
	viper.SetDefault("engine.cache_db_connect", "")
}

// defaultChartWidth picks the chart width from the terminal when stdout is
// one, clamped to the documented default otherwise.
func defaultChartWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		if w > 120 {
			return 120
		}
		return w - 4
	}
	return 60
}

// buildRawInput extracts every resolved viper value into the raw input
// struct the contract package validates.
func buildRawInput() contract.RawInput {
	return contract.RawInput{
		RepoPath:              viper.GetString("repo"),
		Format:                viper.GetString("format"),
		Since:                 viper.GetString("since"),
		Until:                 viper.GetString("until"),
		Range:                 viper.GetBool("range"),
		NoEmoji:               viper.GetBool("no-emoji"),
		NoCache:               viper.GetBool("no-cache"),
		VelocityWindowDays:    viper.GetInt("time.velocity_window_days"),
		PeakThreshold:         viper.GetFloat64("time.peak_threshold"),
		BusFactorCutoff:       viper.GetFloat64("time.bus_factor_cutoff"),
		OwnershipHalfLifeDays: viper.GetInt("team.ownership_half_life_days"),
		SiloThreshold:         viper.GetFloat64("team.silo_threshold"),
		SiloDays:              viper.GetInt("team.silo_days"),
		CollabWindowDays:      viper.GetInt("team.collab_window_days"),
		ChurnThreshold:        viper.GetFloat64("quality.churn_threshold"),
		LargeChangeLines:      viper.GetInt("quality.large_change_lines"),
		RefactorKeywords:      viper.GetStringSlice("quality.refactor_keywords"),
		RiskWeightBus:         viper.GetFloat64("risk.weights.bus"),
		RiskWeightSilos:       viper.GetFloat64("risk.weights.silos"),
		RiskWeightChurn:       viper.GetFloat64("risk.weights.churn"),
		RiskWeightVelocity:    viper.GetFloat64("risk.weights.velocity"),
		ChartWidth:            viper.GetInt("render.chart_width"),
		ChartHeight:           viper.GetInt("render.chart_height"),
		UseEmoji:              viper.GetBool("render.use_emoji"),
		SectionOverview:       viper.GetBool("sections.overview"),
		SectionTime:           viper.GetBool("sections.time"),
		SectionTeam:           viper.GetBool("sections.team"),
		SectionQuality:        viper.GetBool("sections.quality"),
		SectionRisk:           viper.GetBool("sections.risk"),
		MaxCommits:            viper.GetInt("engine.max_commits"),
		CacheSize:             viper.GetInt("engine.cache_size"),
		DeadlineMS:            viper.GetInt("engine.deadline_ms"),
	}
}

// sharedSetup unmarshals config, runs validation, and constructs the engine.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	validated, err := contract.ProcessAndValidate(buildRawInput())
	if err != nil {
		return err
	}
	cfg = validated

	eng = engine.New(client, cfg.CacheSize)
	if backend := iocache.Backend(viper.GetString("engine.cache_backend")); backend != iocache.BackendNone && backend != "" {
		store, err := iocache.Open(ctx, backend, viper.GetString("engine.cache_db_connect"))
		if err != nil {
			return err
		}
		eng.SetCacheStore(store)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// header prints the colored report header line, confined to the CLI layer
// so the core never emits ANSI color.
func header(repoPath string) {
	bold := color.New(color.Bold, color.FgCyan)
	_, _ = bold.Printf("beacon %s :: %s\n\n", version, repoPath)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		contract.LogFatal("command failed", err)
		return exitCodeFor(err)
	}
	return ExitOK
}

// exitCodeFor maps error kinds onto the documented exit codes.
func exitCodeFor(err error) int {
	kind, ok := contract.Kind(err)
	if !ok {
		return ExitError
	}
	switch kind {
	case contract.KindInvalidWindow, contract.KindWindowTooLarge:
		return ExitInvalidArgs
	case contract.KindRepoNotFound:
		return ExitRepoNotFound
	case contract.KindInvalidCommitRef:
		return ExitCommitNotFound
	default:
		return ExitError
	}
}
