package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/internal/mcpserver"
	"github.com/gitbeacon/beacon/render"
	"github.com/gitbeacon/beacon/report"
	"github.com/gitbeacon/beacon/schema"
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(timeseriesCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a config file (default .beacon.yaml in . or $HOME)")
	pf.StringP("repo", "r", ".", "Path to the Git repository")
	pf.StringP("format", "f", "standard", "Output format: standard, extended, or json")
	pf.String("since", "7d", "Window start: relative (7d, 1w2d), absolute (YYYY-MM-DD), or 'now'")
	pf.String("until", "now", "Window end: relative, absolute, or 'now'")
	pf.Bool("range", false, "Produce a range report (the default without a commit argument)")
	pf.Bool("no-emoji", false, "Disable section header emoji")
	pf.Bool("no-cache", false, "Bypass the result cache for this invocation")

	for _, key := range []string{"config", "repo", "format", "since", "until", "range", "no-emoji", "no-cache"} {
		_ = viper.BindPFlag(key, pf.Lookup(key))
	}

	checkCmd.Flags().Float64("max-risk", 0.75, "Fail when the overall risk score exceeds this")
	checkCmd.Flags().Float64("max-churn", 0, "Fail when the global churn ratio exceeds this (0 disables)")
	checkCmd.Flags().Int("min-bus-factor", 0, "Fail when the bus factor is below this (0 disables)")
	checkCmd.Flags().Int("max-silos", 0, "Fail when more than this many knowledge silos exist (0 disables)")

	compareCmd.Flags().String("base-since", "", "Base window start (required)")
	compareCmd.Flags().String("base-until", "", "Base window end (defaults to the target window start)")
	_ = compareCmd.MarkFlagRequired("base-since")

	timeseriesCmd.Flags().Int("points", 4, "Number of equal sub-windows to sample")

	exportCmd.Flags().StringP("output", "o", "beacon.parquet", "Output parquet file path")
}

// commitRef matches the documented positional commit identifier: a hex
// prefix of at least 7 characters.
var commitRef = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// runCommitReport resolves ref, fetches the commit, and renders the
// single-commit report in the requested format.
func runCommitReport(ctx context.Context, ref string) error {
	if !commitRef.MatchString(ref) {
		return contract.WithKind(contract.KindInvalidCommitRef,
			fmt.Errorf("commit identifier %q must be a hex prefix of at least 7 characters", ref))
	}

	at, err := client.Resolve(ctx, cfg.RepoPath, ref)
	if err != nil {
		return err
	}
	window := schema.Window{Since: at, Until: at.Add(time.Second)}
	raw, err := client.Query(ctx, cfg.RepoPath, window)
	if err != nil {
		return err
	}
	var found *schema.Commit
	for i := range raw.Commits {
		if len(ref) <= len(raw.Commits[i].Hash) && raw.Commits[i].Hash[:len(ref)] == ref {
			found = &raw.Commits[i]
			break
		}
	}
	if found == nil {
		return contract.WithKind(contract.KindInvalidCommitRef, fmt.Errorf("no commit matching %q", ref))
	}

	if cfg.Format == "json" {
		return report.ToJSON(os.Stdout, found, nil)
	}
	header(cfg.RepoPath)
	return report.FormatCommit(os.Stdout, *found, cfg.Format == "extended")
}

// runRangeReport runs the full pipeline and renders the range report.
func runRangeReport(ctx context.Context) error {
	if cfg.Format == "json" {
		data, err := eng.RunJSON(ctx, cfg.RepoPath, cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	bundle, err := eng.Run(ctx, cfg.RepoPath, cfg)
	if err != nil {
		return err
	}
	header(cfg.RepoPath)
	return report.FormatRange(os.Stdout, bundle, cfg)
}

// checkCmd gates CI pipelines on risk thresholds.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Enforce risk thresholds for CI pipelines (fails build on violations)",
	Long: `Run the analysis once and compare the summary against thresholds, exiting
non-zero when any threshold is violated.

Examples:
  # Block merges when the sprint's risk score exceeds 0.6
  beacon check --since 2w --max-risk 0.6

  # Also require at least two active contributors
  beacon check --max-risk 0.75 --min-bus-factor 2`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		thresholds := schema.CheckThresholds{
			MaxRiskScore:  mustFloat(cmd, "max-risk"),
			MaxChurnRatio: mustFloat(cmd, "max-churn"),
			MinBusFactor:  mustInt(cmd, "min-bus-factor"),
			MaxSilos:      mustInt(cmd, "max-silos"),
		}
		result, err := eng.Check(rootCtx, cfg.RepoPath, cfg, thresholds)
		if err != nil {
			return err
		}
		if cfg.Format == "json" {
			return jsonOut(result)
		}
		fmt.Printf("risk score: %.2f (%s), churn ratio: %.2f, bus factor: %d\n",
			result.Summary.RiskScore, result.Summary.RiskLevel, result.Summary.ChurnRatio, result.Summary.BusFactor)
		for _, v := range result.Violations {
			fmt.Printf("violation: %s %.2f exceeds threshold %.2f\n", v.Name, v.Value, v.Threshold)
		}
		if !result.Passed {
			return fmt.Errorf("%d violation(s) found", len(result.Violations))
		}
		fmt.Println("check passed")
		return nil
	},
}

// compareCmd compares two windows of the same repository.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two time windows and report per-file and risk deltas",
	Long: `Run the analysis over a base window and a target window and report what
moved: churn, commits, risk score, ownership handoffs, and new or inactive
files.

Examples:
  # This sprint vs. the previous one
  beacon compare --base-since 4w --base-until 2w --since 2w

  # Quarter over quarter, as JSON
  beacon compare --base-since 26w --base-until 13w --since 13w --format json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		baseCfg := cfg
		baseCfg.Since = mustString(cmd, "base-since")
		baseCfg.Until = mustString(cmd, "base-until")
		if baseCfg.Until == "" {
			baseCfg.Until = cfg.Since
		}

		result, err := eng.Compare(rootCtx, cfg.RepoPath, baseCfg, cfg)
		if err != nil {
			return err
		}
		if cfg.Format == "json" {
			return jsonOut(result)
		}
		printComparison(result)
		return nil
	},
}

func printComparison(result schema.ComparisonResult) {
	fmt.Printf("base:   %d commits, +%d/-%d, risk %.2f (%s)\n",
		result.Base.Commits, result.Base.LinesAdded, result.Base.LinesDeleted, result.Base.RiskScore, result.Base.RiskLevel)
	fmt.Printf("target: %d commits, +%d/-%d, risk %.2f (%s)\n",
		result.Target.Commits, result.Target.LinesAdded, result.Target.LinesDeleted, result.Target.RiskScore, result.Target.RiskLevel)
	fmt.Printf("delta:  risk %+.2f, churn %+d, new files %d, inactive files %d, owner changes %d\n",
		result.DeltaRiskScore, result.DeltaChurn, result.NewFiles, result.InactiveFiles, result.OwnerChanges)

	limit := 10
	if len(result.Files) < limit {
		limit = len(result.Files)
	}
	for _, d := range result.Files[:limit] {
		marker := ""
		switch {
		case d.New:
			marker = " (new)"
		case d.Inactive:
			marker = " (inactive)"
		case d.OwnerChanged:
			marker = " (owner: " + d.BaseOwner + " -> " + d.TargetOwner + ")"
		}
		fmt.Printf("  %s: commits %+d, churn %+d%s\n", d.Path, d.DeltaCommits, d.DeltaChurn, marker)
	}
}

// timeseriesCmd samples the window into equal sub-windows.
var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Track how velocity and risk change across sub-windows of the range",
	Long: `Divide the resolved window into equal sub-windows, analyze each, and show
the trajectory of commits, churn, and risk, oldest first.

Examples:
  # Six sprint-sized samples over a quarter
  beacon timeseries --since 12w --points 6

  # Machine-readable trend for dashboards
  beacon timeseries --since 1y --points 12 --format json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		points, err := cmd.Flags().GetInt("points")
		if err != nil {
			return err
		}
		series, err := eng.Timeseries(rootCtx, cfg.RepoPath, cfg, points)
		if err != nil {
			return err
		}
		if cfg.Format == "json" {
			return jsonOut(series)
		}
		header(cfg.RepoPath)
		riskPoints := make([]render.Point, len(series))
		var peak, total float64
		for i, p := range series {
			fmt.Printf("%s  commits=%-5d churn=+%d/-%d  risk=%.2f (%s)\n",
				p.Summary.Window.Since.Format("2006-01-02"), p.Summary.Commits,
				p.Summary.LinesAdded, p.Summary.LinesDeleted, p.Summary.RiskScore, p.Summary.RiskLevel)
			riskPoints[i] = render.Point{X: float64(i), Y: p.Summary.RiskScore}
			if p.Summary.RiskScore > peak {
				peak = p.Summary.RiskScore
			}
			total += p.Summary.RiskScore
		}
		if len(series) > 1 {
			current := series[len(series)-1].Summary.RiskScore
			chart := render.Trend(riskPoints, cfg.ChartWidth, cfg.ChartHeight, render.TrendSummary{
				Direction: trendLabel(series),
				Current:   current,
				Peak:      peak,
				Average:   total / float64(len(series)),
			})
			if chart != "" {
				fmt.Println(chart)
			}
		}
		return nil
	},
}

func trendLabel(series []schema.TimeseriesPoint) string {
	first := series[0].Summary.RiskScore
	last := series[len(series)-1].Summary.RiskScore
	switch {
	case last > first:
		return "risk increasing"
	case last < first:
		return "risk decreasing"
	default:
		return "risk stable"
	}
}

// exportCmd writes the per-file window metrics as a parquet file.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export per-file window metrics to a parquet file",
	Long: `Run the analysis and flatten per-file metrics (commits, churn, growth rate,
ownership, silo flag) into a parquet file for warehouse ingestion.

Examples:
  beacon export --since 4w -o sprint.parquet`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		output := mustString(cmd, "output")
		bundle, err := eng.Run(rootCtx, cfg.RepoPath, cfg)
		if err != nil {
			return err
		}
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		if err := report.ExportParquet(f, bundle); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", output)
		return nil
	},
}

// mcpCmd starts the MCP server over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the beacon MCP server",
	Long:  `Launch an MCP server that lets AI agents run range and commit analysis via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Headers and color stay off stdio, which carries the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcpserver.Serve(rootCtx, cfg, client, eng)
	},
}

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of beacon.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit: %s\n", commit)
		cmd.Printf("  Built: %s\n", date)
		cmd.Printf("  Go: %s\n", runtime.Version())
	},
}

func jsonOut(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func mustFloat(cmd *cobra.Command, name string) float64 {
	v, _ := cmd.Flags().GetFloat64(name)
	return v
}

func mustInt(cmd *cobra.Command, name string) int {
	v, _ := cmd.Flags().GetInt(name)
	return v
}
