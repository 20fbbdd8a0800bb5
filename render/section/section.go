// Package section composes analyzer outputs and render package charts into
// the report's text sections: one renderer per analyzer output, plus the
// risk aggregation section. Each renderer is a pure function of its input
// and the run configuration.
package section

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/render"
	"github.com/gitbeacon/beacon/schema"
)

// Renderer renders exactly one analyzer output (or the full risk
// aggregation) into w. The report package holds an ordered slice of renderers so
// section order is stable and section visibility is config-driven.
type Renderer interface {
	Render(w io.Writer, input any, cfg *contract.Config) error
}

func emoji(cfg *contract.Config, glyph string) string {
	if cfg.UseEmoji {
		return glyph + " "
	}
	return ""
}

// OverviewRenderer renders the window totals section.
type OverviewRenderer struct{}

// Render implements Renderer. input must be *schema.CommitDataset.
func (OverviewRenderer) Render(w io.Writer, input any, cfg *contract.Config) error {
	ds, ok := input.(*schema.CommitDataset)
	if !ok {
		return fmt.Errorf("overview: unexpected input type %T", input)
	}
	fmt.Fprintf(w, "%sOverview\n", emoji(cfg, "📊"))
	if len(ds.Commits) == 0 {
		fmt.Fprintln(w, "  insufficient data: no commits in window")
		return nil
	}
	added, deleted := 0, 0
	files := map[string]bool{}
	for _, c := range ds.Commits {
		for _, f := range c.Files {
			added += f.LinesAdded
			deleted += f.LinesDeleted
			files[f.Path] = true
		}
	}
	fmt.Fprintf(w, "  commits: %s\n", humanize.Comma(int64(len(ds.Commits))))
	fmt.Fprintf(w, "  files changed: %s\n", humanize.Comma(int64(len(files))))
	fmt.Fprintf(w, "  lines: +%s / -%s\n", humanize.Comma(int64(added)), humanize.Comma(int64(deleted)))
	fmt.Fprintf(w, "  window: %s to %s\n", ds.Window.Since.Format(time.RFC3339), ds.Window.Until.Format(time.RFC3339))
	return nil
}

// TimeInput bundles the three TimeAnalyzer outputs for one section render.
// The JSON tags define the "time" object of the documented range schema.
type TimeInput struct {
	Velocity schema.VelocityTrends  `json:"velocity"`
	Heatmap  schema.ActivityHeatmap `json:"heatmap"`
	Bus      schema.BusFactor       `json:"bus_factor"`
}

// TimeRenderer renders velocity, heatmap, and bus-factor.
type TimeRenderer struct{}

func (TimeRenderer) Render(w io.Writer, input any, cfg *contract.Config) error {
	in, ok := input.(TimeInput)
	if !ok {
		return fmt.Errorf("time: unexpected input type %T", input)
	}
	fmt.Fprintf(w, "%sTime & Velocity\n", emoji(cfg, "⏱"))
	if in.Velocity.Partial {
		fmt.Fprintln(w, "  insufficient data")
		return nil
	}
	fmt.Fprintf(w, "  weekly average: %.2f commits\n", in.Velocity.WeeklyAverage)
	fmt.Fprintf(w, "  trend: %s\n", in.Velocity.TrendDirection)
	if in.Velocity.Peak.Date != "" {
		spike := ""
		if avgDaily := in.Velocity.WeeklyAverage / 7; cfg.PeakThreshold > 0 && float64(in.Velocity.Peak.Value) >= cfg.PeakThreshold*avgDaily {
			spike = " [spike]"
		}
		fmt.Fprintf(w, "  peak day: %s (%d commits)%s\n", in.Velocity.Peak.Date, in.Velocity.Peak.Value, spike)
	}
	fmt.Fprintf(w, "  bus factor: %d (%s)\n", in.Bus.K, in.Bus.RiskLevel)

	if len(in.Velocity.DailyVelocity) > 0 {
		points := dailyVelocityPoints(in.Velocity.DailyVelocity)
		chart := render.Line(points, cfg.ChartWidth, cfg.ChartHeight)
		if chart != "" {
			fmt.Fprintln(w, chart)
		}
	}
	if in.Heatmap.PeakDay > 0 {
		fmt.Fprintf(w, "  activity peak: weekday %d, hour %02d UTC\n", in.Heatmap.PeakDay, in.Heatmap.PeakHr)
	}
	return nil
}

func dailyVelocityPoints(daily map[string]int) []render.Point {
	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	points := make([]render.Point, len(days))
	for i, d := range days {
		points[i] = render.Point{X: float64(i), Y: float64(daily[d])}
	}
	return points
}

// TeamInput bundles TeamAnalyzer outputs for one section render.
type TeamInput struct {
	Ownership          schema.OwnershipMap       `json:"ownership"`
	CoAuthorship       schema.CoAuthorshipMatrix `json:"co_authorship"`
	Silos              []schema.KnowledgeSilo    `json:"knowledge_silos"`
	CollaborationScore float64                   `json:"collaboration_score"`
}

// TeamRenderer renders ownership, co-authorship, and knowledge silos.
type TeamRenderer struct{}

func (TeamRenderer) Render(w io.Writer, input any, cfg *contract.Config) error {
	in, ok := input.(TeamInput)
	if !ok {
		return fmt.Errorf("team: unexpected input type %T", input)
	}
	fmt.Fprintf(w, "%sTeam & Ownership\n", emoji(cfg, "👥"))
	if in.Ownership.Partial {
		fmt.Fprintln(w, "  insufficient data")
		return nil
	}
	fmt.Fprintf(w, "  collaboration score: %.1f/10\n", in.CollaborationScore)
	if len(in.Silos) == 0 {
		fmt.Fprintln(w, "  no knowledge silos detected")
	} else {
		fmt.Fprintf(w, "  knowledge silos: %d\n", len(in.Silos))
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Path", "Owner", "Share", "Risk"})
		table.Configure(func(c *tablewriter.Config) { c.Row.Alignment.Global = tw.AlignLeft })
		var rows [][]string
		for _, s := range in.Silos {
			rows = append(rows, []string{s.Path, s.PrimaryAuthor, fmt.Sprintf("%.0f%%", s.OwnershipShare*100), string(s.RiskLevel)})
		}
		_ = table.Bulk(rows)
		_ = table.Render()
	}
	if len(in.CoAuthorship.TopPairs) > 0 {
		top := in.CoAuthorship.TopPairs
		if len(top) > 5 {
			top = top[:5]
		}
		fmt.Fprintln(w, "  top collaborating pairs:")
		for _, p := range top {
			fmt.Fprintf(w, "    %s <-> %s: %.2f\n", p.A, p.B, p.Score)
		}
	}
	return nil
}

// QualityInput bundles QualityAnalyzer outputs for one section render.
type QualityInput struct {
	Churn           schema.ChurnMetrics      `json:"churn"`
	ComplexityTrend map[string]float64       `json:"complexity_trend"`
	LargeChanges    []schema.LargeChange     `json:"large_changes"`
	Refactors       schema.RefactoringSignal `json:"refactors"`
}

// QualityRenderer renders churn, large changes, and refactor signals.
type QualityRenderer struct{}

func (QualityRenderer) Render(w io.Writer, input any, cfg *contract.Config) error {
	in, ok := input.(QualityInput)
	if !ok {
		return fmt.Errorf("quality: unexpected input type %T", input)
	}
	fmt.Fprintf(w, "%sQuality & Churn\n", emoji(cfg, "🛠"))
	if in.Churn.Partial {
		fmt.Fprintln(w, "  insufficient data")
		return nil
	}
	fmt.Fprintf(w, "  global churn ratio: %.2f\n", in.Churn.GlobalChurnRatio)
	if len(in.Churn.HighChurnFiles) > 0 {
		fmt.Fprintf(w, "  high-churn files: %d\n", len(in.Churn.HighChurnFiles))
	}
	fmt.Fprintf(w, "  large changes: %d\n", len(in.LargeChanges))
	fmt.Fprintf(w, "  refactor commits: %d\n", len(in.Refactors.Hashes))
	return nil
}

// RiskRenderer renders the aggregated RiskReport with its recommendations.
type RiskRenderer struct{}

func (RiskRenderer) Render(w io.Writer, input any, cfg *contract.Config) error {
	report, ok := input.(schema.RiskReport)
	if !ok {
		return fmt.Errorf("risk: unexpected input type %T", input)
	}
	fmt.Fprintf(w, "%sRisk Assessment\n", emoji(cfg, "⚠"))
	fmt.Fprintf(w, "  overall: %.2f (%s)\n", report.OverallScore, report.Level)
	for _, ind := range report.Indicators {
		fmt.Fprintf(w, "  - %s: %s (score %.2f): %s\n", ind.Name, ind.Level, ind.Score, ind.Description)
	}
	if len(report.Recommendations) > 0 {
		fmt.Fprintln(w, "  recommendations:")
		for _, r := range report.Recommendations {
			fmt.Fprintf(w, "    * %s\n", r)
		}
	}
	return nil
}
