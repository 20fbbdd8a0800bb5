// Package timeanalyzer computes velocity, activity heatmap, and bus factor
// from a CommitDataset. Every function here is pure: it reads the dataset
// and config and allocates a fresh output.
package timeanalyzer

import (
	"sort"
	"time"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
	"gonum.org/v1/gonum/stat"
)

const defaultTrendEpsilon = 0.05 // commits/day^2

// Velocity computes daily commit counts, a 7-day rolling average, and a
// trend direction from the least-squares slope of the daily series.
func Velocity(ds *schema.CommitDataset, cfg contract.Config) schema.VelocityTrends {
	days := windowDays(ds.Window)
	daily := make(map[string]int, len(days))
	for _, d := range days {
		daily[d] = len(ds.CommitsByDay(d))
	}

	if len(days) == 0 {
		return schema.VelocityTrends{DailyVelocity: daily, TrendDirection: schema.TrendStable}
	}

	weeklyAvg := rollingAverage(days, daily, cfg.VelocityWindowDays)
	direction := trendDirection(days, daily)
	peak := peakDay(days, daily)

	return schema.VelocityTrends{
		DailyVelocity:  daily,
		WeeklyAverage:  weeklyAvg,
		TrendDirection: direction,
		Peak:           peak,
	}
}

// Heatmap buckets commits by (ISO weekday, UTC hour).
func Heatmap(ds *schema.CommitDataset) schema.ActivityHeatmap {
	var h schema.ActivityHeatmap
	for _, c := range ds.Commits {
		wd := int(c.CommittedAt.Weekday())
		if wd == 0 {
			wd = 7 // ISO weekday: Sunday = 7
		}
		hr := c.CommittedAt.Hour()
		h.Counts[wd-1][hr]++
	}

	best := -1
	for d := 1; d <= 7; d++ {
		for hr := 0; hr < 24; hr++ {
			v := h.Counts[d-1][hr]
			if v > best {
				best = v
				h.PeakDay = d
				h.PeakHr = hr
			}
		}
	}
	if best <= 0 {
		h.PeakDay, h.PeakHr = 0, 0
	}
	return h
}

// BusFactor computes the smallest k such that the top-k authors by commit
// count account for at least cutoff of all commits.
func BusFactor(ds *schema.CommitDataset, cutoff float64) schema.BusFactor {
	total := len(ds.Commits)
	if total == 0 {
		return schema.BusFactor{K: 0, RiskLevel: schema.RiskLow}
	}

	counts := map[string]int{}
	for _, c := range ds.Commits {
		counts[schema.AuthorIdentity(c.Author)]++
	}
	ranked := make([]schema.AuthorShare, 0, len(counts))
	for a, n := range counts {
		ranked = append(ranked, schema.AuthorShare{Author: a, Share: float64(n) / float64(total)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Share != ranked[j].Share {
			return ranked[i].Share > ranked[j].Share
		}
		return ranked[i].Author < ranked[j].Author
	})

	cum := 0.0
	k := 0
	for _, r := range ranked {
		cum += r.Share
		k++
		if cum >= cutoff {
			break
		}
	}

	var level schema.RiskLevel
	switch {
	case k == 1:
		level = schema.RiskCritical
	case k == 2:
		level = schema.RiskHigh
	case k == 3:
		level = schema.RiskMedium
	default:
		level = schema.RiskLow
	}

	return schema.BusFactor{K: k, Ranked: ranked, RiskLevel: level}
}

func windowDays(w schema.Window) []string {
	if w.Since.IsZero() || w.Until.IsZero() || !w.Since.Before(w.Until) {
		return nil
	}
	var days []string
	for d := w.Since.UTC().Truncate(24 * time.Hour); d.Before(w.Until); d = d.Add(24 * time.Hour) {
		days = append(days, d.Format("2006-01-02"))
	}
	return days
}

func rollingAverage(days []string, daily map[string]int, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = 7
	}
	total := 0
	for _, d := range days {
		total += daily[d]
	}
	// Edge days included: this is the mean daily rate scaled to the
	// configured rolling window, not a sliding-window series.
	return float64(total) / float64(len(days)) * float64(windowDays)
}

func trendDirection(days []string, daily map[string]int) schema.TrendDirection {
	if len(days) < 2 {
		return schema.TrendStable
	}
	xs := make([]float64, len(days))
	ys := make([]float64, len(days))
	for i, d := range days {
		xs[i] = float64(i)
		ys[i] = float64(daily[d])
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	switch {
	case slope > defaultTrendEpsilon:
		return schema.TrendIncreasing
	case slope < -defaultTrendEpsilon:
		return schema.TrendDecreasing
	default:
		return schema.TrendStable
	}
}

func peakDay(days []string, daily map[string]int) schema.DayValue {
	best := schema.DayValue{Date: days[0], Value: daily[days[0]]}
	for _, d := range days[1:] {
		if daily[d] > best.Value {
			best = schema.DayValue{Date: d, Value: daily[d]}
		}
	}
	return best
}
