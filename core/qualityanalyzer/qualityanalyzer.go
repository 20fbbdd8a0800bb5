// Package qualityanalyzer computes churn, complexity trend, large-change,
// and refactor-pattern signals from a CommitDataset.
package qualityanalyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
	"gonum.org/v1/gonum/stat"
)

var refactorMessagePattern = regexp.MustCompile(`(?i)refactor|cleanup|rename|reorg`)
var fixMessagePattern = regexp.MustCompile(`(?i)fix|bug|hotfix`)

// Churn computes global and per-file churn ratios and flags high-churn
// files.
func Churn(ds *schema.CommitDataset, cfg contract.Config) schema.ChurnMetrics {
	threshold := cfg.ChurnThreshold
	if threshold == 0 {
		threshold = 0.6
	}

	var totalAdd, totalDel int
	fileAdd := map[string]int{}
	fileDel := map[string]int{}
	fileChanges := map[string]int{}
	for _, c := range ds.Commits {
		for _, f := range c.Files {
			totalAdd += f.LinesAdded
			totalDel += f.LinesDeleted
			fileAdd[f.Path] += f.LinesAdded
			fileDel[f.Path] += f.LinesDeleted
			fileChanges[f.Path]++
		}
	}

	globalRatio := 0.0
	if totalAdd+totalDel > 0 {
		globalRatio = float64(totalDel) / float64(totalAdd+totalDel)
	}

	perFile := map[string]float64{}
	var high []string
	for path, add := range fileAdd {
		del := fileDel[path]
		ratio := 0.0
		if add+del > 0 {
			ratio = float64(del) / float64(add+del)
		}
		perFile[path] = ratio
		if fileChanges[path] >= 3 && ratio >= threshold {
			high = append(high, path)
		}
	}
	sort.Strings(high)

	return schema.ChurnMetrics{GlobalChurnRatio: globalRatio, PerFile: perFile, HighChurnFiles: high}
}

// ComplexityTrend approximates each file's size over time as a cumulative
// net-change series and returns the linear growth rate (lines/day).
func ComplexityTrend(ds *schema.CommitDataset) map[string]float64 {
	type point struct {
		day float64
		net float64
	}
	series := map[string][]point{}
	startDay := ds.Window.Since

	for _, c := range ds.Commits {
		dayOffset := c.CommittedAt.Sub(startDay).Hours() / 24
		for _, f := range c.Files {
			series[f.Path] = append(series[f.Path], point{day: dayOffset, net: float64(f.LinesAdded - f.LinesDeleted)})
		}
	}

	result := map[string]float64{}
	for path, pts := range series {
		sort.Slice(pts, func(i, j int) bool { return pts[i].day < pts[j].day })
		xs := make([]float64, len(pts))
		ys := make([]float64, len(pts))
		cumulative := 0.0
		for i, p := range pts {
			cumulative += p.net
			xs[i] = p.day
			ys[i] = cumulative
		}
		if len(pts) < 2 {
			result[path] = 0
			continue
		}
		_, slope := stat.LinearRegression(xs, ys, nil, false)
		result[path] = slope
	}
	return result
}

// LargeChanges flags commits whose size exceeds the window's empirical 95th
// percentile or the configured absolute threshold, and classifies each by
// message keyword.
func LargeChanges(ds *schema.CommitDataset, cfg contract.Config) []schema.LargeChange {
	absThreshold := float64(cfg.LargeChangeLines)
	if absThreshold == 0 {
		absThreshold = 500
	}

	sizes := make([]float64, len(ds.Commits))
	for i, c := range ds.Commits {
		sizes[i] = float64(c.LinesAdded() + c.LinesDeleted())
	}
	p95 := percentile95(sizes)
	// A commit is large if it exceeds the empirical p95 OR the absolute
	// threshold; the score is relative to whichever bound is tighter.
	scoreThreshold := absThreshold
	if p95 < scoreThreshold {
		scoreThreshold = p95
	}

	var out []schema.LargeChange
	for i, c := range ds.Commits {
		size := sizes[i]
		if size <= p95 && size <= absThreshold {
			continue
		}
		score := 1.0
		if scoreThreshold > 0 {
			score = size / scoreThreshold
		}
		if score > 1 {
			score = 1
		}
		out = append(out, schema.LargeChange{
			CommitHash:     c.Hash,
			SizeScore:      score,
			Classification: classify(c),
		})
	}
	return out
}

// Refactors flags commits matching the refactor pattern: high churn with
// near-zero net change, or a refactor-keyword match in the message.
func Refactors(ds *schema.CommitDataset, cfg contract.Config) schema.RefactoringSignal {
	hashes := map[string]bool{}
	for _, c := range ds.Commits {
		add, del := c.LinesAdded(), c.LinesDeleted()
		total := add + del
		churnRatio := 0.0
		if total > 0 {
			churnRatio = float64(del) / float64(total)
		}
		net := add - del
		if net < 0 {
			net = -net
		}
		highChurnNearZeroNet := total > 0 && churnRatio >= 0.5 && float64(net) <= 0.1*float64(total)
		if highChurnNearZeroNet || matchesKeywords(c.Message, cfg.RefactorKeywords) {
			hashes[c.Hash] = true
		}
	}
	return schema.RefactoringSignal{Hashes: hashes}
}

func matchesKeywords(message string, keywords []string) bool {
	if len(keywords) == 0 {
		return refactorMessagePattern.MatchString(message)
	}
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func classify(c schema.Commit) string {
	if strings.TrimSpace(c.Message) == "" || c.IsMerge() {
		return "unknown"
	}
	switch {
	case fixMessagePattern.MatchString(c.Message):
		return "fix"
	case refactorMessagePattern.MatchString(c.Message):
		return "refactor"
	default:
		return "feature"
	}
}

func percentile95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(0.95 * float64(len(sorted)-1))
	return sorted[idx]
}
