package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/report"
	"github.com/gitbeacon/beacon/schema"
)

// Compare runs the pipeline over two windows of the same repository and
// reports per-file deltas plus summary movements in churn and risk. baseCfg
// and targetCfg carry their own since/until specs; everything else should
// normally be identical between the two.
func (e *Engine) Compare(ctx context.Context, repoPath string, baseCfg, targetCfg contract.Config) (schema.ComparisonResult, error) {
	baseWindow, err := resolveWindow(baseCfg)
	if err != nil {
		return schema.ComparisonResult{}, err
	}
	targetWindow, err := resolveWindow(targetCfg)
	if err != nil {
		return schema.ComparisonResult{}, err
	}

	base, err := e.runWindow(ctx, repoPath, baseWindow, baseCfg)
	if err != nil {
		return schema.ComparisonResult{}, err
	}
	target, err := e.runWindow(ctx, repoPath, targetWindow, targetCfg)
	if err != nil {
		return schema.ComparisonResult{}, err
	}

	result := schema.ComparisonResult{
		Base:   summarize(base),
		Target: summarize(target),
	}
	result.DeltaRiskScore = result.Target.RiskScore - result.Base.RiskScore

	baseStats := fileStats(base.Dataset)
	targetStats := fileStats(target.Dataset)

	paths := map[string]bool{}
	for p := range baseStats {
		paths[p] = true
	}
	for p := range targetStats {
		paths[p] = true
	}

	for p := range paths {
		b, inBase := baseStats[p]
		t, inTarget := targetStats[p]
		delta := schema.FileDelta{
			Path:         p,
			DeltaCommits: t.commits - b.commits,
			DeltaChurn:   t.churn - b.churn,
			DeltaRatio:   t.ratio - b.ratio,
			BaseOwner:    topOwner(base.Team.Ownership, p),
			TargetOwner:  topOwner(target.Team.Ownership, p),
			New:          !inBase,
			Inactive:     !inTarget,
		}
		delta.OwnerChanged = inBase && inTarget && delta.BaseOwner != delta.TargetOwner
		if delta.New {
			result.NewFiles++
		}
		if delta.Inactive {
			result.InactiveFiles++
		}
		if delta.OwnerChanged {
			result.OwnerChanges++
		}
		result.DeltaChurn += delta.DeltaChurn
		result.Files = append(result.Files, delta)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		di, dj := absInt(result.Files[i].DeltaChurn), absInt(result.Files[j].DeltaChurn)
		if di != dj {
			return di > dj
		}
		return result.Files[i].Path < result.Files[j].Path
	})

	return result, nil
}

// Timeseries divides the resolved window into points equal sub-windows and
// runs the pipeline over each, oldest first. Sub-window results share the
// same LRU cache as regular runs.
func (e *Engine) Timeseries(ctx context.Context, repoPath string, cfg contract.Config, points int) ([]schema.TimeseriesPoint, error) {
	if points < 1 {
		return nil, contract.WithKind(contract.KindInvalidWindow, fmt.Errorf("timeseries requires at least 1 point, got %d", points))
	}
	window, err := resolveWindow(cfg)
	if err != nil {
		return nil, err
	}

	span := window.Until.Sub(window.Since)
	step := span / time.Duration(points)
	if step <= 0 {
		return nil, contract.WithKind(contract.KindInvalidWindow, fmt.Errorf("window %s too narrow for %d points", span, points))
	}

	out := make([]schema.TimeseriesPoint, 0, points)
	for i := 0; i < points; i++ {
		sub := schema.Window{Since: window.Since.Add(time.Duration(i) * step), Until: window.Since.Add(time.Duration(i+1) * step)}
		if i == points-1 {
			sub.Until = window.Until // absorb division remainder
		}
		bundle, err := e.runWindow(ctx, repoPath, sub, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.TimeseriesPoint{Summary: summarize(bundle)})
	}
	return out, nil
}

// Check runs the pipeline once and gates the summary against thresholds,
// for CI pipelines that fail the build on risk regressions.
func (e *Engine) Check(ctx context.Context, repoPath string, cfg contract.Config, thresholds schema.CheckThresholds) (schema.CheckResult, error) {
	bundle, err := e.Run(ctx, repoPath, cfg)
	if err != nil {
		return schema.CheckResult{}, err
	}
	summary := summarize(bundle)

	var violations []schema.CheckViolation
	if thresholds.MaxRiskScore > 0 && summary.RiskScore > thresholds.MaxRiskScore {
		violations = append(violations, schema.CheckViolation{Name: "risk_score", Value: summary.RiskScore, Threshold: thresholds.MaxRiskScore})
	}
	if thresholds.MaxChurnRatio > 0 && summary.ChurnRatio > thresholds.MaxChurnRatio {
		violations = append(violations, schema.CheckViolation{Name: "churn_ratio", Value: summary.ChurnRatio, Threshold: thresholds.MaxChurnRatio})
	}
	if thresholds.MinBusFactor > 0 && summary.BusFactor > 0 && summary.BusFactor < thresholds.MinBusFactor {
		violations = append(violations, schema.CheckViolation{Name: "bus_factor", Value: float64(summary.BusFactor), Threshold: float64(thresholds.MinBusFactor)})
	}
	if thresholds.MaxSilos > 0 && len(bundle.Team.Silos) > thresholds.MaxSilos {
		violations = append(violations, schema.CheckViolation{Name: "knowledge_silos", Value: float64(len(bundle.Team.Silos)), Threshold: float64(thresholds.MaxSilos)})
	}

	return schema.CheckResult{Summary: summary, Violations: violations, Passed: len(violations) == 0}, nil
}

func summarize(b report.Bundle) schema.WindowSummary {
	s := schema.WindowSummary{
		Window:     b.Dataset.Window,
		Commits:    len(b.Dataset.Commits),
		ChurnRatio: b.Quality.Churn.GlobalChurnRatio,
		BusFactor:  b.Time.Bus.K,
		RiskScore:  b.Risk.OverallScore,
		RiskLevel:  b.Risk.Level,
	}
	for _, c := range b.Dataset.Commits {
		s.LinesAdded += c.LinesAdded()
		s.LinesDeleted += c.LinesDeleted()
	}
	return s
}

type perFileStat struct {
	commits int
	churn   int
	ratio   float64
}

func fileStats(ds *schema.CommitDataset) map[string]perFileStat {
	add := map[string]int{}
	del := map[string]int{}
	commits := map[string]int{}
	for _, c := range ds.Commits {
		seen := map[string]bool{}
		for _, f := range c.Files {
			add[f.Path] += f.LinesAdded
			del[f.Path] += f.LinesDeleted
			if !seen[f.Path] {
				commits[f.Path]++
				seen[f.Path] = true
			}
		}
	}
	out := make(map[string]perFileStat, len(add))
	for p := range add {
		st := perFileStat{commits: commits[p], churn: add[p] + del[p]}
		if st.churn > 0 {
			st.ratio = float64(del[p]) / float64(st.churn)
		}
		out[p] = st
	}
	return out
}

func topOwner(ownership schema.OwnershipMap, path string) string {
	shares := ownership.Files[path]
	if len(shares) == 0 {
		return ""
	}
	return shares[0].Author
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
