// Package riskassessor aggregates analyzer outputs into a single scored
// RiskReport, tolerant of missing (partial/nil) inputs.
package riskassessor

import (
	"sort"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
)

// recommendation templates, keyed by indicator name, applied in a fixed
// order so output is deterministic across runs.
var recommendationOrder = []string{"bus_factor", "knowledge_silos", "churn", "velocity_trend"}

var recommendationTemplates = map[string]string{
	"bus_factor":      "Spread ownership of critical files across more contributors.",
	"knowledge_silos": "Pair or rotate reviewers on single-owner files to reduce silo risk.",
	"churn":           "Investigate files with high churn for design instability.",
	"velocity_trend":  "Commit velocity is declining; review team capacity or blockers.",
}

// Assess aggregates the analyzer bundle into a RiskReport, skipping any nil
// or partial indicator and re-normalizing the remaining weights so they still sum to 1.
func Assess(bundle schema.AnalyzerBundle, cfg contract.Config) schema.RiskReport {
	weights := cfg.RiskWeights
	if weights == (contract.RiskWeights{}) {
		weights = contract.RiskWeights{Bus: 0.30, Silos: 0.25, Churn: 0.25, Velocity: 0.20}
	}

	var indicators []schema.RiskIndicator
	weightByName := map[string]float64{}

	if bundle.Bus != nil && !bundle.Bus.Partial {
		ind := busFactorIndicator(*bundle.Bus)
		indicators = append(indicators, ind)
		weightByName["bus_factor"] = weights.Bus
	}
	if !bundle.SilosPartial {
		// An empty slice is a real result (zero silos found), not a missing
		// analyzer; only a cancelled run drops the indicator.
		ind := siloIndicator(bundle.Silos)
		indicators = append(indicators, ind)
		weightByName["knowledge_silos"] = weights.Silos
	}
	if bundle.Churn != nil && !bundle.Churn.Partial {
		ind := churnIndicator(*bundle.Churn)
		indicators = append(indicators, ind)
		weightByName["churn"] = weights.Churn
	}
	if bundle.Velocity != nil && !bundle.Velocity.Partial {
		ind := velocityIndicator(*bundle.Velocity)
		indicators = append(indicators, ind)
		weightByName["velocity_trend"] = weights.Velocity
	}

	totalWeight := 0.0
	for _, w := range weightByName {
		totalWeight += w
	}

	overall := 0.0
	if totalWeight > 0 {
		for _, ind := range indicators {
			overall += ind.Score * (weightByName[ind.Name] / totalWeight)
		}
	}

	level := levelFor(overall)

	recs := make([]string, 0, len(indicators))
	firing := map[string]bool{}
	for _, ind := range indicators {
		if ind.Level != schema.RiskLow {
			firing[ind.Name] = true
		}
	}
	for _, name := range recommendationOrder {
		if firing[name] {
			recs = append(recs, recommendationTemplates[name])
		}
	}

	sort.SliceStable(indicators, func(i, j int) bool {
		return indexOf(recommendationOrder, indicators[i].Name) < indexOf(recommendationOrder, indicators[j].Name)
	})

	return schema.RiskReport{
		Indicators:      indicators,
		OverallScore:    overall,
		Level:           level,
		Recommendations: recs,
	}
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return len(order)
}

func busFactorIndicator(bf schema.BusFactor) schema.RiskIndicator {
	var level schema.RiskLevel
	var score float64
	switch {
	case bf.K == 0:
		level, score = schema.RiskLow, 0.2
	case bf.K <= 1:
		level, score = schema.RiskCritical, 0.9
	case bf.K == 2:
		level, score = schema.RiskHigh, 0.7
	case bf.K >= 4:
		level, score = schema.RiskLow, 0.2
	default:
		level, score = schema.RiskMedium, 0.5
	}
	return schema.RiskIndicator{
		Name:        "bus_factor",
		Level:       level,
		Score:       score,
		Description: "Ownership concentration across top contributors",
		Mitigation:  recommendationTemplates["bus_factor"],
	}
}

func siloIndicator(silos []schema.KnowledgeSilo) schema.RiskIndicator {
	highRisk := 0
	var affected []string
	for _, s := range silos {
		if s.RiskLevel == schema.RiskHigh || s.RiskLevel == schema.RiskCritical {
			highRisk++
		}
		affected = append(affected, s.Path)
	}
	var level schema.RiskLevel
	var score float64
	switch {
	case highRisk > 5:
		level, score = schema.RiskCritical, 0.9
	case highRisk > 2:
		level, score = schema.RiskHigh, 0.7
	case len(silos) > 0:
		level, score = schema.RiskMedium, 0.5
	default:
		level, score = schema.RiskLow, 0.1
	}
	return schema.RiskIndicator{
		Name:               "knowledge_silos",
		Level:              level,
		Score:              score,
		Description:        "Files whose history is concentrated in one author",
		AffectedComponents: affected,
		Mitigation:         recommendationTemplates["knowledge_silos"],
	}
}

func churnIndicator(c schema.ChurnMetrics) schema.RiskIndicator {
	var level schema.RiskLevel
	var score float64
	switch {
	case c.GlobalChurnRatio >= 0.7:
		level, score = schema.RiskHigh, 0.7
	case c.GlobalChurnRatio >= 0.5:
		level, score = schema.RiskMedium, 0.5
	default:
		level, score = schema.RiskLow, 0.2
	}
	return schema.RiskIndicator{
		Name:               "churn",
		Level:              level,
		Score:              score,
		Description:        "Proportion of deleted vs. changed lines in the window",
		AffectedComponents: c.HighChurnFiles,
		Mitigation:         recommendationTemplates["churn"],
	}
}

func velocityIndicator(v schema.VelocityTrends) schema.RiskIndicator {
	if v.TrendDirection == schema.TrendDecreasing {
		return schema.RiskIndicator{
			Name:        "velocity_trend",
			Level:       schema.RiskMedium,
			Score:       0.5,
			Description: "Commit velocity is trending downward",
			Mitigation:  recommendationTemplates["velocity_trend"],
		}
	}
	return schema.RiskIndicator{
		Name:        "velocity_trend",
		Level:       schema.RiskLow,
		Score:       0.1,
		Description: "Commit velocity is stable or increasing",
		Mitigation:  recommendationTemplates["velocity_trend"],
	}
}

func levelFor(score float64) schema.RiskLevel {
	switch {
	case score < 0.25:
		return schema.RiskLow
	case score < 0.5:
		return schema.RiskMedium
	case score < 0.75:
		return schema.RiskHigh
	default:
		return schema.RiskCritical
	}
}
