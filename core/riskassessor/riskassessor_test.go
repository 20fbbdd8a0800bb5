package riskassessor

import (
	"testing"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
	"github.com/stretchr/testify/require"
)

func TestAssessEmptyBundleIsLow(t *testing.T) {
	// An all-nil bundle still carries the silo result: nil silos with
	// SilosPartial false means the analyzer ran and found none, which is a
	// low-risk indicator, not an absent one.
	report := Assess(schema.AnalyzerBundle{}, contract.Config{})
	require.Equal(t, schema.RiskLow, report.Level)
	require.InDelta(t, 0.1, report.OverallScore, 1e-9)
	require.Len(t, report.Indicators, 1)
	require.Equal(t, "knowledge_silos", report.Indicators[0].Name)
	require.Equal(t, schema.RiskLow, report.Indicators[0].Level)
}

func TestAssessSingleCommitCritical(t *testing.T) {
	bf := schema.BusFactor{K: 1, RiskLevel: schema.RiskCritical}
	bundle := schema.AnalyzerBundle{Bus: &bf, SilosPartial: true}
	report := Assess(bundle, contract.Config{})
	require.Equal(t, schema.RiskCritical, report.Level)
	require.InDelta(t, 0.9, report.OverallScore, 1e-9)
}

func TestAssessZeroSilosStillYieldsIndicator(t *testing.T) {
	bf := schema.BusFactor{K: 4, RiskLevel: schema.RiskLow}
	bundle := schema.AnalyzerBundle{Bus: &bf, Silos: []schema.KnowledgeSilo{}}
	report := Assess(bundle, contract.Config{})

	names := make([]string, 0, len(report.Indicators))
	for _, ind := range report.Indicators {
		names = append(names, ind.Name)
	}
	require.Contains(t, names, "knowledge_silos")
	for _, ind := range report.Indicators {
		if ind.Name == "knowledge_silos" {
			require.Equal(t, schema.RiskLow, ind.Level)
			require.InDelta(t, 0.1, ind.Score, 1e-9)
		}
	}
}

func TestAssessPartialSilosDropsIndicator(t *testing.T) {
	bf := schema.BusFactor{K: 4, RiskLevel: schema.RiskLow}
	bundle := schema.AnalyzerBundle{Bus: &bf, SilosPartial: true}
	report := Assess(bundle, contract.Config{})
	require.Len(t, report.Indicators, 1)
	require.Equal(t, "bus_factor", report.Indicators[0].Name)
}

func TestAssessPartialInputsRenormalize(t *testing.T) {
	bf := schema.BusFactor{K: 2, RiskLevel: schema.RiskHigh}
	churn := schema.ChurnMetrics{GlobalChurnRatio: 0.8}
	bundle := schema.AnalyzerBundle{Bus: &bf, Churn: &churn, SilosPartial: true}
	report := Assess(bundle, contract.Config{
		RiskWeights: contract.RiskWeights{Bus: 0.30, Silos: 0.25, Churn: 0.25, Velocity: 0.20},
	})
	// Only bus (0.7 score, weight 0.30) and churn (0.7 score, weight 0.25)
	// contribute; weights renormalize to sum 1 over the present pair.
	require.InDelta(t, 0.7, report.OverallScore, 1e-9)
	require.Len(t, report.Indicators, 2)
}
