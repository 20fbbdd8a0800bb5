package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbeacon/beacon/core/dataset"
	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
)

func sampleCommit() schema.Commit {
	return schema.Commit{
		Hash:        "a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0",
		Author:      schema.Author{Name: "alice", Email: "alice@example.com"},
		CommittedAt: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
		Message:     "refactor: split module",
		Files: []schema.FileChange{
			{Path: "core/a.go", Status: schema.StatusModified, LinesAdded: 10, LinesDeleted: 2, Extension: "go", Component: "core"},
			{Path: "core/b.go", Status: schema.StatusAdded, LinesAdded: 40, LinesDeleted: 0, Extension: "go", Component: "core"},
		},
	}
}

func sampleBundle(t *testing.T) Bundle {
	t.Helper()
	window := schema.Window{
		Since: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	raw := &schema.RawLog{Window: window, Commits: []schema.Commit{sampleCommit()}}
	ds, err := dataset.Build(raw, window)
	require.NoError(t, err)

	b := Bundle{Dataset: ds}
	b.Time.Velocity = schema.VelocityTrends{
		DailyVelocity:  map[string]int{"2025-03-10": 1},
		WeeklyAverage:  0.5,
		TrendDirection: schema.TrendStable,
		Peak:           schema.DayValue{Date: "2025-03-10", Value: 1},
	}
	b.Time.Bus = schema.BusFactor{K: 1, RiskLevel: schema.RiskCritical}
	b.Team.Ownership = schema.OwnershipMap{Files: map[string][]schema.AuthorShare{
		"core/a.go": {{Author: "alice <alice@example.com>", Share: 1.0}},
	}}
	b.Team.CoAuthorship = schema.CoAuthorshipMatrix{
		Scores: map[[2]string]float64{{"alice", "bob"}: 1.5},
	}
	b.Quality.Churn = schema.ChurnMetrics{GlobalChurnRatio: 2.0 / 52.0, PerFile: map[string]float64{}}
	b.Risk = schema.RiskReport{OverallScore: 0.6, Level: schema.RiskHigh}
	return b
}

func TestImpactForThresholds(t *testing.T) {
	tests := []struct {
		files, lines int
		want         Impact
	}{
		{1, 10, ImpactLow},
		{4, 10, ImpactMedium},
		{1, 101, ImpactMedium},
		{11, 10, ImpactHigh},
		{1, 501, ImpactHigh},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, impactFor(tc.files, tc.lines), "files=%d lines=%d", tc.files, tc.lines)
	}
}

func TestFormatCommitExtended(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatCommit(&buf, sampleCommit(), true))
	out := buf.String()

	assert.Contains(t, out, "commit a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0")
	assert.Contains(t, out, "2 files changed, 50 insertions(+), 2 deletions(-)")
	assert.Contains(t, out, "impact: low")
	assert.Contains(t, out, ".go: 2")
	assert.Contains(t, out, "core: 2")
}

func TestToJSONCommitSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ToJSON(&buf, ptr(sampleCommit()), nil))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "a1b2c3d", decoded["short_hash"])
	assert.Equal(t, "alice <alice@example.com>", decoded["author"])
	assert.Equal(t, "2025-03-10T14:30:00Z", decoded["date"])
	assert.Equal(t, float64(48), decoded["net_change"])
	assert.Len(t, decoded["files"], 2)
}

func TestToJSONRangeSchemaAndCoAuthorship(t *testing.T) {
	b := sampleBundle(t)
	var buf bytes.Buffer
	require.NoError(t, ToJSON(&buf, nil, &b), "range JSON must serialize even with a populated co-authorship score table")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	totals := decoded["totals"].(map[string]any)
	assert.Equal(t, float64(1), totals["commits"])
	assert.Equal(t, float64(2), totals["files_changed"])
	assert.Equal(t, float64(50), totals["lines_added"])

	authors := decoded["authors"].(map[string]any)
	assert.Equal(t, float64(1), authors["alice <alice@example.com>"])
}

func TestToJSONRoundTripStable(t *testing.T) {
	b := sampleBundle(t)

	var first bytes.Buffer
	require.NoError(t, ToJSON(&first, nil, &b))

	// serialize -> parse -> serialize must be byte-identical.
	var decoded rangeJSON
	require.NoError(t, json.Unmarshal(first.Bytes(), &decoded))
	reencoded, err := json.MarshalIndent(decoded, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(first.String()), string(reencoded))

	ok, err := deterministicJSON(nil, &b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFormatRangeRespectsSectionToggles(t *testing.T) {
	b := sampleBundle(t)
	raw := contract.DefaultRawInput()
	raw.SectionTeam = false
	raw.SectionQuality = false
	raw.UseEmoji = false
	cfg, err := contract.ProcessAndValidate(raw)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FormatRange(&buf, b, cfg))
	out := buf.String()

	assert.Contains(t, out, "Overview")
	assert.Contains(t, out, "Risk Assessment")
	assert.NotContains(t, out, "Team & Ownership")
	assert.NotContains(t, out, "Quality & Churn")
}

func TestExportParquetRoundTrip(t *testing.T) {
	b := sampleBundle(t)
	var buf bytes.Buffer
	require.NoError(t, ExportParquet(&buf, b))
	require.NotZero(t, buf.Len())

	rows := buildExportRows(b)
	require.Len(t, rows, 2)
	assert.Equal(t, "core/a.go", rows[0].Path)
	assert.Equal(t, int32(1), rows[0].Commits)
	require.NotNil(t, rows[0].PrimaryOwner)
	assert.Equal(t, "alice <alice@example.com>", *rows[0].PrimaryOwner)
	assert.Equal(t, "core/b.go", rows[1].Path)
	assert.Nil(t, rows[1].PrimaryOwner)
}

func ptr[T any](v T) *T { return &v }
