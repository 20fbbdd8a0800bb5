package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbeacon/beacon/schema"
)

// windowedFakeClient filters its fixed commit list by the queried window, so
// compare/timeseries sub-windows see different slices of history.
type windowedFakeClient struct {
	commits []schema.Commit
}

func (f *windowedFakeClient) Query(_ context.Context, _ string, window schema.Window) (*schema.RawLog, error) {
	var in []schema.Commit
	for _, c := range f.commits {
		if window.Contains(c.CommittedAt) {
			in = append(in, c)
		}
	}
	return &schema.RawLog{Window: window, Commits: in}, nil
}

func (f *windowedFakeClient) Resolve(_ context.Context, _ string, _ string) (time.Time, error) {
	return time.Time{}, nil
}

func day(d int, hour int) time.Time {
	return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC)
}

func commitAt(at time.Time, author, path string, add, del int) schema.Commit {
	return schema.Commit{
		Hash:        "h" + at.Format("0215") + author + path,
		Author:      schema.Author{Name: author, Email: author + "@example.com"},
		CommittedAt: at,
		Message:     "touch " + path,
		Files: []schema.FileChange{
			{Path: path, Status: schema.StatusModified, LinesAdded: add, LinesDeleted: del, Extension: "go"},
		},
	}
}

func compareClient() *windowedFakeClient {
	return &windowedFakeClient{commits: []schema.Commit{
		// base window: 2025-03-01 .. 2025-03-08
		commitAt(day(2, 10), "alice", "a.go", 10, 2),
		commitAt(day(4, 11), "bob", "old.go", 5, 5),
		commitAt(day(6, 12), "alice", "a.go", 3, 1),
		// target window: 2025-03-08 .. 2025-03-15
		commitAt(day(9, 10), "bob", "a.go", 30, 0),
		commitAt(day(11, 11), "bob", "new.go", 20, 0),
	}}
}

func TestCompareReportsFileDeltas(t *testing.T) {
	e := New(compareClient(), 10)
	baseCfg := testConfig()
	baseCfg.Since, baseCfg.Until = "2025-03-01", "2025-03-08"
	targetCfg := testConfig()
	targetCfg.Since, targetCfg.Until = "2025-03-08", "2025-03-15"

	result, err := e.Compare(context.Background(), "/repo", baseCfg, targetCfg)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Base.Commits)
	assert.Equal(t, 2, result.Target.Commits)
	assert.Equal(t, 1, result.NewFiles, "new.go only exists in the target window")
	assert.Equal(t, 1, result.InactiveFiles, "old.go only exists in the base window")
	assert.Equal(t, 1, result.OwnerChanges, "a.go hands off from alice to bob")

	byPath := map[string]schema.FileDelta{}
	for _, d := range result.Files {
		byPath[d.Path] = d
	}
	require.Contains(t, byPath, "a.go")
	assert.Equal(t, -1, byPath["a.go"].DeltaCommits)
	assert.Equal(t, 30-16, byPath["a.go"].DeltaChurn)
	assert.True(t, byPath["new.go"].New)
	assert.True(t, byPath["old.go"].Inactive)
}

func TestCompareIsDeterministic(t *testing.T) {
	e := New(compareClient(), 10)
	baseCfg := testConfig()
	baseCfg.Since, baseCfg.Until = "2025-03-01", "2025-03-08"
	targetCfg := testConfig()
	targetCfg.Since, targetCfg.Until = "2025-03-08", "2025-03-15"

	first, err := e.Compare(context.Background(), "/repo", baseCfg, targetCfg)
	require.NoError(t, err)
	second, err := e.Compare(context.Background(), "/repo", baseCfg, targetCfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTimeseriesSplitsWindowEvenly(t *testing.T) {
	e := New(compareClient(), 10)
	cfg := testConfig()
	cfg.Since, cfg.Until = "2025-03-01", "2025-03-15"

	series, err := e.Timeseries(context.Background(), "/repo", cfg, 2)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, 3, series[0].Summary.Commits)
	assert.Equal(t, 2, series[1].Summary.Commits)
	assert.Equal(t, series[0].Summary.Window.Until, series[1].Summary.Window.Since)
	assert.Equal(t, day(15, 0), series[1].Summary.Window.Until)
}

func TestTimeseriesRejectsNonPositivePoints(t *testing.T) {
	e := New(compareClient(), 10)
	cfg := testConfig()
	cfg.Since, cfg.Until = "2025-03-01", "2025-03-15"

	_, err := e.Timeseries(context.Background(), "/repo", cfg, 0)
	require.Error(t, err)
}

func TestCheckFlagsViolations(t *testing.T) {
	client := &windowedFakeClient{commits: []schema.Commit{
		commitAt(day(2, 10), "alice", "a.go", 10, 2),
		commitAt(day(4, 11), "alice", "a.go", 3, 1),
		commitAt(day(6, 12), "alice", "b.go", 8, 0),
	}}
	e := New(client, 10)
	cfg := testConfig()
	cfg.Since, cfg.Until = "2025-03-01", "2025-03-08"

	result, err := e.Check(context.Background(), "/repo", cfg, schema.CheckThresholds{
		MaxRiskScore: 0.2,
		MinBusFactor: 2,
	})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	names := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		names = append(names, v.Name)
	}
	assert.Contains(t, names, "risk_score")
	assert.Contains(t, names, "bus_factor")
}

func TestCheckPassesUnderThresholds(t *testing.T) {
	e := New(compareClient(), 10)
	cfg := testConfig()
	cfg.Since, cfg.Until = "2025-03-01", "2025-03-15"

	result, err := e.Check(context.Background(), "/repo", cfg, schema.CheckThresholds{MaxRiskScore: 0.99})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
}
