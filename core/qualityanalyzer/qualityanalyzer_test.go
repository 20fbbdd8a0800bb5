package qualityanalyzer

import (
	"testing"
	"time"

	coredataset "github.com/gitbeacon/beacon/core/dataset"
	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
	"github.com/stretchr/testify/require"
)

func buildDataset(t *testing.T, commits []schema.Commit, window schema.Window) *schema.CommitDataset {
	t.Helper()
	ds, err := coredataset.Build(&schema.RawLog{Window: window, Commits: commits}, window)
	require.NoError(t, err)
	return ds
}

func TestChurnSingleCommit(t *testing.T) {
	window := schema.Window{
		Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	c := schema.Commit{
		Hash:        "a",
		Author:      schema.Author{Name: "alice"},
		CommittedAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Files: []schema.FileChange{
			{Path: "src/a.py", Status: schema.StatusAdded, LinesAdded: 10, LinesDeleted: 2},
		},
	}
	ds := buildDataset(t, []schema.Commit{c}, window)
	churn := Churn(ds, contract.Config{ChurnThreshold: 0.6})
	require.InDelta(t, 2.0/12.0, churn.GlobalChurnRatio, 1e-9)
}

func TestRefactorClassification(t *testing.T) {
	window := schema.Window{
		Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	var files []schema.FileChange
	for i := 0; i < 10; i++ {
		files = append(files, schema.FileChange{Path: "f", Status: schema.StatusModified, LinesAdded: 30, LinesDeleted: 28})
	}
	c := schema.Commit{
		Hash:        "r1",
		Author:      schema.Author{Name: "alice"},
		CommittedAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Message:     "refactor: split module",
		Files:       files,
	}
	ds := buildDataset(t, []schema.Commit{c}, window)
	cfg := contract.Config{LargeChangeLines: 500, RefactorKeywords: []string{"refactor", "cleanup", "rename", "reorg"}}

	lc := LargeChanges(ds, cfg)
	require.Len(t, lc, 1)
	require.Equal(t, "refactor", lc[0].Classification)

	rs := Refactors(ds, cfg)
	require.True(t, rs.Hashes["r1"])
}
