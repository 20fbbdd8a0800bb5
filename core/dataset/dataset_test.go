package dataset

import (
	"testing"
	"time"

	"github.com/gitbeacon/beacon/schema"
	"github.com/stretchr/testify/require"
)

func mkCommit(hash, author string, at time.Time, files ...schema.FileChange) schema.Commit {
	return schema.Commit{
		Hash:        hash,
		Author:      schema.Author{Name: author, Email: author + "@example.com"},
		CommittedAt: at,
		Files:       files,
	}
}

func TestBuildOrdersAndIndexes(t *testing.T) {
	window := schema.Window{
		Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	c1 := mkCommit("b", "alice", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		schema.FileChange{Path: "internal/x.go", Status: schema.StatusModified, LinesAdded: 1, Extension: "go"})
	c2 := mkCommit("a", "bob", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		schema.FileChange{Path: "cmd/y.go", Status: schema.StatusAdded, LinesAdded: 2, Extension: "go"})

	ds, err := Build(&schema.RawLog{Window: window, Commits: []schema.Commit{c1, c2}}, window)
	require.NoError(t, err)
	require.Len(t, ds.Commits, 2)
	// Same timestamp: tie-broken by hash ascending ("a" before "b").
	require.Equal(t, "a", ds.Commits[0].Hash)
	require.Equal(t, "b", ds.Commits[1].Hash)
	require.Equal(t, "cmd", ds.Commits[0].Files[0].Component)
	require.Equal(t, "internal", ds.Commits[1].Files[0].Component)

	require.Len(t, ds.CommitsByAuthor(schema.AuthorIdentity(schema.Author{Name: "alice", Email: "alice@example.com"})), 1)
	require.Len(t, ds.CommitsByDay("2025-01-01"), 2)
	require.Len(t, ds.CommitsByFile("cmd/y.go"), 1)
	require.Len(t, ds.CommitsByExtension("go"), 2)
}

func TestBuildRejectsCommitOutsideWindow(t *testing.T) {
	window := schema.Window{
		Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	c := mkCommit("a", "alice", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	_, err := Build(&schema.RawLog{Window: window, Commits: []schema.Commit{c}}, window)
	require.Error(t, err)
}

func TestBuildEmptyWindowIsValid(t *testing.T) {
	window := schema.Window{
		Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	ds, err := Build(&schema.RawLog{Window: window}, window)
	require.NoError(t, err)
	require.Empty(t, ds.Commits)
}
