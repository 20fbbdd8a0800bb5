package gitclient

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitbeacon/beacon/schema"
	"github.com/stretchr/testify/require"
)

// gitRunner returns a helper that runs git in dir with a fixed identity,
// driving the real git binary rather than mocking it.
func gitRunner(t *testing.T, dir string) func(args ...string) {
	t.Helper()
	return func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=alice", "GIT_AUTHOR_EMAIL=alice@example.com",
			"GIT_COMMITTER_NAME=alice", "GIT_COMMITTER_EMAIL=alice@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
}

// initRepo builds a throwaway git repository with a couple of commits.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := gitRunner(t, dir)
	run("init", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("print(1)\n"), 0o644))
	run("add", "a.py")
	run("commit", "-q", "-m", "add a.py")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("print(1)\nprint(2)\n"), 0o644))
	run("add", "a.py")
	run("commit", "-q", "-m", "update a.py")
	return dir
}

// initMergeRepo builds a repository with a non-conflicting feature branch
// merged back into main via --no-ff, so the merge commit's first-parent
// diff is exactly the branch's changes.
func initMergeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := gitRunner(t, dir)
	run("init", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("print(1)\n"), 0o644))
	run("add", "a.py")
	run("commit", "-q", "-m", "add a.py")
	run("checkout", "-q", "-b", "feature")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("print(2)\nprint(3)\n"), 0o644))
	run("add", "b.py")
	run("commit", "-q", "-m", "add b.py")
	run("checkout", "-q", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("print(1)\nprint(4)\n"), 0o644))
	run("add", "a.py")
	run("commit", "-q", "-m", "update a.py")
	run("merge", "-q", "--no-ff", "-m", "merge feature", "feature")
	return dir
}

func TestLocalGitClientQuery(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := initRepo(t)
	c := NewLocalGitClient()

	window := schema.Window{Since: time.Now().UTC().Add(-time.Hour), Until: time.Now().UTC().Add(time.Hour)}
	log, err := c.Query(context.Background(), dir, window)
	require.NoError(t, err)
	require.Len(t, log.Commits, 2)
	for _, cm := range log.Commits {
		require.True(t, window.Contains(cm.CommittedAt))
		require.NotEmpty(t, cm.Files)
	}
}

func TestLocalGitClientQueryMergeFirstParentDiff(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := initMergeRepo(t)
	c := NewLocalGitClient()

	window := schema.Window{Since: time.Now().UTC().Add(-time.Hour), Until: time.Now().UTC().Add(time.Hour)}
	log, err := c.Query(context.Background(), dir, window)
	require.NoError(t, err)

	var merge *schema.Commit
	for i := range log.Commits {
		if log.Commits[i].IsMerge() {
			merge = &log.Commits[i]
		}
	}
	require.NotNil(t, merge, "merge commit must be present in the window")
	require.NotEmpty(t, merge.Files, "merge commit files must be the first-parent diff, not empty")

	// The first-parent diff is the feature branch's change: b.py only.
	require.Len(t, merge.Files, 1)
	require.Equal(t, "b.py", merge.Files[0].Path)
	require.Equal(t, 2, merge.Files[0].LinesAdded)
	require.Equal(t, 0, merge.Files[0].LinesDeleted)
}

func TestLocalGitClientQueryRepoNotFound(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	c := NewLocalGitClient()
	_, err := c.Query(context.Background(), t.TempDir(), schema.Window{})
	require.Error(t, err)
}

func TestParseNumstatStatusesFromSummary(t *testing.T) {
	body := []byte("3\t0\tcmd/main.go\n1\t1\tcore/a.go\n0\t4\told.go\n" +
		" create mode 100644 cmd/main.go\n delete mode 100644 old.go\n")
	files, err := parseNumstat(body)
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, schema.StatusAdded, files[0].Status)
	require.Equal(t, schema.StatusModified, files[1].Status)
	require.Equal(t, schema.StatusDeleted, files[2].Status)
}

func TestParseStatLineRename(t *testing.T) {
	added, deleted, status, oldPath, newPath := parseStatLine([]string{"3", "1", "old.go => new.go"})
	require.Equal(t, 3, added)
	require.Equal(t, 1, deleted)
	require.Equal(t, schema.StatusRenamed, status)
	require.Equal(t, "old.go", oldPath)
	require.Equal(t, "new.go", newPath)
}

func TestParseStatLineBinary(t *testing.T) {
	added, deleted, status, _, newPath := parseStatLine([]string{"-", "-", "image.png"})
	require.Equal(t, 0, added)
	require.Equal(t, 0, deleted)
	require.Equal(t, schema.StatusModified, status)
	require.Equal(t, "image.png", newPath)
}
