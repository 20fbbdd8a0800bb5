// Package dataset builds the immutable CommitDataset consumed by every
// analyzer from a RAL RawLog.
package dataset

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
)

// componentPrefixRules maps a path prefix (or, for "test", a path segment)
// to a logical bucket; paths matching no rule fall into "other".
var componentPrefixRules = []struct {
	prefix    string
	component string
}{
	{"cmd/", "cmd"},
	{"internal/", "internal"},
	{"pkg/", "pkg"},
	{"docs/", "docs"},
	{".github/", "ci"},
}

// Build sorts raw commits ascending by (CommittedAt, Hash), validates that
// every commit falls within window, derives each FileChange's Component,
// and builds the four indexes in one pass.
func Build(raw *schema.RawLog, window schema.Window) (*schema.CommitDataset, error) {
	commits := make([]schema.Commit, len(raw.Commits))
	copy(commits, raw.Commits)

	for i, c := range commits {
		if !window.Contains(c.CommittedAt) {
			return nil, contract.WithKind(contract.KindInvalidWindow,
				fmt.Errorf("commit %s committed_at %s outside window [%s, %s)", c.Hash, c.CommittedAt, window.Since, window.Until))
		}
		for j := range c.Files {
			c.Files[j].Component = componentOf(c.Files[j].Path)
		}
		commits[i] = c
	}

	sort.SliceStable(commits, func(i, j int) bool {
		if !commits[i].CommittedAt.Equal(commits[j].CommittedAt) {
			return commits[i].CommittedAt.Before(commits[j].CommittedAt)
		}
		return commits[i].Hash < commits[j].Hash
	})

	byAuthor := map[string][]int{}
	byDay := map[string][]int{}
	byFile := map[string][]int{}
	byExtension := map[string][]int{}

	for i, c := range commits {
		identity := schema.AuthorIdentity(c.Author)
		byAuthor[identity] = append(byAuthor[identity], i)

		day := c.CommittedAt.Format("2006-01-02")
		byDay[day] = append(byDay[day], i)

		seenFile := map[string]bool{}
		seenExt := map[string]bool{}
		for _, f := range c.Files {
			if !seenFile[f.Path] {
				byFile[f.Path] = append(byFile[f.Path], i)
				seenFile[f.Path] = true
			}
			if f.Extension != "" && !seenExt[f.Extension] {
				byExtension[f.Extension] = append(byExtension[f.Extension], i)
				seenExt[f.Extension] = true
			}
		}
	}

	return schema.NewCommitDataset(window, commits, byAuthor, byDay, byFile, byExtension), nil
}

func componentOf(p string) string {
	clean := path.Clean(p)
	base := path.Base(clean)
	if strings.HasSuffix(base, "_test.go") {
		return "test"
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == "test" || seg == "tests" {
			return "test"
		}
	}
	for _, rule := range componentPrefixRules {
		if strings.HasPrefix(clean, rule.prefix) {
			return rule.component
		}
	}
	return "other"
}
