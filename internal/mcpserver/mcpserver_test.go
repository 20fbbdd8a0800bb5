package mcpserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbeacon/beacon/engine"
	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/internal/mcpserver"
	"github.com/gitbeacon/beacon/schema"
)

type fakeGitClient struct {
	commits []schema.Commit
}

func (f *fakeGitClient) Query(_ context.Context, _ string, window schema.Window) (*schema.RawLog, error) {
	var matched []schema.Commit
	for _, c := range f.commits {
		if window.Since.IsZero() || window.Contains(c.CommittedAt) {
			matched = append(matched, c)
		}
	}
	return &schema.RawLog{Window: window, Commits: matched}, nil
}

func (f *fakeGitClient) Resolve(_ context.Context, _ string, ref string) (time.Time, error) {
	for _, c := range f.commits {
		if c.Hash == ref {
			return c.CommittedAt, nil
		}
	}
	return time.Time{}, contract.WithKind(contract.KindInvalidCommitRef, assert.AnError)
}

func newFixture() *fakeGitClient {
	now := time.Now().UTC()
	return &fakeGitClient{commits: []schema.Commit{
		{
			Hash:        "deadbeef",
			Author:      schema.Author{Name: "Alice", Email: "alice@example.com"},
			CommittedAt: now.Add(-time.Hour),
			Message:     "fix bug",
			Files:       []schema.FileChange{{Path: "a.go", Status: schema.StatusModified, LinesAdded: 3, LinesDeleted: 1, Extension: "go"}},
		},
	}}
}

func testConfig() contract.Config {
	raw := contract.DefaultRawInput()
	raw.RepoPath = "/repo"
	cfg, err := contract.ProcessAndValidate(raw)
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestAnalyzeCommitToolReturnsCommitJSON(t *testing.T) {
	client := newFixture()
	eng := engine.New(client, 10)
	s := mcpserver.New(testConfig(), client, eng)

	tool := s.GetTool("analyze_commit")
	require.NotNil(t, tool)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "analyze_commit",
		Arguments: map[string]any{"repo_path": "/repo", "ref": "deadbeef"},
	}}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "deadbeef")
}

func TestAnalyzeCommitToolRequiresRef(t *testing.T) {
	client := newFixture()
	eng := engine.New(client, 10)
	s := mcpserver.New(testConfig(), client, eng)

	tool := s.GetTool("analyze_commit")
	require.NotNil(t, tool)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "analyze_commit",
		Arguments: map[string]any{"repo_path": "/repo"},
	}}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAnalyzeRangeToolReturnsReport(t *testing.T) {
	client := newFixture()
	eng := engine.New(client, 10)
	s := mcpserver.New(testConfig(), client, eng)

	tool := s.GetTool("analyze_range")
	require.NotNil(t, tool)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "analyze_range",
		Arguments: map[string]any{"repo_path": "/repo", "since": "7d", "until": "now"},
	}}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "window")
}
