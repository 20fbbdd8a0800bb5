// Package mcpserver exposes the Analytics Engine over the Model Context
// Protocol so external assistants can query velocity, risk, and ownership
// reports without shelling out to the CLI.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gitbeacon/beacon/engine"
	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/report"
	"github.com/gitbeacon/beacon/schema"
)

// toolHandler holds the dependencies every tool closure needs.
type toolHandler struct {
	baseCfg contract.Config
	client  contract.GitClient
	eng     *engine.Engine
}

// New builds the MCP server without starting it, exposing analyze_range and
// analyze_commit tools. baseCfg supplies the defaults every tool call
// overrides with its own parameters.
func New(baseCfg contract.Config, client contract.GitClient, eng *engine.Engine) *server.MCPServer {
	h := &toolHandler{baseCfg: baseCfg, client: client, eng: eng}

	s := server.NewMCPServer(
		"Beacon Analytics Server",
		"1.0.0",
		server.WithLogging(),
	)

	s.AddTool(mcp.NewTool("analyze_range",
		mcp.WithDescription("Run the full velocity/ownership/churn/risk analysis over a time window of a git repository."),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository."), mcp.Required()),
		mcp.WithString("since", mcp.Description("Window start: relative (7d, 1w2d), absolute (YYYY-MM-DD), or a keyword.")),
		mcp.WithString("until", mcp.Description("Window end: relative, absolute, or 'now'.")),
	), h.handleAnalyzeRange)

	s.AddTool(mcp.NewTool("analyze_commit",
		mcp.WithDescription("Report per-file impact and classification for a single commit."),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository."), mcp.Required()),
		mcp.WithString("ref", mcp.Description("Commit hash or ref to inspect."), mcp.Required()),
	), h.handleAnalyzeCommit)

	return s
}

// Serve starts the server over stdio, blocking until the transport closes.
func Serve(ctx context.Context, baseCfg contract.Config, client contract.GitClient, eng *engine.Engine) error {
	s := New(baseCfg, client, eng)
	return server.ServeStdio(s)
}

func (h *toolHandler) handleAnalyzeRange(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg
	repoPath := request.GetString("repo_path", cfg.RepoPath)
	if repoPath == "" {
		return mcp.NewToolResultError("repo_path is required"), nil
	}
	cfg.RepoPath = repoPath
	if since := request.GetString("since", ""); since != "" {
		cfg.Since = since
	}
	if until := request.GetString("until", ""); until != "" {
		cfg.Until = until
	}

	data, err := h.eng.RunJSON(ctx, repoPath, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandler) handleAnalyzeCommit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath := request.GetString("repo_path", h.baseCfg.RepoPath)
	ref := request.GetString("ref", "")
	if repoPath == "" || ref == "" {
		return mcp.NewToolResultError("repo_path and ref are required"), nil
	}

	at, err := h.client.Resolve(ctx, repoPath, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
	}

	window := schema.Window{Since: at, Until: at.Add(time.Second)}
	raw, err := h.client.Query(ctx, repoPath, window)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	var found *schema.Commit
	for i := range raw.Commits {
		if raw.Commits[i].Hash == ref || hasPrefix(raw.Commits[i].Hash, ref) {
			found = &raw.Commits[i]
			break
		}
	}
	if found == nil {
		return mcp.NewToolResultError(fmt.Sprintf("commit %q not found in window", ref)), nil
	}

	var buf bytes.Buffer
	if err := report.ToJSON(&buf, found, nil); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func hasPrefix(hash, ref string) bool {
	if len(ref) == 0 || len(ref) > len(hash) {
		return false
	}
	return hash[:len(ref)] == ref
}
