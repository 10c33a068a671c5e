// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the cached Likes data as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/cache"
	"github.com/colthorp/likes-cli-go/internal/core"
)

const dateHelp = "YYYY-MM-DD, M/D, today, yesterday, or relative d-7, w-2, m-3, y-1"

// Server wraps the MCP server with the Likes tools.
type Server struct {
	mcp   *server.MCPServer
	cache *cache.Manager
	now   func() time.Time
}

// New creates a new MCP server with all tools registered. A nil now means
// time.Now.
func New(m *cache.Manager, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{cache: m, now: now}

	s.mcp = server.NewMCPServer(
		"likes",
		core.Version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("get_activities",
		mcp.WithDescription("List training activities, newest first. Running only unless all_types is set. "+
			"Defaults to the last 30 days."),
		mcp.WithString("start", mcp.Description("Start date: "+dateHelp)),
		mcp.WithString("end", mcp.Description("End date: "+dateHelp)),
		mcp.WithString("period", mcp.Description("Named period instead of start/end"),
			mcp.Enum("today", "yesterday", "this-week", "last-week", "this-month", "last-month", "this-quarter", "last-quarter")),
		mcp.WithNumber("limit", mcp.Description("Maximum activities to return (default 10)")),
		mcp.WithBoolean("all_types", mcp.Description("Include non-running activities")),
	), s.getActivities)

	s.mcp.AddTool(mcp.NewTool("get_plans",
		mcp.WithDescription("List scheduled training plans from a start date onward, earliest first."),
		mcp.WithString("start", mcp.Description("Start date: "+dateHelp)),
		mcp.WithNumber("game_id", mcp.Description("Only plans of this training programme")),
	), s.getPlans)

	s.mcp.AddTool(mcp.NewTool("get_feedback",
		mcp.WithDescription("List the athlete's workout feedback between two dates, newest first."),
		mcp.WithString("start", mcp.Required(), mcp.Description("Start date: "+dateHelp)),
		mcp.WithString("end", mcp.Required(), mcp.Description("End date: "+dateHelp)),
	), s.getFeedback)

	s.mcp.AddTool(mcp.NewTool("cache_stats",
		mcp.WithDescription("Report cached record counts, sizes and date bounds per kind."),
	), s.cacheStats)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) getActivities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := core.ResolveRange(req.GetString("start", ""), req.GetString("end", ""), req.GetString("period", ""), s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.cache.FetchActivities(ctx, cache.Query{Start: start, End: end})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	list := page.List
	if !req.GetBool("all_types", false) {
		list = api.FilterRuns(list)
	}
	if limit := req.GetInt("limit", 10); limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return jsonResult(&api.ActivityPage{Total: len(list), List: list})
}

func (s *Server) getPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := core.NormalizeDateSpec(req.GetString("start", ""), s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q := cache.PlanQuery{Start: start}
	if args := req.GetArguments(); args["game_id"] != nil {
		id := req.GetInt("game_id", 0)
		q.GameID = &id
	}
	page, err := s.cache.FetchPlans(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func (s *Server) getFeedback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startSpec, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	endSpec, err := req.RequireString("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, end, err := core.ResolveRange(startSpec, endSpec, "", s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.cache.FetchFeedback(ctx, cache.Query{Start: start, End: end})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func (s *Server) cacheStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.cache.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
