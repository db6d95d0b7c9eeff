package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/schedule"
)

const recentHistoryLimit = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	History  *history.Store
	Schedule *schedule.Store
	Now      func() time.Time // defaults to time.Now
}

func (d MCPDeps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// entrySummary is a history entry without its generated payload.
type entrySummary struct {
	ID         string             `json:"id"`
	Company    string             `json:"company"`
	Topic      string             `json:"topic"`
	Tone       string             `json:"tone"`
	CreatedAt  string             `json:"createdAt"`
	Platforms  []content.Platform `json:"platforms"`
	Variations int                `json:"variations"`
}

func summarize(entries []history.Entry) []entrySummary {
	out := make([]entrySummary, len(entries))
	for i, e := range entries {
		out[i] = entrySummary{
			ID:         e.ID,
			Company:    e.Company,
			Topic:      e.Topic,
			Tone:       e.Tone,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
			Platforms:  e.Content.AvailablePlatforms(),
			Variations: e.Content.VariationCount(),
		}
	}
	return out
}

// NewMCPServer creates an MCP server with the postdeck tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"postdeck",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("postdeck keeps generated social media posts and a posting calendar. Use list_history to find generated content, then schedule_post to put a variation on the calendar."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_history",
			mcp.WithDescription("List recent content generations, newest first, without their post text."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 10, max 50)")),
		),
		mcpListHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("get_history_entry",
			mcp.WithDescription("Return one history entry with all generated posts. Accepts an id or a unique id prefix."),
			mcp.WithString("id", mcp.Description("Entry id or prefix"), mcp.Required()),
		),
		mcpGetHistoryEntry(deps),
	)

	s.AddTool(
		mcp.NewTool("schedule_post",
			mcp.WithDescription("Schedule one platform variation of a history entry and arm a reminder for it."),
			mcp.WithString("entry_id", mcp.Description("History entry id or prefix"), mcp.Required()),
			mcp.WithString("platform", mcp.Description("instagram, linkedin, twitter or tiktok"), mcp.Required()),
			mcp.WithString("scheduled_date", mcp.Description("RFC 3339 date and time, e.g. 2024-06-03T09:00:00+02:00"), mcp.Required()),
			mcp.WithNumber("variation", mcp.Description("Zero-based variation index (default 0)")),
		),
		mcpSchedulePost(deps),
	)

	s.AddTool(
		mcp.NewTool("posts_for_date",
			mcp.WithDescription("List the posts scheduled on a calendar day."),
			mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD"), mcp.Required()),
		),
		mcpPostsForDate(deps),
	)

	s.AddTool(
		mcp.NewTool("mark_posted",
			mcp.WithDescription("Mark a scheduled post as published."),
			mcp.WithString("id", mcp.Description("Scheduled post id or prefix"), mcp.Required()),
		),
		mcpMarkPosted(deps),
	)

	s.AddTool(
		mcp.NewTool("delete_scheduled_post",
			mcp.WithDescription("Remove a scheduled post and cancel its reminder."),
			mcp.WithString("id", mcp.Description("Scheduled post id or prefix"), mcp.Required()),
		),
		mcpDeleteScheduledPost(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"history://recent",
			"Recent Generations",
			mcp.WithResourceDescription("Last 10 history entries (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"schedule://upcoming",
			"Upcoming Posts",
			mcp.WithResourceDescription("Scheduled posts that are not yet published and not in the past"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceUpcoming(deps),
	)

	return s
}

func mcpListHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", recentHistoryLimit)
		if limit <= 0 {
			limit = recentHistoryLimit
		}
		if limit > history.MaxEntries {
			limit = history.MaxEntries
		}

		entries := deps.History.Entries()
		if len(entries) > limit {
			entries = entries[:limit]
		}
		return mcpJSON(summarize(entries))
	}
}

func mcpGetHistoryEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		entry, ok := deps.History.Lookup(id)
		if !ok {
			return mcpError(fmt.Sprintf("no history entry matches %q", id)), nil
		}
		return mcpJSON(entry)
	}
}

func mcpSchedulePost(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entryID, err := req.RequireString("entry_id")
		if err != nil {
			return mcpError("entry_id is required"), nil
		}
		platformName, err := req.RequireString("platform")
		if err != nil {
			return mcpError("platform is required"), nil
		}
		dateStr, err := req.RequireString("scheduled_date")
		if err != nil {
			return mcpError("scheduled_date is required"), nil
		}

		date, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return mcpError(fmt.Sprintf("scheduled_date must be RFC 3339: %v", err)), nil
		}

		plan, err := ScheduleRequest{
			Platform:      platformName,
			ScheduledDate: date,
			EntryID:       entryID,
			Variation:     req.GetInt("variation", 0),
		}.Resolve(deps.History)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		post := deps.Schedule.Schedule(ctx, plan.Platform, plan.Content, plan.Date, plan.Company, plan.Topic)
		return mcpJSON(post)
	}
}

func mcpPostsForDate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dateStr, err := req.RequireString("date")
		if err != nil {
			return mcpError("date is required"), nil
		}
		day, err := time.ParseInLocation(dayLayout, dateStr, deps.Schedule.Location())
		if err != nil {
			return mcpError("date must be YYYY-MM-DD"), nil
		}
		return mcpJSON(nonNil(deps.Schedule.PostsForDate(day)))
	}
}

func mcpMarkPosted(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		post, ok := deps.Schedule.Lookup(id)
		if !ok {
			return mcpError(fmt.Sprintf("no scheduled post matches %q", id)), nil
		}
		deps.Schedule.MarkAsPosted(ctx, post.ID)
		return mcpText(fmt.Sprintf("Marked %s post %s as posted", post.Platform.DisplayName(), post.ID)), nil
	}
}

func mcpDeleteScheduledPost(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		post, ok := deps.Schedule.Lookup(id)
		if !ok {
			return mcpError(fmt.Sprintf("no scheduled post matches %q", id)), nil
		}
		deps.Schedule.Delete(ctx, post.ID)
		return mcpText(fmt.Sprintf("Deleted scheduled post %s", post.ID)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries := deps.History.Entries()
		if len(entries) > recentHistoryLimit {
			entries = entries[:recentHistoryLimit]
		}
		return jsonResource(req.Params.URI, summarize(entries))
	}
}

func mcpResourceUpcoming(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(req.Params.URI, nonNil(deps.Schedule.Upcoming(deps.now())))
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
