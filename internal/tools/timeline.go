// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/praxis-labs/loom-mcp/internal/store"
)

// NewStoreEventTool creates the loom_store_event tool definition
func NewStoreEventTool() mcp.Tool {
	return mcp.NewTool("loom_store_event",
		mcp.WithDescription("Record an event on the timeline. Returns the new event id."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Event category, e.g. 'journal_entry' or 'meeting'"),
		),
		mcp.WithString("timestamp",
			mcp.Required(),
			mcp.Description("When the event happened: epoch milliseconds or a date/time string like '2024-03-15T10:00:00Z'"),
		),
		mcp.WithString("title",
			mcp.Description("Short human-readable summary"),
		),
		mcp.WithString("namespace",
			mcp.Description("Optional grouping label"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary JSON metadata attached to the event"),
		),
	)
}

// StoreEventHandler handles the loom_store_event tool
func StoreEventHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		eventType, err := request.RequireString("type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		id, err := ctx.Timeline.StoreEvent(store.StoreEventInput{
			Type:      eventType,
			Timestamp: anyArg(request, "timestamp"),
			Title:     request.GetString("title", ""),
			Namespace: request.GetString("namespace", ""),
			Metadata:  objectArg(request, "metadata"),
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]string{"id": id})
	}
}

// NewGetEventTool creates the loom_get_event tool definition
func NewGetEventTool() mcp.Tool {
	return mcp.NewTool("loom_get_event",
		mcp.WithDescription("Fetch a single timeline event by id, optionally with its full-detail payload."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event id"),
		),
		mcp.WithBoolean("include_full",
			mcp.Description("Attach the full-detail payload when the event has one"),
		),
	)
}

// GetEventHandler handles the loom_get_event tool
func GetEventHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if request.GetBool("include_full", false) {
			event, err := ctx.Timeline.GetEventWithFullDetails(id)
			if err != nil {
				return errorResult(err)
			}
			return jsonResult(event)
		}

		event, err := ctx.Timeline.GetEvent(id)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(event)
	}
}

// NewGetTimelineTool creates the loom_get_timeline tool definition
func NewGetTimelineTool() mcp.Tool {
	return mcp.NewTool("loom_get_timeline",
		mcp.WithDescription("List the events of one calendar date in chronological order, with a by-type count breakdown."),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Calendar date, YYYY-MM-DD"),
		),
		mcp.WithString("type",
			mcp.Description("Only events of this type"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum events to return (default 1000)"),
		),
	)
}

// GetTimelineHandler handles the loom_get_timeline tool
func GetTimelineHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, err := request.RequireString("date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := ctx.Timeline.GetTimeline(store.TimelineQuery{
			Date:  date,
			Type:  request.GetString("type", ""),
			Limit: int(request.GetFloat("limit", 0)),
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(result)
	}
}

// NewGetTimelineRangeTool creates the loom_get_timeline_range tool definition
func NewGetTimelineRangeTool() mcp.Tool {
	return mcp.NewTool("loom_get_timeline_range",
		mcp.WithDescription("List events over an inclusive date range in chronological order."),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Range start date, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Range end date, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("type",
			mcp.Description("Only events of this type"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum events to return (default 10000)"),
		),
	)
}

// GetTimelineRangeHandler handles the loom_get_timeline_range tool
func GetTimelineRangeHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start, err := request.RequireString("start")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, err := request.RequireString("end")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := ctx.Timeline.GetTimelineRange(start, end,
			request.GetString("type", ""),
			int(request.GetFloat("limit", 0)))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(result)
	}
}

// NewExpandEventTool creates the loom_expand_event tool definition
func NewExpandEventTool() mcp.Tool {
	return mcp.NewTool("loom_expand_event",
		mcp.WithDescription("Attach a large payload to an existing event. The payload is stored out of line and fetched only on request."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event id"),
		),
		mcp.WithObject("full_data",
			mcp.Required(),
			mcp.Description("The payload to store"),
		),
	)
}

// ExpandEventHandler handles the loom_expand_event tool
func ExpandEventHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		event, err := ctx.Timeline.ExpandEvent(id, objectArg(request, "full_data"))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(event)
	}
}

// NewGetFullDetailsTool creates the loom_get_full_details tool definition
func NewGetFullDetailsTool() mcp.Tool {
	return mcp.NewTool("loom_get_full_details",
		mcp.WithDescription("Fetch a stored full-detail payload by its key."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Full-detail key, as referenced by an event's full_data_key"),
		),
	)
}

// GetFullDetailsHandler handles the loom_get_full_details tool
func GetFullDetailsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		detail, err := ctx.Timeline.GetFullDetails(key)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(detail)
	}
}

// NewUpdateEventTool creates the loom_update_event tool definition
func NewUpdateEventTool() mcp.Tool {
	return mcp.NewTool("loom_update_event",
		mcp.WithDescription("Update selected fields of an event. Omitted fields are left unchanged; changing the timestamp recomputes the event's date."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event id"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("namespace",
			mcp.Description("New namespace"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Replacement metadata object"),
		),
		mcp.WithString("timestamp",
			mcp.Description("New timestamp: epoch milliseconds or a date/time string"),
		),
	)
}

// UpdateEventHandler handles the loom_update_event tool
func UpdateEventHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		event, err := ctx.Timeline.UpdateEvent(id, store.UpdateEventInput{
			Title:     stringPtrArg(request, "title"),
			Namespace: stringPtrArg(request, "namespace"),
			Metadata:  objectArg(request, "metadata"),
			Timestamp: anyArg(request, "timestamp"),
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(event)
	}
}

// NewDeleteEventTool creates the loom_delete_event tool definition
func NewDeleteEventTool() mcp.Tool {
	return mcp.NewTool("loom_delete_event",
		mcp.WithDescription("Delete an event and its full-detail payload."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event id"),
		),
	)
}

// DeleteEventHandler handles the loom_delete_event tool
func DeleteEventHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := ctx.Timeline.DeleteEvent(id); err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]interface{}{"deleted": id})
	}
}

// NewTimelineSummaryTool creates the loom_timeline_summary tool definition
func NewTimelineSummaryTool() mcp.Tool {
	return mcp.NewTool("loom_timeline_summary",
		mcp.WithDescription("Per-type event counts for one calendar date, without fetching the events."),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Calendar date, YYYY-MM-DD"),
		),
	)
}

// TimelineSummaryHandler handles the loom_timeline_summary tool
func TimelineSummaryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, err := request.RequireString("date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		summary, err := ctx.Timeline.GetTimelineSummary(date)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(summary)
	}
}

// NewEventTypesTool creates the loom_event_types tool definition
func NewEventTypesTool() mcp.Tool {
	return mcp.NewTool("loom_event_types",
		mcp.WithDescription("List all event types with their total counts."),
	)
}

// EventTypesHandler handles the loom_event_types tool
func EventTypesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		types, err := ctx.Timeline.GetEventTypes()
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(types)
	}
}
