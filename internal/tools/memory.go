// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/praxis-labs/loom-mcp/internal/store"
)

// NewStoreMemoryTool creates the loom_store_memory tool definition
func NewStoreMemoryTool() mcp.Tool {
	return mcp.NewTool("loom_store_memory",
		mcp.WithDescription("Store a key-value memory. Replaces any existing value for the key. An optional TTL makes the memory expire."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Unique memory key, e.g. 'prefs:editor'"),
		),
		mcp.WithObject("value",
			mcp.Required(),
			mcp.Description("The value to remember (any JSON)"),
		),
		mcp.WithString("namespace",
			mcp.Description("Optional grouping label"),
		),
		mcp.WithNumber("ttl",
			mcp.Description("Time to live in seconds; omit for no expiry"),
		),
	)
}

// StoreMemoryHandler handles the loom_store_memory tool
func StoreMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		memory, err := ctx.Memories.StoreMemory(store.StoreMemoryInput{
			Key:        key,
			Value:      anyArg(request, "value"),
			Namespace:  request.GetString("namespace", ""),
			TTLSeconds: int64PtrArg(request, "ttl"),
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(memory)
	}
}

// NewRetrieveMemoryTool creates the loom_retrieve_memory tool definition
func NewRetrieveMemoryTool() mcp.Tool {
	return mcp.NewTool("loom_retrieve_memory",
		mcp.WithDescription("Fetch a memory by key. Expired memories behave as if they were deleted."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Memory key"),
		),
	)
}

// RetrieveMemoryHandler handles the loom_retrieve_memory tool
func RetrieveMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		memory, err := ctx.Memories.RetrieveMemory(key)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(memory)
	}
}

// NewDeleteMemoryTool creates the loom_delete_memory tool definition
func NewDeleteMemoryTool() mcp.Tool {
	return mcp.NewTool("loom_delete_memory",
		mcp.WithDescription("Delete a memory by key. Succeeds whether or not the key exists."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Memory key"),
		),
	)
}

// DeleteMemoryHandler handles the loom_delete_memory tool
func DeleteMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		removed, err := ctx.Memories.DeleteMemory(key)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]interface{}{"removed": removed})
	}
}

// NewListMemoriesTool creates the loom_list_memories tool definition
func NewListMemoriesTool() mcp.Tool {
	return mcp.NewTool("loom_list_memories",
		mcp.WithDescription("List memories by namespace and/or key pattern. A single trailing * in the pattern matches any suffix; expired memories are excluded."),
		mcp.WithString("namespace",
			mcp.Description("Exact namespace filter"),
		),
		mcp.WithString("pattern",
			mcp.Description("Key pattern, e.g. 'dev:*'"),
		),
	)
}

// ListMemoriesHandler handles the loom_list_memories tool
func ListMemoriesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		memories, err := ctx.Memories.ListMemories(
			request.GetString("namespace", ""),
			request.GetString("pattern", ""))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(memories)
	}
}

// NewSearchMemoriesTool creates the loom_search_memories tool definition
func NewSearchMemoriesTool() mcp.Tool {
	return mcp.NewTool("loom_search_memories",
		mcp.WithDescription("Find memories whose stored value contains a term."),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Substring to search for"),
		),
		mcp.WithString("namespace",
			mcp.Description("Exact namespace filter"),
		),
	)
}

// SearchMemoriesHandler handles the loom_search_memories tool
func SearchMemoriesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		term, err := request.RequireString("term")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		memories, err := ctx.Memories.SearchMemories(term, request.GetString("namespace", ""))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(memories)
	}
}

// NewBulkStoreMemoriesTool creates the loom_bulk_store_memories tool definition
func NewBulkStoreMemoriesTool() mcp.Tool {
	return mcp.NewTool("loom_bulk_store_memories",
		mcp.WithDescription("Store several memories atomically: either every entry is stored or none are."),
		mcp.WithArray("memories",
			mcp.Required(),
			mcp.Description("Array of objects: [{\"key\": \"...\", \"value\": ..., \"namespace\": \"...\", \"ttl\": seconds}]"),
		),
	)
}

// BulkStoreMemoriesHandler handles the loom_bulk_store_memories tool
func BulkStoreMemoriesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := argsMap(request)["memories"].([]interface{})
		if !ok {
			return mcp.NewToolResultError("memories must be an array"), nil
		}

		list := make([]store.StoreMemoryInput, 0, len(raw))
		for _, item := range raw {
			entry, ok := item.(map[string]interface{})
			if !ok {
				return mcp.NewToolResultError("each memory must be an object"), nil
			}
			in := store.StoreMemoryInput{Value: entry["value"]}
			if key, ok := entry["key"].(string); ok {
				in.Key = key
			}
			if namespace, ok := entry["namespace"].(string); ok {
				in.Namespace = namespace
			}
			if ttl, ok := entry["ttl"].(float64); ok {
				seconds := int64(ttl)
				in.TTLSeconds = &seconds
			}
			list = append(list, in)
		}

		count, err := ctx.Memories.BulkStoreMemories(list)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]interface{}{"stored": count})
	}
}

// NewBulkDeleteMemoriesTool creates the loom_bulk_delete_memories tool definition
func NewBulkDeleteMemoriesTool() mcp.Tool {
	return mcp.NewTool("loom_bulk_delete_memories",
		mcp.WithDescription("Delete every memory whose key matches a pattern, atomically. Returns the count removed."),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Key pattern, e.g. 'scratch:*'"),
		),
	)
}

// BulkDeleteMemoriesHandler handles the loom_bulk_delete_memories tool
func BulkDeleteMemoriesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pattern, err := request.RequireString("pattern")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		deleted, err := ctx.Memories.BulkDeleteMemories(pattern)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]interface{}{"deleted": deleted})
	}
}

// NewUpdateMemoryTTLTool creates the loom_update_memory_ttl tool definition
func NewUpdateMemoryTTLTool() mcp.Tool {
	return mcp.NewTool("loom_update_memory_ttl",
		mcp.WithDescription("Reset a memory's expiry from now, or remove it entirely."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Memory key"),
		),
		mcp.WithNumber("ttl",
			mcp.Description("New time to live in seconds; omit to make the memory never expire"),
		),
	)
}

// UpdateMemoryTTLHandler handles the loom_update_memory_ttl tool
func UpdateMemoryTTLHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		memory, err := ctx.Memories.UpdateMemoryTTL(key, int64PtrArg(request, "ttl"))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(memory)
	}
}

// NewMemoryStatsTool creates the loom_memory_stats tool definition
func NewMemoryStatsTool() mcp.Tool {
	return mcp.NewTool("loom_memory_stats",
		mcp.WithDescription("Memory counts: total, per namespace, and expired-but-not-yet-purged."),
	)
}

// MemoryStatsHandler handles the loom_memory_stats tool
func MemoryStatsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := ctx.Memories.GetMemoryStats()
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(stats)
	}
}

// NewCleanExpiredTool creates the loom_clean_expired tool definition
func NewCleanExpiredTool() mcp.Tool {
	return mcp.NewTool("loom_clean_expired",
		mcp.WithDescription("Physically remove expired memories. Safe to run at any time."),
	)
}

// CleanExpiredHandler handles the loom_clean_expired tool
func CleanExpiredHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		removed, err := ctx.Memories.CleanExpiredMemories()
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]interface{}{"removed": removed})
	}
}
