// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"

	"github.com/praxis-labs/loom-mcp/internal/store"
)

// ToolContext holds shared dependencies for all tools. The tool layer is a
// thin adapter: handlers parse arguments, call a store operation, and
// serialize the result. All domain logic lives in the stores.
type ToolContext struct {
	DB       *gorm.DB
	Timeline *store.TimelineStore
	Entities *store.EntityStore
	Memories *store.MemoryStore
}

// NewToolContext creates a tool context with stores on the shared handle
func NewToolContext(db *gorm.DB) *ToolContext {
	return &ToolContext{
		DB:       db,
		Timeline: store.NewTimelineStore(db),
		Entities: store.NewEntityStore(db),
		Memories: store.NewMemoryStore(db),
	}
}

// jsonResult serializes a store result as the tool's text payload
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errorResult converts a store error into a tool error result
func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// argsMap returns the raw argument object of a request
func argsMap(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return nil
}

// anyArg returns a raw argument value, nil when absent
func anyArg(request mcp.CallToolRequest, name string) interface{} {
	return argsMap(request)[name]
}

// objectArg returns a JSON-object argument, nil when absent or mistyped
func objectArg(request mcp.CallToolRequest, name string) map[string]interface{} {
	if m, ok := argsMap(request)[name].(map[string]interface{}); ok {
		return m
	}
	return nil
}

// stringPtrArg distinguishes an absent string argument from an empty one
func stringPtrArg(request mcp.CallToolRequest, name string) *string {
	if v, ok := argsMap(request)[name].(string); ok {
		return &v
	}
	return nil
}

// int64PtrArg distinguishes an absent numeric argument from zero
func int64PtrArg(request mcp.CallToolRequest, name string) *int64 {
	if v, ok := argsMap(request)[name].(float64); ok {
		i := int64(v)
		return &i
	}
	return nil
}
