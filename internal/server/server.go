// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/mark3labs/mcp-go/server"
	"gorm.io/gorm"

	"github.com/praxis-labs/loom-mcp/internal/config"
	"github.com/praxis-labs/loom-mcp/internal/tools"
)

// MCPServer wraps the mcp-go server with our configuration
type MCPServer struct {
	mcpServer *server.MCPServer
	config    *config.Config
	db        *gorm.DB
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(cfg *config.Config, db *gorm.DB) (*MCPServer, error) {
	mcpServer := server.NewMCPServer(
		"Loom",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &MCPServer{
		mcpServer: mcpServer,
		config:    cfg,
		db:        db,
	}

	srv.registerTools()

	return srv, nil
}

// registerTools registers every MCP tool against the shared stores
func (s *MCPServer) registerTools() {
	toolCtx := tools.NewToolContext(s.db)

	// Timeline: the append-mostly event log with lazy detail expansion
	s.mcpServer.AddTool(tools.NewStoreEventTool(), tools.StoreEventHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewGetEventTool(), tools.GetEventHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewGetTimelineTool(), tools.GetTimelineHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewGetTimelineRangeTool(), tools.GetTimelineRangeHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewExpandEventTool(), tools.ExpandEventHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewGetFullDetailsTool(), tools.GetFullDetailsHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewUpdateEventTool(), tools.UpdateEventHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewDeleteEventTool(), tools.DeleteEventHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewTimelineSummaryTool(), tools.TimelineSummaryHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewEventTypesTool(), tools.EventTypesHandler(toolCtx))

	// Entities: versioned named records and typed relations
	s.mcpServer.AddTool(tools.NewCreateEntityTool(), tools.CreateEntityHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewGetEntityTool(), tools.GetEntityHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewListEntitiesTool(), tools.ListEntitiesHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewUpdateEntityTool(), tools.UpdateEntityHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewDeleteEntityTool(), tools.DeleteEntityHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewEntityVersionsTool(), tools.EntityVersionsHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewCreateRelationTool(), tools.CreateRelationHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewGetRelationsTool(), tools.GetRelationsHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewDeleteRelationTool(), tools.DeleteRelationHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewEntityTimelineTool(), tools.EntityTimelineHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewSearchEntitiesTool(), tools.SearchEntitiesHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewEntityStatsTool(), tools.EntityStatsHandler(toolCtx))

	// Memories: namespaced key-value store with TTL
	s.mcpServer.AddTool(tools.NewStoreMemoryTool(), tools.StoreMemoryHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewRetrieveMemoryTool(), tools.RetrieveMemoryHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewDeleteMemoryTool(), tools.DeleteMemoryHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewListMemoriesTool(), tools.ListMemoriesHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewSearchMemoriesTool(), tools.SearchMemoriesHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewBulkStoreMemoriesTool(), tools.BulkStoreMemoriesHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewBulkDeleteMemoriesTool(), tools.BulkDeleteMemoriesHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewUpdateMemoryTTLTool(), tools.UpdateMemoryTTLHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewMemoryStatsTool(), tools.MemoryStatsHandler(toolCtx))
	s.mcpServer.AddTool(tools.NewCleanExpiredTool(), tools.CleanExpiredHandler(toolCtx))
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
