// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/praxis-labs/loom-mcp/internal/store"
)

// NewCreateEntityTool creates the loom_create_entity tool definition
func NewCreateEntityTool() mcp.Tool {
	return mcp.NewTool("loom_create_entity",
		mcp.WithDescription("Create a named entity in the context graph. Names are globally unique."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Entity category, e.g. 'person' or 'project'"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Globally unique display name"),
		),
		mcp.WithObject("properties",
			mcp.Description("Arbitrary JSON properties"),
		),
		mcp.WithString("actor",
			mcp.Description("Who is making this change (recorded in the version history)"),
		),
	)
}

// CreateEntityHandler handles the loom_create_entity tool
func CreateEntityHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entityType, err := request.RequireString("type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entity, err := ctx.Entities.CreateEntity(store.CreateEntityInput{
			Type:       entityType,
			Name:       name,
			Properties: objectArg(request, "properties"),
		}, request.GetString("actor", ""))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(entity)
	}
}

// NewGetEntityTool creates the loom_get_entity tool definition
func NewGetEntityTool() mcp.Tool {
	return mcp.NewTool("loom_get_entity",
		mcp.WithDescription("Fetch an entity by id or name."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Entity id or name"),
		),
	)
}

// GetEntityHandler handles the loom_get_entity tool
func GetEntityHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idOrName, err := request.RequireString("entity")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entity, err := ctx.Entities.GetEntity(idOrName)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(entity)
	}
}

// NewListEntitiesTool creates the loom_list_entities tool definition
func NewListEntitiesTool() mcp.Tool {
	return mcp.NewTool("loom_list_entities",
		mcp.WithDescription("List entities, optionally restricted to one type. Ordered by name."),
		mcp.WithString("type",
			mcp.Description("Only entities of this type; omit for all"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entities to return (default 1000)"),
		),
	)
}

// ListEntitiesHandler handles the loom_list_entities tool
func ListEntitiesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := int(request.GetFloat("limit", 0))
		entityType := request.GetString("type", "")

		var entities interface{}
		var err error
		if entityType != "" {
			entities, err = ctx.Entities.ListEntitiesByType(entityType, limit)
		} else {
			entities, err = ctx.Entities.ListAllEntities(limit)
		}
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(entities)
	}
}

// NewUpdateEntityTool creates the loom_update_entity tool definition
func NewUpdateEntityTool() mcp.Tool {
	return mcp.NewTool("loom_update_entity",
		mcp.WithDescription("Replace an entity's properties. The previous state is preserved as a version snapshot."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Entity id or name"),
		),
		mcp.WithObject("properties",
			mcp.Required(),
			mcp.Description("Replacement properties (replaced wholesale, not merged)"),
		),
		mcp.WithString("actor",
			mcp.Description("Who is making this change"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the entity changed"),
		),
	)
}

// UpdateEntityHandler handles the loom_update_entity tool
func UpdateEntityHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idOrName, err := request.RequireString("entity")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entity, err := ctx.Entities.UpdateEntity(idOrName,
			objectArg(request, "properties"),
			request.GetString("actor", ""),
			request.GetString("reason", ""))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(entity)
	}
}

// NewDeleteEntityTool creates the loom_delete_entity tool definition
func NewDeleteEntityTool() mcp.Tool {
	return mcp.NewTool("loom_delete_entity",
		mcp.WithDescription("Delete an entity together with its version history and all relations touching it."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Entity id or name"),
		),
	)
}

// DeleteEntityHandler handles the loom_delete_entity tool
func DeleteEntityHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idOrName, err := request.RequireString("entity")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := ctx.Entities.DeleteEntity(idOrName); err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]interface{}{"deleted": idOrName})
	}
}

// NewEntityVersionsTool creates the loom_entity_versions tool definition
func NewEntityVersionsTool() mcp.Tool {
	return mcp.NewTool("loom_entity_versions",
		mcp.WithDescription("Fetch an entity's version history, newest first."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Entity id or name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum versions to return (default 100)"),
		),
	)
}

// EntityVersionsHandler handles the loom_entity_versions tool
func EntityVersionsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idOrName, err := request.RequireString("entity")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		versions, err := ctx.Entities.GetEntityVersions(idOrName, int(request.GetFloat("limit", 0)))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(versions)
	}
}

// NewCreateRelationTool creates the loom_create_relation tool definition
func NewCreateRelationTool() mcp.Tool {
	return mcp.NewTool("loom_create_relation",
		mcp.WithDescription("Create a typed directed relation between two existing entities."),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Source entity id or name"),
		),
		mcp.WithString("relation",
			mcp.Required(),
			mcp.Description("Relation type, e.g. 'works_at' or 'knows'"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Target entity id or name"),
		),
		mcp.WithObject("properties",
			mcp.Description("Optional JSON annotation on the relation"),
		),
	)
}

// CreateRelationHandler handles the loom_create_relation tool
func CreateRelationHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, err := request.RequireString("from")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		relation, err := request.RequireString("relation")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		to, err := request.RequireString("to")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		created, err := ctx.Entities.CreateRelation(store.CreateRelationInput{
			From:       from,
			Relation:   relation,
			To:         to,
			Properties: objectArg(request, "properties"),
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(created)
	}
}

// NewGetRelationsTool creates the loom_get_relations tool definition
func NewGetRelationsTool() mcp.Tool {
	return mcp.NewTool("loom_get_relations",
		mcp.WithDescription("List the relations touching an entity, newest first."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Entity id or name"),
		),
		mcp.WithString("direction",
			mcp.Description("'from' for outgoing, 'to' for incoming, 'both' for either (default both)"),
		),
		mcp.WithString("relation_type",
			mcp.Description("Only relations of this exact type"),
		),
	)
}

// GetRelationsHandler handles the loom_get_relations tool
func GetRelationsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idOrName, err := request.RequireString("entity")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		relations, err := ctx.Entities.GetEntityRelations(idOrName,
			request.GetString("direction", store.DirectionBoth),
			request.GetString("relation_type", ""))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(relations)
	}
}

// NewDeleteRelationTool creates the loom_delete_relation tool definition
func NewDeleteRelationTool() mcp.Tool {
	return mcp.NewTool("loom_delete_relation",
		mcp.WithDescription("Delete a relation by id. Succeeds whether or not the relation exists."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Relation id"),
		),
	)
}

// DeleteRelationHandler handles the loom_delete_relation tool
func DeleteRelationHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		removed, err := ctx.Entities.DeleteRelation(id)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]interface{}{"removed": removed})
	}
}

// NewEntityTimelineTool creates the loom_entity_timeline tool definition
func NewEntityTimelineTool() mcp.Tool {
	return mcp.NewTool("loom_entity_timeline",
		mcp.WithDescription("Find timeline events whose metadata mentions an entity's name. Best-effort text matching, not a structural link."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Entity id or name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum events to return (default 100)"),
		),
	)
}

// EntityTimelineHandler handles the loom_entity_timeline tool
func EntityTimelineHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idOrName, err := request.RequireString("entity")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		events, err := ctx.Entities.GetEntityTimeline(idOrName, int(request.GetFloat("limit", 0)))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(events)
	}
}

// NewSearchEntitiesTool creates the loom_search_entities tool definition
func NewSearchEntitiesTool() mcp.Tool {
	return mcp.NewTool("loom_search_entities",
		mcp.WithDescription("Find entities whose name or properties contain a term."),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Substring to search for"),
		),
		mcp.WithString("type",
			mcp.Description("Only entities of this type"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entities to return (default 100)"),
		),
	)
}

// SearchEntitiesHandler handles the loom_search_entities tool
func SearchEntitiesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		term, err := request.RequireString("term")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entities, err := ctx.Entities.SearchEntities(term,
			request.GetString("type", ""),
			int(request.GetFloat("limit", 0)))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(entities)
	}
}

// NewEntityStatsTool creates the loom_entity_stats tool definition
func NewEntityStatsTool() mcp.Tool {
	return mcp.NewTool("loom_entity_stats",
		mcp.WithDescription("Entity counts grouped by type."),
	)
}

// EntityStatsHandler handles the loom_entity_stats tool
func EntityStatsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := ctx.Entities.GetEntityTypeStats()
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(stats)
	}
}
