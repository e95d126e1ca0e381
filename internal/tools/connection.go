// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/huginn-mcp/internal/database"
	"github.com/tejzpr/huginn-mcp/internal/graph"
)

// NewConnectTool creates the huginn_connect tool definition
func NewConnectTool() mcp.Tool {
	return mcp.NewTool("huginn_connect",
		mcp.WithDescription("Create a typed directed connection between two thought nodes. Self-loops are rejected."),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Source node ID"),
		),
		mcp.WithString("target_id",
			mcp.Required(),
			mcp.Description("Target node ID"),
		),
		mcp.WithString("conn_type",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Connection type. Valid: %s", strings.Join(database.ValidConnTypes(), ", "))),
		),
		mcp.WithString("description",
			mcp.Description("Optional note on the connection"),
		),
		mcp.WithString("actor",
			mcp.Required(),
			mcp.Description("Who is making this change"),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.Description("Why this change is being made"),
		),
	)
}

// ConnectHandler handles the huginn_connect tool
func ConnectHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourceID, err := request.RequireString("source_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		targetID, err := request.RequireString("target_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		connType, err := request.RequireString("conn_type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, reason, errResult := requireActorReason(request)
		if errResult != nil {
			return errResult, nil
		}

		payload := graph.ConnectionCreatePayload{
			SourceID:    sourceID,
			TargetID:    targetID,
			ConnType:    connType,
			Description: request.GetString("description", ""),
		}

		conn, err := ctx.Repo.CreateConnection(payload, actor, reason)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(conn)
	}
}

// NewUpdateConnectionTool creates the huginn_update_connection tool definition
func NewUpdateConnectionTool() mcp.Tool {
	return mcp.NewTool("huginn_update_connection",
		mcp.WithDescription("Update fields of an existing connection. Omitted fields are left unchanged. Endpoint changes are re-checked against the graph."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Connection ID to update"),
		),
		mcp.WithString("source_id",
			mcp.Description("New source node ID"),
		),
		mcp.WithString("target_id",
			mcp.Description("New target node ID"),
		),
		mcp.WithString("conn_type",
			mcp.Description(fmt.Sprintf("New connection type. Valid: %s", strings.Join(database.ValidConnTypes(), ", "))),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("actor",
			mcp.Required(),
			mcp.Description("Who is making this change"),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.Description("Why this change is being made"),
		),
	)
}

// UpdateConnectionHandler handles the huginn_update_connection tool
func UpdateConnectionHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, reason, errResult := requireActorReason(request)
		if errResult != nil {
			return errResult, nil
		}

		payload := graph.ConnectionUpdatePayload{
			SourceID:    optionalString(request, "source_id"),
			TargetID:    optionalString(request, "target_id"),
			ConnType:    optionalString(request, "conn_type"),
			Description: optionalString(request, "description"),
		}

		conn, err := ctx.Repo.UpdateConnection(id, payload, actor, reason)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(conn)
	}
}

// NewDisconnectTool creates the huginn_disconnect tool definition
func NewDisconnectTool() mcp.Tool {
	return mcp.NewTool("huginn_disconnect",
		mcp.WithDescription("Delete a connection between thought nodes. The nodes themselves are untouched."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Connection ID to delete"),
		),
		mcp.WithString("actor",
			mcp.Required(),
			mcp.Description("Who is making this change"),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.Description("Why this change is being made"),
		),
	)
}

// DisconnectHandler handles the huginn_disconnect tool
func DisconnectHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, reason, errResult := requireActorReason(request)
		if errResult != nil {
			return errResult, nil
		}

		if err := ctx.Repo.DeleteConnection(id, actor, reason); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted connection %s", id)), nil
	}
}
