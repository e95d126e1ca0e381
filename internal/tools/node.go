// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/huginn-mcp/internal/database"
	"github.com/tejzpr/huginn-mcp/internal/graph"
)

// NewCreateNodeTool creates the huginn_create_node tool definition
func NewCreateNodeTool() mcp.Tool {
	return mcp.NewTool("huginn_create_node",
		mcp.WithDescription("Add a thought node to the graph. Every accepted change is audited, so actor and reason are required."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The thought text"),
		),
		mcp.WithString("summary",
			mcp.Description("Short label for the node"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("How certain this thought is, 0.0 to 1.0. Default: 1.0"),
		),
		mcp.WithString("color",
			mcp.Description("Display color as #RRGGBB. Default: #157f83"),
		),
		mcp.WithNumber("position_x",
			mcp.Description("Canvas X coordinate. Default: 0"),
		),
		mcp.WithNumber("position_y",
			mcp.Description("Canvas Y coordinate. Default: 0"),
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

// CreateNodeHandler handles the huginn_create_node tool
func CreateNodeHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, reason, errResult := requireActorReason(request)
		if errResult != nil {
			return errResult, nil
		}

		payload := graph.NodeCreatePayload{
			Content:    content,
			Summary:    request.GetString("summary", ""),
			Confidence: optionalFloat(request, "confidence"),
			Color:      request.GetString("color", ""),
			Position:   positionArg(request),
		}

		node, err := ctx.Repo.CreateNode(payload, actor, reason)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(node)
	}
}

// NewUpdateNodeTool creates the huginn_update_node tool definition
func NewUpdateNodeTool() mcp.Tool {
	return mcp.NewTool("huginn_update_node",
		mcp.WithDescription("Update fields of an existing thought node. Omitted fields are left unchanged."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID to update"),
		),
		mcp.WithString("content",
			mcp.Description("New thought text"),
		),
		mcp.WithString("summary",
			mcp.Description("New summary"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("New confidence, 0.0 to 1.0"),
		),
		mcp.WithString("color",
			mcp.Description("New display color as #RRGGBB"),
		),
		mcp.WithNumber("position_x",
			mcp.Description("New canvas X coordinate (requires position_y)"),
		),
		mcp.WithNumber("position_y",
			mcp.Description("New canvas Y coordinate (requires position_x)"),
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

// UpdateNodeHandler handles the huginn_update_node tool
func UpdateNodeHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, reason, errResult := requireActorReason(request)
		if errResult != nil {
			return errResult, nil
		}

		payload := graph.NodeUpdatePayload{
			Content:    optionalString(request, "content"),
			Summary:    optionalString(request, "summary"),
			Confidence: optionalFloat(request, "confidence"),
			Color:      optionalString(request, "color"),
			Position:   positionArg(request),
		}

		node, err := ctx.Repo.UpdateNode(id, payload, actor, reason)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(node)
	}
}

// NewDeleteNodeTool creates the huginn_delete_node tool definition
func NewDeleteNodeTool() mcp.Tool {
	return mcp.NewTool("huginn_delete_node",
		mcp.WithDescription("Delete a thought node. Connections touching the node are removed in the same change, each with its own audit record."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID to delete"),
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

// DeleteNodeHandler handles the huginn_delete_node tool
func DeleteNodeHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, reason, errResult := requireActorReason(request)
		if errResult != nil {
			return errResult, nil
		}

		if err := ctx.Repo.DeleteNode(id, actor, reason); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted node %s and its connections", id)), nil
	}
}

// positionArg assembles a position from the paired coordinate
// arguments. Both must be present for the position to count.
func positionArg(request mcp.CallToolRequest) *database.Position {
	x := optionalFloat(request, "position_x")
	y := optionalFloat(request, "position_y")
	if x == nil || y == nil {
		return nil
	}
	return &database.Position{X: *x, Y: *y}
}
