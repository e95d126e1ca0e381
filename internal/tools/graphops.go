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

// graphView is the full-graph shape returned by huginn_graph
type graphView struct {
	NodeCount       int                         `json:"node_count"`
	ConnectionCount int                         `json:"connection_count"`
	Nodes           []database.HuginnNode       `json:"nodes"`
	Connections     []database.HuginnConnection `json:"connections"`
}

// NewGraphTool creates the huginn_graph tool definition
func NewGraphTool() mcp.Tool {
	return mcp.NewTool("huginn_graph",
		mcp.WithDescription("Read the current thought graph. Without arguments returns every node and connection; with start_id returns the neighborhood reachable from that node."),
		mcp.WithString("start_id",
			mcp.Description("Traverse outward from this node instead of returning the whole graph"),
		),
		mcp.WithNumber("max_hops",
			mcp.Description(fmt.Sprintf("How far to traverse from start_id, 1 to %d. Default: 2", graph.MaxTraversalHops)),
		),
		mcp.WithBoolean("depth_first",
			mcp.Description("Traverse depth-first instead of breadth-first"),
		),
	)
}

// GraphHandler handles the huginn_graph tool
func GraphHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startID := request.GetString("start_id", "")
		if startID != "" {
			maxHops := int(request.GetFloat("max_hops", 2.0))
			depthFirst := request.GetBool("depth_first", false)

			traversal, err := ctx.Repo.Traverse(startID, maxHops, !depthFirst)
			if err != nil {
				return toolError(err), nil
			}
			return jsonResult(traversal)
		}

		nodes, connections, err := ctx.Repo.SnapshotState()
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(graphView{
			NodeCount:       len(nodes),
			ConnectionCount: len(connections),
			Nodes:           nodes,
			Connections:     connections,
		})
	}
}

// NewSaveTool creates the huginn_save tool definition
func NewSaveTool() mcp.Tool {
	return mcp.NewTool("huginn_save",
		mcp.WithDescription("Save the current graph as a named snapshot. Names are unique; saving never overwrites an existing snapshot."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Snapshot name (up to 120 characters)"),
		),
		mcp.WithString("actor",
			mcp.Required(),
			mcp.Description("Who is saving the snapshot"),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.Description("Why the snapshot is being saved"),
		),
	)
}

// SaveHandler handles the huginn_save tool
func SaveHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, reason, errResult := requireActorReason(request)
		if errResult != nil {
			return errResult, nil
		}

		snap, err := ctx.Snapshots.Save(name, actor, reason)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(snap)
	}
}

// NewLoadTool creates the huginn_load tool definition
func NewLoadTool() mcp.Tool {
	return mcp.NewTool("huginn_load",
		mcp.WithDescription("Replace the entire current graph with a named snapshot. The replacement is atomic and fully audited."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Snapshot name to load"),
		),
		mcp.WithString("actor",
			mcp.Required(),
			mcp.Description("Who is loading the snapshot"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the snapshot is being loaded. Default mentions the snapshot name"),
		),
	)
}

// LoadHandler handles the huginn_load tool
func LoadHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, err := request.RequireString("actor")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := ctx.Snapshots.Load(name, actor, request.GetString("reason", ""))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(result)
	}
}

// NewListSavedTool creates the huginn_list_saved tool definition
func NewListSavedTool() mcp.Tool {
	return mcp.NewTool("huginn_list_saved",
		mcp.WithDescription("List saved snapshots with their node and connection counts, newest first."),
	)
}

// ListSavedHandler handles the huginn_list_saved tool
func ListSavedHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snaps, err := ctx.Snapshots.List()
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(snaps)
	}
}

// NewDeleteSavedTool creates the huginn_delete_saved tool definition
func NewDeleteSavedTool() mcp.Tool {
	return mcp.NewTool("huginn_delete_saved",
		mcp.WithDescription("Delete a saved snapshot. The current graph is not affected."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Snapshot name to delete"),
		),
	)
}

// DeleteSavedHandler handles the huginn_delete_saved tool
func DeleteSavedHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := ctx.Snapshots.Delete(name); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted snapshot '%s'", name)), nil
	}
}

// NewExportTool creates the huginn_export tool definition
func NewExportTool() mcp.Tool {
	return mcp.NewTool("huginn_export",
		mcp.WithDescription("Export the current graph as a portable JSON document that huginn_import accepts."),
	)
}

// ExportHandler handles the huginn_export tool
func ExportHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, err := ctx.Snapshots.Export()
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(doc)
	}
}

// NewImportTool creates the huginn_import tool definition
func NewImportTool() mcp.Tool {
	return mcp.NewTool("huginn_import",
		mcp.WithDescription("Replace the entire current graph with an imported JSON document. Connections referencing nodes outside the document are rejected."),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("The graph document JSON, as produced by huginn_export"),
		),
		mcp.WithString("actor",
			mcp.Required(),
			mcp.Description("Who is importing the graph"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the graph is being imported"),
		),
	)
}

// ImportHandler handles the huginn_import tool
func ImportHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		document, err := request.RequireString("document")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actor, err := request.RequireString("actor")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := ctx.Snapshots.Import([]byte(document), actor, request.GetString("reason", ""))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(result)
	}
}

// NewClearTool creates the huginn_clear tool definition
func NewClearTool() mcp.Tool {
	return mcp.NewTool("huginn_clear",
		mcp.WithDescription("Delete every node and connection in the current graph. Saved snapshots and the audit trail survive."),
		mcp.WithString("actor",
			mcp.Required(),
			mcp.Description("Who is clearing the graph"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the graph is being cleared"),
		),
	)
}

// ClearHandler handles the huginn_clear tool
func ClearHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		actor, err := request.RequireString("actor")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := ctx.Snapshots.Clear(actor, request.GetString("reason", ""))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(result)
	}
}
