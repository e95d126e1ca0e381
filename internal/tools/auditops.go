// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/huginn-mcp/internal/audit"
)

// NewAuditTool creates the huginn_audit tool definition
func NewAuditTool() mcp.Tool {
	return mcp.NewTool("huginn_audit",
		mcp.WithDescription("Read the audit trail: every accepted change with who made it, why, and the entity state before and after."),
		mcp.WithString("entity_type",
			mcp.Description("Only records for this entity type: 'node', 'connection', or 'global'"),
		),
		mcp.WithString("entity_id",
			mcp.Description("Only records for this entity ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum records to return, up to 1000. Default: 100"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Records to skip, for paging. Default: 0"),
		),
		mcp.WithBoolean("report",
			mcp.Description("Return a summary report (counts by entity, action, and actor) instead of raw records"),
		),
	)
}

// AuditHandler handles the huginn_audit tool
func AuditHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := audit.Filter{
			EntityType: request.GetString("entity_type", ""),
			EntityID:   request.GetString("entity_id", ""),
			Limit:      int(request.GetFloat("limit", 0)),
			Offset:     int(request.GetFloat("offset", 0)),
		}

		if request.GetBool("report", false) {
			report, err := audit.ExportReport(ctx.DB, filter)
			if err != nil {
				return toolError(err), nil
			}
			return jsonResult(report)
		}

		records, err := audit.List(ctx.DB, filter)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(records)
	}
}

// NewVerifyTool creates the huginn_verify tool definition
func NewVerifyTool() mcp.Tool {
	return mcp.NewTool("huginn_verify",
		mcp.WithDescription("Replay the audit trail against the current graph and report any integrity issues. Read-only."),
	)
}

// VerifyHandler handles the huginn_verify tool
func VerifyHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := audit.Verify(ctx.DB)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(report)
	}
}
