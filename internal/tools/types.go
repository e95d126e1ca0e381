// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/huginn-mcp/internal/graph"
	"github.com/tejzpr/huginn-mcp/internal/snapshot"
	hugerrors "github.com/tejzpr/huginn-mcp/pkg/errors"
	"gorm.io/gorm"
)

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	DB        *gorm.DB
	Repo      *graph.Repository
	Snapshots *snapshot.Manager
}

// NewToolContext creates a new tool context over an open database
func NewToolContext(db *gorm.DB) *ToolContext {
	repo := graph.NewRepository(db)
	return &ToolContext{
		DB:        db,
		Repo:      repo,
		Snapshots: snapshot.NewManager(db, repo),
	}
}

// toolError maps a core error to a tool error result. Each kind gets a
// distinct prefix so an agent can tell a bad argument from a missing
// entity or a transient store failure.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case hugerrors.IsValidation(err):
		return mcp.NewToolResultError(fmt.Sprintf("validation error: %v", err))
	case hugerrors.IsNotFound(err):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err))
	case hugerrors.IsConflict(err):
		return mcp.NewToolResultError(fmt.Sprintf("conflict: %v", err))
	case hugerrors.IsStorage(err):
		return mcp.NewToolResultError(fmt.Sprintf("storage error: %v", err))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

// jsonResult renders a value as an indented JSON tool result
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// requireActorReason extracts the mandatory audit context arguments
func requireActorReason(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	actor, err := request.RequireString("actor")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	reason, err := request.RequireString("reason")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return actor, reason, nil
}

// optionalString returns a pointer to the argument value when the
// caller supplied it, nil when the argument is absent.
func optionalString(request mcp.CallToolRequest, key string) *string {
	args := request.GetArguments()
	raw, ok := args[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	return &s
}

// optionalFloat returns a pointer to the argument value when supplied
func optionalFloat(request mcp.CallToolRequest, key string) *float64 {
	args := request.GetArguments()
	raw, ok := args[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}
