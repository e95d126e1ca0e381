// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package integration

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejzpr/huginn-mcp/internal/audit"
	"github.com/tejzpr/huginn-mcp/internal/database"
	"github.com/tejzpr/huginn-mcp/internal/tools"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testSetup creates a test environment with a fresh sqlite database and
// a fully wired tool context
type testSetup struct {
	DB      *gorm.DB
	ToolCtx *tools.ToolContext
}

func setupTestEnvironment(t *testing.T) *testSetup {
	t.Helper()
	cfg := &database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "huginn.db"),
		LogLevel:   logger.Silent,
	}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.CreateIndexes(db))
	t.Cleanup(func() { _ = database.Close(db) })

	return &testSetup{DB: db, ToolCtx: tools.NewToolContext(db)}
}

// getResultText extracts text from CallToolResult
func getResultText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	return result
}

func createNodeViaTool(t *testing.T, setup *testSetup, content string) string {
	t.Helper()
	result := callTool(t, tools.CreateNodeHandler(setup.ToolCtx), map[string]interface{}{
		"content": content,
		"actor":   "integration",
		"reason":  "build graph",
	})
	require.False(t, result.IsError, getResultText(result))

	var node database.HuginnNode
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &node))
	return node.ID
}

func TestGraphLifecycle(t *testing.T) {
	setup := setupTestEnvironment(t)

	premiseID := createNodeViaTool(t, setup, "All ravens are black")
	observationID := createNodeViaTool(t, setup, "This bird is a raven")
	conclusionID := createNodeViaTool(t, setup, "This bird is black")

	// Connect premise and observation to the conclusion.
	result := callTool(t, tools.ConnectHandler(setup.ToolCtx), map[string]interface{}{
		"source_id": premiseID,
		"target_id": conclusionID,
		"conn_type": "supports",
		"actor":     "integration",
		"reason":    "derive conclusion",
	})
	require.False(t, result.IsError, getResultText(result))

	result = callTool(t, tools.ConnectHandler(setup.ToolCtx), map[string]interface{}{
		"source_id": observationID,
		"target_id": conclusionID,
		"conn_type": "leads_to",
		"actor":     "integration",
		"reason":    "derive conclusion",
	})
	require.False(t, result.IsError, getResultText(result))

	// Revise a node.
	result = callTool(t, tools.UpdateNodeHandler(setup.ToolCtx), map[string]interface{}{
		"id":         conclusionID,
		"confidence": 0.9,
		"actor":      "integration",
		"reason":     "induction is not certainty",
	})
	require.False(t, result.IsError, getResultText(result))

	// Whole-graph read reflects everything.
	result = callTool(t, tools.GraphHandler(setup.ToolCtx), map[string]interface{}{})
	require.False(t, result.IsError)
	var view struct {
		NodeCount       int `json:"node_count"`
		ConnectionCount int `json:"connection_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &view))
	assert.Equal(t, 3, view.NodeCount)
	assert.Equal(t, 2, view.ConnectionCount)

	// Deleting the conclusion cascades to both connections.
	result = callTool(t, tools.DeleteNodeHandler(setup.ToolCtx), map[string]interface{}{
		"id":     conclusionID,
		"actor":  "integration",
		"reason": "retract conclusion",
	})
	require.False(t, result.IsError, getResultText(result))

	connections, err := setup.ToolCtx.Repo.ListConnections()
	require.NoError(t, err)
	assert.Empty(t, connections)

	// The audit trail explains the final state.
	report, err := audit.Verify(setup.DB)
	require.NoError(t, err)
	assert.True(t, report.OK, "issues: %v", report.Issues)

	// create x3 + connect x2 + update + cascade delete x2 + node delete.
	records, err := audit.List(setup.DB, audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 9)
}

func TestSnapshotRoundTripViaTools(t *testing.T) {
	setup := setupTestEnvironment(t)

	aID := createNodeViaTool(t, setup, "alpha")
	bID := createNodeViaTool(t, setup, "beta")
	result := callTool(t, tools.ConnectHandler(setup.ToolCtx), map[string]interface{}{
		"source_id": aID,
		"target_id": bID,
		"conn_type": "relates",
		"actor":     "integration",
		"reason":    "link",
	})
	require.False(t, result.IsError, getResultText(result))

	// Save, clear, reload.
	result = callTool(t, tools.SaveHandler(setup.ToolCtx), map[string]interface{}{
		"name":   "before-experiment",
		"actor":  "integration",
		"reason": "checkpoint",
	})
	require.False(t, result.IsError, getResultText(result))

	result = callTool(t, tools.ClearHandler(setup.ToolCtx), map[string]interface{}{
		"actor": "integration",
	})
	require.False(t, result.IsError, getResultText(result))

	nodes, err := setup.ToolCtx.Repo.ListNodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)

	result = callTool(t, tools.LoadHandler(setup.ToolCtx), map[string]interface{}{
		"name":  "before-experiment",
		"actor": "integration",
	})
	require.False(t, result.IsError, getResultText(result))

	nodes, err = setup.ToolCtx.Repo.ListNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	// Export the restored graph and import it again.
	result = callTool(t, tools.ExportHandler(setup.ToolCtx), map[string]interface{}{})
	require.False(t, result.IsError)
	exported := getResultText(result)

	result = callTool(t, tools.ImportHandler(setup.ToolCtx), map[string]interface{}{
		"document": exported,
		"actor":    "integration",
	})
	require.False(t, result.IsError, getResultText(result))

	nodes, err = setup.ToolCtx.Repo.ListNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	// Snapshot bookkeeping.
	result = callTool(t, tools.ListSavedHandler(setup.ToolCtx), map[string]interface{}{})
	require.False(t, result.IsError)
	var saved []database.HuginnSnapshot
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "before-experiment", saved[0].Name)

	result = callTool(t, tools.DeleteSavedHandler(setup.ToolCtx), map[string]interface{}{
		"name": "before-experiment",
	})
	require.False(t, result.IsError, getResultText(result))

	// Everything above still verifies.
	result = callTool(t, tools.VerifyHandler(setup.ToolCtx), map[string]interface{}{})
	require.False(t, result.IsError)
	var report audit.IntegrityReport
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &report))
	assert.True(t, report.OK, "issues: %v", report.Issues)
}

func TestToolErrorMapping(t *testing.T) {
	setup := setupTestEnvironment(t)

	// Unknown node id.
	result := callTool(t, tools.UpdateNodeHandler(setup.ToolCtx), map[string]interface{}{
		"id":     "does-not-exist",
		"actor":  "integration",
		"reason": "update",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "not found")

	// Missing required argument.
	result = callTool(t, tools.CreateNodeHandler(setup.ToolCtx), map[string]interface{}{
		"content": "no audit context",
	})
	assert.True(t, result.IsError)

	// Out-of-range confidence.
	result = callTool(t, tools.CreateNodeHandler(setup.ToolCtx), map[string]interface{}{
		"content":    "overconfident",
		"confidence": 1.5,
		"actor":      "integration",
		"reason":     "create",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "validation error")

	// Self-loop connection.
	id := createNodeViaTool(t, setup, "solo")
	result = callTool(t, tools.ConnectHandler(setup.ToolCtx), map[string]interface{}{
		"source_id": id,
		"target_id": id,
		"conn_type": "relates",
		"actor":     "integration",
		"reason":    "loop",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "validation error")

	// Duplicate snapshot name.
	result = callTool(t, tools.SaveHandler(setup.ToolCtx), map[string]interface{}{
		"name":   "dup",
		"actor":  "integration",
		"reason": "first",
	})
	require.False(t, result.IsError, getResultText(result))
	result = callTool(t, tools.SaveHandler(setup.ToolCtx), map[string]interface{}{
		"name":   "dup",
		"actor":  "integration",
		"reason": "second",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "conflict")
}

func TestAuditToolViews(t *testing.T) {
	setup := setupTestEnvironment(t)

	id := createNodeViaTool(t, setup, "tracked")
	result := callTool(t, tools.UpdateNodeHandler(setup.ToolCtx), map[string]interface{}{
		"id":      id,
		"summary": "now summarized",
		"actor":   "integration",
		"reason":  "annotate",
	})
	require.False(t, result.IsError, getResultText(result))

	// Raw records, filtered to one entity.
	result = callTool(t, tools.AuditHandler(setup.ToolCtx), map[string]interface{}{
		"entity_type": "node",
		"entity_id":   id,
	})
	require.False(t, result.IsError)
	var records []database.HuginnAudit
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &records))
	require.Len(t, records, 2)
	assert.Equal(t, database.AuditActionCreate, records[0].Action)
	assert.Equal(t, database.AuditActionUpdate, records[1].Action)

	// Summary report.
	result = callTool(t, tools.AuditHandler(setup.ToolCtx), map[string]interface{}{
		"report": true,
	})
	require.False(t, result.IsError)
	var report audit.Report
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &report))
	assert.Equal(t, audit.ReportFormat, report.Format)
	assert.Equal(t, 2, report.RecordCount)
	assert.Equal(t, 2, report.ActorCounts["integration"])
}

func TestTraversalViaGraphTool(t *testing.T) {
	setup := setupTestEnvironment(t)

	aID := createNodeViaTool(t, setup, "start")
	bID := createNodeViaTool(t, setup, "middle")
	cID := createNodeViaTool(t, setup, "far end")
	for _, pair := range [][2]string{{aID, bID}, {bID, cID}} {
		result := callTool(t, tools.ConnectHandler(setup.ToolCtx), map[string]interface{}{
			"source_id": pair[0],
			"target_id": pair[1],
			"conn_type": "leads_to",
			"actor":     "integration",
			"reason":    "chain",
		})
		require.False(t, result.IsError, getResultText(result))
	}

	result := callTool(t, tools.GraphHandler(setup.ToolCtx), map[string]interface{}{
		"start_id": aID,
		"max_hops": 1,
	})
	require.False(t, result.IsError)

	var traversal struct {
		Nodes []struct {
			ID    string `json:"id"`
			Depth int    `json:"depth"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &traversal))
	require.Len(t, traversal.Nodes, 2)
	ids := map[string]int{}
	for _, node := range traversal.Nodes {
		ids[node.ID] = node.Depth
	}
	assert.Equal(t, 0, ids[aID])
	assert.Equal(t, 1, ids[bID])
}
