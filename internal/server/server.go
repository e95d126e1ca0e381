// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/tejzpr/huginn-mcp/internal/config"
	"github.com/tejzpr/huginn-mcp/internal/tools"
	"gorm.io/gorm"
)

// MCPServer wraps the mcp-go server with our configuration
type MCPServer struct {
	mcpServer *server.MCPServer
	config    *config.Config
	db        *gorm.DB
	toolCtx   *tools.ToolContext
}

// NewMCPServer creates a new MCP server instance with all tools registered
func NewMCPServer(cfg *config.Config, db *gorm.DB) (*MCPServer, error) {
	mcpServer := server.NewMCPServer(
		"Huginn",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &MCPServer{
		mcpServer: mcpServer,
		config:    cfg,
		db:        db,
		toolCtx:   tools.NewToolContext(db),
	}
	srv.registerTools()

	return srv, nil
}

// registerTools registers the full tool surface. The graph is a single
// shared workspace, so registration is global rather than per-session.
func (s *MCPServer) registerTools() {
	ctx := s.toolCtx

	// Node CRUD
	s.mcpServer.AddTool(tools.NewCreateNodeTool(), tools.CreateNodeHandler(ctx))
	s.mcpServer.AddTool(tools.NewUpdateNodeTool(), tools.UpdateNodeHandler(ctx))
	s.mcpServer.AddTool(tools.NewDeleteNodeTool(), tools.DeleteNodeHandler(ctx))

	// Connection CRUD
	s.mcpServer.AddTool(tools.NewConnectTool(), tools.ConnectHandler(ctx))
	s.mcpServer.AddTool(tools.NewUpdateConnectionTool(), tools.UpdateConnectionHandler(ctx))
	s.mcpServer.AddTool(tools.NewDisconnectTool(), tools.DisconnectHandler(ctx))

	// Whole-graph reads and snapshots
	s.mcpServer.AddTool(tools.NewGraphTool(), tools.GraphHandler(ctx))
	s.mcpServer.AddTool(tools.NewSaveTool(), tools.SaveHandler(ctx))
	s.mcpServer.AddTool(tools.NewLoadTool(), tools.LoadHandler(ctx))
	s.mcpServer.AddTool(tools.NewListSavedTool(), tools.ListSavedHandler(ctx))
	s.mcpServer.AddTool(tools.NewDeleteSavedTool(), tools.DeleteSavedHandler(ctx))
	s.mcpServer.AddTool(tools.NewExportTool(), tools.ExportHandler(ctx))
	s.mcpServer.AddTool(tools.NewImportTool(), tools.ImportHandler(ctx))
	s.mcpServer.AddTool(tools.NewClearTool(), tools.ClearHandler(ctx))

	// Audit trail
	s.mcpServer.AddTool(tools.NewAuditTool(), tools.AuditHandler(ctx))
	s.mcpServer.AddTool(tools.NewVerifyTool(), tools.VerifyHandler(ctx))
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
