// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/tejzpr/huginn-mcp/internal/config"
	"github.com/tejzpr/huginn-mcp/internal/database"
	"github.com/tejzpr/huginn-mcp/internal/server"
	"github.com/tejzpr/huginn-mcp/pkg/scheduler"
)

// Version is set at build time via ldflags (e.g. goreleaser -X main.Version={{.Version}}).
var Version string

func main() {
	// CRITICAL: MCP servers must ONLY output JSON-RPC to stdout
	// Redirect all logging to stderr
	log.SetOutput(os.Stderr)

	httpMode := flag.Bool("http", false, "Run in HTTP server mode (default: stdio for MCP)")
	dbType := flag.String("db-type", "", "Database type (sqlite or postgres)")
	dbPath := flag.String("db-path", "", "Database path (for sqlite)")
	dbDSN := flag.String("db-dsn", "", "Database DSN (for postgres)")
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "Server port (HTTP mode only)")
	verifyInterval := flag.Int("verify-interval", -1, "Audit verification interval in minutes (0 disables)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Huginn MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Server Mode:\n")
		fmt.Fprintf(os.Stderr, "  %s            Start MCP server (stdio)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --http     Start MCP server over streamable HTTP\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE    Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH    SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN     PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  PORT       Server port (HTTP mode only)\n")
	}

	flag.Parse()

	log.Println("Starting Huginn MCP Server...")

	// Load configuration
	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config from %s: %v", *configPath, err)
		}
		log.Printf("Loaded configuration from %s", *configPath)
	} else {
		writeStarterConfig()
		cfg, err = config.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Apply CLI flag overrides (highest priority)
	applyCLIOverrides(cfg, *dbType, *dbPath, *dbDSN, *port, *verifyInterval)

	log.Printf("Configuration: database=%s", cfg.Database.Type)

	// Connect to the entity store
	dbCfg := &database.Config{
		Type:        cfg.Database.Type,
		SQLitePath:  cfg.Database.SQLitePath,
		PostgresDSN: cfg.Database.PostgresDSN,
		LogLevel:    cfg.Database.GormLogLevel(),
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	log.Printf("Connected to database: %s", cfg.Database.Type)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if err := database.CreateIndexes(db); err != nil {
		log.Printf("Warning: Failed to create indexes: %v", err)
	}

	// Create MCP server with the full tool surface
	mcpServer, err := server.NewMCPServer(cfg, db)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Start background audit verification when configured
	if cfg.Audit.VerifyInterval > 0 {
		sched := scheduler.NewScheduler(db, cfg.Audit.VerifyInterval)
		sched.Start()
		defer sched.Stop()
		log.Printf("Background audit verification started (interval: %d minutes)", cfg.Audit.VerifyInterval)
	}

	if *httpMode {
		runHTTPMode(cfg, mcpServer)
	} else {
		runStdioMode(mcpServer)
	}
}

// writeStarterConfig drops a default config file on first run so the
// on-disk settings are discoverable and editable.
func writeStarterConfig() {
	if err := config.EnsureConfigDir(); err != nil {
		log.Printf("Warning: Failed to create config directory: %v", err)
		return
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return
	}
	path := filepath.Join(homeDir, config.DefaultConfigDir, config.DefaultConfigFile)
	if err := config.WriteDefault(path); err != nil {
		log.Printf("Warning: Failed to write default config: %v", err)
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *config.Config) {
	if dbType := getEnv("DB_TYPE", "HUGINN_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
		log.Printf("Database type from ENV: %s", dbType)
	}

	if dbPath := getEnv("DB_PATH", "HUGINN_DB_PATH"); dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		log.Printf("Database path from ENV")
	}

	if dbDSN := getEnv("DB_DSN", "HUGINN_DB_DSN"); dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		log.Printf("Database DSN from ENV (hidden)")
	}

	if portStr := getEnv("PORT", "HUGINN_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
			log.Printf("Port from ENV: %d", port)
		}
	}
}

// applyCLIOverrides applies command-line flag overrides to configuration
func applyCLIOverrides(cfg *config.Config, dbType, dbPath, dbDSN string, port, verifyInterval int) {
	if dbType != "" {
		cfg.Database.Type = dbType
		log.Printf("Database type from CLI: %s", dbType)
	}

	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		log.Printf("Database path from CLI")
	}

	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		log.Printf("Database DSN from CLI (hidden)")
	}

	if port > 0 {
		cfg.Server.Port = port
		log.Printf("Port from CLI: %d", port)
	}

	if verifyInterval >= 0 {
		cfg.Audit.VerifyInterval = verifyInterval
		log.Printf("Verify interval from CLI: %d minutes", verifyInterval)
	}
}

// getEnv tries multiple environment variable names and returns the first non-empty value
func getEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

// runStdioMode runs the server in stdio mode for MCP clients
func runStdioMode(mcpServer *server.MCPServer) {
	log.Println("MCP server ready (stdio mode) - 16 tools registered")

	if err := mcpserver.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

// runHTTPMode serves the same tool surface over streamable HTTP
func runHTTPMode(cfg *config.Config, mcpServer *server.MCPServer) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("MCP server starting on %s (streamable HTTP)", addr)

	httpServer := mcpserver.NewStreamableHTTPServer(mcpServer.GetMCPServer())
	if err := httpServer.Start(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
