// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/praxis-labs/loom-mcp/internal/config"
	"github.com/praxis-labs/loom-mcp/internal/database"
	"github.com/praxis-labs/loom-mcp/internal/server"
	"github.com/praxis-labs/loom-mcp/pkg/scheduler"
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

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Loom MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Server Mode:\n")
		fmt.Fprintf(os.Stderr, "  %s            Start MCP server (stdio)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --http     Start HTTP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE   Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH   SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN    PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  PORT      Server port (HTTP mode only)\n")
	}

	flag.Parse()

	log.Println("Starting Loom MCP Server...")

	// Load configuration
	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
		if err != nil {
			log.Printf("Warning: Failed to load config from %s: %v", *configPath, err)
			log.Println("Using defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Printf("Loaded configuration from %s", *configPath)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			log.Printf("Warning: Failed to load default config: %v", err)
			log.Println("Using built-in defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Printf("Loaded configuration from ~/.loom/configs/config.json")
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Apply CLI flag overrides (highest priority)
	applyCLIOverrides(cfg, *dbType, *dbPath, *dbDSN, *port)

	log.Printf("Configuration: database=%s", cfg.Database.Type)

	// Connect to the database
	dbCfg := &database.Config{
		Type:        cfg.Database.Type,
		SQLitePath:  cfg.Database.SQLitePath,
		PostgresDSN: cfg.Database.PostgresDSN,
		LogLevel:    logger.Silent, // CRITICAL: Silence GORM stdout output for MCP
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

	// Create the MCP server with all tools registered
	srv, err := server.NewMCPServer(cfg, db)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if *httpMode {
		log.Println("Running in HTTP server mode")
		runHTTPMode(cfg, db, srv)
	} else {
		log.Println("Running in stdio mode (MCP)")
		runStdioMode(srv)
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *config.Config) {
	if v := envOr("LOOM_DB_TYPE", "DB_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := envOr("LOOM_DB_PATH", "DB_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := envOr("LOOM_DB_DSN", "DB_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// envOr returns the first non-empty value among the named variables
func envOr(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// applyCLIOverrides applies command-line flag overrides to the config
func applyCLIOverrides(cfg *config.Config, dbType, dbPath, dbDSN string, port int) {
	if dbType != "" {
		cfg.Database.Type = dbType
	}
	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
	}
	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
	}
	if port != 0 {
		cfg.Server.Port = port
	}
}

// runStdioMode serves MCP over stdin/stdout
func runStdioMode(srv *server.MCPServer) {
	log.Println("MCP server ready on stdio")
	if err := mcpserver.ServeStdio(srv.GetMCPServer()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runHTTPMode serves the REST surface and runs the cleanup scheduler
func runHTTPMode(cfg *config.Config, db *gorm.DB, srv *server.MCPServer) {
	sched := scheduler.NewScheduler(db, cfg.Cleanup.IntervalMinutes)
	sched.Start()
	defer sched.Stop()
	log.Printf("Cleanup scheduler started (every %d minutes)", cfg.Cleanup.IntervalMinutes)

	httpServer := server.NewHTTPServer(srv)
	mux := http.NewServeMux()
	httpServer.RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("HTTP server listening on %s", addr)

	if cfg.Server.TLS.Enabled {
		err := http.ListenAndServeTLS(addr, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, mux)
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
