// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/praxis-labs/loom-mcp/internal/database"
	"github.com/praxis-labs/loom-mcp/internal/store"
)

// HTTPServer exposes a small REST surface over the same stores the MCP
// tools use. It exists for health checks and quick inspection, not as a
// full API.
type HTTPServer struct {
	mcpServer *MCPServer
	timeline  *store.TimelineStore
	entities  *store.EntityStore
	memories  *store.MemoryStore
}

// NewHTTPServer creates a new HTTP server over the MCP server's database
func NewHTTPServer(mcpServer *MCPServer) *HTTPServer {
	return &HTTPServer{
		mcpServer: mcpServer,
		timeline:  store.NewTimelineStore(mcpServer.db),
		entities:  store.NewEntityStore(mcpServer.db),
		memories:  store.NewMemoryStore(mcpServer.db),
	}
}

// RegisterRoutes registers all HTTP routes
func (h *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/timeline", h.HandleTimeline)
	mux.HandleFunc("/timeline/summary", h.HandleTimelineSummary)
	mux.HandleFunc("/entities", h.HandleEntities)
	mux.HandleFunc("/entities/search", h.HandleEntitySearch)
	mux.HandleFunc("/memories", h.HandleMemories)
	mux.HandleFunc("/memories/stats", h.HandleMemoryStats)
}

// HandleHealth reports liveness and database reachability
func (h *HTTPServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := database.Ping(h.mcpServer.db); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleTimeline lists events, filtered by the same query parameters the
// loom_get_timeline tool accepts (date, type, namespace, limit).
func (h *HTTPServer) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	result, err := h.timeline.GetTimeline(store.TimelineQuery{
		Date:  q.Get("date"),
		Type:  q.Get("type"),
		Limit: intParam(q.Get("limit")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleTimelineSummary returns per-type counts, optionally for one date
func (h *HTTPServer) HandleTimelineSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := h.timeline.GetTimelineSummary(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleEntities lists entities, optionally narrowed to one type
func (h *HTTPServer) HandleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit := intParam(q.Get("limit"))

	var entities []database.Entity
	var err error
	if entityType := q.Get("type"); entityType != "" {
		entities, err = h.entities.ListEntitiesByType(entityType, limit)
	} else {
		entities, err = h.entities.ListAllEntities(limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

// HandleEntitySearch finds entities by name or property text
func (h *HTTPServer) HandleEntitySearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	entities, err := h.entities.SearchEntities(q.Get("term"), q.Get("type"), intParam(q.Get("limit")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

// HandleMemories lists live memories by namespace and key pattern
func (h *HTTPServer) HandleMemories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	memories, err := h.memories.ListMemories(q.Get("namespace"), q.Get("pattern"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memories)
}

// HandleMemoryStats returns memory table aggregates
func (h *HTTPServer) HandleMemoryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.memories.GetMemoryStats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case store.IsValidation(err):
		status = http.StatusBadRequest
	case store.IsNotFound(err):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func intParam(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
