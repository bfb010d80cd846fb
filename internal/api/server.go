// Package api provides the HTTP and websocket surface over a running simulation.
// GET endpoints are read-only. Player commands are POSTs (or websocket
// messages) and are rate limited per client. Admin endpoints require a
// bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/engine"
	"github.com/talgya/gridcity/internal/journal"
)

// Server serves the simulation over HTTP.
type Server struct {
	Eng      *engine.Engine
	Journal  *journal.DB // Optional. Events fall back to the in-memory buffer.
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.

	// Per-client command limits. Zero values use 10/s with a burst of 20.
	CommandRate  rate.Limit
	CommandBurst int

	initOnce sync.Once
	hub      *Hub
	limiter  *RateLimiter
	handler  http.Handler
}

// Routes builds the handler and starts the websocket hub. The hub and the
// limiter stop when ctx is done.
func (s *Server) Routes(ctx context.Context) http.Handler {
	s.initOnce.Do(func() {
		r, burst := s.CommandRate, s.CommandBurst
		if r == 0 {
			r = 10
		}
		if burst == 0 {
			burst = 20
		}
		s.limiter = NewRateLimiter(ctx, r, burst)
		s.hub = NewHub()
		go s.hub.Run(ctx)

		mux := http.NewServeMux()

		// Queries.
		mux.HandleFunc("/api/v1/status", s.handleStatus)
		mux.HandleFunc("/api/v1/catalog", s.handleCatalog)
		mux.HandleFunc("/api/v1/buildings", s.handleBuildings)
		mux.HandleFunc("/api/v1/grid", s.handleGrid)
		mux.HandleFunc("/api/v1/selection", s.handleSelection)
		mux.HandleFunc("/api/v1/events", s.handleEvents)

		// Player commands.
		mux.HandleFunc("/api/v1/select", s.command(s.handleSelect))
		mux.HandleFunc("/api/v1/hover", s.command(s.handleHover))
		mux.HandleFunc("/api/v1/commit", s.command(s.handleCommit))
		mux.HandleFunc("/api/v1/cancel", s.command(s.handleCancel))

		// Websocket sessions.
		mux.HandleFunc("/ws", s.handleWS)

		// Admin endpoints.
		mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
		mux.HandleFunc("/api/v1/intervention", s.adminOnly(s.handleIntervention))

		s.handler = corsMiddleware(mux)
	})
	return s.handler
}

// Start serves the API in a goroutine until ctx is done.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Routes(ctx)}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// Publish forwards engine events to websocket sessions. It matches
// engine.Engine.OnEvents and never blocks the engine.
func (s *Server) Publish(events []engine.Event, snap engine.Snapshot) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(Envelope{Type: MsgState, Payload: mustJSON(stateMessage{State: snap, Events: events})})
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list; localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+s.AdminKey
}

// adminOnly requires the bearer token for POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CITYSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// command restricts a handler to POST and applies the per-client rate limit.
func (s *Server) command(next http.HandlerFunc) http.HandlerFunc {
	limited := RateLimitMiddleware(s.limiter, next)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limited(w, r)
	}
}

// ── Queries ──────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Eng.Snapshot()

	status := map[string]any{
		"name":                "gridcity",
		"money":               snap.Money,
		"money_display":       humanize.Comma(int64(snap.Money)),
		"population":          snap.Population,
		"population_display":  humanize.Comma(int64(snap.Population)),
		"buildings":           len(snap.Buildings),
		"income_per_interval": snap.IncomePerInterval,
		"income_interval":     snap.IncomeInterval,
		"next_payout_in":      snap.IncomeInterval - snap.ClockElapsed,
		"grid_size":           snap.GridSize,
		"sim_time":            engine.SimTime(snap.SimSeconds),
		"speed":               s.Eng.Speed(),
		"running":             s.Eng.Running(),
		"selection":           snap.Selection,
		"stats":               snap.Stats,
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var list []catalog.Archetype
	s.Eng.Do(func(sim *engine.Simulation) error {
		list = sim.Catalog().All()
		return nil
	})
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Eng.Snapshot().Buildings)
}

// handleGrid returns the full occupancy map, or a single cell with ?x=&y=.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("x") || q.Has("y") {
		x, errX := strconv.Atoi(q.Get("x"))
		y, errY := strconv.Atoi(q.Get("y"))
		if errX != nil || errY != nil {
			http.Error(w, "x and y must be integers", http.StatusBadRequest)
			return
		}
		var cell map[string]any
		err := s.Eng.Do(func(sim *engine.Simulation) error {
			b, err := sim.Occupant(x, y)
			if err != nil {
				return err
			}
			cell = map[string]any{"x": x, "y": y, "occupied": b != nil}
			if b != nil {
				cell["building_id"] = b.ID.String()
				cell["archetype"] = b.Archetype.ID
				cell["anchor"] = b.Anchor
			}
			return nil
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cell)
		return
	}

	var size int
	var cells [][]string
	s.Eng.Do(func(sim *engine.Simulation) error {
		size = sim.GridSize()
		cells = sim.OccupancyMap()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{"size": size, "cells": cells})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"selection": s.Eng.Snapshot().Selection})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 1000 {
		limit = 1000
	}

	if s.Journal != nil {
		entries, err := s.Journal.Recent(limit)
		if err != nil {
			slog.Error("journal read failed", "error", err)
			http.Error(w, "journal unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	var events []engine.Event
	s.Eng.Do(func(sim *engine.Simulation) error {
		events = sim.RecentEvents(limit)
		return nil
	})
	// Newest first, as the journal returns them.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	writeJSON(w, http.StatusOK, events)
}

// ── Commands ─────────────────────────────────────────────────────────

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID catalog.ID `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.respond(w, Command{Type: CmdSelect, ID: req.ID})
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		http.Error(w, "expected json with integer x and y", http.StatusBadRequest)
		return
	}
	s.respond(w, Command{Type: CmdHover, X: *req.X, Y: *req.Y})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	s.respond(w, Command{Type: CmdCommit})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.respond(w, Command{Type: CmdCancel})
}

func (s *Server) respond(w http.ResponseWriter, cmd Command) {
	result, err := s.Apply(cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ── Admin ────────────────────────────────────────────────────────────

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, http.StatusOK, map[string]float64{"speed": s.Eng.Speed()})
}

// Intervention is the payload for POST /api/v1/intervention.
type Intervention struct {
	Type   string `json:"type"` // "money", "population" or "reset"
	Amount int    `json:"amount"`
}

// InterventionResult is the response from POST /api/v1/intervention.
type InterventionResult struct {
	Success bool   `json:"success"`
	Details string `json:"details"`
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req Intervention
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var details string
	err := s.Eng.Do(func(sim *engine.Simulation) error {
		switch req.Type {
		case "money":
			sim.GrantMoney(req.Amount)
			details = fmt.Sprintf("wallet now %s", humanize.Comma(int64(sim.Money())))
		case "population":
			if err := sim.GrantPopulation(req.Amount); err != nil {
				return err
			}
			details = fmt.Sprintf("population now %s", humanize.Comma(int64(sim.Population())))
		case "reset":
			sim.Reset()
			details = "city reset"
		default:
			return fmt.Errorf("unknown intervention type %q", req.Type)
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("intervention applied", "type", req.Type, "amount", req.Amount, "details", details)
	writeJSON(w, http.StatusOK, InterventionResult{Success: true, Details: details})
}

// ── Helpers ──────────────────────────────────────────────────────────

// errorKind maps simulation errors to a wire kind and HTTP status.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, engine.ErrInvalidPlacement):
		return "invalid_placement", http.StatusConflict
	case errors.Is(err, engine.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, engine.ErrOutOfBounds):
		return "out_of_bounds", http.StatusBadRequest
	case errors.Is(err, errBadCommand):
		return "bad_request", http.StatusBadRequest
	default:
		return "internal", http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind, code := errorKind(err)
	writeJSON(w, code, map[string]string{"error": kind, "message": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal failed", "error", err)
		return json.RawMessage("null")
	}
	return b
}
