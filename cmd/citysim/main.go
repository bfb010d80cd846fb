// Command citysim runs the city-grid simulation and serves it over HTTP and websockets.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/gridcity/internal/api"
	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/engine"
	"github.com/talgya/gridcity/internal/journal"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("gridcity: city-grid builder simulation")

	// ── Configuration ─────────────────────────────────────────────────
	cfg := engine.DefaultConfig()
	cfg.GridSize = envIntOrDefault("CITYSIM_GRID_SIZE", cfg.GridSize)
	cfg.StartingMoney = envIntOrDefault("CITYSIM_START_MONEY", cfg.StartingMoney)
	cfg.IncomeInterval = envFloatOrDefault("CITYSIM_INCOME_INTERVAL", cfg.IncomeInterval)
	apiPort := envIntOrDefault("CITYSIM_PORT", 8080)
	dbPath := envOrDefault("CITYSIM_DB", "data/gridcity.db")
	speed := envFloatOrDefault("CITYSIM_SPEED", 1)

	// ── Simulation ────────────────────────────────────────────────────
	cat := catalog.Default()
	sim, err := engine.NewSimulation(cfg, cat)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	for _, a := range cat.All() {
		slog.Info("archetype",
			"id", a.ID,
			"footprint", fmt.Sprintf("%dx%d", a.Width, a.Height),
			"cost", a.Cost,
			"population", a.Population,
			"income", a.Income,
		)
	}

	eng := engine.NewEngine(sim)
	eng.SetSpeed(speed)

	// ── Journal ───────────────────────────────────────────────────────
	// CITYSIM_DB=off disables the journal; /api/v1/events then serves memory only.
	var db *journal.DB
	if dbPath != "off" {
		os.MkdirAll(filepath.Dir(dbPath), 0755)
		db, err = journal.Open(dbPath)
		if err != nil {
			slog.Error("failed to open journal", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("journal opened", "path", dbPath)

		if t, err := db.Totals(); err == nil && t.Placements > 0 {
			slog.Info("journal history",
				"placements", t.Placements,
				"payouts", t.Payouts,
				"income_earned", humanize.Comma(int64(t.IncomeEarned)),
			)
		}
		if err := db.SaveMeta("last_start", time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Warn("journal meta write failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("CITYSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("CITYSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Eng:      eng,
		Journal:  db,
		Port:     apiPort,
		AdminKey: adminKey,
	}

	// Journal first, then websocket sessions, in mutation order.
	eng.OnEvents = func(events []engine.Event, snap engine.Snapshot) {
		if db != nil {
			db.Record(events, snap)
		}
		apiServer.Publish(events, snap)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	apiServer.Start(ctx)

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\ngridcity is open: %dx%d grid, %s in the bank, payout every %v.\n",
		cfg.GridSize, cfg.GridSize, humanize.Comma(int64(cfg.StartingMoney)),
		time.Duration(cfg.IncomeInterval*float64(time.Second)))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	snap := eng.Snapshot()
	slog.Info("final state",
		"money", humanize.Comma(int64(snap.Money)),
		"population", humanize.Comma(int64(snap.Population)),
		"buildings", len(snap.Buildings),
		"sim_time", engine.SimTime(snap.SimSeconds),
	)
	fmt.Println("Simulation stopped.")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring non-integer env value", "key", key, "value", v)
	}
	return defaultVal
}

func envFloatOrDefault(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("ignoring non-numeric env value", "key", key, "value", v)
	}
	return defaultVal
}
