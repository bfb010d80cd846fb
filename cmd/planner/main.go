// Command planner builds a city automatically through the citysim API.
// Each cycle it observes the city, decides on one building and places it
// with the same commands a player would send.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/gridcity/internal/planner"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("CITYSIM_API_URL", "http://localhost:8080")
	intervalSec := envIntOrDefault("PLANNER_INTERVAL", 5)
	seed := int64(envIntOrDefault("PLANNER_SEED", 0))
	memoryPath := os.Getenv("PLANNER_MEMORY")

	if intervalSec < 1 {
		intervalSec = 1
	}
	interval := time.Duration(intervalSec) * time.Second

	slog.Info("gridcity planner starting",
		"api_url", apiURL,
		"interval", interval,
		"seed", seed,
	)

	observer := planner.NewObserver(apiURL)
	actor := planner.NewActor(apiURL)
	land := planner.NewLand(seed)
	mem := planner.LoadMemory(memoryPath)

	slog.Info("waiting for citysim API...")
	waitForAPI(apiURL)

	// Run first cycle immediately.
	runCycle(observer, actor, land, mem)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runCycle(observer, actor, land, mem)
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			mem.Save()
			fmt.Print(mem.Summary(10))
			fmt.Println("Planner stopped.")
			return
		}
	}
}

// runCycle executes one observe, decide, act cycle.
func runCycle(observer *planner.Observer, actor *planner.Actor, land *planner.Land, mem *planner.CycleMemory) {
	snap, err := observer.Observe()
	if err != nil {
		slog.Error("observation failed", "error", err)
		return
	}
	health := planner.Assess(snap)
	slog.Info("observation complete",
		"money", humanize.Comma(int64(snap.Status.Money)),
		"population", snap.Status.Population,
		"buildings", snap.Status.Buildings,
		"free_cells", health.FreeCells,
		"phase", health.Phase,
	)

	decision := planner.Decide(snap, land)
	record := planner.CycleRecord{
		SimTime:    snap.Status.SimTime,
		Phase:      health.Phase,
		Action:     decision.Action,
		Money:      snap.Status.Money,
		Population: snap.Status.Population,
	}
	defer func() {
		mem.Record(record)
		mem.Save()
	}()

	if decision.Action != planner.ActionBuild {
		slog.Info("planner cycle complete, nothing built", "rationale", decision.Rationale)
		return
	}
	record.Archetype = string(decision.Archetype)
	record.Anchor = decision.Anchor.String()
	record.Score = decision.Score

	slog.Info("decision made",
		"archetype", decision.Archetype,
		"anchor", decision.Anchor.String(),
		"score", fmt.Sprintf("%.3f", decision.Score),
		"rationale", decision.Rationale,
	)

	result, err := actor.Act(decision)
	if err != nil {
		record.Error = err.Error()
		slog.Error("build failed", "error", err, "consecutive_failures", mem.Failures()+1)
		return
	}
	record.Money = result.Money
	record.Population = result.Population

	slog.Info("building placed",
		"archetype", decision.Archetype,
		"anchor", decision.Anchor.String(),
		"money", humanize.Comma(int64(result.Money)),
		"population", result.Population,
	)
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
	}
	return defaultVal
}

// waitForAPI polls the citysim status endpoint with exponential backoff
// until it responds. Exits after 5 minutes if the API never becomes ready.
func waitForAPI(apiURL string) {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("citysim API is ready")
				return
			}
		}
		if time.Now().After(deadline) {
			slog.Error("citysim API did not become ready within 5 minutes")
			os.Exit(1)
		}
		slog.Info("citysim not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
