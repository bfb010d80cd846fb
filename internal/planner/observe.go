// Package planner implements an automatic city builder.
// It observes the city via the API, decides where to build next, and acts
// through the same player commands a human would use.
package planner

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/gridcity/internal/catalog"
)

// CitySnapshot holds all data collected during an observation cycle.
type CitySnapshot struct {
	Status  CityStatus          `json:"status"`
	Catalog []catalog.Archetype `json:"catalog"`
	Grid    GridData            `json:"grid"`
}

// CityStatus mirrors GET /api/v1/status.
type CityStatus struct {
	Money             int     `json:"money"`
	MoneyDisplay      string  `json:"money_display"`
	Population        int     `json:"population"`
	Buildings         int     `json:"buildings"`
	IncomePerInterval int     `json:"income_per_interval"`
	IncomeInterval    float64 `json:"income_interval"`
	NextPayoutIn      float64 `json:"next_payout_in"`
	GridSize          int     `json:"grid_size"`
	SimTime           string  `json:"sim_time"`
	Speed             float64 `json:"speed"`
	Running           bool    `json:"running"`
}

// GridData mirrors GET /api/v1/grid: rows of building IDs indexed [y][x],
// "" for an empty cell.
type GridData struct {
	Size  int        `json:"size"`
	Cells [][]string `json:"cells"`
}

// Occupied reports whether (x, y) holds a building. Off-grid cells count as occupied.
func (g GridData) Occupied(x, y int) bool {
	if y < 0 || y >= len(g.Cells) || x < 0 || x >= len(g.Cells[y]) {
		return true
	}
	return g.Cells[y][x] != ""
}

// Observer fetches city state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Observe fetches status, catalog and grid and returns a CitySnapshot.
func (o *Observer) Observe() (*CitySnapshot, error) {
	snap := &CitySnapshot{}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/catalog", &snap.Catalog); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if err := o.fetchJSON("/api/v1/grid", &snap.Grid); err != nil {
		return nil, fmt.Errorf("fetch grid: %w", err)
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
