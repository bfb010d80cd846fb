package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendAndRecent(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	events := []engine.Event{
		{Time: at, Kind: engine.EventPlacement, Description: "Factory built at A1", Amount: -30, BuildingID: "b-1", Money: 70},
		{Time: at.Add(10 * time.Second), Kind: engine.EventPayout, Description: "1 buildings paid 10", Amount: 10, Money: 80},
	}
	if err := db.Append(events); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Append(nil); err != nil {
		t.Fatalf("append nothing: %v", err)
	}

	recent, err := db.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Kind != string(engine.EventPayout) || recent[1].Kind != string(engine.EventPlacement) {
		t.Fatalf("expected newest first, got %s then %s", recent[0].Kind, recent[1].Kind)
	}
	if recent[1].BuildingID != "b-1" || recent[1].Amount != -30 {
		t.Errorf("unexpected placement entry: %+v", recent[1])
	}
	if !recent[1].Time.Equal(at) {
		t.Errorf("expected time %v, got %v", at, recent[1].Time)
	}

	limited, err := db.Recent(1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected 1 entry with limit, got %d (%v)", len(limited), err)
	}
}

func TestTotals(t *testing.T) {
	db := openTestDB(t)

	sim, err := engine.NewSimulation(engine.DefaultConfig(), catalog.Default())
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	eng := engine.NewEngine(sim)
	eng.OnEvents = db.Record

	for _, x := range []int{0, 2} {
		eng.Do(func(s *engine.Simulation) error {
			s.SelectArchetype(catalog.Factory)
			s.HoverCandidate(x, 0)
			_, err := s.CommitPlacement()
			return err
		})
	}
	eng.Step(10)
	eng.Step(10)

	totals, err := db.Totals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	want := Totals{Placements: 2, Payouts: 2, IncomeEarned: 40, Spent: 60}
	if totals != want {
		t.Fatalf("expected %+v, got %+v", want, totals)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("started_at", "2026-01-01"); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	if err := db.SaveMeta("started_at", "2026-02-02"); err != nil {
		t.Fatalf("overwrite meta: %v", err)
	}
	v, err := db.GetMeta("started_at")
	if err != nil || v != "2026-02-02" {
		t.Fatalf("expected overwritten value, got %q (%v)", v, err)
	}
	if _, err := db.GetMeta("missing"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
