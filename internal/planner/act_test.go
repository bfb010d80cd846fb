package planner

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/talgya/gridcity/internal/api"
	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/engine"
	"github.com/talgya/gridcity/internal/world"
)

func startCity(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	sim, err := engine.NewSimulation(engine.DefaultConfig(), catalog.Default())
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.NewEngine(sim)
	srv := &api.Server{Eng: eng, CommandRate: 1000, CommandBurst: 1000}

	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(srv.Routes(ctx))
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return eng, ts.URL
}

func TestObserveDecideAct(t *testing.T) {
	eng, url := startCity(t)

	snap, err := NewObserver(url).Observe()
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if snap.Status.Money != 100 || snap.Grid.Size != 8 || len(snap.Catalog) != 3 {
		t.Fatalf("snapshot = %+v", snap.Status)
	}

	d := Decide(snap, NewLand(5))
	if d.Archetype != catalog.Factory {
		t.Fatalf("decision = %+v, want factory", d)
	}

	res, err := NewActor(url).Act(d)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if res.Building == nil || res.Building.Anchor != d.Anchor {
		t.Errorf("built %+v, want anchor %v", res.Building, d.Anchor)
	}
	if res.Money != 70 {
		t.Errorf("money = %d, want 70", res.Money)
	}

	got := eng.Snapshot()
	if len(got.Buildings) != 1 || got.IncomePerInterval != 10 {
		t.Errorf("city = %+v", got)
	}
}

func TestActCancelsOnRejectedCommit(t *testing.T) {
	eng, url := startCity(t)
	actor := NewActor(url)

	first := &Decision{Action: ActionBuild, Archetype: catalog.Factory, Anchor: world.Cell{X: 2, Y: 2}}
	if _, err := actor.Act(first); err != nil {
		t.Fatalf("first Act: %v", err)
	}

	overlap := &Decision{Action: ActionBuild, Archetype: catalog.WoodenHouse, Anchor: world.Cell{X: 3, Y: 3}}
	if _, err := actor.Act(overlap); err == nil {
		t.Fatal("overlapping build should fail")
	}

	snap := eng.Snapshot()
	if snap.Selection != nil {
		t.Errorf("selection left behind: %+v", snap.Selection)
	}
	if snap.Money != 70 || len(snap.Buildings) != 1 {
		t.Errorf("money/buildings = %d/%d, want 70/1", snap.Money, len(snap.Buildings))
	}
}

func TestActRejectsWait(t *testing.T) {
	if _, err := NewActor("http://127.0.0.1:0").Act(&Decision{Action: ActionWait}); err == nil {
		t.Error("wait decision should not be actionable")
	}
}
