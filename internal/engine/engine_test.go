package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/talgya/gridcity/internal/catalog"
)

func TestEngineStepScalesBySpeed(t *testing.T) {
	sim := newTestSim(t)
	place(t, sim, catalog.Factory, 0, 0)
	eng := NewEngine(sim)

	eng.SetSpeed(0)
	eng.Step(60)
	if sim.Money() != 70 {
		t.Fatalf("paused engine paid income: money %d", sim.Money())
	}

	eng.SetSpeed(2)
	eng.Step(5) // 10 simulated seconds
	if sim.Money() != 80 {
		t.Fatalf("expected one payout at 2x speed, money %d", sim.Money())
	}

	eng.SetSpeed(-1)
	if eng.Speed() != 0 {
		t.Fatalf("negative speed should clamp to 0, got %v", eng.Speed())
	}
}

func TestEngineDoDeliversEvents(t *testing.T) {
	eng := NewEngine(newTestSim(t))

	var got []Event
	var last Snapshot
	eng.OnEvents = func(events []Event, snap Snapshot) {
		got = append(got, events...)
		last = snap
	}

	err := eng.Do(func(s *Simulation) error {
		if err := s.SelectArchetype(catalog.WoodenHouse); err != nil {
			return err
		}
		s.HoverCandidate(0, 0)
		_, err := s.CommitPlacement()
		return err
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	if len(got) != 1 || got[0].Kind != EventPlacement {
		t.Fatalf("expected one placement event, got %+v", got)
	}
	if last.Money != 95 || len(last.Buildings) != 1 {
		t.Fatalf("snapshot should reflect the commit: %+v", last)
	}

	// Queries produce no events and no callback.
	got = nil
	eng.Snapshot()
	if len(got) != 0 {
		t.Fatalf("read-only Do should not deliver events")
	}
}

func TestEngineSerializesConcurrentCommands(t *testing.T) {
	eng := NewEngine(newTestSim(t))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			for x := 0; x < 8; x++ {
				eng.Do(func(s *Simulation) error {
					s.SelectArchetype(catalog.WoodenHouse)
					s.HoverCandidate(x, row)
					_, err := s.CommitPlacement()
					return err
				})
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				eng.Step(0.01)
			}
		}()
	}
	wg.Wait()

	snap := eng.Snapshot()
	// 100 money buys exactly 20 houses.
	if len(snap.Buildings) != 20 || snap.Money != 0 || snap.Population != 40 {
		t.Fatalf("expected 20 houses, money 0, population 40; got %d, %d, %d",
			len(snap.Buildings), snap.Money, snap.Population)
	}
}

func TestEngineRunStopsOnContext(t *testing.T) {
	sim := newTestSim(t)
	place(t, sim, catalog.Factory, 0, 0)
	eng := NewEngine(sim)
	eng.Interval = 5 * time.Millisecond
	eng.SetSpeed(1000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for eng.Snapshot().Stats.Payouts == 0 {
		select {
		case <-deadline:
			t.Fatalf("no payout within 2s at 1000x speed")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if eng.Running() {
		t.Fatalf("engine still reports running")
	}
}

func TestEngineStop(t *testing.T) {
	eng := NewEngine(newTestSim(t))
	eng.Interval = time.Millisecond

	done := make(chan struct{})
	go func() {
		eng.Run(context.Background())
		close(done)
	}()

	eng.Stop()
	eng.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after Stop")
	}
}
