// Package engine provides the simulation core and the real-time loop that drives it.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine drives a Simulation in real time and is the single mutual-exclusion
// boundary for every goroutine that touches it.
type Engine struct {
	Interval time.Duration // Wall-clock step period (default 100ms)

	// OnEvents receives the events produced by each Do call together with a
	// snapshot taken right after them. Calls are delivered in mutation order.
	// It must not call Do.
	OnEvents func(events []Event, snap Snapshot)

	mu        sync.Mutex // guards sim and speed
	deliverMu sync.Mutex // keeps OnEvents in mutation order
	sim       *Simulation
	speed     float64

	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewEngine wraps sim with default settings: 100ms steps at 1x speed.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Interval: 100 * time.Millisecond,
		sim:      sim,
		speed:    1.0,
		stopCh:   make(chan struct{}),
	}
}

// Do runs fn with exclusive access to the simulation.
func (e *Engine) Do(fn func(s *Simulation) error) error {
	e.mu.Lock()
	err := fn(e.sim)
	events := e.sim.DrainEvents()
	var snap Snapshot
	if len(events) > 0 && e.OnEvents != nil {
		snap = e.sim.Snapshot()
	}
	e.deliverMu.Lock()
	e.mu.Unlock()

	if len(events) > 0 && e.OnEvents != nil {
		e.OnEvents(events, snap)
	}
	e.deliverMu.Unlock()
	return err
}

// Snapshot returns a consistent copy of the simulation state.
func (e *Engine) Snapshot() Snapshot {
	var snap Snapshot
	e.Do(func(s *Simulation) error {
		snap = s.Snapshot()
		return nil
	})
	return snap
}

// Speed returns the time multiplier. 0 means paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the time multiplier. Negative values pause.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Step advances the simulation by realSeconds of wall time scaled by the speed.
func (e *Engine) Step(realSeconds float64) {
	e.Do(func(s *Simulation) error {
		if dt := realSeconds * e.speed; dt > 0 {
			s.Tick(dt)
		}
		return nil
	})
}

// Run starts the simulation loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "interval", interval, "speed", e.Speed())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "reason", ctx.Err())
			return
		case <-e.stopCh:
			slog.Info("simulation engine stopped")
			return
		case now := <-ticker.C:
			e.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}
