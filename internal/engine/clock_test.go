package engine

import (
	"math"
	"testing"
)

func TestClockFiresAtInterval(t *testing.T) {
	c := NewClock(10)

	if c.Advance(9.99) {
		t.Fatalf("fired early")
	}
	if !c.Advance(0.01) {
		t.Fatalf("should fire when the accumulator reaches the interval")
	}
	if c.Elapsed() != 0 {
		t.Fatalf("accumulator should reset, got %v", c.Elapsed())
	}
}

func TestClockExactInterval(t *testing.T) {
	c := NewClock(10)
	if !c.Advance(10) {
		t.Fatalf("exactly one interval should fire")
	}
}

func TestClockNoCatchUp(t *testing.T) {
	c := NewClock(10)
	if !c.Advance(45) {
		t.Fatalf("large step should fire")
	}
	if c.Elapsed() != 0 {
		t.Fatalf("excess must be forfeited, got %v", c.Elapsed())
	}
	if c.Remaining() != 10 {
		t.Fatalf("expected a full interval remaining, got %v", c.Remaining())
	}
}

func TestClockIgnoresBadSteps(t *testing.T) {
	c := NewClock(10)
	c.Advance(4)
	c.Advance(-3)
	c.Advance(math.NaN())
	c.Advance(0)
	if c.Elapsed() != 4 {
		t.Fatalf("expected 4, got %v", c.Elapsed())
	}
	c.Reset()
	if c.Elapsed() != 0 {
		t.Fatalf("reset should zero the clock")
	}
}
