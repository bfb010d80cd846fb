package economy

import (
	"testing"
	"time"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/world"
)

func TestWalletArithmetic(t *testing.T) {
	w := NewWallet(100)

	if !w.CanAfford(100) {
		t.Errorf("balance 100 should afford cost 100")
	}
	if w.CanAfford(101) {
		t.Errorf("balance 100 should not afford cost 101")
	}

	w.Debit(30)
	w.Debit(30)
	w.Credit(10)

	if w.Balance() != 50 {
		t.Fatalf("expected 50, got %d", w.Balance())
	}
}

func TestIncomeForSumsOnlyProducers(t *testing.T) {
	cat := catalog.Default()
	house, _ := cat.Get(catalog.WoodenHouse)
	factory, _ := cat.Get(catalog.Factory)
	apartment, _ := cat.Get(catalog.ApartmentBlock)

	now := time.Now()
	buildings := []*world.Building{
		world.NewBuilding(house, world.Cell{X: 0, Y: 0}, now),
		world.NewBuilding(factory, world.Cell{X: 2, Y: 2}, now),
		world.NewBuilding(apartment, world.Cell{X: 4, Y: 4}, now),
		world.NewBuilding(factory, world.Cell{X: 6, Y: 6}, now),
	}

	if got := IncomeFor(buildings); got != 20 {
		t.Errorf("expected income 20, got %d", got)
	}
	if got := Producers(buildings); got != 2 {
		t.Errorf("expected 2 producers, got %d", got)
	}
	if got := IncomeFor(nil); got != 0 {
		t.Errorf("expected no income from no buildings, got %d", got)
	}
}
