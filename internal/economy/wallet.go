// Package economy provides the wallet and the income payout rule.
package economy

import (
	"github.com/talgya/gridcity/internal/world"
)

// Wallet holds the player's currency balance. The balance is a plain integer
// and may go negative only through explicit grants; placement checks funds first.
type Wallet struct {
	balance int
}

// NewWallet creates a wallet with a starting balance.
func NewWallet(start int) Wallet {
	return Wallet{balance: start}
}

// Balance returns the current balance.
func (w *Wallet) Balance() int {
	return w.balance
}

// CanAfford reports whether the balance covers cost.
func (w *Wallet) CanAfford(cost int) bool {
	return w.balance >= cost
}

// Debit subtracts amount from the balance.
func (w *Wallet) Debit(amount int) {
	w.balance -= amount
}

// Credit adds amount to the balance.
func (w *Wallet) Credit(amount int) {
	w.balance += amount
}

// IncomeFor returns the total income paid by one interval for the given
// buildings. Only archetypes with a positive income yield contribute.
func IncomeFor(buildings []*world.Building) int {
	total := 0
	for _, b := range buildings {
		if b.Archetype.ProducesIncome() {
			total += b.Archetype.Income
		}
	}
	return total
}

// Producers counts the income-producing buildings.
func Producers(buildings []*world.Building) int {
	n := 0
	for _, b := range buildings {
		if b.Archetype.ProducesIncome() {
			n++
		}
	}
	return n
}
