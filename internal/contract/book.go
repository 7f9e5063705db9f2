// Package contract tracks the household's outstanding market commitments and
// settles them as their delivery time arrives.
package contract

import (
	"time"

	"prosumer-backtest/internal/model"
)

// Book is the list of open contracts. It belongs to one household and is
// not safe for concurrent use.
type Book struct {
	open []model.Contract
}

func NewBook() *Book { return &Book{} }

func (b *Book) Add(c model.Contract) {
	b.open = append(b.open, c)
}

func (b *Book) Len() int { return len(b.open) }

// Open returns a copy of the outstanding contracts.
func (b *Book) Open() []model.Contract {
	out := make([]model.Contract, len(b.open))
	copy(out, b.open)
	return out
}

// QuantityAt sums the quantity of all open contracts delivering at t.
func (b *Book) QuantityAt(t time.Time) float64 {
	q := 0.0
	for _, c := range b.open {
		if c.Delivery.Equal(t) {
			q += c.Quantity
		}
	}
	return q
}

// TakeDue removes and returns every contract with Delivery <= now.
// Contracts keep their relative order in both partitions.
func (b *Book) TakeDue(now time.Time) []model.Contract {
	var due []model.Contract
	keep := b.open[:0]
	for _, c := range b.open {
		if !c.Delivery.After(now) {
			due = append(due, c)
		} else {
			keep = append(keep, c)
		}
	}
	// clear the tail so removed contracts are not retained by the backing array
	for i := len(keep); i < len(b.open); i++ {
		b.open[i] = model.Contract{}
	}
	b.open = keep
	return due
}
