package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a product entry attached to a program, sold at a discounted price
// from a strictly limited stock pool. SoldQuantity is the only hot mutable
// field; it changes exclusively inside per-item transactions.
type Item struct {
	ID            string
	ProgramID     string
	ProductID     string
	OriginalPrice decimal.Decimal
	FlashPrice    decimal.Decimal
	TotalQuantity int
	SoldQuantity  int
	MaxPerUser    int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RemainingQuantity returns the unsold stock, never negative.
func (i Item) RemainingQuantity() int {
	remaining := i.TotalQuantity - i.SoldQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SoldPercentage returns how much of the stock has been sold, capped at 100.
func (i Item) SoldPercentage() float64 {
	if i.TotalQuantity == 0 {
		return 0
	}
	pct := float64(i.SoldQuantity) / float64(i.TotalQuantity) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// DiscountPercentage returns the rounded discount against the original price.
func (i Item) DiscountPercentage() int {
	if i.OriginalPrice.IsZero() {
		return 0
	}
	diff := i.OriginalPrice.Sub(i.FlashPrice)
	pct := diff.Div(i.OriginalPrice).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// Available reports whether the item can be reserved right now: item active,
// owning program active, and stock left.
func (i Item) Available(program Program, now time.Time) bool {
	return i.IsActive &&
		program.Lifecycle(now) == LifecycleActive &&
		i.RemainingQuantity() > 0
}
