package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestItemRemainingQuantity(t *testing.T) {
	t.Parallel()

	if got := (Item{TotalQuantity: 10, SoldQuantity: 3}).RemainingQuantity(); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	// Stock lowered below sold by an admin edit must not report negative.
	if got := (Item{TotalQuantity: 5, SoldQuantity: 8}).RemainingQuantity(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestItemSoldPercentage(t *testing.T) {
	t.Parallel()

	if got := (Item{TotalQuantity: 0, SoldQuantity: 0}).SoldPercentage(); got != 0 {
		t.Fatalf("expected 0 for empty stock, got %v", got)
	}
	if got := (Item{TotalQuantity: 10, SoldQuantity: 4}).SoldPercentage(); got != 40 {
		t.Fatalf("expected 40, got %v", got)
	}
	if got := (Item{TotalQuantity: 5, SoldQuantity: 8}).SoldPercentage(); got != 100 {
		t.Fatalf("expected cap at 100, got %v", got)
	}
}

func TestItemDiscountPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		original int64
		flash    string
		want     int
	}{
		{"half price", 100, "50", 50},
		{"rounds to nearest", 300, "100", 67},
		{"no discount", 80, "80", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flash, err := decimal.NewFromString(tt.flash)
			if err != nil {
				t.Fatalf("parse flash price: %v", err)
			}
			item := Item{OriginalPrice: decimal.NewFromInt(tt.original), FlashPrice: flash}
			if got := item.DiscountPercentage(); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}

	t.Run("zero original price", func(t *testing.T) {
		item := Item{OriginalPrice: decimal.Zero, FlashPrice: decimal.Zero}
		if got := item.DiscountPercentage(); got != 0 {
			t.Fatalf("expected 0, got %d", got)
		}
	})
}

func TestItemAvailable(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	program := Program{StartTime: start, EndTime: start.Add(time.Hour), IsActive: true}
	now := start.Add(time.Minute)

	base := Item{TotalQuantity: 10, SoldQuantity: 0, IsActive: true}

	if !base.Available(program, now) {
		t.Fatalf("expected available")
	}

	inactive := base
	inactive.IsActive = false
	if inactive.Available(program, now) {
		t.Fatalf("inactive item must not be available")
	}

	soldOut := base
	soldOut.SoldQuantity = 10
	if soldOut.Available(program, now) {
		t.Fatalf("sold-out item must not be available")
	}

	if base.Available(program, start.Add(-time.Minute)) {
		t.Fatalf("item must not be available before the window opens")
	}
}
