package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProgramNotFound     = errors.New("program not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidWindow       = errors.New("start_time must be before end_time")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrItemUnavailable     = errors.New("item unavailable")
	ErrInvalidPrice        = errors.New("flash_price must be between 0 and original_price")
	ErrInvalidStock        = errors.New("total_quantity must not be negative")
	ErrInvalidMaxPerUser   = errors.New("max_per_user must be at least 1")
	ErrStockBelowSold      = errors.New("total_quantity must not drop below sold_quantity")
	ErrProgramNameRequired = errors.New("program name required")
	ErrProductRequired     = errors.New("product reference required")
	ErrItemAlreadyListed   = errors.New("product already listed in program")
	ErrProgramHasSales     = errors.New("program has sold items and cannot be deleted")
	ErrSessionExpired      = errors.New("purchase session expired")
	ErrUserRequired        = errors.New("user id required")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// InvalidSessionTransitionError reports an attempt to move a session out of a
// terminal state.
type InvalidSessionTransitionError struct {
	From SessionStatus
	To   SessionStatus
}

func (e *InvalidSessionTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.From, e.To)
}

type SaleInactiveReason string

const (
	SaleNotStarted SaleInactiveReason = "not-started"
	SaleEnded      SaleInactiveReason = "ended"
)

// SaleNotActiveError rejects reservations outside the program window,
// carrying whether the sale has not started yet or already ended.
type SaleNotActiveError struct {
	Reason SaleInactiveReason
}

func (e *SaleNotActiveError) Error() string {
	if e.Reason == SaleNotStarted {
		return "sale has not started yet"
	}
	return "sale has ended"
}

// QuotaExceededError rejects reservations that would push a user past the
// per-user cap, reporting the remaining allowance.
type QuotaExceededError struct {
	Limit     int
	Reserved  int
	Remaining int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d of %d reserved, %d remaining", e.Reserved, e.Limit, e.Remaining)
}

// SoldOutError rejects reservations the remaining stock cannot cover. A
// request is never partially filled: Remaining may be nonzero but smaller
// than the requested quantity.
type SoldOutError struct {
	Remaining int
}

func (e *SoldOutError) Error() string {
	if e.Remaining > 0 {
		return fmt.Sprintf("insufficient stock: %d remaining", e.Remaining)
	}
	return "sold out"
}
