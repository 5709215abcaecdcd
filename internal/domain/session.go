package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionStatusReserved  SessionStatus = "reserved"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusReleased  SessionStatus = "released"
)

// PurchaseSession is a time-bounded hold on reserved stock pending downstream
// confirmation. UnitPrice snapshots the flash price at reservation time and
// is immune to later price edits.
type PurchaseSession struct {
	ID        string
	ItemID    string
	UserID    string
	Quantity  int
	UnitPrice decimal.Decimal
	Status    SessionStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the hold window has elapsed.
func (s PurchaseSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Terminal reports whether the session reached a final state.
func (s PurchaseSession) Terminal() bool {
	return s.Status == SessionStatusConfirmed || s.Status == SessionStatusReleased
}

// UserQuota tracks cumulative units reserved by one user for one item. It is
// created lazily on the first reservation and never exceeds the item cap.
type UserQuota struct {
	ItemID        string
	UserID        string
	UnitsReserved int
	UpdatedAt     time.Time
}
