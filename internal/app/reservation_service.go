package app

import (
	"context"
	"time"

	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
	"github.com/google/uuid"
)

// ReservationRepository is the transactional slice of the ledger the
// allocation engine needs. GetItemForUpdate must lock the item row so that
// check-then-update on sold stock and quota never interleaves for one item;
// different items proceed in parallel.
type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetItemForUpdate(ctx context.Context, itemID string) (domain.Item, error)
	GetProgram(ctx context.Context, programID string) (domain.Program, error)
	UserReservedUnits(ctx context.Context, itemID, userID string) (int, error)
	AddUserQuota(ctx context.Context, itemID, userID string, delta int, now time.Time) error
	AddSold(ctx context.Context, itemID string, delta int, now time.Time) error
	CreateSession(ctx context.Context, session domain.PurchaseSession) error
}

type ReservationService struct {
	repo    ReservationRepository
	clock   clock.Clock
	holdTTL time.Duration
}

const defaultHoldTTL = 10 * time.Minute

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		repo:    repo,
		clock:   clk,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationOption func(*ReservationService)

// WithHoldTTL overrides the default hold window for new sessions.
func WithHoldTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

type ReserveInput struct {
	ItemID   string
	UserID   string
	Quantity int
}

// Reserve atomically allocates stock for a user. Preconditions are checked in
// a fixed order and the first failure wins: quantity, item availability,
// program lifecycle, per-user quota, then total stock. A request the
// remaining stock cannot fully cover is rejected outright; the engine never
// partially fills. On success the sold counter, the quota record, and the new
// reserved session commit as one unit, or not at all.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.PurchaseSession, error) {
	if in.Quantity < 1 {
		return domain.PurchaseSession{}, domain.ErrInvalidQuantity
	}
	if in.UserID == "" {
		return domain.PurchaseSession{}, domain.ErrUserRequired
	}

	now := s.clock.Now()
	var session domain.PurchaseSession

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.repo.GetItemForUpdate(txCtx, in.ItemID)
		if err != nil {
			if err == domain.ErrItemNotFound || err == domain.ErrInvalidID {
				return domain.ErrItemUnavailable
			}
			return err
		}
		if !item.IsActive {
			return domain.ErrItemUnavailable
		}

		program, err := s.repo.GetProgram(txCtx, item.ProgramID)
		if err != nil {
			return err
		}
		switch program.Lifecycle(now) {
		case domain.LifecycleUpcoming:
			return &domain.SaleNotActiveError{Reason: domain.SaleNotStarted}
		case domain.LifecycleEnded:
			return &domain.SaleNotActiveError{Reason: domain.SaleEnded}
		}

		reserved, err := s.repo.UserReservedUnits(txCtx, in.ItemID, in.UserID)
		if err != nil {
			return err
		}
		if reserved+in.Quantity > item.MaxPerUser {
			remaining := item.MaxPerUser - reserved
			if remaining < 0 {
				remaining = 0
			}
			return &domain.QuotaExceededError{
				Limit:     item.MaxPerUser,
				Reserved:  reserved,
				Remaining: remaining,
			}
		}

		if item.SoldQuantity+in.Quantity > item.TotalQuantity {
			return &domain.SoldOutError{Remaining: item.RemainingQuantity()}
		}

		if err := s.repo.AddSold(txCtx, in.ItemID, in.Quantity, now); err != nil {
			return err
		}
		if err := s.repo.AddUserQuota(txCtx, in.ItemID, in.UserID, in.Quantity, now); err != nil {
			return err
		}

		session = domain.PurchaseSession{
			ID:        uuid.NewString(),
			ItemID:    in.ItemID,
			UserID:    in.UserID,
			Quantity:  in.Quantity,
			UnitPrice: item.FlashPrice,
			Status:    domain.SessionStatusReserved,
			ExpiresAt: now.Add(s.holdTTL),
			CreatedAt: now,
		}
		return s.repo.CreateSession(txCtx, session)
	})
	if err != nil {
		return domain.PurchaseSession{}, err
	}

	return session, nil
}
