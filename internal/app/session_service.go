package app

import (
	"context"
	"time"

	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
)

// SessionRepository is the transactional slice backing session state
// transitions. GetSessionForUpdate locks the session row, so concurrent
// confirm/release/sweep calls serialize and the first one wins.
type SessionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetSessionForUpdate(ctx context.Context, id string) (domain.PurchaseSession, error)
	SetSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error
	LockItem(ctx context.Context, itemID string) error
	AddSold(ctx context.Context, itemID string, delta int, now time.Time) error
	AddUserQuota(ctx context.Context, itemID, userID string, delta int, now time.Time) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type SessionService struct {
	repo  SessionRepository
	clock clock.Clock
}

func NewSessionService(repo SessionRepository, clk clock.Clock) *SessionService {
	return &SessionService{
		repo:  repo,
		clock: clk,
	}
}

// Confirm moves a reserved session to its terminal confirmed state, making
// the held stock a sale. Confirming past the hold window performs the
// compensating release instead and reports the session expired; confirming a
// terminal session fails with an invalid-transition error.
func (s *SessionService) Confirm(ctx context.Context, sessionID string) (domain.PurchaseSession, error) {
	now := s.clock.Now()
	var result domain.PurchaseSession
	var expired bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		session, err := s.repo.GetSessionForUpdate(txCtx, sessionID)
		if err != nil {
			return err
		}
		if session.Terminal() {
			return &domain.InvalidSessionTransitionError{
				From: session.Status,
				To:   domain.SessionStatusConfirmed,
			}
		}
		if session.Expired(now) {
			// Lazy sweep: whoever touches the expired session first
			// applies the release. The closure returns nil so the
			// compensating writes commit; the expiry error is raised
			// after the transaction.
			expired = true
			return s.compensate(txCtx, session, now)
		}

		if err := s.repo.SetSessionStatus(txCtx, session.ID, domain.SessionStatusConfirmed); err != nil {
			return err
		}
		session.Status = domain.SessionStatusConfirmed
		result = session
		return nil
	})
	if err != nil {
		return domain.PurchaseSession{}, err
	}
	if expired {
		return domain.PurchaseSession{}, domain.ErrSessionExpired
	}
	return result, nil
}

type ReleaseResult struct {
	Session domain.PurchaseSession
	// Released is false when the session was already terminal and the call
	// was a no-op.
	Released bool
}

// Release returns a session's held stock to the pool. It is idempotent:
// releasing a confirmed or already-released session changes nothing and
// reports the current state.
func (s *SessionService) Release(ctx context.Context, sessionID string) (ReleaseResult, error) {
	now := s.clock.Now()
	var result ReleaseResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		session, err := s.repo.GetSessionForUpdate(txCtx, sessionID)
		if err != nil {
			return err
		}
		if session.Terminal() {
			result = ReleaseResult{Session: session, Released: false}
			return nil
		}

		if err := s.compensate(txCtx, session, now); err != nil {
			return err
		}
		session.Status = domain.SessionStatusReleased
		result = ReleaseResult{Session: session, Released: true}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	return result, nil
}

// ReleaseExpired releases up to limit expired reserved sessions and returns
// how many it actually released. Safe to run concurrently with confirm and
// manual release: each session transitions under its own row lock, and losing
// the race is a no-op.
func (s *SessionService) ReleaseExpired(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.ListExpired(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		res, err := s.Release(ctx, id)
		if err != nil {
			return released, err
		}
		if res.Released {
			released++
		}
	}
	return released, nil
}

// compensate undoes an allocation inside the caller's transaction: the item
// lock is taken first so the decrement serializes with concurrent reserves.
func (s *SessionService) compensate(ctx context.Context, session domain.PurchaseSession, now time.Time) error {
	if err := s.repo.LockItem(ctx, session.ItemID); err != nil {
		return err
	}
	if err := s.repo.AddSold(ctx, session.ItemID, -session.Quantity, now); err != nil {
		return err
	}
	if err := s.repo.AddUserQuota(ctx, session.ItemID, session.UserID, -session.Quantity, now); err != nil {
		return err
	}
	return s.repo.SetSessionStatus(ctx, session.ID, domain.SessionStatusReleased)
}
