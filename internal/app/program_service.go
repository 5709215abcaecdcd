package app

import (
	"context"
	"time"

	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ProgramRepository interface {
	Create(ctx context.Context, program domain.Program) error
	Update(ctx context.Context, program domain.Program) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Program, error)
	List(ctx context.Context) ([]domain.Program, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Program, error)
	ListActiveAt(ctx context.Context, now time.Time) ([]domain.Program, error)
	NextUpcoming(ctx context.Context, now time.Time) (*domain.Program, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) error
	HasSoldItems(ctx context.Context, id string) (bool, error)
}

// CacheInvalidator drops derived read models after an administrative write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type ProgramService struct {
	repo   ProgramRepository
	clock  clock.Clock
	cache  CacheInvalidator
	logger zerolog.Logger
}

func NewProgramService(repo ProgramRepository, clk clock.Clock, cache CacheInvalidator, logger zerolog.Logger) *ProgramService {
	return &ProgramService{
		repo:   repo,
		clock:  clk,
		cache:  cache,
		logger: logger,
	}
}

type CreateProgramInput struct {
	Name        string
	Description string
	StartTime   time.Time
	EndTime     time.Time
}

func (s *ProgramService) Create(ctx context.Context, in CreateProgramInput) (domain.Program, error) {
	if in.Name == "" {
		return domain.Program{}, domain.ErrProgramNameRequired
	}
	if !in.StartTime.Before(in.EndTime) {
		return domain.Program{}, domain.ErrInvalidWindow
	}

	now := s.clock.Now()
	program := domain.Program{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, program); err != nil {
		return domain.Program{}, err
	}
	s.invalidate(ctx)
	return program, nil
}

type UpdateProgramInput struct {
	ID          string
	Name        string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	IsActive    bool
}

func (s *ProgramService) Update(ctx context.Context, in UpdateProgramInput) (domain.Program, error) {
	if in.Name == "" {
		return domain.Program{}, domain.ErrProgramNameRequired
	}
	if !in.StartTime.Before(in.EndTime) {
		return domain.Program{}, domain.ErrInvalidWindow
	}

	program, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return domain.Program{}, err
	}

	program.Name = in.Name
	program.Description = in.Description
	program.StartTime = in.StartTime.UTC()
	program.EndTime = in.EndTime.UTC()
	program.IsActive = in.IsActive
	program.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, program); err != nil {
		return domain.Program{}, err
	}
	s.invalidate(ctx)
	return program, nil
}

// Deactivate flips the administrative kill-switch; the program reports ended
// immediately regardless of its window.
func (s *ProgramService) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id, false, s.clock.Now()); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Delete removes a program outright. Programs with any sold stock are
// protected; callers must deactivate those instead.
func (s *ProgramService) Delete(ctx context.Context, id string) error {
	sold, err := s.repo.HasSoldItems(ctx, id)
	if err != nil {
		return err
	}
	if sold {
		return domain.ErrProgramHasSales
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ProgramService) Get(ctx context.Context, id string) (domain.Program, error) {
	return s.repo.Get(ctx, id)
}

type ProgramFilter struct {
	Lifecycle *domain.ProgramLifecycle
	IsActive  *bool
}

// List returns all programs newest-window-first, optionally filtered by
// derived lifecycle and the administrative flag.
func (s *ProgramService) List(ctx context.Context, filter ProgramFilter) ([]domain.Program, error) {
	programs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Lifecycle == nil && filter.IsActive == nil {
		return programs, nil
	}

	now := s.clock.Now()
	filtered := make([]domain.Program, 0, len(programs))
	for _, p := range programs {
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		if filter.Lifecycle != nil && p.Lifecycle(now) != *filter.Lifecycle {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// ListToday returns programs whose window opens during the current UTC day,
// in start order.
func (s *ProgramService) ListToday(ctx context.Context) ([]domain.Program, error) {
	from, to := dayBounds(s.clock.Now())
	return s.repo.ListStartingBetween(ctx, from, to)
}

// CurrentActive returns the single running program, or nil when none is.
// When administrative windows overlap, the earliest start wins.
func (s *ProgramService) CurrentActive(ctx context.Context) (*domain.Program, error) {
	candidates, err := s.repo.ListActiveAt(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	winner := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.StartTime.Before(winner.StartTime) {
			winner = candidate
			continue
		}
		if candidate.StartTime.Equal(winner.StartTime) && candidate.ID < winner.ID {
			winner = candidate
		}
	}
	return &winner, nil
}

func (s *ProgramService) NextUpcoming(ctx context.Context) (*domain.Program, error) {
	return s.repo.NextUpcoming(ctx, s.clock.Now())
}

func (s *ProgramService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}
