package app

import (
	"context"
	"time"

	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
	"github.com/bao99257/flashsale-engine/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Dashboard is the advisory read model polled by storefront clients. It
// drives countdowns and progress bars, never allocation decisions: the
// allocation path reads the ledger directly.
type Dashboard struct {
	CurrentProgram *ProgramSummary `json:"current_program"`
	NextProgram    *ProgramSummary `json:"next_program"`
	TodayTimeline  []TimelineEntry `json:"today_timeline"`
	CurrentItems   []DashboardItem `json:"current_items"`
	ServerTime     time.Time       `json:"server_time"`
}

type ProgramSummary struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	Description      string                  `json:"description"`
	StartTime        time.Time               `json:"start_time"`
	EndTime          time.Time               `json:"end_time"`
	Lifecycle        domain.ProgramLifecycle `json:"lifecycle"`
	SecondsRemaining int64                   `json:"seconds_remaining"`
	ItemCount        int                     `json:"item_count"`
}

type TimelineEntry struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	StartTime time.Time               `json:"start_time"`
	EndTime   time.Time               `json:"end_time"`
	Lifecycle domain.ProgramLifecycle `json:"lifecycle"`
	ItemCount int                     `json:"item_count"`
}

type DashboardItem struct {
	ID                 string          `json:"id"`
	ProductID          string          `json:"product_id"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	FlashPrice         decimal.Decimal `json:"flash_price"`
	TotalQuantity      int             `json:"total_quantity"`
	SoldQuantity       int             `json:"sold_quantity"`
	RemainingQuantity  int             `json:"remaining_quantity"`
	SoldPercentage     float64         `json:"sold_percentage"`
	DiscountPercentage int             `json:"discount_percentage"`
}

// DashboardProgramSource is the read-only slice of the program registry the
// aggregator needs.
type DashboardProgramSource interface {
	ListActiveAt(ctx context.Context, now time.Time) ([]domain.Program, error)
	NextUpcoming(ctx context.Context, now time.Time) (*domain.Program, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Program, error)
}

type DashboardItemSource interface {
	ListByProgram(ctx context.Context, programID string) ([]domain.Item, error)
	CountByProgram(ctx context.Context, programID string) (int, error)
}

// DashboardCache is an optional TTL cache in front of the aggregator. A nil
// result from Get means miss.
type DashboardCache interface {
	Get(ctx context.Context) (*Dashboard, error)
	Set(ctx context.Context, dashboard *Dashboard) error
	Invalidate(ctx context.Context) error
}

// NoopCache disables caching; every dashboard read recomputes.
type NoopCache struct{}

func (NoopCache) Get(context.Context) (*Dashboard, error) { return nil, nil }
func (NoopCache) Set(context.Context, *Dashboard) error   { return nil }
func (NoopCache) Invalidate(context.Context) error        { return nil }

const maxDashboardItems = 20

type DashboardService struct {
	programs DashboardProgramSource
	items    DashboardItemSource
	clock    clock.Clock
	cache    DashboardCache
	logger   zerolog.Logger
}

func NewDashboardService(programs DashboardProgramSource, items DashboardItemSource, clk clock.Clock, cache DashboardCache, logger zerolog.Logger) *DashboardService {
	return &DashboardService{
		programs: programs,
		items:    items,
		clock:    clk,
		cache:    cache,
		logger:   logger,
	}
}

// Dashboard recomputes the read model on demand, serving from cache when
// fresh. Cache failures degrade to direct reads.
func (s *DashboardService) Dashboard(ctx context.Context) (*Dashboard, error) {
	cached, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache read failed")
	} else if cached != nil {
		metrics.DashboardCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.DashboardCacheHits.WithLabelValues("miss").Inc()

	dashboard, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, dashboard); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache write failed")
	}
	return dashboard, nil
}

func (s *DashboardService) build(ctx context.Context) (*Dashboard, error) {
	now := s.clock.Now()
	dashboard := &Dashboard{ServerTime: now}

	current, err := s.currentProgram(ctx, now)
	if err != nil {
		return nil, err
	}
	if current != nil {
		summary, err := s.summarize(ctx, *current, now)
		if err != nil {
			return nil, err
		}
		dashboard.CurrentProgram = &summary

		items, err := s.currentItems(ctx, *current, now)
		if err != nil {
			return nil, err
		}
		dashboard.CurrentItems = items
	}

	next, err := s.programs.NextUpcoming(ctx, now)
	if err != nil {
		return nil, err
	}
	if next != nil {
		summary, err := s.summarize(ctx, *next, now)
		if err != nil {
			return nil, err
		}
		dashboard.NextProgram = &summary
	}

	from, to := dayBounds(now)
	today, err := s.programs.ListStartingBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	timeline := make([]TimelineEntry, 0, len(today))
	for _, program := range today {
		count, err := s.items.CountByProgram(ctx, program.ID)
		if err != nil {
			return nil, err
		}
		timeline = append(timeline, TimelineEntry{
			ID:        program.ID,
			Name:      program.Name,
			StartTime: program.StartTime,
			EndTime:   program.EndTime,
			Lifecycle: program.Lifecycle(now),
			ItemCount: count,
		})
	}
	dashboard.TodayTimeline = timeline

	return dashboard, nil
}

func (s *DashboardService) currentProgram(ctx context.Context, now time.Time) (*domain.Program, error) {
	candidates, err := s.programs.ListActiveAt(ctx, now)
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

func (s *DashboardService) currentItems(ctx context.Context, program domain.Program, now time.Time) ([]DashboardItem, error) {
	items, err := s.items.ListByProgram(ctx, program.ID)
	if err != nil {
		return nil, err
	}

	out := make([]DashboardItem, 0, len(items))
	for _, item := range items {
		if !item.Available(program, now) {
			continue
		}
		out = append(out, DashboardItem{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			OriginalPrice:      item.OriginalPrice,
			FlashPrice:         item.FlashPrice,
			TotalQuantity:      item.TotalQuantity,
			SoldQuantity:       item.SoldQuantity,
			RemainingQuantity:  item.RemainingQuantity(),
			SoldPercentage:     item.SoldPercentage(),
			DiscountPercentage: item.DiscountPercentage(),
		})
		if len(out) == maxDashboardItems {
			break
		}
	}
	return out, nil
}

func (s *DashboardService) summarize(ctx context.Context, program domain.Program, now time.Time) (ProgramSummary, error) {
	count, err := s.items.CountByProgram(ctx, program.ID)
	if err != nil {
		return ProgramSummary{}, err
	}
	return ProgramSummary{
		ID:               program.ID,
		Name:             program.Name,
		Description:      program.Description,
		StartTime:        program.StartTime,
		EndTime:          program.EndTime,
		Lifecycle:        program.Lifecycle(now),
		SecondsRemaining: int64(program.TimeRemaining(now) / time.Second),
		ItemCount:        count,
	}, nil
}
