package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
)

func TestDashboardService_Dashboard(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("composes the full snapshot", func(t *testing.T) {
		programs := newFakeProgramRepo(
			domain.Program{ID: "live", Name: "Live", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true},
			domain.Program{ID: "next", Name: "Next", StartTime: now.Add(2 * time.Hour), EndTime: now.Add(3 * time.Hour), IsActive: true},
		)
		items := newFakeItemSource()
		items.add("live", domain.Item{
			ID: "item-1", ProgramID: "live", ProductID: "product-1",
			OriginalPrice: decimal.NewFromInt(100), FlashPrice: decimal.NewFromInt(50),
			TotalQuantity: 10, SoldQuantity: 4, MaxPerUser: 2, IsActive: true,
		})
		items.add("live", domain.Item{
			ID: "item-2", ProgramID: "live", ProductID: "product-2",
			OriginalPrice: decimal.NewFromInt(100), FlashPrice: decimal.NewFromInt(80),
			TotalQuantity: 5, SoldQuantity: 5, MaxPerUser: 1, IsActive: true,
		})
		svc := NewDashboardService(programs, items, clock.NewFixed(now), NoopCache{}, zerolog.Nop())

		dashboard, err := svc.Dashboard(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !dashboard.ServerTime.Equal(now) {
			t.Fatalf("expected server time %v, got %v", now, dashboard.ServerTime)
		}
		if dashboard.CurrentProgram == nil || dashboard.CurrentProgram.ID != "live" {
			t.Fatalf("expected current program live, got %+v", dashboard.CurrentProgram)
		}
		if dashboard.CurrentProgram.SecondsRemaining != 3600 {
			t.Fatalf("expected 3600s remaining, got %d", dashboard.CurrentProgram.SecondsRemaining)
		}
		if dashboard.NextProgram == nil || dashboard.NextProgram.ID != "next" {
			t.Fatalf("expected next program, got %+v", dashboard.NextProgram)
		}

		// The sold-out item is filtered from the carousel.
		if len(dashboard.CurrentItems) != 1 || dashboard.CurrentItems[0].ID != "item-1" {
			t.Fatalf("expected only item-1, got %+v", dashboard.CurrentItems)
		}
		if dashboard.CurrentItems[0].SoldPercentage != 40 {
			t.Fatalf("expected 40%% sold, got %v", dashboard.CurrentItems[0].SoldPercentage)
		}
		if dashboard.CurrentItems[0].DiscountPercentage != 50 {
			t.Fatalf("expected 50%% discount, got %d", dashboard.CurrentItems[0].DiscountPercentage)
		}

		if len(dashboard.TodayTimeline) != 2 {
			t.Fatalf("expected 2 timeline entries, got %d", len(dashboard.TodayTimeline))
		}
		if dashboard.TodayTimeline[0].Lifecycle != domain.LifecycleActive {
			t.Fatalf("expected first entry active, got %s", dashboard.TodayTimeline[0].Lifecycle)
		}
		if dashboard.TodayTimeline[1].Lifecycle != domain.LifecycleUpcoming {
			t.Fatalf("expected second entry upcoming, got %s", dashboard.TodayTimeline[1].Lifecycle)
		}
	})

	t.Run("caps the item carousel", func(t *testing.T) {
		programs := newFakeProgramRepo(domain.Program{
			ID: "live", Name: "Live", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true,
		})
		items := newFakeItemSource()
		for i := 0; i < maxDashboardItems+5; i++ {
			items.add("live", domain.Item{
				ID: fmt.Sprintf("item-%d", i), ProgramID: "live", ProductID: fmt.Sprintf("product-%d", i),
				OriginalPrice: decimal.NewFromInt(100), FlashPrice: decimal.NewFromInt(90),
				TotalQuantity: 10, MaxPerUser: 1, IsActive: true,
			})
		}
		svc := NewDashboardService(programs, items, clock.NewFixed(now), NoopCache{}, zerolog.Nop())

		dashboard, err := svc.Dashboard(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(dashboard.CurrentItems) != maxDashboardItems {
			t.Fatalf("expected %d items, got %d", maxDashboardItems, len(dashboard.CurrentItems))
		}
	})

	t.Run("overlap winner matches the registry tie-break", func(t *testing.T) {
		// Identical start times resolve by smaller ID, same as CurrentActive.
		for i := 0; i < 5; i++ {
			programs := newFakeProgramRepo(
				domain.Program{ID: "bbb", Name: "B", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true},
				domain.Program{ID: "aaa", Name: "A", StartTime: now.Add(-time.Hour), EndTime: now.Add(2 * time.Hour), IsActive: true},
			)
			svc := NewDashboardService(programs, newFakeItemSource(), clock.NewFixed(now), NoopCache{}, zerolog.Nop())

			dashboard, err := svc.Dashboard(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if dashboard.CurrentProgram == nil || dashboard.CurrentProgram.ID != "aaa" {
				t.Fatalf("run %d: expected aaa to win, got %+v", i, dashboard.CurrentProgram)
			}
		}
	})

	t.Run("quiet day", func(t *testing.T) {
		svc := NewDashboardService(newFakeProgramRepo(), newFakeItemSource(), clock.NewFixed(now), NoopCache{}, zerolog.Nop())

		dashboard, err := svc.Dashboard(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if dashboard.CurrentProgram != nil || dashboard.NextProgram != nil {
			t.Fatalf("expected no programs, got %+v", dashboard)
		}
		if len(dashboard.TodayTimeline) != 0 {
			t.Fatalf("expected empty timeline, got %d entries", len(dashboard.TodayTimeline))
		}
	})

	t.Run("serves from cache without touching sources", func(t *testing.T) {
		cached := &Dashboard{ServerTime: now.Add(-time.Second)}
		cache := &fakeDashboardCache{dashboard: cached}
		programs := newFakeProgramRepo()
		svc := NewDashboardService(programs, newFakeItemSource(), clock.NewFixed(now), cache, zerolog.Nop())

		dashboard, err := svc.Dashboard(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if dashboard != cached {
			t.Fatalf("expected cached payload back")
		}
		if cache.sets != 0 {
			t.Fatalf("expected no cache write on hit, got %d", cache.sets)
		}
	})

	t.Run("cache failures degrade to direct reads", func(t *testing.T) {
		cache := &fakeDashboardCache{getErr: errors.New("redis down")}
		svc := NewDashboardService(newFakeProgramRepo(), newFakeItemSource(), clock.NewFixed(now), cache, zerolog.Nop())

		dashboard, err := svc.Dashboard(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if dashboard == nil {
			t.Fatalf("expected a freshly built dashboard")
		}
	})
}

type fakeItemSource struct {
	byProgram map[string][]domain.Item
}

func newFakeItemSource() *fakeItemSource {
	return &fakeItemSource{byProgram: map[string][]domain.Item{}}
}

func (f *fakeItemSource) add(programID string, item domain.Item) {
	f.byProgram[programID] = append(f.byProgram[programID], item)
}

func (f *fakeItemSource) ListByProgram(_ context.Context, programID string) ([]domain.Item, error) {
	return f.byProgram[programID], nil
}

func (f *fakeItemSource) CountByProgram(_ context.Context, programID string) (int, error) {
	return len(f.byProgram[programID]), nil
}

type fakeDashboardCache struct {
	dashboard *Dashboard
	getErr    error
	sets      int
}

func (f *fakeDashboardCache) Get(context.Context) (*Dashboard, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.dashboard, nil
}

func (f *fakeDashboardCache) Set(_ context.Context, dashboard *Dashboard) error {
	f.sets++
	f.dashboard = dashboard
	return nil
}

func (f *fakeDashboardCache) Invalidate(context.Context) error {
	f.dashboard = nil
	return nil
}
