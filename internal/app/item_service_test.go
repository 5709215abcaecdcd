package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bao99257/flashsale-engine/internal/catalog"
	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
)

func TestItemService_Create(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	program := domain.Program{ID: "prog-1", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true}

	makeSvc := func() (*ItemService, *fakeItemRepo) {
		repo := newFakeItemRepo()
		svc := NewItemService(repo, newFakeProgramRepo(program), nil, clock.NewFixed(now), NoopCache{}, zerolog.Nop())
		return svc, repo
	}

	valid := CreateItemInput{
		ProgramID:     "prog-1",
		ProductID:     "product-1",
		OriginalPrice: decimal.NewFromInt(100),
		FlashPrice:    decimal.NewFromInt(80),
		TotalQuantity: 10,
		MaxPerUser:    2,
	}

	t.Run("creates an active item", func(t *testing.T) {
		svc, repo := makeSvc()

		item, err := svc.Create(context.Background(), valid)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if item.ID == "" || !item.IsActive || item.SoldQuantity != 0 {
			t.Fatalf("unexpected item state: %+v", item)
		}
		if len(repo.items) != 1 {
			t.Fatalf("expected 1 stored item, got %d", len(repo.items))
		}
	})

	t.Run("requires a product", func(t *testing.T) {
		svc, _ := makeSvc()
		in := valid
		in.ProductID = ""
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrProductRequired) {
			t.Fatalf("expected ErrProductRequired, got %v", err)
		}
	})

	t.Run("flash price must not exceed original", func(t *testing.T) {
		svc, _ := makeSvc()
		in := valid
		in.FlashPrice = decimal.NewFromInt(120)
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrInvalidPrice) {
			t.Fatalf("expected ErrInvalidPrice, got %v", err)
		}
	})

	t.Run("flash price must not be negative", func(t *testing.T) {
		svc, _ := makeSvc()
		in := valid
		in.FlashPrice = decimal.NewFromInt(-1)
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrInvalidPrice) {
			t.Fatalf("expected ErrInvalidPrice, got %v", err)
		}
	})

	t.Run("stock must not be negative", func(t *testing.T) {
		svc, _ := makeSvc()
		in := valid
		in.TotalQuantity = -1
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrInvalidStock) {
			t.Fatalf("expected ErrInvalidStock, got %v", err)
		}
	})

	t.Run("per-user cap must be positive", func(t *testing.T) {
		svc, _ := makeSvc()
		in := valid
		in.MaxPerUser = 0
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrInvalidMaxPerUser) {
			t.Fatalf("expected ErrInvalidMaxPerUser, got %v", err)
		}
	})
}

func TestItemService_Update(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	program := domain.Program{ID: "prog-1", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true}

	repo := newFakeItemRepo(domain.Item{
		ID: "item-1", ProgramID: "prog-1", ProductID: "product-1",
		OriginalPrice: decimal.NewFromInt(100), FlashPrice: decimal.NewFromInt(80),
		TotalQuantity: 10, SoldQuantity: 6, MaxPerUser: 2, IsActive: true,
	})
	svc := NewItemService(repo, newFakeProgramRepo(program), nil, clock.NewFixed(now), NoopCache{}, zerolog.Nop())

	t.Run("stock cannot drop below sold", func(t *testing.T) {
		_, err := svc.Update(context.Background(), UpdateItemInput{
			ID:            "item-1",
			OriginalPrice: decimal.NewFromInt(100),
			FlashPrice:    decimal.NewFromInt(80),
			TotalQuantity: 5,
			MaxPerUser:    2,
			IsActive:      true,
		})
		if !errors.Is(err, domain.ErrStockBelowSold) {
			t.Fatalf("expected ErrStockBelowSold, got %v", err)
		}
	})

	t.Run("sold counter survives edits", func(t *testing.T) {
		item, err := svc.Update(context.Background(), UpdateItemInput{
			ID:            "item-1",
			OriginalPrice: decimal.NewFromInt(90),
			FlashPrice:    decimal.NewFromInt(70),
			TotalQuantity: 20,
			MaxPerUser:    3,
			IsActive:      true,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if item.SoldQuantity != 6 {
			t.Fatalf("expected sold untouched at 6, got %d", item.SoldQuantity)
		}
		if item.TotalQuantity != 20 {
			t.Fatalf("expected total 20, got %d", item.TotalQuantity)
		}
	})
}

func TestItemService_ListByProgram(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	program := domain.Program{ID: "prog-1", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true}

	repo := newFakeItemRepo(
		domain.Item{ID: "item-1", ProgramID: "prog-1", ProductID: "p1", OriginalPrice: decimal.NewFromInt(10), FlashPrice: decimal.NewFromInt(5), TotalQuantity: 10, MaxPerUser: 1, IsActive: true},
		domain.Item{ID: "item-2", ProgramID: "prog-1", ProductID: "p2", OriginalPrice: decimal.NewFromInt(10), FlashPrice: decimal.NewFromInt(5), TotalQuantity: 10, SoldQuantity: 10, MaxPerUser: 1, IsActive: true},
		domain.Item{ID: "item-3", ProgramID: "prog-1", ProductID: "p3", OriginalPrice: decimal.NewFromInt(10), FlashPrice: decimal.NewFromInt(5), TotalQuantity: 10, MaxPerUser: 1, IsActive: false},
	)
	svc := NewItemService(repo, newFakeProgramRepo(program), nil, clock.NewFixed(now), NoopCache{}, zerolog.Nop())

	all, err := svc.ListByProgram(context.Background(), "prog-1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}

	available, err := svc.ListByProgram(context.Background(), "prog-1", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(available) != 1 || available[0].Item.ID != "item-1" {
		t.Fatalf("expected only item-1 available, got %+v", available)
	}
}

func TestItemService_CatalogDegradesSoftly(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	program := domain.Program{ID: "prog-1", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true}

	repo := newFakeItemRepo(domain.Item{
		ID: "item-1", ProgramID: "prog-1", ProductID: "p1",
		OriginalPrice: decimal.NewFromInt(10), FlashPrice: decimal.NewFromInt(5),
		TotalQuantity: 10, MaxPerUser: 1, IsActive: true,
	})
	products := failingProductFetcher{}
	svc := NewItemService(repo, newFakeProgramRepo(program), products, clock.NewFixed(now), NoopCache{}, zerolog.Nop())

	details, err := svc.Get(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("catalog outage must not fail the read, got %v", err)
	}
	if details.Product != nil {
		t.Fatalf("expected no product on catalog failure, got %+v", details.Product)
	}
}

type fakeItemRepo struct {
	items map[string]domain.Item
	order []string
}

func newFakeItemRepo(items ...domain.Item) *fakeItemRepo {
	repo := &fakeItemRepo{items: map[string]domain.Item{}}
	for _, item := range items {
		repo.items[item.ID] = item
		repo.order = append(repo.order, item.ID)
	}
	return repo
}

func (f *fakeItemRepo) Create(_ context.Context, item domain.Item) error {
	f.items[item.ID] = item
	f.order = append(f.order, item.ID)
	return nil
}

func (f *fakeItemRepo) Update(_ context.Context, item domain.Item) error {
	if _, ok := f.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeItemRepo) Get(_ context.Context, id string) (domain.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeItemRepo) ListByProgram(_ context.Context, programID string) ([]domain.Item, error) {
	var out []domain.Item
	for _, id := range f.order {
		if item := f.items[id]; item.ProgramID == programID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) SetActive(_ context.Context, id string, active bool, now time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	item.IsActive = active
	item.UpdatedAt = now
	f.items[id] = item
	return nil
}

func (f *fakeItemRepo) CountByProgram(_ context.Context, programID string) (int, error) {
	count := 0
	for _, item := range f.items {
		if item.ProgramID == programID {
			count++
		}
	}
	return count, nil
}

type failingProductFetcher struct{}

func (failingProductFetcher) GetProduct(context.Context, string) (catalog.Product, error) {
	return catalog.Product{}, errors.New("catalog unreachable")
}
