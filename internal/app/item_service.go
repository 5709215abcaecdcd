package app

import (
	"context"
	"time"

	"github.com/bao99257/flashsale-engine/internal/catalog"
	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ItemRepository interface {
	Create(ctx context.Context, item domain.Item) error
	Update(ctx context.Context, item domain.Item) error
	Get(ctx context.Context, id string) (domain.Item, error)
	ListByProgram(ctx context.Context, programID string) ([]domain.Item, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) error
	CountByProgram(ctx context.Context, programID string) (int, error)
}

// ProgramGetter is the slice of the program registry the item service needs
// to compute availability.
type ProgramGetter interface {
	Get(ctx context.Context, id string) (domain.Program, error)
}

// ProductFetcher supplies catalog details for display enrichment. Failures
// are soft: callers fall back to raw item fields.
type ProductFetcher interface {
	GetProduct(ctx context.Context, productID string) (catalog.Product, error)
}

type ItemService struct {
	repo     ItemRepository
	programs ProgramGetter
	products ProductFetcher
	clock    clock.Clock
	cache    CacheInvalidator
	logger   zerolog.Logger
}

func NewItemService(repo ItemRepository, programs ProgramGetter, products ProductFetcher, clk clock.Clock, cache CacheInvalidator, logger zerolog.Logger) *ItemService {
	return &ItemService{
		repo:     repo,
		programs: programs,
		products: products,
		clock:    clk,
		cache:    cache,
		logger:   logger,
	}
}

// ItemDetails pairs an item with its owning program and, when the catalog is
// reachable, the product it references.
type ItemDetails struct {
	Item    domain.Item
	Program domain.Program
	Product *catalog.Product
}

type CreateItemInput struct {
	ProgramID     string
	ProductID     string
	OriginalPrice decimal.Decimal
	FlashPrice    decimal.Decimal
	TotalQuantity int
	MaxPerUser    int
}

func (s *ItemService) Create(ctx context.Context, in CreateItemInput) (domain.Item, error) {
	if in.ProductID == "" {
		return domain.Item{}, domain.ErrProductRequired
	}
	if err := validatePricing(in.OriginalPrice, in.FlashPrice); err != nil {
		return domain.Item{}, err
	}
	if in.TotalQuantity < 0 {
		return domain.Item{}, domain.ErrInvalidStock
	}
	if in.MaxPerUser < 1 {
		return domain.Item{}, domain.ErrInvalidMaxPerUser
	}

	now := s.clock.Now()
	item := domain.Item{
		ID:            uuid.NewString(),
		ProgramID:     in.ProgramID,
		ProductID:     in.ProductID,
		OriginalPrice: in.OriginalPrice,
		FlashPrice:    in.FlashPrice,
		TotalQuantity: in.TotalQuantity,
		SoldQuantity:  0,
		MaxPerUser:    in.MaxPerUser,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return domain.Item{}, err
	}
	s.invalidate(ctx)
	return item, nil
}

type UpdateItemInput struct {
	ID            string
	OriginalPrice decimal.Decimal
	FlashPrice    decimal.Decimal
	TotalQuantity int
	MaxPerUser    int
	IsActive      bool
}

func (s *ItemService) Update(ctx context.Context, in UpdateItemInput) (domain.Item, error) {
	if err := validatePricing(in.OriginalPrice, in.FlashPrice); err != nil {
		return domain.Item{}, err
	}
	if in.TotalQuantity < 0 {
		return domain.Item{}, domain.ErrInvalidStock
	}
	if in.MaxPerUser < 1 {
		return domain.Item{}, domain.ErrInvalidMaxPerUser
	}

	item, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return domain.Item{}, err
	}
	if in.TotalQuantity < item.SoldQuantity {
		return domain.Item{}, domain.ErrStockBelowSold
	}

	item.OriginalPrice = in.OriginalPrice
	item.FlashPrice = in.FlashPrice
	item.TotalQuantity = in.TotalQuantity
	item.MaxPerUser = in.MaxPerUser
	item.IsActive = in.IsActive
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, item); err != nil {
		return domain.Item{}, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *ItemService) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id, false, s.clock.Now()); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ItemService) Get(ctx context.Context, id string) (ItemDetails, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return ItemDetails{}, err
	}
	program, err := s.programs.Get(ctx, item.ProgramID)
	if err != nil {
		return ItemDetails{}, err
	}
	return ItemDetails{
		Item:    item,
		Program: program,
		Product: s.fetchProduct(ctx, item.ProductID),
	}, nil
}

// ListByProgram lists a program's items, optionally restricted to those
// currently reservable.
func (s *ItemService) ListByProgram(ctx context.Context, programID string, availableOnly bool) ([]ItemDetails, error) {
	program, err := s.programs.Get(ctx, programID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	details := make([]ItemDetails, 0, len(items))
	for _, item := range items {
		if availableOnly && !item.Available(program, now) {
			continue
		}
		details = append(details, ItemDetails{
			Item:    item,
			Program: program,
			Product: s.fetchProduct(ctx, item.ProductID),
		})
	}
	return details, nil
}

func (s *ItemService) fetchProduct(ctx context.Context, productID string) *catalog.Product {
	if s.products == nil {
		return nil
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID).Msg("catalog lookup failed, serving raw item")
		return nil
	}
	return &product
}

func (s *ItemService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}

func validatePricing(original, flash decimal.Decimal) error {
	if flash.IsNegative() || flash.GreaterThan(original) {
		return domain.ErrInvalidPrice
	}
	return nil
}
