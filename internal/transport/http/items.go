package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bao99257/flashsale-engine/internal/app"
	"github.com/bao99257/flashsale-engine/internal/catalog"
	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
)

// ItemAdmin is the slice of the item service the handlers need.
type ItemAdmin interface {
	Create(ctx context.Context, in app.CreateItemInput) (domain.Item, error)
	Update(ctx context.Context, in app.UpdateItemInput) (domain.Item, error)
	Deactivate(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (app.ItemDetails, error)
	ListByProgram(ctx context.Context, programID string, availableOnly bool) ([]app.ItemDetails, error)
}

type itemHandler struct {
	items ItemAdmin
	clock clock.Clock
}

type createItemRequest struct {
	ProductID     string          `json:"product_id" validate:"required"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	FlashPrice    decimal.Decimal `json:"flash_price"`
	TotalQuantity int             `json:"total_quantity" validate:"gte=0"`
	MaxPerUser    int             `json:"max_per_user" validate:"gte=1"`
}

type updateItemRequest struct {
	OriginalPrice decimal.Decimal `json:"original_price"`
	FlashPrice    decimal.Decimal `json:"flash_price"`
	TotalQuantity int             `json:"total_quantity" validate:"gte=0"`
	MaxPerUser    int             `json:"max_per_user" validate:"gte=1"`
	IsActive      *bool           `json:"is_active"`
}

type itemResponse struct {
	ID                 string           `json:"id"`
	ProgramID          string           `json:"program_id"`
	ProductID          string           `json:"product_id"`
	OriginalPrice      decimal.Decimal  `json:"original_price"`
	FlashPrice         decimal.Decimal  `json:"flash_price"`
	DiscountPercentage int              `json:"discount_percentage"`
	TotalQuantity      int              `json:"total_quantity"`
	SoldQuantity       int              `json:"sold_quantity"`
	RemainingQuantity  int              `json:"remaining_quantity"`
	SoldPercentage     float64          `json:"sold_percentage"`
	MaxPerUser         int              `json:"max_per_user"`
	IsActive           bool             `json:"is_active"`
	IsAvailable        bool             `json:"is_available"`
	Product            *catalog.Product `json:"product,omitempty"`
}

func (h *itemHandler) toResponse(item domain.Item, program domain.Program, product *catalog.Product) itemResponse {
	return itemResponse{
		ID:                 item.ID,
		ProgramID:          item.ProgramID,
		ProductID:          item.ProductID,
		OriginalPrice:      item.OriginalPrice,
		FlashPrice:         item.FlashPrice,
		DiscountPercentage: item.DiscountPercentage(),
		TotalQuantity:      item.TotalQuantity,
		SoldQuantity:       item.SoldQuantity,
		RemainingQuantity:  item.RemainingQuantity(),
		SoldPercentage:     item.SoldPercentage(),
		MaxPerUser:         item.MaxPerUser,
		IsActive:           item.IsActive,
		IsAvailable:        item.Available(program, h.clock.Now()),
		Product:            product,
	}
}

func (h *itemHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	item, err := h.items.Create(r.Context(), app.CreateItemInput{
		ProgramID:     chi.URLParam(r, "id"),
		ProductID:     req.ProductID,
		OriginalPrice: req.OriginalPrice,
		FlashPrice:    req.FlashPrice,
		TotalQuantity: req.TotalQuantity,
		MaxPerUser:    req.MaxPerUser,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	details, err := h.items.Get(r.Context(), item.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(details.Item, details.Program, details.Product))
}

func (h *itemHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	item, err := h.items.Update(r.Context(), app.UpdateItemInput{
		ID:            chi.URLParam(r, "id"),
		OriginalPrice: req.OriginalPrice,
		FlashPrice:    req.FlashPrice,
		TotalQuantity: req.TotalQuantity,
		MaxPerUser:    req.MaxPerUser,
		IsActive:      isActive,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	details, err := h.items.Get(r.Context(), item.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(details.Item, details.Program, details.Product))
}

func (h *itemHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.items.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *itemHandler) get(w http.ResponseWriter, r *http.Request) {
	details, err := h.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(details.Item, details.Program, details.Product))
}

func (h *itemHandler) listByProgram(w http.ResponseWriter, r *http.Request) {
	availableOnly := r.URL.Query().Get("available") == "true"

	items, err := h.items.ListByProgram(r.Context(), chi.URLParam(r, "id"), availableOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, d := range items {
		out = append(out, h.toResponse(d.Item, d.Program, d.Product))
	}
	writeJSON(w, http.StatusOK, out)
}
