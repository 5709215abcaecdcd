package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bao99257/flashsale-engine/internal/app"
	"github.com/bao99257/flashsale-engine/internal/domain"
	"github.com/bao99257/flashsale-engine/internal/metrics"
)

// Reserver places stock holds on behalf of buyers.
type Reserver interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.PurchaseSession, error)
}

// SessionManager settles existing holds.
type SessionManager interface {
	Confirm(ctx context.Context, sessionID string) (domain.PurchaseSession, error)
	Release(ctx context.Context, sessionID string) (app.ReleaseResult, error)
}

type sessionHandler struct {
	reservations Reserver
	sessions     SessionManager
}

type reserveRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type sessionResponse struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	UserID    string          `json:"user_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Status    string          `json:"status"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
	Released  *bool           `json:"released,omitempty"`
}

func toSessionResponse(s domain.PurchaseSession) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		ItemID:    s.ItemID,
		UserID:    s.UserID,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice,
		Status:    string(s.Status),
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func (h *sessionHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	session, err := h.reservations.Reserve(r.Context(), app.ReserveInput{
		ItemID:   req.ItemID,
		UserID:   userIDFromContext(r.Context()),
		Quantity: req.Quantity,
	})
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues(reserveOutcome(err)).Inc()
		writeServiceError(w, err)
		return
	}

	metrics.ReservationsTotal.WithLabelValues("reserved").Inc()
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *sessionHandler) confirm(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *sessionHandler) release(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessions.Release(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if result.Released {
		metrics.SessionsReleasedTotal.WithLabelValues("manual").Inc()
	}

	resp := toSessionResponse(result.Session)
	resp.Released = &result.Released
	writeJSON(w, http.StatusOK, resp)
}

func reserveOutcome(err error) string {
	var (
		notActive *domain.SaleNotActiveError
		quota     *domain.QuotaExceededError
		soldOut   *domain.SoldOutError
	)
	switch {
	case errors.As(err, &notActive):
		return string(notActive.Reason)
	case errors.As(err, &quota):
		return "quota_exceeded"
	case errors.As(err, &soldOut):
		return "sold_out"
	case errors.Is(err, domain.ErrItemUnavailable):
		return "item_unavailable"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrUserRequired):
		return "user_required"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "error"
	}
}
