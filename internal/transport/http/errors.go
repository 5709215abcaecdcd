package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bao99257/flashsale-engine/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidWindow       = "invalid_window"
	codeInvalidQuantity     = "invalid_quantity"
	codeInvalidPrice        = "invalid_price"
	codeInvalidStock        = "invalid_stock"
	codeInvalidMaxPerUser   = "invalid_max_per_user"
	codeStockBelowSold      = "stock_below_sold"
	codeProgramNameRequired = "program_name_required"
	codeProductRequired     = "product_required"
	codeUserRequired        = "user_required"
	codeProgramNotFound     = "program_not_found"
	codeItemNotFound        = "item_not_found"
	codeSessionNotFound     = "session_not_found"
	codeItemAlreadyListed   = "item_already_listed"
	codeProgramHasSales     = "program_has_sales"
	codeItemUnavailable     = "item_unavailable"
	codeSaleNotStarted      = "sale_not_started"
	codeSaleEnded           = "sale_ended"
	codeQuotaExceeded       = "quota_exceeded"
	codeSoldOut             = "sold_out"
	codeSessionExpired      = "session_expired"
	codeInvalidTransition   = "invalid_session_transition"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorDetails(w, status, code, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:   msg,
		Code:    code,
		Details: details,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps the engine's error taxonomy to HTTP once, so every
// handler reports the same codes. Structured rejections carry enough detail
// for the storefront to render a specific message.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		notActive  *domain.SaleNotActiveError
		quota      *domain.QuotaExceededError
		soldOut    *domain.SoldOutError
		transition *domain.InvalidSessionTransitionError
	)

	switch {
	case errors.As(err, &notActive):
		code := codeSaleEnded
		if notActive.Reason == domain.SaleNotStarted {
			code = codeSaleNotStarted
		}
		writeErrorDetails(w, http.StatusConflict, code, err.Error(), map[string]any{
			"reason": string(notActive.Reason),
		})
	case errors.As(err, &quota):
		writeErrorDetails(w, http.StatusConflict, codeQuotaExceeded, err.Error(), map[string]any{
			"limit":     quota.Limit,
			"reserved":  quota.Reserved,
			"remaining": quota.Remaining,
		})
	case errors.As(err, &soldOut):
		writeErrorDetails(w, http.StatusConflict, codeSoldOut, err.Error(), map[string]any{
			"remaining": soldOut.Remaining,
		})
	case errors.As(err, &transition):
		writeErrorDetails(w, http.StatusConflict, codeInvalidTransition, err.Error(), map[string]any{
			"status": string(transition.From),
		})
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrUserRequired):
		writeError(w, http.StatusUnauthorized, codeUserRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, codeInvalidWindow, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrInvalidStock):
		writeError(w, http.StatusBadRequest, codeInvalidStock, err.Error())
	case errors.Is(err, domain.ErrInvalidMaxPerUser):
		writeError(w, http.StatusBadRequest, codeInvalidMaxPerUser, err.Error())
	case errors.Is(err, domain.ErrStockBelowSold):
		writeError(w, http.StatusConflict, codeStockBelowSold, err.Error())
	case errors.Is(err, domain.ErrProgramNameRequired):
		writeError(w, http.StatusBadRequest, codeProgramNameRequired, err.Error())
	case errors.Is(err, domain.ErrProductRequired):
		writeError(w, http.StatusBadRequest, codeProductRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrProgramNotFound):
		writeError(w, http.StatusNotFound, codeProgramNotFound, err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, codeSessionNotFound, err.Error())
	case errors.Is(err, domain.ErrItemAlreadyListed):
		writeError(w, http.StatusConflict, codeItemAlreadyListed, err.Error())
	case errors.Is(err, domain.ErrProgramHasSales):
		writeError(w, http.StatusConflict, codeProgramHasSales, err.Error())
	case errors.Is(err, domain.ErrItemUnavailable):
		writeError(w, http.StatusConflict, codeItemUnavailable, err.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusConflict, codeSessionExpired, err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeUpstreamUnavailable, "temporarily unavailable, try again")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
