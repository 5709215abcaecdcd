package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bao99257/flashsale-engine/internal/app"
	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/domain"
)

var validate = validator.New()

// ProgramAdmin is the slice of the program service the handlers need.
type ProgramAdmin interface {
	Create(ctx context.Context, in app.CreateProgramInput) (domain.Program, error)
	Update(ctx context.Context, in app.UpdateProgramInput) (domain.Program, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Program, error)
	List(ctx context.Context, filter app.ProgramFilter) ([]domain.Program, error)
	ListToday(ctx context.Context) ([]domain.Program, error)
	CurrentActive(ctx context.Context) (*domain.Program, error)
	NextUpcoming(ctx context.Context) (*domain.Program, error)
}

type programHandler struct {
	programs ProgramAdmin
	clock    clock.Clock
}

type programRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	IsActive    *bool     `json:"is_active"`
}

type programResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	IsActive         bool      `json:"is_active"`
	Lifecycle        string    `json:"lifecycle"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (h *programHandler) toResponse(p domain.Program) programResponse {
	now := h.clock.Now()
	return programResponse{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		IsActive:         p.IsActive,
		Lifecycle:        string(p.Lifecycle(now)),
		SecondsRemaining: int64(p.TimeRemaining(now).Seconds()),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (h *programHandler) toResponses(programs []domain.Program) []programResponse {
	out := make([]programResponse, 0, len(programs))
	for _, p := range programs {
		out = append(out, h.toResponse(p))
	}
	return out
}

func (h *programHandler) create(w http.ResponseWriter, r *http.Request) {
	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	program, err := h.programs.Create(r.Context(), app.CreateProgramInput{
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(program))
}

func (h *programHandler) update(w http.ResponseWriter, r *http.Request) {
	var req programRequest
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

	program, err := h.programs.Update(r.Context(), app.UpdateProgramInput{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsActive:    isActive,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(program))
}

func (h *programHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.programs.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *programHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.programs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *programHandler) get(w http.ResponseWriter, r *http.Request) {
	program, err := h.programs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(program))
}

func (h *programHandler) list(w http.ResponseWriter, r *http.Request) {
	var filter app.ProgramFilter
	if raw := r.URL.Query().Get("lifecycle"); raw != "" {
		lifecycle := domain.ProgramLifecycle(raw)
		switch lifecycle {
		case domain.LifecycleUpcoming, domain.LifecycleActive, domain.LifecycleEnded:
			filter.Lifecycle = &lifecycle
		default:
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "unknown lifecycle filter")
			return
		}
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		isActive := raw == "true"
		filter.IsActive = &isActive
	}

	programs, err := h.programs.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponses(programs))
}

func (h *programHandler) listToday(w http.ResponseWriter, r *http.Request) {
	programs, err := h.programs.ListToday(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponses(programs))
}

func (h *programHandler) current(w http.ResponseWriter, r *http.Request) {
	program, err := h.programs.CurrentActive(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if program == nil {
		writeError(w, http.StatusNotFound, codeProgramNotFound, "no program is live right now")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(*program))
}

func (h *programHandler) upcoming(w http.ResponseWriter, r *http.Request) {
	program, err := h.programs.NextUpcoming(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if program == nil {
		writeError(w, http.StatusNotFound, codeProgramNotFound, "no upcoming program is scheduled")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(*program))
}
