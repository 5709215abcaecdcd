package http

import (
	"context"
	"net/http"

	"github.com/bao99257/flashsale-engine/internal/app"
)

// DashboardProvider serves the composed storefront snapshot.
type DashboardProvider interface {
	Dashboard(ctx context.Context) (*app.Dashboard, error)
}

type dashboardHandler struct {
	dashboards DashboardProvider
}

func (h *dashboardHandler) get(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.dashboards.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
