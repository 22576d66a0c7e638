package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

type DashboardHandler struct {
	stats service.StatsService
	mw    *Middleware
}

func NewDashboardHandler(stats service.StatsService, mw *Middleware) *DashboardHandler {
	return &DashboardHandler{stats: stats, mw: mw}
}

func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.mw.Protect)
	r.Use(h.mw.RequireRole(domain.RoleAdmin))
	r.Get("/stats", h.overview)
	return r
}

func (h *DashboardHandler) overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.DashboardStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, stats)
}
