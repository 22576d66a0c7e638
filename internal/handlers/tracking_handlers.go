package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

type TrackingHandler struct {
	shipments service.ShipmentService
}

func NewTrackingHandler(shipments service.ShipmentService) *TrackingHandler {
	return &TrackingHandler{shipments: shipments}
}

func (h *TrackingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{trackingId}", h.track)
	return r
}

func (h *TrackingHandler) track(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipments.Track(r.Context(), chi.URLParam(r, "trackingId"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "Shipment not found with that tracking ID.")
			return
		}
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"shipment": shipment})
}
