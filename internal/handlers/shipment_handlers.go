package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

type ShipmentHandler struct {
	shipments service.ShipmentService
	mw        *Middleware
}

func NewShipmentHandler(shipments service.ShipmentService, mw *Middleware) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments, mw: mw}
}

func (h *ShipmentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/guest-booking", h.guestBooking)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.Protect)
		r.Use(h.mw.RequireRole(domain.RoleAdmin))
		r.Get("/summary", h.summary)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})

	return r
}

func (h *ShipmentHandler) guestBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.GuestBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shipment, err := h.shipments.BookGuest(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"shipment": shipment})
}

func (h *ShipmentHandler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	filter := domain.ShipmentFilter{
		Search: r.URL.Query().Get("search"),
		Branch: queryFilter(r, "branch"),
	}
	if s := queryFilter(r, "status"); s != "" {
		if status, ok := domain.ParseShipmentStatus(s); ok {
			filter.Status = status
		}
	}
	if staff := queryFilter(r, "staff"); staff != "" {
		if id, err := strconv.ParseInt(staff, 10, 64); err == nil {
			filter.CreatedBy = id
		}
	}
	if d := r.URL.Query().Get("date"); d != "" {
		if date, err := time.Parse("2006-01-02", d); err == nil {
			filter.Date = &date
		}
	}

	shipments, pagination, err := h.shipments.List(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{
		"shipments":  shipments,
		"pagination": pagination,
	})
}

func (h *ShipmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateShipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.shipments.Create(r.Context(), CurrentUser(r.Context()), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"shipment": result.Shipment})
}

func (h *ShipmentHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "No shipment found with that ID")
		return
	}

	var req domain.UpdateShipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shipment, err := h.shipments.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "No shipment found with that ID")
			return
		}
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"shipment": shipment})
}

func (h *ShipmentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "No shipment found with that ID")
		return
	}

	if err := h.shipments.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "No shipment found with that ID")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *ShipmentHandler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.shipments.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, summary)
}
