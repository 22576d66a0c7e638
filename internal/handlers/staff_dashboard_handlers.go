package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

// StaffDashboardHandler serves the staff workspace. Admins can use it too,
// unscoped.
type StaffDashboardHandler struct {
	shipments service.ShipmentService
	stats     service.StatsService
	messages  service.MessageService
	payments  service.PaymentService
	mw        *Middleware
}

func NewStaffDashboardHandler(
	shipments service.ShipmentService,
	stats service.StatsService,
	messages service.MessageService,
	payments service.PaymentService,
	mw *Middleware,
) *StaffDashboardHandler {
	return &StaffDashboardHandler{
		shipments: shipments,
		stats:     stats,
		messages:  messages,
		payments:  payments,
		mw:        mw,
	}
}

func (h *StaffDashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.mw.Protect)
	r.Use(h.mw.RequireRole(domain.RoleStaff, domain.RoleAdmin))

	r.Get("/stats", h.overview)
	r.Get("/shipments", h.listShipments)
	r.Post("/shipments", h.createShipment)
	r.Get("/shipments/{id}", h.getShipment)
	r.Patch("/shipments/{id}", h.updateStatus)
	r.Patch("/shipments/{id}/cost", h.updateCost)
	r.Get("/messages", h.listMessages)
	r.Post("/messages/{id}/reply", h.reply)
	r.Get("/payments", h.listPayments)

	return r
}

func (h *StaffDashboardHandler) overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.StaffStats(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, stats)
}

func (h *StaffDashboardHandler) listShipments(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	filter := domain.ShipmentFilter{
		Search:  r.URL.Query().Get("search"),
		StaffID: CurrentUser(r.Context()).ID,
	}
	if s := queryFilter(r, "status"); s != "" {
		if status, ok := domain.ParseShipmentStatus(s); ok {
			filter.Status = status
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

func (h *StaffDashboardHandler) createShipment(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateShipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.shipments.Create(r.Context(), CurrentUser(r.Context()), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{
		"shipment": result.Shipment,
		"payment":  result.Payment,
		"message":  "Shipment and payment record created successfully",
	})
}

func (h *StaffDashboardHandler) getShipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "Shipment not found or not assigned to you.")
		return
	}

	shipment, err := h.shipments.GetAssigned(r.Context(), id, CurrentUser(r.Context()).ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "Shipment not found or not assigned to you.")
			return
		}
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"shipment": shipment})
}

func (h *StaffDashboardHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "Shipment not found or not assigned to you.")
		return
	}

	var req domain.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shipment, err := h.shipments.UpdateStatus(r.Context(), CurrentUser(r.Context()), id, &req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "Shipment not found or not assigned to you.")
			return
		}
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"shipment": shipment})
}

func (h *StaffDashboardHandler) updateCost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "Shipment not found")
		return
	}

	var req struct {
		Cost float64 `json:"cost"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	shipment, err := h.shipments.UpdateCost(r.Context(), id, req.Cost)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "Shipment not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Data:    map[string]any{"shipment": shipment},
		Message: "Shipment cost updated successfully",
	})
}

func (h *StaffDashboardHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.ListForStaff(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *StaffDashboardHandler) reply(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "Message not found")
		return
	}

	var req domain.ReplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.messages.Reply(r.Context(), CurrentUser(r.Context()), id, &req); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "Message not found")
			return
		}
		if errors.Is(err, domain.ErrDispatchFailed) {
			serverError(w, "Failed to send reply.")
			return
		}
		writeError(w, r, err)
		return
	}
	successMessage(w, http.StatusOK, "Reply sent successfully.")
}

func (h *StaffDashboardHandler) listPayments(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	filter := domain.PaymentFilter{
		Search:  r.URL.Query().Get("search"),
		StaffID: CurrentUser(r.Context()).ID,
	}
	if s := queryFilter(r, "status"); s != "" && domain.IsValidPaymentStatus(s) {
		filter.Status = domain.PaymentStatus(s)
	}

	payments, pagination, err := h.payments.List(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{
		"payments":   payments,
		"pagination": pagination,
	})
}
