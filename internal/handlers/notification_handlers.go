package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

type NotificationHandler struct {
	notifications service.NotificationService
	mw            *Middleware
}

func NewNotificationHandler(notifications service.NotificationService, mw *Middleware) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, mw: mw}
}

func (h *NotificationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.mw.Protect)

	r.Get("/", h.list)
	r.Patch("/{id}/read", h.markRead)
	r.Patch("/read-all", h.markAllRead)

	return r
}

func (h *NotificationHandler) list(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.ListForUser(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *NotificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "Notification not found")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, CurrentUser(r.Context()).ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "Notification not found")
			return
		}
		writeError(w, r, err)
		return
	}
	successMessage(w, http.StatusOK, "Notification marked as read.")
}

func (h *NotificationHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllRead(r.Context(), CurrentUser(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	successMessage(w, http.StatusOK, "All notifications marked as read.")
}
