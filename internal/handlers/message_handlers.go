package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

type MessageHandler struct {
	messages service.MessageService
	mw       *Middleware
}

func NewMessageHandler(messages service.MessageService, mw *Middleware) *MessageHandler {
	return &MessageHandler{messages: messages, mw: mw}
}

func (h *MessageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Public contact form.
	r.Post("/", h.submit)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.Protect)
		r.Use(h.mw.RequireRole(domain.RoleAdmin))
		r.Get("/", h.list)
		r.Delete("/{id}", h.delete)
	})

	return r
}

func (h *MessageHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messages.Submit(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"message": msg})
}

func (h *MessageHandler) list(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *MessageHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "Message not found")
		return
	}

	if err := h.messages.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "Message not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
