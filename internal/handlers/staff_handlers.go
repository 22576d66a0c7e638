package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

// StaffHandler is the admin-side staff account management surface.
type StaffHandler struct {
	users service.UserService
	mw    *Middleware
}

func NewStaffHandler(users service.UserService, mw *Middleware) *StaffHandler {
	return &StaffHandler{users: users, mw: mw}
}

func (h *StaffHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.mw.Protect)
	r.Use(h.mw.RequireRole(domain.RoleAdmin))

	r.Get("/summary", h.summary)
	r.Get("/list", h.list)
	r.Get("/", h.index)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)

	return r
}

func (h *StaffHandler) index(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	staff, pagination, err := h.users.ListByRole(r.Context(), domain.RoleStaff, r.URL.Query().Get("search"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{
		"staff":      staff,
		"pagination": pagination,
	})
}

func (h *StaffHandler) create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.CreateStaff(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"staff": user})
}

func (h *StaffHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "No staff member found with that ID")
		return
	}

	var req domain.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "No staff member found with that ID")
			return
		}
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"staff": user})
}

func (h *StaffHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		notFound(w, "No staff member found with that ID")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "No staff member found with that ID")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *StaffHandler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.users.StaffSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, summary)
}

func (h *StaffHandler) list(w http.ResponseWriter, r *http.Request) {
	staff, err := h.users.StaffList(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"staff": staff})
}
