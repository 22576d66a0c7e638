package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
	"github.com/bongoexpress/cargo-api/pkg/logger"
)

type ctxKey string

const userKey ctxKey = "current_user"

// CurrentUser returns the authenticated user stored by Protect.
func CurrentUser(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func success(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Status: "success", Data: data})
}

func successMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "success", Message: message})
}

func fail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "fail", Message: message})
}

func serverError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeError maps service errors onto the response envelope. Unexpected
// errors are logged with detail and surfaced without it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		fail(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case domain.AuthForbidden:
			fail(w, http.StatusForbidden, authErr.Message)
		case domain.AuthInvalidResetToken:
			fail(w, http.StatusBadRequest, authErr.Message)
		default:
			fail(w, http.StatusUnauthorized, authErr.Message)
		}
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		fail(w, http.StatusNotFound, "Not found")
		return
	}
	if errors.Is(err, domain.ErrDispatchFailed) {
		serverError(w, "There was an error sending the email. Try again later!")
		return
	}

	logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
	serverError(w, "Something went wrong")
}

func notFound(w http.ResponseWriter, message string) {
	fail(w, http.StatusNotFound, message)
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func parsePagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

// queryFilter returns a query parameter, treating the UI's "All" sentinel
// as no filter.
func queryFilter(r *http.Request, name string) string {
	v := r.URL.Query().Get(name)
	if v == "All" {
		return ""
	}
	return v
}

// Middleware carries the auth service for request guards.
type Middleware struct {
	auth service.AuthService
}

func NewMiddleware(auth service.AuthService) *Middleware {
	return &Middleware{auth: auth}
}

// Protect rejects requests without a valid bearer token and stores the
// resolved user on the context.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, r, domain.ErrNotLoggedIn)
			return
		}

		user, err := m.auth.VerifyToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group to the listed roles.
func (m *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil || !allowed[user.Role] {
				writeError(w, r, domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
