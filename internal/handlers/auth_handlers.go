package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

type AuthHandler struct {
	auth service.AuthService
	mw   *Middleware
}

func NewAuthHandler(auth service.AuthService, mw *Middleware) *AuthHandler {
	return &AuthHandler{auth: auth, mw: mw}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/2fa/login", h.loginTwoFactor)
	r.Post("/forgot-password", h.forgotPassword)
	r.Patch("/reset-password/{token}", h.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.Protect)
		r.Patch("/update-me", h.updateMe)
		r.Patch("/update-password", h.updatePassword)
		r.Post("/2fa/setup", h.setupTwoFactor)
		r.Post("/2fa/verify", h.verifyTwoFactor)
		r.Post("/2fa/disable", h.disableTwoFactor)
	})

	return r
}

// tokenEnvelope is the login-shaped response with the JWT at the top level.
type tokenEnvelope struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Data   any    `json:"data,omitempty"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Public signups are always customers.
	req.Role = domain.RoleCustomer

	if _, _, err := h.auth.Register(r.Context(), &req); err != nil {
		writeError(w, r, err)
		return
	}
	successMessage(w, http.StatusCreated, "User registered successfully.")
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.TwoFactorRequired {
		writeJSON(w, http.StatusOK, envelope{Status: "2fa_required", Message: "Please enter your 2FA token."})
		return
	}

	writeJSON(w, http.StatusOK, tokenEnvelope{
		Status: "success",
		Token:  result.Token,
		Data:   map[string]any{"user": result.User},
	})
}

func (h *AuthHandler) loginTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req domain.TwoFactorLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.LoginTwoFactor(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenEnvelope{
		Status: "success",
		Token:  result.Token,
		Data:   map[string]any{"user": result.User},
	})
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "There is no user with that email address.")
			return
		}
		writeError(w, r, err)
		return
	}
	successMessage(w, http.StatusOK, "Token sent to email!")
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	_, token, err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenEnvelope{Status: "success", Token: token})
}

func (h *AuthHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), CurrentUser(r.Context()).ID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) updatePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.auth.UpdatePassword(r.Context(), CurrentUser(r.Context()).ID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenEnvelope{
		Status: "success",
		Token:  token,
		Data:   map[string]any{"user": user},
	})
}

func (h *AuthHandler) setupTwoFactor(w http.ResponseWriter, r *http.Request) {
	setup, err := h.auth.SetupTwoFactor(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, setup)
}

func (h *AuthHandler) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	recoveryCodes, err := h.auth.VerifyTwoFactor(r.Context(), CurrentUser(r.Context()).ID, req.Token)
	if err != nil {
		// Enrollment mistakes are client errors, not failed logins.
		if errors.Is(err, domain.ErrInvalidTwoFactor) {
			fail(w, http.StatusBadRequest, "Invalid 2FA token.")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Data:    map[string]any{"recoveryCodes": recoveryCodes},
		Message: "2FA enabled successfully.",
	})
}

func (h *AuthHandler) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DisableTwoFactor(r.Context(), CurrentUser(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	successMessage(w, http.StatusOK, "2FA disabled.")
}
