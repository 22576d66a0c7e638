package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/handlers"
	"github.com/bongoexpress/cargo-api/internal/service"
)

// ---------- Mocks ----------

// mockAuthService resolves fixed credentials and a fixed bearer token so
// handler behavior can be tested without real hashing or JWTs.
type mockAuthService struct {
	user         *domain.User
	twoFactor    bool
	validToken   string
	issuedToken  string
	resetToken   string
	forgotErr    error
	verify2faErr error
}

func (m *mockAuthService) Register(_ context.Context, req *domain.CreateUserRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	u := &domain.User{ID: 99, Name: req.Name, Email: req.Email, Role: req.Role}
	return u, "registered-token", nil
}

func (m *mockAuthService) Login(_ context.Context, req *domain.LoginRequest) (*domain.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if m.user == nil || req.Email != m.user.Email || req.Password != "password123" {
		return nil, domain.ErrInvalidCredentials
	}
	if m.twoFactor {
		return &domain.LoginResult{TwoFactorRequired: true}, nil
	}
	return &domain.LoginResult{Token: m.issuedToken, User: m.user}, nil
}

func (m *mockAuthService) LoginTwoFactor(_ context.Context, req *domain.TwoFactorLoginRequest) (*domain.LoginResult, error) {
	if req.Token != "123456" {
		return nil, domain.ErrInvalidTwoFactor
	}
	return &domain.LoginResult{Token: m.issuedToken, User: m.user}, nil
}

func (m *mockAuthService) VerifyToken(_ context.Context, tokenString string) (*domain.User, error) {
	if tokenString != m.validToken || m.user == nil {
		return nil, domain.ErrInvalidToken
	}
	return m.user, nil
}

func (m *mockAuthService) ForgotPassword(_ context.Context, email string) error {
	if m.forgotErr != nil {
		return m.forgotErr
	}
	if m.user == nil || email != m.user.Email {
		return domain.ErrNotFound
	}
	return nil
}

func (m *mockAuthService) ResetPassword(_ context.Context, token, password string) (*domain.User, string, error) {
	if token != m.resetToken {
		return nil, "", domain.ErrInvalidResetToken
	}
	return m.user, "fresh-token", nil
}

func (m *mockAuthService) UpdatePassword(_ context.Context, userID int64, req *domain.UpdatePasswordRequest) (*domain.User, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	if req.CurrentPassword != "password123" {
		return nil, "", domain.NewAuthError(domain.AuthInvalidCredentials, "Your current password is wrong.")
	}
	return m.user, "fresh-token", nil
}

func (m *mockAuthService) UpdateProfile(_ context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.user, nil
}

func (m *mockAuthService) SetupTwoFactor(context.Context, int64) (*service.TwoFactorSetup, error) {
	return &service.TwoFactorSetup{Secret: "SECRET", QRCode: "data:image/png;base64,AAAA"}, nil
}

func (m *mockAuthService) VerifyTwoFactor(_ context.Context, _ int64, code string) ([]string, error) {
	if m.verify2faErr != nil {
		return nil, m.verify2faErr
	}
	if code != "123456" {
		return nil, domain.ErrInvalidTwoFactor
	}
	return []string{"aaaaaaaaaa", "bbbbbbbbbb"}, nil
}

func (m *mockAuthService) DisableTwoFactor(context.Context, int64) error { return nil }

// mockShipmentService serves Track and GetAssigned from a fixed map.
type mockShipmentService struct {
	shipments map[string]*domain.Shipment
}

func (m *mockShipmentService) BookGuest(context.Context, *domain.GuestBookingRequest) (*domain.Shipment, error) {
	return nil, nil
}

func (m *mockShipmentService) Create(context.Context, *domain.User, *domain.CreateShipmentRequest) (*service.CreateShipmentResult, error) {
	return nil, nil
}

func (m *mockShipmentService) List(context.Context, domain.ShipmentFilter, int, int) ([]domain.Shipment, domain.Pagination, error) {
	return nil, domain.Pagination{}, nil
}

func (m *mockShipmentService) Get(context.Context, int64) (*domain.Shipment, error) {
	return nil, domain.ErrNotFound
}

func (m *mockShipmentService) GetAssigned(context.Context, int64, int64) (*domain.Shipment, error) {
	return nil, domain.ErrNotFound
}

func (m *mockShipmentService) Track(_ context.Context, trackingID string) (*domain.Shipment, error) {
	s, ok := m.shipments[trackingID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *mockShipmentService) Update(context.Context, int64, *domain.UpdateShipmentRequest) (*domain.Shipment, error) {
	return nil, domain.ErrNotFound
}

func (m *mockShipmentService) UpdateStatus(context.Context, *domain.User, int64, *domain.UpdateStatusRequest) (*domain.Shipment, error) {
	return nil, domain.ErrNotFound
}

func (m *mockShipmentService) UpdateCost(context.Context, int64, float64) (*domain.Shipment, error) {
	return nil, domain.ErrNotFound
}

func (m *mockShipmentService) Delete(context.Context, int64) error { return domain.ErrNotFound }

func (m *mockShipmentService) Summary(context.Context) (*domain.ShipmentSummary, error) {
	return &domain.ShipmentSummary{}, nil
}

// ---------- Test Setup ----------

func setupServer(auth *mockAuthService, shipments *mockShipmentService) *httptest.Server {
	mw := handlers.NewMiddleware(auth)

	r := chi.NewRouter()
	r.Mount("/api/auth", handlers.NewAuthHandler(auth, mw).Routes())
	if shipments != nil {
		r.Mount("/api/track", handlers.NewTrackingHandler(shipments).Routes())
		r.Mount("/api/shipments", handlers.NewShipmentHandler(shipments, mw).Routes())
	}
	return httptest.NewServer(r)
}

func customerAuth() *mockAuthService {
	return &mockAuthService{
		user: &domain.User{
			ID:    1,
			Name:  "Amina Odhiambo",
			Email: "amina@example.com",
			Role:  domain.RoleCustomer,
		},
		validToken:  "valid-token",
		issuedToken: "issued-token",
		resetToken:  "reset-token",
	}
}

func postJSON(t *testing.T, url string, data any, expectedStatus int) map[string]any {
	t.Helper()

	body, _ := json.Marshal(data)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		t.Fatalf("POST %s: expected status %d, got %d", url, expectedStatus, resp.StatusCode)
	}

	var result map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return result
}

func getWithToken(t *testing.T, url, token string, expectedStatus int) map[string]any {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		t.Fatalf("GET %s: expected status %d, got %d", url, expectedStatus, resp.StatusCode)
	}

	var result map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return result
}

// ---------- Tests ----------

func TestRegister_MessageOnly(t *testing.T) {
	server := setupServer(customerAuth(), nil)
	defer server.Close()

	result := postJSON(t, server.URL+"/api/auth/register", map[string]any{
		"name":     "Amina Odhiambo",
		"email":    "amina@example.com",
		"password": "password123",
	}, http.StatusCreated)

	if result["status"] != "success" {
		t.Fatalf("Expected success status, got %v", result["status"])
	}
	if result["message"] != "User registered successfully." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
	if _, hasToken := result["token"]; hasToken {
		t.Fatal("Registration must not return a token")
	}
}

func TestLogin_TokenEnvelope(t *testing.T) {
	server := setupServer(customerAuth(), nil)
	defer server.Close()

	result := postJSON(t, server.URL+"/api/auth/login", map[string]any{
		"email":    "amina@example.com",
		"password": "password123",
	}, http.StatusOK)

	if result["status"] != "success" {
		t.Fatalf("Expected success status, got %v", result["status"])
	}
	if result["token"] != "issued-token" {
		t.Fatalf("Expected top-level token, got %v", result["token"])
	}
	data, _ := result["data"].(map[string]any)
	user, _ := data["user"].(map[string]any)
	if user["email"] != "amina@example.com" {
		t.Fatalf("Expected user in data, got %v", result["data"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	server := setupServer(customerAuth(), nil)
	defer server.Close()

	result := postJSON(t, server.URL+"/api/auth/login", map[string]any{
		"email":    "amina@example.com",
		"password": "wrong",
	}, http.StatusUnauthorized)

	if result["status"] != "fail" {
		t.Fatalf("Expected fail status, got %v", result["status"])
	}
	if result["message"] != "Incorrect email or password." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
}

func TestLogin_TwoFactorChallenge(t *testing.T) {
	auth := customerAuth()
	auth.twoFactor = true
	server := setupServer(auth, nil)
	defer server.Close()

	result := postJSON(t, server.URL+"/api/auth/login", map[string]any{
		"email":    "amina@example.com",
		"password": "password123",
	}, http.StatusOK)

	if result["status"] != "2fa_required" {
		t.Fatalf("Expected 2fa_required status, got %v", result["status"])
	}
	if result["message"] != "Please enter your 2FA token." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
	if _, hasToken := result["token"]; hasToken {
		t.Fatal("A 2FA challenge must not carry a token")
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	server := setupServer(customerAuth(), nil)
	defer server.Close()

	result := postJSON(t, server.URL+"/api/auth/forgot-password", map[string]any{
		"email": "nobody@example.com",
	}, http.StatusNotFound)

	if result["message"] != "There is no user with that email address." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
}

func TestForgotPassword_DispatchFailure(t *testing.T) {
	auth := customerAuth()
	auth.forgotErr = domain.ErrDispatchFailed
	server := setupServer(auth, nil)
	defer server.Close()

	result := postJSON(t, server.URL+"/api/auth/forgot-password", map[string]any{
		"email": "amina@example.com",
	}, http.StatusInternalServerError)

	if result["status"] != "error" {
		t.Fatalf("Expected error status, got %v", result["status"])
	}
	if result["message"] != "There was an error sending the email. Try again later!" {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
}

func TestResetPassword_ReturnsToken(t *testing.T) {
	server := setupServer(customerAuth(), nil)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPatch,
		server.URL+"/api/auth/reset-password/reset-token",
		bytes.NewReader([]byte(`{"password":"newpassword1"}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var result map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if result["token"] != "fresh-token" {
		t.Fatalf("Expected fresh token, got %v", result["token"])
	}
}

func TestProtect_RequiresBearer(t *testing.T) {
	auth := customerAuth()
	shipments := &mockShipmentService{shipments: map[string]*domain.Shipment{}}
	server := setupServer(auth, shipments)
	defer server.Close()

	result := getWithToken(t, server.URL+"/api/shipments/summary", "", http.StatusUnauthorized)
	if result["message"] != "You are not logged in. Please log in to get access." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}

	getWithToken(t, server.URL+"/api/shipments/summary", "bogus-token", http.StatusUnauthorized)
}

func TestRequireRole_ForbidsCustomer(t *testing.T) {
	auth := customerAuth() // role customer
	shipments := &mockShipmentService{shipments: map[string]*domain.Shipment{}}
	server := setupServer(auth, shipments)
	defer server.Close()

	result := getWithToken(t, server.URL+"/api/shipments/summary", "valid-token", http.StatusForbidden)
	if result["message"] != "You do not have permission to perform this action." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
}

func TestRequireRole_AllowsAdmin(t *testing.T) {
	auth := customerAuth()
	auth.user.Role = domain.RoleAdmin
	shipments := &mockShipmentService{shipments: map[string]*domain.Shipment{}}
	server := setupServer(auth, shipments)
	defer server.Close()

	getWithToken(t, server.URL+"/api/shipments/summary", "valid-token", http.StatusOK)
}

func TestTrack_Found(t *testing.T) {
	shipments := &mockShipmentService{shipments: map[string]*domain.Shipment{
		"SHP1234567890": {
			ID:          1,
			ShipmentID:  "SHP1234567890",
			Origin:      "Nairobi",
			Destination: "Mombasa",
			Status:      domain.ShipmentInTransit,
		},
	}}
	server := setupServer(customerAuth(), shipments)
	defer server.Close()

	result := getWithToken(t, server.URL+"/api/track/SHP1234567890", "", http.StatusOK)

	data, _ := result["data"].(map[string]any)
	shipment, _ := data["shipment"].(map[string]any)
	if shipment["shipmentId"] != "SHP1234567890" {
		t.Fatalf("Unexpected shipment payload: %v", result["data"])
	}
	if shipment["status"] != "In Transit" {
		t.Fatalf("Expected In Transit, got %v", shipment["status"])
	}
}

func TestTrack_NotFound(t *testing.T) {
	shipments := &mockShipmentService{shipments: map[string]*domain.Shipment{}}
	server := setupServer(customerAuth(), shipments)
	defer server.Close()

	result := getWithToken(t, server.URL+"/api/track/SHPMISSING00", "", http.StatusNotFound)
	if result["message"] != "Shipment not found with that tracking ID." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
}

func TestVerifyTwoFactor_BadCodeIs400(t *testing.T) {
	server := setupServer(customerAuth(), nil)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost,
		server.URL+"/api/auth/2fa/verify",
		bytes.NewReader([]byte(`{"token":"000000"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer valid-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a bad enrollment code, got %d", resp.StatusCode)
	}

	var result map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if result["message"] != "Invalid 2FA token." {
		t.Fatalf("Unexpected message: %v", result["message"])
	}
}
