package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/pquerna/otp/totp"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
	"github.com/bongoexpress/cargo-api/pkg/config"
)

// ---------- Mocks ----------

type mockUserRepo struct {
	nextID        int64
	users         map[int64]*domain.User
	secrets       map[int64]string
	recoveryCodes map[int64][]string
	resetHashes   map[int64]string
	resetExpires  map[int64]time.Time
	lastLoginSet  map[int64]bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		nextID:        1,
		users:         make(map[int64]*domain.User),
		secrets:       make(map[int64]string),
		recoveryCodes: make(map[int64][]string),
		resetHashes:   make(map[int64]string),
		resetExpires:  make(map[int64]time.Time),
		lastLoginSet:  make(map[int64]bool),
	}
}

func (m *mockUserRepo) add(name, email, password, role string) *domain.User {
	hash, _ := argon2id.CreateHash(password, argon2id.DefaultParams)
	u := &domain.User{
		ID:           m.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StatusActive,
		Branch:       domain.DefaultBranch,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	m.nextID++
	return u
}

func (m *mockUserRepo) Create(_ context.Context, req *domain.CreateUserRequest, passwordHash string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == req.Email {
			return nil, errors.New("duplicate email")
		}
	}
	u := &domain.User{
		ID:           m.nextID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		Status:       req.Status,
		Phone:        req.Phone,
		Branch:       req.Branch,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) FindCustomerByPhone(_ context.Context, phone string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Role == domain.RoleCustomer && u.Phone == phone {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindCustomerByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Role == domain.RoleCustomer && u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByResetTokenHash(_ context.Context, tokenHash string) (*domain.User, error) {
	for id, h := range m.resetHashes {
		if h == tokenHash && time.Now().Before(m.resetExpires[id]) {
			return m.users[id], nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) TwoFactorSecret(_ context.Context, id int64) (string, error) {
	return m.secrets[id], nil
}

func (m *mockUserRepo) List(context.Context, string, string, int, int) ([]domain.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) ListAdminIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for _, u := range m.users {
		if u.Role == domain.RoleAdmin {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (m *mockUserRepo) StaffList(context.Context) ([]domain.StaffListItem, error) { return nil, nil }

func (m *mockUserRepo) UpdateProfile(_ context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	u := m.users[id]
	if u == nil {
		return nil, nil
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	return u, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	u := m.users[id]
	if u == nil {
		return nil, nil
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Status != nil {
		u.Status = *req.Status
	}
	return u, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.users[id].PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, id int64) error {
	m.lastLoginSet[id] = true
	return nil
}

func (m *mockUserRepo) SetTwoFactorSecret(_ context.Context, id int64, secret string) error {
	m.secrets[id] = secret
	return nil
}

func (m *mockUserRepo) EnableTwoFactor(_ context.Context, id int64) error {
	m.users[id].TwoFactorEnabled = true
	return nil
}

func (m *mockUserRepo) DisableTwoFactor(_ context.Context, id int64) error {
	m.users[id].TwoFactorEnabled = false
	delete(m.secrets, id)
	delete(m.recoveryCodes, id)
	return nil
}

func (m *mockUserRepo) TwoFactorRecoveryCodes(_ context.Context, id int64) ([]string, error) {
	return m.recoveryCodes[id], nil
}

func (m *mockUserRepo) SetTwoFactorRecoveryCodes(_ context.Context, id int64, codeHashes []string) error {
	m.recoveryCodes[id] = codeHashes
	return nil
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id int64, tokenHash string, expires time.Time) error {
	m.resetHashes[id] = tokenHash
	m.resetExpires[id] = expires
	return nil
}

func (m *mockUserRepo) ClearResetToken(_ context.Context, id int64) error {
	delete(m.resetHashes, id)
	delete(m.resetExpires, id)
	return nil
}

func (m *mockUserRepo) ResetPassword(_ context.Context, id int64, passwordHash string) error {
	m.users[id].PasswordHash = passwordHash
	delete(m.resetHashes, id)
	delete(m.resetExpires, id)
	return nil
}

func (m *mockUserRepo) CountCustomers(context.Context) (int, error) { return 0, nil }
func (m *mockUserRepo) CountCustomersCreatedBefore(context.Context, time.Time) (int, error) {
	return 0, nil
}
func (m *mockUserRepo) RecentCustomers(context.Context, int) ([]domain.User, error) { return nil, nil }
func (m *mockUserRepo) StaffSummary(context.Context) (*domain.StaffSummary, error)  { return nil, nil }

type mockMailer struct {
	resetEmails []string
	resetURLs   []string
	replies     []string
	sendErr     error
}

func (m *mockMailer) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.resetEmails = append(m.resetEmails, toEmail)
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func (m *mockMailer) SendMessageReply(toEmail, toName, subject, replyBody string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.replies = append(m.replies, toEmail)
	return nil
}

// ---------- Test Setup ----------

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:        "test-secret",
		TokenTTL:         time.Hour,
		PasswordResetTTL: 10 * time.Minute,
		TwoFactorIssuer:  "BongoExpress Cargo",
	}
}

func setupAuth() (service.AuthService, *mockUserRepo, *mockMailer) {
	repo := newMockUserRepo()
	mail := &mockMailer{}
	svc := service.NewAuthService(repo, mail, testAuthConfig(), "http://localhost:3000")
	return svc, repo, mail
}

// ---------- Tests ----------

func TestRegister_IssuesToken(t *testing.T) {
	svc, _, _ := setupAuth()

	user, token, err := svc.Register(context.Background(), &domain.CreateUserRequest{
		Name:     "Amina Odhiambo",
		Email:    "Amina@Example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" {
		t.Fatal("Expected a token")
	}
	if user.Email != "amina@example.com" {
		t.Fatalf("Expected normalized email, got %s", user.Email)
	}
	if user.Role != domain.RoleCustomer {
		t.Fatalf("Expected customer role, got %s", user.Role)
	}

	verified, err := svc.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if verified.ID != user.ID {
		t.Fatalf("Token resolved to user %d, want %d", verified.ID, user.ID)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, _, _ := setupAuth()

	_, _, err := svc.Register(context.Background(), &domain.CreateUserRequest{
		Name:     "Amina",
		Email:    "amina@example.com",
		Password: "short",
	})

	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleCustomer)

	result, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "amina@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.TwoFactorRequired {
		t.Fatal("Did not expect a 2FA challenge")
	}
	if result.Token == "" || result.User.ID != u.ID {
		t.Fatal("Expected token and user")
	}
	if !repo.lastLoginSet[u.ID] {
		t.Fatal("Expected last login to be recorded")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo, _ := setupAuth()
	repo.add("Amina", "amina@example.com", "password123", domain.RoleCustomer)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "amina@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Expected invalid credentials, got %v", err)
	}
}

func TestLogin_UnknownEmail_SameError(t *testing.T) {
	svc, _, _ := setupAuth()

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Expected invalid credentials, got %v", err)
	}
}

func TestLogin_TwoFactorChallenge(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleAdmin)
	u.TwoFactorEnabled = true

	result, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "amina@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.TwoFactorRequired {
		t.Fatal("Expected a 2FA challenge")
	}
	if result.Token != "" {
		t.Fatal("A challenge must not carry a token")
	}
}

func TestTwoFactor_EnrollAndLogin(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleAdmin)

	setup, err := svc.SetupTwoFactor(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("SetupTwoFactor failed: %v", err)
	}
	if setup.Secret == "" || !strings.HasPrefix(setup.QRCode, "data:image/png;base64,") {
		t.Fatal("Expected secret and QR data URL")
	}
	if u.TwoFactorEnabled {
		t.Fatal("2FA must stay off until the code is verified")
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	recoveryCodes, err := svc.VerifyTwoFactor(context.Background(), u.ID, code)
	if err != nil {
		t.Fatalf("VerifyTwoFactor failed: %v", err)
	}
	if !u.TwoFactorEnabled {
		t.Fatal("Expected 2FA enabled after verification")
	}
	if len(recoveryCodes) != 8 {
		t.Fatalf("Expected 8 recovery codes, got %d", len(recoveryCodes))
	}

	// Complete a challenge login with a fresh code.
	code, _ = totp.GenerateCode(setup.Secret, time.Now())
	result, err := svc.LoginTwoFactor(context.Background(), &domain.TwoFactorLoginRequest{
		Email:    "amina@example.com",
		Password: "password123",
		Token:    code,
	})
	if err != nil {
		t.Fatalf("LoginTwoFactor failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("Expected a token")
	}
}

func TestTwoFactor_BadCode(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleAdmin)

	if _, err := svc.SetupTwoFactor(context.Background(), u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyTwoFactor(context.Background(), u.ID, "000000"); !errors.Is(err, domain.ErrInvalidTwoFactor) {
		t.Fatalf("Expected invalid 2FA error, got %v", err)
	}
}

func TestTwoFactor_RecoveryCodeLogin(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleAdmin)

	setup, err := svc.SetupTwoFactor(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	code, _ := totp.GenerateCode(setup.Secret, time.Now())
	recoveryCodes, err := svc.VerifyTwoFactor(context.Background(), u.ID, code)
	if err != nil {
		t.Fatal(err)
	}

	login := func(token string) (*domain.LoginResult, error) {
		return svc.LoginTwoFactor(context.Background(), &domain.TwoFactorLoginRequest{
			Email:    "amina@example.com",
			Password: "password123",
			Token:    token,
		})
	}

	// A recovery code works in place of a TOTP code.
	result, err := login(recoveryCodes[0])
	if err != nil {
		t.Fatalf("Recovery code login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("Expected a token")
	}

	// But only once.
	if _, err := login(recoveryCodes[0]); !errors.Is(err, domain.ErrInvalidTwoFactor) {
		t.Fatalf("Expected a consumed code to be rejected, got %v", err)
	}

	// The remaining codes are still good.
	if _, err := login(recoveryCodes[1]); err != nil {
		t.Fatalf("Second recovery code login failed: %v", err)
	}
}

func TestDisableTwoFactor(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleAdmin)
	u.TwoFactorEnabled = true
	repo.secrets[u.ID] = "SECRET"

	if err := svc.DisableTwoFactor(context.Background(), u.ID); err != nil {
		t.Fatalf("DisableTwoFactor failed: %v", err)
	}
	if u.TwoFactorEnabled || repo.secrets[u.ID] != "" {
		t.Fatal("Expected 2FA off and secret cleared")
	}
}

func TestForgotPassword_SendsResetLink(t *testing.T) {
	svc, repo, mail := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleCustomer)

	if err := svc.ForgotPassword(context.Background(), "amina@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if len(mail.resetURLs) != 1 {
		t.Fatal("Expected one reset email")
	}
	if !strings.HasPrefix(mail.resetURLs[0], "http://localhost:3000/reset-password/") {
		t.Fatalf("Unexpected reset URL: %s", mail.resetURLs[0])
	}
	if repo.resetHashes[u.ID] == "" {
		t.Fatal("Expected a stored reset token hash")
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	svc, _, _ := setupAuth()

	err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected not found, got %v", err)
	}
}

func TestForgotPassword_MailFailureClearsToken(t *testing.T) {
	svc, repo, mail := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleCustomer)
	mail.sendErr = errors.New("smtp down")

	err := svc.ForgotPassword(context.Background(), "amina@example.com")
	if !errors.Is(err, domain.ErrDispatchFailed) {
		t.Fatalf("Expected dispatch failure, got %v", err)
	}
	if repo.resetHashes[u.ID] != "" {
		t.Fatal("Expected the reset token to be cleared after a mail failure")
	}
}

func TestResetPassword_Flow(t *testing.T) {
	svc, repo, mail := setupAuth()
	repo.add("Amina", "amina@example.com", "oldpassword1", domain.RoleCustomer)

	if err := svc.ForgotPassword(context.Background(), "amina@example.com"); err != nil {
		t.Fatal(err)
	}

	// The raw token is the last URL segment of the emailed link.
	url := mail.resetURLs[0]
	token := url[strings.LastIndex(url, "/")+1:]

	user, jwt, err := svc.ResetPassword(context.Background(), token, "newpassword1")
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if jwt == "" {
		t.Fatal("Expected a token after reset")
	}

	// Old password no longer works, new one does.
	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: user.Email, Password: "oldpassword1",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatal("Expected old password to be rejected")
	}
	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: user.Email, Password: "newpassword1",
	}); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}

	// The token is single use.
	if _, _, err := svc.ResetPassword(context.Background(), token, "anotherpass1"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("Expected invalid reset token on reuse, got %v", err)
	}
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleCustomer)

	_, _, err := svc.UpdatePassword(context.Background(), u.ID, &domain.UpdatePasswordRequest{
		CurrentPassword: "wrong-password",
		Password:        "newpassword1",
	})

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Kind != domain.AuthInvalidCredentials {
		t.Fatalf("Expected invalid credentials, got %v", err)
	}
}

func TestUpdateProfile_RejectsPassword(t *testing.T) {
	svc, repo, _ := setupAuth()
	u := repo.add("Amina", "amina@example.com", "password123", domain.RoleCustomer)

	pw := "sneaky"
	_, err := svc.UpdateProfile(context.Background(), u.ID, &domain.UpdateProfileRequest{Password: &pw})

	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}
