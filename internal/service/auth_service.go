package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/mailer"
	"github.com/bongoexpress/cargo-api/internal/repository"
	"github.com/bongoexpress/cargo-api/pkg/auth"
	"github.com/bongoexpress/cargo-api/pkg/config"
	"github.com/bongoexpress/cargo-api/pkg/logger"
)

// TwoFactorSetup is the enrollment payload: the shared secret plus a QR
// code the authenticator app can scan.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qrCode"` // base64 PNG data URL
}

const recoveryCodeCount = 8

type AuthService interface {
	Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, string, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResult, error)
	LoginTwoFactor(ctx context.Context, req *domain.TwoFactorLoginRequest) (*domain.LoginResult, error)
	VerifyToken(ctx context.Context, tokenString string) (*domain.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) (*domain.User, string, error)
	UpdatePassword(ctx context.Context, userID int64, req *domain.UpdatePasswordRequest) (*domain.User, string, error)
	UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error)
	SetupTwoFactor(ctx context.Context, userID int64) (*TwoFactorSetup, error)
	VerifyTwoFactor(ctx context.Context, userID int64, code string) ([]string, error)
	DisableTwoFactor(ctx context.Context, userID int64) error
}

type authService struct {
	users  repository.UserRepository
	mailer mailer.Service
	cfg    config.AuthConfig
	appURL string
}

func NewAuthService(users repository.UserRepository, mail mailer.Service, cfg config.AuthConfig, appURL string) AuthService {
	return &authService{
		users:  users,
		mailer: mail,
		cfg:    cfg,
		appURL: strings.TrimRight(appURL, "/"),
	}
}

func (s *authService) Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req, hash)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, "", domain.NewValidationError("Email already in use")
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.NewToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.verifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return &domain.LoginResult{TwoFactorRequired: true}, nil
	}

	return s.issueLogin(ctx, user)
}

// LoginTwoFactor completes a two-factor challenge. Credentials are verified
// again so the endpoint cannot be used to bypass the password check.
func (s *authService) LoginTwoFactor(ctx context.Context, req *domain.TwoFactorLoginRequest) (*domain.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.verifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	secret, err := s.users.TwoFactorSecret(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load 2FA secret: %w", err)
	}
	if secret == "" {
		return nil, domain.ErrInvalidTwoFactor
	}
	if !validateTOTP(req.Token, secret) {
		// A recovery code stands in for a lost authenticator; each one is
		// single use.
		ok, err := s.consumeRecoveryCode(ctx, user.ID, req.Token)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrInvalidTwoFactor
		}
	}

	return s.issueLogin(ctx, user)
}

func (s *authService) consumeRecoveryCode(ctx context.Context, userID int64, code string) (bool, error) {
	hashes, err := s.users.TwoFactorRecoveryCodes(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load recovery codes: %w", err)
	}

	codeHash := hashToken(strings.ToLower(code))
	for i, h := range hashes {
		if h == codeHash {
			remaining := append(hashes[:i:i], hashes[i+1:]...)
			if err := s.users.SetTwoFactorRecoveryCodes(ctx, userID, remaining); err != nil {
				return false, fmt.Errorf("failed to consume recovery code: %w", err)
			}
			logger.InfoContext(ctx, "2FA recovery code used", "user_id", userID, "remaining", len(remaining))
			return true, nil
		}
	}
	return false, nil
}

func (s *authService) verifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil || !match {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) issueLogin(ctx context.Context, user *domain.User) (*domain.LoginResult, error) {
	token, err := auth.NewToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	// Best effort; a login must not fail over a bookkeeping column.
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnContext(ctx, "failed to record last login", "user_id", user.ID, "error", err)
	}

	logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return &domain.LoginResult{Token: token, User: user}, nil
}

// VerifyToken parses a bearer token and loads its user. Deleted accounts
// invalidate their outstanding tokens.
func (s *authService) VerifyToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := auth.Parse(tokenString, s.cfg.JWTSecret)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserGone
	}
	return user, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.NewValidationError("Please provide your email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return domain.ErrNotFound
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	tokenHash := hashToken(token)

	expires := time.Now().Add(s.cfg.PasswordResetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, expires); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := s.appURL + "/reset-password/" + token
	if err := s.mailer.SendPasswordResetEmail(user.Email, user.Name, resetURL); err != nil {
		logger.ErrorContext(ctx, "failed to send password reset email", "user_id", user.ID, "error", err)
		// The token is useless if the email never went out.
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			logger.ErrorContext(ctx, "failed to clear reset token", "user_id", user.ID, "error", clearErr)
		}
		return domain.ErrDispatchFailed
	}

	logger.InfoContext(ctx, "password reset email sent", "user_id", user.ID)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, password string) (*domain.User, string, error) {
	if len(password) < 8 {
		return nil, "", domain.NewValidationError("Password must be at least 8 characters")
	}

	user, err := s.users.FindByResetTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up reset token: %w", err)
	}
	if user == nil {
		return nil, "", domain.ErrInvalidResetToken
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		return nil, "", fmt.Errorf("failed to reset password: %w", err)
	}

	jwtToken, err := auth.NewToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	return user, jwtToken, nil
}

func (s *authService) UpdatePassword(ctx context.Context, userID int64, req *domain.UpdatePasswordRequest) (*domain.User, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, "", domain.ErrUserGone
	}

	match, err := argon2id.ComparePasswordAndHash(req.CurrentPassword, user.PasswordHash)
	if err != nil || !match {
		return nil, "", domain.NewAuthError(domain.AuthInvalidCredentials, "Your current password is wrong.")
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, "", fmt.Errorf("failed to update password: %w", err)
	}

	token, err := auth.NewToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, userID, req)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.NewValidationError("Email already in use")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserGone
	}
	return user, nil
}

// SetupTwoFactor generates a fresh TOTP secret and QR code. The secret is
// stored immediately but 2FA only turns on after VerifyTwoFactor proves the
// authenticator was enrolled.
func (s *authService) SetupTwoFactor(ctx context.Context, userID int64) (*TwoFactorSetup, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserGone
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      fmt.Sprintf("%s (%s)", s.cfg.TwoFactorIssuer, user.Email),
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate 2FA secret: %w", err)
	}

	if err := s.users.SetTwoFactorSecret(ctx, userID, key.Secret()); err != nil {
		return nil, fmt.Errorf("failed to store 2FA secret: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &TwoFactorSetup{
		Secret: key.Secret(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// VerifyTwoFactor confirms enrollment and hands out single-use recovery
// codes. The plaintext codes are shown exactly once; only their hashes are
// stored.
func (s *authService) VerifyTwoFactor(ctx context.Context, userID int64, code string) ([]string, error) {
	secret, err := s.users.TwoFactorSecret(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load 2FA secret: %w", err)
	}
	if secret == "" || !validateTOTP(code, secret) {
		return nil, domain.ErrInvalidTwoFactor
	}

	codes := make([]string, recoveryCodeCount)
	hashes := make([]string, recoveryCodeCount)
	for i := range codes {
		raw := make([]byte, 5)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("failed to generate recovery codes: %w", err)
		}
		codes[i] = hex.EncodeToString(raw)
		hashes[i] = hashToken(codes[i])
	}
	if err := s.users.SetTwoFactorRecoveryCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store recovery codes: %w", err)
	}

	if err := s.users.EnableTwoFactor(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to enable 2FA: %w", err)
	}
	logger.InfoContext(ctx, "two-factor auth enabled", "user_id", userID)
	return codes, nil
}

func (s *authService) DisableTwoFactor(ctx context.Context, userID int64) error {
	if err := s.users.DisableTwoFactor(ctx, userID); err != nil {
		return fmt.Errorf("failed to disable 2FA: %w", err)
	}
	logger.InfoContext(ctx, "two-factor auth disabled", "user_id", userID)
	return nil
}

func validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
