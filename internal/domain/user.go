package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	Phone          string    `json:"phone"`
	Branch         string    `json:"branch"`
	ProfilePicture string    `json:"profilePicture"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`

	// Reset and 2FA secrets are loaded only by the repository methods that
	// need them and never serialized.
	PasswordResetToken   string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	TwoFactorEnabled     bool       `json:"twoFactorEnabled"`
	TwoFactorSecret      string     `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Valid roles
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

var validRoles = map[string]bool{
	RoleCustomer: true,
	RoleStaff:    true,
	RoleAdmin:    true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

// Account statuses
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusIdle     = "Idle"
)

var validStatuses = map[string]bool{
	StatusActive:   true,
	StatusInactive: true,
	StatusIdle:     true,
}

func IsValidUserStatus(status string) bool {
	return validStatuses[status]
}

// Branches are the fixed regional offices.
var Branches = []string{"Nairobi", "Mombasa", "Kisumu", "Nakuru", "Eldoret"}

func IsValidBranch(branch string) bool {
	for _, b := range Branches {
		if b == branch {
			return true
		}
	}
	return false
}

const DefaultBranch = "Nairobi"

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (r *CreateUserRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Role == "" {
		r.Role = RoleCustomer
	}
	if r.Branch == "" {
		r.Branch = DefaultBranch
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
}

func (r *CreateUserRequest) Validate() error {
	if r.Name == "" {
		return NewValidationError("Please provide your name")
	}
	if r.Email == "" {
		return NewValidationError("Please provide your email")
	}
	if !isValidEmail(r.Email) {
		return NewValidationError("Please provide a valid email")
	}
	if r.Password == "" {
		return NewValidationError("Please provide a password")
	}
	if len(r.Password) < 8 {
		return NewValidationError("Password must be at least 8 characters")
	}
	if !validRoles[r.Role] {
		return NewValidationError("Invalid role: %s", r.Role)
	}
	if !IsValidBranch(r.Branch) {
		return NewValidationError("Invalid branch: %s", r.Branch)
	}
	if !validStatuses[r.Status] {
		return NewValidationError("Invalid status: %s", r.Status)
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return NewValidationError("Please provide email and password.")
	}
	return nil
}

// LoginResult is either an issued token or a two-factor challenge,
// never both.
type LoginResult struct {
	TwoFactorRequired bool
	Token             string
	User              *User
}

type TwoFactorLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

func (r *TwoFactorLoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Token = strings.TrimSpace(r.Token)
}

func (r *TwoFactorLoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" || r.Token == "" {
		return NewValidationError("Please provide email, password, and 2FA token.")
	}
	return nil
}

// UpdateProfileRequest is the self-service allow-list. Password changes go
// through UpdatePasswordRequest.
type UpdateProfileRequest struct {
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`

	// Decoded only to reject the request with a pointer at the right endpoint.
	Password        *string `json:"password,omitempty"`
	PasswordConfirm *string `json:"passwordConfirm,omitempty"`
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Password != nil || r.PasswordConfirm != nil {
		return NewValidationError("This route is not for password updates. Please use /update-password.")
	}
	if r.Email != nil && !isValidEmail(strings.ToLower(strings.TrimSpace(*r.Email))) {
		return NewValidationError("Please provide a valid email")
	}
	return nil
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
}

func (r *UpdatePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return NewValidationError("Please provide your current password")
	}
	if len(r.Password) < 8 {
		return NewValidationError("Password must be at least 8 characters")
	}
	return nil
}

// UpdateUserRequest is the admin-side patch for staff and customer accounts.
type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Branch *string `json:"branch,omitempty"`
	Status *string `json:"status,omitempty"`
	Role   *string `json:"role,omitempty"`
}

func (r *UpdateUserRequest) Validate() error {
	if r.Role != nil && !validRoles[*r.Role] {
		return NewValidationError("Invalid role: %s", *r.Role)
	}
	if r.Branch != nil && !IsValidBranch(*r.Branch) {
		return NewValidationError("Invalid branch: %s", *r.Branch)
	}
	if r.Status != nil && !validStatuses[*r.Status] {
		return NewValidationError("Invalid status: %s", *r.Status)
	}
	if r.Email != nil && !isValidEmail(strings.ToLower(strings.TrimSpace(*r.Email))) {
		return NewValidationError("Please provide a valid email")
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
