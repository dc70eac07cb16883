package storefront

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's role
type Role string

const (
	// RoleUser is the role every registered account gets
	RoleUser Role = "user"
	// RoleAdmin can mutate the product catalog
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	return role, role.IsValid()
}

// AccountState is either PendingState or VerifiedState.
type AccountState interface {
	accountState()
	IsVerified() bool
}

// PendingState is a registered account waiting for its OTP.
type PendingState struct {
	Code      string
	ExpiresAt time.Time
}

func (PendingState) accountState() {}

// IsVerified implements AccountState.
func (PendingState) IsVerified() bool { return false }

// Matches compares the stored code with the given one.
func (s PendingState) Matches(code string) bool {
	return s.Code != "" && s.Code == code
}

// Expired reports whether the code is no longer usable at now. The code is
// only valid strictly before ExpiresAt.
func (s PendingState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// VerifiedState is an account that proved control of its email.
type VerifiedState struct {
	VerifiedAt time.Time
}

func (VerifiedState) accountState() {}

// IsVerified implements AccountState.
func (VerifiedState) IsVerified() bool { return true }

// Account is the user account
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	State        AccountState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsVerified reports whether the account completed OTP verification.
func (a *Account) IsVerified() bool {
	return a != nil && a.State != nil && a.State.IsVerified()
}

// IsAdmin is a shortcut for role checks
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// VerifiedAt returns the verification time or nil while pending.
func (a *Account) VerifiedAt() *time.Time {
	if a == nil {
		return nil
	}
	if s, ok := a.State.(VerifiedState); ok {
		t := s.VerifiedAt
		return &t
	}
	return nil
}

type accountJSON struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MarshalJSON renders the public view of the account. The password hash and
// any pending code never leave the process.
func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Role:            a.Role,
		EmailVerifiedAt: a.VerifiedAt(),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	})
}

// Product is a catalog entry
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Description   string    `bun:"description,notnull" json:"description"`
	Price         int64     `bun:"price,notnull" json:"price"`
	Stock         int64     `bun:"stock,notnull" json:"stock"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
