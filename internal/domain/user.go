package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Capability names a privileged operation. Only admins hold any of them.
type Capability int

const (
	CapManageCatalog Capability = iota
	CapManageOrders
	CapModerateReviews
	CapManageUsers
)

func (c Capability) String() string {
	switch c {
	case CapManageCatalog:
		return "manage catalog"
	case CapManageOrders:
		return "manage orders"
	case CapModerateReviews:
		return "moderate reviews"
	case CapManageUsers:
		return "manage users"
	default:
		return "unknown"
	}
}

// Can reports whether the role grants the capability. Every capability is admin-only.
func (r Role) Can(_ Capability) bool {
	return r == RoleAdmin
}

// Actor is the authenticated identity behind a request.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAuthenticated() bool { return a.UserID != "" }

func (a Actor) Can(c Capability) bool { return a.IsAuthenticated() && a.Role.Can(c) }

// Authorize fails with an authorization error unless the actor holds c.
func Authorize(a Actor, c Capability) error {
	if !a.IsAuthenticated() {
		return ErrMissingToken
	}
	if !a.Can(c) {
		return Forbiddenf("Not authorized as admin (%s)", c)
	}
	return nil
}

type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the profile fields a user sent; nil means untouched.
type ProfileUpdate struct {
	Name   *string
	Phone  *string
	Avatar *string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role Role) (*User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
}
