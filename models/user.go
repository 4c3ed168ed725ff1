package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email         string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password      string     `gorm:"not null" json:"-"`
	FirstName     string     `gorm:"size:150" json:"first_name"`
	LastName      string     `gorm:"size:150" json:"last_name"`
	PhoneNumber   string     `gorm:"size:20" json:"phone_number"`
	IsPatient     bool       `json:"is_patient"`
	IsDoctor      bool       `json:"is_doctor"`
	IsStaff       bool       `json:"is_staff"`
	IsSuperuser   bool       `json:"is_superuser"`
	EmailVerified bool       `json:"email_verified"`
	PhoneVerified bool       `json:"phone_verified"`
	LastLogin     *time.Time `json:"last_login"`
	CreatedAt     time.Time  `json:"date_joined"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsAdmin reports staff or superuser accounts
func (u User) IsAdmin() bool {
	return u.IsStaff || u.IsSuperuser
}

// Role is derived from the account flags, admin wins over doctor
func (u User) Role() string {
	if u.IsAdmin() {
		return RoleAdmin
	}
	if u.IsDoctor {
		return RoleDoctor
	}
	return RolePatient
}

func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserResponse is the public shape of a user
type UserResponse struct {
	User
	Role string `json:"role"`
}

func (u User) Response() UserResponse {
	return UserResponse{User: u, Role: u.Role()}
}

// Token types carried in claims
const (
	TokenAccess      = "access"
	TokenRefresh     = "refresh"
	TokenEmailVerify = "email_verify"
)

type UserClaims struct {
	UserID         uint   `json:"user_id"`
	Role           string `json:"role"`
	TokenType      string `json:"token_type"`
	ImpersonatorID uint   `json:"impersonator_id,omitempty"`
	jwt.RegisteredClaims
}
