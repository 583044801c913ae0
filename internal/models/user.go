package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User is a locally stored profile in PostgreSQL, keyed by the identity provider UID.
// It lets operators override or enrich what the identity provider returns.
type User struct {
	gorm.Model  `json:"-"`
	ExternalID  string `json:"id" gorm:"uniqueIndex;size:128"` // identity provider UID
	Username    string `json:"username" gorm:"index;size:30"`
	DisplayName string `json:"display_name" gorm:"size:100"`
	Email       string `json:"email,omitempty" gorm:"size:255"`
	AvatarURL   string `json:"avatar_url"`
	IsVerified  bool   `json:"is_verified"`
}

// ToProfile projects the stored user onto the profile shape used in feeds.
func (u *User) ToProfile() Profile {
	return Profile{
		ID:          u.ExternalID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsVerified:  u.IsVerified,
	}
}

// Profile is the public identity attached to posts.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	IsVerified  bool   `json:"is_verified"`
}

// UnknownProfile is rendered when the identity provider cannot resolve a user.
func UnknownProfile(id string) Profile {
	return Profile{
		ID:          id,
		Username:    "unknown",
		DisplayName: "Unknown User",
	}
}

// UpsertProfileRequest defines the request body for updating the caller's local profile
type UpsertProfileRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=30"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	AvatarURL   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims.
// The subject carries the identity provider UID.
type JwtCustomClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
