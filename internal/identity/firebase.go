package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
)

// FirebaseUsers is the slice of *auth.Client the directory needs.
type FirebaseUsers interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// FirebaseDirectory resolves profiles from Firebase Authentication user records.
type FirebaseDirectory struct {
	users FirebaseUsers
}

func NewFirebaseDirectory(users FirebaseUsers) *FirebaseDirectory {
	return &FirebaseDirectory{users: users}
}

func (d *FirebaseDirectory) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	record, err := d.users.GetUser(ctx, userID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, fmt.Errorf("firebase user %s: %w", userID, apperrors.ErrNotFound)
		}
		return nil, errors.Join(apperrors.ErrUnavailable, apperrors.FromContext(err))
	}
	p := profileFromRecord(userID, record)
	return &p, nil
}

// profileFromRecord derives the public profile: username claim, then the email local
// part, then "user"; display name falls back to the username. The id is always set,
// from the record when it carries one.
func profileFromRecord(userID string, record *auth.UserRecord) models.Profile {
	p := models.Profile{ID: userID}
	if record.UserInfo != nil {
		if record.UID != "" {
			p.ID = record.UID
		}
		p.DisplayName = strings.TrimSpace(record.DisplayName)
		p.AvatarURL = record.PhotoURL
		if name, ok := record.CustomClaims["username"].(string); ok && name != "" {
			p.Username = name
		} else if local, _, ok := strings.Cut(record.Email, "@"); ok && local != "" {
			p.Username = local
		}
	}
	if p.Username == "" {
		p.Username = "user"
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Username
	}
	if verified, ok := record.CustomClaims["isVerified"].(bool); ok {
		p.IsVerified = verified
	}
	return p
}
