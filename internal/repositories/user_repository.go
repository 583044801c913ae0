package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for local profile operations
type UserRepository interface {
	UpsertUser(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	DeleteAll(ctx context.Context) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// UpsertUser creates the user or overwrites the profile fields of the existing row
func (r *PostgresUserRepository) UpsertUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "avatar_url", "is_verified", "email", "updated_at"}),
	}).Create(user).Error
	return mapGormError(err)
}

// profileColumns are the fields a user may edit on their own profile; email and
// verification stay under operator control.
var profileColumns = []string{"username", "display_name", "avatar_url", "updated_at"}

// UpdateProfile creates the user or overwrites only the self-editable profile fields,
// then reloads the row so user carries the stored email and verification.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(profileColumns),
	}).Create(user).Error
	if err != nil {
		return mapGormError(err)
	}
	return mapGormError(db.Where("external_id = ?", user.ExternalID).First(user).Error)
}

// GetUserByExternalID retrieves a user by identity provider UID
func (r *PostgresUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("get user %s: %w", externalID, mapGormError(err))
	}
	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern builds a LIKE pattern matching query as a literal substring.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// SearchUsers searches for users by username or display name. The query is matched as a
// literal substring.
func (r *PostgresUserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	like := containsPattern(query)
	if err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE LOWER(?) ESCAPE '\' OR LOWER(display_name) LIKE LOWER(?) ESCAPE '\'`, like, like).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, mapGormError(err)
	}
	return users, nil
}

// DeleteAll removes every local profile; only the seed command uses it.
func (r *PostgresUserRepository) DeleteAll(ctx context.Context) error {
	return mapGormError(r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.User{}).Error)
}

func mapGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(apperrors.ErrConflict, err)
	}
	return errors.Join(apperrors.ErrUnavailable, apperrors.FromContext(err))
}
