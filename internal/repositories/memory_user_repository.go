package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
)

// MemoryUserRepository implements UserRepository in process memory for dev mode and tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

func (r *MemoryUserRepository) UpsertUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsert(user)
	return nil
}

// UpdateProfile keeps the stored email and verification of an existing user.
func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[user.ExternalID]; ok {
		user.Email = existing.Email
		user.IsVerified = existing.IsVerified
	}
	r.upsert(user)
	return nil
}

func (r *MemoryUserRepository) upsert(user *models.User) {
	now := time.Now().UTC()
	if existing, ok := r.users[user.ExternalID]; ok {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
	} else {
		user.ID = uint(len(r.users) + 1)
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ExternalID] = *user
}

func (r *MemoryUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[externalID]
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", externalID, apperrors.ErrNotFound)
	}
	return &user, nil
}

func (r *MemoryUserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(query)
	users := []models.User{}
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.DisplayName), q) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *MemoryUserRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = make(map[string]models.User)
	return nil
}
