package repositories

import (
	"context"
	"testing"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserRepositoryUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	require.NoError(t, repo.UpsertUser(ctx, &models.User{ExternalID: "u1", Username: "alice", DisplayName: "Alice"}))
	require.NoError(t, repo.UpsertUser(ctx, &models.User{ExternalID: "u2", Username: "bob", DisplayName: "Bobby Alison"}))

	updated := &models.User{ExternalID: "u1", Username: "alice", DisplayName: "Alice A."}
	require.NoError(t, repo.UpsertUser(ctx, updated))
	assert.Equal(t, uint(1), updated.ID, "upsert keeps the row id")

	got, err := repo.GetUserByExternalID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", got.DisplayName)

	found, err := repo.SearchUsers(ctx, "ali", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "alice", found[0].Username)

	found, err = repo.SearchUsers(ctx, "ali", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, repo.DeleteAll(ctx))
	_, err = repo.GetUserByExternalID(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryUserRepositoryUpdateProfileKeepsOperatorFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.UpsertUser(ctx, &models.User{
		ExternalID: "u1", Username: "alice", DisplayName: "Alice", Email: "alice@nest.com", IsVerified: true,
	}))

	edit := &models.User{ExternalID: "u1", Username: "alice", DisplayName: "Alice B.", AvatarURL: "https://img.nest.com/a.png"}
	require.NoError(t, repo.UpdateProfile(ctx, edit))
	assert.True(t, edit.IsVerified, "caller sees the stored flag")

	got, err := repo.GetUserByExternalID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.DisplayName)
	assert.Equal(t, "https://img.nest.com/a.png", got.AvatarURL)
	assert.Equal(t, "alice@nest.com", got.Email)
	assert.True(t, got.IsVerified)

	fresh := &models.User{ExternalID: "u2", Username: "bob", DisplayName: "Bob"}
	require.NoError(t, repo.UpdateProfile(ctx, fresh))
	assert.False(t, fresh.IsVerified)
}

func TestMemoryUserRepositorySearchIsLiteral(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.UpsertUser(ctx, &models.User{ExternalID: "u1", Username: "alice", DisplayName: "Alice"}))

	found, err := repo.SearchUsers(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}
