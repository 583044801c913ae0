package services

import (
	"context"
	"sync"
	"testing"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// retweeted creates an original by alice and records userID in its retweetedBy set
// without projecting, leaving the shell to the projector under test.
func (f *fixture) retweeted(t *testing.T, userID string) *models.Post {
	t.Helper()
	p := f.original(t, "alice", "hello")
	_, err := f.store.Update(context.Background(), p.ID, func(p *models.Post) error {
		p.SetMember(models.InteractionRetweet, userID, true)
		return nil
	})
	require.NoError(t, err)
	return p
}

func TestOnRetweetAddedIsAnUpsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.retweeted(t, "carol")
	created := f.posts.createCalls

	first, err := f.projector.OnRetweetAdded(ctx, "carol", p.ID)
	require.NoError(t, err)
	second, err := f.projector.OnRetweetAdded(ctx, "carol", p.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, created+1, f.posts.createCalls)
}

func TestOnRetweetAddedResolvesConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.retweeted(t, "carol")

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shell, err := f.projector.OnRetweetAdded(ctx, "carol", p.ID)
			if assert.NoError(t, err) && assert.NotNil(t, shell) {
				ids[i] = shell.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	shells, err := f.store.QueryRecent(ctx, []models.PostKind{models.KindRetweet}, 10)
	require.NoError(t, err)
	assert.Len(t, shells, 1)
}

func TestOnRetweetAddedRetriesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.retweeted(t, "carol")
	created := f.posts.createCalls

	f.posts.createErrs = []error{apperrors.ErrUnavailable}
	shell, err := f.projector.OnRetweetAdded(ctx, "carol", p.ID)
	require.NoError(t, err)
	assert.NotNil(t, shell)
	assert.Equal(t, created+2, f.posts.createCalls)
}

func TestOnRetweetAddedSkipsWhenNoLongerAMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	shell, err := f.projector.OnRetweetAdded(ctx, "carol", p.ID)
	require.NoError(t, err)
	assert.Nil(t, shell)
	_, err = f.store.FindRetweet(ctx, "carol", p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOnRetweetRemovedToleratesAbsence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	require.NoError(t, f.projector.OnRetweetRemoved(ctx, "carol", p.ID))
	require.NoError(t, f.projector.OnRetweetRemoved(ctx, "carol", "missing"))
}

func TestOnRetweetRemovedDeletesStrayShell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")
	stray, err := models.NewRetweetPost("carol", p.ID)
	require.NoError(t, err)
	_, err = f.store.Create(ctx, stray)
	require.NoError(t, err)

	require.NoError(t, f.projector.OnRetweetRemoved(ctx, "carol", p.ID))
	_, err = f.store.FindRetweet(ctx, "carol", p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOnRetweetRemovedKeepsShellOfCurrentRetweeter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.retweeted(t, "carol")
	_, err := f.projector.OnRetweetAdded(ctx, "carol", p.ID)
	require.NoError(t, err)

	require.NoError(t, f.projector.OnRetweetRemoved(ctx, "carol", p.ID))
	_, err = f.store.FindRetweet(ctx, "carol", p.ID)
	assert.NoError(t, err)
}
