package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLikedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	first, err := f.ledger.SetLiked(ctx, p.ID, "bob", true)
	require.NoError(t, err)
	second, err := f.ledger.SetLiked(ctx, p.ID, "bob", true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, &models.LikeResult{PostID: p.ID, Liked: true, LikeCount: 1}, second)

	off, err := f.ledger.SetLiked(ctx, p.ID, "bob", false)
	require.NoError(t, err)
	assert.False(t, off.Liked)
	assert.Equal(t, 0, off.LikeCount)
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")
	_, err := f.ledger.SetLiked(ctx, p.ID, "carol", true)
	require.NoError(t, err)

	before, err := f.ledger.Inspect(ctx, p.ID, "bob")
	require.NoError(t, err)

	on, err := f.ledger.ToggleLike(ctx, p.ID, "bob")
	require.NoError(t, err)
	assert.True(t, on.Liked)
	assert.Equal(t, 2, on.LikeCount)

	off, err := f.ledger.ToggleLike(ctx, p.ID, "bob")
	require.NoError(t, err)
	assert.False(t, off.Liked)

	after, err := f.ledger.Inspect(ctx, p.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestConcurrentTogglesKeepCountsEqualToSets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	const users = 40
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			_, err := f.ledger.ToggleLike(ctx, p.ID, user)
			assert.NoError(t, err)
			if i%2 == 0 {
				_, err = f.ledger.ToggleLike(ctx, p.ID, user)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	snap, err := f.ledger.Inspect(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Len(t, snap.LikedBy, users/2)
	assert.Equal(t, len(snap.LikedBy), snap.LikeCount)
}

func TestLikeRequiresUserAndExistingPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	_, err := f.ledger.ToggleLike(ctx, p.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalid)

	_, err = f.ledger.SetLiked(ctx, "000000000000000000000000", "bob", true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestToggleRetriesOnlyOnConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	f.posts.updateErrs = []error{apperrors.ErrConflict}
	res, err := f.ledger.ToggleLike(ctx, p.ID, "bob")
	require.NoError(t, err)
	assert.True(t, res.Liked)

	f.posts.updateCalls = 0
	f.posts.updateErrs = []error{apperrors.ErrUnavailable}
	_, err = f.ledger.ToggleLike(ctx, p.ID, "bob")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, 1, f.posts.updateCalls, "a blind toggle is not retried after a failed write")

	snap, err := f.ledger.Inspect(ctx, p.ID, "bob")
	require.NoError(t, err)
	assert.True(t, snap.ViewerLiked)
}

func TestSetRetriesOnUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	f.posts.updateErrs = []error{apperrors.ErrUnavailable}
	res, err := f.ledger.SetLiked(ctx, p.ID, "bob", true)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 2, f.posts.updateCalls)

	f.posts.updateErrs = []error{apperrors.ErrUnavailable, apperrors.ErrUnavailable}
	_, err = f.ledger.SetLiked(ctx, p.ID, "bob", false)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable, "one retry only")
}

func TestRetweetMaintainsShell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	res, err := f.ledger.ToggleRetweet(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, &models.RetweetResult{PostID: p.ID, Retweeted: true, RetweetCount: 1}, res)

	shell, err := f.store.FindRetweet(ctx, "carol", p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KindRetweet, shell.Kind)
	assert.Equal(t, 1, shell.ViewCount)

	// converging again leaves exactly one shell
	_, err = f.ledger.SetRetweeted(ctx, p.ID, "carol", true)
	require.NoError(t, err)
	recent, err := f.store.QueryRecent(ctx, []models.PostKind{models.KindRetweet}, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	res, err = f.ledger.ToggleRetweet(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.False(t, res.Retweeted)
	assert.Equal(t, 0, res.RetweetCount)
	_, err = f.store.FindRetweet(ctx, "carol", p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetRetweetedRepairsMissingShell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	_, err := f.ledger.SetRetweeted(ctx, p.ID, "carol", true)
	require.NoError(t, err)
	shell, err := f.store.FindRetweet(ctx, "carol", p.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, shell.ID))

	_, err = f.ledger.SetRetweeted(ctx, p.ID, "carol", true)
	require.NoError(t, err)
	_, err = f.store.FindRetweet(ctx, "carol", p.ID)
	assert.NoError(t, err)
}

func TestInteractionsOnShellApplyToOriginal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")
	_, err := f.ledger.SetRetweeted(ctx, p.ID, "carol", true)
	require.NoError(t, err)
	shell, err := f.store.FindRetweet(ctx, "carol", p.ID)
	require.NoError(t, err)

	res, err := f.ledger.ToggleLike(ctx, shell.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, p.ID, res.PostID)

	orig, err := f.store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, orig.LikedBy)
	stored, err := f.store.Get(ctx, shell.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LikedBy)
}

func TestInteractionOnDanglingShellIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")
	_, err := f.ledger.SetRetweeted(ctx, p.ID, "carol", true)
	require.NoError(t, err)
	shell, err := f.store.FindRetweet(ctx, "carol", p.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, p.ID))

	_, err = f.ledger.ToggleLike(ctx, shell.ID, "bob")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRetweetRollsBackWhenProjectionFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	f.posts.createErrs = []error{apperrors.ErrUnavailable, apperrors.ErrUnavailable}
	_, err := f.ledger.ToggleRetweet(ctx, p.ID, "carol")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.NotErrorIs(t, err, apperrors.ErrInvariantViolation)

	snap, err := f.ledger.Inspect(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.False(t, snap.ViewerRetweeted, "membership restored")
	assert.Equal(t, 0, snap.RetweetCount)
	_, err = f.store.FindRetweet(ctx, "carol", p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRetweetRemovalRollsBackWhenShellDeleteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")
	_, err := f.ledger.SetRetweeted(ctx, p.ID, "carol", true)
	require.NoError(t, err)

	f.posts.deleteErrs = []error{apperrors.ErrUnavailable, apperrors.ErrUnavailable}
	_, err = f.ledger.SetRetweeted(ctx, p.ID, "carol", false)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	snap, err := f.ledger.Inspect(ctx, p.ID, "carol")
	require.NoError(t, err)
	assert.True(t, snap.ViewerRetweeted)
	_, err = f.store.FindRetweet(ctx, "carol", p.ID)
	assert.NoError(t, err, "shell still matches membership")
}

func TestFailedRollbackReportsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.original(t, "alice", "hello")

	f.posts.createErrs = []error{apperrors.ErrUnavailable, apperrors.ErrUnavailable}
	f.posts.updateErrs = []error{nil, apperrors.ErrUnavailable, apperrors.ErrUnavailable}
	_, err := f.ledger.ToggleRetweet(ctx, p.ID, "carol")
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestToggleRetweetOnNonexistentPost(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ToggleRetweet(context.Background(), "000000000000000000000000", "carol")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 0, f.posts.createCalls)
}

func TestOverlappingRetweetTogglesLeaveShellMatchingMembership(t *testing.T) {
	tests := []struct {
		name          string
		retweetedFrom bool
	}{
		{name: "add overtaken by remove", retweetedFrom: false},
		{name: "remove overtaken by add", retweetedFrom: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			p := f.original(t, "alice", "hello")
			if tt.retweetedFrom {
				_, err := f.ledger.SetRetweeted(ctx, p.ID, "carol", true)
				require.NoError(t, err)
			}

			// the first toggle stalls in its shell lookup while the second completes
			f.posts.findDelays = []time.Duration{100 * time.Millisecond}
			errs := make([]error, 2)
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, errs[0] = f.ledger.ToggleRetweet(ctx, p.ID, "carol")
			}()
			time.Sleep(20 * time.Millisecond)
			go func() {
				defer wg.Done()
				_, errs[1] = f.ledger.ToggleRetweet(ctx, p.ID, "carol")
			}()
			wg.Wait()
			require.NoError(t, errs[0])
			require.NoError(t, errs[1])

			stored, err := f.store.Get(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.retweetedFrom, stored.IsRetweetedBy("carol"))
			_, err = f.store.FindRetweet(ctx, "carol", p.ID)
			if tt.retweetedFrom {
				assert.NoError(t, err, "member has a shell")
			} else {
				assert.ErrorIs(t, err, apperrors.ErrNotFound, "non-member has no shell")
			}
		})
	}
}
