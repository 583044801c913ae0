package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/repositories"
	log "github.com/sirupsen/logrus"
)

// RetweetProjector keeps exactly one retweet shell per (user, original) pair for as long
// as the user is in the original's retweetedBy set. Both hooks converge on the membership
// stored at the time they run, not on the decision that triggered them.
type RetweetProjector struct {
	posts   repositories.PostRepository
	retry   RetryPolicy
	timeout time.Duration
	logger  *log.Entry
}

func NewRetweetProjector(posts repositories.PostRepository, retry RetryPolicy, timeout time.Duration) *RetweetProjector {
	return &RetweetProjector{
		posts:   posts,
		retry:   retry,
		timeout: timeout,
		logger:  log.WithField("component", "retweet_projector"),
	}
}

// maxSyncPasses bounds how often sync re-reads membership after its own write.
const maxSyncPasses = 4

// OnRetweetAdded makes sure the shell keyed by (userID, originalPostID) exists while the user
// is still a retweeter. It returns nil when a later toggle already removed the membership.
func (p *RetweetProjector) OnRetweetAdded(ctx context.Context, userID, originalPostID string) (*models.Post, error) {
	shell, err := p.syncWithRetry(ctx, "project retweet", userID, originalPostID)
	if err != nil {
		return nil, fmt.Errorf("materialize retweet of %s by %s: %w", originalPostID, userID, err)
	}
	return shell, nil
}

// OnRetweetRemoved deletes the shell unless a later toggle made the user a retweeter again.
func (p *RetweetProjector) OnRetweetRemoved(ctx context.Context, userID, originalPostID string) error {
	if _, err := p.syncWithRetry(ctx, "unproject retweet", userID, originalPostID); err != nil {
		return fmt.Errorf("remove retweet of %s by %s: %w", originalPostID, userID, err)
	}
	return nil
}

func (p *RetweetProjector) syncWithRetry(ctx context.Context, op, userID, originalPostID string) (*models.Post, error) {
	var shell *models.Post
	err := p.retry.Do(ctx, op, apperrors.IsRetryable, func(ctx context.Context) error {
		ctx, cancel := withTimeout(ctx, p.timeout)
		defer cancel()
		s, err := p.sync(ctx, userID, originalPostID)
		shell = s
		return err
	})
	return shell, err
}

// sync converges shell existence onto the current retweetedBy membership. Every write is
// followed by another pass, so a toggle that lands while the shell is being written is
// observed and undone here or by the toggle's own sync.
func (p *RetweetProjector) sync(ctx context.Context, userID, originalPostID string) (*models.Post, error) {
	for pass := 0; pass < maxSyncPasses; pass++ {
		member, err := p.isRetweeter(ctx, userID, originalPostID)
		if err != nil {
			return nil, err
		}
		shell, err := p.posts.FindRetweet(ctx, userID, originalPostID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		found := err == nil

		switch {
		case member && !found:
			if err := p.create(ctx, userID, originalPostID); err != nil {
				return nil, err
			}
		case !member && found:
			if err := p.posts.Delete(ctx, shell.ID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
			p.logger.WithFields(log.Fields{
				"shell_id":         shell.ID,
				"user_id":          userID,
				"original_post_id": originalPostID,
			}).Debug("Removed retweet shell")
		case member:
			return shell, nil
		default:
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: retweet shell of %s by %s kept changing", apperrors.ErrConflict, originalPostID, userID)
}

// isRetweeter reports the user's current membership. A deleted original has no retweeters.
func (p *RetweetProjector) isRetweeter(ctx context.Context, userID, originalPostID string) (bool, error) {
	original, err := p.posts.Get(ctx, originalPostID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return original.IsRetweetedBy(userID), nil
}

func (p *RetweetProjector) create(ctx context.Context, userID, originalPostID string) error {
	shell, err := models.NewRetweetPost(userID, originalPostID)
	if err != nil {
		return err
	}
	if _, err := p.posts.Create(ctx, shell); err != nil {
		// a concurrent sync inserted the shell first; the next pass picks it up
		if errors.Is(err, apperrors.ErrConflict) {
			return nil
		}
		return err
	}
	p.logger.WithFields(log.Fields{
		"shell_id":         shell.ID,
		"user_id":          userID,
		"original_post_id": originalPostID,
	}).Debug("Created retweet shell")
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
