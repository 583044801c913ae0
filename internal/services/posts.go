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

// PostService authors and removes posts. Retweet shells are never created here; they
// belong to the RetweetProjector.
type PostService struct {
	posts   repositories.PostRepository
	retry   RetryPolicy
	timeout time.Duration
	logger  *log.Entry
}

func NewPostService(posts repositories.PostRepository, retry RetryPolicy, timeout time.Duration) *PostService {
	return &PostService{
		posts:   posts,
		retry:   retry,
		timeout: timeout,
		logger:  log.WithField("component", "post_service"),
	}
}

// Create publishes an original, a reply (replyTo set) or a quote (quoteOf set).
// Referenced posts must exist and must not be retweet shells.
func (s *PostService) Create(ctx context.Context, authorID string, req models.CreatePostRequest) (*models.Post, error) {
	if authorID == "" {
		return nil, fmt.Errorf("%w: post requires an author", apperrors.ErrInvalid)
	}

	var (
		post *models.Post
		err  error
	)
	switch {
	case req.ReplyTo != "" && req.QuoteOf != "":
		return nil, fmt.Errorf("%w: a post cannot both reply and quote", apperrors.ErrInvalid)
	case req.ReplyTo != "":
		if err := s.checkReference(ctx, req.ReplyTo); err != nil {
			return nil, err
		}
		post, err = models.NewReplyPost(authorID, req.Content, req.ReplyTo)
	case req.QuoteOf != "":
		if err := s.checkReference(ctx, req.QuoteOf); err != nil {
			return nil, err
		}
		post, err = models.NewQuotePost(authorID, req.Content, req.QuoteOf)
	default:
		post, err = models.NewOriginalPost(authorID, req.Content, req.MediaURLs)
	}
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.posts.Create(storeCtx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if post.Kind == models.KindReply {
		s.bumpReplyCount(ctx, post.ReplyToPostID)
	}
	return post, nil
}

func (s *PostService) checkReference(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	ref, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: referenced post %s does not exist", apperrors.ErrInvalid, id)
		}
		return err
	}
	if ref.Kind == models.KindRetweet {
		return fmt.Errorf("%w: cannot reference retweet %s", apperrors.ErrInvalid, id)
	}
	return nil
}

// bumpReplyCount is best effort: the reply exists even if the parent counter lags.
func (s *PostService) bumpReplyCount(ctx context.Context, parentID string) {
	err := s.retry.Do(ctx, "bump reply count", apperrors.IsRetryable, func(ctx context.Context) error {
		ctx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()
		_, err := s.posts.Update(ctx, parentID, func(p *models.Post) error {
			p.ReplyCount++
			return nil
		})
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("post_id", parentID).Warn("Failed to update reply count")
	}
}

// Delete removes the caller's own post. Retweet shells are removed by un-retweeting.
// Shells pointing at the deleted post are left to dangle; feeds skip them.
func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return fmt.Errorf("%w: post %s belongs to another user", apperrors.ErrForbidden, postID)
	}
	if post.Kind == models.KindRetweet {
		return fmt.Errorf("%w: undo the retweet instead of deleting its shell", apperrors.ErrInvalid)
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"post_id": postID, "user_id": userID}).Info("Post deleted")
	return nil
}
