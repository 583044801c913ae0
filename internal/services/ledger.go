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

// errShell aborts an update aimed at a retweet shell so it can be re-aimed at the original.
var errShell = errors.New("target is a retweet shell")

// InteractionLedger owns the likedBy/retweetedBy sets. Every change is decided and written
// inside a single PostRepository.Update, so counts always equal set sizes.
type InteractionLedger struct {
	posts     repositories.PostRepository
	projector *RetweetProjector
	retry     RetryPolicy
	timeout   time.Duration
	logger    *log.Entry
}

func NewInteractionLedger(posts repositories.PostRepository, projector *RetweetProjector, retry RetryPolicy, timeout time.Duration) *InteractionLedger {
	return &InteractionLedger{
		posts:     posts,
		projector: projector,
		retry:     retry,
		timeout:   timeout,
		logger:    log.WithField("component", "interaction_ledger"),
	}
}

type membershipChange struct {
	post    *models.Post
	member  bool
	changed bool
}

// ToggleLike flips the user's like. Not safe to retry blindly; prefer SetLiked.
func (l *InteractionLedger) ToggleLike(ctx context.Context, postID, userID string) (*models.LikeResult, error) {
	return l.like(ctx, "toggle", postID, userID, func(current bool) bool { return !current }, conflictOnly)
}

// SetLiked converges the user's like onto desired; repeating it is a no-op.
func (l *InteractionLedger) SetLiked(ctx context.Context, postID, userID string, desired bool) (*models.LikeResult, error) {
	return l.like(ctx, "set", postID, userID, func(bool) bool { return desired }, apperrors.IsRetryable)
}

func (l *InteractionLedger) like(ctx context.Context, mode, postID, userID string, decide func(bool) bool, retryable Retryable) (*models.LikeResult, error) {
	change, err := l.apply(ctx, postID, models.InteractionLike, userID, decide, retryable)
	if err != nil {
		interactionsTotal.WithLabelValues(string(models.InteractionLike), mode, "error").Inc()
		return nil, err
	}
	interactionsTotal.WithLabelValues(string(models.InteractionLike), mode, "ok").Inc()
	return &models.LikeResult{
		PostID:    change.post.ID,
		Liked:     change.member,
		LikeCount: change.post.MemberCount(models.InteractionLike),
	}, nil
}

// ToggleRetweet flips the user's retweet and keeps the shell post in sync.
func (l *InteractionLedger) ToggleRetweet(ctx context.Context, postID, userID string) (*models.RetweetResult, error) {
	return l.retweet(ctx, "toggle", postID, userID, func(current bool) bool { return !current }, conflictOnly)
}

// SetRetweeted converges the user's retweet onto desired. It also repairs a missing or
// stray shell when membership already matches.
func (l *InteractionLedger) SetRetweeted(ctx context.Context, postID, userID string, desired bool) (*models.RetweetResult, error) {
	return l.retweet(ctx, "set", postID, userID, func(bool) bool { return desired }, apperrors.IsRetryable)
}

func (l *InteractionLedger) retweet(ctx context.Context, mode, postID, userID string, decide func(bool) bool, retryable Retryable) (*models.RetweetResult, error) {
	kind := string(models.InteractionRetweet)
	change, err := l.apply(ctx, postID, models.InteractionRetweet, userID, decide, retryable)
	if err != nil {
		interactionsTotal.WithLabelValues(kind, mode, "error").Inc()
		return nil, err
	}
	original := change.post

	if perr := l.project(ctx, userID, original.ID, change.member); perr != nil {
		interactionsTotal.WithLabelValues(kind, mode, "error").Inc()
		if !change.changed {
			return nil, perr
		}
		return nil, l.compensate(ctx, original.ID, userID, !change.member, perr)
	}

	interactionsTotal.WithLabelValues(kind, mode, "ok").Inc()
	return &models.RetweetResult{
		PostID:       original.ID,
		Retweeted:    change.member,
		RetweetCount: original.MemberCount(models.InteractionRetweet),
	}, nil
}

func (l *InteractionLedger) project(ctx context.Context, userID, originalPostID string, member bool) error {
	if member {
		_, err := l.projector.OnRetweetAdded(ctx, userID, originalPostID)
		return err
	}
	return l.projector.OnRetweetRemoved(ctx, userID, originalPostID)
}

// compensate restores the membership that held before a failed projection so the set and
// the shell never diverge for longer than one retry cycle.
func (l *InteractionLedger) compensate(ctx context.Context, postID, userID string, previous bool, cause error) error {
	ctx = context.WithoutCancel(ctx)
	_, err := l.apply(ctx, postID, models.InteractionRetweet, userID, func(bool) bool { return previous }, apperrors.IsRetryable)
	fields := log.Fields{"post_id": postID, "user_id": userID, "restored_membership": previous}
	if err != nil {
		projectorCompensations.WithLabelValues("failed").Inc()
		l.logger.WithFields(fields).WithError(err).Error("Retweet rollback failed; membership and shell disagree")
		return errors.Join(cause, apperrors.ErrInvariantViolation, err)
	}
	projectorCompensations.WithLabelValues("rolled_back").Inc()
	l.logger.WithFields(fields).WithError(cause).Warn("Retweet projection failed; membership rolled back")
	return fmt.Errorf("retweet not applied: %w", cause)
}

// apply decides and writes the user's membership inside one atomic update. Interactions
// aimed at a retweet shell land on the shell's original.
func (l *InteractionLedger) apply(ctx context.Context, postID string, kind models.InteractionKind, userID string, decide func(bool) bool, retryable Retryable) (*membershipChange, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: interaction requires a user", apperrors.ErrInvalid)
	}
	target := postID
	for hops := 0; hops < 2; hops++ {
		var change membershipChange
		var redirect string
		err := l.retry.Do(ctx, "update "+string(kind), retryable, func(ctx context.Context) error {
			ctx, cancel := withTimeout(ctx, l.timeout)
			defer cancel()
			post, err := l.posts.Update(ctx, target, func(p *models.Post) error {
				if p.Kind == models.KindRetweet {
					redirect = p.OriginalPostID
					return errShell
				}
				want := decide(p.HasMember(kind, userID))
				change.changed = p.SetMember(kind, userID, want)
				change.member = want
				return nil
			})
			change.post = post
			return err
		})
		if errors.Is(err, errShell) {
			target = redirect
			continue
		}
		if err != nil {
			return nil, err
		}
		return &change, nil
	}
	return nil, fmt.Errorf("%w: retweet shell %s references another shell", apperrors.ErrInvariantViolation, postID)
}

// Inspect returns the raw ledger of a post along with the viewer's flags.
func (l *InteractionLedger) Inspect(ctx context.Context, postID, viewerID string) (*models.InteractionSnapshot, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()
	post, err := l.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &models.InteractionSnapshot{
		PostID:          post.ID,
		AuthorID:        post.AuthorID,
		LikedBy:         post.LikedBy,
		RetweetedBy:     post.RetweetedBy,
		LikeCount:       post.MemberCount(models.InteractionLike),
		RetweetCount:    post.MemberCount(models.InteractionRetweet),
		ViewerID:        viewerID,
		ViewerLiked:     post.IsLikedBy(viewerID),
		ViewerRetweeted: post.IsRetweetedBy(viewerID),
	}, nil
}
