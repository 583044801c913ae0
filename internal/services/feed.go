package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/identity"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/repositories"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FeedConfig bounds page size and resolution cost.
type FeedConfig struct {
	DefaultLimit int
	MaxLimit     int
	Concurrency  int
	ItemTimeout  time.Duration
	StoreTimeout time.Duration
}

// DefaultFeedConfig mirrors the original timeline: 20 posts, 50 at most.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		DefaultLimit: 20,
		MaxLimit:     50,
		Concurrency:  8,
		ItemTimeout:  2 * time.Second,
		StoreTimeout: 5 * time.Second,
	}
}

// FeedAssembler turns a chronological page of posts into display records for one viewer.
type FeedAssembler struct {
	posts    repositories.PostRepository
	profiles *identity.Resolver
	retry    RetryPolicy
	cfg      FeedConfig
	logger   *log.Entry
}

func NewFeedAssembler(posts repositories.PostRepository, profiles *identity.Resolver, retry RetryPolicy, cfg FeedConfig) *FeedAssembler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &FeedAssembler{
		posts:    posts,
		profiles: profiles,
		retry:    retry,
		cfg:      cfg,
		logger:   log.WithField("component", "feed_assembler"),
	}
}

// Limit clamps a requested page size; zero or negative means the default.
func (a *FeedAssembler) Limit(requested int) int {
	switch {
	case requested < 1:
		return a.cfg.DefaultLimit
	case requested > a.cfg.MaxLimit:
		return a.cfg.MaxLimit
	}
	return requested
}

// Recent assembles the most recent originals and retweets. There is no cursor, so
// HasMore is always false.
func (a *FeedAssembler) Recent(ctx context.Context, viewerID string, limit int) (*models.Feed, error) {
	limit = a.Limit(limit)
	var page []models.Post
	err := a.retry.Do(ctx, "query recent", apperrors.IsRetryable, func(ctx context.Context) error {
		ctx, cancel := withTimeout(ctx, a.cfg.StoreTimeout)
		defer cancel()
		var err error
		page, err = a.posts.QueryRecent(ctx, models.FeedKinds, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load feed page: %w", err)
	}
	items := a.Assemble(ctx, page, viewerID)
	return &models.Feed{Posts: items, HasMore: false, TotalReturned: len(items)}, nil
}

// Assemble resolves every post concurrently and returns the survivors in input order.
// Entries that cannot be resolved (dangling retweets, timeouts, storage errors) are
// omitted rather than failing the page.
func (a *FeedAssembler) Assemble(ctx context.Context, page []models.Post, viewerID string) []models.FeedItem {
	start := time.Now()
	defer func() { feedAssemblySeconds.Observe(time.Since(start).Seconds()) }()

	slots := make([]*models.FeedItem, len(page))
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i := range page {
		i := i
		g.Go(func() error {
			item, err := a.resolveWithTimeout(ctx, &page[i], viewerID)
			if err != nil {
				a.drop(&page[i], err)
				return nil
			}
			slots[i] = item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]models.FeedItem, 0, len(page))
	for _, item := range slots {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// View resolves a single post the same way a feed entry is resolved.
func (a *FeedAssembler) View(ctx context.Context, postID, viewerID string) (*models.FeedItem, error) {
	storeCtx, cancel := withTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()
	post, err := a.posts.Get(storeCtx, postID)
	if err != nil {
		return nil, err
	}
	return a.resolveWithTimeout(ctx, post, viewerID)
}

// resolveWithTimeout gives up on a post after ItemTimeout even if a collaborator
// ignores cancellation, so one slow lookup cannot hold the page.
func (a *FeedAssembler) resolveWithTimeout(ctx context.Context, post *models.Post, viewerID string) (*models.FeedItem, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.ItemTimeout)
	defer cancel()

	type result struct {
		item *models.FeedItem
		err  error
	}
	done := make(chan result, 1)
	go func() {
		item, err := a.resolve(ctx, post, viewerID)
		done <- result{item, err}
	}()
	select {
	case r := <-done:
		return r.item, r.err
	case <-ctx.Done():
		return nil, apperrors.FromContext(ctx.Err())
	}
}

// resolve is sequential per post: author lookup first, then the flags.
func (a *FeedAssembler) resolve(ctx context.Context, post *models.Post, viewerID string) (*models.FeedItem, error) {
	variant, err := post.Variant()
	if err != nil {
		return nil, err
	}

	rt, ok := variant.(models.Retweet)
	if !ok {
		author := a.profiles.Profile(ctx, post.AuthorID)
		view := models.NewPostView(post, author, viewerID)
		return &models.FeedItem{ID: post.ID, Type: post.Kind, PostView: &view}, nil
	}

	original, err := a.posts.Get(ctx, rt.OriginalPostID)
	if err != nil {
		return nil, err
	}
	if original.Kind == models.KindRetweet {
		return nil, fmt.Errorf("%w: retweet %s references retweet %s", apperrors.ErrInvariantViolation, post.ID, original.ID)
	}
	retweeter := a.profiles.Profile(ctx, post.AuthorID)
	author := a.profiles.Profile(ctx, original.AuthorID)
	// interaction state belongs to the original, not the shell
	view := models.NewPostView(original, author, viewerID)
	retweetedAt := post.CreatedAt
	return &models.FeedItem{
		ID:            post.ID,
		Type:          models.KindRetweet,
		Retweeter:     &retweeter,
		RetweetedAt:   &retweetedAt,
		OriginalTweet: &view,
	}, nil
}

func (a *FeedAssembler) drop(post *models.Post, err error) {
	reason := "error"
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		reason = "dangling"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, apperrors.ErrInvalid), errors.Is(err, apperrors.ErrInvariantViolation):
		reason = "invalid"
	}
	feedItemsDropped.WithLabelValues(reason).Inc()
	entry := a.logger.WithFields(log.Fields{
		"post_id": post.ID,
		"kind":    post.Kind,
		"reason":  reason,
	}).WithError(err)
	if reason == "dangling" {
		entry.Debug("Dropping feed entry")
		return
	}
	entry.Warn("Dropping feed entry")
}
