package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type retweetKey struct {
	authorID       string
	originalPostID string
}

// MemoryPostRepository implements PostRepository in process memory. It backs the
// `storage = "memory"` dev mode and the test suites. A single lock makes every
// Update atomic, so it never reports ErrConflict from Update.
type MemoryPostRepository struct {
	mu       sync.RWMutex
	posts    map[string]*models.Post
	retweets map[retweetKey]string
	logger   *log.Entry
}

// NewMemoryPostRepository creates an empty MemoryPostRepository
func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{
		posts:    make(map[string]*models.Post),
		retweets: make(map[retweetKey]string),
		logger:   log.WithField("component", "memory_post_repository"),
	}
}

func (r *MemoryPostRepository) Create(ctx context.Context, post *models.Post) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.FromContext(err)
	}
	if err := post.Validate(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == "" {
		post.ID = models.NewPostID()
	}
	if _, ok := r.posts[post.ID]; ok {
		return "", fmt.Errorf("insert post %s: %w", post.ID, apperrors.ErrConflict)
	}
	key := retweetKey{post.AuthorID, post.OriginalPostID}
	if post.Kind == models.KindRetweet {
		if _, ok := r.retweets[key]; ok {
			return "", fmt.Errorf("insert retweet of %s by %s: %w", post.OriginalPostID, post.AuthorID, apperrors.ErrConflict)
		}
	}
	post.Reconcile()
	post.Version = 0
	r.posts[post.ID] = post.Clone()
	if post.Kind == models.KindRetweet {
		r.retweets[key] = post.ID
	}
	return post.ID, nil
}

func (r *MemoryPostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, fmt.Errorf("get post %s: %w", id, apperrors.ErrNotFound)
	}
	out := post.Clone()
	repairOnRead(r.logger, out)
	return out, nil
}

func (r *MemoryPostRepository) Update(ctx context.Context, id string, mutate Mutator) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.posts[id]
	if !ok {
		return nil, fmt.Errorf("update post %s: %w", id, apperrors.ErrNotFound)
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.Reconcile()
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()
	r.posts[id] = next
	return next.Clone(), nil
}

func (r *MemoryPostRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.FromContext(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("delete post %s: %w", id, apperrors.ErrNotFound)
	}
	if post.Kind == models.KindRetweet {
		delete(r.retweets, retweetKey{post.AuthorID, post.OriginalPostID})
	}
	delete(r.posts, id)
	return nil
}

func (r *MemoryPostRepository) QueryRecent(ctx context.Context, kinds []models.PostKind, limit int) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := []models.Post{}
	for _, p := range r.posts {
		if len(kinds) > 0 && !lo.Contains(kinds, p.Kind) {
			continue
		}
		posts = append(posts, *p.Clone())
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	if limit >= 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	for i := range posts {
		repairOnRead(r.logger, &posts[i])
	}
	return posts, nil
}

func (r *MemoryPostRepository) FindRetweet(ctx context.Context, authorID, originalPostID string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.retweets[retweetKey{authorID, originalPostID}]
	if !ok {
		return nil, fmt.Errorf("find retweet of %s by %s: %w", originalPostID, authorID, apperrors.ErrNotFound)
	}
	return r.posts[id].Clone(), nil
}

// DeleteAll empties the store.
func (r *MemoryPostRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = make(map[string]*models.Post)
	r.retweets = make(map[retweetKey]string)
	return nil
}
