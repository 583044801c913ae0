package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/identity"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/repositories"
	"github.com/stretchr/testify/require"
)

// faultyPosts wraps a PostRepository and injects failures per method.
type faultyPosts struct {
	repositories.PostRepository

	mu          sync.Mutex
	createErrs  []error
	deleteErrs  []error
	updateErrs  []error
	getDelay    map[string]time.Duration
	findDelays  []time.Duration
	createCalls int
	updateCalls int
}

func newFaultyPosts(inner repositories.PostRepository) *faultyPosts {
	return &faultyPosts{PostRepository: inner, getDelay: map[string]time.Duration{}}
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *faultyPosts) Create(ctx context.Context, p *models.Post) (string, error) {
	f.mu.Lock()
	f.createCalls++
	err := pop(&f.createErrs)
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.PostRepository.Create(ctx, p)
}

func (f *faultyPosts) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	err := pop(&f.deleteErrs)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.PostRepository.Delete(ctx, id)
}

func (f *faultyPosts) Update(ctx context.Context, id string, mutate repositories.Mutator) (*models.Post, error) {
	f.mu.Lock()
	f.updateCalls++
	err := pop(&f.updateErrs)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.PostRepository.Update(ctx, id, mutate)
}

func (f *faultyPosts) Get(ctx context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	delay := f.getDelay[id]
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, apperrors.FromContext(ctx.Err())
		}
	}
	return f.PostRepository.Get(ctx, id)
}

// FindRetweet sleeps for the next queued delay, if any, before answering.
func (f *faultyPosts) FindRetweet(ctx context.Context, authorID, originalPostID string) (*models.Post, error) {
	f.mu.Lock()
	var delay time.Duration
	if len(f.findDelays) > 0 {
		delay = f.findDelays[0]
		f.findDelays = f.findDelays[1:]
	}
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, apperrors.FromContext(ctx.Err())
		}
	}
	return f.PostRepository.FindRetweet(ctx, authorID, originalPostID)
}

// fixedDirectory serves profiles from a map; unknown ids are NotFound.
type fixedDirectory map[string]models.Profile

func (d fixedDirectory) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	p, ok := d[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 1, InitialInterval: time.Millisecond}
}

type fixture struct {
	store     *repositories.MemoryPostRepository
	posts     *faultyPosts
	projector *RetweetProjector
	ledger    *InteractionLedger
	feed      *FeedAssembler
	service   *PostService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewMemoryPostRepository()
	posts := newFaultyPosts(store)
	dir := fixedDirectory{
		"alice": {ID: "alice", Username: "alice", DisplayName: "Alice"},
		"bob":   {ID: "bob", Username: "bob", DisplayName: "Bob"},
		"carol": {ID: "carol", Username: "carol", DisplayName: "Carol"},
	}
	projector := NewRetweetProjector(posts, fastRetry(), time.Second)
	cfg := DefaultFeedConfig()
	cfg.ItemTimeout = 200 * time.Millisecond
	return &fixture{
		store:     store,
		posts:     posts,
		projector: projector,
		ledger:    NewInteractionLedger(posts, projector, fastRetry(), time.Second),
		feed:      NewFeedAssembler(posts, identity.NewResolver(dir, time.Second), fastRetry(), cfg),
		service:   NewPostService(posts, fastRetry(), time.Second),
	}
}

func (f *fixture) original(t *testing.T, author, content string) *models.Post {
	t.Helper()
	p, err := f.service.Create(context.Background(), author, models.CreatePostRequest{Content: content})
	require.NoError(t, err)
	return p
}
