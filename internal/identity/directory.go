// Package identity resolves identity-provider UIDs into public profiles.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/repositories"
	log "github.com/sirupsen/logrus"
)

// Directory resolves a user id into a profile or apperrors.ErrNotFound.
type Directory interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// LocalDirectory serves profiles stored in the users table.
type LocalDirectory struct {
	users repositories.UserRepository
}

func NewLocalDirectory(users repositories.UserRepository) *LocalDirectory {
	return &LocalDirectory{users: users}
}

func (d *LocalDirectory) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := d.users.GetUserByExternalID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.ToProfile()
	return &p, nil
}

// ChainDirectory asks each directory in order; NotFound falls through to the next one.
type ChainDirectory []Directory

func (c ChainDirectory) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var errs []error
	for _, d := range c {
		p, err := d.GetProfile(ctx, userID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, fmt.Errorf("profile %s: %w", userID, apperrors.ErrNotFound)
}

// CachedDirectory keeps resolved profiles for a bounded time. Misses and failures are not cached.
type CachedDirectory struct {
	next  Directory
	cache *expirable.LRU[string, models.Profile]
}

func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:  next,
		cache: expirable.NewLRU[string, models.Profile](size, nil, ttl),
	}
}

func (c *CachedDirectory) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if p, ok := c.cache.Get(userID); ok {
		return &p, nil
	}
	p, err := c.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(userID, *p)
	return p, nil
}

// Invalidate drops a cached profile after a local edit.
func (c *CachedDirectory) Invalidate(userID string) {
	c.cache.Remove(userID)
}

// Resolver wraps a directory with a per-lookup timeout and the unknown-user fallback.
type Resolver struct {
	dir     Directory
	timeout time.Duration
	logger  *log.Entry
}

func NewResolver(dir Directory, timeout time.Duration) *Resolver {
	return &Resolver{dir: dir, timeout: timeout, logger: log.WithField("component", "identity")}
}

// Profile never fails: an unknown or unreachable user renders as a placeholder.
func (r *Resolver) Profile(ctx context.Context, userID string) models.Profile {
	p, err := r.Lookup(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			r.logger.WithError(err).WithField("user_id", userID).Warn("profile lookup failed, using placeholder")
		}
		return models.UnknownProfile(userID)
	}
	return *p
}

// Lookup is the strict variant used where NotFound must reach the caller.
func (r *Resolver) Lookup(ctx context.Context, userID string) (*models.Profile, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	p, err := r.dir.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperrors.FromContext(err)
	}
	return p, nil
}

// Invalidate forwards to the cache when the directory has one.
func (r *Resolver) Invalidate(userID string) {
	if c, ok := r.dir.(*CachedDirectory); ok {
		c.Invalidate(userID)
	}
}
