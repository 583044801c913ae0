package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nestsocial/nest/backend/internal/identity"
	"github.com/nestsocial/nest/backend/internal/middleware"
	"github.com/nestsocial/nest/backend/internal/repositories"
	"github.com/nestsocial/nest/backend/internal/seed"
	"github.com/nestsocial/nest/backend/internal/services"
	"github.com/nestsocial/nest/backend/pkg/config"
	"github.com/nestsocial/nest/backend/pkg/firebase"
	log "github.com/sirupsen/logrus"
)

type stores struct {
	db         *config.DB
	posts      seed.PostStore
	users      repositories.UserRepository
	mongoPosts *repositories.MongoPostRepository
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &stores{db: db}

	if mdb := db.MongoDatabase(); mdb != nil {
		s.mongoPosts = repositories.NewMongoPostRepository(mdb)
		s.posts = s.mongoPosts
	} else {
		log.Warn("Using in-memory post storage; data is lost on restart")
		s.posts = repositories.NewMemoryPostRepository()
	}

	if db.Postgres != nil {
		s.users = repositories.NewPostgresUserRepository(db.Postgres)
	} else {
		s.users = repositories.NewMemoryUserRepository()
	}
	return s, nil
}

func (s *stores) Close() {
	s.db.CloseDB()
}

type app struct {
	cfg      *config.Config
	stores   *stores
	firebase *firebase.App
	jwt      *middleware.JWTVerifier
	profiles *identity.Resolver
	posts    *services.PostService
	ledger   *services.InteractionLedger
	feed     *services.FeedAssembler
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case errors.Is(err, firebase.ErrNotConfigured):
		log.Info("Firebase not configured; only local tokens and profiles are available")
	case err != nil:
		st.Close()
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	dirs := identity.ChainDirectory{identity.NewLocalDirectory(st.users)}
	if fb != nil {
		dirs = append(dirs, identity.NewFirebaseDirectory(fb.AuthClient))
	}
	var dir identity.Directory = dirs
	if cfg.ProfileCacheSize > 0 {
		dir = identity.NewCachedDirectory(dirs, cfg.ProfileCacheSize, cfg.ProfileCacheTTL)
	}

	retry := services.DefaultRetryPolicy()
	retry.InitialInterval = cfg.RetryInterval

	projector := services.NewRetweetProjector(st.posts, retry, cfg.StoreTimeout)
	profiles := identity.NewResolver(dir, cfg.ProfileTimeout)
	return &app{
		cfg:      cfg,
		stores:   st,
		firebase: fb,
		jwt:      middleware.NewJWTVerifier(cfg.JWTSecret),
		profiles: profiles,
		posts:    services.NewPostService(st.posts, retry, cfg.StoreTimeout),
		ledger:   services.NewInteractionLedger(st.posts, projector, retry, cfg.StoreTimeout),
		feed: services.NewFeedAssembler(st.posts, profiles, retry, services.FeedConfig{
			DefaultLimit: cfg.Feed.DefaultLimit,
			MaxLimit:     cfg.Feed.MaxLimit,
			Concurrency:  cfg.Feed.Concurrency,
			ItemTimeout:  cfg.Feed.ItemTimeout,
			StoreTimeout: cfg.StoreTimeout,
		}),
	}, nil
}

// verifiers returns every token verifier the API accepts and, separately, the identity
// provider verifier used for session exchange (nil without Firebase).
func (a *app) verifiers() (middleware.Verifiers, middleware.TokenVerifier) {
	all := middleware.Verifiers{a.jwt}
	if a.firebase == nil {
		return all, nil
	}
	fv := middleware.NewFirebaseVerifier(a.firebase.AuthClient)
	return append(all, fv), fv
}

func (a *app) Close() {
	a.stores.Close()
}
