package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/handlers"
	"github.com/nestsocial/nest/backend/internal/identity"
	"github.com/nestsocial/nest/backend/internal/middleware"
	"github.com/nestsocial/nest/backend/internal/repositories"
	"github.com/nestsocial/nest/backend/internal/services"
	log "github.com/sirupsen/logrus"
)

// Dependencies are the services the HTTP surface is built from.
type Dependencies struct {
	Posts    *services.PostService
	Ledger   *services.InteractionLedger
	Feed     *services.FeedAssembler
	Users    repositories.UserRepository
	Profiles *identity.Resolver

	// Verifier accepts every bearer token the API honours.
	Verifier middleware.TokenVerifier
	// Provider verifies identity provider ID tokens for the session exchange.
	// The exchange route is not registered when it is nil.
	Provider   middleware.TokenVerifier
	Signer     handlers.SessionSigner
	SessionTTL time.Duration

	Env     string
	Storage string
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Dependencies) {
	health := handlers.NewHealthHandler(d.Env, d.Storage)
	e.GET("/health", health.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "NEST API"})
	})

	api := e.Group("/api/v1")
	api.GET("/health", health.HealthCheck)
	auth := handlers.AuthMiddleware{
		Required: middleware.RequireAuth(d.Verifier),
		Optional: middleware.OptionalAuth(d.Verifier),
	}

	if d.Provider != nil {
		authHandler := handlers.NewAuthHandler(d.Provider, d.Signer, d.Profiles, d.SessionTTL)
		authHandler.RegisterAuthRoutes(api)
		log.Info("Auth routes configured.")
	}

	userHandler := handlers.NewUserHandler(d.Users, d.Profiles)
	userHandler.RegisterProfileRoutes(api, auth)
	log.Info("User profile routes configured.")

	postHandler := handlers.NewPostHandler(d.Posts, d.Feed)
	postHandler.RegisterPostRoutes(api, auth)
	log.Info("Post routes configured.")

	interactionHandler := handlers.NewInteractionHandler(d.Ledger)
	interactionHandler.RegisterInteractionRoutes(api, auth)
	log.Info("Like and retweet routes configured.")

	feedHandler := handlers.NewFeedHandler(d.Feed)
	feedHandler.RegisterFeedRoutes(api, auth)
	log.Info("Feed routes configured.")

	log.Info("All routes configured.")
}
